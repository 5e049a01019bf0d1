package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charstore/charstore/internal/model"
)

func printCards(out io.Writer, cards []model.Card) error {
	if len(cards) == 0 {
		_, err := fmt.Fprintln(out, "no characters")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tALIAS\tTAGS\tDESC")
	for _, c := range cards {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Alias, strings.Join(c.Tags, ","), oneLine(c.Desc))
	}
	return tw.Flush()
}

func printRecord(out io.Writer, r *model.Record) error {
	_, err := fmt.Fprintf(out, "ID:     %s\nName:   %s\nAlias:  %s\nTags:   %s\nImage:  %s\nBio:\n%s\n",
		r.ID, r.Name, r.Alias, strings.Join(r.FullTags, ", "), r.ImagePath, r.Bio)
	return err
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
