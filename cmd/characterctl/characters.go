package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var fieldNames = []string{"name", "alias", "tags", "bio"}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all characters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cards, err := newClient(apiFlag).list(cmd.Context())
			if err != nil {
				return err
			}
			return printCards(cmd.OutOrStdout(), cards)
		},
	}
}

func newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search KEYWORD",
		Short: "Find characters whose name, alias or tags contain KEYWORD",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cards, err := newClient(apiFlag).search(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printCards(cmd.OutOrStdout(), cards)
		},
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one character",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := newClient(apiFlag).get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printRecord(cmd.OutOrStdout(), rec)
		},
	}
}

func newAddCmd() *cobra.Command {
	var image string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a character",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := map[string]string{}
			for _, f := range fieldNames {
				v, _ := cmd.Flags().GetString(f)
				fields[f] = v
			}
			id, err := newClient(apiFlag).create(cmd.Context(), fields, image)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	addFieldFlags(cmd)
	cmd.Flags().StringVar(&image, "image", "", "Path to a portrait to upload")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newUpdateCmd() *cobra.Command {
	var image string
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change the given fields of a character",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := map[string]string{}
			for _, f := range fieldNames {
				if cmd.Flags().Changed(f) {
					fields[f], _ = cmd.Flags().GetString(f)
				}
			}
			if len(fields) == 0 && image == "" {
				return fmt.Errorf("nothing to update: set at least one of --name, --alias, --tags, --bio, --image")
			}
			if err := newClient(apiFlag).update(cmd.Context(), args[0], fields, image); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", args[0])
			return nil
		},
	}
	addFieldFlags(cmd)
	cmd.Flags().StringVar(&image, "image", "", "Path to a replacement portrait")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a character",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient(apiFlag).delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func addFieldFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("name", "n", "", "Character name")
	cmd.Flags().String("alias", "", "Alias")
	cmd.Flags().StringP("tags", "t", "", "Tags joined with '.'")
	cmd.Flags().StringP("bio", "b", "", "Biography")
}
