package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/charstore/charstore/internal/model"
	"github.com/charstore/charstore/internal/store"
)

const (
	// ListDescRunes is how much of the biography a listing card shows.
	ListDescRunes  = 50
	NoDescription  = "No description"
	truncateSuffix = "..."
)

// ImageStore is the subset of images.Store the service needs.
type ImageStore interface {
	Save(id string, r io.Reader) error
	Remove(id string) error
}

// CharacterService orchestrates character use cases on top of a store and
// the image directory.
type CharacterService struct {
	store  store.Store
	images ImageStore
	log    zerolog.Logger
}

func NewCharacterService(s store.Store, images ImageStore, log zerolog.Logger) *CharacterService {
	return &CharacterService{store: s, images: images, log: log.With().Str("component", "characters").Logger()}
}

// Create adds the character and then stores its image, if any. The record is
// kept when the image write fails.
func (s *CharacterService) Create(ctx context.Context, in model.NewCharacter, image io.Reader) (string, error) {
	id, err := s.store.Add(ctx, in)
	if err != nil {
		return "", err
	}
	if image != nil && s.images != nil {
		if err := s.images.Save(id, image); err != nil {
			return id, fmt.Errorf("save image for %s: %w", id, err)
		}
	}
	return id, nil
}

// List returns every character as a card with a shortened description.
func (s *CharacterService) List(ctx context.Context) ([]model.Card, error) {
	hits, err := s.store.SearchRecords(ctx, "")
	if err != nil {
		return nil, err
	}
	return toCards(hits, ListDescRunes), nil
}

// Search returns the matching characters with full descriptions.
func (s *CharacterService) Search(ctx context.Context, keyword string) ([]model.Card, error) {
	hits, err := s.store.SearchRecords(ctx, keyword)
	if err != nil {
		return nil, err
	}
	return toCards(hits, 0), nil
}

func (s *CharacterService) Get(ctx context.Context, id string) (*model.Record, error) {
	return s.store.Read(ctx, id)
}

// Update applies upd and, when the character exists, replaces its image.
func (s *CharacterService) Update(ctx context.Context, id string, upd model.CharacterUpdate, image io.Reader) (bool, error) {
	found, err := s.store.Update(ctx, id, upd)
	if err != nil || !found {
		return found, err
	}
	if image != nil && s.images != nil {
		if err := s.images.Save(id, image); err != nil {
			return true, fmt.Errorf("save image for %s: %w", id, err)
		}
	}
	return true, nil
}

// Delete removes the character. The image file goes too, best effort.
func (s *CharacterService) Delete(ctx context.Context, id string) (bool, error) {
	removed, err := s.store.Delete(ctx, id)
	if err != nil || !removed {
		return removed, err
	}
	if s.images != nil {
		if err := s.images.Remove(id); err != nil {
			s.log.Warn().Err(err).Str("id", id).Msg("failed to remove image")
		}
	}
	return true, nil
}

func toCards(hits []model.Match, descRunes int) []model.Card {
	cards := make([]model.Card, 0, len(hits))
	for _, h := range hits {
		cards = append(cards, NewCard(h, descRunes))
	}
	return cards
}

// NewCard projects a search hit. descRunes > 0 truncates the description.
func NewCard(h model.Match, descRunes int) model.Card {
	c := model.Card{ID: h.Index.ID, Name: h.Index.Name, Alias: h.Index.Alias, Desc: NoDescription}
	if h.Details != nil {
		c.Image = h.Details.ImagePath
		c.Desc = h.Details.Bio
		c.Tags = h.Details.FullTags
	}
	if len(c.Tags) == 0 {
		c.Tags = strings.Split(strings.ReplaceAll(h.Index.Tags, model.TagDelimiter, ","), ",")
	}
	if descRunes > 0 {
		c.Desc = Truncate(c.Desc, descRunes)
	}
	return c
}

// Truncate cuts s to n runes and marks the cut with "...".
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + truncateSuffix
}
