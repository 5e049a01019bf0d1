package store

import (
	"context"

	"github.com/charstore/charstore/internal/model"
)

// Store is the character record store.
// Implementations live under internal/store/<driver>/ (jsonfile, sqlstore).
type Store interface {
	// Add creates the index and details entries for a new character and returns its id.
	Add(ctx context.Context, in model.NewCharacter) (string, error)
	// Search returns index records whose name, alias and tags contain keyword, in insertion order.
	Search(ctx context.Context, keyword string) ([]model.IndexRecord, error)
	// SearchRecords is Search with each hit paired to its details from the same snapshot.
	SearchRecords(ctx context.Context, keyword string) ([]model.Match, error)
	// Read returns the merged record, or model.ErrNotFound unless both halves exist.
	Read(ctx context.Context, id string) (*model.Record, error)
	// Delete removes id from both collections and reports whether anything was removed.
	Delete(ctx context.Context, id string) (bool, error)
	// Update applies a partial update and reports whether id was found.
	Update(ctx context.Context, id string, upd model.CharacterUpdate) (bool, error)

	HealthPing(ctx context.Context) error
	Close() error
}
