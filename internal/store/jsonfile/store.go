// Package jsonfile stores characters as two linked JSON documents: an ordered
// index of summaries and a details object keyed by id.
//
// Every operation loads both files, mutations rewrite both files. Mutations are
// serialized by an in-process weighted semaphore plus an advisory file lock, so readers
// always see index and details from the same save.
package jsonfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/charstore/charstore/internal/ids"
	"github.com/charstore/charstore/internal/model"
	"github.com/charstore/charstore/internal/store"
)

// Options configures Open.
type Options struct {
	IndexPath   string
	DetailsPath string
	// LockPath defaults to IndexPath + ".lock".
	LockPath string
	// Strict reports unparseable files as model.ErrCorrupt instead of reading them as empty.
	Strict      bool
	LockTimeout time.Duration
	Logger      zerolog.Logger
}

// Store implements store.Store over the index and details files.
type Store struct {
	indexPath   string
	detailsPath string
	lockPath    string
	strict      bool
	lockTimeout time.Duration
	log         zerolog.Logger

	// in-process reader/writer exclusion; see lock.go
	sem *semaphore.Weighted

	writeFile func(path string, v interface{}) error
}

var _ store.Store = (*Store)(nil)

// Open prepares the data files, creating empty collections when absent.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.IndexPath == "" || opts.DetailsPath == "" {
		return nil, fmt.Errorf("jsonfile: index and details paths are required")
	}
	if opts.LockPath == "" {
		opts.LockPath = opts.IndexPath + ".lock"
	}
	for _, p := range []string{opts.IndexPath, opts.DetailsPath, opts.LockPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, fmt.Errorf("jsonfile: create dir for %s: %w", p, err)
		}
	}

	s := &Store{
		indexPath:   opts.IndexPath,
		detailsPath: opts.DetailsPath,
		lockPath:    opts.LockPath,
		strict:      opts.Strict,
		lockTimeout: opts.LockTimeout,
		log:         opts.Logger.With().Str("component", "jsonfile").Logger(),
		sem:         semaphore.NewWeighted(maxReaders),
		writeFile:   writeJSONAtomic,
	}

	unlock, err := s.lockWrite(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if created, err := ensureFile(s.indexPath, []model.IndexRecord{}); err != nil {
		return nil, fmt.Errorf("jsonfile: init index: %w", err)
	} else if created {
		s.log.Info().Str("path", s.indexPath).Msg("created empty index file")
	}
	if created, err := ensureFile(s.detailsPath, map[string]model.DetailsRecord{}); err != nil {
		return nil, fmt.Errorf("jsonfile: init details: %w", err)
	} else if created {
		s.log.Info().Str("path", s.detailsPath).Msg("created empty details file")
	}
	return s, nil
}

// view runs fn against a consistent snapshot.
func (s *Store) view(ctx context.Context, fn func(*snapshot) error) error {
	unlock, err := s.lockRead(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	snap, err := s.load()
	if err != nil {
		return err
	}
	return fn(snap)
}

// mutate runs load, fn and, when fn asks for it, save under the write lock.
func (s *Store) mutate(ctx context.Context, fn func(*snapshot) (bool, error)) error {
	unlock, err := s.lockWrite(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	snap, err := s.load()
	if err != nil {
		return err
	}
	changed, err := fn(snap)
	if err != nil || !changed {
		return err
	}
	return s.save(snap)
}

func (s *Store) Add(ctx context.Context, in model.NewCharacter) (string, error) {
	var id string
	err := s.mutate(ctx, func(snap *snapshot) (bool, error) {
		taken := make(map[string]struct{}, len(snap.index))
		for _, r := range snap.index {
			taken[r.ID] = struct{}{}
		}
		var err error
		id, err = ids.NewUnique(func(c string) bool {
			if _, ok := taken[c]; ok {
				return true
			}
			_, ok := snap.details[c]
			return ok
		})
		if err != nil {
			return false, err
		}

		idx, det := model.NewRecordPair(id, in)
		snap.index = append(snap.index, idx)
		snap.details[id] = det
		return true, nil
	})
	if err != nil {
		return "", err
	}
	s.log.Info().Str("id", id).Str("name", in.Name).Msg("character added")
	return id, nil
}

func (s *Store) Search(ctx context.Context, keyword string) ([]model.IndexRecord, error) {
	var out []model.IndexRecord
	err := s.view(ctx, func(snap *snapshot) error {
		out = store.Filter(snap.index, keyword)
		return nil
	})
	return out, err
}

func (s *Store) SearchRecords(ctx context.Context, keyword string) ([]model.Match, error) {
	var out []model.Match
	err := s.view(ctx, func(snap *snapshot) error {
		hits := store.Filter(snap.index, keyword)
		out = make([]model.Match, 0, len(hits))
		for _, h := range hits {
			m := model.Match{Index: h}
			if det, ok := snap.details[h.ID]; ok {
				m.Details = &det
			}
			out = append(out, m)
		}
		return nil
	})
	return out, err
}

func (s *Store) Read(ctx context.Context, id string) (*model.Record, error) {
	var rec *model.Record
	err := s.view(ctx, func(snap *snapshot) error {
		det, ok := snap.details[id]
		if !ok {
			return fmt.Errorf("character %s: %w", id, model.ErrNotFound)
		}
		for _, r := range snap.index {
			if r.ID == id {
				rec = &model.Record{IndexRecord: r, DetailsRecord: det}
				return nil
			}
		}
		return fmt.Errorf("character %s: %w", id, model.ErrNotFound)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	removed := false
	err := s.mutate(ctx, func(snap *snapshot) (bool, error) {
		kept := snap.index[:0]
		for _, r := range snap.index {
			if r.ID == id {
				removed = true
				continue
			}
			kept = append(kept, r)
		}
		if !removed {
			return false, nil
		}
		snap.index = kept
		delete(snap.details, id)
		return true, nil
	})
	if err != nil {
		return false, err
	}
	if removed {
		s.log.Info().Str("id", id).Msg("character deleted")
	}
	return removed, nil
}

func (s *Store) Update(ctx context.Context, id string, upd model.CharacterUpdate) (bool, error) {
	found := false
	err := s.mutate(ctx, func(snap *snapshot) (bool, error) {
		for i := range snap.index {
			if snap.index[i].ID != id {
				continue
			}
			found = true
			applyUpdate(&snap.index[i], snap.details, upd)
			break
		}
		return found, nil
	})
	if err != nil {
		return false, err
	}
	if found {
		s.log.Info().Str("id", id).Msg("character updated")
	}
	return found, nil
}

// applyUpdate overwrites supplied fields and keeps full_tags derived from tags.
func applyUpdate(rec *model.IndexRecord, details map[string]model.DetailsRecord, upd model.CharacterUpdate) {
	if upd.Name != nil {
		rec.Name = *upd.Name
	}
	if upd.Alias != nil {
		rec.Alias = *upd.Alias
	}
	if upd.Tags != nil {
		rec.Tags = *upd.Tags
	}

	det, ok := details[rec.ID]
	if !ok {
		return
	}
	if upd.Tags != nil {
		det.FullTags = model.SplitTags(*upd.Tags)
	}
	if upd.Bio != nil {
		det.Bio = *upd.Bio
	}
	details[rec.ID] = det
}

// HealthPing verifies both data files are present and readable.
func (s *Store) HealthPing(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, p := range []string{s.indexPath, s.detailsPath} {
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		_ = f.Close()
	}
	return nil
}

// Close is a no-op; files are not held open between operations.
func (s *Store) Close() error { return nil }
