// Package sqlstore implements store.Store on database/sql. The index and
// details collections are two tables; every mutation is one transaction.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/charstore/charstore/internal/ids"
	"github.com/charstore/charstore/internal/model"
	"github.com/charstore/charstore/internal/store"
)

// Store is a relational character store.
type Store struct {
	db      *sql.DB
	dialect Dialect
	log     zerolog.Logger
}

var _ store.Store = (*Store)(nil)

// New wraps db and ensures the schema exists.
func New(ctx context.Context, db *sql.DB, d Dialect, log zerolog.Logger) (*Store, error) {
	s := &Store{db: db, dialect: d, log: log.With().Str("component", "sqlstore").Str("dialect", d.Name).Logger()}
	for _, stmt := range d.schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("sqlstore: apply schema: %w", err)
		}
	}
	return s, nil
}

// DB exposes the underlying connection.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) q(query string) string { return s.dialect.rebind(query) }

// inTx runs fn in a transaction, committing only when fn succeeds and asks for it.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) (bool, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	commit, err := fn(tx)
	if err != nil || !commit {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) Add(ctx context.Context, in model.NewCharacter) (string, error) {
	var id string
	err := s.inTx(ctx, func(tx *sql.Tx) (bool, error) {
		var lookupErr error
		var err error
		id, err = ids.NewUnique(func(c string) bool {
			var one int
			err := tx.QueryRowContext(ctx, s.q(`
				SELECT 1 FROM character_index WHERE id = ?
				UNION ALL
				SELECT 1 FROM character_details WHERE id = ?`), c, c).Scan(&one)
			if errors.Is(err, sql.ErrNoRows) {
				return false
			}
			if err != nil {
				lookupErr = err
			}
			return true
		})
		if lookupErr != nil {
			return false, lookupErr
		}
		if err != nil {
			return false, err
		}

		idx, det := model.NewRecordPair(id, in)
		tags, err := json.Marshal(det.FullTags)
		if err != nil {
			return false, err
		}
		if _, err := tx.ExecContext(ctx, s.q(`INSERT INTO character_index (id, name, alias, tags) VALUES (?,?,?,?)`),
			idx.ID, idx.Name, idx.Alias, idx.Tags); err != nil {
			return false, err
		}
		if _, err := tx.ExecContext(ctx, s.q(`INSERT INTO character_details (id, bio, full_tags, image_path) VALUES (?,?,?,?)`),
			id, det.Bio, string(tags), det.ImagePath); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return "", err
	}
	s.log.Info().Str("id", id).Str("name", in.Name).Msg("character added")
	return id, nil
}

func (s *Store) Search(ctx context.Context, keyword string) ([]model.IndexRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, alias, tags FROM character_index ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	m := store.NewMatcher(keyword)
	out := []model.IndexRecord{}
	for rows.Next() {
		var r model.IndexRecord
		if err := rows.Scan(&r.ID, &r.Name, &r.Alias, &r.Tags); err != nil {
			return nil, err
		}
		if m.Match(r) {
			out = append(out, r)
		}
	}
	return out, rows.Err()
}

func (s *Store) SearchRecords(ctx context.Context, keyword string) ([]model.Match, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.name, i.alias, i.tags, d.bio, d.full_tags, d.image_path
		FROM character_index i
		LEFT JOIN character_details d ON d.id = i.id
		ORDER BY i.seq`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	m := store.NewMatcher(keyword)
	out := []model.Match{}
	for rows.Next() {
		var r model.IndexRecord
		var bio, fullTags, imagePath sql.NullString
		if err := rows.Scan(&r.ID, &r.Name, &r.Alias, &r.Tags, &bio, &fullTags, &imagePath); err != nil {
			return nil, err
		}
		if !m.Match(r) {
			continue
		}
		hit := model.Match{Index: r}
		if fullTags.Valid {
			det, err := decodeDetails(bio.String, fullTags.String, imagePath.String)
			if err != nil {
				return nil, fmt.Errorf("character %s: %w", r.ID, err)
			}
			hit.Details = &det
		}
		out = append(out, hit)
	}
	return out, rows.Err()
}

func (s *Store) Read(ctx context.Context, id string) (*model.Record, error) {
	row := s.db.QueryRowContext(ctx, s.q(`
		SELECT i.id, i.name, i.alias, i.tags, d.bio, d.full_tags, d.image_path
		FROM character_index i
		JOIN character_details d ON d.id = i.id
		WHERE i.id = ?
		ORDER BY i.seq
		LIMIT 1`), id)

	var rec model.Record
	var bio, fullTags, imagePath string
	if err := row.Scan(&rec.ID, &rec.Name, &rec.Alias, &rec.Tags, &bio, &fullTags, &imagePath); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("character %s: %w", id, model.ErrNotFound)
		}
		return nil, err
	}
	det, err := decodeDetails(bio, fullTags, imagePath)
	if err != nil {
		return nil, fmt.Errorf("character %s: %w", id, err)
	}
	rec.DetailsRecord = det
	return &rec, nil
}

func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	removed := false
	err := s.inTx(ctx, func(tx *sql.Tx) (bool, error) {
		res, err := tx.ExecContext(ctx, s.q(`DELETE FROM character_index WHERE id = ?`), id)
		if err != nil {
			return false, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return false, err
		}
		if n == 0 {
			return false, nil
		}
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM character_details WHERE id = ?`), id); err != nil {
			return false, err
		}
		removed = true
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
	err := s.inTx(ctx, func(tx *sql.Tx) (bool, error) {
		var seq int64
		var rec model.IndexRecord
		err := tx.QueryRowContext(ctx, s.q(`SELECT seq, id, name, alias, tags FROM character_index WHERE id = ? ORDER BY seq LIMIT 1`), id).
			Scan(&seq, &rec.ID, &rec.Name, &rec.Alias, &rec.Tags)
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		found = true

		if upd.Name != nil {
			rec.Name = *upd.Name
		}
		if upd.Alias != nil {
			rec.Alias = *upd.Alias
		}
		if upd.Tags != nil {
			rec.Tags = *upd.Tags
		}
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE character_index SET name = ?, alias = ?, tags = ? WHERE seq = ?`),
			rec.Name, rec.Alias, rec.Tags, seq); err != nil {
			return false, err
		}

		if upd.Tags == nil && upd.Bio == nil {
			return true, nil
		}
		var bio, fullTags string
		err = tx.QueryRowContext(ctx, s.q(`SELECT bio, full_tags FROM character_details WHERE id = ?`), id).Scan(&bio, &fullTags)
		if errors.Is(err, sql.ErrNoRows) {
			return true, nil
		}
		if err != nil {
			return false, err
		}
		if upd.Tags != nil {
			b, err := json.Marshal(model.SplitTags(*upd.Tags))
			if err != nil {
				return false, err
			}
			fullTags = string(b)
		}
		if upd.Bio != nil {
			bio = *upd.Bio
		}
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE character_details SET bio = ?, full_tags = ? WHERE id = ?`),
			bio, fullTags, id); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return false, err
	}
	if found {
		s.log.Info().Str("id", id).Msg("character updated")
	}
	return found, nil
}

// HealthPing implements health.HealthPinger.
func (s *Store) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error { return s.db.Close() }

func decodeDetails(bio, fullTags, imagePath string) (model.DetailsRecord, error) {
	det := model.DetailsRecord{Bio: bio, ImagePath: imagePath}
	if err := json.Unmarshal([]byte(fullTags), &det.FullTags); err != nil {
		return det, fmt.Errorf("%w: full_tags: %v", model.ErrCorrupt, err)
	}
	return det, nil
}
