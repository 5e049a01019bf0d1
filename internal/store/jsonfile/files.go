package jsonfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/charstore/charstore/internal/model"
)

// snapshot is one paired load of both collections.
type snapshot struct {
	index   []model.IndexRecord
	details map[string]model.DetailsRecord

	// files that failed to parse and were read as empty
	corrupt []string
}

func (s *Store) load() (*snapshot, error) {
	snap := &snapshot{}

	idxOK, err := s.readDocument(s.indexPath, &snap.index)
	if err != nil {
		return nil, err
	}
	if !idxOK {
		snap.index = nil
		snap.corrupt = append(snap.corrupt, s.indexPath)
	}
	if snap.index == nil {
		snap.index = []model.IndexRecord{}
	}

	detOK, err := s.readDocument(s.detailsPath, &snap.details)
	if err != nil {
		return nil, err
	}
	if !detOK {
		snap.details = nil
		snap.corrupt = append(snap.corrupt, s.detailsPath)
	}
	if snap.details == nil {
		snap.details = map[string]model.DetailsRecord{}
	}
	return snap, nil
}

// readDocument decodes path into v. A missing file leaves v untouched.
// ok is false when the file could not be parsed and was treated as empty.
func (s *Store) readDocument(path string, v interface{}) (ok bool, err error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return true, nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		if s.strict {
			return false, fmt.Errorf("%w: %s: %v", model.ErrCorrupt, path, err)
		}
		s.log.Warn().
			Str("path", path).
			Err(err).
			Msg("unparseable data file, treating as empty")
		return false, nil
	}
	return true, nil
}

// save rewrites both files. A failure on one file does not stop the other.
func (s *Store) save(snap *snapshot) error {
	var errs []error

	for _, p := range snap.corrupt {
		backup := fmt.Sprintf("%s.corrupt-%d", p, time.Now().UnixNano())
		if err := os.Rename(p, backup); err != nil {
			errs = append(errs, fmt.Errorf("preserve corrupt %s: %w", p, err))
			continue
		}
		s.log.Warn().Str("path", p).Str("backup", backup).Msg("corrupt data file moved aside")
	}
	if len(errs) > 0 {
		// refuse to overwrite data we could not preserve
		return errors.Join(errs...)
	}

	if err := s.writeFile(s.indexPath, snap.index); err != nil {
		errs = append(errs, fmt.Errorf("save index %s: %w", s.indexPath, err))
	}
	if err := s.writeFile(s.detailsPath, snap.details); err != nil {
		errs = append(errs, fmt.Errorf("save details %s: %w", s.detailsPath, err))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	s.log.Debug().
		Int("index_count", len(snap.index)).
		Int("details_count", len(snap.details)).
		Msg("collections saved")
	return nil
}

// encode renders v as 4-space indented JSON without HTML escaping.
func encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeJSONAtomic replaces path with the encoding of v via a same-directory temp file.
func writeJSONAtomic(path string, v interface{}) error {
	b, err := encode(v)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}

// ensureFile creates path with the encoding of empty when it does not exist.
func ensureFile(path string, empty interface{}) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}
	if err := writeJSONAtomic(path, empty); err != nil {
		return false, err
	}
	return true, nil
}
