package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charstore/charstore/internal/model"
	"github.com/charstore/charstore/internal/store"
	"github.com/charstore/charstore/internal/store/storetest"
)

func openTestStore(t *testing.T, dir string, strict bool) *Store {
	t.Helper()
	s, err := Open(context.Background(), Options{
		IndexPath:   filepath.Join(dir, "index_file.json"),
		DetailsPath: filepath.Join(dir, "details_file.json"),
		Strict:      strict,
		LockTimeout: 2 * time.Second,
		Logger:      zerolog.Nop(),
	})
	require.NoError(t, err)
	return s
}

func TestJSONFileStore_Compliance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return openTestStore(t, t.TempDir(), false)
	})
}

func TestOpenCreatesEmptyCollections(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	s := openTestStore(t, dir, false)

	idx, err := os.ReadFile(s.indexPath)
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(string(idx)))

	det, err := os.ReadFile(s.detailsPath)
	require.NoError(t, err)
	assert.Equal(t, "{}", strings.TrimSpace(string(det)))
}

func TestOpenKeepsExistingData(t *testing.T) {
	dir := t.TempDir()
	idx := `[{"id":"E1","name":"Amiya","alias":"Doctor","tags":"sorcerer.guard"}]`
	det := `{"E1":{"bio":"leader bio","full_tags":["sorcerer","guard"],"imagepath":"images/E1.png"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index_file.json"), []byte(idx), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "details_file.json"), []byte(det), 0o644))

	s := openTestStore(t, dir, false)
	rec, err := s.Read(context.Background(), "E1")
	require.NoError(t, err)
	assert.Equal(t, "Amiya", rec.Name)
	assert.Equal(t, []string{"sorcerer", "guard"}, rec.FullTags)
	assert.Equal(t, "images/E1.png", rec.ImagePath)
}

func TestSaveFormat(t *testing.T) {
	s := openTestStore(t, t.TempDir(), false)
	id, err := s.Add(context.Background(), model.NewCharacter{Name: "阿米娅", Alias: "<Doctor>", Tags: "术士.近卫", Bio: "a & b"})
	require.NoError(t, err)

	raw, err := os.ReadFile(s.indexPath)
	require.NoError(t, err)
	text := string(raw)
	assert.Contains(t, text, "阿米娅", "non-ASCII must not be escaped")
	assert.Contains(t, text, "<Doctor>", "HTML characters must not be escaped")
	assert.Contains(t, text, "\n    {", "expected 4-space indentation")

	var idx []map[string]string
	require.NoError(t, json.Unmarshal(raw, &idx))
	require.Len(t, idx, 1)
	assert.Equal(t, map[string]string{"id": id, "name": "阿米娅", "alias": "<Doctor>", "tags": "术士.近卫"}, idx[0])

	raw, err = os.ReadFile(s.detailsPath)
	require.NoError(t, err)
	var det map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &det))
	require.Contains(t, det, id)
	assert.Equal(t, "a & b", det[id]["bio"])
	assert.Equal(t, []interface{}{"术士", "近卫"}, det[id]["full_tags"])
	assert.Equal(t, "images/"+id+".png", det[id]["imagepath"])
}

func TestDanglingIndexRecordReadsNotFound(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index_file.json"),
		[]byte(`[{"id":"E1","name":"Amiya","alias":"","tags":"a.b"}]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "details_file.json"), []byte(`{}`), 0o644))
	s := openTestStore(t, dir, false)
	ctx := context.Background()

	_, err := s.Read(ctx, "E1")
	assert.True(t, errors.Is(err, model.ErrNotFound))

	hits, err := s.SearchRecords(ctx, "amiya")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Nil(t, hits[0].Details)

	// update still edits the index; no details to re-derive
	tags, bio := "c", "ignored"
	found, err := s.Update(ctx, "E1", model.CharacterUpdate{Tags: &tags, Bio: &bio})
	require.NoError(t, err)
	assert.True(t, found)

	all, err := s.Search(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "c", all[0].Tags)

	raw, err := os.ReadFile(filepath.Join(dir, "details_file.json"))
	require.NoError(t, err)
	var det map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &det))
	assert.NotContains(t, det, "E1")
	_, err = s.Read(ctx, "E1")
	assert.True(t, errors.Is(err, model.ErrNotFound))

	removed, err := s.Delete(ctx, "E1")
	require.NoError(t, err)
	assert.True(t, removed)
	all, err = s.Search(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestDeleteRemovesDuplicates(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index_file.json"), []byte(`[
		{"id":"E1","name":"a","alias":"","tags":""},
		{"id":"E2","name":"b","alias":"","tags":""},
		{"id":"E1","name":"c","alias":"","tags":""}
	]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "details_file.json"),
		[]byte(`{"E1":{"bio":"","full_tags":[""],"imagepath":"images/E1.png"}}`), 0o644))
	s := openTestStore(t, dir, false)
	ctx := context.Background()

	removed, err := s.Delete(ctx, "E1")
	require.NoError(t, err)
	assert.True(t, removed)

	all, err := s.Search(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "E2", all[0].ID)
}

func TestTolerantLoadTreatsCorruptAsEmpty(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir, false)
	ctx := context.Background()
	require.NoError(t, os.WriteFile(s.indexPath, []byte("{not json"), 0o644))

	all, err := s.Search(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)

	id, err := s.Add(ctx, model.NewCharacter{Name: "Amiya"})
	require.NoError(t, err)

	rec, err := s.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Amiya", rec.Name)

	backups, err := filepath.Glob(s.indexPath + ".corrupt-*")
	require.NoError(t, err)
	require.Len(t, backups, 1)
	b, err := os.ReadFile(backups[0])
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(b))
}

func TestNullDocumentsAreEmpty(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir, true)
	require.NoError(t, os.WriteFile(s.indexPath, []byte("null"), 0o644))
	require.NoError(t, os.WriteFile(s.detailsPath, []byte(""), 0o644))

	ctx := context.Background()
	all, err := s.Search(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = s.Add(ctx, model.NewCharacter{Name: "x"})
	require.NoError(t, err)
}

func TestStrictLoadReportsCorruption(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir, true)
	ctx := context.Background()
	require.NoError(t, os.WriteFile(s.detailsPath, []byte("[1,2"), 0o644))

	_, err := s.Search(ctx, "")
	assert.True(t, errors.Is(err, model.ErrCorrupt), "got %v", err)

	_, err = s.Add(ctx, model.NewCharacter{Name: "Amiya"})
	assert.True(t, errors.Is(err, model.ErrCorrupt), "got %v", err)

	b, err := os.ReadFile(s.detailsPath)
	require.NoError(t, err)
	assert.Equal(t, "[1,2", string(b), "strict mode must not overwrite a corrupt file")
}

func TestSaveAttemptsBothFiles(t *testing.T) {
	s := openTestStore(t, t.TempDir(), false)
	ctx := context.Background()
	boom := errors.New("disk full")

	s.writeFile = func(path string, v interface{}) error {
		if path == s.indexPath {
			return boom
		}
		return writeJSONAtomic(path, v)
	}
	_, err := s.Add(ctx, model.NewCharacter{Name: "Amiya", Tags: "a"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))

	// details were still written
	raw, err := os.ReadFile(s.detailsPath)
	require.NoError(t, err)
	var det map[string]model.DetailsRecord
	require.NoError(t, json.Unmarshal(raw, &det))
	assert.Len(t, det, 1)

	s.writeFile = func(path string, v interface{}) error {
		if path == s.detailsPath {
			return boom
		}
		return writeJSONAtomic(path, v)
	}
	_, err = s.Add(ctx, model.NewCharacter{Name: "Texas"})
	assert.True(t, errors.Is(err, boom))

	s.writeFile = writeJSONAtomic
	all, err := s.Search(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Texas", all[0].Name)
}

func TestConcurrentAddsLoseNothing(t *testing.T) {
	s := openTestStore(t, t.TempDir(), false)
	ctx := context.Background()

	const workers, perWorker = 8, 10
	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := s.Add(ctx, model.NewCharacter{Name: fmt.Sprintf("w%d-%d", w, i)}); err != nil {
					errs <- err
				}
			}
		}(w)
	}

	// readers run alongside and must never see a torn pair
	stop := make(chan struct{})
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			select {
			case <-stop:
				return
			default:
			}
			hits, err := s.SearchRecords(ctx, "")
			if err != nil {
				errs <- err
				return
			}
			for _, h := range hits {
				if h.Details == nil {
					errs <- fmt.Errorf("torn snapshot: %s has no details", h.Index.ID)
					return
				}
			}
		}
	}()

	wg.Wait()
	close(stop)
	<-readerDone
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent op failed: %v", err)
	}

	all, err := s.Search(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, workers*perWorker)
}

func TestTwoStoresShareFiles(t *testing.T) {
	dir := t.TempDir()
	a := openTestStore(t, dir, false)
	b := openTestStore(t, dir, false)
	ctx := context.Background()

	id, err := a.Add(ctx, model.NewCharacter{Name: "Amiya"})
	require.NoError(t, err)
	rec, err := b.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Amiya", rec.Name)

	removed, err := b.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, removed)
	_, err = a.Read(ctx, id)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestLockTimeout(t *testing.T) {
	s := openTestStore(t, t.TempDir(), false)
	s.lockTimeout = 50 * time.Millisecond

	other, err := Open(context.Background(), Options{
		IndexPath:   s.indexPath,
		DetailsPath: s.detailsPath,
		Logger:      zerolog.Nop(),
	})
	require.NoError(t, err)
	unlock, err := other.lockWrite(context.Background())
	require.NoError(t, err)
	defer unlock()

	_, err = s.Search(context.Background(), "")
	assert.True(t, errors.Is(err, ErrLockTimeout), "got %v", err)
}

func TestInProcessLockTimeout(t *testing.T) {
	s := openTestStore(t, t.TempDir(), false)
	s.lockTimeout = 50 * time.Millisecond

	unlock, err := s.lockWrite(context.Background())
	require.NoError(t, err)

	start := time.Now()
	_, err = s.Search(context.Background(), "")
	assert.True(t, errors.Is(err, ErrLockTimeout), "got %v", err)
	assert.Less(t, time.Since(start), time.Second)

	tags := "x"
	_, err = s.Update(context.Background(), "missing", model.CharacterUpdate{Tags: &tags})
	assert.True(t, errors.Is(err, ErrLockTimeout), "got %v", err)

	// a cancelled caller is not reported as a lock timeout
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Search(ctx, "")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrLockTimeout))

	unlock()
	_, err = s.Search(context.Background(), "")
	assert.NoError(t, err)
}

func TestHealthPing(t *testing.T) {
	s := openTestStore(t, t.TempDir(), false)
	require.NoError(t, s.HealthPing(context.Background()))

	require.NoError(t, os.Remove(s.detailsPath))
	assert.Error(t, s.HealthPing(context.Background()))
}
