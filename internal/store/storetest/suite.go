// Package storetest is a backend-agnostic compliance suite for store.Store.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charstore/charstore/internal/ids"
	"github.com/charstore/charstore/internal/model"
	"github.com/charstore/charstore/internal/store"
)

// Run exercises the store contract. makeStore must return a clean, isolated store.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	t.Run("RoundTrip", func(t *testing.T) { testRoundTrip(t, makeStore(t)) })
	t.Run("Scenario", func(t *testing.T) { testScenario(t, makeStore(t)) })
	t.Run("UniqueIDs", func(t *testing.T) { testUniqueIDs(t, makeStore(t)) })
	t.Run("IdempotentDelete", func(t *testing.T) { testIdempotentDelete(t, makeStore(t)) })
	t.Run("DeleteLeavesOthers", func(t *testing.T) { testDeleteLeavesOthers(t, makeStore(t)) })
	t.Run("SearchContainment", func(t *testing.T) { testSearch(t, makeStore(t)) })
	t.Run("SearchRecords", func(t *testing.T) { testSearchRecords(t, makeStore(t)) })
	t.Run("PartialUpdate", func(t *testing.T) { testPartialUpdate(t, makeStore(t)) })
	t.Run("UpdateMissing", func(t *testing.T) { testUpdateMissing(t, makeStore(t)) })
	t.Run("EmptyStore", func(t *testing.T) { testEmptyStore(t, makeStore(t)) })
}

func strPtr(s string) *string { return &s }

func add(t *testing.T, s store.Store, name, alias, tags, bio string) string {
	t.Helper()
	id, err := s.Add(context.Background(), model.NewCharacter{Name: name, Alias: alias, Tags: tags, Bio: bio})
	require.NoError(t, err)
	require.True(t, ids.Valid(id), "unexpected id shape %q", id)
	return id
}

func testRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	id := add(t, s, "Texas", "Penguin", "vanguard..courier", "quiet <b>&</b> reliable")

	rec, err := s.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, "Texas", rec.Name)
	assert.Equal(t, "Penguin", rec.Alias)
	assert.Equal(t, "vanguard..courier", rec.Tags)
	assert.Equal(t, "quiet <b>&</b> reliable", rec.Bio)
	assert.Equal(t, []string{"vanguard", "", "courier"}, rec.FullTags)
	assert.Equal(t, model.ImagePath(id), rec.ImagePath)
}

func testScenario(t *testing.T, s store.Store) {
	ctx := context.Background()
	id := add(t, s, "Amiya", "Doctor", "sorcerer.guard", "leader bio")

	rec, err := s.Read(ctx, id)
	require.NoError(t, err)
	want := model.Record{
		IndexRecord:   model.IndexRecord{ID: id, Name: "Amiya", Alias: "Doctor", Tags: "sorcerer.guard"},
		DetailsRecord: model.DetailsRecord{Bio: "leader bio", FullTags: []string{"sorcerer", "guard"}, ImagePath: "images/" + id + ".png"},
	}
	assert.Equal(t, want, *rec)

	removed, err := s.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = s.Read(ctx, id)
	assert.True(t, errors.Is(err, model.ErrNotFound), "expected ErrNotFound, got %v", err)
}

func testUniqueIDs(t *testing.T, s store.Store) {
	ctx := context.Background()
	const n = 200
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		id := add(t, s, fmt.Sprintf("c%d", i), "", "", "")
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	all, err := s.Search(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, n)
	for _, r := range all {
		require.True(t, seen[r.ID])
	}
}

func testIdempotentDelete(t *testing.T, s store.Store) {
	ctx := context.Background()
	id := add(t, s, "Lappland", "Wolf", "guard", "bio")
	other := add(t, s, "Texas", "Penguin", "vanguard", "bio")

	removed, err := s.Delete(ctx, id)
	require.NoError(t, err)
	require.True(t, removed)

	before, err := s.SearchRecords(ctx, "")
	require.NoError(t, err)

	removed, err = s.Delete(ctx, id)
	require.NoError(t, err)
	assert.False(t, removed)

	after, err := s.SearchRecords(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	require.Len(t, after, 1)
	assert.Equal(t, other, after[0].Index.ID)

	removed, err = s.Delete(ctx, "nope0000")
	require.NoError(t, err)
	assert.False(t, removed)
}

func testDeleteLeavesOthers(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := add(t, s, "A", "a", "x.y", "bio a")
	b := add(t, s, "B", "b", "y.z", "bio b")
	c := add(t, s, "C", "c", "z", "bio c")

	recA, err := s.Read(ctx, a)
	require.NoError(t, err)
	recC, err := s.Read(ctx, c)
	require.NoError(t, err)

	removed, err := s.Delete(ctx, b)
	require.NoError(t, err)
	require.True(t, removed)

	gotA, err := s.Read(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, recA, gotA)
	gotC, err := s.Read(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, recC, gotC)

	all, err := s.Search(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a, all[0].ID)
	assert.Equal(t, c, all[1].ID)
}

func testSearch(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := add(t, s, "Amiya", "Doctor", "sorcerer.guard", "")
	b := add(t, s, "Texas", "Penguin", "vanguard", "")
	c := add(t, s, "Lappland", "Wolf", "guard.sorcerer", "")

	all, err := s.Search(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{a, b, c}, []string{all[0].ID, all[1].ID, all[2].ID})

	hits, err := s.Search(ctx, "SORCERER")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, a, hits[0].ID)
	assert.Equal(t, c, hits[1].ID)

	hits, err = s.Search(ctx, "penguin")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, model.IndexRecord{ID: b, Name: "Texas", Alias: "Penguin", Tags: "vanguard"}, hits[0])

	// fields are joined with a single space
	hits, err = s.Search(ctx, "doctor sorcerer")
	require.NoError(t, err)
	require.Len(t, hits, 1)

	hits, err = s.Search(ctx, "caster")
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func testSearchRecords(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := add(t, s, "Amiya", "Doctor", "sorcerer.guard", "leader")
	add(t, s, "Texas", "Penguin", "vanguard", "courier")

	got, err := s.SearchRecords(ctx, "amiya")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a, got[0].Index.ID)
	require.NotNil(t, got[0].Details)
	assert.Equal(t, "leader", got[0].Details.Bio)
	assert.Equal(t, []string{"sorcerer", "guard"}, got[0].Details.FullTags)
}

func testPartialUpdate(t *testing.T, s store.Store) {
	ctx := context.Background()
	id := add(t, s, "Amiya", "Doctor", "sorcerer.guard", "leader bio")

	found, err := s.Update(ctx, id, model.CharacterUpdate{Tags: strPtr("x.y")})
	require.NoError(t, err)
	require.True(t, found)

	rec, err := s.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Amiya", rec.Name)
	assert.Equal(t, "Doctor", rec.Alias)
	assert.Equal(t, "leader bio", rec.Bio)
	assert.Equal(t, "x.y", rec.Tags)
	assert.Equal(t, []string{"x", "y"}, rec.FullTags)
	assert.Equal(t, model.ImagePath(id), rec.ImagePath)

	found, err = s.Update(ctx, id, model.CharacterUpdate{Name: strPtr("Amiya II"), Bio: strPtr("")})
	require.NoError(t, err)
	require.True(t, found)

	rec, err = s.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Amiya II", rec.Name)
	assert.Equal(t, "", rec.Bio)
	assert.Equal(t, []string{"x", "y"}, rec.FullTags)

	hits, err := s.Search(ctx, "amiya ii")
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func testUpdateMissing(t *testing.T, s store.Store) {
	ctx := context.Background()
	id := add(t, s, "Amiya", "Doctor", "sorcerer", "bio")

	found, err := s.Update(ctx, "missing0", model.CharacterUpdate{Name: strPtr("x")})
	require.NoError(t, err)
	assert.False(t, found)

	rec, err := s.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Amiya", rec.Name)
}

func testEmptyStore(t *testing.T, s store.Store) {
	ctx := context.Background()
	all, err := s.Search(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = s.Read(ctx, "00000000")
	assert.True(t, errors.Is(err, model.ErrNotFound))

	require.NoError(t, s.HealthPing(ctx))
}
