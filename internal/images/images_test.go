package images

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndRemove(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	s, err := New(dir, 16)
	require.NoError(t, err)

	require.NoError(t, s.Save("a1b2c3d4", strings.NewReader("png-bytes")))
	got, err := os.ReadFile(filepath.Join(dir, "a1b2c3d4.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(got))

	// overwrite
	require.NoError(t, s.Save("a1b2c3d4", strings.NewReader("v2")))
	got, _ = os.ReadFile(filepath.Join(dir, "a1b2c3d4.png"))
	assert.Equal(t, "v2", string(got))

	require.NoError(t, s.Remove("a1b2c3d4"))
	assert.NoFileExists(t, filepath.Join(dir, "a1b2c3d4.png"))
	require.NoError(t, s.Remove("a1b2c3d4"), "absent file tolerated")
}

func TestSaveTooLarge(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, 4)
	require.NoError(t, err)

	err = s.Save("a1b2c3d4", strings.NewReader("12345"))
	assert.True(t, errors.Is(err, ErrTooLarge))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no partial or temp file left behind")

	require.NoError(t, s.Save("a1b2c3d4", strings.NewReader("1234")), "exactly the limit is accepted")
}

func TestUnsafeNames(t *testing.T) {
	s, err := New(t.TempDir(), 16)
	require.NoError(t, err)
	for _, id := range []string{"", "../x", "a/b", "a.b", strings.Repeat("a", 65)} {
		_, err := s.Path(id)
		assert.True(t, errors.Is(err, ErrInvalidName), id)
		assert.True(t, errors.Is(s.Save(id, strings.NewReader("x")), ErrInvalidName), id)
	}
}

func TestHealthPing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "img")
	s, err := New(dir, 16)
	require.NoError(t, err)
	require.NoError(t, s.HealthPing(context.Background()))

	require.NoError(t, os.RemoveAll(dir))
	assert.Error(t, s.HealthPing(context.Background()))
}

func TestNewValidates(t *testing.T) {
	_, err := New("", 1)
	assert.Error(t, err)
	_, err = New(t.TempDir(), 0)
	assert.Error(t, err)
}
