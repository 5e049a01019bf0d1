package factory

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charstore/charstore/internal/config"
	"github.com/charstore/charstore/internal/model"
	"github.com/charstore/charstore/internal/store/jsonfile"
	"github.com/charstore/charstore/internal/store/sqlstore"
)

func TestNewStore_JSON(t *testing.T) {
	cfg := config.NewForTesting(t.TempDir())
	s, err := NewStore(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	_, ok := s.(*jsonfile.Store)
	assert.True(t, ok)
	assert.FileExists(t, cfg.IndexFile)
	assert.FileExists(t, cfg.DetailsFile)
}

func TestNewStore_SQLite(t *testing.T) {
	cfg := config.NewForTesting(t.TempDir())
	cfg.DBDriver = config.DriverSQLite
	s, err := NewStore(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	_, ok := s.(*sqlstore.Store)
	assert.True(t, ok)

	id, err := s.Add(context.Background(), model.NewCharacter{Name: "Amiya"})
	require.NoError(t, err)
	rec, err := s.Read(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Amiya", rec.Name)
}

func TestNewStore_Errors(t *testing.T) {
	cfg := config.NewForTesting(t.TempDir())
	cfg.DBDriver = "mongo"
	_, err := NewStore(context.Background(), cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "unknown DB_DRIVER")

	cfg.DBDriver = config.DriverPostgres
	cfg.PostgresDSN = ""
	_, err = NewStore(context.Background(), cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "POSTGRES_DSN")
}
