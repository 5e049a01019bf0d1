package factory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/charstore/charstore/internal/config"
	storepkg "github.com/charstore/charstore/internal/store"
	"github.com/charstore/charstore/internal/store/jsonfile"
	"github.com/charstore/charstore/internal/store/sqlstore"
)

// NewStore returns the store.Store selected by cfg.DBDriver.
func NewStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storepkg.Store, error) {
	switch cfg.DBDriver {
	case config.DriverJSON, "":
		return jsonfile.Open(ctx, jsonfile.Options{
			IndexPath:   cfg.IndexFile,
			DetailsPath: cfg.DetailsFile,
			LockPath:    cfg.LockFile,
			Strict:      cfg.StrictLoad,
			LockTimeout: cfg.LockTimeout(),
			Logger:      log,
		})

	case config.DriverSQLite:
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("CHARSTORE_SQLITE_PATH is required when DB_DRIVER=sqlite")
		}
		db, err := sqlstore.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		s, err := sqlstore.New(ctx, db, sqlstore.SQLite, log)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return s, nil

	case config.DriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("CHARSTORE_POSTGRES_DSN is required when DB_DRIVER=postgres")
		}
		db, err := sqlstore.OpenPostgres(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		s, err := sqlstore.New(ctx, db, sqlstore.Postgres, log)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown DB_DRIVER: %s", cfg.DBDriver)
}
