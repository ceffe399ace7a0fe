package metastore

import (
	"context"

	"git.home.luguber.info/inful/upmusync/internal/config"
	ferrors "git.home.luguber.info/inful/upmusync/internal/foundation/errors"
)

// Open creates the store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case config.StoreMongo, "":
		store, err := NewMongoStore(MongoOptions{
			Addr:       cfg.Mongo.Addr,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
			Timeout:    cfg.Mongo.Timeout,
		})
		if err != nil {
			return nil, ferrors.StoreError("open mongo store").
				WithCause(err).
				WithContext("addr", cfg.Mongo.Addr).
				Fatal().
				Build()
		}
		return store, nil
	case config.StoreSQLite:
		store, err := NewSQLiteStore(cfg.SQLite.Path)
		if err != nil {
			return nil, ferrors.StoreError("open sqlite store").
				WithCause(err).
				WithContext("path", cfg.SQLite.Path).
				Fatal().
				Build()
		}
		return store, nil
	case config.StoreMemory:
		return NewMemoryStore(), nil
	default:
		return nil, ferrors.ConfigError("unknown store backend").
			WithContext("backend", string(cfg.Backend)).
			Build()
	}
}
