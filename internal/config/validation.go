package config

import (
	"path/filepath"

	ferrors "git.home.luguber.info/inful/upmusync/internal/foundation/errors"
	"git.home.luguber.info/inful/upmusync/internal/snapshot"
)

// Validate checks cfg after defaults have been applied.
func Validate(cfg *Config) error {
	backend, err := ParseStoreBackend(string(cfg.Store.Backend))
	if err != nil {
		return ferrors.ConfigError("invalid store backend").WithCause(err).Build()
	}
	cfg.Store.Backend = backend

	if err := cfg.Paths.Validate(); err != nil {
		return err
	}

	if cfg.Store.Mongo.Timeout < 0 {
		return ferrors.ConfigError("store.mongo.timeout cannot be negative").Build()
	}
	return nil
}

// Validate checks that the desired configuration and the previous snapshot
// are distinct files in the same encoding. The INI encoding stores every
// scalar as a string, so a YAML record never equals its INI round trip.
func (p PathsConfig) Validate() error {
	desired, err := filepath.Abs(p.Desired)
	if err != nil {
		return ferrors.ConfigError("invalid desired path").WithCause(err).Build()
	}
	previous, err := filepath.Abs(p.Previous)
	if err != nil {
		return ferrors.ConfigError("invalid previous path").WithCause(err).Build()
	}
	if desired == previous {
		return ferrors.ConfigError("desired configuration and previous snapshot must be different files").
			WithContext("path", desired).
			Build()
	}
	if df, pf := snapshot.FormatFor(desired), snapshot.FormatFor(previous); df != pf {
		return ferrors.ConfigError("desired configuration and previous snapshot must use the same format").
			WithContext("desired", string(df)).
			WithContext("previous", string(pf)).
			Build()
	}
	return nil
}
