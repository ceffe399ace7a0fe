package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// EnvMongoAddr overrides store.mongo.addr.
const EnvMongoAddr = "MONGO_ADDR"

// envFiles are read in order; values already present in the process
// environment are never overwritten.
var envFiles = []string{".env", ".env.local"}

func loadEnvFiles() {
	for _, path := range envFiles {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			slog.Warn("Failed to load environment file", "path", path, "error", err)
			continue
		}
		slog.Debug("Loaded environment file", "path", path)
	}
}

func applyEnv(cfg *Config) {
	if addr := os.Getenv(EnvMongoAddr); addr != "" {
		cfg.Store.Mongo.Addr = addr
	}
}
