package config

import "git.home.luguber.info/inful/upmusync/internal/foundation/normalization"

// StoreBackend selects the metadata store implementation.
type StoreBackend string

const (
	StoreMongo  StoreBackend = "mongo"
	StoreSQLite StoreBackend = "sqlite"
	// StoreMemory keeps documents in process; nothing survives the run.
	StoreMemory StoreBackend = "memory"
)

var storeBackendNormalizer = normalization.NewNormalizer(map[string]StoreBackend{
	"mongo":   StoreMongo,
	"mongodb": StoreMongo,
	"sqlite":  StoreSQLite,
	"memory":  StoreMemory,
}, StoreMongo)

// ParseStoreBackend normalizes raw; the empty string selects the default.
func ParseStoreBackend(raw string) (StoreBackend, error) {
	return storeBackendNormalizer.NormalizeWithError(raw)
}
