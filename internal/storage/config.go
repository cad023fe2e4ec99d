package storage

import (
	"github.com/Kurukshetran/nl2sql/internal/config"
)

// NewDuckDBStoreFromConfig opens the index configured for the digest artifacts
func NewDuckDBStoreFromConfig(cfg *config.CacheConfig) (*DuckDBStore, error) {
	return NewDuckDBStore(cfg.IndexPath)
}
