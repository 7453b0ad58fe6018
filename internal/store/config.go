package store

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/mepuka/bsky-cli-sub001/internal/types"
)

// LoadConfig reads a store's store.toml, falling back to
// types.DefaultStoreConfig() if the file does not yet exist.
func LoadConfig(path string) (types.StoreConfig, error) {
	cfg := types.DefaultStoreConfig()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("store: read config %s: %w", path, err)
	}
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return cfg, fmt.Errorf("store: parse config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path, creating or overwriting it.
func SaveConfig(path string, cfg types.StoreConfig) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("store: create config %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("store: write config %s: %w", path, err)
	}
	return nil
}
