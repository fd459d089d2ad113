package oauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yapweiyih/auth-agent/internal/models"
)

// FileCache persists the latest token record at a fixed local path so the
// interactive flow is not repeated on every run. Last writer wins, which is
// fine since concurrent runs produce equally valid tokens.
type FileCache struct {
	path string
}

func NewFileCache(path string) *FileCache {
	return &FileCache{path: path}
}

// Load reads the cached record. A missing file is not an error, it returns
// (nil, nil) to signal "absent".
func (c *FileCache) Load() (*models.TokenRecord, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error while reading token cache %s: %w", c.path, err)
	}

	var rec models.TokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("error while decoding token cache %s: %w", c.path, err)
	}

	return &rec, nil
}

// Save overwrites the cache with the given record, readable by owner only
func (c *FileCache) Save(rec models.TokenRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("error while encoding token record: %w", err)
	}

	// Write-then-rename keeps a crashed save from truncating the old record
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("error while writing token cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("error while replacing token cache: %w", err)
	}

	return nil
}

// Path returns the cache file location
func (c *FileCache) Path() string {
	return filepath.Clean(c.path)
}
