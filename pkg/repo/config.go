package repo

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/odvcencio/plumb/pkg/object"
)

// ConfigFileName is the repository-local settings file inside the metadata
// directory.
const ConfigFileName = "config.toml"

// Config stores repository-local settings.
type Config struct {
	User UserConfig `toml:"user"`
	Core CoreConfig `toml:"core"`
}

// UserConfig is the default identity recorded in commits.
type UserConfig struct {
	Name  string `toml:"name,omitempty"`
	Email string `toml:"email,omitempty"`
}

// CoreConfig tunes the object store.
type CoreConfig struct {
	// Compression is the zlib level for new objects, -1 through 9.
	Compression int `toml:"compression"`
	// HeaderCache is the number of object headers kept in memory; 0 disables
	// the cache.
	HeaderCache int `toml:"header_cache"`
}

// DefaultConfig returns the settings used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Core: CoreConfig{
			Compression: object.DefaultCompressionLevel,
			HeaderCache: 256,
		},
	}
}

// ReadConfig reads <gitDir>/config.toml. Keys missing from the file keep
// their defaults; a missing file yields DefaultConfig.
func ReadConfig(gitDir string) (*Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(gitDir, ConfigFileName)
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Core.Compression < -1 || c.Core.Compression > 9 {
		return fmt.Errorf("core.compression %d out of range -1..9", c.Core.Compression)
	}
	if c.Core.HeaderCache < 0 {
		return fmt.Errorf("core.header_cache must not be negative")
	}
	return nil
}

// WriteConfig atomically writes <gitDir>/config.toml.
func WriteConfig(gitDir string, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("write config: encode: %w", err)
	}

	tmp, err := os.CreateTemp(gitDir, ".config-tmp-*")
	if err != nil {
		return fmt.Errorf("write config: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: close: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(gitDir, ConfigFileName)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: rename: %w", err)
	}
	return nil
}

// WriteConfig persists cfg for r and makes it the active config. The object
// store picks up new core settings the next time the repository is opened.
func (r *Repo) WriteConfig(cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := WriteConfig(r.GitDir, cfg); err != nil {
		return err
	}
	r.Config = cfg
	return nil
}
