package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/yndnr/prodadmin-go/internal/infra/confloader"
)

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".prodadmin", "cli.yaml")
	}
	return filepath.Join(homeDir, ".prodadmin", "cli.yaml")
}

// Load builds the configuration from defaults, the file at path, the
// PRODADMIN_* environment and overrides, in increasing priority.
// An empty path selects DefaultConfigPath, which may be absent; an
// explicit path must exist.
func Load(path string, overrides map[string]any) (*CLIConfig, error) {
	opts := []confloader.Option{}
	if path == "" {
		opts = append(opts, confloader.WithConfigFile(DefaultConfigPath()), confloader.WithOptionalFile())
	} else {
		opts = append(opts, confloader.WithConfigFile(path))
	}

	l := confloader.NewLoader(opts...)
	if err := l.LoadMap(Defaults()); err != nil {
		return nil, err
	}

	cfg := &CLIConfig{}
	if err := l.Load(cfg); err != nil {
		return nil, err
	}

	if len(overrides) > 0 {
		if err := l.LoadMap(overrides); err != nil {
			return nil, err
		}
		if err := l.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML with owner-only permissions.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
