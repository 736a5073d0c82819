// Package settings persists user preferences across runs: the last
// processed folders, the listen address, and tuning knobs.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"k8s.io/klog/v2"
)

const configName = "fotokart"

// Settings are read at startup and written back whenever the user
// changes the processed folder set.
type Settings struct {
	Folders      []string `mapstructure:"folders"`
	ListenAddr   string   `mapstructure:"listen_addr"`
	StartBrowser bool     `mapstructure:"start_browser"`
	Workers      int      `mapstructure:"workers"`
	BatchSize    int      `mapstructure:"batch_size"`
}

// DefaultDir is the per-user application config directory.
func DefaultDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return filepath.Join(dir, "fotokart"), nil
}

// Load reads settings from dir, falling back to defaults when the
// file is absent or unreadable. A missing file is created with the
// defaults so the user has something to edit.
func Load(dir string) (*Settings, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.SetDefault("listen_addr", "localhost:3001")
	v.SetDefault("start_browser", true)
	v.SetDefault("workers", 0) // 0 = one per CPU core
	v.SetDefault("batch_size", 256)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
				return nil, fmt.Errorf("mkdir %s: %w", dir, mkErr)
			}
			if wErr := v.SafeWriteConfigAs(filepath.Join(dir, configName+".yaml")); wErr != nil {
				klog.Warningf("unable to write default settings: %v", wErr)
			}
		} else {
			klog.Warningf("unreadable settings in %s, using defaults: %v", dir, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	return &s, nil
}

// Save writes the settings back to dir.
func (s *Settings) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("folders", s.Folders)
	v.Set("listen_addr", s.ListenAddr)
	v.Set("start_browser", s.StartBrowser)
	v.Set("workers", s.Workers)
	v.Set("batch_size", s.BatchSize)
	if err := v.WriteConfigAs(filepath.Join(dir, configName+".yaml")); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
