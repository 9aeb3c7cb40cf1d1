package app

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	envConfigPath = "DIRSNAP_CONFIG_PATH"
	envHome       = "DIRSNAP_HOME"
)

// Paths holds the locations dirsnap uses before a config file is read.
type Paths struct {
	ConfigPath string
	BaseDir    string
	LogDir     string
}

// Map returns the paths keyed the way `config list` prints them.
func (p Paths) Map() map[string]string {
	return map[string]string{
		"config_path": p.ConfigPath,
		"base_dir":    p.BaseDir,
		"log_dir":     p.LogDir,
	}
}

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - DIRSNAP_CONFIG_PATH: config file location (default: ~/.config/dirsnap.toml)
//   - DIRSNAP_HOME: base directory for dirsnap data (default: ~/.local/share/dirsnap)
func GetDefaults() (Paths, error) {
	configPath, err := fromEnvOrHome(envConfigPath, ".config", "dirsnap.toml")
	if err != nil {
		return Paths{}, err
	}
	baseDir, err := fromEnvOrHome(envHome, ".local", "share", "dirsnap")
	if err != nil {
		return Paths{}, err
	}
	return Paths{
		ConfigPath: configPath,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
	}, nil
}

func fromEnvOrHome(env string, elem ...string) (string, error) {
	if path := os.Getenv(env); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append([]string{homeDir}, elem...)...), nil
}
