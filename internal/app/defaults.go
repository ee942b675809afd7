package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment variables consulted by the CLI.
const (
	EnvConfigPath = "SV_CONFIG_PATH"
	EnvHome       = "SV_HOME"
	EnvIdentity   = "SV_IDENTITY"
	EnvPassphrase = "SV_PASSPHRASE"
	EnvLogLevel   = "SV_LOG_LEVEL"
)

// Defaults are the paths used when no flag overrides them.
type Defaults struct {
	ConfigPath string // $SV_CONFIG_PATH or ~/.config/sv.toml
	BaseDir    string // $SV_HOME or ~/.local/share/sv
	LogDir     string // <BaseDir>/log
}

// GetDefaults resolves the default paths from the environment and the
// user's home directory.
func GetDefaults() (*Defaults, error) {
	configPath := os.Getenv(EnvConfigPath)
	baseDir := os.Getenv(EnvHome)

	if configPath == "" || baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine home directory: %w", err)
		}
		if configPath == "" {
			configPath = filepath.Join(home, ".config", "sv.toml")
		}
		if baseDir == "" {
			baseDir = filepath.Join(home, ".local", "share", "sv")
		}
	}

	return &Defaults{
		ConfigPath: configPath,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
	}, nil
}

// ResolveIdentity returns flagValue, or $SV_IDENTITY when the flag is empty.
func ResolveIdentity(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if id := os.Getenv(EnvIdentity); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("no identity: pass --as or set %s", EnvIdentity)
}
