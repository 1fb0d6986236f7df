// Package config provides the Session Store and settings persistence.
package config

import (
	"os"
	"path/filepath"

	"github.com/easyfiletransfer/eft/internal/constants"
)

// ConfigDirectory returns the directory holding the settings file.
//
// Locations:
//   - Windows: %AppData%\eft
//   - macOS: ~/Library/Application Support/eft
//   - Unix: ~/.config/eft
func ConfigDirectory() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), constants.AppName)
		}
		return filepath.Join(homeDir, ".config", constants.AppName)
	}
	return filepath.Join(configDir, constants.AppName)
}

// DefaultSettingsPath returns the default path for the settings file.
func DefaultSettingsPath() string {
	return filepath.Join(ConfigDirectory(), constants.SettingsFileName)
}

// DefaultStagingDirectory returns the scratch directory downloads are staged in.
func DefaultStagingDirectory() string {
	return filepath.Join(os.TempDir(), constants.StagingDirName)
}
