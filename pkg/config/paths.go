package config

import (
	"path/filepath"

	"github.com/spf13/viper"
)

// BaseSettingsDir returns the directory of the settings file in use, or the
// project-local .markstream directory when no file was read
func BaseSettingsDir() string {
	// Check if config.path is explicitly set (for testing)
	if configPath := viper.GetString("config.path"); configPath != "" {
		return configPath
	}

	if currentConfig := viper.ConfigFileUsed(); currentConfig != "" {
		return filepath.Dir(currentConfig)
	}
	return ".markstream"
}

// BuildSettingsPath resolves target relative to the settings directory
func BuildSettingsPath(target string) string {
	return filepath.Join(BaseSettingsDir(), target)
}
