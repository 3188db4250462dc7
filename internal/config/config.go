// Package config loads the CLI's configuration using Viper, the way the
// rest of the dependency pack wires a config file, env overrides, and
// defaults together.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds settings for the myfs CLI, unmarshaled from an optional
// myfs.yaml (searched in ., $HOME, then /etc/myfs), environment variables prefixed
// MYFS_, and flag-provided values layered on top by cmd/root.go.
type Config struct {
	VolumePath   string `mapstructure:"volume_path"`
	MetadataPath string `mapstructure:"metadata_path"`
	OTPWindow    int    `mapstructure:"otp_window_seconds"`
	OTPAttempts  int    `mapstructure:"otp_attempts"`
}

// Load reads configuration using Viper, falling back to defaults when no
// config file is present.
func Load() (*Config, error) {
	viper.SetConfigName("myfs")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath("/etc/myfs")

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	viper.SetDefault("volume_path", filepath.Join(home, "MyFS.dat"))
	viper.SetDefault("metadata_path", filepath.Join(home, "MyFS.meta"))
	viper.SetDefault("otp_window_seconds", 20)
	viper.SetDefault("otp_attempts", 3)

	viper.SetEnvPrefix("MYFS")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}
