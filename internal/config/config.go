// Package config loads and persists the winvd configuration file.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

type Config struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// SettleIntervalMS is how long desktop mutations wait for the
	// shell to catch up before returning.
	SettleIntervalMS int `mapstructure:"settle_interval_ms"`

	// CacheTTLMS bounds the staleness of the window enumeration cache.
	CacheTTLMS int `mapstructure:"cache_ttl_ms"`

	// PipeName is the control endpoint: a named pipe on Windows, a
	// unix socket path elsewhere.
	PipeName string `mapstructure:"pipe_name"`
}

func Default() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		SettleIntervalMS: 150,
		CacheTTLMS:       1000,
		PipeName:         defaultPipeName(),
	}
}

func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("winvd")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir())
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("WINVD")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func Save(cfg *Config) error {
	return SaveTo(cfg, "")
}

func SaveTo(cfg *Config, cfgFile string) error {
	v := viper.New()
	v.Set("log_level", cfg.LogLevel)
	v.Set("log_format", cfg.LogFormat)
	v.Set("settle_interval_ms", cfg.SettleIntervalMS)
	v.Set("cache_ttl_ms", cfg.CacheTTLMS)
	v.Set("pipe_name", cfg.PipeName)

	var cfgPath string
	if cfgFile != "" {
		cfgPath = cfgFile
		dir := filepath.Dir(cfgPath)
		if dir != "." {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return err
			}
		}
	} else {
		cfgPath = filepath.Join(configDir(), "winvd.yaml")
		if err := os.MkdirAll(configDir(), 0700); err != nil {
			return err
		}
	}

	return v.WriteConfigAs(cfgPath)
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "winvd")
	case "darwin":
		return "/Library/Application Support/winvd"
	default:
		return "/etc/winvd"
	}
}

func defaultPipeName() string {
	if runtime.GOOS == "windows" {
		return `\\.\pipe\winvd`
	}
	return filepath.Join(os.TempDir(), "winvd.sock")
}
