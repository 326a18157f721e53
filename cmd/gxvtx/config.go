package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the gxvtx configuration file (~/.config/gxvtx/config.yaml).
// Pointer fields distinguish "not set" from zero values.
type Config struct {
	RAMImage        string `yaml:"ram_image"`
	RAMSize         *int64 `yaml:"ram_size"`
	WatchRAM        *bool  `yaml:"watch_ram"`
	PrefetchWorkers *int64 `yaml:"prefetch_workers"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	ServerAddress string `yaml:"server_address"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "gxvtx", "config.yaml")
}

func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyRAMConfig applies config file defaults to the RAM flags that were not
// set on the command line.
func applyRAMConfig(c *cli.Command, cfg Config) {
	if cfg.RAMImage != "" && !c.IsSet("ram") {
		ramImage = cfg.RAMImage
	}
	if cfg.RAMSize != nil && !c.IsSet("ram-size") {
		ramSize = *cfg.RAMSize
	}
	if cfg.PrefetchWorkers != nil && !c.IsSet("prefetch-workers") {
		prefetchWorkers = *cfg.PrefetchWorkers
	}
}

func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	applyRAMConfig(c, cfg)
	if cfg.WatchRAM != nil && !c.IsSet("watch-ram") {
		watchRAM = *cfg.WatchRAM
	}
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}

// LoadConfig reads the config file. Returns a zero Config if the file doesn't exist.
func LoadConfig() Config {
	return loadConfigFrom(configPath())
}

func loadConfigFrom(path string) Config {
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}
