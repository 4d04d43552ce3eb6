package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/pflag"
	"go.yaml.in/yaml/v3"
)

// A Config is the configuration of the demtile command. Values are taken from
// the config file, then DEMTILE_* environment variables, then flags.
type Config struct {
	Directory           string    `yaml:"directory"`
	Format              string    `yaml:"format"`
	UTMZone             int       `yaml:"utmZone"`
	CacheSize           int       `yaml:"cacheSize"`
	NeighborEdgeLoading bool      `yaml:"neighborEdgeLoading"`
	SpikeFilter         bool      `yaml:"spikeFilter"`
	Listen              string    `yaml:"listen"`
	Log                 LogConfig `yaml:"log"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
}

func defaultConfig() Config {
	return Config{
		Format:      "IECA",
		CacheSize:   8,
		SpikeFilter: true,
		Listen:      ":8080",
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}

// loadConfig returns the default config overlaid with filename, if set.
func loadConfig(filename string) (Config, error) {
	config := defaultConfig()
	if filename == "" {
		return config, nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("can't load config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("%s: can't unmarshal config file: %w", filename, err)
	}
	return config, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("DEMTILE_DIR"); v != "" {
		c.Directory = v
	}
	if v := getenv("DEMTILE_FORMAT"); v != "" {
		c.Format = v
	}
	if v := getenv("DEMTILE_UTM_ZONE"); v != "" {
		utmZone, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DEMTILE_UTM_ZONE: %w", err)
		}
		c.UTMZone = utmZone
	}
	if v := getenv("DEMTILE_CACHE_SIZE"); v != "" {
		cacheSize, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DEMTILE_CACHE_SIZE: %w", err)
		}
		c.CacheSize = cacheSize
	}
	if v := getenv("DEMTILE_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := getenv("DEMTILE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("DEMTILE_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	return nil
}

// applyFlags overrides c with the flags that were set explicitly.
func (c *Config) applyFlags(flags *pflag.FlagSet) {
	if flags.Changed("dir") {
		c.Directory, _ = flags.GetString("dir")
	}
	if flags.Changed("format") {
		c.Format, _ = flags.GetString("format")
	}
	if flags.Changed("utm-zone") {
		c.UTMZone, _ = flags.GetInt("utm-zone")
	}
	if flags.Changed("cache-size") {
		c.CacheSize, _ = flags.GetInt("cache-size")
	}
	if flags.Changed("neighbor-edge-loading") {
		c.NeighborEdgeLoading, _ = flags.GetBool("neighbor-edge-loading")
	}
	if flags.Changed("spike-filter") {
		c.SpikeFilter, _ = flags.GetBool("spike-filter")
	}
	if flags.Changed("listen") {
		c.Listen, _ = flags.GetString("listen")
	}
	if flags.Changed("log-level") {
		c.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-file") {
		c.Log.File, _ = flags.GetString("log-file")
	}
}
