package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the mscompress configuration file
// (~/.config/mscompress/config.yaml). Pointer fields distinguish "not set"
// from zero values. Flags given on the command line always win.
type Config struct {
	Workers *int64 `yaml:"workers"`

	ArrayCompression   string   `yaml:"array_compression"`
	MetaCompression    string   `yaml:"meta_compression"`
	ZstdLevel          *int64   `yaml:"zstd_level"`
	MzTransform        string   `yaml:"mz_transform"`
	MzTolerance        *float64 `yaml:"mz_tolerance"`
	IntensityTransform string   `yaml:"intensity_transform"`
	IntensityTolerance *float64 `yaml:"intensity_tolerance"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

var fileConfig Config

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}

	return filepath.Join(dir, "mscompress", "config.yaml")
}

// loadConfig reads the config file at path. A missing file yields a zero
// Config unless the path was given explicitly.
func loadConfig(path string, explicit bool) (Config, error) {
	if path == "" {
		return Config{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}

		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

func applyWorkersConfig(c *cli.Command, cfg Config) {
	if cfg.Workers != nil && !c.IsSet("workers") {
		workers = *cfg.Workers
	}
}

// applyFormatConfig applies config file defaults to the format flags when
// the corresponding flag was not explicitly set.
func applyFormatConfig(c *cli.Command, cfg Config) {
	if cfg.ArrayCompression != "" && !c.IsSet("array-compression") {
		arrayCompression = cfg.ArrayCompression
	}
	if cfg.MetaCompression != "" && !c.IsSet("meta-compression") {
		metaCompression = cfg.MetaCompression
	}
	if cfg.ZstdLevel != nil && !c.IsSet("zstd-level") {
		zstdLevel = *cfg.ZstdLevel
	}
	if cfg.MzTransform != "" && !c.IsSet("mz-transform") {
		mzTransform = cfg.MzTransform
	}
	if cfg.MzTolerance != nil && !c.IsSet("mz-tolerance") {
		mzTolerance = *cfg.MzTolerance
	}
	if cfg.IntensityTransform != "" && !c.IsSet("intensity-transform") {
		intensityTransform = cfg.IntensityTransform
	}
	if cfg.IntensityTolerance != nil && !c.IsSet("intensity-tolerance") {
		intensityTolerance = *cfg.IntensityTolerance
	}
}
