// Package config loads runtime settings: built-in defaults, then an optional
// YAML file, then MUSE_* environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/himanishpuri/museecg/pkg/logger"
	"github.com/himanishpuri/museecg/pkg/museecg/waveform"
	"github.com/himanishpuri/museecg/pkg/utils"
)

// EnvPrefix prefixes every environment variable, e.g. MUSE_DB_PATH.
const EnvPrefix = "MUSE"

// Config holds the settings shared by the CLI and the server.
type Config struct {
	DBPath        string  `yaml:"db_path" envconfig:"DB_PATH"`
	OutPath       string  `yaml:"out_path" envconfig:"OUT_PATH"`
	DecodeScale   float64 `yaml:"decode_scale" envconfig:"DECODE_SCALE"`
	WAVResolution float64 `yaml:"wav_resolution" envconfig:"WAV_RESOLUTION"`
	ProgressEvery int     `yaml:"progress_every" envconfig:"PROGRESS_EVERY"`
	Workers       int     `yaml:"workers" envconfig:"WORKERS"`
	LogLevel      string  `yaml:"log_level" envconfig:"LOG_LEVEL"`
	Server        Server  `yaml:"server" envconfig:"SERVER"`
}

// Server configures cmd/server.
type Server struct {
	Port         int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" envconfig:"MAX_BODY_BYTES"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		OutPath:       "muse_metadata.tsv",
		DecodeScale:   waveform.DefaultScale,
		WAVResolution: waveform.DefaultScale,
		ProgressEvery: 500,
		Workers:       1,
		LogLevel:      "info",
		Server: Server{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			MaxBodyBytes: 64 << 20,
		},
	}
}

// Load applies the YAML file at path, when path is not empty, and then the
// environment on top of Default.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if !utils.FileExists(path) {
			return nil, fmt.Errorf("config file %s does not exist", path)
		}
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	if c.DecodeScale <= 0 {
		return fmt.Errorf("decode_scale must be positive, got %g", c.DecodeScale)
	}
	if c.WAVResolution <= 0 {
		return fmt.Errorf("wav_resolution must be positive, got %g", c.WAVResolution)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.ProgressEvery < 0 {
		return fmt.Errorf("progress_every must not be negative, got %d", c.ProgressEvery)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level returns the parsed log level.
func (c *Config) Level() logger.LogLevel {
	lvl, _ := logger.ParseLevel(c.LogLevel)
	return lvl
}
