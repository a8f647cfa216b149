package museecg

import (
	"github.com/himanishpuri/museecg/pkg/museecg/export"
	"github.com/himanishpuri/museecg/pkg/museecg/waveform"
)

type Config struct {
	DBPath        string
	DecodeScale   float64
	WAVResolution float64
	Workers       int
	ProgressEvery int
	Logger        Logger
	Storage       Storage
}

type Option func(*Config)

// WithDBPath enables the record store at path.
func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

// WithDecodeScale sets the scale used by DecodeBlobDefault and the default decoder.
func WithDecodeScale(scale float64) Option {
	return func(c *Config) {
		c.DecodeScale = scale
	}
}

// WithWAVResolution sets the microvolts per PCM count of exported WAV files.
func WithWAVResolution(uv float64) Option {
	return func(c *Config) {
		c.WAVResolution = uv
	}
}

func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

// WithProgressEvery logs batch progress every n documents; 0 disables it.
func WithProgressEvery(n int) Option {
	return func(c *Config) {
		c.ProgressEvery = n
	}
}

func defaultConfig() *Config {
	return &Config{
		DecodeScale:   waveform.DefaultScale,
		WAVResolution: waveform.DefaultScale,
		Workers:       1,
		ProgressEvery: 500,
	}
}

func (c *Config) wavOptions(sampleRate int) export.WAVOptions {
	return export.WAVOptions{SampleRate: sampleRate, Resolution: c.WAVResolution}
}
