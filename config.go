package ber

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config holds codec settings loadable from YAML.
type Config struct {
	Mode          string `yaml:"mode"`            // "buffered" or "streaming"
	MaxDepth      int    `yaml:"max_depth"`       // nesting limit for both directions
	ChunkSize     int    `yaml:"chunk_size"`      // longest unfragmented string
	MaxStringSize int    `yaml:"max_string_size"` // decoder allocation cap per value

	Logger *zap.Logger `yaml:"-"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		Mode:          Buffered.String(),
		MaxDepth:      DefaultMaxDepth,
		ChunkSize:     DefaultChunkSize,
		MaxStringSize: DefaultMaxStringSize,
	}
}

// LoadConfig reads a YAML file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "reading config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if _, err := ParseMode(c.Mode); err != nil {
		return err
	}
	if c.MaxDepth <= 0 {
		return errors.Newf("ber: max_depth must be positive, got %d", c.MaxDepth)
	}
	if c.ChunkSize <= 0 {
		return errors.Newf("ber: chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.MaxStringSize <= 0 {
		return errors.Newf("ber: max_string_size must be positive, got %d", c.MaxStringSize)
	}
	return nil
}

// NewEncoder creates an Encoder with these settings.
func (c Config) NewEncoder(w io.Writer) (*Encoder, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	mode, _ := ParseMode(c.Mode)
	e, err := NewEncoder(w, mode)
	if err != nil {
		return nil, err
	}
	return e.WithMaxDepth(c.MaxDepth).WithChunkSize(c.ChunkSize).WithLogger(c.Logger), nil
}

// NewDecoder creates a Decoder with these settings.
func (c Config) NewDecoder(r io.Reader) (*Decoder, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	d, err := NewDecoder(r)
	if err != nil {
		return nil, err
	}
	return d.WithMaxDepth(c.MaxDepth).WithMaxStringSize(c.MaxStringSize).WithLogger(c.Logger), nil
}
