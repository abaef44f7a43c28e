// Package config loads simulator settings and builds the logger.
package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/oda/ptsim/internal/physmem"
)

// Config is the simulator configuration file.
type Config struct {
	physmem.Geometry
	LogLevel string `json:"log_level"`
	Image    string `json:"image"` // RAM image path; empty keeps RAM in memory
}

// Default returns the stock 64 x 256 byte geometry at warn level.
func Default() *Config {
	return &Config{
		Geometry: physmem.DefaultGeometry(),
		LogLevel: "warn",
	}
}

// Load reads a JSON file of type T.
func Load[T any](path string) (*T, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "resolve config path")
	}

	file, err := os.Open(abs)
	if err != nil {
		return nil, errors.Wrapf(err, "open config %s", abs)
	}
	defer file.Close()

	var v T
	if err := json.NewDecoder(file).Decode(&v); err != nil {
		return nil, errors.Wrapf(err, "decode config %s", abs)
	}
	return &v, nil
}

// LoadConfig reads a configuration file on top of the defaults and checks
// the geometry. Fields missing from the file keep their default value.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		loaded, err := Load[Config](path)
		if err != nil {
			return nil, err
		}
		cfg.merge(loaded)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) merge(o *Config) {
	if o.FrameSize != 0 || o.FrameCount != 0 || o.FrameShift != 0 || o.MemorySize != 0 {
		c.Geometry = o.Geometry
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.Image != "" {
		c.Image = o.Image
	}
}

// Validate reports a bad geometry or log level.
func (c *Config) Validate() error {
	if err := c.Geometry.Validate(); err != nil {
		return err
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, errors.Errorf("unknown log level %q", s)
}

// NewLogger returns a text logger on stderr tagged with the module name.
func NewLogger(level, module string) *slog.Logger {
	lvl, err := ParseLevel(level)
	if err != nil {
		lvl = slog.LevelWarn
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler).With("module", module)
}
