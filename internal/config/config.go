// Package config loads the snapshot tool configuration from YAML or TOML.
package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/savestate/internal/core/observability/log"
	"github.com/zeusync/savestate/pkg/encoding"
)

var ErrUnknownFormat = errors.New("unknown config format")

type Config struct {
	Snapshot SnapshotConfig `json:"snapshot" yaml:"snapshot" toml:"snapshot"`
	Log      LogConfig      `json:"log" yaml:"log" toml:"log"`
	Server   ServerConfig   `json:"server" yaml:"server" toml:"server"`
}

type SnapshotConfig struct {
	// Codec is a name accepted by encoding.Lookup.
	Codec string `json:"codec" yaml:"codec" toml:"codec"`
	// File is where the CLI writes and the server persists snapshots.
	File string `json:"file,omitempty" yaml:"file,omitempty" toml:"file,omitempty"`
	// Workers bounds concurrent per-type extraction, 0 means unbounded.
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty" toml:"workers,omitempty"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level" toml:"level"`
}

type ServerConfig struct {
	Host            string        `json:"host" yaml:"host" toml:"host"`
	Port            int           `json:"port" yaml:"port" toml:"port"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" toml:"shutdown_timeout"`
	// Token, when set, is required from every client except health checks.
	Token string `json:"token,omitempty" yaml:"token,omitempty" toml:"token,omitempty"`
	// SlotsDir keeps save slots on disk; empty keeps them in memory.
	SlotsDir string `json:"slots_dir,omitempty" yaml:"slots_dir,omitempty" toml:"slots_dir,omitempty"`
}

// Default returns a configuration usable without a file.
func Default() *Config {
	return &Config{
		Snapshot: SnapshotConfig{Codec: "json", File: "snapshot.json"},
		Log:      LogConfig{Level: "info"},
		Server:   ServerConfig{Host: "127.0.0.1", Port: 8088, ShutdownTimeout: 5 * time.Second},
	}
}

// Validate checks every field and returns all problems joined.
func (c *Config) Validate() error {
	var errs []error
	if _, err := encoding.Lookup(c.Snapshot.Codec); err != nil {
		errs = append(errs, fmt.Errorf("snapshot.codec: %w", err))
	}
	if c.Snapshot.Workers < 0 {
		errs = append(errs, fmt.Errorf("snapshot.workers must not be negative, got %d", c.Snapshot.Workers))
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout must not be negative"))
	}
	return errors.Join(errs...)
}

// Codec resolves the configured snapshot codec.
func (c *Config) Codec() (encoding.Codec, error) {
	return encoding.Lookup(c.Snapshot.Codec)
}

// LogLevel resolves the configured log level.
func (c *Config) LogLevel() log.Level {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.LevelInfo
	}
	return level
}

// Addr is the server listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// LoadYAML reads a YAML config on top of the defaults.
func LoadYAML(r io.Reader) (*Config, error) {
	c := Default()
	if err := yaml.NewDecoder(r).Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return c, c.Validate()
}

// LoadTOML reads a TOML config on top of the defaults.
func LoadTOML(r io.Reader) (*Config, error) {
	c := Default()
	if _, err := toml.NewDecoder(r).Decode(c); err != nil {
		return nil, err
	}
	return c, c.Validate()
}

// LoadFile picks the format from the file extension.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(f)
	case ".toml":
		return LoadTOML(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}
