package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/darkawower/wallscribe/internal/backend"
)

const (
	DefaultSessionEnv = "XDG_CURRENT_DESKTOP"
	DefaultUserAgent  = "wallscribe/0.1"
	DefaultMaxBytes   = 50 * 1024 * 1024
	DefaultFontSize   = 50.0
	DefaultTextColor  = "#ffffffff"
	DefaultWorkers    = 4
	SocketName        = "wallscribe.sock"
)

// Duration is a time.Duration written as a string ("30s") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type BackendConfig struct {
	Force      string `toml:"force"`
	SessionEnv string `toml:"session-env"`
}

type FetchConfig struct {
	Timeout   Duration `toml:"timeout"`
	UserAgent string   `toml:"user-agent"`
	MaxBytes  int64    `toml:"max-bytes"`
}

type OverlayConfig struct {
	Font  string  `toml:"font"`
	Size  float64 `toml:"size"`
	X     int     `toml:"x"`
	Y     int     `toml:"y"`
	Color string  `toml:"color"`
}

type WorkersConfig struct {
	Size int `toml:"size"`
}

type ServerConfig struct {
	Socket string `toml:"socket"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Config struct {
	Backend BackendConfig `toml:"backend"`
	Fetch   FetchConfig   `toml:"fetch"`
	Overlay OverlayConfig `toml:"overlay"`
	Workers WorkersConfig `toml:"workers"`
	Server  ServerConfig  `toml:"server"`
	Log     LogConfig     `toml:"log"`

	configPath string
}

func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "wallscribe")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.toml")
}

// DefaultSocketPath places the command socket in the user's runtime dir.
func DefaultSocketPath() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, SocketName)
}

func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			SessionEnv: DefaultSessionEnv,
		},
		Fetch: FetchConfig{
			Timeout:   Duration{30 * time.Second},
			UserAgent: DefaultUserAgent,
			MaxBytes:  DefaultMaxBytes,
		},
		Overlay: OverlayConfig{
			Size:  DefaultFontSize,
			X:     10,
			Y:     10,
			Color: DefaultTextColor,
		},
		Workers: WorkersConfig{
			Size: DefaultWorkers,
		},
		Server: ServerConfig{
			Socket: DefaultSocketPath(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	path = expandPath(path)

	cfg := DefaultConfig()
	cfg.configPath = path

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.postProcess()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) postProcess() {
	c.Overlay.Font = expandPath(c.Overlay.Font)
	c.Server.Socket = expandPath(c.Server.Socket)

	if c.Server.Socket == "" {
		c.Server.Socket = DefaultSocketPath()
	}
	if c.Backend.SessionEnv == "" {
		c.Backend.SessionEnv = DefaultSessionEnv
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = DefaultUserAgent
	}
}

func (c *Config) Validate() error {
	if c.Backend.Force != "" {
		if _, err := backend.ParseKind(c.Backend.Force); err != nil {
			return fmt.Errorf("invalid backend: %w", err)
		}
	}

	if c.Fetch.Timeout.Duration <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}
	if c.Fetch.MaxBytes <= 0 {
		return fmt.Errorf("fetch max-bytes must be positive")
	}

	if c.Overlay.Size <= 0 {
		return fmt.Errorf("overlay size must be positive")
	}
	if !isHexColor(c.Overlay.Color) {
		return fmt.Errorf("invalid overlay color: %s (expected #rrggbb or #rrggbbaa)", c.Overlay.Color)
	}

	if c.Workers.Size < 1 {
		return fmt.Errorf("workers size must be at least 1")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format: %s (must be console or json)", c.Log.Format)
	}

	return nil
}

func (c *Config) ConfigPath() string {
	return c.configPath
}

func (c *Config) Save(path string) error {
	if path == "" {
		path = c.configPath
	}
	if path == "" {
		path = DefaultConfigPath()
	}

	path = expandPath(path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.Server.Socket),
		GetTempDir(),
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// GetTempDir is where downloaded wallpapers are written.
func GetTempDir() string {
	return os.TempDir()
}

func isHexColor(s string) bool {
	if !strings.HasPrefix(s, "#") {
		return false
	}
	hex := s[1:]
	if len(hex) != 6 && len(hex) != 8 {
		return false
	}
	for _, r := range hex {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

func expandPath(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
