// Package config handles Kovi configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./kovi.yaml, ~/.config/kovi/kovi.yaml, /config/kovi.yaml,
// /etc/kovi/kovi.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"kovi.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "kovi", "kovi.yaml"))
	}

	paths = append(paths, "/config/kovi.yaml") // Container convention
	paths = append(paths, "/etc/kovi/kovi.yaml")
	return paths
}

// searchPathsFunc is indirected so tests can override the search order
// without touching the developer's real config files.
var searchPathsFunc = DefaultSearchPaths

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches searchPathsFunc() and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	paths := searchPathsFunc()
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", paths)
}

// Config holds all Kovi configuration.
type Config struct {
	Driver  DriverConfig  `yaml:"driver"`
	Admin   AdminConfig   `yaml:"admin"`
	Store   StoreConfig   `yaml:"store"`
	Debug   DebugConfig   `yaml:"debug"`
	DataDir string        `yaml:"data_dir"`
	LogLevel string       `yaml:"log_level"`
	Plugins []PluginEntry `yaml:"plugins"`
}

// DriverConfig defines how Kovi connects to the OneBot-speaking server.
type DriverConfig struct {
	// WSURL is the OneBot v11 WebSocket endpoint, e.g.
	// "ws://127.0.0.1:6700".
	WSURL string `yaml:"ws_url"`
	// AccessToken is sent as a bearer token on connect, when non-empty.
	AccessToken string `yaml:"access_token"`
	// HTTPURL, when set, is used for an optional preflight HTTP health
	// probe before the WebSocket dial (many OneBot implementations
	// expose both transports on sibling ports).
	HTTPURL string `yaml:"http_url"`
	// CallTimeoutSec bounds how long a driver reconnect attempt may take
	// after the connection watcher reports the driver down. It is not
	// applied to outbound API calls; those wait as long as the caller's
	// context allows.
	CallTimeoutSec int `yaml:"call_timeout_sec"`
}

// AdminConfig defines the super-admin identities and the debug-endpoint
// bearer token.
type AdminConfig struct {
	// UserIDs are OneBot user ids treated as bot superusers.
	UserIDs []int64 `yaml:"user_ids"`
	// Token authenticates requests to the debug HTTP surface. Stored in
	// the config file in plaintext but compared via bcrypt hash at
	// runtime (see internal/httpkit AdminAuth).
	Token string `yaml:"token"`
}

// StoreConfig defines the persistence backend for per-plugin enable
// flags. Access-control settings are not persisted.
type StoreConfig struct {
	// Driver selects the sqlite backend: "cgo" (mattn/go-sqlite3,
	// default) or "pure" (modernc.org/sqlite, no CGO required).
	Driver string `yaml:"driver"`
	// Path is the sqlite database file. Defaults to "<data_dir>/kovi.db".
	Path string `yaml:"path"`
}

// DebugConfig defines the optional admin/debug HTTP surface.
type DebugConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"` // bind address; "" = all interfaces
	Port    int    `yaml:"port"`
}

// PluginEntry configures per-plugin startup state and access control,
// keyed by plugin name. These are defaults; the bot store's persisted
// state (if enabled) overrides them on subsequent runs.
type PluginEntry struct {
	Name            string   `yaml:"name"`
	EnableOnStartup bool     `yaml:"enable_on_startup"`
	AccessMode      string   `yaml:"access_mode"` // "", "whitelist", "blacklist"
	Groups          []int64  `yaml:"groups"`
	Friends         []int64  `yaml:"friends"`
}

// Configured reports whether a WebSocket driver URL has been set.
func (c DriverConfig) Configured() bool {
	return c.WSURL != ""
}

// Load reads configuration from a YAML file, expands environment
// variables, applies defaults for any unset fields, and validates the
// result. After Load returns successfully, all fields are usable
// without additional nil/empty checks.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${KOVI_ACCESS_TOKEN}). This is
	// a convenience for container deployments; the recommended approach
	// is to put values directly in the config file.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills in zero-value fields with sensible defaults.
// Called automatically by Load. After this, callers can read any field
// without checking for empty strings or zero values.
func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.Driver.CallTimeoutSec == 0 {
		c.Driver.CallTimeoutSec = 30
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "cgo"
	}
	if c.Store.Path == "" {
		c.Store.Path = filepath.Join(c.DataDir, "kovi.db")
	}
	if c.Debug.Port == 0 {
		c.Debug.Port = 8080
	}
}

// Validate checks that the configuration is internally consistent. It
// runs after applyDefaults, so it can assume defaults are populated.
// Returns an error describing the first problem found, or nil.
func (c *Config) Validate() error {
	if c.Debug.Enabled && (c.Debug.Port < 1 || c.Debug.Port > 65535) {
		return fmt.Errorf("debug.port %d out of range (1-65535)", c.Debug.Port)
	}
	if c.Store.Driver != "cgo" && c.Store.Driver != "pure" {
		return fmt.Errorf("store.driver %q must be \"cgo\" or \"pure\"", c.Store.Driver)
	}
	if c.LogLevel != "" {
		if _, err := ParseLogLevel(c.LogLevel); err != nil {
			return err
		}
	}
	for _, p := range c.Plugins {
		if p.Name == "" {
			return fmt.Errorf("plugins: entry with empty name")
		}
		switch p.AccessMode {
		case "", "whitelist", "blacklist":
		default:
			return fmt.Errorf("plugins[%s].access_mode %q must be \"\", \"whitelist\", or \"blacklist\"", p.Name, p.AccessMode)
		}
	}
	return nil
}

// Default returns a default configuration suitable for local
// development against a OneBot implementation listening on the
// conventional port. All defaults are already applied.
func Default() *Config {
	cfg := &Config{
		Driver: DriverConfig{
			WSURL: "ws://127.0.0.1:6700",
		},
	}
	cfg.applyDefaults()
	return cfg
}
