// Package config loads and stores forcebridge settings in the XDG config dir.
// Passwords may be kept here, but the keychain or the environment is preferred.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"seedfast/forcebridge/internal/cache"
	ferr "seedfast/forcebridge/internal/errors"
	"seedfast/forcebridge/internal/remote"
	"seedfast/forcebridge/internal/xdg"

	"gopkg.in/yaml.v3"
)

// Environment overrides.
const (
	EnvPasswordPrefix = "FORCEBRIDGE_PASSWORD_"
	EnvCacheDSN       = "FORCEBRIDGE_CACHE_DSN"
)

// DefaultHTTPTimeout bounds every remote call.
const DefaultHTTPTimeout = 30 * time.Second

// Config holds CLI settings.
type Config struct {
	LogLevel    string        `yaml:"log_level"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	Cache       CacheConfig   `yaml:"cache"`
	Connections []Connection  `yaml:"connections"`
}

// CacheConfig selects the host cache backend.
type CacheConfig struct {
	// Backend is memory, sqlite or postgres.
	Backend string        `yaml:"backend"`
	Path    string        `yaml:"path,omitempty"`
	DSN     string        `yaml:"dsn,omitempty"`
	TTL     time.Duration `yaml:"ttl"`
}

// Connection is one configured remote account.
type Connection struct {
	Name          string   `yaml:"name"`
	Username      string   `yaml:"username"`
	Password      string   `yaml:"password,omitempty"`
	SecurityToken string   `yaml:"security_token,omitempty"`
	LoginURL      string   `yaml:"login_url"`
	APIVersion    string   `yaml:"api_version,omitempty"`
	ClientID      string   `yaml:"client_id,omitempty"`
	ClientSecret  string   `yaml:"client_secret,omitempty"`
	JWTKeyFile    string   `yaml:"jwt_key_file,omitempty"`
	Objects       []string `yaml:"objects,omitempty"`
	// AutoAssign enables assignment rules on inserts without an owner. Nil means true.
	AutoAssign *bool `yaml:"auto_assign,omitempty"`
}

// Defaults returns the configuration used when no file exists.
func Defaults() Config {
	return Config{
		LogLevel:    "info",
		HTTPTimeout: DefaultHTTPTimeout,
		Cache:       CacheConfig{Backend: "sqlite", TTL: cache.DefaultTTL},
	}
}

// Path returns the path to the config file.
func Path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config file and applies environment overrides; a missing
// file returns defaults.
func Load() (Config, error) {
	p, err := Path()
	if err != nil {
		return Config{}, err
	}
	c, err := LoadFile(p)
	if err != nil {
		return c, err
	}
	c.ApplyEnv(os.Getenv)
	return c, nil
}

// LoadFile reads one config file without environment overrides.
func LoadFile(p string) (Config, error) {
	c := Defaults()
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return c, err
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, ferr.Wrap(ferr.Configuration, "parse "+p, err)
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = cache.DefaultTTL
	}
	return c, nil
}

// Save writes configuration with 0600 permissions.
func Save(c Config) error {
	p, err := Path()
	if err != nil {
		return err
	}
	return SaveFile(p, c)
}

// SaveFile writes c to p with 0600 permissions.
func SaveFile(p string, c Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}

var nonWord = regexp.MustCompile(`[^A-Z0-9]+`)

// PasswordEnv is the environment variable that overrides a connection's password.
func PasswordEnv(connection string) string {
	return EnvPasswordPrefix + strings.Trim(nonWord.ReplaceAllString(strings.ToUpper(connection), "_"), "_")
}

// ApplyEnv overrides secrets from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if dsn := getenv(EnvCacheDSN); dsn != "" {
		c.Cache.DSN = dsn
	}
	for i := range c.Connections {
		if pw := getenv(PasswordEnv(c.Connections[i].Name)); pw != "" {
			c.Connections[i].Password = pw
		}
	}
}

// Connection looks a connection up by name, case-insensitively.
func (c Config) Connection(name string) (Connection, error) {
	for _, conn := range c.Connections {
		if strings.EqualFold(conn.Name, name) {
			return conn, nil
		}
	}
	if len(c.Connections) == 0 {
		return Connection{}, ferr.Newf(ferr.Configuration, "no connections configured; add one to the config file or run 'forcebridge connect %s'", name)
	}
	return Connection{}, ferr.Newf(ferr.Configuration, "unknown connection %q", name)
}

// Upsert replaces the connection with the same name or appends conn.
func (c *Config) Upsert(conn Connection) {
	for i := range c.Connections {
		if strings.EqualFold(c.Connections[i].Name, conn.Name) {
			c.Connections[i] = conn
			return
		}
	}
	c.Connections = append(c.Connections, conn)
}

// CacheOptions resolves the cache settings, defaulting the SQLite file into
// the XDG state dir.
func (c Config) CacheOptions() (cache.Options, error) {
	opts := cache.Options{
		Backend: c.Cache.Backend,
		Path:    c.Cache.Path,
		DSN:     c.Cache.DSN,
		TTL:     c.Cache.TTL,
	}
	if opts.Backend == "sqlite" && opts.Path == "" {
		p, err := xdg.CachePath()
		if err != nil {
			return opts, err
		}
		opts.Path = p
	}
	if opts.Backend == "postgres" {
		dsn, err := cache.NormalizePostgresDSN(opts.DSN)
		if err != nil {
			return opts, ferr.Wrap(ferr.Configuration, "cache dsn", err)
		}
		opts.DSN = dsn
	}
	return opts, nil
}

// AssignmentRules reports whether inserts without an owner run assignment rules.
func (c Connection) AssignmentRules() bool {
	return c.AutoAssign == nil || *c.AutoAssign
}

// Validate checks the fields every login flow needs.
func (c Connection) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ferr.New(ferr.Configuration, "connection name is required")
	}
	if strings.TrimSpace(c.LoginURL) == "" {
		return ferr.Newf(ferr.Configuration, "connection %s: login_url is required", c.Name)
	}
	if strings.TrimSpace(c.Username) == "" {
		return ferr.Newf(ferr.Configuration, "connection %s: username is required", c.Name)
	}
	return nil
}

// Credentials builds the remote credentials, reading the JWT key file if set.
func (c Connection) Credentials() (remote.Credentials, error) {
	if err := c.Validate(); err != nil {
		return remote.Credentials{}, err
	}
	creds := remote.Credentials{
		LoginURL:      c.LoginURL,
		Username:      c.Username,
		Password:      c.Password,
		SecurityToken: c.SecurityToken,
		ClientID:      c.ClientID,
		ClientSecret:  c.ClientSecret,
		APIVersion:    c.APIVersion,
	}
	if c.JWTKeyFile != "" {
		key, err := os.ReadFile(c.JWTKeyFile)
		if err != nil {
			return creds, ferr.Wrap(ferr.Configuration, fmt.Sprintf("connection %s: read jwt_key_file", c.Name), err)
		}
		creds.JWTKey = key
	}
	return creds, nil
}
