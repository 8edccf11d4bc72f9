package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	ferr "seedfast/forcebridge/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
log_level: debug
http_timeout: 10s
cache:
  backend: memory
  ttl: 30m
connections:
  - name: prod
    username: integration@example.com
    login_url: https://login.salesforce.com
    security_token: tok
    objects: [Contact, Lead]
  - name: sandbox-eu
    username: dev@example.com
    login_url: https://test.salesforce.com
    auto_assign: false
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadFile(t *testing.T) {
	c, err := LoadFile(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, 10*time.Second, c.HTTPTimeout)
	assert.Equal(t, "memory", c.Cache.Backend)
	assert.Equal(t, 30*time.Minute, c.Cache.TTL)
	require.Len(t, c.Connections, 2)

	prod, err := c.Connection("PROD")
	require.NoError(t, err)
	assert.Equal(t, []string{"Contact", "Lead"}, prod.Objects)
	assert.True(t, prod.AssignmentRules())

	eu, err := c.Connection("sandbox-eu")
	require.NoError(t, err)
	assert.False(t, eu.AssignmentRules())
}

func TestLoadFile_MissingGivesDefaults(t *testing.T) {
	c, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), c)
}

func TestLoadFile_Malformed(t *testing.T) {
	_, err := LoadFile(writeConfig(t, "connections: [\n"))
	assert.True(t, ferr.IsKind(err, ferr.Configuration))
}

func TestConnection_Unknown(t *testing.T) {
	_, err := Defaults().Connection("prod")
	assert.True(t, ferr.IsKind(err, ferr.Configuration))

	c, err := LoadFile(writeConfig(t, sample))
	require.NoError(t, err)
	_, err = c.Connection("staging")
	assert.True(t, ferr.IsKind(err, ferr.Configuration))
}

func TestApplyEnv(t *testing.T) {
	c, err := LoadFile(writeConfig(t, sample))
	require.NoError(t, err)

	env := map[string]string{
		"FORCEBRIDGE_PASSWORD_SANDBOX_EU": "pw",
		EnvCacheDSN:                       "postgres://u:p@db/cache",
	}
	c.ApplyEnv(func(k string) string { return env[k] })

	eu, _ := c.Connection("sandbox-eu")
	assert.Equal(t, "pw", eu.Password)
	prod, _ := c.Connection("prod")
	assert.Empty(t, prod.Password)
	assert.Equal(t, "postgres://u:p@db/cache", c.Cache.DSN)
}

func TestPasswordEnv(t *testing.T) {
	assert.Equal(t, "FORCEBRIDGE_PASSWORD_PROD", PasswordEnv("prod"))
	assert.Equal(t, "FORCEBRIDGE_PASSWORD_SANDBOX_EU", PasswordEnv("sandbox-eu"))
	assert.Equal(t, "FORCEBRIDGE_PASSWORD_A_B", PasswordEnv(".a..b."))
}

func TestSaveFile_RoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	c := Defaults()
	off := false
	c.Upsert(Connection{Name: "prod", Username: "u", LoginURL: "https://login.salesforce.com", AutoAssign: &off})
	c.Upsert(Connection{Name: "PROD", Username: "v", LoginURL: "https://login.salesforce.com"})
	require.NoError(t, SaveFile(p, c))

	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := LoadFile(p)
	require.NoError(t, err)
	assert.Equal(t, c, got)
	require.Len(t, got.Connections, 1)
	assert.Equal(t, "v", got.Connections[0].Username)
}

func TestValidateAndCredentials(t *testing.T) {
	_, err := Connection{Name: "prod", Username: "u"}.Credentials()
	assert.True(t, ferr.IsKind(err, ferr.Configuration))

	_, err = Connection{Name: "prod", LoginURL: "https://x"}.Credentials()
	assert.True(t, ferr.IsKind(err, ferr.Configuration))

	_, err = Connection{Name: "prod", Username: "u", LoginURL: "https://x", JWTKeyFile: filepath.Join(t.TempDir(), "missing.pem")}.Credentials()
	assert.True(t, ferr.IsKind(err, ferr.Configuration))

	key := filepath.Join(t.TempDir(), "key.pem")
	require.NoError(t, os.WriteFile(key, []byte("PEM"), 0o600))
	creds, err := Connection{Name: "prod", Username: "u", LoginURL: "https://x", SecurityToken: "t", JWTKeyFile: key}.Credentials()
	require.NoError(t, err)
	assert.Equal(t, []byte("PEM"), creds.JWTKey)
	assert.Equal(t, "t", creds.SecurityToken)
}

func TestCacheOptions(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	c := Defaults()
	opts, err := c.CacheOptions()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", opts.Backend)
	assert.Equal(t, "cache.db", filepath.Base(opts.Path))

	c.Cache = CacheConfig{Backend: "postgres", DSN: "not a dsn"}
	_, err = c.CacheOptions()
	assert.True(t, ferr.IsKind(err, ferr.Configuration))
}
