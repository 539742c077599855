package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
  "app": {"AppPort": "9000", "JWTSecret": "from-file", "AllowedOrigins": ["https://a.example", "https://b.example"], "GzipEnabled": true},
  "database": {"Driver": "postgres", "DBHost": "db.internal", "DBName": "blog"},
  "redis": {"Enabled": true, "RedisPort": 6380, "CacheTTLSeconds": 60},
  "log": {"Level": "debug", "GinMode": "debug", "MaxBackups": 9},
  "blog": {"Title": "Field Notes"},
  "admin": {"Usernames": ["editor"]}
}`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadJSONConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.json", sampleJSON)

	var c AppConfig
	require.NoError(t, loadJSONConfig(path, &c))

	assert.Equal(t, "9000", c.AppPort)
	assert.Equal(t, "from-file", c.JWTSecret)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.AllowedOrigins)
	assert.True(t, c.GzipEnabled)
	assert.Equal(t, "postgres", c.DBDriver)
	assert.Equal(t, "db.internal", c.DBHost)
	assert.True(t, c.RedisEnabled)
	assert.Equal(t, 6380, c.RedisPort)
	assert.Equal(t, 60, c.CacheTTLSeconds)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, 9, c.LogMaxBackups)
	assert.Equal(t, "Field Notes", c.BlogTitle)
	assert.Equal(t, []string{"editor"}, c.AdminUsernames)
}

func TestLoadJSONConfigMissingAndInvalid(t *testing.T) {
	var c AppConfig
	assert.NoError(t, loadJSONConfig(filepath.Join(t.TempDir(), "absent.json"), &c))

	path := writeFile(t, t.TempDir(), "broken.json", "{not json")
	assert.Error(t, loadJSONConfig(path, &c))
}

func TestApplyDefaults(t *testing.T) {
	var c AppConfig
	applyDefaults(&c)

	assert.Equal(t, "8080", c.AppPort)
	assert.Equal(t, "mysql", c.DBDriver)
	assert.Equal(t, "3306", c.DBPort)
	assert.Equal(t, "inkblog", c.DBName)
	assert.Equal(t, 30, c.RateLimitPerMinute)
	assert.Equal(t, []string{"*"}, c.AllowedOrigins)
	assert.Equal(t, 3600, c.CacheTTLSeconds)
	assert.Equal(t, "My Blog", c.BlogTitle)
	assert.False(t, c.RedisEnabled)

	pg := AppConfig{DBDriver: "postgres"}
	applyDefaults(&pg)
	assert.Equal(t, "5432", pg.DBPort)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "7000")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("CACHE_TTL_SECONDS", "120")
	t.Setenv("ADMIN_USERNAMES", " alice , ,bob ")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://blog.example")
	t.Setenv("BLOG_TITLE", "Env Blog")

	c := AppConfig{AppPort: "9000", BlogTitle: "File Blog"}
	applyEnvOverrides(&c)

	assert.Equal(t, "7000", c.AppPort)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.True(t, c.RedisEnabled)
	assert.Equal(t, 120, c.CacheTTLSeconds)
	assert.Equal(t, []string{"alice", "bob"}, c.AdminUsernames)
	assert.Equal(t, []string{"https://blog.example"}, c.AllowedOrigins)
	assert.Equal(t, "Env Blog", c.BlogTitle)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, filepath.Join("config", "config.json"), sampleJSON)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(wd)
		loaded = false
		cfg = AppConfig{}
	})

	t.Setenv("APP_PORT", "7001")
	t.Setenv("DB_DRIVER", "mysql")
	loaded = false
	cfg = AppConfig{}

	c := Load()
	assert.Equal(t, "7001", c.AppPort, "environment wins over file")
	assert.Equal(t, "from-file", c.JWTSecret)
	assert.Equal(t, "mysql", c.DBDriver)
	assert.Equal(t, "3306", c.DBPort, "port default follows the effective driver")
	assert.Equal(t, "Field Notes", c.BlogTitle)
	assert.Equal(t, c, Get())
}

func TestSetAppliesDefaults(t *testing.T) {
	t.Cleanup(func() {
		loaded = false
		cfg = AppConfig{}
	})

	Set(AppConfig{JWTSecret: "x", DBDriver: "sqlite"})
	c := Get()
	assert.Equal(t, "x", c.JWTSecret)
	assert.Equal(t, "8080", c.AppPort)
	assert.Equal(t, "sqlite", c.DBDriver)
}

func TestDialectorFor(t *testing.T) {
	for _, driver := range []string{"mysql", "postgres", "sqlite"} {
		c := AppConfig{DBDriver: driver}
		applyDefaults(&c)
		d, err := dialectorFor(c)
		require.NoError(t, err, driver)
		assert.Equal(t, driver, d.Name())
	}

	_, err := dialectorFor(AppConfig{DBDriver: "oracle"})
	assert.Error(t, err)
}
