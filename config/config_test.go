package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, opts Options) *Config {
	t.Helper()
	if opts.EnvFiles == nil {
		opts.EnvFiles = []string{}
	}
	cfg, err := Load(opts)
	require.NoError(t, err)
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg := load(t, Options{})

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "admin1", cfg.AdminPasscode)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "recon.db", cfg.Store.SQLitePath)
	assert.Equal(t, int64(20), cfg.Upload.MaxMB)
	assert.Equal(t, int64(20<<20), cfg.Upload.MaxBytes())
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:8080"}, cfg.CORS.AllowedOrigins)
	assert.False(t, cfg.Mail.Enabled())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Environment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("RECON_PORT", "9090")
	t.Setenv("RECON_STORE_DRIVER", "Postgres")
	t.Setenv("RECON_STORE_DATABASE_URL", "postgres://localhost/recon")
	t.Setenv("RECON_MAIL_SMTP_ADDR", "smtp.example.com:587")
	t.Setenv("RECON_MAIL_FROM", "recon@example.com")
	t.Setenv("RECON_MAIL_RECIPIENTS", "a@example.com, b@example.com")

	cfg := load(t, Options{})

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/recon", cfg.Store.DatabaseURL)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Mail.Recipients)
	assert.True(t, cfg.Mail.Enabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ConfigFileAndEnvFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	// GIVEN: a YAML config and a .env file
	yaml := "port: 7000\nstore:\n  driver: memory\nmail:\n  recipients:\n    - ops@example.com\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.yaml"), []byte(yaml), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.env"), []byte("RECON_ADMIN_PASSCODE=from-env-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("RECON_ADMIN_PASSCODE") })

	// WHEN: loading
	cfg := load(t, Options{ConfigFile: filepath.Join(dir, "custom.yaml"), EnvFiles: []string{"test.env"}})

	// THEN: both sources apply
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, []string{"ops@example.com"}, cfg.Mail.Recipients)
	assert.Equal(t, "from-env-file", cfg.AdminPasscode)
	assert.Equal(t, filepath.Join(dir, "custom.yaml"), cfg.ConfigFile)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(Options{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml"), EnvFiles: []string{}})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:          8080,
			AdminPasscode: "admin1",
			Store:         StoreConfig{Driver: DriverSQLite, SQLitePath: "recon.db"},
			Upload:        UploadConfig{MaxMB: 20},
		}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Store.Driver = "mysql" }},
		{"postgres without url", func(c *Config) { c.Store.Driver = DriverPostgres }},
		{"sqlite without path", func(c *Config) { c.Store.SQLitePath = "" }},
		{"bad port", func(c *Config) { c.Port = 0 }},
		{"empty passcode", func(c *Config) { c.AdminPasscode = " " }},
		{"zero upload", func(c *Config) { c.Upload.MaxMB = 0 }},
		{"smtp without from", func(c *Config) { c.Mail.SMTPAddr = "smtp:25" }},
	}
	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent of testing.T.Chdir for Go < 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
