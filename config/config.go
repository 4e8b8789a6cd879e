/*
Package config loads server configuration.

PRECEDENCE (highest first):
  1. Command-line flags (applied by the caller after Load)
  2. RECON_* environment variables
  3. .env.local, then .env
  4. Config file (-config, or ./recon.yaml when present)
  5. Defaults

KEYS (env name in parentheses):
  port                  (RECON_PORT)                  8080
  store.driver          (RECON_STORE_DRIVER)          sqlite | postgres | memory
  store.sqlite_path     (RECON_STORE_SQLITE_PATH)     recon.db
  store.database_url    (RECON_STORE_DATABASE_URL)    required for postgres
  admin_passcode        (RECON_ADMIN_PASSCODE)        admin1
  cors.allowed_origins  (RECON_CORS_ALLOWED_ORIGINS)  comma separated
  upload.max_mb         (RECON_UPLOAD_MAX_MB)         20
  mail.smtp_addr        (RECON_MAIL_SMTP_ADDR)        host:port, empty disables mail
  mail.from / mail.username / mail.password
  mail.recipients       (RECON_MAIL_RECIPIENTS)       comma separated
  log.level / log.format / log.output
*/
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/warp/timesheet-recon/logging"
)

const envPrefix = "RECON"

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the resolved server configuration.
type Config struct {
	Port          int
	AdminPasscode string
	Store         StoreConfig
	CORS          CORSConfig
	Upload        UploadConfig
	Mail          MailConfig
	Log           logging.Config

	// ConfigFile is the file viper read, if any.
	ConfigFile string
}

type StoreConfig struct {
	Driver      string
	SQLitePath  string
	DatabaseURL string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type UploadConfig struct {
	MaxMB int64
}

// MaxBytes is the upload limit in bytes.
func (u UploadConfig) MaxBytes() int64 {
	return u.MaxMB << 20
}

// MailConfig configures completion notifications. Mail is disabled when
// SMTPAddr or Recipients is empty.
type MailConfig struct {
	SMTPAddr   string
	From       string
	Username   string
	Password   string
	Recipients []string
}

// Enabled reports whether notifications can be sent.
func (m MailConfig) Enabled() bool {
	return m.SMTPAddr != "" && len(m.Recipients) > 0
}

// Options control where Load looks.
type Options struct {
	ConfigFile string   // explicit config file; missing file is an error
	EnvFiles   []string // defaults to .env.local, .env
}

// Load resolves configuration from env files, the environment, an optional
// config file and defaults.
func Load(opts Options) (*Config, error) {
	envFiles := opts.EnvFiles
	if envFiles == nil {
		envFiles = []string{".env.local", ".env"}
	}
	// godotenv never overrides variables already set, so earlier files win.
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", opts.ConfigFile, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("recon")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{
		Port:          v.GetInt("port"),
		AdminPasscode: v.GetString("admin_passcode"),
		Store: StoreConfig{
			Driver:      strings.ToLower(strings.TrimSpace(v.GetString("store.driver"))),
			SQLitePath:  v.GetString("store.sqlite_path"),
			DatabaseURL: v.GetString("store.database_url"),
		},
		CORS:   CORSConfig{AllowedOrigins: list(v, "cors.allowed_origins")},
		Upload: UploadConfig{MaxMB: v.GetInt64("upload.max_mb")},
		Mail: MailConfig{
			SMTPAddr:   v.GetString("mail.smtp_addr"),
			From:       v.GetString("mail.from"),
			Username:   v.GetString("mail.username"),
			Password:   v.GetString("mail.password"),
			Recipients: list(v, "mail.recipients"),
		},
		Log: logging.Config{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		ConfigFile: v.ConfigFileUsed(),
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("admin_passcode", "admin1")
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.sqlite_path", "recon.db")
	v.SetDefault("store.database_url", "")
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:5173", "http://localhost:8080"})
	v.SetDefault("upload.max_mb", 20)
	v.SetDefault("mail.smtp_addr", "")
	v.SetDefault("mail.from", "")
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.recipients", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
	v.SetDefault("log.output", "stderr")
}

// list reads a key that is a YAML list in files and comma separated in the
// environment.
func list(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("store.sqlite_path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return errors.New("store.database_url is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if strings.TrimSpace(c.AdminPasscode) == "" {
		return errors.New("admin_passcode must not be empty")
	}
	if c.Upload.MaxMB <= 0 {
		return fmt.Errorf("invalid upload.max_mb %d", c.Upload.MaxMB)
	}
	if c.Mail.SMTPAddr != "" && c.Mail.From == "" {
		return errors.New("mail.from is required when mail.smtp_addr is set")
	}
	return nil
}
