package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Env      string         `yaml:"env"` // "dev" or "prod"
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Auth     AuthConfig     `yaml:"auth"`
	Site     SiteConfig     `yaml:"site"`
	I18n     I18nConfig     `yaml:"i18n"`
	Mail     MailConfig     `yaml:"mail"`
	Subjects SubjectsConfig `yaml:"subjects"`
	Forms    FormsConfig    `yaml:"forms"`
	CSRF     CSRFConfig     `yaml:"csrf"`
}

func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite3" (default) or "pgx"
	Path   string `yaml:"path"`   // sqlite3 file
	DSN    string `yaml:"dsn"`    // pgx connection string
}

// Engine returns the migration engine name for the configured driver.
func (d DatabaseConfig) Engine() string {
	if d.Driver == "pgx" {
		return "postgres"
	}
	return "sqlite"
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type AuthConfig struct {
	AdminEmail        string `yaml:"admin_email"`
	AdminPasswordHash string `yaml:"admin_password_hash"` // bcrypt
	SessionSecret     string `yaml:"session_secret"`
	SessionTTL        string `yaml:"session_ttl"`
}

type SiteConfig struct {
	Name     string `yaml:"name"`
	Mail     string `yaml:"mail"`
	Timezone string `yaml:"timezone"`
}

type I18nConfig struct {
	DefaultLanguage string   `yaml:"default_language"`
	Languages       []string `yaml:"languages"`
}

type MailConfig struct {
	Driver   string `yaml:"driver"` // "smtp" or "log"
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	TLS      string `yaml:"tls"` // "mandatory", "opportunistic" or "none"
}

type SubjectsConfig struct {
	SeedPath string `yaml:"seed_path"`
}

type FormsConfig struct {
	RateLimit      int      `yaml:"rate_limit"` // submissions per IP per hour
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type CSRFConfig struct {
	Key string `yaml:"key"` // 32 bytes
}

// Default returns the configuration used when no file or environment
// override is present.
func Default() *Config {
	return &Config{
		Env:      "dev",
		Server:   ServerConfig{Addr: ":8080"},
		Database: DatabaseConfig{Driver: "sqlite3", Path: "_workspace/db/touch.db"},
		Log:      LogConfig{Level: "info"},
		Auth:     AuthConfig{AdminEmail: "admin@local", SessionTTL: "720h"}, // 30 days
		Site:     SiteConfig{Name: "Touch", Mail: "webmaster@localhost", Timezone: "UTC"},
		I18n:     I18nConfig{DefaultLanguage: "en", Languages: []string{"en"}},
		Mail:     MailConfig{Driver: "log", Port: 587, From: "noreply@localhost", TLS: "opportunistic"},
		Forms:    FormsConfig{RateLimit: 5},
	}
}

// Load builds the configuration from defaults, config.yaml, .env and
// TOUCH_* environment variables, in increasing priority.
func Load() *Config {
	return LoadFile("config.yaml")
}

// LoadFile is Load with an explicit config file path.
func LoadFile(path string) *Config {
	_ = godotenv.Load()

	cfg := Default()
	if env := os.Getenv("TOUCH_ENV"); env != "" {
		cfg.Env = env
	}

	data, err := os.ReadFile(path)
	if err == nil {
		yaml.Unmarshal(data, cfg)
	}

	applyEnv(cfg)
	return cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TOUCH_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("TOUCH_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("TOUCH_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("TOUCH_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("TOUCH_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TOUCH_AUTH_ADMIN_EMAIL"); v != "" {
		cfg.Auth.AdminEmail = v
	}
	if v := os.Getenv("TOUCH_AUTH_ADMIN_PASSWORD_HASH"); v != "" {
		cfg.Auth.AdminPasswordHash = v
	}
	if v := os.Getenv("TOUCH_AUTH_SESSION_SECRET"); v != "" {
		cfg.Auth.SessionSecret = v
	}
	if v := os.Getenv("TOUCH_SITE_MAIL"); v != "" {
		cfg.Site.Mail = v
	}
	if v := os.Getenv("TOUCH_I18N_LANGUAGES"); v != "" {
		cfg.I18n.Languages = splitList(v)
	}
	if v := os.Getenv("TOUCH_MAIL_DRIVER"); v != "" {
		cfg.Mail.Driver = v
	}
	if v := os.Getenv("TOUCH_MAIL_HOST"); v != "" {
		cfg.Mail.Host = v
	}
	if v := os.Getenv("TOUCH_MAIL_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Mail.Port = port
		}
	}
	if v := os.Getenv("TOUCH_MAIL_USERNAME"); v != "" {
		cfg.Mail.Username = v
	}
	if v := os.Getenv("TOUCH_MAIL_PASSWORD"); v != "" {
		cfg.Mail.Password = v
	}
	if v := os.Getenv("TOUCH_SUBJECTS_SEED_PATH"); v != "" {
		cfg.Subjects.SeedPath = v
	}
	if v := os.Getenv("TOUCH_CSRF_KEY"); v != "" {
		cfg.CSRF.Key = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
