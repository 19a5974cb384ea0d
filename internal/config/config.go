// Package config loads mealsync settings from a YAML file, a .env file and
// MEALSYNC_* environment variables, in increasing order of precedence.
// Command-line flags override all three.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full mealsync configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Local    LocalConfig    `yaml:"local"`
	Remote   RemoteConfig   `yaml:"remote"`
	Currency string         `yaml:"currency"`
}

// ServerConfig configures `mealsync serve`.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	JWTSecret      string   `yaml:"jwt_secret"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DatabaseConfig selects the server's backing store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite3 | pgx
	DSN    string `yaml:"dsn"`
}

// LocalConfig selects where anonymous-mode snapshots live.
type LocalConfig struct {
	Driver    string   `yaml:"driver"` // file | s3 | memory
	Dir       string   `yaml:"dir"`
	Namespace string   `yaml:"namespace"`
	S3        S3Config `yaml:"s3"`
}

// S3Config configures the S3 snapshot backend.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// RemoteConfig points the client at a server. An empty token keeps the
// session anonymous.
type RemoteConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server:   ServerConfig{Addr: ":8080"},
		Database: DatabaseConfig{Driver: "sqlite3", DSN: "mealsync.db"},
		Local:    LocalConfig{Driver: "file", Dir: ".mealsync", Namespace: "MealTracker"},
		Remote:   RemoteConfig{URL: "http://localhost:8080"},
		Currency: "INR",
	}
}

// Load reads path (skipped when empty), then ./.env, then the environment.
func Load(path string) (Config, error) {
	return load(path, ".env", os.LookupEnv)
}

func load(path, envFile string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	dotenv := map[string]string{}
	if envFile != "" {
		m, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			dotenv = m
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read %s: %w", envFile, err)
		}
	}
	get := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	if err := applyEnv(&cfg, get); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, get func(string) (string, bool)) error {
	str := map[string]*string{
		"MEALSYNC_SERVER_ADDR":          &cfg.Server.Addr,
		"MEALSYNC_JWT_SECRET":           &cfg.Server.JWTSecret,
		"MEALSYNC_DB_DRIVER":            &cfg.Database.Driver,
		"MEALSYNC_DB_DSN":               &cfg.Database.DSN,
		"MEALSYNC_LOCAL_DRIVER":         &cfg.Local.Driver,
		"MEALSYNC_LOCAL_DIR":            &cfg.Local.Dir,
		"MEALSYNC_NAMESPACE":            &cfg.Local.Namespace,
		"MEALSYNC_S3_BUCKET":            &cfg.Local.S3.Bucket,
		"MEALSYNC_S3_PREFIX":            &cfg.Local.S3.Prefix,
		"MEALSYNC_S3_REGION":            &cfg.Local.S3.Region,
		"MEALSYNC_S3_ENDPOINT":          &cfg.Local.S3.Endpoint,
		"MEALSYNC_S3_ACCESS_KEY_ID":     &cfg.Local.S3.AccessKeyID,
		"MEALSYNC_S3_SECRET_ACCESS_KEY": &cfg.Local.S3.SecretAccessKey,
		"MEALSYNC_REMOTE_URL":           &cfg.Remote.URL,
		"MEALSYNC_TOKEN":                &cfg.Remote.Token,
		"MEALSYNC_CURRENCY":             &cfg.Currency,
	}
	for key, dst := range str {
		if v, ok := get(key); ok {
			*dst = v
		}
	}

	if v, ok := get("MEALSYNC_ALLOWED_ORIGINS"); ok {
		cfg.Server.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.Server.AllowedOrigins = append(cfg.Server.AllowedOrigins, o)
			}
		}
	}
	if v, ok := get("MEALSYNC_S3_PATH_STYLE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("MEALSYNC_S3_PATH_STYLE: %w", err)
		}
		cfg.Local.S3.PathStyle = b
	}
	return nil
}

// Validate checks enumerated values.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "pgx":
	default:
		return fmt.Errorf("database.driver must be sqlite3 or pgx, got %q", c.Database.Driver)
	}
	switch c.Local.Driver {
	case "file", "memory":
	case "s3":
		if c.Local.S3.Bucket == "" {
			return errors.New("local.s3.bucket is required when local.driver is s3")
		}
	default:
		return fmt.Errorf("local.driver must be file, s3 or memory, got %q", c.Local.Driver)
	}
	if c.Currency == "" {
		return errors.New("currency is required")
	}
	return nil
}
