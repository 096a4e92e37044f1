// Package config loads server settings from defaults, an optional YAML file,
// the environment and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/stevemurr/comparison-api/logging"
	"github.com/stevemurr/comparison-api/store"
)

// Config is the full server configuration.
type Config struct {
	AppName        string `yaml:"app_name"`
	AppVersion     string `yaml:"app_version"`
	AppDescription string `yaml:"app_description"`

	Host string `yaml:"host"`
	Port string `yaml:"port"`

	Store store.Config `yaml:"store"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`

	AllowedOrigins []string `yaml:"allowed_origins"`

	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`

	MetricsEnabled bool `yaml:"metrics_enabled"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		AppName:        "Comparison API",
		AppVersion:     "1.0.0",
		AppDescription: "Simplified backend API for comparing products.",
		Host:           "0.0.0.0",
		Port:           "8080",
		Store: store.Config{
			Backend:  "json",
			DataFile: "./data/products.json",
			S3:       store.S3Config{Key: "products.json", Region: "us-east-1"},
		},
		LogLevel:       "info",
		LogFile:        "logs/app.log",
		AllowedOrigins: []string{"*"},
		RateLimitBurst: 20,
		MetricsEnabled: true,
	}
}

// Addr is the listen address.
func (c Config) Addr() string {
	return c.Host + ":" + c.Port
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.Store.Backend {
	case "json", "sqlite", "":
		if c.Store.DataFile == "" {
			errs = append(errs, errors.New("data file required"))
		}
	case "postgres":
		if c.Store.DSN == "" {
			errs = append(errs, errors.New("postgres backend requires DATABASE_URL"))
		}
	case "s3":
		if c.Store.S3.Bucket == "" {
			errs = append(errs, errors.New("s3 backend requires S3_BUCKET"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown store backend: %q", c.Store.Backend))
	}
	if c.RateLimitRPS < 0 {
		errs = append(errs, errors.New("rate limit must not be negative"))
	}
	return errors.Join(errs...)
}

// Load builds a Config from args (without the program name) and getenv.
// A .env file in the working directory is read first; it never overrides
// variables already present in the environment.
func Load(args []string, getenv func(string) string) (Config, error) {
	fs := flag.NewFlagSet("comparison-api", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configFile := fs.String("config", "", "YAML configuration file")
	envFile := fs.String("env-file", ".env", "dotenv file to read before the environment")
	appName := fs.String("app-name", "", "Application name shown by the health check")
	host := fs.String("host", "", "Interface to listen on")
	port := fs.String("port", "", "Port to listen on")
	backend := fs.String("store", "", "Store backend (json, sqlite, postgres, s3, memory)")
	dataFile := fs.String("data-file", "", "Data file for the json and sqlite backends")
	dsn := fs.String("dsn", "", "Postgres DSN")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	logFile := fs.String("log-file", "", "Rotated log file; \"-\" disables file logging")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unknown arguments: %v", fs.Args())
	}

	getenv = withDotEnv(*envFile, getenv)

	cfg := Default()
	path := *configFile
	if path == "" {
		path = getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := cfg.mergeYAML(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return Config{}, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	if set["app-name"] {
		cfg.AppName = *appName
	}
	if set["host"] {
		cfg.Host = *host
	}
	if set["port"] {
		cfg.Port = *port
	}
	if set["store"] {
		cfg.Store.Backend = *backend
	}
	if set["data-file"] {
		cfg.Store.DataFile = *dataFile
	}
	if set["dsn"] {
		cfg.Store.DSN = *dsn
	}
	if set["log-level"] {
		cfg.LogLevel = *logLevel
	}
	if set["log-file"] {
		cfg.LogFile = *logFile
	}
	if cfg.LogFile == "-" {
		cfg.LogFile = ""
	}
	return cfg, cfg.Validate()
}

func (c *Config) mergeYAML(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	str("APP_NAME", &c.AppName)
	str("APP_VERSION", &c.AppVersion)
	str("APP_DESCRIPTION", &c.AppDescription)
	str("HOST", &c.Host)
	str("PORT", &c.Port)
	str("STORE_BACKEND", &c.Store.Backend)
	str("DATA_FILE", &c.Store.DataFile)
	str("DATABASE_URL", &c.Store.DSN)
	str("S3_BUCKET", &c.Store.S3.Bucket)
	str("S3_KEY", &c.Store.S3.Key)
	str("S3_REGION", &c.Store.S3.Region)
	str("S3_ENDPOINT", &c.Store.S3.Endpoint)
	str("S3_ACCESS_KEY_ID", &c.Store.S3.AccessKeyID)
	str("S3_SECRET_ACCESS_KEY", &c.Store.S3.SecretAccessKey)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FILE", &c.LogFile)
	if v := getenv("S3_PATH_STYLE"); v != "" {
		c.Store.S3.PathStyle = strings.EqualFold(v, "true")
	}
	if v := getenv("ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = strings.Split(v, ",")
	}
	if v := getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_RPS: %w", err)
		}
		c.RateLimitRPS = f
	}
	if v := getenv("RATE_LIMIT_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_BURST: %w", err)
		}
		c.RateLimitBurst = n
	}
	if v := getenv("METRICS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("METRICS_ENABLED: %w", err)
		}
		c.MetricsEnabled = b
	}
	return nil
}

// withDotEnv layers the variables of a dotenv file under getenv.
func withDotEnv(path string, getenv func(string) string) func(string) string {
	if path == "" {
		return getenv
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		// A missing or unreadable .env is not fatal; the environment still applies.
		return getenv
	}
	return func(key string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return vars[key]
	}
}
