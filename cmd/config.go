package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/etnz/backtest/api"
	"github.com/etnz/backtest/renderer"
	"github.com/etnz/backtest/tracker"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Environment variables read as a fallback for the global flags.
const (
	EnvAPIURL   = "BACKTEST_API_URL"
	EnvTimeout  = "BACKTEST_TIMEOUT"
	EnvInterval = "BACKTEST_INTERVAL"
	EnvCurrency = "BACKTEST_CURRENCY"
	EnvVerbose  = "BACKTEST_VERBOSE"
	EnvConfig   = "BACKTEST_CONFIG"
)

// Config is the content of a configuration file, in TOML or YAML.
//
//	api_url = "http://localhost:8081"
//	timeout = "10s"
//	interval = "3s"
//	currency = "KRW"
//
//	[headers]
//	Authorization = "Bearer ..."
type Config struct {
	APIURL   string            `toml:"api_url" yaml:"api_url"`
	Timeout  string            `toml:"timeout" yaml:"timeout"`
	Interval string            `toml:"interval" yaml:"interval"`
	Currency string            `toml:"currency" yaml:"currency"`
	Verbose  bool              `toml:"verbose" yaml:"verbose"`
	Headers  map[string]string `toml:"headers" yaml:"headers"`
}

// LoadConfig reads a configuration file. The format is chosen from the file
// extension: .yaml and .yml are YAML, anything else is TOML.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("cannot read config file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = toml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("invalid config file %q: %w", path, err)
	}
	return cfg, nil
}

// Settings are the resolved global options.
type Settings struct {
	APIURL   string
	Timeout  time.Duration
	Interval time.Duration
	Currency string
	Verbose  bool
	Headers  map[string]string
}

// Resolve computes the settings. Each option comes from the first source
// that defines it: explicit flags (by flag name), the environment, the
// configuration file, and finally the default.
func Resolve(flags map[string]string, getenv func(string) string, cfg Config) (Settings, error) {
	pick := func(flag, env, file, def string) string {
		if v, ok := flags[flag]; ok {
			return v
		}
		if v := strings.TrimSpace(getenv(env)); v != "" {
			return v
		}
		if file != "" {
			return file
		}
		return def
	}

	s := Settings{
		APIURL:   pick("api-url", EnvAPIURL, cfg.APIURL, api.DefaultBaseURL),
		Currency: pick("currency", EnvCurrency, cfg.Currency, renderer.DefaultCurrency),
		Headers:  cfg.Headers,
	}
	var err error
	if s.Timeout, err = time.ParseDuration(pick("timeout", EnvTimeout, cfg.Timeout, api.DefaultTimeout.String())); err != nil {
		return s, fmt.Errorf("invalid timeout: %w", err)
	}
	if s.Interval, err = time.ParseDuration(pick("interval", EnvInterval, cfg.Interval, tracker.DefaultInterval.String())); err != nil {
		return s, fmt.Errorf("invalid interval: %w", err)
	}
	if s.Timeout <= 0 || s.Interval <= 0 {
		return s, errors.New("timeout and interval must be positive")
	}
	if s.Verbose, err = strconv.ParseBool(pick("verbose", EnvVerbose, strconv.FormatBool(cfg.Verbose), "false")); err != nil {
		return s, fmt.Errorf("invalid verbose: %w", err)
	}
	return s, nil
}

// loadEnv loads the .env file of the working directory, if any.
func loadEnv() error {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cannot load .env: %w", err)
	}
	return nil
}
