package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"stockranker/internal/batch"
	"stockranker/internal/logging"
	"stockranker/internal/report"
	"stockranker/internal/worldtrading"
)

// Config holds all configuration for the stock ranker.
type Config struct {
	// API credentials and endpoint
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`

	// Fetch behavior
	GroupSize         int           `mapstructure:"group_size"`
	Workers           int           `mapstructure:"workers"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	FetchRemainder    bool          `mapstructure:"fetch_remainder"`

	// Universe to rank
	Symbols     []string `mapstructure:"symbols"`
	SymbolsFile string   `mapstructure:"symbols_file"`

	// Outputs
	ReportPath  string         `mapstructure:"report_path"`
	MetricsFile string         `mapstructure:"metrics_file"`
	Log         logging.Config `mapstructure:"log"`
}

// envBindings maps configuration keys to their environment variables
var envBindings = map[string]string{
	"api_key":             "WORLDTRADINGDATA_API_KEY",
	"base_url":            "WORLDTRADINGDATA_BASE_URL",
	"group_size":          "GROUP_SIZE",
	"workers":             "WORKERS",
	"requests_per_second": "REQUESTS_PER_SECOND",
	"request_timeout":     "REQUEST_TIMEOUT",
	"fetch_remainder":     "FETCH_REMAINDER",
	"symbols":             "STOCK_SYMBOLS",
	"symbols_file":        "SYMBOLS_FILE",
	"report_path":         "REPORT_PATH",
	"metrics_file":        "METRICS_FILE",
	"log.level":           "LOG_LEVEL",
	"log.format":          "LOG_FORMAT",
	"log.file":            "LOG_FILE",
}

// flagBindings maps configuration keys to their command line flags
var flagBindings = map[string]string{
	"api_key":             "api-key",
	"base_url":            "base-url",
	"group_size":          "group-size",
	"workers":             "workers",
	"requests_per_second": "rps",
	"request_timeout":     "timeout",
	"fetch_remainder":     "fetch-remainder",
	"symbols":             "symbols",
	"symbols_file":        "symbols-file",
	"report_path":         "report",
	"metrics_file":        "metrics-file",
	"log.level":           "log-level",
	"log.format":          "log-format",
	"log.file":            "log-file",
}

// NewFlagSet declares the command line flags
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "path to a config file (default ./config.yaml or $HOME/.stockranker/config.yaml)")
	fs.String("api-key", "", "API token for the quote API")
	fs.String("base-url", worldtrading.DefaultBaseURL, "quote API endpoint")
	fs.Int("group-size", batch.DefaultGroupSize, "symbols per request")
	fs.Int("workers", 0, "maximum concurrent requests (0 starts every group at once)")
	fs.Float64("rps", 0, "maximum requests per second (0 is unlimited)")
	fs.Duration("timeout", 0, "per-request timeout (0 is none)")
	fs.Bool("fetch-remainder", false, "also fetch the trailing group when the universe is not a multiple of the group size")
	fs.StringSlice("symbols", nil, "comma-separated symbols to rank")
	fs.String("symbols-file", "", "file listing the symbols to rank")
	fs.String("report", report.DefaultPath, "report file, appended to")
	fs.String("metrics-file", "", "write Prometheus metrics to this file after the run")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("log-format", "text", "log format: text or json")
	fs.String("log-file", "", "also write logs to this file, rotated")
	return fs
}

// Load reads configuration from flags, environment variables, an optional .env file
// and an optional config file, in that order of precedence.
//
// Expected environment variables:
//   - WORLDTRADINGDATA_API_KEY
//   - WORLDTRADINGDATA_BASE_URL (optional, defaults to production)
//   - STOCK_SYMBOLS or SYMBOLS_FILE
//   - GROUP_SIZE, WORKERS, REQUESTS_PER_SECOND, REQUEST_TIMEOUT, FETCH_REMAINDER (optional)
//   - REPORT_PATH, METRICS_FILE, LOG_LEVEL, LOG_FORMAT, LOG_FILE (optional)
func Load(args []string) (*Config, error) {
	fs := NewFlagSet("stockranker")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	// Load .env if present; real environment variables win
	_ = godotenv.Load()

	v := viper.New()

	// Set defaults
	v.SetDefault("base_url", worldtrading.DefaultBaseURL)
	v.SetDefault("group_size", batch.DefaultGroupSize)
	v.SetDefault("workers", 0)
	v.SetDefault("requests_per_second", 0)
	v.SetDefault("request_timeout", "0s")
	v.SetDefault("fetch_remainder", false)
	v.SetDefault("report_path", report.DefaultPath)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Optionally read from config file if it exists
	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.stockranker")

		// Read config file (ignore if not found)
		_ = v.ReadInConfig()
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}
	for key, flag := range flagBindings {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return nil, fmt.Errorf("failed to bind --%s: %w", flag, err)
		}
	}

	// Unmarshal config into struct (handles both simple and complex fields)
	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.Symbols = splitSymbols(config.Symbols)

	if config.SymbolsFile != "" {
		symbols, err := LoadSymbols(config.SymbolsFile)
		if err != nil {
			return nil, err
		}
		config.Symbols = append(config.Symbols, symbols...)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks required fields and ranges
func (c *Config) Validate() error {
	var missing []string
	if c.APIKey == "" {
		missing = append(missing, "WORLDTRADINGDATA_API_KEY")
	}
	if len(c.Symbols) == 0 {
		missing = append(missing, "STOCK_SYMBOLS or SYMBOLS_FILE")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	var errs []error
	if c.GroupSize < 1 {
		errs = append(errs, fmt.Errorf("group_size must be at least 1, got %d", c.GroupSize))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("requests_per_second must not be negative, got %g", c.RequestsPerSecond))
	}
	if c.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("request_timeout must not be negative, got %s", c.RequestTimeout))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// splitSymbols flattens comma or whitespace separated entries and drops blanks
func splitSymbols(in []string) []string {
	var out []string
	for _, entry := range in {
		out = append(out, strings.FieldsFunc(entry, isSeparator)...)
	}
	return out
}

func isSeparator(r rune) bool {
	return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
