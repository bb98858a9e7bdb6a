package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/dnldd/screener/config"
	"github.com/dnldd/screener/fetch"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	// defaultOutput is the default json export filepath.
	defaultOutput = "signals.json"
	// defaultLogLevel is the default log level.
	defaultLogLevel = "info"
)

// Config is the configuration struct for the service.
type Config struct {
	// ConfigPath is the filepath to the analysis config.
	ConfigPath string
	// Assets overrides the analyzed assets.
	Assets []string
	// Timeframes overrides the analyzed timeframes.
	Timeframes []string
	// Policy overrides the timeframe failure policy.
	Policy string
	// MinConfidence overrides the minimum reported signal confidence.
	MinConfidence string
	// ExportJSON is the json export flag.
	ExportJSON bool
	// Output is the json export filepath.
	Output string
	// NoFetch is the flag for analyzing historic data instead of fetched data.
	NoFetch bool
	// DataFilepath is the filepath to the historic data.
	DataFilepath string
	// BinanceURL is the binance api base url.
	BinanceURL string
	// DBEndpoint is the signal database endpoint.
	DBEndpoint string
	// DBUser is the signal database user.
	DBUser string
	// DBPass is the signal database user pass.
	DBPass string
	// Interval is the analysis interval, a single analysis runs when unset.
	Interval time.Duration
	// MetricsAddr is the metrics server address.
	MetricsAddr string
	// LogLevel is the log level.
	LogLevel string

	registeredFlags map[string]bool
}

// Validate asserts the config sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	if cfg.ConfigPath == "" && cfg.Policy == "" {
		errs = errors.Join(errs, fmt.Errorf("failure policy must be provided when no analysis config is set"))
	}
	if cfg.MinConfidence != "" {
		confidence, err := strconv.ParseFloat(cfg.MinConfidence, 64)
		switch {
		case err != nil:
			errs = errors.Join(errs, fmt.Errorf("parsing min confidence: %w", err))
		case !(confidence >= 0 && confidence <= 1):
			errs = errors.Join(errs, fmt.Errorf("min confidence must be in [0, 1], got %f", confidence))
		}
	}
	if cfg.ExportJSON && cfg.Output == "" {
		errs = errors.Join(errs, fmt.Errorf("output filepath cannot be an empty string"))
	}
	if cfg.NoFetch && cfg.DataFilepath == "" {
		errs = errors.Join(errs, fmt.Errorf("historic data filepath cannot be an empty string"))
	}
	if cfg.Interval < 0 {
		errs = errors.Join(errs, fmt.Errorf("interval cannot be negative, got %s", cfg.Interval))
	}
	if cfg.LogLevel != "" {
		_, err := zerolog.ParseLevel(cfg.LogLevel)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("parsing log level: %w", err))
		}
	}

	return errs
}

// AnalysisSettings resolves the analysis settings from the analysis config
// and the command line overrides.
func (cfg *Config) AnalysisSettings() (*config.Settings, error) {
	var analysis *config.Analysis
	var err error

	switch cfg.ConfigPath {
	case "":
		analysis, err = config.Default(cfg.Policy)
	default:
		analysis, err = config.Load(cfg.ConfigPath)
	}
	if err != nil {
		return nil, err
	}

	if len(cfg.Assets) > 0 {
		analysis.Assets = cfg.Assets
	}
	if len(cfg.Timeframes) > 0 {
		analysis.Timeframes = cfg.Timeframes
	}
	if cfg.Policy != "" {
		analysis.Policy = cfg.Policy
	}
	if cfg.MinConfidence != "" {
		analysis.MinConfidence, err = strconv.ParseFloat(cfg.MinConfidence, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing min confidence: %w", err)
		}
	}

	return analysis.Resolve()
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
func (cfg *Config) registerFlag(name string, value interface{}, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	if val.Elem().Type() == reflect.TypeOf(time.Duration(0)) {
		var def time.Duration
		if defValue != "" {
			var err error
			def, err = time.ParseDuration(defValue)
			if err != nil {
				return fmt.Errorf("%s: parsing duration: %w", name, err)
			}
		}
		flag.DurationVar(value.(*time.Duration), name, def, usage)
		return nil
	}

	switch val.Elem().Kind() {
	case reflect.String:
		flag.StringVar(value.(*string), name, defValue, usage)
	case reflect.Bool:
		var def bool
		if defValue != "" {
			def, _ = strconv.ParseBool(defValue)
		}
		flag.BoolVar(value.(*bool), name, def, usage)
	case reflect.Int:
		var def int
		if defValue != "" {
			def, _ = strconv.Atoi(defValue)
		}
		flag.IntVar(value.(*int), name, def, usage)
	case reflect.Slice:
		// Only handle []string
		if val.Elem().Type().Elem().Kind() == reflect.String {
			var def []string
			if defValue != "" {
				def = strings.Split(defValue, ",")
			}
			flag.Func(name, usage, func(s string) error {
				*value.(*[]string) = strings.Split(s, ",")
				return nil
			})
			// Set default if not provided via flag
			if len(def) > 0 {
				*value.(*[]string) = def
			}
		} else {
			return fmt.Errorf("%s: unsupported slice type", name)
		}
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	// Register command line arguments using loaded environment variables as defaults.
	flags := []struct {
		name  string
		value interface{}
		usage string
	}{
		{"config", &cfg.ConfigPath, "the analysis config filepath"},
		{"assets", &cfg.Assets, "the analyzed assets"},
		{"timeframes", &cfg.Timeframes, "the analyzed timeframes"},
		{"policy", &cfg.Policy, "the timeframe failure policy, strict or partial"},
		{"minconfidence", &cfg.MinConfidence, "the minimum reported signal confidence"},
		{"exportjson", &cfg.ExportJSON, "the json export flag"},
		{"output", &cfg.Output, "the json export filepath"},
		{"nofetch", &cfg.NoFetch, "the flag for analyzing historic data instead of fetching"},
		{"datafile", &cfg.DataFilepath, "the historic data filepath"},
		{"binanceurl", &cfg.BinanceURL, "the binance api base url"},
		{"dbendpoint", &cfg.DBEndpoint, "the signal database endpoint"},
		{"dbuser", &cfg.DBUser, "the signal database user"},
		{"dbpass", &cfg.DBPass, "the signal database user pass"},
		{"interval", &cfg.Interval, "the analysis interval"},
		{"metricsaddr", &cfg.MetricsAddr, "the metrics server address"},
		{"loglevel", &cfg.LogLevel, "the log level"},
	}
	for _, f := range flags {
		err = cfg.registerFlag(f.name, f.value, f.usage)
		if err != nil {
			return err
		}
	}

	// Parse command-line flags.
	flag.Parse()

	if cfg.Output == "" {
		cfg.Output = defaultOutput
	}
	if cfg.BinanceURL == "" {
		cfg.BinanceURL = fetch.DefaultBaseURL
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}

	return cfg.Validate()
}
