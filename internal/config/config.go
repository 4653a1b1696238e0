package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/music-school-planner/internal/calculator"
	"github.com/eugenenazirov/music-school-planner/internal/catalog"
	"github.com/eugenenazirov/music-school-planner/internal/logging"
)

const (
	defaultPort           = "8080"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
	defaultEnvFile        = ".env"
)

// Catalog source kinds.
const (
	SourceBuiltin = "builtin"
	SourceCSV     = "csv"
	SourceSheets  = "sheets"
)

// SourceConfig selects where the catalog grid is read from.
type SourceConfig struct {
	Kind            string `yaml:"kind"`
	CSVPath         string `yaml:"csv_path"`
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	SheetName       string `yaml:"sheet_name"`
	CredentialsFile string `yaml:"credentials_file"`
}

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Port                 string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int
	AllowedOrigins       []string
	LogEnv               string

	Source      SourceConfig
	LoadTimeout time.Duration
	Layout      catalog.Layout
	Policy      calculator.Policy
}

// yamlConfig represents the YAML configuration file structure. Pointer
// fields distinguish "absent" from an explicit zero.
type yamlConfig struct {
	Port                 string          `yaml:"port"`
	ShutdownGracePeriod  string          `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string          `yaml:"read_header_timeout"`
	WriteTimeout         string          `yaml:"write_timeout"`
	IdleTimeout          string          `yaml:"idle_timeout"`
	EnableRequestLogging *bool           `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit   `yaml:"rate_limit"`
	AllowedOrigins       []string        `yaml:"allowed_origins"`
	LogEnv               string          `yaml:"log_env"`
	Source               SourceConfig    `yaml:"source"`
	LoadTimeout          string          `yaml:"load_timeout"`
	Layout               *catalog.Layout `yaml:"layout"`
	Policy               yamlPolicy      `yaml:"policy"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

type yamlPolicy struct {
	MinStudentsPerClass      *int     `yaml:"min_students_per_class"`
	HourlyRate               *float64 `yaml:"hourly_rate"`
	AvailableHoursPerWeek    *float64 `yaml:"available_hours_per_week"`
	Contributions            *float64 `yaml:"contributions"`
	FixedCosts               *float64 `yaml:"fixed_costs"`
	IncludeFixedCostsInTotal *bool    `yaml:"include_fixed_costs_in_total"`
}

// CLIOverrides holds command-line flag overrides. Nil pointers mean the flag
// was not given.
type CLIOverrides struct {
	ConfigFile string
	EnvFile    string

	Port           *string
	RateLimitRPS   *float64
	RateLimitBurst *int
	LogEnv         *string

	SourceKind      *string
	CSVPath         *string
	SpreadsheetID   *string
	SheetName       *string
	CredentialsFile *string

	MinStudentsPerClass      *int
	HourlyRate               *float64
	AvailableHoursPerWeek    *float64
	Contributions            *float64
	FixedCosts               *float64
	IncludeFixedCostsInTotal *bool
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults.
// Variables from an env file are only applied when not already set in the
// process environment.
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	envFile := defaultEnvFile
	if overrides != nil && overrides.EnvFile != "" {
		envFile = overrides.EnvFile
	}
	if err := godotenv.Load(envFile); err != nil {
		explicit := overrides != nil && overrides.EnvFile != ""
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	if err := applyEnvConfig(&cfg); err != nil {
		return Config{}, err
	}

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		LogEnv:               logging.EnvProduction,
		Source:               SourceConfig{Kind: SourceBuiltin},
		LoadTimeout:          15 * time.Second,
		Layout:               catalog.DefaultLayout(),
		Policy:               calculator.DefaultPolicy(),
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	durations := []struct {
		name  string
		raw   string
		field *time.Duration
	}{
		{"shutdown_grace_period", yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{"read_header_timeout", yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{"write_timeout", yamlCfg.WriteTimeout, &cfg.WriteTimeout},
		{"idle_timeout", yamlCfg.IdleTimeout, &cfg.IdleTimeout},
		{"load_timeout", yamlCfg.LoadTimeout, &cfg.LoadTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.field = v
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}
	if yamlCfg.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}
	if yamlCfg.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}
	if len(yamlCfg.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = yamlCfg.AllowedOrigins
	}
	if yamlCfg.LogEnv != "" {
		cfg.LogEnv = yamlCfg.LogEnv
	}

	mergeSource(&cfg.Source, yamlCfg.Source)
	if yamlCfg.Layout != nil {
		cfg.Layout = *yamlCfg.Layout
	}

	p := yamlCfg.Policy
	if p.MinStudentsPerClass != nil {
		cfg.Policy.MinStudentsPerClass = *p.MinStudentsPerClass
	}
	if p.HourlyRate != nil {
		cfg.Policy.HourlyRate = *p.HourlyRate
	}
	if p.AvailableHoursPerWeek != nil {
		cfg.Policy.AvailableHoursPerWeek = *p.AvailableHoursPerWeek
	}
	if p.Contributions != nil {
		cfg.Policy.Contributions = *p.Contributions
	}
	if p.FixedCosts != nil {
		cfg.Policy.FixedCosts = *p.FixedCosts
	}
	if p.IncludeFixedCostsInTotal != nil {
		cfg.Policy.IncludeFixedCostsInTotal = *p.IncludeFixedCostsInTotal
	}

	return nil
}

func mergeSource(dst *SourceConfig, src SourceConfig) {
	if src.Kind != "" {
		dst.Kind = src.Kind
	}
	if src.CSVPath != "" {
		dst.CSVPath = src.CSVPath
	}
	if src.SpreadsheetID != "" {
		dst.SpreadsheetID = src.SpreadsheetID
	}
	if src.SheetName != "" {
		dst.SheetName = src.SheetName
	}
	if src.CredentialsFile != "" {
		dst.CredentialsFile = src.CredentialsFile
	}
}

// applyEnvConfig applies environment variable configuration. Malformed
// numeric values are reported rather than ignored.
func applyEnvConfig(cfg *Config) error {
	if port := env("PORT"); port != "" {
		cfg.Port = port
	}
	if v := env("LOG_ENV"); v != "" {
		cfg.LogEnv = v
	}
	if v := env("CORS_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}

	mergeSource(&cfg.Source, SourceConfig{
		Kind:            env("CATALOG_SOURCE"),
		CSVPath:         env("CATALOG_CSV_PATH"),
		SpreadsheetID:   env("SPREADSHEET_ID"),
		SheetName:       env("SHEET_NAME"),
		CredentialsFile: env("GOOGLE_CREDS_FILE"),
	})

	var errs []error
	parseFloat := func(key string, dst *float64) {
		if raw := env(key); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: invalid number %q", key, raw))
				return
			}
			*dst = v
		}
	}
	parseInt := func(key string, dst *int) {
		if raw := env(key); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: invalid integer %q", key, raw))
				return
			}
			*dst = v
		}
	}

	parseFloat("RATE_LIMIT_RPS", &cfg.RateLimitRPS)
	parseInt("RATE_LIMIT_BURST", &cfg.RateLimitBurst)
	parseInt("MIN_STUDENTS_PER_CLASS", &cfg.Policy.MinStudentsPerClass)
	parseFloat("HOURLY_RATE", &cfg.Policy.HourlyRate)
	parseFloat("AVAILABLE_HOURS_PER_WEEK", &cfg.Policy.AvailableHoursPerWeek)
	parseFloat("CONTRIBUTIONS", &cfg.Policy.Contributions)
	parseFloat("FIXED_COSTS", &cfg.Policy.FixedCosts)

	if raw := env("INCLUDE_FIXED_COSTS"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("INCLUDE_FIXED_COSTS: invalid boolean %q", raw))
		} else {
			cfg.Policy.IncludeFixedCostsInTotal = v
		}
	}
	if raw := env("CATALOG_LOAD_TIMEOUT"); raw != "" {
		v, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("CATALOG_LOAD_TIMEOUT: %w", err))
		} else {
			cfg.LoadTimeout = v
		}
	}

	return errors.Join(errs...)
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, o *CLIOverrides) {
	setString := func(dst *string, v *string) {
		if v != nil && *v != "" {
			*dst = *v
		}
	}
	setString(&cfg.Port, o.Port)
	setString(&cfg.LogEnv, o.LogEnv)
	setString(&cfg.Source.Kind, o.SourceKind)
	setString(&cfg.Source.CSVPath, o.CSVPath)
	setString(&cfg.Source.SpreadsheetID, o.SpreadsheetID)
	setString(&cfg.Source.SheetName, o.SheetName)
	setString(&cfg.Source.CredentialsFile, o.CredentialsFile)

	if o.RateLimitRPS != nil && *o.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *o.RateLimitRPS
	}
	if o.RateLimitBurst != nil && *o.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *o.RateLimitBurst
	}

	if o.MinStudentsPerClass != nil {
		cfg.Policy.MinStudentsPerClass = *o.MinStudentsPerClass
	}
	if o.HourlyRate != nil {
		cfg.Policy.HourlyRate = *o.HourlyRate
	}
	if o.AvailableHoursPerWeek != nil {
		cfg.Policy.AvailableHoursPerWeek = *o.AvailableHoursPerWeek
	}
	if o.Contributions != nil {
		cfg.Policy.Contributions = *o.Contributions
	}
	if o.FixedCosts != nil {
		cfg.Policy.FixedCosts = *o.FixedCosts
	}
	if o.IncludeFixedCostsInTotal != nil {
		cfg.Policy.IncludeFixedCostsInTotal = *o.IncludeFixedCostsInTotal
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if cfg.LogEnv != logging.EnvProduction && cfg.LogEnv != logging.EnvDevelopment {
		return fmt.Errorf("log env must be %q or %q, got %q", logging.EnvProduction, logging.EnvDevelopment, cfg.LogEnv)
	}

	switch cfg.Source.Kind {
	case SourceBuiltin:
	case SourceCSV:
		if cfg.Source.CSVPath == "" {
			return fmt.Errorf("csv source requires a file path")
		}
	case SourceSheets:
		if cfg.Source.SpreadsheetID == "" || cfg.Source.SheetName == "" {
			return fmt.Errorf("sheets source requires spreadsheet id and sheet name")
		}
	default:
		return fmt.Errorf("unknown catalog source %q", cfg.Source.Kind)
	}

	p := cfg.Policy
	switch {
	case p.MinStudentsPerClass < 1 || p.MinStudentsPerClass > 15:
		return fmt.Errorf("min students per class must be between 1 and 15, got %d", p.MinStudentsPerClass)
	case p.HourlyRate < 0 || p.HourlyRate > 100:
		return fmt.Errorf("hourly rate must be between 0 and 100, got %v", p.HourlyRate)
	case p.AvailableHoursPerWeek < 1 || p.AvailableHoursPerWeek > 500:
		return fmt.Errorf("available hours per week must be between 1 and 500, got %v", p.AvailableHoursPerWeek)
	case p.Contributions < 0 || p.Contributions > 20000:
		return fmt.Errorf("contributions must be between 0 and 20000, got %v", p.Contributions)
	case p.FixedCosts < 0 || p.FixedCosts > 10000:
		return fmt.Errorf("fixed costs must be between 0 and 10000, got %v", p.FixedCosts)
	}

	for name, r := range map[string]catalog.Range{
		"prices":          cfg.Layout.Prices,
		"duration_prices": cfg.Layout.DurationPrices,
		"enrollments":     cfg.Layout.Enrollments,
		"specials":        cfg.Layout.Specials,
	} {
		if r.RowStart < 0 || r.ColStart < 0 || r.RowEnd <= r.RowStart || r.ColEnd <= r.ColStart {
			return fmt.Errorf("layout %s: empty or negative range %+v", name, r)
		}
	}

	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
