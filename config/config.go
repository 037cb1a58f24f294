package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimeout           = 2 * time.Minute
	defaultRequestsPerSecond = 20.0
	defaultUsername          = "admin"

	defaultDemoPassword  = "demo"
	defaultCountry       = "AR"
	defaultCurrency      = "ARS"
	defaultCompanyName   = "Union Papelera Platense"
	defaultCompanyTaxID  = "30709170046"
	defaultChartTemplate = "Plan Contable Argentino para Cooperativas"
	defaultLanguage      = "es"

	defaultCron    = "0 3 * * *"
	defaultListen  = ":8080"
	defaultHistory = 50

	defaultMetricsPrefix = "demoseed"
	defaultJobName       = "demoseed"

	defaultLogLevel  = "info"
	defaultLogFormat = "json"
	defaultLogOutput = "stdout"

	redacted = "********"
)

// DefaultModules is the module set requested when the config names none.
var DefaultModules = []string{
	"account",
	"account_invoice",
	"account_statement",
	"company",
	"party",
	"product",
	"purchase",
	"sale",
	"stock",
	"project",
	"timesheet",
	"production",
	"production_routing",
	"production_work",
	"party_ar",
	"account_voucher_ar",
	"account_invoice_ar",
	"sale_pos_ar",
}

// Config is the complete application configuration.
type Config struct {
	Target     TargetConfig     `yaml:"target"`
	Modules    []string         `yaml:"modules" env:"DEMOSEED_MODULES" envSeparator:","`
	Demo       DemoConfig       `yaml:"demo"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// TargetConfig locates the platform being seeded.
type TargetConfig struct {
	// URL is the base URL of the platform's JSON-RPC endpoint.
	URL      string `yaml:"url" env:"DEMOSEED_URL"`
	Database string `yaml:"database" env:"DEMOSEED_DATABASE"`
	Username string `yaml:"username" env:"DEMOSEED_USERNAME"`
	Password string `yaml:"password" env:"DEMOSEED_PASSWORD"`

	// Timeout bounds a single remote call.
	Timeout time.Duration `yaml:"timeout"`

	// RequestsPerSecond throttles remote calls. Zero disables throttling.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// DemoConfig shapes the seeded dataset.
type DemoConfig struct {
	// Password is given to the demo users created at the end of a run.
	Password string `yaml:"password" env:"DEMOSEED_DEMO_PASSWORD"`

	// Seed makes a run reproducible. Zero draws a random seed.
	Seed uint64 `yaml:"seed" env:"DEMOSEED_SEED"`

	// Today overrides the reference date (YYYY-MM-DD) documents are dated
	// around. Empty means the current date.
	Today string `yaml:"today"`

	Country       string `yaml:"country"`
	Currency      string `yaml:"currency"`
	CompanyName   string `yaml:"company_name"`
	CompanyTaxID  string `yaml:"company_tax_id"`
	ChartTemplate string `yaml:"chart_template"`
	Language      string `yaml:"language"`
}

// ScheduleConfig drives the schedule command.
type ScheduleConfig struct {
	// Cron holds one or more cron expressions separated by semicolons.
	Cron   string `yaml:"cron" env:"DEMOSEED_CRON"`
	Listen string `yaml:"listen" env:"DEMOSEED_LISTEN"`

	// StateDir keeps the run history across restarts. Empty keeps it in
	// memory only.
	StateDir string `yaml:"state_dir"`
	// History is the number of runs kept.
	History int `yaml:"history"`

	// TLSCert and TLSKey serve the API over HTTPS when both are set. The
	// pair is re-read when the files change.
	TLSCert string `yaml:"tls_cert"`
	TLSKey  string `yaml:"tls_key"`
}

// MonitoringConfig holds metrics settings.
type MonitoringConfig struct {
	VictoriaMetricsURL string `yaml:"victoriametrics_url" env:"DEMOSEED_VICTORIAMETRICS_URL"`
	MetricsPrefix      string `yaml:"metrics_prefix"`
	JobName            string `yaml:"jobname"`
}

// LoggingConfig defines logging behavior settings
type LoggingConfig struct {
	Level     string `yaml:"level" env:"DEMOSEED_LOG_LEVEL"`
	Format    string `yaml:"format"`
	Output    string `yaml:"output"`
	AddSource bool   `yaml:"add_source"`
}

// Validate performs basic validation on the configuration
func (c *Config) Validate() error {
	if c.Target.URL == "" {
		return fmt.Errorf("target url is required")
	}
	if c.Target.Database == "" {
		return fmt.Errorf("target database is required")
	}
	if c.Target.Timeout <= 0 {
		return fmt.Errorf("target timeout must be positive")
	}
	if c.Target.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second must not be negative")
	}
	if len(c.Modules) == 0 {
		return fmt.Errorf("at least one module is required")
	}
	if c.Demo.Today != "" {
		if _, err := time.Parse(time.DateOnly, c.Demo.Today); err != nil {
			return fmt.Errorf("demo today: %w", err)
		}
	}
	if c.Schedule.History < 0 {
		return fmt.Errorf("schedule history must not be negative")
	}
	if (c.Schedule.TLSCert == "") != (c.Schedule.TLSKey == "") {
		return fmt.Errorf("schedule tls_cert and tls_key must be set together")
	}
	return nil
}

// SetDefaults sets reasonable default values for optional fields
func (c *Config) SetDefaults() {
	if c.Target.Username == "" {
		c.Target.Username = defaultUsername
	}
	if c.Target.Timeout == 0 {
		c.Target.Timeout = defaultTimeout
	}
	if c.Target.RequestsPerSecond == 0 {
		c.Target.RequestsPerSecond = defaultRequestsPerSecond
	}
	if len(c.Modules) == 0 {
		c.Modules = append([]string(nil), DefaultModules...)
	}
	if c.Demo.Password == "" {
		c.Demo.Password = defaultDemoPassword
	}
	if c.Demo.Country == "" {
		c.Demo.Country = defaultCountry
	}
	if c.Demo.Currency == "" {
		c.Demo.Currency = defaultCurrency
	}
	if c.Demo.CompanyName == "" {
		c.Demo.CompanyName = defaultCompanyName
		if c.Demo.CompanyTaxID == "" {
			c.Demo.CompanyTaxID = defaultCompanyTaxID
		}
	}
	if c.Demo.ChartTemplate == "" {
		c.Demo.ChartTemplate = defaultChartTemplate
	}
	if c.Demo.Language == "" {
		c.Demo.Language = defaultLanguage
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = defaultCron
	}
	if c.Schedule.Listen == "" {
		c.Schedule.Listen = defaultListen
	}
	if c.Schedule.History == 0 {
		c.Schedule.History = defaultHistory
	}
	if c.Monitoring.MetricsPrefix == "" {
		c.Monitoring.MetricsPrefix = defaultMetricsPrefix
	}
	if c.Monitoring.JobName == "" {
		c.Monitoring.JobName = defaultJobName
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.Output == "" {
		c.Logging.Output = defaultLogOutput
	}
}

// ReferenceDate returns the configured reference date, or now's date.
func (c *Config) ReferenceDate(now time.Time) time.Time {
	if c.Demo.Today != "" {
		if t, err := time.Parse(time.DateOnly, c.Demo.Today); err == nil {
			return t
		}
	}
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Redacted returns a copy safe to show: passwords are masked.
func (c Config) Redacted() Config {
	c.Modules = append([]string(nil), c.Modules...)
	if c.Target.Password != "" {
		c.Target.Password = redacted
	}
	if c.Demo.Password != "" {
		c.Demo.Password = redacted
	}
	return c
}

// ApplyEnv overrides fields from DEMOSEED_* environment variables.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Override adjusts a loaded config, e.g. from command line flags.
type Override func(*Config)

// LoadConfig reads the YAML config file at path, applies environment
// overrides, then overrides, then defaults, and validates the result.
func LoadConfig(path string, overrides ...Override) (Config, error) {
	var cfg Config
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	for _, o := range overrides {
		o(&cfg)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
