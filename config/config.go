package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // timezone names must resolve in minimal containers

	"github.com/zllovesuki/subpulse/customer"
	"github.com/zllovesuki/subpulse/report"
	"github.com/zllovesuki/subpulse/spec"
	"github.com/zllovesuki/subpulse/subscription"
	"github.com/zllovesuki/subpulse/window"

	"github.com/go-playground/validator/v10"
	extErrors "github.com/pkg/errors"
	"github.com/spf13/viper"
)

var validate *validator.Validate = validator.New()

// Defining the data sources the reporter can read from
const (
	SourceStripe = "stripe"
	SourceMirror = "mirror"
)

// Defining the window sets
const (
	WindowsDashboard = "dashboard"
	WindowsMatrix    = "matrix"
	WindowsCustom    = "custom"
)

// Configuration is the reporter configuration, read from a config file and SUBPULSE_* variables
type Configuration struct {
	StripeKey     string        `mapstructure:"stripe_key"`
	Source        string        `mapstructure:"source" validate:"oneof=stripe mirror"`
	PostgresURI   string        `mapstructure:"postgres_uri"`
	SQLitePath    string        `mapstructure:"sqlite_path"`
	RedisURI      string        `mapstructure:"redis_uri"`
	RedisPassword string        `mapstructure:"redis_password"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
	AMQPURI       string        `mapstructure:"amqp_uri"`
	ListenAddr    string        `mapstructure:"listen_addr" validate:"required"`
	APISecret     string        `mapstructure:"api_secret" validate:"omitempty,min=16"`
	Interval      time.Duration `mapstructure:"interval" validate:"gt=0"`
	Timezone      string        `mapstructure:"timezone"`
	Parallel      bool          `mapstructure:"parallel"`
	Filter        string        `mapstructure:"filter"`

	Windows       string         `mapstructure:"windows" validate:"oneof=dashboard matrix custom"`
	CustomWindows []WindowConfig `mapstructure:"custom_windows" validate:"dive"`
	Plans         []PlanConfig   `mapstructure:"plans" validate:"dive"`
	PlansFile     string         `mapstructure:"plans_file"`
}

// WindowConfig describes one custom window
type WindowConfig struct {
	Label  string `mapstructure:"label"`
	Kind   string `mapstructure:"kind" validate:"oneof=day between rolling total"`
	Unit   string `mapstructure:"unit"`
	From   int    `mapstructure:"from" validate:"gte=0"`
	To     int    `mapstructure:"to" validate:"gte=0"`
	Count  int    `mapstructure:"count" validate:"gte=0"`
	ByPlan bool   `mapstructure:"by_plan"`
}

// PlanConfig maps a display name to a provider plan ID.
// Plans are a list since config keys lose their case.
type PlanConfig struct {
	Name string `mapstructure:"name" validate:"required"`
	ID   string `mapstructure:"id" validate:"required"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("stripe_key", "")
	v.SetDefault("source", SourceStripe)
	v.SetDefault("postgres_uri", "")
	v.SetDefault("sqlite_path", "")
	v.SetDefault("redis_uri", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("cache_ttl", spec.DefaultCacheTTL)
	v.SetDefault("amqp_uri", "")
	v.SetDefault("listen_addr", spec.DefaultListenAddr)
	v.SetDefault("api_secret", "")
	v.SetDefault("interval", spec.DefaultReportInterval)
	v.SetDefault("timezone", "")
	v.SetDefault("parallel", false)
	v.SetDefault("filter", "")
	v.SetDefault("windows", WindowsDashboard)
	v.SetDefault("plans_file", "")
}

// Load reads the configuration from path, or from subpulse.{yaml,json,...} in the
// working directory or /etc/subpulse when path is empty. A missing file is not an error.
func Load(path string) (*Configuration, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("subpulse")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/subpulse")
	}

	v.SetEnvPrefix("SUBPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, extErrors.Wrap(err, "Cannot read configuration file")
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, extErrors.Wrap(err, "Cannot decode configuration")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the configuration. Problems are returned as *report.ConfigError.
func (c Configuration) Validate() error {
	if err := validate.Struct(c); err != nil {
		return &report.ConfigError{
			Field:  "config",
			Reason: err.Error(),
		}
	}
	if c.Source == SourceStripe && c.StripeKey == "" {
		return &report.ConfigError{
			Field:  "stripe_key",
			Reason: "required when source is stripe",
		}
	}
	if c.Source == SourceMirror && c.PostgresURI == "" && c.SQLitePath == "" {
		return &report.ConfigError{
			Field:  "postgres_uri",
			Reason: "postgres_uri or sqlite_path is required when source is mirror",
		}
	}
	if c.StripeKey == "" && (len(c.Plans) > 0 || c.PlansFile != "") {
		return &report.ConfigError{
			Field:  "plans",
			Reason: "stripe_key is required to verify configured plans",
		}
	}
	if c.Windows == WindowsCustom && len(c.CustomWindows) == 0 {
		return &report.ConfigError{
			Field:  "custom_windows",
			Reason: "at least one window is required when windows is custom",
		}
	}
	return nil
}

func (w WindowConfig) definition() (window.Definition, error) {
	def := window.Definition{
		Label:  w.Label,
		Kind:   window.Kind(w.Kind),
		From:   w.From,
		To:     w.To,
		Count:  w.Count,
		ByPlan: w.ByPlan,
	}
	if w.Unit != "" {
		unit, err := window.ParseUnit(w.Unit)
		if err != nil {
			return def, err
		}
		def.Unit = unit
	}
	if def.Kind == window.KindDay {
		def.Unit = window.UnitDay
	}
	return def, def.Validate()
}

// Definitions returns the configured window list
func (c Configuration) Definitions() ([]window.Definition, error) {
	switch c.Windows {
	case WindowsDashboard:
		return window.Dashboard(), nil
	case WindowsMatrix:
		return window.Matrix(), nil
	}
	defs := make([]window.Definition, 0, len(c.CustomWindows))
	for i, w := range c.CustomWindows {
		def, err := w.definition()
		if err != nil {
			return nil, &report.ConfigError{
				Field:  fmt.Sprintf("custom_windows[%d]", i),
				Reason: err.Error(),
			}
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// Location returns the business time zone, time.Local when unset
func (c Configuration) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, &report.ConfigError{
			Field:  "timezone",
			Reason: err.Error(),
		}
	}
	return loc, nil
}

// PlanSet merges the plans_file with the inline plans, inline entries win
func (c Configuration) PlanSet() (subscription.Plans, error) {
	plans := subscription.Plans{}
	if c.PlansFile != "" {
		loaded, err := subscription.LoadPlansFromFile(c.PlansFile)
		if err != nil {
			return nil, &report.ConfigError{
				Field:  "plans_file",
				Reason: err.Error(),
			}
		}
		for name, id := range loaded {
			plans[name] = id
		}
	}
	for _, p := range c.Plans {
		plans[p.Name] = p.ID
	}
	return plans, nil
}

// Predicate compiles the customer filter expression, nil when unset
func (c Configuration) Predicate() (customer.Predicate, error) {
	predicate, err := customer.Compile(c.Filter)
	if err != nil {
		return nil, &report.ConfigError{
			Field:  "filter",
			Reason: err.Error(),
		}
	}
	return predicate, nil
}
