// Package config provides configuration management for the portfolio
// engine CLI.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"backfolio/internal/errors"
	"backfolio/internal/models"
	"backfolio/internal/portfolio"
	"backfolio/internal/signal"
	"backfolio/internal/strategy"
)

// Config holds all application configuration.
type Config struct {
	Portfolio PortfolioConfig          `mapstructure:"portfolio"`
	Signals   SignalsConfig            `mapstructure:"signals"`
	Backtest  BacktestConfig           `mapstructure:"backtest"`
	Storage   StorageConfig            `mapstructure:"storage"`
	UI        UIConfig                 `mapstructure:"ui"`
	Profiles  map[string]ProfileConfig `mapstructure:"profiles"`
}

// PortfolioConfig holds ledger defaults.
type PortfolioConfig struct {
	InitialCash float64 `mapstructure:"initial_cash" validate:"gt=0"`
	FeeRate     float64 `mapstructure:"fee_rate" validate:"gte=0,lt=1"`
}

// SignalsConfig holds signal combination weights.
type SignalsConfig struct {
	Weights        map[string]float64 `mapstructure:"weights"`
	FallbackWeight float64            `mapstructure:"fallback_weight" validate:"gte=0,lte=1"`
}

// BacktestConfig holds simulator defaults.
type BacktestConfig struct {
	DefaultProfile string `mapstructure:"default_profile" validate:"required"`
	ChartWidth     int    `mapstructure:"chart_width" validate:"gte=10"`
	ChartHeight    int    `mapstructure:"chart_height" validate:"gte=4"`
}

// StorageConfig holds run journal settings.
type StorageConfig struct {
	Path string `mapstructure:"path"` // empty means <configDir>/backfolio.db
}

// UIConfig holds display settings.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
}

// ProfileConfig overrides fields of a built-in risk profile. Zero
// fields keep the built-in value.
type ProfileConfig struct {
	MinConfidence       float64 `mapstructure:"min_confidence"`
	MaxPositionFraction float64 `mapstructure:"max_position_fraction"`
	StopLossFraction    float64 `mapstructure:"stop_loss_fraction"`
	TakeProfitFraction  float64 `mapstructure:"take_profit_fraction"`
	RequiredSignalCount int     `mapstructure:"required_signal_count"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/backfolio"
	}
	return filepath.Join(home, ".config", "backfolio")
}

// ConfigFilePath returns the config file location inside a directory.
func ConfigFilePath(configDir string) string {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	return filepath.Join(configDir, "config.toml")
}

// Load loads configuration from the specified directory. If configDir
// is empty, the default config directory is used. A missing config
// file is replaced by a starter template and the defaults are applied.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, errors.Wrap(err, "loading config.toml")
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating config")
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	// Set defaults
	v.SetDefault("portfolio.initial_cash", portfolio.DefaultInitialCash)
	v.SetDefault("portfolio.fee_rate", portfolio.DefaultFeeRate)
	v.SetDefault("signals.fallback_weight", signal.DefaultFallbackWeight)
	v.SetDefault("backtest.default_profile", strategy.ProfileModerate)
	v.SetDefault("backtest.chart_width", 60)
	v.SetDefault("backtest.chart_height", 12)
	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.date_format", "2006-01-02")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// First run: write a starter config, continue on defaults.
			if err := createTemplateConfig(configDir, name); err != nil {
				return err
			}
		} else {
			return err
		}
	}

	return v.Unmarshal(target)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BACKFOLIO_INITIAL_CASH"); v != "" {
		if cash, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Portfolio.InitialCash = cash
		}
	}
	if v := os.Getenv("BACKFOLIO_FEE_RATE"); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Portfolio.FeeRate = rate
		}
	}
	if v := os.Getenv("BACKFOLIO_PROFILE"); v != "" {
		cfg.Backtest.DefaultProfile = v
	}
	if v := os.Getenv("BACKFOLIO_DB_PATH"); v != "" {
		cfg.Storage.Path = v
	}
}

var validate = validator.New()

// Validate validates the configuration, including profile overrides.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrapf(errors.ErrConfigInvalid, "%v", err)
	}

	profiles, err := c.ResolveProfiles()
	if err != nil {
		return err
	}
	if _, ok := profiles[c.Backtest.DefaultProfile]; !ok {
		return errors.Wrapf(errors.ErrProfileUnknown, "default_profile %q", c.Backtest.DefaultProfile)
	}
	return nil
}

// ResolveProfiles returns the built-in profiles with config overrides
// applied. Overriding an unknown name defines a new profile, which
// must then pass full validation.
func (c *Config) ResolveProfiles() (map[string]strategy.Profile, error) {
	profiles := strategy.DefaultProfiles()
	for name, override := range c.Profiles {
		p, ok := profiles[name]
		if !ok {
			p = strategy.Profile{Name: name}
		}
		if override.MinConfidence != 0 {
			p.MinConfidence = override.MinConfidence
		}
		if override.MaxPositionFraction != 0 {
			p.MaxPositionFraction = override.MaxPositionFraction
		}
		if override.StopLossFraction != 0 {
			p.StopLossFraction = override.StopLossFraction
		}
		if override.TakeProfitFraction != 0 {
			p.TakeProfitFraction = override.TakeProfitFraction
		}
		if override.RequiredSignalCount != 0 {
			p.RequiredSignalCount = override.RequiredSignalCount
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		profiles[name] = p
	}
	return profiles, nil
}

// Profile resolves one profile by name after overrides.
func (c *Config) Profile(name string) (strategy.Profile, error) {
	profiles, err := c.ResolveProfiles()
	if err != nil {
		return strategy.Profile{}, err
	}
	p, ok := profiles[name]
	if !ok {
		return strategy.Profile{}, errors.Wrapf(errors.ErrProfileUnknown, "profile %q", name)
	}
	return p, nil
}

// CombinerConfig returns the configured signal weights.
func (c *Config) CombinerConfig() signal.CombinerConfig {
	var weights map[models.SignalSource]float64
	if len(c.Signals.Weights) > 0 {
		weights = make(map[models.SignalSource]float64, len(c.Signals.Weights))
		for source, w := range c.Signals.Weights {
			weights[models.SignalSource(source)] = w
		}
	}
	return signal.CombinerConfig{
		Weights:        weights,
		FallbackWeight: c.Signals.FallbackWeight,
	}
}

// DatabasePath returns the run journal location.
func (c *Config) DatabasePath(configDir string) string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	return filepath.Join(configDir, "backfolio.db")
}
