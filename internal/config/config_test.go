package config

import (
	"os"
	"path/filepath"
	"testing"

	"backfolio/internal/errors"
	"backfolio/internal/models"
	"backfolio/internal/strategy"
)

func clearEnvOverrides(t *testing.T) {
	t.Helper()
	for _, key := range []string{"BACKFOLIO_INITIAL_CASH", "BACKFOLIO_FEE_RATE", "BACKFOLIO_PROFILE", "BACKFOLIO_DB_PATH"} {
		t.Setenv(key, "")
	}
}

func baseConfig() *Config {
	return &Config{
		Portfolio: PortfolioConfig{InitialCash: 10000, FeeRate: 0.001},
		Signals:   SignalsConfig{FallbackWeight: 0.33},
		Backtest:  BacktestConfig{DefaultProfile: strategy.ProfileModerate, ChartWidth: 60, ChartHeight: 12},
		UI:        UIConfig{ColorEnabled: true, DateFormat: "2006-01-02"},
	}
}

func TestLoadCreatesTemplateAndAppliesDefaults(t *testing.T) {
	clearEnvOverrides(t)
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if _, err := os.Stat(ConfigFilePath(dir)); err != nil {
		t.Errorf("First load should write a starter config.toml: %v", err)
	}

	if cfg.Portfolio.InitialCash != 10000 {
		t.Errorf("InitialCash = %v, want 10000", cfg.Portfolio.InitialCash)
	}
	if cfg.Portfolio.FeeRate != 0.001 {
		t.Errorf("FeeRate = %v, want 0.001", cfg.Portfolio.FeeRate)
	}
	if cfg.Signals.FallbackWeight != 0.33 {
		t.Errorf("FallbackWeight = %v, want 0.33", cfg.Signals.FallbackWeight)
	}
	if cfg.Backtest.DefaultProfile != strategy.ProfileModerate {
		t.Errorf("DefaultProfile = %q, want moderate", cfg.Backtest.DefaultProfile)
	}
	if cfg.Backtest.ChartWidth != 60 || cfg.Backtest.ChartHeight != 12 {
		t.Errorf("Chart dimensions = %dx%d, want 60x12", cfg.Backtest.ChartWidth, cfg.Backtest.ChartHeight)
	}
	if !cfg.UI.ColorEnabled {
		t.Error("ColorEnabled should default to true")
	}
	if cfg.UI.DateFormat != "2006-01-02" {
		t.Errorf("DateFormat = %q, want 2006-01-02", cfg.UI.DateFormat)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	clearEnvOverrides(t)
	dir := t.TempDir()

	content := `[portfolio]
initial_cash = 25000.0
fee_rate = 0.002

[backtest]
default_profile = "aggressive"
`
	if err := os.WriteFile(ConfigFilePath(dir), []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Portfolio.InitialCash != 25000 {
		t.Errorf("InitialCash = %v, want 25000", cfg.Portfolio.InitialCash)
	}
	if cfg.Portfolio.FeeRate != 0.002 {
		t.Errorf("FeeRate = %v, want 0.002", cfg.Portfolio.FeeRate)
	}
	if cfg.Backtest.DefaultProfile != strategy.ProfileAggressive {
		t.Errorf("DefaultProfile = %q, want aggressive", cfg.Backtest.DefaultProfile)
	}
	// Unset keys keep their defaults.
	if cfg.Backtest.ChartWidth != 60 {
		t.Errorf("ChartWidth = %d, want the 60 default", cfg.Backtest.ChartWidth)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnvOverrides(t)
	t.Setenv("BACKFOLIO_INITIAL_CASH", "50000")
	t.Setenv("BACKFOLIO_FEE_RATE", "0.005")
	t.Setenv("BACKFOLIO_PROFILE", strategy.ProfileConservative)
	t.Setenv("BACKFOLIO_DB_PATH", "/tmp/runs.db")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Portfolio.InitialCash != 50000 {
		t.Errorf("InitialCash = %v, want the 50000 override", cfg.Portfolio.InitialCash)
	}
	if cfg.Portfolio.FeeRate != 0.005 {
		t.Errorf("FeeRate = %v, want the 0.005 override", cfg.Portfolio.FeeRate)
	}
	if cfg.Backtest.DefaultProfile != strategy.ProfileConservative {
		t.Errorf("DefaultProfile = %q, want conservative", cfg.Backtest.DefaultProfile)
	}
	if cfg.Storage.Path != "/tmp/runs.db" {
		t.Errorf("Storage.Path = %q, want /tmp/runs.db", cfg.Storage.Path)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	clearEnvOverrides(t)

	tests := []struct {
		name    string
		content string
		target  error
	}{
		{
			"negative cash",
			"[portfolio]\ninitial_cash = -5.0\n",
			errors.ErrConfigInvalid,
		},
		{
			"fee rate at one",
			"[portfolio]\nfee_rate = 1.0\n",
			errors.ErrConfigInvalid,
		},
		{
			"unknown default profile",
			"[backtest]\ndefault_profile = \"yolo\"\n",
			errors.ErrProfileUnknown,
		},
		{
			"chart too narrow",
			"[backtest]\nchart_width = 5\n",
			errors.ErrConfigInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(ConfigFilePath(dir), []byte(tt.content), 0o644); err != nil {
				t.Fatalf("Failed to write config: %v", err)
			}

			_, err := Load(dir)
			if !errors.Is(err, tt.target) {
				t.Errorf("Load error = %v, want target %v", err, tt.target)
			}
		})
	}
}

func TestResolveProfilesAppliesOverrides(t *testing.T) {
	cfg := baseConfig()
	cfg.Profiles = map[string]ProfileConfig{
		strategy.ProfileModerate: {MinConfidence: 0.55, MaxPositionFraction: 0.25},
	}

	profiles, err := cfg.ResolveProfiles()
	if err != nil {
		t.Fatalf("ResolveProfiles failed: %v", err)
	}

	moderate := profiles[strategy.ProfileModerate]
	if moderate.MinConfidence != 0.55 {
		t.Errorf("MinConfidence = %v, want the 0.55 override", moderate.MinConfidence)
	}
	if moderate.MaxPositionFraction != 0.25 {
		t.Errorf("MaxPositionFraction = %v, want the 0.25 override", moderate.MaxPositionFraction)
	}
	// Zero override fields keep the built-in values.
	if moderate.StopLossFraction != 0.08 {
		t.Errorf("StopLossFraction = %v, want the 0.08 built-in", moderate.StopLossFraction)
	}
	if moderate.RequiredSignalCount != 1 {
		t.Errorf("RequiredSignalCount = %d, want the built-in 1", moderate.RequiredSignalCount)
	}

	// Untouched profiles pass through unchanged.
	if profiles[strategy.ProfileConservative] != strategy.DefaultProfiles()[strategy.ProfileConservative] {
		t.Error("Conservative profile should be unchanged")
	}
}

func TestResolveProfilesDefinesCustomProfile(t *testing.T) {
	cfg := baseConfig()
	cfg.Profiles = map[string]ProfileConfig{
		"scalper": {
			MinConfidence:       0.30,
			MaxPositionFraction: 0.05,
			StopLossFraction:    0.02,
			TakeProfitFraction:  0.04,
			RequiredSignalCount: 1,
		},
	}

	profiles, err := cfg.ResolveProfiles()
	if err != nil {
		t.Fatalf("ResolveProfiles failed: %v", err)
	}

	scalper, ok := profiles["scalper"]
	if !ok {
		t.Fatal("Custom profile missing")
	}
	if scalper.Name != "scalper" {
		t.Errorf("Name = %q, want scalper", scalper.Name)
	}
	if scalper.MaxPositionFraction != 0.05 {
		t.Errorf("MaxPositionFraction = %v, want 0.05", scalper.MaxPositionFraction)
	}
	if len(profiles) != 4 {
		t.Errorf("len(profiles) = %d, want the three built-ins plus one", len(profiles))
	}
}

func TestResolveProfilesRejectsIncompleteCustomProfile(t *testing.T) {
	cfg := baseConfig()
	// A new name starts from a zero profile, so every bounded field must
	// be supplied.
	cfg.Profiles = map[string]ProfileConfig{
		"partial": {MinConfidence: 0.5},
	}

	if _, err := cfg.ResolveProfiles(); !errors.Is(err, errors.ErrConfigInvalid) {
		t.Errorf("Expected ErrConfigInvalid, got %v", err)
	}
}

func TestConfigProfileLookup(t *testing.T) {
	cfg := baseConfig()

	profile, err := cfg.Profile(strategy.ProfileModerate)
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if profile.Name != strategy.ProfileModerate {
		t.Errorf("Name = %q, want moderate", profile.Name)
	}

	if _, err := cfg.Profile("ghost"); !errors.Is(err, errors.ErrProfileUnknown) {
		t.Errorf("Expected ErrProfileUnknown, got %v", err)
	}
}

func TestCombinerConfig(t *testing.T) {
	cfg := baseConfig()
	cfg.Signals.Weights = map[string]float64{"lstm": 0.5, "SVM": 0.5}

	cc := cfg.CombinerConfig()

	if cc.FallbackWeight != 0.33 {
		t.Errorf("FallbackWeight = %v, want 0.33", cc.FallbackWeight)
	}
	if cc.Weights[models.SignalSource("lstm")] != 0.5 {
		t.Errorf("Weights[lstm] = %v, want 0.5", cc.Weights["lstm"])
	}

	cfg.Signals.Weights = nil
	if cc := cfg.CombinerConfig(); cc.Weights != nil {
		t.Errorf("Empty weights should map to nil, got %v", cc.Weights)
	}
}

func TestDatabasePath(t *testing.T) {
	cfg := baseConfig()

	if got := cfg.DatabasePath("/etc/backfolio"); got != filepath.Join("/etc/backfolio", "backfolio.db") {
		t.Errorf("DatabasePath = %q", got)
	}

	cfg.Storage.Path = "/var/lib/runs.db"
	if got := cfg.DatabasePath("/etc/backfolio"); got != "/var/lib/runs.db" {
		t.Errorf("DatabasePath = %q, want the explicit storage path", got)
	}
}

func TestValidateDirect(t *testing.T) {
	if err := baseConfig().Validate(); err != nil {
		t.Errorf("Base config should validate: %v", err)
	}

	cfg := baseConfig()
	cfg.Backtest.DefaultProfile = ""
	if err := cfg.Validate(); !errors.Is(err, errors.ErrConfigInvalid) {
		t.Errorf("Expected ErrConfigInvalid for missing profile, got %v", err)
	}

	cfg = baseConfig()
	cfg.Portfolio.FeeRate = -0.1
	if err := cfg.Validate(); !errors.Is(err, errors.ErrConfigInvalid) {
		t.Errorf("Expected ErrConfigInvalid for negative fee, got %v", err)
	}
}
