package config

import (
	"os"
	"path/filepath"

	"backfolio/internal/errors"
)

const configTemplate = `# Backfolio Configuration

[portfolio]
# Starting cash balance
initial_cash = 10000.0
# Proportional fee charged on both sides of a trade
fee_rate = 0.001

[signals]
# Weight applied to sources without an explicit weight
fallback_weight = 0.33

# Per-source combination weights
[signals.weights]
SVM = 0.3
LSTM = 0.4
NLP = 0.3

[backtest]
# Profile used when --profile is not given: conservative, moderate, aggressive
default_profile = "moderate"
# ASCII equity chart dimensions
chart_width = 60
chart_height = 12

[storage]
# Run journal database location; empty means <config dir>/backfolio.db
path = ""

[ui]
# Enable colored output
color_enabled = true
# Date format for tables
date_format = "2006-01-02"

# Override built-in profile fields; omitted fields keep their defaults.
# [profiles.moderate]
# min_confidence = 0.55
# max_position_fraction = 0.25
`

func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return errors.Wrap(err, "creating config directory")
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return errors.Wrap(err, "writing config template")
	}

	return nil
}
