// Package strategy maps combined signal decisions to trade
// recommendations under a named risk profile.
package strategy

import (
	"sort"

	"github.com/go-playground/validator/v10"

	"backfolio/internal/errors"
)

// Built-in profile names.
const (
	ProfileConservative = "conservative"
	ProfileModerate     = "moderate"
	ProfileAggressive   = "aggressive"
)

// Profile is a named risk profile. Fractions are expressed as values in
// [0, 1], not percents.
type Profile struct {
	Name                string  `validate:"required"`
	MinConfidence       float64 `validate:"gte=0,lte=1"`
	MaxPositionFraction float64 `validate:"gt=0,lte=1"`
	StopLossFraction    float64 `validate:"gt=0,lt=1"`
	TakeProfitFraction  float64 `validate:"gt=0,lte=1"`
	RequiredSignalCount int     `validate:"gte=1"`
}

var validate = validator.New()

// Validate checks the profile fields against their allowed ranges.
func (p Profile) Validate() error {
	if err := validate.Struct(p); err != nil {
		return errors.Wrapf(errors.ErrConfigInvalid, "profile %q: %v", p.Name, err)
	}
	return nil
}

// DefaultProfiles returns the three built-in risk profiles.
func DefaultProfiles() map[string]Profile {
	return map[string]Profile{
		ProfileConservative: {
			Name:                ProfileConservative,
			MinConfidence:       0.80,
			MaxPositionFraction: 0.10,
			StopLossFraction:    0.05,
			TakeProfitFraction:  0.15,
			RequiredSignalCount: 2,
		},
		ProfileModerate: {
			Name:                ProfileModerate,
			MinConfidence:       0.60,
			MaxPositionFraction: 0.20,
			StopLossFraction:    0.08,
			TakeProfitFraction:  0.25,
			RequiredSignalCount: 1,
		},
		ProfileAggressive: {
			Name:                ProfileAggressive,
			MinConfidence:       0.40,
			MaxPositionFraction: 0.30,
			StopLossFraction:    0.12,
			TakeProfitFraction:  0.40,
			RequiredSignalCount: 1,
		},
	}
}

// ProfileByName looks up a built-in profile.
func ProfileByName(name string) (Profile, error) {
	profile, ok := DefaultProfiles()[name]
	if !ok {
		return Profile{}, errors.Wrapf(errors.ErrProfileUnknown, "profile %q", name)
	}
	return profile, nil
}

// ProfileNames returns the built-in profile names in risk order.
func ProfileNames() []string {
	return []string{ProfileConservative, ProfileModerate, ProfileAggressive}
}

// Profiles returns the built-in profiles sorted by name.
func Profiles() []Profile {
	defaults := DefaultProfiles()
	names := make([]string, 0, len(defaults))
	for name := range defaults {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Profile, 0, len(names))
	for _, name := range names {
		out = append(out, defaults[name])
	}
	return out
}
