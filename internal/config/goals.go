package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
)

// LoadGoalsDefaults returns the plan used for years without stored goals.
// Keys present in the YAML file at path override domain.DefaultGoals; an
// empty path returns the built-in defaults.
func LoadGoalsDefaults(path string) (domain.FinancialGoals, error) {
	defaults := domain.DefaultGoals
	if path == "" {
		return defaults, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return defaults, fmt.Errorf("read goals defaults: %w", err)
	}
	if err := yaml.Unmarshal(raw, &defaults); err != nil {
		return domain.DefaultGoals, fmt.Errorf("parse goals defaults %s: %w", path, err)
	}
	defaults.Year = 0
	if err := defaults.Validate(); err != nil {
		return domain.DefaultGoals, fmt.Errorf("goals defaults %s: %w", path, err)
	}
	return defaults, nil
}
