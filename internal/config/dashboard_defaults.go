package config

import (
	"fmt"
	"os"

	"github.com/boddenberg/project-portal-go/internal/domain"

	"gopkg.in/yaml.v3"
)

// LoadDashboardDefaults returns the built-in dashboard default overlaid with
// the YAML file at path. An empty path returns the built-in default.
func LoadDashboardDefaults(path string) (domain.DashboardConfig, error) {
	def := domain.DefaultDashboardConfig()
	if path == "" {
		return def, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return def, fmt.Errorf("read dashboard defaults: %w", err)
	}

	var overlay domain.DashboardConfig
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return def, fmt.Errorf("parse dashboard defaults: %w", err)
	}
	if err := overlay.Validate(); err != nil {
		return def, err
	}
	return domain.MergeDashboardConfig(def, &overlay), nil
}
