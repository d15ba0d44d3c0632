package cmd

import (
	"fmt"
	"os"

	"github.com/solatis/routekeeper/internal/assignment"
	"github.com/solatis/routekeeper/internal/core/config"
	"github.com/solatis/routekeeper/internal/outcome"
	"github.com/solatis/routekeeper/internal/rules"
)

// loadRegistry returns the configured action catalog, or the embedded one.
func loadRegistry(cfg config.CatalogConfig) (*outcome.Registry, error) {
	if cfg.ActionsFile == "" {
		return outcome.DefaultRegistry(), nil
	}
	f, err := os.Open(cfg.ActionsFile)
	if err != nil {
		return nil, fmt.Errorf("open action catalog: %w", err)
	}
	defer f.Close()
	return outcome.LoadRegistry(f)
}

// loadEngine returns an engine over the configured variable catalog. No
// file means no catalog checks.
func loadEngine(cfg config.CatalogConfig) (*rules.Engine, error) {
	if cfg.VariablesFile == "" {
		return rules.NewEngine(nil), nil
	}
	f, err := os.Open(cfg.VariablesFile)
	if err != nil {
		return nil, fmt.Errorf("open variable catalog: %w", err)
	}
	defer f.Close()
	catalog, err := rules.LoadCatalog(f)
	if err != nil {
		return nil, err
	}
	return rules.NewEngine(catalog), nil
}

// loadDirectory returns the configured user directory, or an empty one.
func loadDirectory(cfg config.CatalogConfig) (assignment.Directory, error) {
	if cfg.UsersFile == "" {
		return assignment.NewStaticDirectory(), nil
	}
	f, err := os.Open(cfg.UsersFile)
	if err != nil {
		return nil, fmt.Errorf("open users file: %w", err)
	}
	defer f.Close()
	return assignment.LoadDirectory(f)
}
