// Package config loads and validates the YAML-driven BacktestConfig/FeedConfig pair
// (spec.md §6), grounded on the teacher's GenerateSchemaJSON pattern but using
// struct-tag validation instead of a hand-rolled UnmarshalYAML.
package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/kestrel-quant/backtest/internal/types"
	"github.com/kestrel-quant/backtest/pkg/errors"
	"github.com/kestrel-quant/backtest/pkg/utils"
)

// RunConfig is the top-level document a config YAML file unmarshals into: a
// BacktestConfig plus the FeedConfig describing where its bars come from.
type RunConfig struct {
	Backtest types.BacktestConfig `yaml:"backtest" json:"backtest" validate:"required"`
	Feed     types.FeedConfig     `yaml:"feed" json:"feed" validate:"required"`
}

var validate = validator.New()

// Load reads path, unmarshals it as YAML into a RunConfig seeded with
// DefaultBacktestConfig, and validates every struct tag. A malformed document or a
// failed validation both return ErrCodeInvalidConfiguration.
func Load(path string) (RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunConfig{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "reading config file %q", path)
	}

	cfg := RunConfig{Backtest: types.DefaultBacktestConfig()}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "parsing config YAML", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return RunConfig{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "validating config", err)
	}

	return cfg, nil
}

// Schema returns the RunConfig's JSON Schema, for the CLI's `schema` subcommand and
// editor tooling.
func Schema() (string, error) {
	return utils.GetSchemaFromConfig(RunConfig{})
}
