// Package config holds run settings decoded from viper (config file,
// environment and command line flags, see cmd/sgrna-check).
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/inodb/sgrna-check/internal/annotate"
	"github.com/inodb/sgrna-check/internal/expression"
	"github.com/inodb/sgrna-check/internal/output"
)

// EnvPrefix is the prefix of environment variables overriding settings.
const EnvPrefix = "SGRNA_CHECK"

// ExpressionConfig is settings for expression enrichment
type ExpressionConfig struct {
	// directory walked for expression tables, empty disables enrichment
	Dir string `mapstructure:"dir"`

	// 0-based column holding the gene name
	GeneColumn int `mapstructure:"gene_column"`

	// 0-based column holding the expression value
	ValueColumn int `mapstructure:"value_column"`
}

// OutputConfig is settings for the written files
type OutputConfig struct {
	// json or yaml
	SummaryFormat string `mapstructure:"summary_format"`
}

// DuckDBConfig is settings for the results database
type DuckDBConfig struct {
	// database file, empty disables the store
	Path string `mapstructure:"path"`
}

// CacheConfig is settings for the parsed gene cache
type CacheConfig struct {
	// directory for gob gene caches, empty disables caching
	Dir string `mapstructure:"dir"`
}

// Config is the root-level settings struct
type Config struct {
	// length of a perfectly aligned guide, "20" means a 20M CIGAR
	GuideLength int `mapstructure:"guide_length"`

	// reject FLAG bits without a label instead of dropping them
	StrictFlags bool `mapstructure:"strict_flags"`

	// resolver workers, 1 is sequential and 0 uses every CPU
	Workers int `mapstructure:"workers"`

	Expression ExpressionConfig `mapstructure:"expression"`
	Output     OutputConfig     `mapstructure:"output"`
	DuckDB     DuckDBConfig     `mapstructure:"duckdb"`
	Cache      CacheConfig      `mapstructure:"cache"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("guide_length", annotate.DefaultGuideLength)
	v.SetDefault("strict_flags", false)
	v.SetDefault("workers", 1)
	v.SetDefault("expression.dir", "data/TCGA")
	v.SetDefault("expression.gene_column", expression.DefaultGeneColumn)
	v.SetDefault("expression.value_column", expression.DefaultValueColumn)
	v.SetDefault("output.summary_format", string(output.FormatJSON))
	v.SetDefault("duckdb.path", "")
	v.SetDefault("cache.dir", "")
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks settings for values no run can use.
func (c Config) Validate() error {
	if c.GuideLength <= 0 {
		return fmt.Errorf("guide_length must be positive, got %d", c.GuideLength)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.Expression.GeneColumn < 0 || c.Expression.ValueColumn < 0 {
		return fmt.Errorf("expression columns must not be negative")
	}
	if _, err := output.ParseFormat(c.Output.SummaryFormat); err != nil {
		return fmt.Errorf("output.summary_format: %w", err)
	}
	return nil
}

// SummaryFormat returns the validated summary format.
func (c Config) SummaryFormat() output.Format {
	f, _ := output.ParseFormat(c.Output.SummaryFormat)
	return f
}
