// Package config provides configuration for the pbiplens CLI: where
// the project lives, how results are rendered, and which expectation
// rules to evaluate. Values come from pbiplens.yaml, PBIPLENS_*
// environment variables and command-line flags, in that order of
// precedence.
package config

import (
	"github.com/pbiplens/pbiplens/pkg/expect"
)

// Config holds all CLI configuration options.
type Config struct {
	// Path is the .pbip file or the directory holding one.
	Path         string        `koanf:"path"`
	OutputFormat string        `koanf:"output"`
	Verbose      bool          `koanf:"verbose"`
	// FailOn is the severity at or above which findings make the
	// lint command fail.
	FailOn string        `koanf:"fail_on"`
	Report ReportConfig  `koanf:"report"`
	Rules  []expect.Rule `koanf:"rules"`
}

// ReportConfig configures the report command.
type ReportConfig struct {
	// File receives the rendered report; empty means stdout.
	File string `koanf:"file"`
	// Metadata blocks appear in the report's overview section,
	// rendered in sorted key order.
	Metadata map[string]string `koanf:"metadata"`
}

// Default configuration values.
const (
	DefaultPath   = "."
	DefaultOutput = "auto"
	DefaultFailOn = "error"
)

// ApplyDefaults fills in default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if c.OutputFormat == "" {
		c.OutputFormat = DefaultOutput
	}
	if c.FailOn == "" {
		c.FailOn = DefaultFailOn
	}
}
