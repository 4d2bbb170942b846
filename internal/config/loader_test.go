package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbiplens/pbiplens/pkg/expect"
)

const configDoc = `path: ./projects/demo
output: markdown
fail_on: warning
report:
  file: docs/model.md
  metadata:
    Owner: BI team
rules:
  - kind: expect_table_starts_with
    severity: info
    params:
      pattern: t_
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultPath, cfg.Path)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, DefaultFailOn, cfg.FailOn)
	assert.False(t, cfg.Verbose)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, configDoc)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "./projects/demo", cfg.Path)
	assert.Equal(t, "markdown", cfg.OutputFormat)
	assert.Equal(t, "warning", cfg.FailOn)
	assert.Equal(t, "docs/model.md", cfg.Report.File)
	assert.Equal(t, "BI team", cfg.Report.Metadata["Owner"])

	require.Len(t, cfg.Rules, 1)
	assert.Equal(t, expect.KindTableStartsWith, cfg.Rules[0].Kind)
	assert.Equal(t, "info", cfg.Rules[0].Severity)
	assert.Equal(t, "t_", cfg.Rules[0].Params["pattern"])

	assert.Equal(t, path, ConfigFileUsed())
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, configDoc)
	t.Setenv("PBIPLENS_OUTPUT", "json")
	t.Setenv("PBIPLENS_REPORT__FILE", "env.md")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, "env.md", cfg.Report.File)
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	path := writeConfig(t, configDoc)
	t.Setenv("PBIPLENS_OUTPUT", "json")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringP("output", "o", "", "")
	flags.String("fail-on", "", "")
	require.NoError(t, flags.Parse([]string{"--output", "text", "--fail-on", "info"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.OutputFormat)
	assert.Equal(t, "info", cfg.FailOn)
}

func TestLoadUnsetFlagsDoNotOverride(t *testing.T) {
	path := writeConfig(t, configDoc)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringP("output", "o", "", "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "markdown", cfg.OutputFormat)
}
