package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pbiplens/pbiplens/internal/cli/output"
	"github.com/pbiplens/pbiplens/internal/pbip"
	"github.com/pbiplens/pbiplens/pkg/expect"
	"github.com/pbiplens/pbiplens/pkg/model"
)

// LintOptions holds options for the lint command.
type LintOptions struct {
	Path      string // .pbip file or directory
	RulesFile string // Expectation suite to run instead of config rules
	Format    string // Output format: text, markdown, json
}

// NewLintCommand creates the lint command.
func NewLintCommand() *cobra.Command {
	opts := &LintOptions{}
	cmd := &cobra.Command{
		Use:   "lint [path]",
		Short: "Check the semantic model against expectation rules",
		Long: `Evaluate the project's semantic model against the expectation rules
from pbiplens.yaml (or a separate rule suite) and report every rule
that fails. The command exits nonzero when findings reach the fail-on
severity.`,
		Example: `  # Lint with the rules from pbiplens.yaml
  pbiplens lint

  # Lint with a separate rule suite
  pbiplens lint --rules naming.yaml

  # Fail on warnings too
  pbiplens lint --fail-on warning`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.Path = args[0]
			}
			return runLint(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.RulesFile, "rules", "", "Expectation suite file (YAML)")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, markdown, json")
	return cmd
}

// FindingsError makes the process exit nonzero when findings reach the
// configured severity.
type FindingsError struct {
	Count     int
	Threshold model.Severity
}

func (e *FindingsError) Error() string {
	return fmt.Sprintf("%d finding(s) at or above %s severity", e.Count, e.Threshold)
}

type lintResult struct {
	Project     string             `json:"project"`
	Findings    []expect.Finding   `json:"findings"`
	Diagnostics []model.Diagnostic `json:"diagnostics,omitempty"`
}

func runLint(cmd *cobra.Command, opts *LintOptions) error {
	cfg := ConfigFrom(cmd.Context())
	r := RendererFrom(cmd.Context())
	if opts.Format != "" {
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(opts.Format))
	}

	rules := cfg.Rules
	if opts.RulesFile != "" {
		suite, err := expect.LoadSuite(opts.RulesFile)
		if err != nil {
			return err
		}
		rules = suite.Rules
	}

	path := opts.Path
	if path == "" {
		path = cfg.Path
	}
	project, err := pbip.Discover(path)
	if err != nil {
		return err
	}
	m, diags, err := project.Load(cmd.Context())
	if err != nil {
		return err
	}

	findings := expect.Evaluate(m, rules)

	if r.IsJSON() {
		if err := r.JSON(lintResult{Project: project.Name, Findings: findings, Diagnostics: diags}); err != nil {
			return err
		}
		return failOnFindings(cfg.FailOn, findings)
	}

	// diagnostics go to the error writer so piped output stays clean
	for _, d := range diags {
		r.Errorf("%s %s", d.Severity, d.String())
	}
	if len(rules) == 0 {
		r.Println("No expectation rules configured")
		return nil
	}
	for _, f := range findings {
		r.Printf("%s [%s] %s\n", r.Severity(f.Severity), f.Rule, f.Message)
	}
	if len(findings) == 0 {
		r.Successf("All %d rule(s) passed", len(rules))
	} else {
		r.Printf("%d finding(s) from %d rule(s)\n", len(findings), len(rules))
	}
	return failOnFindings(cfg.FailOn, findings)
}

// failOnFindings applies the fail-on threshold. Severities are ordered
// with error lowest, so "at or above" is a numeric less-or-equal.
func failOnFindings(failOn string, findings []expect.Finding) error {
	threshold, ok := model.ParseSeverity(failOn)
	if !ok {
		return fmt.Errorf("unknown fail-on severity %q", failOn)
	}
	count := 0
	for _, f := range findings {
		if f.Severity <= threshold {
			count++
		}
	}
	if count > 0 {
		return &FindingsError{Count: count, Threshold: threshold}
	}
	return nil
}
