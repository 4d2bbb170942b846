package commands

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pbiplens/pbiplens/internal/pbip"
	"github.com/pbiplens/pbiplens/internal/report"
	"github.com/pbiplens/pbiplens/pkg/expect"
)

// ReportOptions holds options for the report command.
type ReportOptions struct {
	Path string // .pbip file or directory
	File string // Destination file, stdout when empty
}

// NewReportCommand creates the report command.
func NewReportCommand() *cobra.Command {
	opts := &ReportOptions{}
	cmd := &cobra.Command{
		Use:   "report [path]",
		Short: "Render a markdown report of the semantic model",
		Long: `Parse the project, evaluate the configured expectation rules and
render a markdown report with a table of contents, expectation
results, a mermaid relationship diagram and a section per table.`,
		Example: `  # Print the report to stdout
  pbiplens report

  # Write it to a file
  pbiplens report --file docs/model.md`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.Path = args[0]
			}
			return runReport(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.File, "file", "", "Write the report to this file instead of stdout")
	return cmd
}

func runReport(cmd *cobra.Command, opts *ReportOptions) error {
	cfg := ConfigFrom(cmd.Context())
	r := RendererFrom(cmd.Context())

	path := opts.Path
	if path == "" {
		path = cfg.Path
	}
	project, err := pbip.Discover(path)
	if err != nil {
		return err
	}
	m, _, err := project.Load(cmd.Context())
	if err != nil {
		return err
	}

	findings := expect.Evaluate(m, cfg.Rules)

	metadata := []report.Metadata{{Name: "Project", Value: project.Name}}
	keys := make([]string, 0, len(cfg.Report.Metadata))
	for k := range cfg.Report.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		metadata = append(metadata, report.Metadata{Name: k, Value: cfg.Report.Metadata[k]})
	}

	md, err := report.Render(m, findings, metadata)
	if err != nil {
		return err
	}

	dest := opts.File
	if dest == "" {
		dest = cfg.Report.File
	}
	if dest == "" {
		fmt.Fprint(r.Out(), md)
		return nil
	}
	if err := os.WriteFile(dest, []byte(md), 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	r.Successf("Report written to %s", dest)
	return nil
}
