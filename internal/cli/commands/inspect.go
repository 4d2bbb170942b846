package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pbiplens/pbiplens/internal/cli/output"
	"github.com/pbiplens/pbiplens/internal/pbip"
	"github.com/pbiplens/pbiplens/pkg/model"
)

// InspectOptions holds options for the inspect command.
type InspectOptions struct {
	Path   string // .pbip file or directory
	Format string // Output format: text, markdown, json
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	opts := &InspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect [path]",
		Short: "Parse a project and summarize its semantic model",
		Long: `Locate a .pbip project, parse its semantic model (TMDL folder or
model.bim) and print a summary of its tables, relationships and
expressions together with any parse diagnostics.`,
		Example: `  # Inspect the project in the current directory
  pbiplens inspect

  # Inspect a specific project
  pbiplens inspect ./Sales.pbip

  # Machine-readable output
  pbiplens inspect --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.Path = args[0]
			}
			return runInspect(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, markdown, json")
	return cmd
}

type inspectResult struct {
	Project     string             `json:"project"`
	Format      pbip.Format        `json:"format"`
	Model       *model.Model       `json:"model"`
	Diagnostics []model.Diagnostic `json:"diagnostics,omitempty"`
}

func runInspect(cmd *cobra.Command, opts *InspectOptions) error {
	cfg := ConfigFrom(cmd.Context())
	r := RendererFrom(cmd.Context())
	if opts.Format != "" {
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(opts.Format))
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

	if r.IsJSON() {
		return r.JSON(inspectResult{
			Project:     project.Name,
			Format:      project.Format,
			Model:       m,
			Diagnostics: diags,
		})
	}

	r.Headerf("Project %s (%s)", project.Name, project.Format)
	r.Println()

	tw := table.NewWriter()
	tw.SetOutputMirror(r.Out())
	tw.AppendHeader(table.Row{"Table", "Columns", "Measures", "Partitions", "Hidden"})
	for _, t := range m.Tables {
		tw.AppendRow(table.Row{t.Name, len(t.Columns), len(t.Measures), len(t.Partitions), t.IsHidden})
	}
	if r.EffectiveMode() == output.ModeMarkdown {
		tw.RenderMarkdown()
	} else {
		tw.SetStyle(table.StyleRounded)
		tw.Render()
	}

	r.Println()
	r.Printf("%d tables, %d relationships, %d expressions\n",
		len(m.Tables), len(m.Relationships), len(m.Expressions))

	// diagnostics go to the error writer so piped output stays clean
	for _, d := range diags {
		r.Errorf("%s %s", d.Severity, d.String())
	}
	return nil
}
