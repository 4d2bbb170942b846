package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pbiplens/pbiplens/internal/cli/output"
	"github.com/pbiplens/pbiplens/pkg/expect"
)

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the available expectation rule kinds",
		Long: `List every expectation rule kind that can appear in pbiplens.yaml or
a rule suite, together with its parameters.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRules(cmd)
		},
	}
}

func runRules(cmd *cobra.Command) error {
	r := RendererFrom(cmd.Context())
	descriptors := expect.Descriptors()

	if r.IsJSON() {
		return r.JSON(descriptors)
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(r.Out())
	tw.AppendHeader(table.Row{"Rule", "Checks that", "Parameters"})
	for _, d := range descriptors {
		tw.AppendRow(table.Row{d.Kind, d.Summary, d.Params})
	}
	if r.EffectiveMode() == output.ModeMarkdown {
		tw.RenderMarkdown()
	} else {
		tw.SetStyle(table.StyleRounded)
		tw.Render()
	}
	return nil
}
