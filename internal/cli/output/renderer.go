// Package output renders command results in the mode the user (or the
// environment) asked for: styled terminal text, plain markdown, or
// machine-readable JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/pbiplens/pbiplens/pkg/model"
)

// Mode selects how results are rendered.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// Styles holds the lipgloss styles used across commands.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Muted   lipgloss.Style
}

func defaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

// Renderer writes command output in one mode.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
	styles Styles
}

// NewRenderer creates a renderer. ModeAuto picks text when out is a
// terminal and markdown otherwise.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}
	return &Renderer{out: out, errOut: errOut, mode: mode, styles: defaultStyles()}
}

// Out returns the renderer's primary writer.
func (r *Renderer) Out() io.Writer { return r.out }

// Styles returns the renderer's style set.
func (r *Renderer) Styles() Styles { return r.styles }

// EffectiveMode resolves ModeAuto against the environment.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if f, ok := r.out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return ModeText
	}
	return ModeMarkdown
}

// IsJSON reports whether results must be emitted as JSON.
func (r *Renderer) IsJSON() bool { return r.EffectiveMode() == ModeJSON }

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Printf writes formatted text to the primary writer.
func (r *Renderer) Printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

// Println writes a line to the primary writer.
func (r *Renderer) Println(args ...any) {
	fmt.Fprintln(r.out, args...)
}

// Headerf writes a bold header line in text mode and a markdown
// heading otherwise.
func (r *Renderer) Headerf(format string, args ...any) {
	s := fmt.Sprintf(format, args...)
	switch r.EffectiveMode() {
	case ModeText:
		fmt.Fprintln(r.out, r.styles.Header.Render(s))
	default:
		fmt.Fprintf(r.out, "## %s\n", s)
	}
}

// Successf writes a success line.
func (r *Renderer) Successf(format string, args ...any) {
	s := fmt.Sprintf(format, args...)
	if r.EffectiveMode() == ModeText {
		s = r.styles.Success.Render(s)
	}
	fmt.Fprintln(r.out, s)
}

// Errorf writes an error line to the error writer.
func (r *Renderer) Errorf(format string, args ...any) {
	s := fmt.Sprintf(format, args...)
	if r.EffectiveMode() == ModeText {
		s = r.styles.Error.Render(s)
	}
	fmt.Fprintln(r.errOut, s)
}

// Severity renders a severity name with its color in text mode.
func (r *Renderer) Severity(s model.Severity) string {
	name := s.String()
	if r.EffectiveMode() != ModeText {
		return name
	}
	switch s {
	case model.SeverityError:
		return r.styles.Error.Render(name)
	case model.SeverityWarning:
		return r.styles.Warning.Render(name)
	default:
		return r.styles.Info.Render(name)
	}
}
