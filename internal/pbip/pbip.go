// Package pbip locates the components of a Power BI project (.pbip) on
// disk and loads its semantic model, whichever format it is stored in.
package pbip

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pbiplens/pbiplens/pkg/model"
	"github.com/pbiplens/pbiplens/pkg/tmdl"
	"github.com/pbiplens/pbiplens/pkg/tmsl"
)

// Format is the storage format of a semantic model definition.
type Format string

// Storage formats.
const (
	FormatTMDL Format = "tmdl"
	FormatTMSL Format = "tmsl"
)

const modelBim = "model.bim"

// Project is one discovered .pbip project and its component folders.
type Project struct {
	Name             string
	PbipPath         string
	SemanticModelDir string
	ReportDir        string
	Format           Format
}

// NotFoundError reports a directory without any .pbip file.
type NotFoundError struct {
	Dir string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no .pbip file found in directory %q", e.Dir)
}

// MultipleProjectsError reports a directory with more than one .pbip
// file, which leaves the project ambiguous.
type MultipleProjectsError struct {
	Dir   string
	Files []string
}

func (e *MultipleProjectsError) Error() string {
	return fmt.Sprintf("found %d .pbip files in directory %q (%s); pass the .pbip path explicitly, for example %s",
		len(e.Files), e.Dir, strings.Join(e.Files, ", "), filepath.Join(e.Dir, e.Files[0]))
}

// SemanticModelNotFoundError reports a project whose SemanticModel
// folder is missing.
type SemanticModelNotFoundError struct {
	Path string
}

func (e *SemanticModelNotFoundError) Error() string {
	return fmt.Sprintf("semantic model folder %q does not exist", e.Path)
}

// Discover resolves a path to a project. The path may name a .pbip
// file directly or a directory holding exactly one.
func Discover(path string) (*Project, error) {
	pbipPath := path
	if filepath.Ext(path) != ".pbip" {
		matches, err := filepath.Glob(filepath.Join(path, "*.pbip"))
		if err != nil {
			return nil, err
		}
		sort.Strings(matches)
		switch len(matches) {
		case 0:
			return nil, &NotFoundError{Dir: path}
		case 1:
			pbipPath = matches[0]
		default:
			names := make([]string, len(matches))
			for i, m := range matches {
				names[i] = filepath.Base(m)
			}
			return nil, &MultipleProjectsError{Dir: path, Files: names}
		}
	}

	name := strings.TrimSuffix(filepath.Base(pbipPath), ".pbip")
	dir := filepath.Dir(pbipPath)
	p := &Project{
		Name:             name,
		PbipPath:         pbipPath,
		SemanticModelDir: filepath.Join(dir, name+".SemanticModel"),
		ReportDir:        filepath.Join(dir, name+".Report"),
		Format:           FormatTMDL,
	}

	if info, err := os.Stat(p.SemanticModelDir); err != nil || !info.IsDir() {
		return nil, &SemanticModelNotFoundError{Path: p.SemanticModelDir}
	}
	if _, err := os.Stat(filepath.Join(p.SemanticModelDir, modelBim)); err == nil {
		p.Format = FormatTMSL
	}
	return p, nil
}

// Load parses the project's semantic model and runs the resolver over
// it. The returned diagnostics combine parse and resolve diagnostics.
func (p *Project) Load(ctx context.Context) (*model.Model, []model.Diagnostic, error) {
	var (
		m     *model.Model
		diags []model.Diagnostic
		err   error
	)
	switch p.Format {
	case FormatTMSL:
		m, diags, err = tmsl.ParseFile(filepath.Join(p.SemanticModelDir, modelBim))
	default:
		m, diags, err = tmdl.ParseDir(ctx, p.SemanticModelDir)
	}
	if err != nil {
		return nil, nil, err
	}
	rdiags, err := model.Resolve(m)
	if err != nil {
		return nil, nil, err
	}
	return m, append(diags, rdiags...), nil
}
