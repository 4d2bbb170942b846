// Package tmdl parses the TMDL folder layout of a tabular semantic
// model into the canonical model types.
//
// A TMDL definition is a tree of tab-indented documents under
// definition/: one document per table in tables/, plus the optional
// relationships.tmdl and expressions.tmdl. Each document is a sequence
// of object headers ("table Sales", "column Amount") whose properties
// and child objects are nested one indentation level deeper. Script
// bodies (DAX and M) follow an "=" on the header line, either inline,
// indented under it, or wrapped in ``` fences, and are captured
// verbatim before documentation comments are split off.
package tmdl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/pbiplens/pbiplens/internal/textenc"
	"github.com/pbiplens/pbiplens/pkg/model"
)

const definitionDir = "definition"

// ParseDir parses the TMDL definition folder of a semantic model
// rooted at root. Table documents are parsed concurrently and merged
// in sorted file order, so the resulting table sequence is stable.
// Relationship and expression documents are optional; a model without
// them simply has none. The returned diagnostics are non-fatal.
func ParseDir(ctx context.Context, root string) (*model.Model, []model.Diagnostic, error) {
	defDir := filepath.Join(root, definitionDir)
	paths, err := filepath.Glob(filepath.Join(defDir, "tables", "*.tmdl"))
	if err != nil {
		return nil, nil, err
	}
	sort.Strings(paths)

	type parsed struct {
		tables []*model.Table
		diags  []model.Diagnostic
	}
	results := make([]parsed, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			src, err := readDocument(path)
			if err != nil {
				return err
			}
			tables, diags, err := ParseTables(path, src)
			if err != nil {
				return err
			}
			results[i] = parsed{tables: tables, diags: diags}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	m := &model.Model{}
	var diags []model.Diagnostic
	for _, r := range results {
		m.Tables = append(m.Tables, r.tables...)
		diags = append(diags, r.diags...)
	}

	relPath := filepath.Join(defDir, "relationships.tmdl")
	if src, ok, err := readOptional(relPath); err != nil {
		return nil, nil, err
	} else if ok {
		rels, rdiags, err := ParseRelationships(relPath, src)
		if err != nil {
			return nil, nil, err
		}
		m.Relationships = rels
		diags = append(diags, rdiags...)
	}

	exprPath := filepath.Join(defDir, "expressions.tmdl")
	if src, ok, err := readOptional(exprPath); err != nil {
		return nil, nil, err
	} else if ok {
		exprs, ediags, err := ParseExpressions(exprPath, src)
		if err != nil {
			return nil, nil, err
		}
		m.Expressions = exprs
		diags = append(diags, ediags...)
	}

	return m, diags, nil
}

func readDocument(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return textenc.Decode(path, raw)
}

// readOptional reads a document that a definition may legally omit.
func readOptional(path string) (string, bool, error) {
	src, err := readDocument(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return src, true, nil
}
