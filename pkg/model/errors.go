package model

import (
	"fmt"
	"strings"
)

// Severity indicates the importance of a diagnostic or finding.
type Severity int

// Severity levels, ordered so that a numeric comparison against a threshold
// keeps the more severe values.
const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

// String returns the lowercase name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// MarshalText lets severities render as names in JSON and YAML output.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a severity name.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, ok := ParseSeverity(string(text))
	if !ok {
		return fmt.Errorf("unknown severity %q", text)
	}
	*s = parsed
	return nil
}

// ParseSeverity parses a severity name, case-insensitively.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(s) {
	case "error":
		return SeverityError, true
	case "warning":
		return SeverityWarning, true
	case "info":
		return SeverityInfo, true
	}
	return SeverityWarning, false
}

// Diagnostic codes for recoverable parse/resolve conditions. The affected
// field takes its documented default and processing continues.
const (
	CodeUnknownSymbol       = "unknown-symbol"
	CodeUnresolvedDocTarget = "unresolved-doc-target"
	CodeLineageTagFormat    = "lineage-tag-format"
)

// Diagnostic is a non-fatal condition noticed while parsing or resolving.
type Diagnostic struct {
	Code     string
	Severity Severity
	Path     string
	Line     int
	Message  string
}

func (d Diagnostic) String() string {
	loc := d.Path
	if d.Line > 0 {
		loc = fmt.Sprintf("%s:%d", d.Path, d.Line)
	}
	if loc == "" {
		return fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", loc, d.Code, d.Message)
}

// MalformedDocumentError reports an unparseable structured document.
type MalformedDocumentError struct {
	Path   string
	Offset int64
	Line   int
	Err    error
}

func (e *MalformedDocumentError) Error() string {
	if e.Offset > 0 {
		return fmt.Sprintf("malformed document %s: line %d (offset %d): %v", e.Path, e.Line, e.Offset, e.Err)
	}
	return fmt.Sprintf("malformed document %s: line %d: %v", e.Path, e.Line, e.Err)
}

func (e *MalformedDocumentError) Unwrap() error { return e.Err }

// MalformedIndentationError reports a line whose indentation depth matches
// no open nesting context.
type MalformedIndentationError struct {
	Path   string
	Line   int
	Indent int
}

func (e *MalformedIndentationError) Error() string {
	return fmt.Sprintf("malformed indentation in %s:%d: depth %d matches no open block", e.Path, e.Line, e.Indent)
}

// EncodingError reports input that could not be decoded as UTF-8 text.
type EncodingError struct {
	Path string
	Err  error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("cannot decode %s as UTF-8: %v", e.Path, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// DuplicateLineageTagError reports a lineage tag owned by two entities.
// Tables, columns, measures and shared expressions share one tag namespace.
type DuplicateLineageTagError struct {
	Tag    string
	First  string
	Second string
}

func (e *DuplicateLineageTagError) Error() string {
	return fmt.Sprintf("duplicate lineage tag %q: owned by both %s and %s", e.Tag, e.First, e.Second)
}

// DanglingRelationshipError reports a relationship endpoint that names a
// table or column absent from the model.
type DanglingRelationshipError struct {
	Relationship string
	End          string // "from" or "to"
	Table        string
	Column       string
}

func (e *DanglingRelationshipError) Error() string {
	return fmt.Sprintf("relationship %q: %s endpoint %s.%s does not exist in the model",
		e.Relationship, e.End, e.Table, e.Column)
}
