// Package textenc decodes model documents to UTF-8 text.
package textenc

import (
	"errors"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/pbiplens/pbiplens/pkg/model"
)

// Decode converts file bytes to UTF-8 text. UTF-8 and UTF-16 byte
// order marks are honored and stripped; anything else that is not
// valid UTF-8 is an EncodingError.
func Decode(path string, raw []byte) (string, error) {
	decoded, _, err := transform.Bytes(unicode.BOMOverride(encoding.UTF8Validator), raw)
	if err != nil {
		return "", &model.EncodingError{Path: path, Err: err}
	}
	if !utf8.Valid(decoded) {
		return "", &model.EncodingError{Path: path, Err: errors.New("invalid UTF-8 byte sequence")}
	}
	return string(decoded), nil
}
