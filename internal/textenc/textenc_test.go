package textenc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbiplens/pbiplens/pkg/model"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want string
	}{
		{"plain utf8", []byte("table Sales"), "table Sales"},
		{"utf8 bom stripped", []byte("\xef\xbb\xbftable Sales"), "table Sales"},
		{"utf16le bom", []byte("\xff\xfet\x00a\x00b\x00"), "tab"},
		{"utf16be bom", []byte("\xfe\xff\x00t\x00a\x00b"), "tab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode("doc.tmdl", tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeInvalid(t *testing.T) {
	_, err := Decode("doc.tmdl", []byte("abc\xffdef"))
	var enc *model.EncodingError
	require.ErrorAs(t, err, &enc)
	assert.Equal(t, "doc.tmdl", enc.Path)
}
