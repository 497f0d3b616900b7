package opendata

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestLookupEncoding(t *testing.T) {
	tests := []struct {
		name string
		want any
	}{
		{"", nil},
		{"UTF-8", nil},
		{"utf8", nil},
		{"latin-1", charmap.ISO8859_1},
		{"ISO-8859-1", charmap.ISO8859_1},
		{"windows-1252", charmap.Windows1252},
		{"cp1252", charmap.Windows1252},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := LookupEncoding(tt.name)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, enc)
				return
			}
			assert.Equal(t, tt.want, enc)
		})
	}

	_, err := LookupEncoding("ebcdic")
	assert.ErrorContains(t, err, "unsupported encoding")
}

func TestDecode(t *testing.T) {
	latin1 := []byte("\xc9cole \xe9l\xe9mentaire")

	got, err := io.ReadAll(decode(latin1, charmap.ISO8859_1))
	require.NoError(t, err)
	assert.Equal(t, "École élémentaire", string(got))

	got, err = io.ReadAll(decode([]byte("École"), nil))
	require.NoError(t, err)
	assert.Equal(t, "École", string(got))
}
