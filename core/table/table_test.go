package table

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbbridge/dbbridge/core/backend"
	"github.com/dbbridge/dbbridge/core/shared/errors"
)

func sampleRowset() *backend.Rowset {
	return &backend.Rowset{
		Columns: []string{"ID", "NAME", "NOTE"},
		Rows: []map[string]any{
			{"ID": int64(1), "NAME": "AMY", "NOTE": nil},
			{"ID": int64(2), "NAME": "BOB", "NOTE": "on leave"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
	}{
		{input: "text", want: FormatText},
		{input: "CSV", want: FormatCSV},
		{input: " json ", want: FormatJSON},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			format, err := ParseFormat(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, format)
		})
	}
}

func TestParseFormatUnknown(t *testing.T) {
	_, err := ParseFormat("xml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleRowset(), FormatText))

	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "AMY")
	assert.Contains(t, out, "on leave")
	assert.Contains(t, out, "(2 row(s))")
}

func TestRenderCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleRowset(), FormatCSV))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ID,NAME,NOTE", lines[0])
	assert.Equal(t, "1,AMY,", lines[1])
	assert.Equal(t, "2,BOB,on leave", lines[2])
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleRowset(), FormatJSON))

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "AMY", rows[0]["NAME"])
	assert.Nil(t, rows[0]["NOTE"])
}

func TestRenderNilRowset(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, nil, FormatText)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeNoResult))
}
