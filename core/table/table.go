// Package table renders normalized rowsets for humans and pipelines.
package table

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/dbbridge/dbbridge/core/backend"
	"github.com/dbbridge/dbbridge/core/shared/errors"
)

// Format selects an output rendering.
type Format string

const (
	FormatText Format = "text"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat resolves a user-supplied format name.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case FormatText:
		return FormatText, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidInput,
			"unknown output format %q, expected text, csv, or json", name)
	}
}

// Render writes the rowset to w in the given format. Column order is the
// statement's own; JSON output carries the rows as an array of objects.
func Render(w io.Writer, rs *backend.Rowset, format Format) error {
	if rs == nil {
		return errors.New(errors.ErrCodeNoResult, "no result to render")
	}

	switch format {
	case FormatCSV:
		return renderCSV(w, rs)
	case FormatJSON:
		return renderJSON(w, rs)
	default:
		return renderText(w, rs)
	}
}

func renderText(w io.Writer, rs *backend.Rowset) error {
	t := tablewriter.NewWriter(w)
	t.SetHeader(rs.Columns)
	t.SetAutoFormatHeaders(false)
	t.SetAutoWrapText(false)

	for _, row := range rs.Rows {
		t.Append(rowCells(rs.Columns, row))
	}
	t.Render()

	_, err := fmt.Fprintf(w, "(%d row(s))\n", len(rs.Rows))
	return err
}

func renderCSV(w io.Writer, rs *backend.Rowset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(rs.Columns); err != nil {
		return err
	}
	for _, row := range rs.Rows {
		if err := cw.Write(rowCells(rs.Columns, row)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func renderJSON(w io.Writer, rs *backend.Rowset) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rs.Rows)
}

func rowCells(columns []string, row map[string]any) []string {
	cells := make([]string, len(columns))
	for i, col := range columns {
		cells[i] = formatCell(row[col])
	}
	return cells
}

func formatCell(value any) string {
	if value == nil {
		return ""
	}
	return fmt.Sprintf("%v", value)
}
