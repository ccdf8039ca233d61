// Package export writes the rows a screen is showing as CSV or PDF.
package export

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Veraticus/schoolctl/internal/console"
)

// Format is an output format.
type Format string

// Formats.
const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ErrEmptyTable is returned for a table without columns.
var ErrEmptyTable = errors.New("table has no columns")

// Table is tabular export content.
type Table struct {
	Title   string
	Headers []string
	// Widths are relative column widths; nil means equal widths.
	Widths []int
	Rows   [][]string
}

// FromScreen captures the current page of s.
func FromScreen(s console.Screen) Table {
	cols := s.Columns()
	t := Table{
		Title:   s.Title(),
		Headers: make([]string, len(cols)),
		Widths:  make([]int, len(cols)),
		Rows:    s.State().Rows,
	}
	for i, c := range cols {
		t.Headers[i] = c.Title
		t.Widths[i] = c.Width
	}
	return t
}

// ParseFormat accepts a format name or a file name with a known extension.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if ext := filepath.Ext(s); ext != "" {
		s = strings.TrimPrefix(ext, ".")
	}
	switch Format(s) {
	case FormatCSV, FormatPDF:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported export format %q (want csv or pdf)", s)
	}
}

// Write renders t to w in the given format.
func Write(w io.Writer, format Format, t Table) error {
	if len(t.Headers) == 0 {
		return ErrEmptyTable
	}
	switch format {
	case FormatCSV:
		return writeCSV(w, t)
	case FormatPDF:
		return writePDF(w, t)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

func (t Table) cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
