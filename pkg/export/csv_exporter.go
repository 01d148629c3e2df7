package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// Dataset is a header row plus records keyed by header.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Len returns the number of data rows.
func (d Dataset) Len() int { return len(d.Rows) }

// CSVExporter writes catalog datasets as CSV. Cells that a spreadsheet would
// evaluate as a formula are prefixed with a single quote, since titles and
// descriptions come from anonymous submitters.
type CSVExporter struct {
	comma rune
}

// NewCSVExporter builds a comma separated exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{comma: ','}
}

// ContentType is the MIME type of rendered output.
func (e *CSVExporter) ContentType() string { return "text/csv" }

// Render encodes the dataset, header row first.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv export: no columns")
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if e.comma != 0 {
		w.Comma = e.comma
	}

	if err := w.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("csv export header: %w", err)
	}
	line := make([]string, len(data.Headers))
	for n, row := range data.Rows {
		for i, col := range data.Headers {
			line[i] = neutralizeFormula(row[col])
		}
		if err := w.Write(line); err != nil {
			return nil, fmt.Errorf("csv export row %d: %w", n+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv export flush: %w", err)
	}
	return buf.Bytes(), nil
}

func neutralizeFormula(cell string) string {
	if cell == "" {
		return cell
	}
	if strings.ContainsRune("=+-@\t\r", rune(cell[0])) {
		return "'" + cell
	}
	return cell
}
