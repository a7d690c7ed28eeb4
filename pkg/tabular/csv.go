package tabular

import (
	"context"
	"encoding/csv"
	"strings"
	"unicode/utf8"

	"github.com/ritzau/link-analyzer/pkg/logging"
	"github.com/ritzau/link-analyzer/pkg/model"
	"golang.org/x/text/encoding/charmap"
)

// Delimiters are tried in this order; the first wins ties.
var Delimiters = []rune{',', ';', '\t', '|'}

func parseCSV(ctx context.Context, data []byte, o *options) ([]string, []model.Row, error) {
	text := decodeText(data)
	grid, err := readDelimited(text, sniffDelimiter(firstLine(text)))
	if err != nil {
		return nil, nil, err
	}
	columns, records, err := splitGrid(grid)
	if err != nil {
		return nil, nil, err
	}
	rows, err := recordRows(ctx, o, columns, records)
	if err != nil {
		return nil, nil, err
	}
	return columns, rows, nil
}

// decodeText strips a UTF-8 BOM. Input that is not valid UTF-8 is read as
// Windows-1252, the usual encoding of spreadsheet exports.
func decodeText(data []byte) string {
	if !utf8.Valid(data) {
		if decoded, err := charmap.Windows1252.NewDecoder().Bytes(data); err == nil {
			data = decoded
		}
	}
	return strings.TrimPrefix(string(data), "\ufeff")
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			return strings.TrimRight(line, "\r")
		}
	}
	return ""
}

// sniffDelimiter picks the delimiter that splits the header line into the
// most columns.
func sniffDelimiter(header string) rune {
	best, bestCount := Delimiters[0], 1
	for _, d := range Delimiters {
		if n := strings.Count(header, string(d)) + 1; n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func hasDelimiter(line string) bool {
	return strings.ContainsAny(line, ",;\t|")
}

// readDelimited reads records with encoding/csv, honouring quoted fields.
// When the reader rejects the input the text is split naively instead.
func readDelimited(text string, delim rune) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	grid, err := r.ReadAll()
	if err == nil {
		return grid, nil
	}
	logging.New("tabular").Debug("csv reader rejected input, splitting naively", "error", err)
	return splitNaive(text, delim), nil
}

func splitNaive(text string, delim rune) [][]string {
	var grid [][]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		grid = append(grid, strings.Split(line, string(delim)))
	}
	return grid
}
