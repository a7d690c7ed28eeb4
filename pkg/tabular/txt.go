package tabular

import (
	"context"
	"strings"

	"github.com/ritzau/link-analyzer/pkg/logging"
	"github.com/ritzau/link-analyzer/pkg/model"
)

// parseTXT reuses the CSV path when the first line holds a known delimiter.
// Otherwise lines are split on whitespace; lines with fewer tokens than
// headers are skipped and extra tokens are ignored.
func parseTXT(ctx context.Context, data []byte, o *options) ([]string, []model.Row, error) {
	text := decodeText(data)
	first := firstLine(text)
	if hasDelimiter(first) {
		return parseCSV(ctx, data, o)
	}

	log := logging.New("tabular")
	var grid [][]string
	for _, line := range strings.Split(text, "\n") {
		if fields := strings.Fields(line); len(fields) > 0 {
			grid = append(grid, fields)
		}
	}
	columns, records, err := splitGrid(grid)
	if err != nil {
		return nil, nil, err
	}

	kept := records[:0:0]
	for i, rec := range records {
		if len(rec) < len(columns) {
			log.Debug("skipping short line", "record", i+1, "tokens", len(rec), "headers", len(columns))
			continue
		}
		kept = append(kept, rec)
	}
	rows, err := recordRows(ctx, o, columns, kept)
	if err != nil {
		return nil, nil, err
	}
	return columns, rows, nil
}
