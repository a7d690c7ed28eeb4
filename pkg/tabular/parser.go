// Package tabular parses CSV, Excel, JSON and whitespace-separated text
// files into ParsedTables.
package tabular

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ritzau/link-analyzer/pkg/logging"
	"github.com/ritzau/link-analyzer/pkg/model"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrNoWorksheet       = errors.New("workbook has no worksheet")
	ErrInvalidJSONShape  = errors.New("JSON must be an array of objects or an object holding one")
	ErrTooFewRows        = errors.New("file has no data rows")
	ErrEmptyFile         = errors.New("file is empty")
)

// ProgressInterval is how many rows are processed between progress reports
// and cancellation checks.
const ProgressInterval = 100

// Progress reports how far row conversion has come.
type Progress struct {
	RowsDone  int     `json:"rowsDone"`
	RowsTotal int     `json:"rowsTotal"`
	Percent   float64 `json:"percent"`
}

type options struct {
	progress func(Progress)
}

// Option configures ParseFile
type Option func(*options)

// WithProgress registers a callback receiving progress roughly every
// ProgressInterval rows and once when conversion completes.
func WithProgress(fn func(Progress)) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// ParseFile parses a file into a table. Errors are wrapped as
// "parsing <name>: <cause>" and no partial table is returned.
func ParseFile(ctx context.Context, f model.File, opts ...Option) (*model.ParsedTable, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	log := logging.New("tabular")

	table, err := parse(ctx, f, o)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", f.Name, err)
	}
	log.Info("parsed file", "file", f.Name, "format", Detect(f), "columns", len(table.Columns), "rows", table.RowCount)
	return table, nil
}

func parse(ctx context.Context, f model.File, o *options) (*model.ParsedTable, error) {
	format := Detect(f)
	if format == FormatUnknown {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f.Type+" "+f.Ext())
	}
	if len(strings.TrimSpace(string(f.Data))) == 0 {
		return nil, ErrEmptyFile
	}

	var (
		columns []string
		rows    []model.Row
		err     error
	)
	switch format {
	case FormatCSV:
		columns, rows, err = parseCSV(ctx, f.Data, o)
	case FormatXLSX, FormatXLS:
		columns, rows, err = parseExcel(ctx, f.Data, format, o)
	case FormatJSON:
		columns, rows, err = parseJSON(ctx, f.Data, o)
	case FormatTXT:
		columns, rows, err = parseTXT(ctx, f.Data, o)
	}
	if err != nil {
		return nil, err
	}
	return model.NewParsedTable(columns, rows, f.Info()), nil
}

// ReadGrid returns the raw cell grid (header first) of a CSV or Excel file
// for parsers that apply their own header vocabulary.
func ReadGrid(ctx context.Context, f model.File) ([][]string, error) {
	var (
		grid [][]string
		err  error
	)
	switch Detect(f) {
	case FormatCSV, FormatTXT:
		text := decodeText(f.Data)
		grid, err = readDelimited(text, sniffDelimiter(firstLine(text)))
	case FormatXLSX:
		grid, err = readXLSX(f.Data)
	case FormatXLS:
		grid, err = readXLS(f.Data)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, f.Type+" "+f.Ext())
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", f.Name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return grid, nil
}

// headers normalizes header cells: cleaned, blank names replaced and
// duplicates suffixed so columns stay unique.
func headers(raw []string) []string {
	seen := make(map[string]int, len(raw))
	out := make([]string, len(raw))
	for i, h := range raw {
		name := model.CleanCell(h)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		} else {
			seen[name] = 1
		}
		out[i] = name
	}
	return out
}

// rowBuilder converts records to rows, applying the density floor and
// reporting progress between batches.
type rowBuilder struct {
	ctx   context.Context
	opts  *options
	total int
	done  int
	rows  []model.Row
}

func newRowBuilder(ctx context.Context, o *options, total int) *rowBuilder {
	return &rowBuilder{ctx: ctx, opts: o, total: total, rows: make([]model.Row, 0, total)}
}

// add keeps the row when it meets the density floor. It returns the
// context error once the context is done.
func (b *rowBuilder) add(row model.Row) error {
	if row.Filled() >= model.MinFilledValues {
		b.rows = append(b.rows, row)
	}
	b.done++
	if b.done%ProgressInterval == 0 {
		if err := b.ctx.Err(); err != nil {
			return err
		}
		b.report()
	}
	return nil
}

func (b *rowBuilder) finish() ([]model.Row, error) {
	if err := b.ctx.Err(); err != nil {
		return nil, err
	}
	b.report()
	return b.rows, nil
}

func (b *rowBuilder) report() {
	if b.opts.progress == nil {
		return
	}
	p := Progress{RowsDone: b.done, RowsTotal: b.total, Percent: 100}
	if b.total > 0 {
		p.Percent = float64(b.done) * 100 / float64(b.total)
	}
	b.opts.progress(p)
}

// recordRows maps string records onto columns through model.ParseValue.
func recordRows(ctx context.Context, o *options, columns []string, records [][]string) ([]model.Row, error) {
	b := newRowBuilder(ctx, o, len(records))
	for _, rec := range records {
		row := make(model.Row, len(columns))
		for i, col := range columns {
			if i < len(rec) {
				row[col] = model.ParseValue(rec[i])
			} else {
				row[col] = model.String("")
			}
		}
		if err := b.add(row); err != nil {
			return nil, err
		}
	}
	return b.finish()
}

// splitGrid separates the header from the data records, skipping leading
// blank lines.
func splitGrid(grid [][]string) ([]string, [][]string, error) {
	for i, rec := range grid {
		if blankRecord(rec) {
			continue
		}
		if i == len(grid)-1 {
			return nil, nil, ErrTooFewRows
		}
		return headers(rec), grid[i+1:], nil
	}
	return nil, nil, ErrEmptyFile
}

func blankRecord(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
