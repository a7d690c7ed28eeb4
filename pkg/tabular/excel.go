package tabular

import (
	"bytes"
	"context"
	"fmt"

	"github.com/extrame/xls"
	"github.com/ritzau/link-analyzer/pkg/model"
	"github.com/xuri/excelize/v2"
)

// parseExcel reads the first worksheet; its first row is the header.
func parseExcel(ctx context.Context, data []byte, format Format, o *options) ([]string, []model.Row, error) {
	var (
		grid [][]string
		err  error
	)
	if format == FormatXLS {
		grid, err = readXLS(data)
	} else {
		grid, err = readXLSX(data)
	}
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

func readXLSX(data []byte) ([][]string, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoWorksheet
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readXLS(data []byte) ([][]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, ErrNoWorksheet
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, ErrNoWorksheet
	}

	grid := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		grid = append(grid, cells)
	}
	return grid, nil
}
