package tabular

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ritzau/link-analyzer/pkg/model"
	"github.com/xuri/excelize/v2"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		want     Format
	}{
		{"data.csv", "text/csv", FormatCSV},
		{"data.csv", "application/vnd.ms-excel", FormatCSV},
		{"data.xls", "application/vnd.ms-excel", FormatXLS},
		{"data.bin", mimeXLSX, FormatXLSX},
		{"DATA.JSON", "", FormatJSON},
		{"notes.txt", "text/plain; charset=utf-8", FormatTXT},
		{"image.png", "image/png", FormatUnknown},
	}
	for _, tt := range tests {
		got := Detect(model.File{Name: tt.name, Type: tt.mimeType})
		if got != tt.want {
			t.Errorf("Detect(%q, %q) = %q, want %q", tt.name, tt.mimeType, got, tt.want)
		}
	}
}

func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		header string
		want   rune
	}{
		{"a,b,c", ','},
		{"a;b;c", ';'},
		{"a\tb\tc", '\t'},
		{"a|b|c", '|'},
		{"a;b,c", ','}, // tie: first listed wins
		{"name", ','},
		{"nome;valor,total;data", ';'},
	}
	for _, tt := range tests {
		if got := sniffDelimiter(tt.header); got != tt.want {
			t.Errorf("sniffDelimiter(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func parseString(t *testing.T, name, content string) *model.ParsedTable {
	t.Helper()
	table, err := ParseFile(context.Background(), model.NewFile(name, "", []byte(content)))
	if err != nil {
		t.Fatalf("ParseFile(%s) failed: %v", name, err)
	}
	return table
}

func TestParseCSV(t *testing.T) {
	content := "\"origem\";\"destino\";valor\n" +
		"\"A1\";  B1 ;5\n" +
		"only;;\n" +
		"A2;\"B2; Ltda\";007\n"
	table := parseString(t, "transfers.csv", content)

	wantCols := []string{"origem", "destino", "valor"}
	if strings.Join(table.Columns, ",") != strings.Join(wantCols, ",") {
		t.Fatalf("Columns = %v, want %v", table.Columns, wantCols)
	}
	if table.RowCount != 2 {
		t.Fatalf("RowCount = %d, want 2 (sparse row dropped)", table.RowCount)
	}

	first := table.Rows[0]
	if first.Text("origem") != "A1" || first.Text("destino") != "B1" {
		t.Errorf("first row = %v", first)
	}
	if v := first.Get("valor"); v.Kind() != model.KindNumber {
		t.Errorf("valor kind = %v, want number", v.Kind())
	}

	second := table.Rows[1]
	if got := second.Text("destino"); got != "B2; Ltda" {
		t.Errorf("quoted field = %q, want %q", got, "B2; Ltda")
	}
	if got := second.Get("valor").String(); got != "007" {
		t.Errorf("number text = %q, want leading zeros kept", got)
	}
	if len(table.Preview) != 2 {
		t.Errorf("Preview has %d rows, want 2", len(table.Preview))
	}
	if table.File.Name != "transfers.csv" {
		t.Errorf("File.Name = %q", table.File.Name)
	}
}

func TestParseCSVPreviewLimit(t *testing.T) {
	var b strings.Builder
	b.WriteString("a,b\n")
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&b, "x%d,y%d\n", i, i)
	}
	table := parseString(t, "many.csv", b.String())
	if table.RowCount != 12 {
		t.Errorf("RowCount = %d, want 12", table.RowCount)
	}
	if len(table.Preview) != model.PreviewRows {
		t.Errorf("Preview has %d rows, want %d", len(table.Preview), model.PreviewRows)
	}
}

func TestParseTXT(t *testing.T) {
	t.Run("whitespace", func(t *testing.T) {
		content := "origem destino valor\nAna Bruno 10 extra\nshort line\nCarla Davi 20\n"
		table := parseString(t, "list.txt", content)
		if table.RowCount != 2 {
			t.Fatalf("RowCount = %d, want 2", table.RowCount)
		}
		if got := table.Rows[0].Text("destino"); got != "Bruno" {
			t.Errorf("destino = %q, want Bruno", got)
		}
		if _, ok := table.Rows[0]["extra"]; ok {
			t.Error("extra token should be ignored")
		}
	})

	t.Run("delimited", func(t *testing.T) {
		table := parseString(t, "list.txt", "a|b\nx|y\n")
		if len(table.Columns) != 2 || table.RowCount != 1 {
			t.Errorf("got columns %v rows %d", table.Columns, table.RowCount)
		}
	})
}

func TestParseJSON(t *testing.T) {
	t.Run("array", func(t *testing.T) {
		content := `[{"z": "A", "a": "B", "n": 3}, {"z": "C", "a": "", "n": null}, {"z": "D", "a": "E"}]`
		table := parseString(t, "data.json", content)
		if strings.Join(table.Columns, ",") != "z,a,n" {
			t.Errorf("Columns = %v, want document order z,a,n", table.Columns)
		}
		if table.RowCount != 2 {
			t.Errorf("RowCount = %d, want 2", table.RowCount)
		}
		if v := table.Rows[0].Get("n"); v.Kind() != model.KindNumber {
			t.Errorf("n kind = %v, want number", v.Kind())
		}
	})

	t.Run("wrapped", func(t *testing.T) {
		content := `{"meta": {"v": 1}, "tags": [1, 2], "items": [{"de": "A", "para": "B"}], "other": [{"x": "1", "y": "2"}]}`
		table := parseString(t, "data.json", content)
		if strings.Join(table.Columns, ",") != "de,para" {
			t.Errorf("Columns = %v, want first array of objects", table.Columns)
		}
	})

	t.Run("invalid shape", func(t *testing.T) {
		for _, content := range []string{`"text"`, `{"a": 1}`, `[1, 2]`, `{"a": [`} {
			_, err := ParseFile(context.Background(), model.NewFile("bad.json", "", []byte(content)))
			if !errors.Is(err, ErrInvalidJSONShape) {
				t.Errorf("%s: err = %v, want ErrInvalidJSONShape", content, err)
			}
		}
	})
}

func TestParseExcel(t *testing.T) {
	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)
	rows := [][]interface{}{
		{"remetente", "beneficiario", "valor"},
		{"Empresa X", "Fulano", 1500},
		{"", "", ""},
		{"Empresa Y", "Beltrano", 20},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := wb.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := wb.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	table, err := ParseFile(context.Background(), model.NewFile("book.xlsx", "", buf.Bytes()))
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if table.RowCount != 2 {
		t.Fatalf("RowCount = %d, want 2", table.RowCount)
	}
	if got := table.Rows[1].Text("beneficiario"); got != "Beltrano" {
		t.Errorf("beneficiario = %q, want Beltrano", got)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"photo.png", "data", ErrUnsupportedFormat},
		{"empty.csv", "  \n", ErrEmptyFile},
		{"header.csv", "a,b\n", ErrTooFewRows},
	}
	for _, tt := range tests {
		table, err := ParseFile(context.Background(), model.NewFile(tt.name, "", []byte(tt.content)))
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
		if table != nil {
			t.Errorf("%s: got a partial table", tt.name)
		}
		if err != nil && !strings.HasPrefix(err.Error(), "parsing "+tt.name+": ") {
			t.Errorf("%s: error %q lacks file prefix", tt.name, err)
		}
	}
}

func TestParseProgressAndCancel(t *testing.T) {
	var b strings.Builder
	b.WriteString("a,b\n")
	for i := 0; i < 250; i++ {
		fmt.Fprintf(&b, "x%d,y%d\n", i, i)
	}
	file := model.NewFile("big.csv", "text/csv", []byte(b.String()))

	var reports []Progress
	table, err := ParseFile(context.Background(), file, WithProgress(func(p Progress) {
		reports = append(reports, p)
	}))
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if table.RowCount != 250 {
		t.Errorf("RowCount = %d, want 250", table.RowCount)
	}
	if len(reports) != 3 {
		t.Fatalf("got %d progress reports, want 3", len(reports))
	}
	if reports[0].RowsDone != 100 || reports[0].RowsTotal != 250 {
		t.Errorf("first report = %+v", reports[0])
	}
	if last := reports[len(reports)-1]; last.Percent != 100 {
		t.Errorf("last report percent = %v, want 100", last.Percent)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ParseFile(ctx, file); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled parse err = %v, want context.Canceled", err)
	}
}

func TestReadGrid(t *testing.T) {
	grid, err := ReadGrid(context.Background(), model.NewFile("rif.csv", "", []byte("a;b\n1;2\n")))
	if err != nil {
		t.Fatalf("ReadGrid failed: %v", err)
	}
	if len(grid) != 2 || grid[1][1] != "2" {
		t.Errorf("grid = %v", grid)
	}
}
