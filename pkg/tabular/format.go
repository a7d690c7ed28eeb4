package tabular

import (
	"mime"
	"strings"

	"github.com/ritzau/link-analyzer/pkg/model"
)

// Format is a supported tabular file format
type Format string

const (
	FormatUnknown Format = ""
	FormatCSV     Format = "csv"
	FormatXLSX    Format = "xlsx"
	FormatXLS     Format = "xls"
	FormatJSON    Format = "json"
	FormatTXT     Format = "txt"
)

const mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var mimeFormats = map[string]Format{
	"text/csv":                    FormatCSV,
	"application/csv":             FormatCSV,
	"text/comma-separated-values": FormatCSV,
	mimeXLSX:                      FormatXLSX,
	"application/vnd.ms-excel":    FormatXLS,
	"application/json":            FormatJSON,
	"text/json":                   FormatJSON,
	"text/plain":                  FormatTXT,
	"text/tab-separated-values":   FormatTXT,
}

var extFormats = map[string]Format{
	"csv":  FormatCSV,
	"xlsx": FormatXLSX,
	"xls":  FormatXLS,
	"json": FormatJSON,
	"txt":  FormatTXT,
	"tsv":  FormatTXT,
}

// Detect picks the format of a file from its MIME type, then its extension.
// Browsers commonly report CSV uploads as application/vnd.ms-excel, so an
// Excel MIME type on a .csv file is treated as CSV.
func Detect(f model.File) Format {
	mt := strings.ToLower(strings.TrimSpace(f.Type))
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		mt = parsed
	}
	ext := f.Ext()

	if format, ok := mimeFormats[mt]; ok {
		if format == FormatXLS && ext == "csv" {
			return FormatCSV
		}
		return format
	}
	if format, ok := extFormats[ext]; ok {
		return format
	}
	return FormatUnknown
}

// Supported reports whether a file name has a parseable extension.
func Supported(name string) bool {
	return Detect(model.File{Name: name}) != FormatUnknown
}
