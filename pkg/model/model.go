package model

import (
	"path/filepath"
	"strings"
	"time"
)

// PreviewRows is the number of leading rows copied into ParsedTable.Preview.
const PreviewRows = 5

// MinFilledValues is the density floor: rows with fewer non-empty values
// are discarded while parsing.
const MinFilledValues = 2

// File is an uploaded file: its raw bytes plus the metadata the uploader
// reported.
type File struct {
	Name         string    `json:"name"`
	Type         string    `json:"type"` // MIME type hint, may be empty
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	Data         []byte    `json:"-"`
}

// NewFile wraps raw bytes, deriving Size from the payload.
func NewFile(name, mimeType string, data []byte) File {
	return File{
		Name:         name,
		Type:         mimeType,
		Size:         int64(len(data)),
		LastModified: time.Now(),
		Data:         data,
	}
}

// Ext returns the lower-case extension without the leading dot.
func (f File) Ext() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(f.Name)), ".")
}

// Info returns the metadata of the file without its payload.
func (f File) Info() FileInfo {
	return FileInfo{
		Name:         f.Name,
		Type:         f.Type,
		Size:         f.Size,
		LastModified: f.LastModified,
	}
}

// FileInfo describes the file a table was parsed from
type FileInfo struct {
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// Row maps column names to cell values
type Row map[string]Value

// Get returns the value of a column, or an empty string value.
func (r Row) Get(column string) Value {
	if v, ok := r[column]; ok {
		return v
	}
	return String("")
}

// Text returns the trimmed textual value of a column.
func (r Row) Text(column string) string {
	return strings.TrimSpace(r.Get(column).String())
}

// Filled counts the non-empty values in the row.
func (r Row) Filled() int {
	n := 0
	for _, v := range r {
		if !v.IsEmpty() {
			n++
		}
	}
	return n
}

// ParsedTable is the result of parsing a tabular file
type ParsedTable struct {
	Columns  []string `json:"columns"`
	Rows     []Row    `json:"rows"`
	RowCount int      `json:"rowCount"`
	Preview  []Row    `json:"preview"`
	File     FileInfo `json:"file"`
}

// NewParsedTable assembles a table and fills in the derived fields.
func NewParsedTable(columns []string, rows []Row, file FileInfo) *ParsedTable {
	if rows == nil {
		rows = make([]Row, 0)
	}
	n := len(rows)
	if n > PreviewRows {
		n = PreviewRows
	}
	return &ParsedTable{
		Columns:  columns,
		Rows:     rows,
		RowCount: len(rows),
		Preview:  rows[:n],
		File:     file,
	}
}

// HasColumn reports whether the table declares the column.
func (t *ParsedTable) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// ColumnMapping names the columns that play each relationship role.
// Relationship and Weight are optional.
type ColumnMapping struct {
	Source       string `json:"sourceColumn" validate:"required"`
	Target       string `json:"targetColumn" validate:"required"`
	Relationship string `json:"relationshipColumn,omitempty"`
	Weight       string `json:"weightColumn,omitempty"`
}
