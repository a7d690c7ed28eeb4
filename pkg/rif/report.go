// Package rif parses financial-intelligence (RIF/COAF) spreadsheets into
// entities, holder aggregates and alerts.
package rif

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ritzau/link-analyzer/pkg/logging"
	"github.com/ritzau/link-analyzer/pkg/model"
	"github.com/ritzau/link-analyzer/pkg/tabular"
	"github.com/ritzau/link-analyzer/pkg/textutil"
)

// HighValueThreshold flags single transactions at or above R$ 1,000,000.
const HighValueThreshold = 1_000_000.0

// headerSearchRows is how far down the sheet a header row is looked for;
// exports often start with title lines.
const headerSearchRows = 10

var (
	ErrTooFewRows        = errors.New("spreadsheet needs a header and at least one data row")
	ErrUnrecognizedSheet = errors.New("no financial-intelligence columns recognized")
)

// AlertKind classifies an alert
type AlertKind string

const (
	AlertMissingValue    AlertKind = "missing-value"
	AlertSameOwnership   AlertKind = "same-ownership"
	AlertInvalidDocument AlertKind = "invalid-document"
	AlertHighValue       AlertKind = "high-value"
)

// Alert is a qualitative warning raised for one row
type Alert struct {
	Kind    AlertKind `json:"kind"`
	Row     int       `json:"row"`
	Message string    `json:"message"`
}

// Entity is one spreadsheet row
type Entity struct {
	Row             int     `json:"row"`
	ReportID        string  `json:"reportId,omitempty"`
	Order           string  `json:"order,omitempty"`
	Index           string  `json:"index,omitempty"`
	SenderDoc       string  `json:"senderDocument,omitempty"`
	SenderName      string  `json:"senderName,omitempty"`
	Role            string  `json:"role,omitempty"`
	Value           float64 `json:"value"`
	ValueText       string  `json:"valueText,omitempty"`
	HolderDoc       string  `json:"holderDocument,omitempty"`
	HolderName      string  `json:"holderName,omitempty"`
	ResponsibleDoc  string  `json:"responsibleDocument,omitempty"`
	ResponsibleName string  `json:"responsibleName,omitempty"`
	Period          string  `json:"period,omitempty"`
	Notes           string  `json:"notes,omitempty"`
}

// Holder aggregates the movements of one account holder
type Holder struct {
	Document     string  `json:"document,omitempty"`
	Name         string  `json:"name"`
	Inflow       float64 `json:"inflow"`
	Outflow      float64 `json:"outflow"`
	Transactions int     `json:"transactions"`
}

// IndexGroup aggregates the rows sharing an index key
type IndexGroup struct {
	Index    string  `json:"index"`
	Entities int     `json:"entities"`
	Total    float64 `json:"total"`
}

// Report is the parsed spreadsheet
type Report struct {
	Columns    map[Field]string `json:"columns"`
	Entities   []Entity         `json:"entities"`
	Holders    []Holder         `json:"holders"`
	Indexes    []IndexGroup     `json:"indexes"`
	Alerts     []Alert          `json:"alerts"`
	TotalValue float64          `json:"totalValue"`
}

// ParseFile reads the first sheet of a CSV or Excel file.
func ParseFile(ctx context.Context, f model.File) (*Report, error) {
	grid, err := tabular.ReadGrid(ctx, f)
	if err != nil {
		return nil, err
	}
	report, err := ParseGrid(grid)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", f.Name, err)
	}
	return report, nil
}

// ParseGrid locates the header row among the first lines and parses the
// rows below it.
func ParseGrid(grid [][]string) (*Report, error) {
	if len(grid) < 2 {
		return nil, ErrTooFewRows
	}
	best, bestCount := 0, 0
	for i := 0; i < len(grid) && i < headerSearchRows; i++ {
		if n := len(MatchHeader(grid[i])); n > bestCount {
			best, bestCount = i, n
		}
	}
	return ParseRows(grid[best], grid[best+1:])
}

// ParseRows maps the header vocabulary onto the rows. Rows that are blank
// are skipped; anything else becomes an entity.
func ParseRows(header []string, rows [][]string) (*Report, error) {
	if len(rows) < 1 {
		return nil, ErrTooFewRows
	}
	cols := MatchHeader(header)
	if len(cols) == 0 {
		return nil, ErrUnrecognizedSheet
	}
	log := logging.New("rif")

	r := &Report{
		Columns:  make(map[Field]string, len(cols)),
		Entities: make([]Entity, 0, len(rows)),
		Alerts:   make([]Alert, 0),
	}
	for f, i := range cols {
		r.Columns[f] = strings.TrimSpace(header[i])
	}

	for i, rec := range rows {
		get := func(f Field) string {
			idx, ok := cols[f]
			if !ok || idx >= len(rec) {
				return ""
			}
			return model.CleanCell(rec[idx])
		}
		e := Entity{
			Row:             i + 1,
			ReportID:        get(FieldReportID),
			Order:           get(FieldOrder),
			Index:           get(FieldIndex),
			SenderDoc:       get(FieldSenderDoc),
			SenderName:      get(FieldSenderName),
			Role:            get(FieldRole),
			ValueText:       get(FieldValue),
			HolderDoc:       get(FieldHolderDoc),
			HolderName:      get(FieldHolderName),
			ResponsibleDoc:  get(FieldResponsibleDoc),
			ResponsibleName: get(FieldResponsibleName),
			Period:          get(FieldPeriod),
			Notes:           get(FieldNotes),
		}
		if e.empty() {
			log.Debug("skipping blank row", "row", e.Row)
			continue
		}
		if v, ok := model.ParseAmount(e.ValueText); ok {
			e.Value = v
		}
		r.Entities = append(r.Entities, e)
		r.TotalValue += e.Value
		r.Alerts = append(r.Alerts, alertsFor(e)...)
	}

	r.Holders = aggregateHolders(r.Entities)
	r.Indexes = aggregateIndexes(r.Entities)
	log.Info("parsed financial report", "entities", len(r.Entities), "holders", len(r.Holders), "alerts", len(r.Alerts))
	return r, nil
}

func (e Entity) empty() bool {
	for _, s := range []string{e.SenderDoc, e.SenderName, e.HolderDoc, e.HolderName, e.ValueText, e.Role, e.ResponsibleDoc, e.ResponsibleName} {
		if s != "" {
			return false
		}
	}
	return true
}

var missingMarkers = []string{"nao informado", "nao informada", "sem informacao", "n/i", "ni", "nao consta"}

// IsMissing reports placeholder text standing in for a value.
func IsMissing(s string) bool {
	if model.IsPlaceholder(s) {
		return true
	}
	f := textutil.Fold(s)
	for _, m := range missingMarkers {
		if f == m {
			return true
		}
	}
	return false
}

// ValidTaxID reports whether s holds an 11-digit CPF or 14-digit CNPJ.
func ValidTaxID(s string) bool {
	n := len(textutil.Digits(s))
	return n == 11 || n == 14
}

func alertsFor(e Entity) []Alert {
	var alerts []Alert
	add := func(kind AlertKind, format string, args ...any) {
		alerts = append(alerts, Alert{Kind: kind, Row: e.Row, Message: fmt.Sprintf(format, args...)})
	}

	for _, field := range []struct{ name, value string }{
		{"sender document", e.SenderDoc},
		{"sender name", e.SenderName},
		{"holder document", e.HolderDoc},
		{"holder name", e.HolderName},
		{"value", e.ValueText},
	} {
		if field.value != "" && IsMissing(field.value) {
			add(AlertMissingValue, "%s not informed (%q)", field.name, field.value)
		}
	}

	senderDigits, holderDigits := textutil.Digits(e.SenderDoc), textutil.Digits(e.HolderDoc)
	if (holderDigits != "" && holderDigits == senderDigits) || textutil.ContainsAny(e.Role, "mesma titularidade") {
		add(AlertSameOwnership, "transfer between accounts of the same holder %s", firstNonEmpty(e.HolderName, e.HolderDoc))
	}

	if !ValidTaxID(e.HolderDoc) && !ValidTaxID(e.SenderDoc) && !ValidTaxID(e.ResponsibleDoc) {
		add(AlertInvalidDocument, "no valid CPF/CNPJ in row")
	}

	if e.Value >= HighValueThreshold {
		add(AlertHighValue, "single transaction of %s", model.FormatBRL(e.Value))
	}
	return alerts
}

func aggregateHolders(entities []Entity) []Holder {
	byKey := make(map[string]*Holder)
	order := make([]string, 0)
	for _, e := range entities {
		key := textutil.Digits(e.HolderDoc)
		if key == "" {
			key = textutil.Fold(e.HolderName)
		}
		if key == "" {
			continue
		}
		h, ok := byKey[key]
		if !ok {
			h = &Holder{Document: e.HolderDoc, Name: e.HolderName}
			byKey[key] = h
			order = append(order, key)
		}
		if h.Name == "" {
			h.Name = e.HolderName
		}
		h.Transactions++
		role := textutil.Fold(e.Role)
		switch {
		case strings.Contains(role, "beneficiario"):
			h.Inflow += e.Value
		case strings.Contains(role, "remetente"):
			h.Outflow += e.Value
		}
	}

	holders := make([]Holder, 0, len(order))
	for _, k := range order {
		holders = append(holders, *byKey[k])
	}
	sort.SliceStable(holders, func(i, j int) bool {
		return holders[i].Inflow+holders[i].Outflow > holders[j].Inflow+holders[j].Outflow
	})
	return holders
}

func aggregateIndexes(entities []Entity) []IndexGroup {
	byIndex := make(map[string]*IndexGroup)
	order := make([]string, 0)
	for _, e := range entities {
		if e.Index == "" {
			continue
		}
		g, ok := byIndex[e.Index]
		if !ok {
			g = &IndexGroup{Index: e.Index}
			byIndex[e.Index] = g
			order = append(order, e.Index)
		}
		g.Entities++
		g.Total += e.Value
	}
	groups := make([]IndexGroup, 0, len(order))
	for _, k := range order {
		groups = append(groups, *byIndex[k])
	}
	return groups
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// AlertsOf returns the alerts of one kind.
func (r *Report) AlertsOf(kind AlertKind) []Alert {
	out := make([]Alert, 0)
	for _, a := range r.Alerts {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

// HasMovementColumns reports whether the sheet names both sides of a
// movement, a sender and an account holder. Generic tables often match a
// field or two of the vocabulary but rarely both sides.
func (r *Report) HasMovementColumns() bool {
	has := func(fields ...Field) bool {
		for _, f := range fields {
			if _, ok := r.Columns[f]; ok {
				return true
			}
		}
		return false
	}
	return has(FieldSenderDoc, FieldSenderName) && has(FieldHolderDoc, FieldHolderName)
}
