package detect

import (
	"github.com/ritzau/link-analyzer/pkg/entity"
	"github.com/ritzau/link-analyzer/pkg/model"
)

// ContentType is the dominant kind of value in a column
type ContentType string

const (
	ContentTaxID   ContentType = "taxid"
	ContentPhone   ContentType = "phone"
	ContentEmail   ContentType = "email"
	ContentNumeric ContentType = "numeric"
	ContentText    ContentType = "text"
)

// Ties in the majority vote go to the earlier type.
var contentOrder = []ContentType{ContentTaxID, ContentPhone, ContentEmail, ContentNumeric, ContentText}

const (
	// MaxSamples is the number of evenly spaced values profiled per column.
	MaxSamples = 50
	// SparseSamples is used instead when a column has fewer values.
	SparseSamples = 20
	// HighCardinality is the distinct/total ratio above which a column
	// looks like it holds entity names or identifiers.
	HighCardinality = 0.5
	// NumericShare is the share of numeric samples that makes a weight column.
	NumericShare = 0.7
)

// Profile summarizes the sampled content of one column.
type Profile struct {
	Column      string
	Samples     int
	Dominant    ContentType
	Counts      map[ContentType]int
	Cardinality float64 // distinct / sampled
}

// NumericRatio is the share of samples that parse as numbers.
func (p *Profile) NumericRatio() float64 {
	if p.Samples == 0 {
		return 0
	}
	n := p.Counts[ContentNumeric] + p.Counts[ContentTaxID] + p.Counts[ContentPhone]
	return float64(n) / float64(p.Samples)
}

func profileColumn(column string, rows []model.Row) *Profile {
	values := sampleValues(column, rows)
	p := &Profile{Column: column, Samples: len(values), Counts: make(map[ContentType]int)}
	if len(values) == 0 {
		return p
	}

	distinct := make(map[string]bool, len(values))
	for _, v := range values {
		p.Counts[classifyContent(v)]++
		distinct[v.String()] = true
	}
	p.Cardinality = float64(len(distinct)) / float64(len(values))

	best := 0
	for _, ct := range contentOrder {
		if p.Counts[ct] > best {
			best = p.Counts[ct]
			p.Dominant = ct
		}
	}
	return p
}

// sampleValues picks up to MaxSamples evenly spaced non-empty values, or
// the first SparseSamples when the column has fewer than MaxSamples.
func sampleValues(column string, rows []model.Row) []model.Value {
	var values []model.Value
	for _, r := range rows {
		if v, ok := r[column]; ok && !v.IsEmpty() {
			values = append(values, v)
		}
	}
	if len(values) < MaxSamples {
		if len(values) > SparseSamples {
			values = values[:SparseSamples]
		}
		return values
	}
	picked := make([]model.Value, 0, MaxSamples)
	for i := 0; i < MaxSamples; i++ {
		picked = append(picked, values[i*len(values)/MaxSamples])
	}
	return picked
}

// classifyContent shares the entity rules so that a column profiled as
// phones holds values the graph will also type as phones.
func classifyContent(v model.Value) ContentType {
	switch entity.Classify(v.String()) {
	case model.EntityCPF, model.EntityCNPJ:
		return ContentTaxID
	case model.EntityPhone:
		return ContentPhone
	case model.EntityEmail:
		return ContentEmail
	}
	if _, ok := v.Float(); ok {
		return ContentNumeric
	}
	return ContentText
}
