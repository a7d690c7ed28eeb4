package rif

import (
	"github.com/ritzau/link-analyzer/pkg/graph"
	"github.com/ritzau/link-analyzer/pkg/model"
)

const (
	colSender = "sender"
	colHolder = "holder"
	colRole   = "role"
	colValue  = "value"
)

// Graph links each sender to the account holder, weighted by value and
// typed by the holder's role. Entities are identified by document when one
// is present, otherwise by name.
func (r *Report) Graph(opts ...graph.Option) *model.LinkGraph {
	rows := make([]model.Row, 0, len(r.Entities))
	for _, e := range r.Entities {
		rows = append(rows, model.Row{
			colSender: model.String(party(e.SenderDoc, e.SenderName)),
			colHolder: model.String(party(e.HolderDoc, e.HolderName)),
			colRole:   model.String(e.Role),
			colValue:  model.Number(e.Value),
		})
	}
	return graph.Build(rows, model.ColumnMapping{
		Source:       colSender,
		Target:       colHolder,
		Relationship: colRole,
		Weight:       colValue,
	}, opts...)
}

func party(doc, name string) string {
	if doc != "" && !IsMissing(doc) {
		return doc
	}
	if IsMissing(name) {
		return ""
	}
	return name
}
