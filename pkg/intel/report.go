package intel

import (
	"fmt"

	"github.com/ritzau/link-analyzer/pkg/graph"
	"github.com/ritzau/link-analyzer/pkg/model"
)

// Alert thresholds
const (
	HighVolumeThreshold    = 1_000_000.0
	MaxCounterparties      = 20
	SmallTransactionAmount = 10_000.0
	MaxSmallTransactions   = 10
)

// DefaultSubject stands in for the investigated party when the report
// lists nobody under ENVOLVIDOS.
const DefaultSubject = "titular"

// AlertKind classifies a report-level alert
type AlertKind string

const (
	AlertHighVolume         AlertKind = "high-volume"
	AlertManyCounterparties AlertKind = "many-counterparties"
	AlertFracionamento      AlertKind = "fracionamento"
)

type Alert struct {
	Kind    AlertKind `json:"kind"`
	Message string    `json:"message"`
}

// Report is a parsed intelligence report
type Report struct {
	Sections       []Section     `json:"sections"`
	Involved       []Party       `json:"involved"`
	Credits        []Transaction `json:"credits"`
	Debits         []Transaction `json:"debits"`
	TotalCredits   float64       `json:"totalCredits"`
	TotalDebits    float64       `json:"totalDebits"`
	Counterparties int           `json:"counterparties"`
	Alerts         []Alert       `json:"alerts"`
}

// Subject is the first involved party, the one the movements belong to.
func (r *Report) Subject() string {
	if len(r.Involved) > 0 {
		return r.Involved[0].ID()
	}
	return DefaultSubject
}

// Volume is credits plus debits.
func (r *Report) Volume() float64 {
	return r.TotalCredits + r.TotalDebits
}

// Transactions returns credits followed by debits.
func (r *Report) Transactions() []Transaction {
	all := make([]Transaction, 0, len(r.Credits)+len(r.Debits))
	all = append(all, r.Credits...)
	return append(all, r.Debits...)
}

func (r *Report) computeTotals() {
	r.TotalCredits, r.TotalDebits = 0, 0
	for _, tx := range r.Credits {
		r.TotalCredits += tx.Amount
	}
	for _, tx := range r.Debits {
		r.TotalDebits += tx.Amount
	}
	seen := make(map[string]bool)
	for _, tx := range r.Transactions() {
		seen[tx.Counterparty.ID()] = true
	}
	r.Counterparties = len(seen)
}

// smallTransactions counts transactions under SmallTransactionAmount. A line
// aggregating several transactions counts each when their mean is small.
func smallTransactions(txs []Transaction) int {
	n := 0
	for _, tx := range txs {
		switch {
		case tx.Count > 0 && tx.Amount/float64(tx.Count) < SmallTransactionAmount:
			n += tx.Count
		case tx.Count == 0 && tx.Amount < SmallTransactionAmount:
			n++
		}
	}
	return n
}

func alertsFor(r *Report) []Alert {
	alerts := make([]Alert, 0)
	if v := r.Volume(); v > HighVolumeThreshold {
		alerts = append(alerts, Alert{
			Kind:    AlertHighVolume,
			Message: fmt.Sprintf("total volume %s above %s", model.FormatBRL(v), model.FormatBRL(HighVolumeThreshold)),
		})
	}
	if r.Counterparties > MaxCounterparties {
		alerts = append(alerts, Alert{
			Kind:    AlertManyCounterparties,
			Message: fmt.Sprintf("%d distinct counterparties", r.Counterparties),
		})
	}
	if n := smallTransactions(r.Transactions()); n > MaxSmallTransactions {
		alerts = append(alerts, Alert{
			Kind:    AlertFracionamento,
			Message: fmt.Sprintf("%d transactions below %s: possible fracionamento", n, model.FormatBRL(SmallTransactionAmount)),
		})
	}
	return alerts
}

const (
	colFrom   = "from"
	colTo     = "to"
	colKind   = "kind"
	colAmount = "amount"
)

// Graph links counterparties to the subject: credits flow counterparty →
// subject, debits subject → counterparty.
func (r *Report) Graph(opts ...graph.Option) *model.LinkGraph {
	subject := r.Subject()
	rows := make([]model.Row, 0, len(r.Credits)+len(r.Debits))
	for _, tx := range r.Transactions() {
		from, to := tx.Counterparty.ID(), subject
		if tx.Direction == Debit {
			from, to = to, from
		}
		rows = append(rows, model.Row{
			colFrom:   model.String(from),
			colTo:     model.String(to),
			colKind:   model.String(string(tx.Direction)),
			colAmount: model.Number(tx.Amount),
		})
	}
	return graph.Build(rows, model.ColumnMapping{
		Source:       colFrom,
		Target:       colTo,
		Relationship: colKind,
		Weight:       colAmount,
	}, opts...)
}
