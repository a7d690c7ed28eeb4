// Package detect infers which columns of a table hold the relationship
// endpoints, label and weight.
package detect

import (
	"fmt"

	"github.com/ritzau/link-analyzer/pkg/logging"
	"github.com/ritzau/link-analyzer/pkg/model"
)

// Result is the detected column mapping plus how it was reached.
type Result struct {
	Source         string   `json:"sourceColumn"`
	Target         string   `json:"targetColumn"`
	Relationship   string   `json:"relationshipColumn,omitempty"`
	Weight         string   `json:"weightColumn,omitempty"`
	SourceStrategy string   `json:"sourceStrategy"`
	TargetStrategy string   `json:"targetStrategy"`
	Confidence     float64  `json:"confidence"`
	Explanation    []string `json:"explanation"`
}

// Mapping returns the column mapping the graph builder consumes.
func (r Result) Mapping() model.ColumnMapping {
	return model.ColumnMapping{
		Source:       r.Source,
		Target:       r.Target,
		Relationship: r.Relationship,
		Weight:       r.Weight,
	}
}

// DetectColumns runs the strategy cascade. It never fails: for any
// non-empty column list Source and Target are members of the list.
func DetectColumns(columns []string, samples []model.Row) Result {
	return DetectWith(Strategies(), columns, samples)
}

// DetectWith runs a custom cascade. A role resolved by an earlier strategy
// is never overridden by a later one.
func DetectWith(strategies []Strategy, columns []string, samples []model.Row) Result {
	res := Result{Explanation: make([]string, 0, 4)}
	if len(columns) == 0 {
		return res
	}

	in := NewInput(columns, samples)
	var sourceConf, targetConf float64
	for _, s := range strategies {
		if in.Resolved.Source != "" && in.Resolved.Target != "" {
			break
		}
		roles := s.Detect(in)
		if in.Resolved.Source == "" && valid(columns, roles.Source, in.Resolved.Target) {
			in.Resolved.Source = roles.Source
			res.SourceStrategy = s.Name()
			sourceConf = s.Confidence()
			res.Explanation = append(res.Explanation,
				fmt.Sprintf("source %q by %s: %s", roles.Source, s.Name(), roles.SourceReason))
		}
		if in.Resolved.Target == "" && valid(columns, roles.Target, in.Resolved.Source) {
			in.Resolved.Target = roles.Target
			res.TargetStrategy = s.Name()
			targetConf = s.Confidence()
			res.Explanation = append(res.Explanation,
				fmt.Sprintf("target %q by %s: %s", roles.Target, s.Name(), roles.TargetReason))
		}
	}

	// Custom cascades may end without a positional step.
	if in.Resolved.Source == "" || in.Resolved.Target == "" {
		roles := positional{}.Detect(in)
		if in.Resolved.Source == "" {
			in.Resolved.Source = roles.Source
		}
		if in.Resolved.Target == "" {
			in.Resolved.Target = roles.Target
		}
	}
	res.Source = in.Resolved.Source
	res.Target = in.Resolved.Target
	res.Confidence = (sourceConf + targetConf) / 2

	taken := []string{res.Source, res.Target}
	if col, kw := findByName(columns, relationshipNames, taken...); col != "" {
		res.Relationship = col
		res.Explanation = append(res.Explanation, fmt.Sprintf("relationship %q: column name contains %q", col, kw))
	} else if col, kw := findByName(columns, operationalNames, taken...); col != "" {
		res.Relationship = col
		res.Explanation = append(res.Explanation, fmt.Sprintf("relationship %q: column name contains %q", col, kw))
	}

	taken = append(taken, res.Relationship)
	if col, kw := findByName(columns, weightNames, taken...); col != "" {
		res.Weight = col
		res.Explanation = append(res.Explanation, fmt.Sprintf("weight %q: column name contains %q", col, kw))
	} else if col := firstNumeric(in, taken); col != "" {
		res.Weight = col
		res.Explanation = append(res.Explanation, fmt.Sprintf("weight %q: values are mostly numeric", col))
	}

	logging.New("detect").Debug("detected columns",
		"source", res.Source, "target", res.Target,
		"relationship", res.Relationship, "weight", res.Weight,
		"confidence", res.Confidence)
	return res
}

// valid accepts a proposed role when it names a declared column other than
// the one holding the opposite role.
func valid(columns []string, col, other string) bool {
	if col == "" || !contains(columns, col) {
		return false
	}
	return col != other || len(columns) == 1
}

func firstNumeric(in *Input, exclude []string) string {
	for _, col := range in.Columns {
		if contains(exclude, col) {
			continue
		}
		p := in.Profile(col)
		if p.Samples > 0 && p.NumericRatio() >= NumericShare {
			return col
		}
	}
	return ""
}
