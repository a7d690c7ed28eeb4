package detect

import (
	"fmt"

	"github.com/ritzau/link-analyzer/pkg/model"
)

// Input is what every strategy sees: the declared columns, sample rows and
// the roles resolved by earlier strategies.
type Input struct {
	Columns  []string
	Samples  []model.Row
	Resolved Roles

	profiles map[string]*Profile
}

// NewInput prepares an Input; column profiles are computed on first use.
func NewInput(columns []string, samples []model.Row) *Input {
	return &Input{Columns: columns, Samples: samples}
}

// Profile returns the content profile of a column.
func (in *Input) Profile(column string) *Profile {
	if in.profiles == nil {
		in.profiles = make(map[string]*Profile, len(in.Columns))
	}
	p, ok := in.profiles[column]
	if !ok {
		p = profileColumn(column, in.Samples)
		in.profiles[column] = p
	}
	return p
}

// Roles is a strategy's proposal. Empty fields mean no opinion.
type Roles struct {
	Source       string
	Target       string
	SourceReason string
	TargetReason string
}

// Strategy proposes source and/or target columns.
// Implementations must be pure: the same input always gives the same roles.
type Strategy interface {
	// Name returns the unique name of the strategy (e.g., "name-pattern").
	Name() string

	// Confidence is how much a role resolved by this strategy is trusted.
	Confidence() float64

	Detect(in *Input) Roles
}

// Strategies returns the ordered cascade used by DetectColumns.
func Strategies() []Strategy {
	return []Strategy{
		namePattern{},
		content{},
		identifierKeyword{},
		synonym{},
		positional{},
	}
}

// keywordStrategy matches column names against source and target lists.
type keywordStrategy struct {
	sources []string
	targets []string
}

func (k keywordStrategy) detect(in *Input) Roles {
	var r Roles
	if in.Resolved.Source == "" {
		if col, kw := findByName(in.Columns, k.sources, in.Resolved.Target); col != "" {
			r.Source = col
			r.SourceReason = fmt.Sprintf("column name contains %q", kw)
		}
	}
	if in.Resolved.Target == "" {
		source := in.Resolved.Source
		if source == "" {
			source = r.Source
		}
		if col, kw := findByName(in.Columns, k.targets, source); col != "" {
			r.Target = col
			r.TargetReason = fmt.Sprintf("column name contains %q", kw)
		}
	}
	return r
}

type namePattern struct{}

func (namePattern) Name() string        { return "name-pattern" }
func (namePattern) Confidence() float64 { return 1.0 }
func (namePattern) Detect(in *Input) Roles {
	return keywordStrategy{sources: sourceNames, targets: targetNames}.detect(in)
}

type identifierKeyword struct{}

func (identifierKeyword) Name() string        { return "identifier-keyword" }
func (identifierKeyword) Confidence() float64 { return 0.6 }
func (identifierKeyword) Detect(in *Input) Roles {
	return keywordStrategy{sources: identifierSource, targets: identifierTarget}.detect(in)
}

type synonym struct{}

func (synonym) Name() string        { return "synonym" }
func (synonym) Confidence() float64 { return 0.5 }
func (synonym) Detect(in *Input) Roles {
	return keywordStrategy{sources: synonymSource, targets: synonymTarget}.detect(in)
}

// content picks columns by what their values look like.
type content struct{}

func (content) Name() string        { return "content" }
func (content) Confidence() float64 { return 0.8 }

func (content) Detect(in *Input) Roles {
	var r Roles
	if len(in.Samples) == 0 {
		return r
	}

	source := in.Resolved.Source
	if source == "" {
		for _, want := range []ContentType{ContentTaxID, ContentPhone, ContentEmail} {
			if col := firstWithContent(in, want, false, in.Resolved.Target); col != "" {
				r.Source, source = col, col
				r.SourceReason = fmt.Sprintf("values are mostly %s", want)
				break
			}
		}
		if source == "" {
			if col := firstWithContent(in, ContentText, true, in.Resolved.Target); col != "" {
				r.Source, source = col, col
				r.SourceReason = "values are distinct free text"
			}
		}
	}

	if in.Resolved.Target == "" {
		for _, want := range []ContentType{ContentText, ContentTaxID, ContentPhone, ContentEmail} {
			if col := firstWithContent(in, want, true, source); col != "" {
				r.Target = col
				r.TargetReason = fmt.Sprintf("values are distinct %s", want)
				break
			}
		}
	}
	return r
}

func firstWithContent(in *Input, want ContentType, distinct bool, exclude string) string {
	for _, col := range in.Columns {
		if col == exclude {
			continue
		}
		p := in.Profile(col)
		if p.Samples == 0 || p.Dominant != want {
			continue
		}
		if distinct && p.Cardinality < HighCardinality {
			continue
		}
		return col
	}
	return ""
}

// positional maps the first column to source and the next one to target.
type positional struct{}

func (positional) Name() string        { return "positional" }
func (positional) Confidence() float64 { return 0.2 }

func (positional) Detect(in *Input) Roles {
	var r Roles
	if len(in.Columns) == 0 {
		return r
	}
	source := in.Resolved.Source
	if source == "" {
		for _, col := range in.Columns {
			if col != in.Resolved.Target || len(in.Columns) == 1 {
				source = col
				break
			}
		}
		r.Source = source
		r.SourceReason = "first available column"
	}
	if in.Resolved.Target == "" {
		r.Target = in.Columns[0]
		for _, col := range in.Columns {
			if col != source {
				r.Target = col
				break
			}
		}
		r.TargetReason = "next available column"
	}
	return r
}
