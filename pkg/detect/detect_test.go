package detect

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/ritzau/link-analyzer/pkg/model"
)

func rows(columns []string, records ...[]string) []model.Row {
	out := make([]model.Row, 0, len(records))
	for _, rec := range records {
		r := make(model.Row)
		for i, c := range columns {
			r[c] = model.ParseValue(rec[i])
		}
		out = append(out, r)
	}
	return out
}

func TestDetectColumnsScenarios(t *testing.T) {
	tests := []struct {
		name           string
		columns        []string
		samples        []model.Row
		source, target string
		relationship   string
		weight         string
		sourceStrategy string
		targetStrategy string
		confidence     float64
	}{
		{
			name:           "name pattern",
			columns:        []string{"origem", "destino", "tipo", "valor"},
			source:         "origem",
			target:         "destino",
			relationship:   "tipo",
			weight:         "valor",
			sourceStrategy: "name-pattern",
			targetStrategy: "name-pattern",
			confidence:     1.0,
		},
		{
			name:           "accents and case",
			columns:        []string{"Data", "Remetente", "Beneficiário", "Observações"},
			source:         "Remetente",
			target:         "Beneficiário",
			relationship:   "Observações",
			sourceStrategy: "name-pattern",
			targetStrategy: "name-pattern",
			confidence:     1.0,
		},
		{
			name:           "short keywords as leading tokens",
			columns:        []string{"de", "para"},
			source:         "de",
			target:         "para",
			sourceStrategy: "name-pattern",
			targetStrategy: "name-pattern",
			confidence:     1.0,
		},
		{
			name:           "short keywords as trailing tokens",
			columns:        []string{"data", "enviado_de", "pago_para"},
			source:         "enviado_de",
			target:         "pago_para",
			sourceStrategy: "name-pattern",
			targetStrategy: "name-pattern",
			confidence:     1.0,
		},
		{
			name:           "identifier as trailing token",
			columns:        []string{"valor", "pessoa_id", "nome"},
			source:         "pessoa_id",
			target:         "nome",
			weight:         "valor",
			sourceStrategy: "identifier-keyword",
			targetStrategy: "name-pattern",
			confidence:     0.8,
		},
		{
			name:           "name keyword after a space",
			columns:        []string{"data", "conta", "cliente nome"},
			source:         "data",
			target:         "cliente nome",
			sourceStrategy: "positional",
			targetStrategy: "name-pattern",
			confidence:     0.6,
		},
		{
			name:           "short keyword is not a substring",
			columns:        []string{"idade", "codigo_cliente", "nome"},
			source:         "codigo_cliente",
			target:         "nome",
			sourceStrategy: "identifier-keyword",
			targetStrategy: "name-pattern",
			confidence:     0.8,
		},
		{
			name:           "identifier keyword",
			columns:        []string{"obs", "id_pessoa", "nome_completo"},
			source:         "id_pessoa",
			target:         "nome_completo",
			sourceStrategy: "identifier-keyword",
			targetStrategy: "name-pattern",
			confidence:     0.8,
		},
		{
			name:           "synonym",
			columns:        []string{"cliente", "fornecedor"},
			source:         "cliente",
			target:         "fornecedor",
			sourceStrategy: "synonym",
			targetStrategy: "synonym",
			confidence:     0.5,
		},
		{
			name:           "positional",
			columns:        []string{"alpha", "beta", "gamma"},
			source:         "alpha",
			target:         "beta",
			sourceStrategy: "positional",
			targetStrategy: "positional",
			confidence:     0.2,
		},
		{
			name:           "single column",
			columns:        []string{"alpha"},
			source:         "alpha",
			target:         "alpha",
			sourceStrategy: "positional",
			targetStrategy: "positional",
			confidence:     0.2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectColumns(tt.columns, tt.samples)
			if got.Source != tt.source || got.Target != tt.target {
				t.Errorf("got source %q target %q, want %q %q", got.Source, got.Target, tt.source, tt.target)
			}
			if got.Relationship != tt.relationship {
				t.Errorf("Relationship = %q, want %q", got.Relationship, tt.relationship)
			}
			if got.Weight != tt.weight {
				t.Errorf("Weight = %q, want %q", got.Weight, tt.weight)
			}
			if got.SourceStrategy != tt.sourceStrategy || got.TargetStrategy != tt.targetStrategy {
				t.Errorf("strategies = %q/%q, want %q/%q", got.SourceStrategy, got.TargetStrategy, tt.sourceStrategy, tt.targetStrategy)
			}
			if got.Confidence != tt.confidence {
				t.Errorf("Confidence = %v, want %v", got.Confidence, tt.confidence)
			}
			if len(got.Explanation) == 0 {
				t.Error("Explanation is empty")
			}
		})
	}
}

func TestDetectColumnsContent(t *testing.T) {
	columns := []string{"col_a", "col_b", "col_c", "col_d"}
	samples := rows(columns,
		[]string{"ana@x.com", "Ana Souza", "10", "sim"},
		[]string{"bia@x.com", "Bia Lima", "20,50", "sim"},
		[]string{"caio@x.com", "Caio Reis", "30", "sim"},
		[]string{"dora@x.com", "Dora Melo", "R$ 1.000,00", "nao"},
	)
	got := DetectColumns(columns, samples)

	if got.Source != "col_a" || got.SourceStrategy != "content" {
		t.Errorf("source = %q by %q, want col_a by content", got.Source, got.SourceStrategy)
	}
	if got.Target != "col_b" || got.TargetStrategy != "content" {
		t.Errorf("target = %q by %q, want col_b by content", got.Target, got.TargetStrategy)
	}
	if got.Weight != "col_c" {
		t.Errorf("Weight = %q, want numeric column col_c", got.Weight)
	}
}

func TestDetectColumnsTaxIDSource(t *testing.T) {
	columns := []string{"pessoa", "documento"}
	samples := rows(columns,
		[]string{"Ana Souza", "123.456.789-01"},
		[]string{"Bia Lima", "98765432100"},
		[]string{"Caio Reis", "12.345.678/0001-90"},
	)
	got := DetectColumns(columns, samples)
	if got.Source != "documento" || got.Target != "pessoa" {
		t.Errorf("got %q -> %q, want documento -> pessoa", got.Source, got.Target)
	}
}

func TestClassifyContent(t *testing.T) {
	tests := []struct {
		raw  string
		want ContentType
	}{
		{"1134567890", ContentPhone},
		{"(11) 3456-7890", ContentPhone},
		{"0123456789", ContentNumeric},
		{"123.456.789-01", ContentTaxID},
		{"12.345.678/0001-90", ContentTaxID},
		{"ana@x.com", ContentEmail},
		{"Ana Souza", ContentText},
		{"10", ContentNumeric},
	}
	for _, tt := range tests {
		if got := classifyContent(model.ParseValue(tt.raw)); got != tt.want {
			t.Errorf("classifyContent(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}

func TestProfileLeadingZeroIdentifiersAreNotPhones(t *testing.T) {
	columns := []string{"conta"}
	samples := rows(columns,
		[]string{"0012345678"},
		[]string{"0098765432"},
		[]string{"0055501234"},
	)
	p := profileColumn("conta", samples)
	if p.Dominant == ContentPhone || p.Counts[ContentPhone] != 0 {
		t.Fatalf("profile = %+v, want no phones", p)
	}
	if p.Dominant != ContentNumeric {
		t.Errorf("Dominant = %s, want %s", p.Dominant, ContentNumeric)
	}
}

func TestDetectColumnsRelationshipNeverReusesEndpoints(t *testing.T) {
	got := DetectColumns([]string{"remetente", "beneficiario", "observacoes"}, nil)
	if got.Relationship != "observacoes" {
		t.Errorf("Relationship = %q, want observacoes", got.Relationship)
	}
}

func TestDetectColumnsTotal(t *testing.T) {
	lists := [][]string{
		{"x"},
		{"a", "a"},
		{"valor", "tipo"},
		{"destino"},
		{"destino", "origem"},
		{"para", "de", "para"},
		{"1", "2", "3", "4", "5"},
		{"Nome", "Nome do Pai", "Nome da Mãe"},
	}
	for _, cols := range lists {
		got := DetectColumns(cols, nil)
		if !contains(cols, got.Source) {
			t.Errorf("%v: source %q not a declared column", cols, got.Source)
		}
		if !contains(cols, got.Target) {
			t.Errorf("%v: target %q not a declared column", cols, got.Target)
		}
	}

	if got := DetectColumns(nil, nil); got.Source != "" || got.Target != "" {
		t.Errorf("empty column list gave %+v", got)
	}
}

func TestStrategiesArePure(t *testing.T) {
	columns := []string{"id", "nome", "valor"}
	samples := rows(columns, []string{"1", "Ana", "10"}, []string{"2", "Bia", "20"})
	for _, s := range Strategies() {
		first := s.Detect(NewInput(columns, samples))
		second := s.Detect(NewInput(columns, samples))
		if !reflect.DeepEqual(first, second) {
			t.Errorf("%s: %+v != %+v", s.Name(), first, second)
		}
	}
}

func TestStrategiesOrder(t *testing.T) {
	want := []string{"name-pattern", "content", "identifier-keyword", "synonym", "positional"}
	var got []string
	for _, s := range Strategies() {
		got = append(got, s.Name())
	}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}
