package entity

import (
	"testing"

	"github.com/ritzau/link-analyzer/pkg/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		value string
		want  model.EntityType
	}{
		{"12345678901", model.EntityCPF},
		{"123.456.789-01", model.EntityCPF},
		{"12345678000190", model.EntityCNPJ},
		{"12.345.678/0001-90", model.EntityCNPJ},
		{"1133334444", model.EntityPhone},
		{"(11) 3333-4444", model.EntityPhone},
		{"0133334444", model.EntityGeneric},
		{"user@example.com", model.EntityEmail},
		{"joao@x.com", model.EntityEmail},
		{"ABC1D23", model.EntityPlate},
		{"abc-1234", model.EntityPlate},
		{"Rua das Flores, 123", model.EntityAddress},
		{"Avenida Paulista 1000", model.EntityAddress},
		{"Praça da Sé", model.EntityAddress},
		{"Maria Silva", model.EntityGeneric},
		{"Ruana Costa", model.EntityGeneric},
		{"", model.EntityGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			if got := Classify(tt.value); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	values := []string{"12345678901", "user@example.com", "Rua A", "Empresa X"}
	for _, v := range values {
		first := Classify(v)
		for i := 0; i < 5; i++ {
			if got := Classify(v); got != first {
				t.Fatalf("Classify(%q) changed from %q to %q", v, first, got)
			}
		}
		// Classifying the tag itself is total as well.
		_ = Classify(string(first))
	}
}

func TestRulesOrder(t *testing.T) {
	want := []string{"cpf", "cnpj", "phone", "email", "plate", "address"}
	got := Rules()
	if len(got) != len(want) {
		t.Fatalf("Rules() returned %d rules, want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("rule %d = %s, want %s", i, got[i].Name, name)
		}
	}
}
