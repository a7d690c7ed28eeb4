package textutil

import "testing"

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Beneficiário", "beneficiario"},
		{"  CRÉDITOS ", "creditos"},
		{"Razão Social", "razao social"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := Fold(tt.in); got != tt.want {
			t.Errorf("Fold(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("CPF/CNPJ do Remetente")
	want := []string{"cpf", "cnpj", "do", "remetente"}
	if len(got) != len(want) {
		t.Fatalf("Tokens() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDigits(t *testing.T) {
	if got := Digits("123.456.789-01"); got != "12345678901" {
		t.Errorf("Digits() = %q", got)
	}
}
