// Package entity infers the domain type of raw entity values.
package entity

import (
	"regexp"
	"strings"

	"github.com/ritzau/link-analyzer/pkg/model"
	"github.com/ritzau/link-analyzer/pkg/textutil"
)

// Candidate is a value prepared once and shared by every rule.
type Candidate struct {
	Raw     string
	Clean   string   // letters, digits, '@', '.', '-' only
	Digits  string   // digits of Raw when Raw holds only digits and punctuation
	Words   []string // folded alphanumeric tokens of Raw
	numeric bool
}

// Rule is one named check of the classification cascade.
type Rule struct {
	Name  string
	Type  model.EntityType
	Match func(c Candidate) bool
}

var (
	cleanPattern   = regexp.MustCompile(`[^\p{L}\p{N}@.\-]`)
	numericShape   = regexp.MustCompile(`^[\d\s.\-/()+]+$`)
	emailPattern   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	plateMercosul  = regexp.MustCompile(`^[A-Z]{3}\d[A-Z]\d{2}$`)
	plateLegacy    = regexp.MustCompile(`^[A-Z]{3}\d{4}$`)
	addressLexicon = map[string]bool{
		"rua": true, "avenida": true, "av": true, "alameda": true,
		"travessa": true, "rodovia": true, "estrada": true, "praca": true,
		"largo": true, "beco": true, "viela": true, "quadra": true,
		"logradouro": true, "cep": true,
	}
)

var rules = []Rule{
	{Name: "cpf", Type: model.EntityCPF, Match: func(c Candidate) bool {
		return c.numeric && len(c.Digits) == 11
	}},
	{Name: "cnpj", Type: model.EntityCNPJ, Match: func(c Candidate) bool {
		return c.numeric && len(c.Digits) == 14
	}},
	{Name: "phone", Type: model.EntityPhone, Match: func(c Candidate) bool {
		n := len(c.Digits)
		return c.numeric && (n == 10 || n == 11) && c.Digits[0] != '0'
	}},
	{Name: "email", Type: model.EntityEmail, Match: func(c Candidate) bool {
		return emailPattern.MatchString(c.Clean)
	}},
	{Name: "plate", Type: model.EntityPlate, Match: func(c Candidate) bool {
		p := strings.ToUpper(strings.ReplaceAll(c.Clean, "-", ""))
		return plateMercosul.MatchString(p) || plateLegacy.MatchString(p)
	}},
	{Name: "address", Type: model.EntityAddress, Match: func(c Candidate) bool {
		for _, w := range c.Words {
			if addressLexicon[w] {
				return true
			}
		}
		return false
	}},
}

// Rules returns the ordered classification rules.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Prepare builds the Candidate for a raw value.
func Prepare(value string) Candidate {
	raw := strings.TrimSpace(value)
	c := Candidate{
		Raw:   raw,
		Clean: cleanPattern.ReplaceAllString(raw, ""),
		Words: textutil.Tokens(raw),
	}
	if raw != "" && numericShape.MatchString(raw) {
		c.numeric = true
		c.Digits = textutil.Digits(raw)
	}
	return c
}

// Classify returns the entity type of value. It never fails: values no
// rule recognizes are generic entities.
func Classify(value string) model.EntityType {
	c := Prepare(value)
	for _, r := range rules {
		if r.Match(c) {
			return r.Type
		}
	}
	return model.EntityGeneric
}

// Classifier is the function signature graph builders accept.
type Classifier func(value string) model.EntityType
