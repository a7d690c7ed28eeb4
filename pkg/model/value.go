package model

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Kind identifies which scalar a Value holds.
type Kind uint8

const (
	KindString Kind = iota
	KindNumber
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	default:
		return "string"
	}
}

// Value is a single table cell: a string, a number or a boolean.
// Numbers keep the text they were parsed from so identifiers such as
// "01234567890" survive coercion with their leading zeros.
type Value struct {
	kind Kind
	text string
	num  float64
	flag bool
}

// String returns a string value.
func String(s string) Value {
	return Value{kind: KindString, text: s}
}

// Number returns a numeric value.
func Number(f float64) Value {
	return Value{kind: KindNumber, num: f, text: strconv.FormatFloat(f, 'f', -1, 64)}
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	return Value{kind: KindBool, flag: b, text: strconv.FormatBool(b)}
}

var numericPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// ParseValue coerces a raw cell: whitespace and surrounding quotes are
// removed and numeric-looking text becomes a number.
func ParseValue(raw string) Value {
	s := CleanCell(raw)
	if s != "" && numericPattern.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Value{kind: KindNumber, num: f, text: s}
		}
	}
	return String(s)
}

// CleanCell trims a raw cell and strips one layer of surrounding quotes.
func CleanCell(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return strings.ReplaceAll(s, `""`, `"`)
}

// FromAny converts a decoded JSON scalar into a Value. Nested objects and
// arrays are flattened to their JSON text.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return String("")
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return Value{kind: KindNumber, num: f, text: t.String()}
		}
		return String(t.String())
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return String(fmt.Sprint(t))
		}
		return String(string(b))
	}
}

func (v Value) Kind() Kind { return v.kind }

// String returns the textual form of the value.
func (v Value) String() string { return v.text }

// Float returns the numeric value. Strings are parsed leniently, accepting
// Brazilian formatting ("1.234,56").
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindBool:
		return 0, false
	}
	return ParseAmount(v.text)
}

// Bool returns the boolean held by a KindBool value.
func (v Value) Bool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.flag, true
}

// IsEmpty reports whether the value is an empty or whitespace-only string.
func (v Value) IsEmpty() bool {
	return v.kind == KindString && strings.TrimSpace(v.text) == ""
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.flag)
	default:
		return json.Marshal(v.text)
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = FromAny(raw)
	return nil
}

var (
	amountStrip    = regexp.MustCompile(`(?i)r\$|\s`)
	amountBRFormat = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})*(,\d+)?$|^-?\d+,\d+$`)
)

// ParseAmount parses plain or Brazilian-formatted monetary text such as
// "R$ 1.234,56" or "1234.56".
func ParseAmount(s string) (float64, bool) {
	s = amountStrip.ReplaceAllString(strings.TrimSpace(s), "")
	if s == "" {
		return 0, false
	}
	if amountBRFormat.MatchString(s) && (strings.Contains(s, ",") || strings.Count(s, ".") > 1 || looksLikeThousands(s)) {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	} else if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// looksLikeThousands reports "1.234"-style text with exactly three digits
// after a single dot, which Brazilian reports use as a thousands group.
func looksLikeThousands(s string) bool {
	i := strings.IndexByte(s, '.')
	return i > 0 && len(s)-i-1 == 3 && strings.Count(s, ".") == 1
}

var brl = message.NewPrinter(language.BrazilianPortuguese)

// FormatBRL renders an amount the way Brazilian reports print it,
// "R$ 1.234,56".
func FormatBRL(v float64) string {
	return brl.Sprintf("R$ %.2f", v)
}
