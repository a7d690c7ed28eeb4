package rif

import (
	"strings"

	"github.com/ritzau/link-analyzer/pkg/textutil"
)

// Field is a column of the financial-intelligence layout
type Field string

const (
	FieldReportID        Field = "reportId"
	FieldOrder           Field = "order"
	FieldIndex           Field = "index"
	FieldSenderDoc       Field = "senderDocument"
	FieldResponsibleDoc  Field = "responsibleDocument"
	FieldHolderDoc       Field = "holderDocument"
	FieldSenderName      Field = "senderName"
	FieldResponsibleName Field = "responsibleName"
	FieldHolderName      Field = "holderName"
	FieldRole            Field = "role"
	FieldValue           Field = "value"
	FieldPeriod          Field = "period"
	FieldNotes           Field = "notes"
)

// vocabulary lists header variants per field. A variant matches when every
// one of its words appears in the folded header. Fields are tried in this
// order, so document columns are claimed before name columns and specific
// variants before generic ones.
var vocabulary = []struct {
	field    Field
	variants []string
}{
	{FieldReportID, []string{"id comunicacao", "comunicacao", "numero rif", "id rif", "rif"}},
	{FieldOrder, []string{"ordem", "seq", "item"}},
	{FieldIndex, []string{"indexador", "index", "grupo"}},
	{FieldSenderDoc, []string{"remetente cpf", "remetente cnpj", "remetente documento", "remetente doc"}},
	{FieldResponsibleDoc, []string{"responsavel cpf", "responsavel cnpj", "responsavel documento", "responsavel doc"}},
	{FieldHolderDoc, []string{"titular cpf", "titular cnpj", "titular documento", "cpf cnpj", "cpf", "cnpj", "documento"}},
	{FieldSenderName, []string{"remetente nome", "remetente"}},
	{FieldResponsibleName, []string{"responsavel nome", "responsavel"}},
	{FieldHolderName, []string{"titular nome", "titular", "nome"}},
	{FieldRole, []string{"participacao", "papel", "envolvimento", "qualificacao"}},
	{FieldValue, []string{"valor", "montante", "quantia"}},
	{FieldPeriod, []string{"periodo", "data", "competencia"}},
	{FieldNotes, []string{"observacoes", "observacao", "obs", "informacoes adicionais", "nota"}},
}

// Columns maps each recognized field to its column position.
type Columns map[Field]int

// MatchHeader assigns header cells to fields. Each field takes the first
// header that matches it and each header serves at most one field.
func MatchHeader(header []string) Columns {
	cols := make(Columns)
	for i, h := range header {
		words := wordSet(h)
		if len(words) == 0 {
			continue
		}
	fields:
		for _, v := range vocabulary {
			if _, taken := cols[v.field]; taken {
				continue
			}
			for _, variant := range v.variants {
				if matches(words, variant) {
					cols[v.field] = i
					break fields
				}
			}
		}
	}
	return cols
}

func wordSet(header string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range textutil.Tokens(header) {
		set[w] = true
	}
	return set
}

func matches(words map[string]bool, variant string) bool {
	for _, w := range strings.Fields(variant) {
		if !words[w] {
			return false
		}
	}
	return true
}
