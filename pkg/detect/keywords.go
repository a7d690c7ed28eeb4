package detect

import (
	"strings"

	"github.com/ritzau/link-analyzer/pkg/textutil"
)

// Keyword lists are ordered by priority: earlier keywords win over later
// ones regardless of column order.
var (
	sourceNames = []string{
		"origem", "remetente", "emissor", "ordenante", "pagador", "depositante",
		"originador", "chamador", "source", "from", "de",
	}
	targetNames = []string{
		"destino", "destinatario", "beneficiario", "favorecido", "recebedor",
		"receptor", "target", "para", "to", "nome",
	}
	identifierSource = []string{"id", "codigo", "numero", "matricula", "registro"}
	identifierTarget = []string{"nome", "descricao", "titulo"}
	synonymSource    = []string{
		"pessoa1", "parte1", "envolvido1", "entidade1", "cliente", "investigado",
		"suspeito", "titular", "contratante", "comprador", "usuario", "requerente",
	}
	synonymTarget = []string{
		"pessoa2", "parte2", "envolvido2", "entidade2", "fornecedor", "contato",
		"contratado", "vendedor", "relacionado", "associado", "requerido", "empresa",
	}
	relationshipNames = []string{
		"tipo", "relacao", "relacionamento", "vinculo", "status", "categoria",
		"natureza", "operacao", "modalidade", "parentesco", "classificacao",
	}
	operationalNames = []string{
		"remetente", "beneficiario", "observacoes", "observacao", "historico",
		"motivo", "descricao",
	}
	weightNames = []string{
		"valor", "peso", "montante", "quantia", "total", "quantidade", "qtd",
		"frequencia", "amount", "weight", "value",
	}
)

// shortKeyword is the length up to which keywords must match a whole token
// ("enviado_de", "pessoa_id") rather than a substring ("idade" is not "id").
const shortKeyword = 4

// matchName reports whether a folded column name matches a keyword.
func matchName(column, keyword string) bool {
	if len(keyword) <= shortKeyword {
		for _, tok := range textutil.Tokens(column) {
			if tok == keyword {
				return true
			}
		}
		return compact(column) == keyword
	}
	return strings.Contains(compact(column), keyword)
}

// compact folds a name and drops separators, so "Pessoa_1" reads "pessoa1".
func compact(s string) string {
	return strings.Join(textutil.Tokens(s), "")
}

// findByName returns the first column, in keyword priority order, matching
// any keyword and not excluded.
func findByName(columns, keywords []string, exclude ...string) (string, string) {
	for _, kw := range keywords {
		for _, col := range columns {
			if contains(exclude, col) {
				continue
			}
			if matchName(col, kw) {
				return col, kw
			}
		}
	}
	return "", ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v != "" && v == s {
			return true
		}
	}
	return false
}
