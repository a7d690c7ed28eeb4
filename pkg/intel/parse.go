// Package intel parses free-text financial intelligence reports: sections,
// involved parties and credit/debit transaction lines.
package intel

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/ritzau/link-analyzer/pkg/logging"
	"github.com/ritzau/link-analyzer/pkg/model"
	"github.com/ritzau/link-analyzer/pkg/textutil"
)

var ErrEmptyReport = errors.New("report text is empty")

// Section names, folded
const (
	SectionPreamble = "preambulo"
	SectionInvolved = "envolvidos"
	SectionCredits  = "creditos"
	SectionDebits   = "debitos"
	SectionNotes    = "observacoes"
	SectionSummary  = "conclusao"
)

// sectionAliases maps folded header words to section names.
var sectionAliases = map[string]string{
	"envolvidos":   SectionInvolved,
	"envolvido":    SectionInvolved,
	"partes":       SectionInvolved,
	"titulares":    SectionInvolved,
	"creditos":     SectionCredits,
	"credito":      SectionCredits,
	"entradas":     SectionCredits,
	"debitos":      SectionDebits,
	"debito":       SectionDebits,
	"saidas":       SectionDebits,
	"observacoes":  SectionNotes,
	"observacao":   SectionNotes,
	"conclusao":    SectionSummary,
	"conclusoes":   SectionSummary,
	"analise":      SectionSummary,
	"resumo":       SectionSummary,
	"movimentacao": "movimentacao",
	"periodo":      "periodo",
	"fonte":        "fonte",
	"comunicacao":  "comunicacao",
	"informacoes":  "informacoes",
}

// Section is a titled block of report lines
type Section struct {
	Name  string   `json:"name"`
	Title string   `json:"title"`
	Lines []string `json:"lines"`
}

// Party is an involved person or company
type Party struct {
	Document string `json:"document,omitempty"`
	Name     string `json:"name"`
}

// ID identifies the party in graphs: its document, or its name.
func (p Party) ID() string {
	if p.Document != "" {
		return p.Document
	}
	return p.Name
}

// Direction of a transaction relative to the subject
type Direction string

const (
	Credit Direction = "credito"
	Debit  Direction = "debito"
)

// Transaction is one counterparty line of a credit or debit section
type Transaction struct {
	Direction    Direction `json:"direction"`
	Percentage   float64   `json:"percentage,omitempty"`
	Amount       float64   `json:"amount"`
	Count        int       `json:"count,omitempty"`
	Counterparty Party     `json:"counterparty"`
	Bank         string    `json:"bank,omitempty"`
	Agency       string    `json:"agency,omitempty"`
	Account      string    `json:"account,omitempty"`
	Line         string    `json:"line"`
}

var (
	reDocument   = regexp.MustCompile(`\d{2}\.?\d{3}\.?\d{3}/?\d{4}-?\d{2}|\d{3}\.?\d{3}\.?\d{3}-?\d{2}`)
	rePercentage = regexp.MustCompile(`(\d{1,3}(?:[.,]\d+)?)\s*%`)
	reAmount     = regexp.MustCompile(`(?i)R\$\s*(-?[\d.]*\d(?:,\d+)?)`)
	reCount      = regexp.MustCompile(`(?:\bem\s+)?(\d+)\s*(?:transacoes|transacao|lancamentos|lancamento|operacoes|operacao|vezes)\b`)
	reBank       = regexp.MustCompile(`(?i)\b(?:banco|bco)\.?\s*:?\s*([\p{L}0-9 .&]+?)\s*(?:\bag\b|\bagencia\b|\bag[eê]ncia\b|\bag\.|[,;()\-–]|$)`)
	reAgency     = regexp.MustCompile(`(?i)\bag(?:[eê]ncia|\.)?\s*:?\s*(\d{1,5}(?:-[\dxX])?)`)
	reAccount    = regexp.MustCompile(`(?i)\b(?:c/c|cc|conta(?:\s+corrente)?)\s*:?\s*(\d[\d.\-xX]*)`)
	reBullet     = regexp.MustCompile(`^\s*(?:[-•*·]|\d{1,2}[.)])\s+`)
	reLabel      = regexp.MustCompile(`(?i)\b(?:cpf|cnpj|cpf/cnpj|doc(?:umento)?)\b\s*:?`)
)

// Parse splits the report into sections and extracts parties and
// transactions. Lines that match nothing are skipped; only empty input is
// an error.
func Parse(text string) (*Report, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyReport
	}
	log := logging.New("intel")

	r := &Report{
		Sections: splitSections(text),
		Involved: make([]Party, 0),
		Credits:  make([]Transaction, 0),
		Debits:   make([]Transaction, 0),
	}

	seen := make(map[string]bool)
	for _, s := range r.Sections {
		switch s.Name {
		case SectionInvolved:
			for _, line := range s.Lines {
				p, ok := parseParty(line)
				if !ok {
					log.Debug("skipping unrecognized party line", "line", line)
					continue
				}
				if !seen[p.ID()] {
					seen[p.ID()] = true
					r.Involved = append(r.Involved, p)
				}
			}
		case SectionCredits, SectionDebits:
			dir := Credit
			if s.Name == SectionDebits {
				dir = Debit
			}
			for _, line := range s.Lines {
				tx, ok := parseTransaction(line, dir)
				if !ok {
					log.Debug("skipping unrecognized transaction line", "section", s.Title, "line", line)
					continue
				}
				if dir == Credit {
					r.Credits = append(r.Credits, tx)
				} else {
					r.Debits = append(r.Debits, tx)
				}
			}
		}
	}

	r.computeTotals()
	r.Alerts = alertsFor(r)
	log.Info("parsed intelligence report", "sections", len(r.Sections), "involved", len(r.Involved),
		"credits", len(r.Credits), "debits", len(r.Debits), "alerts", len(r.Alerts))
	return r, nil
}

// sectionHeader recognizes "CRÉDITOS:" style lines. Text after the colon
// is returned as the first line of the section.
func sectionHeader(line string) (name, title, rest string, ok bool) {
	i := strings.IndexByte(line, ':')
	if i <= 0 {
		return "", "", "", false
	}
	title = strings.TrimSpace(line[:i])
	words := textutil.Tokens(title)
	if len(words) == 0 || len(words) > 3 {
		return "", "", "", false
	}
	rest = strings.TrimSpace(line[i+1:])
	if n, known := sectionAliases[words[0]]; known {
		return n, title, rest, true
	}
	if isUpper(title) && rest == "" {
		return textutil.Fold(title), title, "", true
	}
	return "", "", "", false
}

func isUpper(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return letters > 0
}

func splitSections(text string) []Section {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	sections := []Section{{Name: SectionPreamble, Lines: make([]string, 0)}}
	cur := &sections[0]
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if name, title, rest, ok := sectionHeader(line); ok {
			sections = append(sections, Section{Name: name, Title: title, Lines: make([]string, 0)})
			cur = &sections[len(sections)-1]
			if rest != "" {
				cur.Lines = append(cur.Lines, rest)
			}
			continue
		}
		cur.Lines = append(cur.Lines, line)
	}
	if len(sections[0].Lines) == 0 {
		sections = sections[1:]
	}
	return sections
}

// Section returns the first section with the given name.
func (r *Report) Section(name string) (Section, bool) {
	for _, s := range r.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// parseParty reads "Nome - CPF 123.456.789-01" and its variants.
func parseParty(line string) (Party, bool) {
	line = reBullet.ReplaceAllString(line, "")
	if line == "" {
		return Party{}, false
	}
	var p Party
	if loc := reDocument.FindStringIndex(line); loc != nil {
		p.Document = line[loc[0]:loc[1]]
		line = line[:loc[0]] + " " + line[loc[1]:]
	}
	p.Name = cleanName(line)
	if p.Name == "" && p.Document == "" {
		return Party{}, false
	}
	if p.Document == "" && !hasLetters(p.Name, 2) {
		return Party{}, false
	}
	return p, true
}

// parseTransaction needs an amount and a counterparty.
func parseTransaction(line string, dir Direction) (Transaction, bool) {
	tx := Transaction{Direction: dir, Line: line}

	m := reAmount.FindStringSubmatchIndex(line)
	if m == nil {
		return tx, false
	}
	amount, ok := model.ParseAmount(line[m[2]:m[3]])
	if !ok {
		return tx, false
	}
	tx.Amount = amount
	rest := line[:m[0]] + " " + line[m[1]:]

	if pm := rePercentage.FindStringSubmatchIndex(rest); pm != nil {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(rest[pm[2]:pm[3]], ",", "."), 64); err == nil {
			tx.Percentage = v
		}
		rest = rest[:pm[0]] + " " + rest[pm[1]:]
	}

	rest = strings.TrimSpace(rest)
	folded := textutil.Fold(rest)
	if cm := reCount.FindStringSubmatch(folded); cm != nil {
		tx.Count, _ = strconv.Atoi(cm[1])
		rest = removeFolded(rest, folded, cm[0])
	}

	party, bankText := splitCounterparty(rest)
	if bm := reBank.FindStringSubmatch(bankText); bm != nil {
		tx.Bank = strings.TrimSpace(bm[1])
	}
	if am := reAgency.FindStringSubmatch(bankText); am != nil {
		tx.Agency = am[1]
	}
	if cm := reAccount.FindStringSubmatch(bankText); cm != nil {
		tx.Account = cm[1]
	}

	p, ok := parseParty(party)
	if !ok {
		return tx, false
	}
	tx.Counterparty = p
	return tx, true
}

// removeFolded cuts the folded match out of the original text. Folding
// keeps rune counts for Latin text, so rune offsets line up.
func removeFolded(orig, folded, match string) string {
	i := strings.Index(folded, match)
	if i < 0 {
		return orig
	}
	start := len([]rune(folded[:i]))
	end := start + len([]rune(match))
	runes := []rune(orig)
	if end > len(runes) {
		return orig
	}
	return string(runes[:start]) + " " + string(runes[end:])
}

var (
	reSegment   = regexp.MustCompile(`\s+[-–|]\s+|[;,|]`)
	reBankStart = regexp.MustCompile(`(?i)\b(?:banco|bco|ag[eê]ncia|ag|c/c|cc|conta)\b`)
)

// splitCounterparty picks the segment naming the counterparty and returns
// the remaining bank details separately. Segments are separated by " - ",
// commas, semicolons or pipes; the one holding a tax ID wins, then the
// first with letters that does not start with a bank keyword.
func splitCounterparty(s string) (party, bank string) {
	var banks []string
	withDoc, withName := -1, -1
	segs := reSegment.Split(s, -1)
	for i, seg := range segs {
		seg = strings.TrimSpace(seg)
		segs[i] = seg
		switch {
		case seg == "":
		case startsWithBank(seg):
			banks = append(banks, seg)
		case withDoc < 0 && reDocument.MatchString(seg):
			withDoc = i
		case withName < 0 && hasLetters(seg, 2):
			withName = i
		}
	}
	pick := withDoc
	if pick < 0 {
		pick = withName
	}
	if pick < 0 {
		return "", strings.Join(banks, " ")
	}
	party = segs[pick]
	if pick == withDoc && withName >= 0 && !hasLetters(cleanName(reDocument.ReplaceAllString(party, "")), 2) {
		party += " " + segs[withName]
	}
	// "banco" inside the party segment is usually part of the name
	if loc := reBankStart.FindStringIndex(party); loc != nil && loc[0] > 0 {
		if kw := strings.ToLower(party[loc[0]:loc[1]]); kw != "banco" && kw != "bco" {
			banks = append(banks, party[loc[0]:])
			party = party[:loc[0]]
		}
	}
	return party, strings.Join(banks, " ")
}

func startsWithBank(s string) bool {
	loc := reBankStart.FindStringIndex(s)
	return loc != nil && loc[0] == 0
}

// cleanName drops document labels and separators around a name.
func cleanName(s string) string {
	s = strings.Join(strings.Fields(reLabel.ReplaceAllString(s, " ")), " ")
	s = strings.NewReplacer("()", " ", "( )", " ", "[]", " ", "[ ]", " ").Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, " -–:;,.()[]|/")
}

func hasLetters(s string, n int) bool {
	c := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			c++
		}
	}
	return c >= n
}

// Recognized reports whether text has the section layout of an
// intelligence report: a parties, credits or debits section.
func Recognized(text string) bool {
	for _, s := range splitSections(text) {
		switch s.Name {
		case SectionInvolved, SectionCredits, SectionDebits:
			return true
		}
	}
	return false
}
