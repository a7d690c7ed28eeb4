// Package document turns case-report documents (PDF, DOCX, HTML, TXT) into
// plain text. Unlike tabular parsing it never fails: when every extraction
// strategy comes up short a placeholder report is returned instead.
package document

import (
	"context"
	"fmt"
	"mime"
	"strings"
	"unicode"

	"github.com/ritzau/link-analyzer/pkg/logging"
	"github.com/ritzau/link-analyzer/pkg/model"
)

// MinTextLength is the number of non-space runes a strategy must produce
// to count as a success.
const MinTextLength = 50

// Format is a supported document format
type Format string

const (
	FormatPDF     Format = "pdf"
	FormatDOCX    Format = "docx"
	FormatHTML    Format = "html"
	FormatTXT     Format = "txt"
	FormatUnknown Format = "unknown"
)

// StrategyFallback names the placeholder result.
const StrategyFallback = "placeholder"

// Result is the extracted text and how it was obtained
type Result struct {
	Text     string `json:"text"`
	Format   Format `json:"format"`
	Strategy string `json:"strategy"`
	Fallback bool   `json:"fallback"`
}

// Strategy is one named way of pulling text out of a document.
type Strategy struct {
	Name    string
	Extract func(ctx context.Context, data []byte) (string, error)
}

// Extractor runs the per-format strategy chains
type Extractor struct {
	chains map[Format][]Strategy
}

// NewExtractor builds the strategy chains. The executor serves the
// pdftotext strategy.
func NewExtractor(exec Executor) *Extractor {
	pdf := []Strategy{
		{Name: "pdftotext", Extract: func(ctx context.Context, data []byte) (string, error) {
			out, err := exec.PDFToText(ctx, data)
			return string(out), err
		}},
		{Name: "pdf-text-layer", Extract: pdfTextLayer},
		{Name: "pdf-text-operators", Extract: pdfTextOperators},
		{Name: "printable-bytes", Extract: printableBytes},
	}
	docx := []Strategy{
		{Name: "docx-xml", Extract: docxXML},
		{Name: "docx-text-tags", Extract: docxTextTags},
		{Name: "printable-bytes", Extract: printableBytes},
	}
	html := []Strategy{
		{Name: "readability", Extract: htmlReadability},
		{Name: "strip-tags", Extract: htmlStripTags},
	}
	txt := []Strategy{
		{Name: "utf8", Extract: plainText},
		{Name: "printable-bytes", Extract: printableBytes},
	}
	return &Extractor{chains: map[Format][]Strategy{
		FormatPDF:     pdf,
		FormatDOCX:    docx,
		FormatHTML:    html,
		FormatTXT:     txt,
		FormatUnknown: txt,
	}}
}

// Chain returns the ordered strategies tried for a format.
func (e *Extractor) Chain(format Format) []Strategy {
	return e.chains[format]
}

var defaultExtractor = NewExtractor(NewExecutor())

// Extract converts a document to text with the default extractor.
func Extract(ctx context.Context, f model.File) Result {
	return defaultExtractor.Extract(ctx, f)
}

// Extract tries each strategy for the file's format in order and returns
// the first that yields at least MinTextLength characters of text.
func (e *Extractor) Extract(ctx context.Context, f model.File) Result {
	log := logging.New("document")
	format := Detect(f)

	for _, s := range e.chains[format] {
		if ctx.Err() != nil {
			break
		}
		text, err := s.Extract(ctx, f.Data)
		if err != nil {
			log.Debug("strategy failed", "file", f.Name, "strategy", s.Name, "error", err)
			continue
		}
		text = tidy(text)
		if n := visibleLength(text); n < MinTextLength {
			log.Debug("strategy yielded too little text", "file", f.Name, "strategy", s.Name, "chars", n)
			continue
		}
		log.Info("extracted document text", "file", f.Name, "format", format, "strategy", s.Name)
		return Result{Text: text, Format: format, Strategy: s.Name}
	}

	log.Warn("no strategy extracted text, using placeholder", "file", f.Name, "format", format)
	return Result{
		Text:     placeholder(f, format),
		Format:   format,
		Strategy: StrategyFallback,
		Fallback: true,
	}
}

// Detect picks the document format from the MIME type, then the extension.
func Detect(f model.File) Format {
	mt := strings.ToLower(f.Type)
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		mt = parsed
	}
	switch mt {
	case "application/pdf":
		return FormatPDF
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return FormatDOCX
	case "text/html", "application/xhtml+xml":
		return FormatHTML
	case "text/plain":
		return FormatTXT
	}
	switch f.Ext() {
	case "pdf":
		return FormatPDF
	case "docx":
		return FormatDOCX
	case "html", "htm", "xhtml":
		return FormatHTML
	case "txt", "text", "md":
		return FormatTXT
	}
	return FormatUnknown
}

func visibleLength(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

func placeholder(f model.File, format Format) string {
	return fmt.Sprintf(`RELATÓRIO DE OCORRÊNCIA

Arquivo: %s
Formato: %s

Não foi possível extrair o texto deste documento automaticamente.
O conteúdo pode estar digitalizado como imagem, protegido ou corrompido.
Revise o arquivo original e transcreva manualmente as informações relevantes.
`, f.Name, strings.ToUpper(string(format)))
}
