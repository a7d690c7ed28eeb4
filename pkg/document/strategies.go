package document

import (
	"archive/zip"
	"bytes"
	"compress/zlib"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/ledongthuc/pdf"
	"golang.org/x/text/encoding/charmap"
)

const docXMLMax = 32 << 20

var (
	reBlankLines   = regexp.MustCompile(`\n{3,}`)
	reSpaces       = regexp.MustCompile(`[ \t]+`)
	rePDFStream    = regexp.MustCompile(`(?s)stream\r?\n(.*?)endstream`)
	rePDFShowText  = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)\s*(?:Tj|'|")`)
	rePDFShowArray = regexp.MustCompile(`(?s)\[(.*?)\]\s*TJ`)
	rePDFString    = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)
	reDocxText     = regexp.MustCompile(`(?s)<w:t(?:\s[^>]*)?>(.*?)</w:t>`)
	reDocxPara     = regexp.MustCompile(`</w:p>`)
	reScript       = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</(script|style|noscript)>`)
	reBlockTag     = regexp.MustCompile(`(?i)<(br|/p|/div|/li|/tr|/h[1-6])[^>]*>`)
	reTag          = regexp.MustCompile(`(?s)<[^>]*>`)
)

var errNoText = errors.New("no text found")

// tidy normalizes line endings and collapses runs of blank lines and spaces.
func tidy(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(reSpaces.ReplaceAllString(l, " "))
	}
	s = strings.Join(lines, "\n")
	return strings.TrimSpace(reBlankLines.ReplaceAllString(s, "\n\n"))
}

// pdfTextLayer reads the text layer with a structural PDF parser.
func pdfTextLayer(_ context.Context, data []byte) (text string, err error) {
	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// pdfTextOperators scans content streams, inflating compressed ones, for
// strings shown with the Tj, TJ, ' and " operators.
func pdfTextOperators(_ context.Context, data []byte) (string, error) {
	var sb strings.Builder
	scan := func(content []byte) {
		for _, m := range rePDFShowText.FindAllSubmatch(content, -1) {
			sb.WriteString(unescapePDF(m[1]))
			sb.WriteByte('\n')
		}
		for _, m := range rePDFShowArray.FindAllSubmatch(content, -1) {
			for _, s := range rePDFString.FindAllSubmatch(m[1], -1) {
				sb.WriteString(unescapePDF(s[1]))
			}
			sb.WriteByte('\n')
		}
	}

	for _, m := range rePDFStream.FindAllSubmatch(data, -1) {
		if inflated, err := io.ReadAll(zlibReader(m[1])); err == nil && len(inflated) > 0 {
			scan(inflated)
		} else {
			scan(m[1])
		}
	}
	if sb.Len() == 0 {
		return "", errNoText
	}
	return sb.String(), nil
}

func zlibReader(b []byte) io.Reader {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return errReader{err}
	}
	return zr
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

// unescapePDF decodes the backslash escapes of a PDF literal string. Text
// that is not UTF-8 is read as Latin-1, the common encoding of simple fonts.
func unescapePDF(b []byte) string {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		c := b[i]
		if c != '\\' || i+1 >= len(b) {
			out = append(out, c)
			continue
		}
		i++
		switch b[i] {
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'b', 'f':
		case '(', ')', '\\':
			out = append(out, b[i])
		default:
			if b[i] >= '0' && b[i] <= '7' {
				v, n := 0, 0
				for n < 3 && i < len(b) && b[i] >= '0' && b[i] <= '7' {
					v = v*8 + int(b[i]-'0')
					i++
					n++
				}
				i--
				out = append(out, byte(v))
			} else {
				out = append(out, b[i])
			}
		}
	}
	if utf8.Valid(out) {
		return string(out)
	}
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(out)
	if err != nil {
		return string(out)
	}
	return string(s)
}

// printableBytes keeps runs of printable characters, the last resort for
// any binary format.
func printableBytes(_ context.Context, data []byte) (string, error) {
	if !utf8.Valid(data) {
		if decoded, err := charmap.Windows1252.NewDecoder().Bytes(data); err == nil {
			data = decoded
		}
	}
	var sb strings.Builder
	run := make([]rune, 0, 64)
	flush := func() {
		// Short runs in binary data are noise.
		if len(run) >= 4 {
			sb.WriteString(string(run))
			sb.WriteByte('\n')
		}
		run = run[:0]
	}
	for _, r := range string(data) {
		if r == utf8.RuneError || (!unicode.IsPrint(r) && r != ' ' && r != '\t') {
			flush()
			continue
		}
		run = append(run, r)
	}
	flush()
	if sb.Len() == 0 {
		return "", errNoText
	}
	return sb.String(), nil
}

func plainText(_ context.Context, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.New("not valid UTF-8")
	}
	return strings.TrimPrefix(string(data), "\ufeff"), nil
}

func docxDocument(data []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open docx: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		if f.UncompressedSize64 > docXMLMax {
			return nil, fmt.Errorf("document.xml too large: %d bytes", f.UncompressedSize64)
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open document.xml: %w", err)
		}
		defer rc.Close()
		return io.ReadAll(io.LimitReader(rc, docXMLMax))
	}
	return nil, errors.New("document.xml not found in docx")
}

// docxXML walks document.xml, keeping text runs outside deletions and
// breaking lines at paragraphs and table rows.
func docxXML(_ context.Context, data []byte) (string, error) {
	doc, err := docxDocument(data)
	if err != nil {
		return "", err
	}
	dec := xml.NewDecoder(bytes.NewReader(doc))

	var sb strings.Builder
	inText, delDepth, cell := false, 0, 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse XML: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "del":
				delDepth++
			case "t":
				inText = true
			case "tab":
				if delDepth == 0 {
					sb.WriteByte('\t')
				}
			case "br", "cr":
				if delDepth == 0 {
					sb.WriteByte('\n')
				}
			case "tr":
				cell = 0
			case "tc":
				if delDepth == 0 && cell > 0 {
					sb.WriteByte('\t')
				}
				cell++
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p", "tr":
				if delDepth == 0 {
					sb.WriteByte('\n')
				}
			case "del":
				if delDepth > 0 {
					delDepth--
				}
			}
		case xml.CharData:
			if inText && delDepth == 0 {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}

// docxTextTags pulls <w:t> contents with a regex, tolerating XML the
// decoder rejects.
func docxTextTags(_ context.Context, data []byte) (string, error) {
	doc, err := docxDocument(data)
	if err != nil {
		doc = data
	}
	doc = reDocxPara.ReplaceAll(doc, []byte("</w:p>\n"))
	var sb strings.Builder
	for _, line := range bytes.Split(doc, []byte("\n")) {
		matches := reDocxText.FindAllSubmatch(line, -1)
		for _, m := range matches {
			sb.WriteString(html.UnescapeString(string(m[1])))
		}
		if len(matches) > 0 {
			sb.WriteByte('\n')
		}
	}
	if sb.Len() == 0 {
		return "", errNoText
	}
	return sb.String(), nil
}

// htmlReadability extracts the main article text.
func htmlReadability(_ context.Context, data []byte) (string, error) {
	base, _ := url.Parse("file:///document.html")
	article, err := readability.FromReader(bytes.NewReader(data), base)
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}
	var sb strings.Builder
	if err := article.RenderText(&sb); err != nil {
		return "", fmt.Errorf("failed to render article text: %w", err)
	}
	return sb.String(), nil
}

// htmlStripTags drops scripts and styles and every tag, keeping block
// boundaries as line breaks.
func htmlStripTags(_ context.Context, data []byte) (string, error) {
	s := reScript.ReplaceAllString(string(data), "")
	s = reBlockTag.ReplaceAllString(s, "\n")
	s = reTag.ReplaceAllString(s, "")
	return html.UnescapeString(s), nil
}
