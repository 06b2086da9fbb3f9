package parser

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/chapterize/chapterize/internal/document"
)

// PDFParser extracts plain text from a PDF and feeds it through the
// plain-text chapter detector. PDFs carry no reliable structural markup,
// so the pattern bank is the best available heuristic.
type PDFParser struct{}

func (p *PDFParser) Name() string            { return "PDF" }
func (p *PDFParser) Format() document.Format { return document.FormatPDF }

func (p *PDFParser) CanParse(content, fileName string) bool {
	return fileExt(fileName) == ".pdf" || strings.HasPrefix(content, "%PDF-")
}

// Parse cannot decode a binary document; use ParseBinary.
func (p *PDFParser) Parse(content, fileName string) *document.ParsedDocument {
	return binaryPlaceholder(document.FormatPDF, p.Name())
}

func (p *PDFParser) ParseBinary(ctx context.Context, data []byte, fileName string) (doc *document.ParsedDocument) {
	// The PDF library panics on some malformed files; the parser contract
	// forbids letting that escape.
	defer func() {
		if r := recover(); r != nil {
			doc = failedDoc(document.FormatPDF, "PDF parse failed", fmt.Errorf("%v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return failedDoc(document.FormatPDF, "PDF parse failed", err)
	}

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return failedDoc(document.FormatPDF, "PDF parse failed", err)
	}

	var buf strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(text)
	}

	extracted := buf.String()
	if strings.TrimSpace(extracted) == "" {
		doc = document.New(document.FormatPDF)
		return singleChapterFallback(doc, "", titleFromFileName(fileName),
			"empty document",
			"No extractable text in PDF; emitting a single empty chapter")
	}

	tp := &TextParser{}
	doc = tp.Parse(extracted, fileName)
	doc.Format = document.FormatPDF
	return doc
}
