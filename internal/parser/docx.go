package parser

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"
	"golang.org/x/net/html"

	"github.com/chapterize/chapterize/internal/document"
	"github.com/chapterize/chapterize/internal/textutil"
)

// DOCXParser decodes a .docx body with go-docx, converts it to an
// intermediate HTML string (heading styles become h1-h6, everything else
// p) and then runs the same heading extraction as the HTML parser.
type DOCXParser struct{}

func (p *DOCXParser) Name() string            { return "DOCX" }
func (p *DOCXParser) Format() document.Format { return document.FormatDOCX }

func (p *DOCXParser) CanParse(content, fileName string) bool {
	return fileExt(fileName) == ".docx"
}

// Parse cannot decode a binary document; use ParseBinary.
func (p *DOCXParser) Parse(content, fileName string) *document.ParsedDocument {
	return binaryPlaceholder(document.FormatDOCX, p.Name())
}

func (p *DOCXParser) ParseBinary(ctx context.Context, data []byte, fileName string) *document.ParsedDocument {
	if err := ctx.Err(); err != nil {
		return failedDoc(document.FormatDOCX, "DOCX parse failed", err)
	}

	wordDoc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return failedDoc(document.FormatDOCX, "DOCX parse failed", err)
	}

	converted, hasText := docxToHTML(wordDoc)
	doc := document.New(document.FormatDOCX)
	if !hasText {
		return singleChapterFallback(doc, "", titleFromFileName(fileName),
			"empty document",
			"Converted DOCX content was empty; emitting a single empty chapter")
	}

	// The DOCX path keeps the full twenty-entry word-number dictionary.
	extractHTMLChapters(doc, converted, fileName, textutil.ExtractChapterNumber)
	return doc
}

// docxToHTML renders the document body as minimal HTML: one element per
// paragraph, heading styles mapped to heading tags. Reports whether any
// paragraph carried text.
func docxToHTML(wordDoc *docx.Docx) (string, bool) {
	var buf strings.Builder
	hasText := false
	buf.WriteString("<html><body>")
	for _, item := range wordDoc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		if text == "" {
			continue
		}
		hasText = true
		if level := docxHeadingLevel(para); level > 0 {
			fmt.Fprintf(&buf, "<h%d>%s</h%d>", level, html.EscapeString(text), level)
		} else {
			fmt.Fprintf(&buf, "<p>%s</p>", html.EscapeString(text))
		}
	}
	buf.WriteString("</body></html>")
	return buf.String(), hasText
}

// docxHeadingLevel maps Word heading paragraph styles to a 1-6 level.
func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	for level := 1; level <= 6; level++ {
		if style == fmt.Sprintf("heading%d", level) {
			return level
		}
	}
	return 0
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
