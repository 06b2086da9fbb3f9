package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chapterize/chapterize/internal/document"
	"github.com/chapterize/chapterize/internal/scenes"
	"github.com/chapterize/chapterize/internal/textutil"
)

// ODTParser reads a ZIP-packaged OpenDocument text file. It walks the
// heading/paragraph/list element stream of content.xml and segments
// chapters at the most frequent heading outline level.
type ODTParser struct{}

func (p *ODTParser) Name() string            { return "ODT" }
func (p *ODTParser) Format() document.Format { return document.FormatODT }

func (p *ODTParser) CanParse(content, fileName string) bool {
	return fileExt(fileName) == ".odt"
}

// Parse cannot decode a ZIP archive; use ParseBinary.
func (p *ODTParser) Parse(content, fileName string) *document.ParsedDocument {
	return binaryPlaceholder(document.FormatODT, p.Name())
}

// odtBlock is one flattened body element: a heading with its outline
// level, or paragraph text (level 0). List items arrive as "- " prefixed
// pseudo-paragraphs.
type odtBlock struct {
	level int
	text  string
}

// odtMeta models the parts of meta.xml this parser cares about.
type odtMeta struct {
	XMLName xml.Name `xml:"document-meta"`
	Title   string   `xml:"meta>title"`
	Creator string   `xml:"meta>creator"`
	Initial string   `xml:"meta>initial-creator"`
}

func (p *ODTParser) ParseBinary(ctx context.Context, data []byte, fileName string) *document.ParsedDocument {
	if err := ctx.Err(); err != nil {
		return failedDoc(document.FormatODT, "ODT parse failed", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return failedDoc(document.FormatODT, "ODT parse failed", err)
	}

	contentXML, err := readZipEntry(zr, "content.xml")
	if err != nil {
		return failedDoc(document.FormatODT, "ODT parse failed",
			fmt.Errorf("missing content.xml: %w", err))
	}

	blocks, err := odtBlocks(contentXML)
	if err != nil {
		return failedDoc(document.FormatODT, "ODT parse failed",
			fmt.Errorf("invalid content.xml: %w", err))
	}

	doc := document.New(document.FormatODT)

	// meta.xml is optional; its absence is not even a warning.
	if metaXML, err := readZipEntry(zr, "meta.xml"); err == nil {
		var meta odtMeta
		if err := xml.Unmarshal(metaXML, &meta); err == nil {
			doc.Metadata.Title = strings.TrimSpace(meta.Title)
			author := strings.TrimSpace(meta.Creator)
			if author == "" {
				author = strings.TrimSpace(meta.Initial)
			}
			doc.Metadata.Author = author
		}
	}

	var levels []int
	for _, b := range blocks {
		if b.level > 0 {
			levels = append(levels, b.level)
		}
	}
	if len(levels) == 0 {
		var parts []string
		for _, b := range blocks {
			parts = append(parts, b.text)
		}
		title := doc.Metadata.Title
		if title == "" {
			title = titleFromFileName(fileName)
		}
		return singleChapterFallback(doc, strings.Join(parts, "\n\n"), title,
			"no headings",
			"No headings found; treating the entire document as one chapter")
	}

	// Chapter boundaries are the most frequent outline level, shallower
	// on ties.
	counts := map[int]int{}
	for _, l := range levels {
		counts[l]++
	}
	level, bestCount := 0, 0
	for l := 1; l <= 10; l++ {
		if counts[l] > bestCount {
			level, bestCount = l, counts[l]
		}
	}

	doc.Metadata.Confidence = 85
	doc.Metadata.DetectionMethod = fmt.Sprintf("ODT outline level %d", level)

	var current *document.ParsedChapter
	var body []string

	flush := func() {
		if current == nil {
			return
		}
		content := strings.TrimSpace(strings.Join(body, "\n\n"))
		body = body[:0]
		ch := *current
		current = nil
		if content == "" {
			return
		}
		ch.Content = content
		ch.WordCount = textutil.CountWords(content)
		if sc := scenes.Detect(content); len(sc) > 1 {
			ch.Scenes = sc
		}
		doc.Chapters = append(doc.Chapters, ch)
	}

	for _, b := range blocks {
		if b.level == level {
			flush()
			current = &document.ParsedChapter{
				Title:  b.text,
				Number: textutil.ExtractChapterNumberShort(b.text),
			}
			continue
		}
		if current != nil && b.text != "" {
			body = append(body, b.text)
		}
	}
	flush()

	if len(doc.Chapters) == 0 {
		var parts []string
		for _, b := range blocks {
			if b.level == 0 {
				parts = append(parts, b.text)
			}
		}
		title := doc.Metadata.Title
		if title == "" {
			title = titleFromFileName(fileName)
		}
		return singleChapterFallback(doc, strings.Join(parts, "\n\n"), title,
			"no headings",
			"Headings found but every chapter span was empty; treating the entire document as one chapter")
	}

	warnNonSequential(doc)
	return doc.Finalize()
}

// odtBlocks flattens content.xml into heading, paragraph and list blocks.
// Element namespaces are ignored; local names (h, p, list, list-item) are
// stable across producers.
func odtBlocks(contentXML []byte) ([]odtBlock, error) {
	dec := xml.NewDecoder(bytes.NewReader(contentXML))
	var blocks []odtBlock

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return blocks, nil
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "h":
			level := 1
			for _, a := range se.Attr {
				if a.Name.Local == "outline-level" {
					if n, err := strconv.Atoi(a.Value); err == nil && n > 0 {
						level = n
					}
				}
			}
			text, err := odtElementText(dec)
			if err != nil {
				return nil, err
			}
			if text != "" {
				blocks = append(blocks, odtBlock{level: level, text: text})
			}
		case "p":
			text, err := odtElementText(dec)
			if err != nil {
				return nil, err
			}
			if text != "" {
				blocks = append(blocks, odtBlock{text: text})
			}
		case "list":
			items, err := odtListItems(dec)
			if err != nil {
				return nil, err
			}
			for _, item := range items {
				blocks = append(blocks, odtBlock{text: "- " + item})
			}
		}
	}
}

// odtElementText consumes tokens up to the matching end element and
// returns the trimmed character data. text:tab and text:s markers become
// single spaces.
func odtElementText(dec *xml.Decoder) (string, error) {
	var buf strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if t.Name.Local == "tab" || t.Name.Local == "s" {
				buf.WriteByte(' ')
			}
		case xml.EndElement:
			depth--
		case xml.CharData:
			buf.Write(t)
		}
	}
	return strings.TrimSpace(buf.String()), nil
}

// odtListItems consumes a list subtree, returning one text entry per
// list-item. Nested structure inside an item is flattened.
func odtListItems(dec *xml.Decoder) ([]string, error) {
	var items []string
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "list-item" {
				text, err := odtElementText(dec)
				if err != nil {
					return nil, err
				}
				if text != "" {
					items = append(items, text)
				}
				continue
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return items, nil
}
