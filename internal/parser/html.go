package parser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/chapterize/chapterize/internal/document"
	"github.com/chapterize/chapterize/internal/scenes"
	"github.com/chapterize/chapterize/internal/textutil"
)

// HTMLParser segments a document at h1-h6 elements using the same
// chapter-level inference as the Markdown parser. The DOCX parser reuses
// its extraction on converted HTML, and the EPUB parser reuses the block
// collector on spine XHTML.
type HTMLParser struct{}

func (p *HTMLParser) Name() string            { return "HTML" }
func (p *HTMLParser) Format() document.Format { return document.FormatHTML }

func (p *HTMLParser) CanParse(content, fileName string) bool {
	ext := fileExt(fileName)
	if ext == ".html" || ext == ".htm" || ext == ".xhtml" {
		return true
	}
	head := strings.ToLower(strings.TrimSpace(content))
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html")
}

func (p *HTMLParser) Parse(content, fileName string) *document.ParsedDocument {
	doc := document.New(document.FormatHTML)
	extractHTMLChapters(doc, content, fileName, textutil.ExtractChapterNumberShort)
	return doc
}

// htmlBlock is one extracted block: a heading (level 1-6) or body text
// (level 0).
type htmlBlock struct {
	level int
	text  string
}

// extractHTMLChapters runs heading-based chapter detection over an HTML
// string and fills doc. numberFn lets callers keep their own word-number
// dictionary bound (the DOCX path scans up to twenty, HTML up to fifteen).
func extractHTMLChapters(doc *document.ParsedDocument, content, fileName string, numberFn func(string) int) {
	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		failed := failedDoc(doc.Format, string(doc.Format)+" parse failed", err)
		*doc = *failed
		return
	}

	if title := findTitleTag(root); title != "" {
		doc.Metadata.Title = title
	}

	blocks := collectHTMLBlocks(root)

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
		singleChapterFallback(doc, strings.Join(parts, "\n\n"), title,
			"no headings",
			"No headings found; treating the entire document as one chapter")
		return
	}

	level, confidence := chapterLevel(levels)
	doc.Metadata.Confidence = confidence
	doc.Metadata.DetectionMethod = fmt.Sprintf("heading elements (level %d)", level)

	if level > 1 && doc.Metadata.Title == "" {
		for _, b := range blocks {
			if b.level == 1 {
				doc.Metadata.Title = b.text
				break
			}
		}
	}

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
				Number: numberFn(b.text),
			}
			continue
		}
		if current != nil && b.text != "" {
			body = append(body, b.text)
		}
	}
	flush()

	if len(doc.Chapters) == 0 {
		title := doc.Metadata.Title
		if title == "" {
			title = titleFromFileName(fileName)
		}
		var parts []string
		for _, b := range blocks {
			if b.level == 0 {
				parts = append(parts, b.text)
			}
		}
		singleChapterFallback(doc, strings.Join(parts, "\n\n"), title,
			"no headings",
			"Headings found but every chapter span was empty; treating the entire document as one chapter")
		return
	}

	warnNonSequential(doc)
	doc.Finalize()
}

// collectHTMLBlocks walks the body (or the whole tree when no body
// element exists) and flattens it into heading and text blocks in
// document order. Script, style and chrome elements are skipped.
func collectHTMLBlocks(root *html.Node) []htmlBlock {
	var blocks []htmlBlock

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				if t := textutil.NormalizeWhitespace(nodeText(n)); t != "" {
					blocks = append(blocks, htmlBlock{level: level, text: t})
				}
				return
			}
			switch n.Data {
			case "script", "style", "nav", "footer", "header":
				return
			case "p", "li", "td", "blockquote", "pre":
				if t := textutil.NormalizeWhitespace(nodeText(n)); t != "" {
					blocks = append(blocks, htmlBlock{text: t})
				}
				return
			case "div":
				// Text held directly in a div (no p wrapper) is a block of
				// its own; nested block elements still walk normally.
				var run strings.Builder
				flushRun := func() {
					if t := textutil.NormalizeWhitespace(run.String()); t != "" {
						blocks = append(blocks, htmlBlock{text: t})
					}
					run.Reset()
				}
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					switch {
					case c.Type == html.TextNode:
						run.WriteString(c.Data)
					case c.Type == html.ElementNode && inlineTag(c.Data):
						run.WriteString(" ")
						run.WriteString(nodeText(c))
						run.WriteString(" ")
					default:
						flushRun()
						walk(c)
					}
				}
				flushRun()
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findElement(root, "body"); body != nil {
		walk(body)
	} else {
		walk(root)
	}
	return blocks
}

var inlineTags = map[string]bool{
	"a": true, "em": true, "strong": true, "b": true, "i": true, "u": true,
	"s": true, "span": true, "small": true, "sub": true, "sup": true,
	"code": true, "br": true,
}

func inlineTag(tag string) bool {
	return inlineTags[tag]
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func nodeText(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findTitleTag(n *html.Node) string {
	if t := findElement(n, "title"); t != nil {
		return textutil.NormalizeWhitespace(nodeText(t))
	}
	return ""
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}
