package parser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/chapterize/chapterize/internal/document"
	"github.com/chapterize/chapterize/internal/scenes"
	"github.com/chapterize/chapterize/internal/textutil"
)

// MarkdownParser segments a document at heading lines, choosing the
// heading level that most plausibly marks chapters.
type MarkdownParser struct{}

func (p *MarkdownParser) Name() string            { return "Markdown" }
func (p *MarkdownParser) Format() document.Format { return document.FormatMarkdown }

func (p *MarkdownParser) CanParse(content, fileName string) bool {
	ext := fileExt(fileName)
	return ext == ".md" || ext == ".markdown"
}

// mdHeading is one heading with its nesting level and source line index
// (0-based).
type mdHeading struct {
	level int
	text  string
	line  int
}

func (p *MarkdownParser) Parse(content, fileName string) *document.ParsedDocument {
	doc := document.New(document.FormatMarkdown)
	src := []byte(content)
	lines := strings.Split(content, "\n")

	heads := collectMarkdownHeadings(src)
	if len(heads) == 0 {
		return singleChapterFallback(doc, content, titleFromFileName(fileName),
			"no headings",
			"No headings found; treating the entire document as one chapter")
	}

	levels := make([]int, len(heads))
	for i, h := range heads {
		levels[i] = h.level
	}
	level, confidence := chapterLevel(levels)
	doc.Metadata.Confidence = confidence
	doc.Metadata.DetectionMethod = fmt.Sprintf("markdown headings (level %d)", level)

	// A lone H1 above the chapter level is the document title, not a
	// chapter.
	if level > 1 {
		for _, h := range heads {
			if h.level == 1 {
				doc.Metadata.Title = h.text
				break
			}
		}
	}

	var chapterHeads []mdHeading
	for _, h := range heads {
		if h.level == level {
			chapterHeads = append(chapterHeads, h)
		}
	}

	for i, h := range chapterHeads {
		bodyEnd := len(lines) - 1
		if i+1 < len(chapterHeads) {
			bodyEnd = chapterHeads[i+1].line - 1
		}
		bodyStart := h.line + 1

		var body string
		if bodyStart <= bodyEnd {
			body = strings.TrimSpace(strings.Join(lines[bodyStart:bodyEnd+1], "\n"))
		}
		if body == "" {
			continue
		}

		ch := document.ParsedChapter{
			Title:     h.text,
			Number:    textutil.ExtractChapterNumberShort(h.text),
			Content:   body,
			WordCount: textutil.CountWords(body),
			StartLine: bodyStart + 1,
			EndLine:   bodyEnd + 1,
		}
		if sc := scenes.Detect(body); len(sc) > 1 {
			ch.Scenes = sc
		}
		doc.Chapters = append(doc.Chapters, ch)
	}

	if len(doc.Chapters) == 0 {
		return singleChapterFallback(doc, content, titleFromFileName(fileName),
			"no headings",
			"Headings found but every chapter span was empty; treating the entire document as one chapter")
	}

	warnNonSequential(doc)
	return doc.Finalize()
}

// collectMarkdownHeadings parses the source with goldmark and maps each
// top-level heading back to its source line.
func collectMarkdownHeadings(src []byte) []mdHeading {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(src))

	lineStarts := lineStartOffsets(src)
	var heads []mdHeading
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Lines().Len() == 0 {
			continue
		}
		seg := h.Lines().At(0)
		heads = append(heads, mdHeading{
			level: h.Level,
			text:  string(h.Text(src)),
			line:  lineForOffset(lineStarts, seg.Start),
		})
	}
	return heads
}

// chapterLevel picks the heading depth that marks chapters and a
// confidence for the choice: more than one H1 means H1 is the chapter
// level; a lone H1 over H2s means H2 (the H1 is a title); otherwise the
// most frequent level wins, shallower on ties.
func chapterLevel(levels []int) (level, confidence int) {
	counts := map[int]int{}
	for _, l := range levels {
		counts[l]++
	}
	if counts[1] > 1 {
		return 1, 90
	}
	if counts[1] == 1 && counts[2] > 0 {
		return 2, 85
	}
	best, bestCount := levels[0], 0
	for l := 1; l <= 6; l++ {
		if counts[l] > bestCount {
			best, bestCount = l, counts[l]
		}
	}
	return best, 75
}

func lineStartOffsets(src []byte) []int {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// lineForOffset returns the 0-based line index containing a byte offset.
func lineForOffset(starts []int, offset int) int {
	i := sort.SearchInts(starts, offset)
	if i < len(starts) && starts[i] == offset {
		return i
	}
	return i - 1
}
