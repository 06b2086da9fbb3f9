package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/chapterize/chapterize/internal/document"
	"github.com/chapterize/chapterize/internal/scenes"
	"github.com/chapterize/chapterize/internal/textutil"
)

// chapterPattern is one textual chapter-marker convention: a line regex, a
// fixed confidence weight and extractors for the number and title carried
// by a matching line.
type chapterPattern struct {
	name   string
	re     *regexp.Regexp
	weight int
	number func(m []string) int
	title  func(m []string) string
}

// textPatterns is the ordered bank the plain-text parser scores. The first
// pattern doubles as the neutral default when no pattern reaches two
// matches.
var textPatterns = []chapterPattern{
	{
		name:   "numbered chapter heading",
		re:     regexp.MustCompile(`(?i)^\s*chapter\s+(\d+)\s*[:.\-]?\s*(.*)$`),
		weight: 95,
		number: func(m []string) int { n, _ := strconv.Atoi(m[1]); return n },
		title:  func(m []string) string { return strings.TrimSpace(m[2]) },
	},
	{
		name:   "worded chapter heading",
		re:     regexp.MustCompile(`(?i)^\s*chapter\s+(one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|thirteen|fourteen|fifteen|sixteen|seventeen|eighteen|nineteen|twenty)\b\s*[:.\-]?\s*(.*)$`),
		weight: 90,
		number: func(m []string) int { return textutil.ExtractChapterNumber(m[1]) },
		title:  func(m []string) string { return strings.TrimSpace(m[2]) },
	},
	{
		name:   "banner chapter heading",
		re:     regexp.MustCompile(`(?i)^\s*[-=*_]{3,}\s*chapter\s+(\d+)\s*[-=*_]{3,}\s*$`),
		weight: 85,
		number: func(m []string) int { n, _ := strconv.Atoi(m[1]); return n },
		title:  func(m []string) string { return "" },
	},
	{
		name:   "uppercase chapter heading",
		re:     regexp.MustCompile(`^\s*CHAPTER\s+(\d+)\s*$`),
		weight: 80,
		number: func(m []string) int { n, _ := strconv.Atoi(m[1]); return n },
		title:  func(m []string) string { return "" },
	},
	{
		name:   "roman numeral chapter heading",
		re:     regexp.MustCompile(`(?i)^\s*chapter\s+([ivxlcdm]+)\b\s*[:.\-]?\s*(.*)$`),
		weight: 75,
		number: func(m []string) int { return textutil.RomanToNumber(m[1]) },
		title:  func(m []string) string { return strings.TrimSpace(m[2]) },
	},
}

// markerMatch is one line that matched a chapter pattern.
type markerMatch struct {
	line   int
	number int
	title  string
}

// TextParser detects chapters in unstructured prose by scoring a bank of
// competing chapter-marker patterns. It is the universal fallback and must
// be last in the dispatch order.
type TextParser struct{}

func (p *TextParser) Name() string            { return "Plain Text" }
func (p *TextParser) Format() document.Format { return document.FormatPlainText }

func (p *TextParser) CanParse(content, fileName string) bool {
	ext := fileExt(fileName)
	return ext == ".txt" || ext == ".text" || ext == ""
}

func (p *TextParser) Parse(content, fileName string) *document.ParsedDocument {
	doc := document.New(document.FormatPlainText)
	lines := strings.Split(content, "\n")

	// Scan every line against every pattern.
	matchSets := make([][]markerMatch, len(textPatterns))
	for pi, pat := range textPatterns {
		for li, line := range lines {
			m := pat.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			matchSets[pi] = append(matchSets[pi], markerMatch{
				line:   li,
				number: pat.number(m),
				title:  pat.title(m),
			})
		}
	}

	// Highest score among patterns with at least 2 matches wins. Below
	// the floor, pattern 1's match set is the default even when another
	// pattern has a single match.
	winner := 0
	bestScore := 0
	for pi := range textPatterns {
		if len(matchSets[pi]) < 2 {
			continue
		}
		score := len(matchSets[pi]) * textPatterns[pi].weight
		if score > bestScore {
			winner, bestScore = pi, score
		}
	}
	matches := matchSets[winner]

	if title := p.detectTitle(lines); title != "" {
		doc.Metadata.Title = title
	}

	if len(matches) == 0 {
		title := doc.Metadata.Title
		if title == "" {
			title = titleFromFileName(fileName)
		}
		return singleChapterFallback(doc, content, title,
			"no chapter markers",
			"No chapter markers found; treating the entire document as one chapter")
	}

	doc.Metadata.Confidence = textPatterns[winner].weight
	doc.Metadata.DetectionMethod = "plain text pattern: " + textPatterns[winner].name

	for i, m := range matches {
		bodyEnd := len(lines) - 1
		if i+1 < len(matches) {
			bodyEnd = matches[i+1].line - 1
		}
		bodyStart := m.line + 1

		var body string
		if bodyStart <= bodyEnd {
			body = strings.TrimSpace(strings.Join(lines[bodyStart:bodyEnd+1], "\n"))
		}
		title := m.title
		if title == "" {
			if m.number > 0 {
				title = fmt.Sprintf("Chapter %d", m.number)
			} else {
				title = fmt.Sprintf("Chapter %d", i+1)
			}
		}
		if body == "" {
			doc.AddWarning(fmt.Sprintf("chapter %q has no content and was dropped", title))
			continue
		}

		ch := document.ParsedChapter{
			Title:     title,
			Number:    m.number,
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

	warnNonSequential(doc)
	return doc.Finalize()
}

// detectTitle returns the first non-empty line among the first ten, if it
// is short and not itself a chapter marker.
func (p *TextParser) detectTitle(lines []string) string {
	limit := len(lines)
	if limit > 10 {
		limit = 10
	}
	for i := 0; i < limit; i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if len(line) >= 100 {
			return ""
		}
		for _, pat := range textPatterns {
			if pat.re.MatchString(line) {
				return ""
			}
		}
		return line
	}
	return ""
}
