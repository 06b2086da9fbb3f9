// Package scenes splits chapter prose into scene segments at separator
// glyph lines (***, ---, ~~~, ###).
package scenes

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/chapterize/chapterize/internal/document"
	"github.com/chapterize/chapterize/internal/textutil"
)

// breakPatterns is the scene-break bank. A line is a break when any
// pattern matches it in isolation.
var breakPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*\*(\s*\*){2,}\s*$`), // *** or * * *
	regexp.MustCompile(`^\s*-{3,}\s*$`),
	regexp.MustCompile(`^\s*~{3,}\s*$`),
	regexp.MustCompile(`^\s*#{3,}\s*$`),
}

// IsBreak reports whether a single line is a scene separator.
func IsBreak(line string) bool {
	for _, re := range breakPatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// Detect splits content into scenes at separator lines. Segments that trim
// to empty are dropped. Titles are synthesized as "Scene N" with 1-based
// numbering over the emitted scenes.
func Detect(content string) []document.ParsedScene {
	lines := strings.Split(content, "\n")

	var out []document.ParsedScene
	var buf []string

	flush := func() {
		text := strings.TrimSpace(strings.Join(buf, "\n"))
		buf = buf[:0]
		if text == "" {
			return
		}
		out = append(out, document.ParsedScene{
			Title:     fmt.Sprintf("Scene %d", len(out)+1),
			Content:   text,
			WordCount: textutil.CountWords(text),
		})
	}

	for _, line := range lines {
		if IsBreak(line) {
			flush()
			continue
		}
		buf = append(buf, line)
	}
	flush()

	return out
}
