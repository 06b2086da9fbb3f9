package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/chapterize/chapterize/internal/document"
	"github.com/chapterize/chapterize/internal/textutil"
)

var (
	fountainTitleKey  = regexp.MustCompile(`(?i)^(title|author|authors|credit|source|draft date|contact|copyright):\s*(.*)$`)
	fountainSceneHead = regexp.MustCompile(`(?i)^\s*(INT\./EXT\.|INT/EXT\.|I/E\.|INT\.|EXT\.)\s*.*$`)
	fountainForced    = regexp.MustCompile(`^\.[^.\s]`)
	fountainActMark   = regexp.MustCompile(`(?im)^\s*ACT\s+([A-Za-z0-9]+)\b`)
)

// FountainParser handles screenplay structure: a Key: Value title page,
// INT./EXT. scene headings and ACT markers grouping scenes into acts.
// Acts become chapters.
type FountainParser struct{}

func (p *FountainParser) Name() string            { return "Fountain" }
func (p *FountainParser) Format() document.Format { return document.FormatFountain }

func (p *FountainParser) CanParse(content, fileName string) bool {
	ext := fileExt(fileName)
	if ext == ".fountain" {
		return true
	}
	if claimedExts[ext] {
		return false
	}
	for _, line := range strings.Split(content, "\n") {
		if fountainSceneHead.MatchString(line) {
			return true
		}
	}
	return false
}

// fountainScene is one screenplay scene: its heading line and the body
// lines that follow until the next heading.
type fountainScene struct {
	heading string
	body    string
}

func (s fountainScene) content() string {
	if s.body == "" {
		return s.heading
	}
	return s.heading + "\n\n" + s.body
}

func (p *FountainParser) Parse(content, fileName string) *document.ParsedDocument {
	doc := document.New(document.FormatFountain)
	lines := strings.Split(content, "\n")

	titlePage, bodyStart := parseTitlePage(lines)
	doc.Metadata.Title = titlePage["title"]
	if author, ok := titlePage["author"]; ok {
		doc.Metadata.Author = author
	} else {
		doc.Metadata.Author = titlePage["authors"]
	}

	sceneList := parseScenes(lines[bodyStart:])
	if len(sceneList) == 0 {
		title := doc.Metadata.Title
		if title == "" {
			title = titleFromFileName(fileName)
		}
		trimmed := strings.TrimSpace(content)
		doc.Metadata.Confidence = 60
		doc.Metadata.DetectionMethod = "no scene headings"
		doc.AddWarning("No scene headings found; treating the entire document as one chapter")
		doc.Chapters = append(doc.Chapters, document.ParsedChapter{
			Title:     title,
			Number:    1,
			Content:   trimmed,
			WordCount: textutil.CountWords(trimmed),
		})
		return doc.Finalize()
	}

	actNames, actScenes := groupByAct(sceneList)

	if len(actNames) == 1 && len(sceneList) > 15 {
		// A long screenplay with no usable act markers would otherwise
		// become one giant chapter; redistribute evenly into 3 acts.
		actNames, actScenes = redistributeActs(sceneList)
		doc.AddWarning(fmt.Sprintf("no act markers found across %d scenes; redistributed evenly into 3 acts", len(sceneList)))
	}

	doc.Metadata.Confidence = 85
	doc.Metadata.DetectionMethod = "fountain scene headings"

	for i, name := range actNames {
		group := actScenes[name]
		if len(group) == 0 {
			continue
		}
		var parts []string
		for _, sc := range group {
			parts = append(parts, sc.content())
		}
		body := strings.Join(parts, "\n\n")

		number := textutil.ExtractChapterNumberShort(name)
		if number == 0 {
			number = i + 1
		}
		ch := document.ParsedChapter{
			Title:     name,
			Number:    number,
			Content:   body,
			WordCount: textutil.CountWords(body),
		}
		if len(group) > 1 {
			for _, sc := range group {
				text := sc.content()
				ch.Scenes = append(ch.Scenes, document.ParsedScene{
					Title:     sc.heading,
					Content:   text,
					WordCount: textutil.CountWords(text),
				})
			}
		}
		doc.Chapters = append(doc.Chapters, ch)
	}

	return doc.Finalize()
}

// parseTitlePage consumes leading Key: Value lines until a blank line and
// returns the collected values plus the body start index. If the first
// non-empty line is not a recognized key there is no title page.
func parseTitlePage(lines []string) (map[string]string, int) {
	page := map[string]string{}

	first := -1
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			first = i
			break
		}
	}
	if first < 0 || !fountainTitleKey.MatchString(lines[first]) {
		return page, 0
	}

	i := first
	for ; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			i++
			break
		}
		if m := fountainTitleKey.FindStringSubmatch(lines[i]); m != nil {
			page[strings.ToLower(m[1])] = strings.TrimSpace(m[2])
		}
	}
	return page, i
}

// parseScenes splits the screenplay body at scene headings. Lines before
// the first heading are discarded.
func parseScenes(lines []string) []fountainScene {
	var out []fountainScene
	var current *fountainScene
	var body []string

	flush := func() {
		if current == nil {
			return
		}
		current.body = strings.TrimSpace(strings.Join(body, "\n"))
		body = body[:0]
		out = append(out, *current)
		current = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if fountainSceneHead.MatchString(line) || fountainForced.MatchString(trimmed) {
			flush()
			heading := trimmed
			if fountainForced.MatchString(trimmed) {
				heading = strings.TrimPrefix(trimmed, ".")
			}
			current = &fountainScene{heading: heading}
			continue
		}
		if current != nil {
			body = append(body, line)
		}
	}
	flush()
	return out
}

// groupByAct assigns each scene to a running act label. An ACT marker
// inside a scene switches the label from that scene on. Acts are returned
// in first-appearance order.
func groupByAct(sceneList []fountainScene) ([]string, map[string][]fountainScene) {
	currentAct := "Act 1"
	var order []string
	groups := map[string][]fountainScene{}

	for _, sc := range sceneList {
		if m := fountainActMark.FindStringSubmatch(sc.content()); m != nil {
			label := strings.ToLower(m[1])
			currentAct = "Act " + strings.ToUpper(label[:1]) + label[1:]
		}
		if _, ok := groups[currentAct]; !ok {
			order = append(order, currentAct)
		}
		groups[currentAct] = append(groups[currentAct], sc)
	}
	return order, groups
}

// redistributeActs splits scenes evenly into 3 synthetic acts of
// ceil(n/3) scenes each.
func redistributeActs(sceneList []fountainScene) ([]string, map[string][]fountainScene) {
	perAct := (len(sceneList) + 2) / 3
	var order []string
	groups := map[string][]fountainScene{}

	for i := 0; i < 3; i++ {
		start := i * perAct
		if start >= len(sceneList) {
			break
		}
		end := start + perAct
		if end > len(sceneList) {
			end = len(sceneList)
		}
		name := fmt.Sprintf("Act %d", i+1)
		order = append(order, name)
		groups[name] = sceneList[start:end]
	}
	return order, groups
}
