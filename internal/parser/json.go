package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chapterize/chapterize/internal/document"
	"github.com/chapterize/chapterize/internal/textutil"
)

// jsonManuscript is the explicit chapter schema: the escape-hatch format
// that needs no inference. Title and Content are pointers so CanParse can
// tell a missing field from an empty one.
type jsonManuscript struct {
	Title    string        `json:"title"`
	Author   string        `json:"author"`
	Chapters []jsonChapter `json:"chapters"`
}

type jsonChapter struct {
	Title   *string     `json:"title"`
	Content *string     `json:"content"`
	Number  int         `json:"number"`
	Summary string      `json:"summary"`
	Scenes  []jsonScene `json:"scenes"`
}

type jsonScene struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// JSONParser accepts documents that already carry explicit structure.
// CanParse requires a successful parse plus schema validation, so
// malformed .json files fall through to another parser instead of
// becoming a hard failure here.
type JSONParser struct{}

func (p *JSONParser) Name() string            { return "JSON" }
func (p *JSONParser) Format() document.Format { return document.FormatJSON }

func (p *JSONParser) CanParse(content, fileName string) bool {
	_, ok := decodeManuscript(content)
	return ok
}

func (p *JSONParser) Parse(content, fileName string) *document.ParsedDocument {
	doc := document.New(document.FormatJSON)

	ms, ok := decodeManuscript(content)
	if !ok {
		// The sniffer should have routed this elsewhere; treat a direct
		// call with bad input as a hard decode failure.
		return failedDoc(document.FormatJSON, "JSON parse failed",
			fmt.Errorf("content does not match the chapter schema"))
	}

	doc.Metadata.Title = ms.Title
	doc.Metadata.Author = ms.Author
	doc.Metadata.Confidence = 100
	doc.Metadata.DetectionMethod = "explicit JSON chapter schema"

	seen := map[int]bool{}
	for i, jc := range ms.Chapters {
		number := jc.Number
		if number == 0 {
			number = i + 1
		}
		if seen[number] {
			doc.AddWarning(fmt.Sprintf("duplicate chapter number %d; review chapter order before import", number))
		}
		seen[number] = true

		content := strings.TrimSpace(*jc.Content)
		if jc.Summary != "" && jc.Summary != content {
			content = strings.TrimSpace(jc.Summary + "\n\n" + content)
		}

		ch := document.ParsedChapter{
			Title:     *jc.Title,
			Number:    number,
			Content:   content,
			WordCount: textutil.CountWords(content),
		}
		if len(jc.Scenes) > 1 {
			for si, js := range jc.Scenes {
				title := js.Title
				if title == "" {
					title = fmt.Sprintf("Scene %d", si+1)
				}
				sc := strings.TrimSpace(js.Content)
				ch.Scenes = append(ch.Scenes, document.ParsedScene{
					Title:     title,
					Content:   sc,
					WordCount: textutil.CountWords(sc),
				})
			}
		}
		doc.Chapters = append(doc.Chapters, ch)
	}

	return doc.Finalize()
}

// decodeManuscript parses and schema-checks content: an object with a
// chapters array where every entry has string title and content.
func decodeManuscript(content string) (*jsonManuscript, bool) {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}
	var ms jsonManuscript
	if err := json.Unmarshal([]byte(trimmed), &ms); err != nil {
		return nil, false
	}
	if ms.Chapters == nil {
		return nil, false
	}
	for _, ch := range ms.Chapters {
		if ch.Title == nil || ch.Content == nil {
			return nil, false
		}
	}
	return &ms, true
}
