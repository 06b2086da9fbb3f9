// Package parser infers chapter and scene structure from manuscript
// documents. Each supported format has its own DocumentParser; dispatch
// tries them in a fixed priority order and the first CanParse acceptor
// wins, with plain text as the universal fallback.
package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/chapterize/chapterize/internal/document"
	"github.com/chapterize/chapterize/internal/textutil"
)

// DocumentParser is the contract every format parser implements. Parse
// never returns an error: expected failure modes degrade to a document
// carrying warnings and a low confidence instead.
type DocumentParser interface {
	Name() string
	Format() document.Format
	CanParse(content, fileName string) bool
	Parse(content, fileName string) *document.ParsedDocument
}

// BinaryParser is the extra capability of formats whose decode step works
// on raw bytes (ZIP archives, binary office documents, PDF). For these,
// Parse returns a placeholder directing the caller here; the dispatcher
// must check for this interface before choosing the entry point.
type BinaryParser interface {
	DocumentParser
	ParseBinary(ctx context.Context, data []byte, fileName string) *document.ParsedDocument
}

// Options tunes parser construction.
type Options struct {
	// MinEPUBChapterWords filters navigation/cover spine items out of
	// EPUB output. Zero means the default of 50.
	MinEPUBChapterWords int
}

// Registry returns the parsers in dispatch priority order. JSON leads
// because its CanParse validates content; plain text must stay last so it
// cannot shadow more specific formats.
func Registry() []DocumentParser {
	return RegistryWith(Options{})
}

// RegistryWith is Registry with explicit options.
func RegistryWith(opts Options) []DocumentParser {
	return []DocumentParser{
		&JSONParser{},
		&FountainParser{},
		&MarkdownParser{},
		&HTMLParser{},
		&EPUBParser{MinChapterWords: opts.MinEPUBChapterWords},
		&ODTParser{},
		&DOCXParser{},
		&PDFParser{},
		&TextParser{},
	}
}

// Sniff returns the first parser in the registry that accepts the
// document. The plain-text parser accepts anything it reaches, so Sniff
// never returns nil.
func Sniff(parsers []DocumentParser, content, fileName string) DocumentParser {
	for _, p := range parsers {
		if p.CanParse(content, fileName) {
			return p
		}
	}
	return &TextParser{}
}

// ForFormat returns the parser registered for the given format tag.
// Recognized-but-unimplemented formats (csv, rtf, unknown) degrade to the
// plain-text parser rather than failing.
func ForFormat(parsers []DocumentParser, f document.Format) DocumentParser {
	for _, p := range parsers {
		if p.Format() == f {
			return p
		}
	}
	return &TextParser{}
}

func fileExt(fileName string) string {
	return strings.ToLower(filepath.Ext(fileName))
}

// claimedExts are extensions some registered parser claims outright.
// Content sniffing is a fallback for ambiguous or absent extensions, so a
// parser must not content-sniff a file carrying one of these.
var claimedExts = map[string]bool{
	".txt": true, ".text": true,
	".md": true, ".markdown": true,
	".html": true, ".htm": true, ".xhtml": true,
	".json": true, ".fountain": true,
	".epub": true, ".odt": true, ".docx": true, ".pdf": true,
}

// titleFromFileName strips the directory and extension for use as a
// last-resort document title.
func titleFromFileName(fileName string) string {
	base := filepath.Base(fileName)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// singleChapterFallback wraps the entire content in one chapter. This is
// the soft detection failure path: confidence 50, an explanatory warning,
// and a normal successful return.
func singleChapterFallback(doc *document.ParsedDocument, content, title, method, warning string) *document.ParsedDocument {
	trimmed := strings.TrimSpace(content)
	doc.Metadata.Confidence = 50
	doc.Metadata.DetectionMethod = method
	doc.AddWarning(warning)
	doc.Chapters = append(doc.Chapters, document.ParsedChapter{
		Title:     title,
		Number:    1,
		Content:   trimmed,
		WordCount: textutil.CountWords(trimmed),
	})
	return doc.Finalize()
}

// failedDoc is the hard decode failure path: empty chapters, confidence 0,
// the underlying error folded into a warning. No error escapes the parser.
func failedDoc(format document.Format, method string, err error) *document.ParsedDocument {
	doc := document.New(format)
	doc.Metadata.Confidence = 0
	doc.Metadata.DetectionMethod = method
	doc.AddWarning(fmt.Sprintf("%s: %v", method, err))
	return doc.Finalize()
}

// binaryPlaceholder is what Parse returns for formats that require the
// binary entry point. Well-defined, never useful.
func binaryPlaceholder(format document.Format, name string) *document.ParsedDocument {
	doc := document.New(format)
	doc.Metadata.Confidence = 0
	doc.Metadata.DetectionMethod = fmt.Sprintf("%s requires binary input", name)
	doc.AddWarning(fmt.Sprintf("%s documents must be parsed through ParseBinary; the text entry point cannot decode them", name))
	return doc.Finalize()
}

// warnNonSequential appends an advisory warning when detected chapter
// numbers do not ascend by one. It never blocks the import.
func warnNonSequential(doc *document.ParsedDocument) {
	var nums []int
	for _, ch := range doc.Chapters {
		if ch.Number > 0 {
			nums = append(nums, ch.Number)
		}
	}
	if len(nums) < 2 {
		return
	}
	for i := 1; i < len(nums); i++ {
		if nums[i] != nums[i-1]+1 {
			doc.AddWarning(fmt.Sprintf(
				"chapter numbers are not sequential (%d followed by %d); review chapter order before import",
				nums[i-1], nums[i]))
			return
		}
	}
}
