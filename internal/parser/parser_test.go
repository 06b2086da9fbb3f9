package parser

import (
	"testing"

	"github.com/chapterize/chapterize/internal/document"
)

func TestSniff_FirstAcceptorWins(t *testing.T) {
	parsers := Registry()
	tests := []struct {
		name     string
		content  string
		fileName string
		want     document.Format
	}{
		{"valid json schema", `{"chapters":[{"title":"A","content":"x"}]}`, "book.json", document.FormatJSON},
		{"markdown extension", "# Heading", "book.md", document.FormatMarkdown},
		{"html extension", "<p>x</p>", "book.html", document.FormatHTML},
		{"html content sniff", "<!DOCTYPE html><html></html>", "download", document.FormatHTML},
		{"fountain extension", "", "script.fountain", document.FormatFountain},
		{"fountain content sniff", "INT. ROOM - DAY\nAction.", "draft", document.FormatFountain},
		{"epub extension", "", "book.epub", document.FormatEPUB},
		{"odt extension", "", "book.odt", document.FormatODT},
		{"docx extension", "", "book.docx", document.FormatDOCX},
		{"pdf extension", "", "book.pdf", document.FormatPDF},
		{"pdf magic bytes", "%PDF-1.7 ...", "download2", document.FormatPDF},
		{"plain text fallback", "just prose", "notes.txt", document.FormatPlainText},
		{"unknown extension falls through", "just prose", "notes.xyz", document.FormatPlainText},
	}
	for _, tt := range tests {
		p := Sniff(parsers, tt.content, tt.fileName)
		if p.Format() != tt.want {
			t.Errorf("%s: sniffed %q, want %q", tt.name, p.Format(), tt.want)
		}
	}
}

// A .json file that fails schema validation must not reach the JSON
// parser; it falls through to the plain-text fallback.
func TestSniff_MalformedJSONFallsThrough(t *testing.T) {
	parsers := Registry()
	p := Sniff(parsers, "{not valid", "data.json")
	if p.Format() != document.FormatPlainText {
		t.Fatalf("sniffed %q, want plaintext fallback", p.Format())
	}
	doc := p.Parse("{not valid", "data.json")
	if len(doc.Chapters) != 1 {
		t.Errorf("expected the fallback single chapter, got %d", len(doc.Chapters))
	}
}

func TestForFormat_UnimplementedDegradesToPlainText(t *testing.T) {
	parsers := Registry()
	for _, f := range []document.Format{document.FormatCSV, document.FormatRTF, document.FormatUnknown} {
		p := ForFormat(parsers, f)
		if p.Format() != document.FormatPlainText {
			t.Errorf("ForFormat(%q) = %q, want plaintext", f, p.Format())
		}
	}
	if p := ForFormat(parsers, document.FormatEPUB); p.Format() != document.FormatEPUB {
		t.Errorf("ForFormat(epub) = %q", p.Format())
	}
}

// Parse never panics and always returns a document with non-nil chapter
// and warning slices, whatever the input.
func TestParse_AlwaysReturnsWellFormedDocument(t *testing.T) {
	inputs := []string{
		"",
		"\n\n\n",
		"{broken json",
		"<<<>>>",
		"\x00\x01\x02 binary garbage",
		"Chapter 1: lonely",
	}
	for _, p := range Registry() {
		for _, input := range inputs {
			doc := p.Parse(input, "input.bin")
			if doc == nil {
				t.Fatalf("%s: Parse returned nil", p.Name())
			}
			if doc.Chapters == nil {
				t.Errorf("%s: Chapters is nil for input %q", p.Name(), input)
			}
			if doc.Warnings == nil {
				t.Errorf("%s: Warnings is nil for input %q", p.Name(), input)
			}
			if doc.Metadata.ChapterCount != len(doc.Chapters) {
				t.Errorf("%s: chapterCount %d but %d chapters", p.Name(), doc.Metadata.ChapterCount, len(doc.Chapters))
			}
		}
	}
}

func TestRegistry_PlainTextIsLast(t *testing.T) {
	parsers := Registry()
	last := parsers[len(parsers)-1]
	if last.Format() != document.FormatPlainText {
		t.Fatalf("plain text must be the final fallback, found %q last", last.Format())
	}
}
