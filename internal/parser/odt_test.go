package parser

import (
	"context"
	"strings"
	"testing"
)

const odtContentXML = `<?xml version="1.0" encoding="UTF-8"?>
<office:document-content xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"
  xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0">
 <office:body>
  <office:text>
   <text:h text:outline-level="1">Chapter 1</text:h>
   <text:p>First paragraph.</text:p>
   <text:p>Second paragraph.</text:p>
   <text:list>
    <text:list-item><text:p>first item</text:p></text:list-item>
    <text:list-item><text:p>second item</text:p></text:list-item>
   </text:list>
   <text:h text:outline-level="1">Chapter 2</text:h>
   <text:p>Closing paragraph.</text:p>
  </office:text>
 </office:body>
</office:document-content>`

const odtMetaXML = `<?xml version="1.0" encoding="UTF-8"?>
<office:document-meta xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"
  xmlns:dc="http://purl.org/dc/elements/1.1/"
  xmlns:meta="urn:oasis:names:tc:opendocument:xmlns:meta:1.0">
 <office:meta>
  <dc:title>An ODT Book</dc:title>
  <meta:initial-creator>O. Author</meta:initial-creator>
 </office:meta>
</office:document-meta>`

func TestODTParser_HeadingsAndLists(t *testing.T) {
	data := buildZip(t, map[string]string{
		"content.xml": odtContentXML,
		"meta.xml":    odtMetaXML,
	})
	p := &ODTParser{}
	doc := p.ParseBinary(context.Background(), data, "book.odt")

	if doc.Metadata.Title != "An ODT Book" {
		t.Errorf("title = %q, want %q", doc.Metadata.Title, "An ODT Book")
	}
	if doc.Metadata.Author != "O. Author" {
		t.Errorf("author = %q, want %q", doc.Metadata.Author, "O. Author")
	}
	if len(doc.Chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(doc.Chapters))
	}
	ch1 := doc.Chapters[0]
	if ch1.Title != "Chapter 1" || ch1.Number != 1 {
		t.Errorf("chapter 1 = %q (number %d)", ch1.Title, ch1.Number)
	}
	if !strings.Contains(ch1.Content, "First paragraph.") {
		t.Errorf("chapter 1 missing paragraph text: %q", ch1.Content)
	}
	if !strings.Contains(ch1.Content, "- first item") || !strings.Contains(ch1.Content, "- second item") {
		t.Errorf("list items missing or unprefixed: %q", ch1.Content)
	}
	if doc.Chapters[1].Content != "Closing paragraph." {
		t.Errorf("chapter 2 content = %q", doc.Chapters[1].Content)
	}
}

func TestODTParser_NoHeadingsFallback(t *testing.T) {
	content := `<?xml version="1.0"?>
<office:document-content xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"
  xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0">
 <office:body><office:text>
  <text:p>Only prose.</text:p>
  <text:p>No headings anywhere.</text:p>
 </office:text></office:body>
</office:document-content>`
	data := buildZip(t, map[string]string{"content.xml": content})
	p := &ODTParser{}
	doc := p.ParseBinary(context.Background(), data, "plain.odt")

	if len(doc.Chapters) != 1 {
		t.Fatalf("expected 1 chapter, got %d", len(doc.Chapters))
	}
	if doc.Metadata.Confidence != 50 {
		t.Errorf("confidence = %d, want 50", doc.Metadata.Confidence)
	}
	if !strings.Contains(doc.Chapters[0].Content, "Only prose.") {
		t.Errorf("fallback content = %q", doc.Chapters[0].Content)
	}
}

func TestODTParser_MostFrequentOutlineLevel(t *testing.T) {
	content := `<?xml version="1.0"?>
<office:document-content xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"
  xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0">
 <office:body><office:text>
  <text:h text:outline-level="1">Book Title</text:h>
  <text:h text:outline-level="2">Chapter 1</text:h>
  <text:p>One.</text:p>
  <text:h text:outline-level="2">Chapter 2</text:h>
  <text:p>Two.</text:p>
  <text:h text:outline-level="2">Chapter 3</text:h>
  <text:p>Three.</text:p>
 </office:text></office:body>
</office:document-content>`
	data := buildZip(t, map[string]string{"content.xml": content})
	p := &ODTParser{}
	doc := p.ParseBinary(context.Background(), data, "levels.odt")

	if len(doc.Chapters) != 3 {
		t.Fatalf("expected 3 chapters at outline level 2, got %d", len(doc.Chapters))
	}
	if doc.Chapters[0].Title != "Chapter 1" {
		t.Errorf("chapter 1 title = %q", doc.Chapters[0].Title)
	}
}

func TestODTParser_MissingContentXML(t *testing.T) {
	data := buildZip(t, map[string]string{"meta.xml": odtMetaXML})
	p := &ODTParser{}
	doc := p.ParseBinary(context.Background(), data, "broken.odt")

	if len(doc.Chapters) != 0 || doc.Metadata.Confidence != 0 {
		t.Errorf("expected empty failure document, got %d chapters, confidence %d",
			len(doc.Chapters), doc.Metadata.Confidence)
	}
	if len(doc.Warnings) == 0 || !strings.Contains(doc.Warnings[0], "content.xml") {
		t.Errorf("expected a content.xml warning, got %v", doc.Warnings)
	}
}

func TestODTParser_SyncParseIsPlaceholder(t *testing.T) {
	p := &ODTParser{}
	doc := p.Parse("text", "book.odt")
	if len(doc.Chapters) != 0 {
		t.Errorf("placeholder must have no chapters, got %d", len(doc.Chapters))
	}
	if len(doc.Warnings) == 0 || !strings.Contains(doc.Warnings[0], "ParseBinary") {
		t.Errorf("placeholder must direct callers to ParseBinary, got %v", doc.Warnings)
	}
}
