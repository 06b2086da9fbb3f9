package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"
)

func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write zip entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

const epubContainerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

func epubChapterXHTML(title, body string) string {
	return `<?xml version="1.0" encoding="utf-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>` + title + `</title></head>
<body><h1>` + title + `</h1><p>` + body + `</p></body></html>`
}

func longBody(words int) string {
	return strings.TrimSpace(strings.Repeat("lorem ipsum dolor sit amet ", (words+4)/5))
}

func testEPUB(t *testing.T) []byte {
	opf := `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" xmlns:dc="http://purl.org/dc/elements/1.1/" version="2.0">
  <metadata>
    <dc:title>Spine Book</dc:title>
    <dc:creator>E. Author</dc:creator>
  </metadata>
  <manifest>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="ch2.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine>
    <itemref idref="nav"/>
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
  </spine>
</package>`
	return buildZip(t, map[string]string{
		"META-INF/container.xml": epubContainerXML,
		"OEBPS/content.opf":      opf,
		"OEBPS/nav.xhtml":        epubChapterXHTML("Contents", "Short nav page."),
		"OEBPS/ch1.xhtml":        epubChapterXHTML("Chapter One", longBody(80)),
		"OEBPS/ch2.xhtml":        epubChapterXHTML("Chapter Two", longBody(90)),
	})
}

func TestEPUBParser_SpineOrder(t *testing.T) {
	p := &EPUBParser{}
	doc := p.ParseBinary(context.Background(), testEPUB(t), "book.epub")

	if doc.Metadata.Title != "Spine Book" || doc.Metadata.Author != "E. Author" {
		t.Errorf("metadata = %q / %q", doc.Metadata.Title, doc.Metadata.Author)
	}
	if len(doc.Chapters) != 2 {
		t.Fatalf("expected 2 chapters (nav page filtered), got %d: %v", len(doc.Chapters), doc.Warnings)
	}
	if doc.Chapters[0].Title != "Chapter One" || doc.Chapters[1].Title != "Chapter Two" {
		t.Errorf("titles = %q, %q", doc.Chapters[0].Title, doc.Chapters[1].Title)
	}
	if doc.Chapters[0].Number != 1 || doc.Chapters[1].Number != 2 {
		t.Errorf("numbers = %d, %d; want 1, 2", doc.Chapters[0].Number, doc.Chapters[1].Number)
	}

	// The short nav page leaves an advisory skip warning.
	found := false
	for _, w := range doc.Warnings {
		if strings.Contains(w, "nav.xhtml") && strings.Contains(w, "skipped") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a skip warning for the nav page, got %v", doc.Warnings)
	}
}

func TestEPUBParser_MissingContainer(t *testing.T) {
	data := buildZip(t, map[string]string{
		"mimetype": "application/epub+zip",
	})
	p := &EPUBParser{}
	doc := p.ParseBinary(context.Background(), data, "broken.epub")

	if len(doc.Chapters) != 0 {
		t.Fatalf("expected 0 chapters, got %d", len(doc.Chapters))
	}
	if doc.Metadata.Confidence != 0 {
		t.Errorf("confidence = %d, want 0", doc.Metadata.Confidence)
	}
	if len(doc.Warnings) == 0 || !strings.Contains(doc.Warnings[0], "container.xml") {
		t.Errorf("expected a container.xml warning, got %v", doc.Warnings)
	}
}

func TestEPUBParser_NotAZip(t *testing.T) {
	p := &EPUBParser{}
	doc := p.ParseBinary(context.Background(), []byte("definitely not a zip"), "junk.epub")

	if len(doc.Chapters) != 0 || doc.Metadata.Confidence != 0 {
		t.Errorf("expected empty failure document, got %d chapters, confidence %d",
			len(doc.Chapters), doc.Metadata.Confidence)
	}
	if doc.Metadata.DetectionMethod != "EPUB parse failed" {
		t.Errorf("detectionMethod = %q", doc.Metadata.DetectionMethod)
	}
}

func TestEPUBParser_MinWordFilterConfigurable(t *testing.T) {
	p := &EPUBParser{MinChapterWords: 1}
	doc := p.ParseBinary(context.Background(), testEPUB(t), "book.epub")

	// With the floor lowered, the nav page becomes a chapter too.
	if len(doc.Chapters) != 3 {
		t.Fatalf("expected 3 chapters with a 1-word floor, got %d", len(doc.Chapters))
	}
}

func TestEPUBParser_DivStructuredSpineItems(t *testing.T) {
	// Some producers put paragraph text directly in divs with no p
	// wrapper; those chapters must still clear the word floor.
	opf := `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" xmlns:dc="http://purl.org/dc/elements/1.1/" version="2.0">
  <metadata><dc:title>Div Book</dc:title></metadata>
  <manifest>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine><itemref idref="ch1"/></spine>
</package>`
	chapter := `<?xml version="1.0" encoding="utf-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>Chapter One</title></head>
<body><h1>Chapter One</h1><div>` + longBody(80) + `</div></body></html>`
	data := buildZip(t, map[string]string{
		"META-INF/container.xml": epubContainerXML,
		"OEBPS/content.opf":      opf,
		"OEBPS/ch1.xhtml":        chapter,
	})

	p := &EPUBParser{}
	doc := p.ParseBinary(context.Background(), data, "divs.epub")

	if len(doc.Chapters) != 1 {
		t.Fatalf("expected 1 chapter, got %d: %v", len(doc.Chapters), doc.Warnings)
	}
	if doc.Chapters[0].WordCount < 50 {
		t.Errorf("wordCount = %d, want at least the 50-word floor", doc.Chapters[0].WordCount)
	}
	if !strings.Contains(doc.Chapters[0].Content, "lorem ipsum") {
		t.Errorf("div text missing from chapter content: %q", doc.Chapters[0].Content)
	}
}

func TestEPUBParser_SyncParseIsPlaceholder(t *testing.T) {
	p := &EPUBParser{}
	doc := p.Parse("raw text", "book.epub")

	if len(doc.Chapters) != 0 {
		t.Errorf("placeholder must have no chapters, got %d", len(doc.Chapters))
	}
	if len(doc.Warnings) == 0 || !strings.Contains(doc.Warnings[0], "ParseBinary") {
		t.Errorf("placeholder must direct callers to ParseBinary, got %v", doc.Warnings)
	}
}
