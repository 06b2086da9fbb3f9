package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"golang.org/x/net/html"

	"github.com/chapterize/chapterize/internal/document"
	"github.com/chapterize/chapterize/internal/scenes"
	"github.com/chapterize/chapterize/internal/textutil"
)

const defaultMinChapterWords = 50

// epubContainer models META-INF/container.xml, which points at the
// package document.
type epubContainer struct {
	XMLName   xml.Name `xml:"container"`
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

// epubPackage models the OPF package document: Dublin Core metadata, the
// manifest (id to path) and the spine (reading order over manifest ids).
type epubPackage struct {
	XMLName  xml.Name `xml:"package"`
	Metadata struct {
		Title   string `xml:"title"`
		Creator string `xml:"creator"`
	} `xml:"metadata"`
	Manifest struct {
		Items []struct {
			ID   string `xml:"id,attr"`
			Href string `xml:"href,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		ItemRefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

// EPUBParser reads a ZIP-packaged EPUB and emits one chapter per spine
// item, in reading order. Spine items below MinChapterWords are skipped as
// navigation or cover pages.
type EPUBParser struct {
	MinChapterWords int
}

func (p *EPUBParser) Name() string            { return "EPUB" }
func (p *EPUBParser) Format() document.Format { return document.FormatEPUB }

func (p *EPUBParser) CanParse(content, fileName string) bool {
	return fileExt(fileName) == ".epub"
}

// Parse cannot decode a ZIP archive; use ParseBinary.
func (p *EPUBParser) Parse(content, fileName string) *document.ParsedDocument {
	return binaryPlaceholder(document.FormatEPUB, p.Name())
}

func (p *EPUBParser) ParseBinary(ctx context.Context, data []byte, fileName string) *document.ParsedDocument {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return failedDoc(document.FormatEPUB, "EPUB parse failed", err)
	}

	containerXML, err := readZipEntry(zr, "META-INF/container.xml")
	if err != nil {
		return failedDoc(document.FormatEPUB, "EPUB parse failed",
			fmt.Errorf("missing META-INF/container.xml: %w", err))
	}
	var container epubContainer
	if err := xml.Unmarshal(containerXML, &container); err != nil {
		return failedDoc(document.FormatEPUB, "EPUB parse failed",
			fmt.Errorf("invalid container.xml: %w", err))
	}
	if len(container.Rootfiles) == 0 || container.Rootfiles[0].FullPath == "" {
		return failedDoc(document.FormatEPUB, "EPUB parse failed",
			fmt.Errorf("container.xml declares no package document"))
	}

	opfPath := container.Rootfiles[0].FullPath
	opfXML, err := readZipEntry(zr, opfPath)
	if err != nil {
		return failedDoc(document.FormatEPUB, "EPUB parse failed",
			fmt.Errorf("missing package document %s: %w", opfPath, err))
	}
	var pkg epubPackage
	if err := xml.Unmarshal(opfXML, &pkg); err != nil {
		return failedDoc(document.FormatEPUB, "EPUB parse failed",
			fmt.Errorf("invalid package document: %w", err))
	}

	doc := document.New(document.FormatEPUB)
	doc.Metadata.Title = strings.TrimSpace(pkg.Metadata.Title)
	doc.Metadata.Author = strings.TrimSpace(pkg.Metadata.Creator)
	doc.Metadata.Confidence = 90
	doc.Metadata.DetectionMethod = "EPUB spine order"

	manifest := make(map[string]string, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		manifest[item.ID] = item.Href
	}

	minWords := p.MinChapterWords
	if minWords <= 0 {
		minWords = defaultMinChapterWords
	}
	baseDir := path.Dir(opfPath)

	for _, ref := range pkg.Spine.ItemRefs {
		if err := ctx.Err(); err != nil {
			return failedDoc(document.FormatEPUB, "EPUB parse failed", err)
		}
		href, ok := manifest[ref.IDRef]
		if !ok {
			doc.AddWarning(fmt.Sprintf("spine item %q is not in the manifest; skipped", ref.IDRef))
			continue
		}
		entryPath := href
		if baseDir != "." {
			entryPath = path.Join(baseDir, href)
		}
		raw, err := readZipEntry(zr, entryPath)
		if err != nil {
			doc.AddWarning(fmt.Sprintf("spine item %s could not be read; skipped", entryPath))
			continue
		}

		content, heading := extractXHTMLText(raw)
		wc := textutil.CountWords(content)
		if wc < minWords {
			doc.AddWarning(fmt.Sprintf("spine item %s skipped (%d words, below the %d-word chapter floor)", entryPath, wc, minWords))
			continue
		}

		title := heading
		if title == "" {
			title = fmt.Sprintf("Chapter %d", len(doc.Chapters)+1)
		}
		ch := document.ParsedChapter{
			Title:     title,
			Number:    textutil.ExtractChapterNumberShort(title),
			Content:   content,
			WordCount: wc,
		}
		if sc := scenes.Detect(content); len(sc) > 1 {
			ch.Scenes = sc
		}
		doc.Chapters = append(doc.Chapters, ch)
	}

	if len(doc.Chapters) == 0 {
		doc.AddWarning("no spine item produced a chapter; the archive may contain only navigation or cover pages")
	}

	warnNonSequential(doc)
	return doc.Finalize()
}

// extractXHTMLText pulls block-level text out of one spine document:
// paragraphs, headings and list items, whitespace-normalized and joined
// with blank lines. Also returns the first heading for use as the chapter
// title.
func extractXHTMLText(raw []byte) (content, firstHeading string) {
	root, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return "", ""
	}
	blocks := collectHTMLBlocks(root)

	var parts []string
	for _, b := range blocks {
		if b.level > 0 && firstHeading == "" {
			firstHeading = b.text
		}
		parts = append(parts, b.text)
	}
	return strings.Join(parts, "\n\n"), firstHeading
}

// readZipEntry returns the decompressed content of a named archive entry.
func readZipEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("entry %s not found in archive", name)
}
