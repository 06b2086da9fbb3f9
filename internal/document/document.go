package document

// Format identifies which parser produced a ParsedDocument. The set is
// closed: formats the service recognizes but does not implement (csv, rtf)
// degrade to the plain-text parser at dispatch time.
type Format string

const (
	FormatPlainText Format = "plaintext"
	FormatMarkdown  Format = "markdown"
	FormatDOCX      Format = "docx"
	FormatJSON      Format = "json"
	FormatCSV       Format = "csv"
	FormatEPUB      Format = "epub"
	FormatHTML      Format = "html"
	FormatRTF       Format = "rtf"
	FormatODT       Format = "odt"
	FormatFountain  Format = "fountain"
	FormatPDF       Format = "pdf"
	FormatUnknown   Format = "unknown"
)

// ParsedDocument is the root of a parse result. Every parse attempt returns
// one — degraded results carry confidence 0 or 50 plus warnings, never an
// error from the parser boundary.
type ParsedDocument struct {
	Metadata DocumentMetadata `json:"metadata"`
	Chapters []ParsedChapter  `json:"chapters"`
	Warnings []string         `json:"warnings"`
	Format   Format           `json:"format"`
}

// DocumentMetadata describes the whole document and how it was segmented.
// Confidence is a 0-100 heuristic strength signal, not a probability.
type DocumentMetadata struct {
	Title           string `json:"title,omitempty"`
	Author          string `json:"author,omitempty"`
	TotalWords      int    `json:"totalWords"`
	ChapterCount    int    `json:"chapterCount"`
	Confidence      int    `json:"confidence"`
	DetectionMethod string `json:"detectionMethod"`
}

// ParsedChapter is one detected chapter. Number is 0 when the source gave
// no usable numbering. StartLine/EndLine are 1-based and only set for
// line-oriented formats. Scenes is set only when more than one scene was
// detected inside the chapter.
type ParsedChapter struct {
	Title     string        `json:"title"`
	Number    int           `json:"number,omitempty"`
	Content   string        `json:"content"`
	WordCount int           `json:"wordCount"`
	StartLine int           `json:"startLine,omitempty"`
	EndLine   int           `json:"endLine,omitempty"`
	Scenes    []ParsedScene `json:"scenes,omitempty"`
}

// ParsedScene is one scene segment inside a chapter.
type ParsedScene struct {
	Title     string `json:"title,omitempty"`
	Content   string `json:"content"`
	WordCount int    `json:"wordCount"`
}

// New returns an empty document for the given format. Chapters and
// Warnings start as non-nil empty slices so JSON output never contains
// null for either.
func New(format Format) *ParsedDocument {
	return &ParsedDocument{
		Chapters: []ParsedChapter{},
		Warnings: []string{},
		Format:   format,
	}
}

// AddWarning appends an advisory message for the human reviewer. Warnings
// never block completion.
func (d *ParsedDocument) AddWarning(msg string) {
	d.Warnings = append(d.Warnings, msg)
}

// Finalize recomputes TotalWords and ChapterCount from the chapter list
// and returns the document for chaining. A chapter's word count is based
// on its own content, so the total may differ from the sum of scene word
// counts (scene splitting discards separator lines).
func (d *ParsedDocument) Finalize() *ParsedDocument {
	total := 0
	for _, ch := range d.Chapters {
		total += ch.WordCount
	}
	d.Metadata.TotalWords = total
	d.Metadata.ChapterCount = len(d.Chapters)
	return d
}
