package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chapterize/chapterize/internal/document"
	"github.com/chapterize/chapterize/internal/parser"
)

type parseResult struct {
	FileName string                   `json:"fileName"`
	Document *document.ParsedDocument `json:"document,omitempty"`
	Error    string                   `json:"error,omitempty"`
}

// parseOne dispatches one upload to the right parser and entry point.
// Parse outcomes are never errors: a failed decode comes back as a
// document with confidence 0 and warnings.
func (s *Server) parseOne(r *http.Request, data []byte, fileName, formatOverride string) *document.ParsedDocument {
	var p parser.DocumentParser
	if formatOverride != "" {
		p = parser.ForFormat(s.parsers, document.Format(strings.ToLower(formatOverride)))
	} else {
		p = parser.Sniff(s.parsers, string(data), fileName)
	}

	if bp, ok := p.(parser.BinaryParser); ok {
		return bp.ParseBinary(r.Context(), data, fileName)
	}
	return p.Parse(string(data), fileName)
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		formError(w, err, s.cfg.MaxUploadBytes)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	fileName := sanitizeFilename(header.Filename)
	doc := s.parseOne(r, data, fileName, r.FormValue("format"))

	s.log.Info("parsed document",
		"file", fileName,
		"format", doc.Format,
		"chapters", doc.Metadata.ChapterCount,
		"confidence", doc.Metadata.Confidence,
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}

func (s *Server) handleBatchParse(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		formError(w, err, s.cfg.MaxUploadBytes*10)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	formatOverride := r.FormValue("format")

	// Bounded fan-out: parse files concurrently but keep results in
	// upload order.
	results := make([]parseResult, len(files))
	sem := make(chan struct{}, s.cfg.BatchWorkers)
	var wg sync.WaitGroup
	for i, fh := range files {
		wg.Add(1)
		go func(i int, fh *multipart.FileHeader) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			fileName := sanitizeFilename(fh.Filename)
			results[i].FileName = fileName

			f, err := fh.Open()
			if err != nil {
				results[i].Error = "failed to open file"
				return
			}
			data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
			f.Close()
			if err != nil || int64(len(data)) > s.cfg.MaxUploadBytes {
				results[i].Error = "file too large or read error"
				return
			}

			results[i].Document = s.parseOne(r, data, fileName, formatOverride)
		}(i, fh)
	}
	wg.Wait()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"results": results})
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	type formatInfo struct {
		Name   string          `json:"name"`
		Format document.Format `json:"format"`
		Binary bool            `json:"binary"`
	}
	infos := make([]formatInfo, 0, len(s.parsers))
	for _, p := range s.parsers {
		_, binary := p.(parser.BinaryParser)
		infos = append(infos, formatInfo{Name: p.Name(), Format: p.Format(), Binary: binary})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"formats": infos})
}

// formError distinguishes an upload that blew the MaxBytesReader cap
// (413) from a malformed multipart body (400).
func formError(w http.ResponseWriter, err error, limit int64) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		jsonError(w, fmt.Sprintf("request exceeds max size (%d bytes)", limit), http.StatusRequestEntityTooLarge)
		return
	}
	jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
