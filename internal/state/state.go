// Package state derives stable output identities and classifies whether a
// source document already has fresh outputs, so repeated runs are safe and
// cheap.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vocusconv/internal/extractor"
	"vocusconv/internal/models"
)

// maxNameRunes bounds the sanitized title portion of an output name.
const maxNameRunes = 100

// Status classifies a source document against its existing outputs.
type Status int

// Classification values.
const (
	// StatusNew: neither output exists.
	StatusNew Status = iota
	// StatusFresh: both outputs exist and are newer than the source.
	StatusFresh
	// StatusStale: both outputs exist but at least one predates the source.
	StatusStale
	// StatusPartial: exactly one output exists.
	StatusPartial
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusFresh:
		return "fresh-output"
	case StatusStale:
		return "stale-output"
	case StatusPartial:
		return "partially-converted"
	default:
		return "unknown"
	}
}

// Record is the derived output identity plus the freshness classification
// for one source document.
type Record struct {
	// BaseName is "{YYYYMMDD}_{safeTitle}", without extension.
	BaseName      string
	Status        Status
	TextPath      string
	PaginatedPath string
}

// SafeFilename replaces characters unsafe in filenames with underscores,
// truncates to 100 characters and trims surrounding whitespace. It is total:
// any input, including the empty string, yields a well-formed (possibly
// empty) name.
func SafeFilename(title string) string {
	var b strings.Builder

	for _, r := range title {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	safe := []rune(b.String())
	if len(safe) > maxNameRunes {
		safe = safe[:maxNameRunes]
	}

	return strings.TrimSpace(string(safe))
}

// OutputBaseName derives the artifact base name from metadata. A document
// with no recoverable title falls back to a publish-timestamp name, which is
// always non-empty because the publish timestamp itself falls back to now.
// That second fallback means a document lacking both a title and a publish
// annotation derives a different name on every run, so it is reconverted
// each time rather than ever classified as already converted.
func OutputBaseName(meta models.ArticleMetadata) string {
	safe := SafeFilename(meta.Title)
	if safe == "" {
		safe = "article_" + meta.PublishSlug()
	}

	return fmt.Sprintf("%s_%s", meta.DatePrefix(), safe)
}

// Checker classifies source documents against the output directories. It
// never mutates on-disk state and is safe to call repeatedly and
// concurrently.
type Checker struct {
	TextDir      string
	PaginatedDir string
}

// NewChecker creates a checker over the given output directories.
func NewChecker(textDir, paginatedDir string) *Checker {
	return &Checker{TextDir: textDir, PaginatedDir: paginatedDir}
}

// Classify extracts just enough metadata from the source to derive the
// output identity, then checks existence and freshness of the sibling
// outputs.
func (c *Checker) Classify(sourcePath string) (*Record, error) {
	f, err := os.Open(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open source document: %w", err)
	}
	defer f.Close()

	meta, err := extractor.ParseMetadataOnly(f, time.Now())
	if err != nil {
		return nil, err
	}

	return c.ClassifyWithMetadata(sourcePath, meta)
}

// ClassifyWithMetadata classifies using already-extracted metadata, avoiding
// a second parse when the caller has run the extractor.
func (c *Checker) ClassifyWithMetadata(sourcePath string, meta models.ArticleMetadata) (*Record, error) {
	srcInfo, err := os.Stat(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source document: %w", err)
	}

	rec := &Record{
		BaseName: OutputBaseName(meta),
	}
	rec.TextPath = filepath.Join(c.TextDir, rec.BaseName+".md")
	rec.PaginatedPath = filepath.Join(c.PaginatedDir, rec.BaseName+".pdf")

	textInfo, textErr := os.Stat(rec.TextPath)
	pagInfo, pagErr := os.Stat(rec.PaginatedPath)

	textExists := textErr == nil
	pagExists := pagErr == nil

	switch {
	case textExists && pagExists:
		if textInfo.ModTime().After(srcInfo.ModTime()) && pagInfo.ModTime().After(srcInfo.ModTime()) {
			rec.Status = StatusFresh
		} else {
			rec.Status = StatusStale
		}
	case textExists || pagExists:
		rec.Status = StatusPartial
	default:
		rec.Status = StatusNew
	}

	return rec, nil
}
