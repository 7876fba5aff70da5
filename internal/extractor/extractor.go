// Package extractor parses a saved article page into canonical metadata and
// the content subtree the rest of the pipeline operates on.
package extractor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"vocusconv/internal/models"
)

// ErrNoContentRoot indicates the page has no identifiable article body.
// This is fatal for the document; the batch continues with the next one.
var ErrNoContentRoot = errors.New("no article content subtree found")

var articleContentClass = regexp.MustCompile(`article.*content`)

// Timestamp layouts accepted from the page's meta annotations.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Document bundles the parsed page with the located article body. Body is a
// live selection into the same tree; resolver and sanitizer mutate it in
// place.
type Document struct {
	Meta models.ArticleMetadata
	Body *goquery.Selection

	doc *goquery.Document
}

// Parse reads a saved article page and extracts metadata plus the content
// subtree. Metadata extraction never fails; a missing content subtree does.
func Parse(r io.Reader, now time.Time) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse markup: %w", err)
	}

	body := findContentRoot(doc)
	if body == nil {
		return nil, ErrNoContentRoot
	}

	return &Document{
		Meta: ExtractMetadata(doc, now),
		Body: body,
		doc:  doc,
	}, nil
}

// ExtractMetadata pulls title, author and timestamps from the page's
// structured annotations, with textual fallbacks. It is total: every failure
// degrades to an empty string or to the current instant.
func ExtractMetadata(doc *goquery.Document, now time.Time) models.ArticleMetadata {
	meta := models.ArticleMetadata{}

	// Title: structured annotation first, first heading as fallback.
	if content, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		meta.Title = strings.TrimSpace(content)
	}

	if meta.Title == "" {
		meta.Title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	// Publish timestamp falls back to now; modified falls back to publish.
	meta.PublishedAt = parseMetaTime(doc, now, `meta[name="pubdate"]`)
	meta.ModifiedAt = parseMetaTime(doc, meta.PublishedAt,
		`meta[name="lastmod"]`, `meta[property="article:modified_time"]`)

	meta.Author = extractAuthor(doc)

	return meta
}

// parseMetaTime reads the first matching meta tag's content attribute and
// parses it as an ISO-8601-like timestamp. Parse failure and absence both
// yield the fallback.
func parseMetaTime(doc *goquery.Document, fallback time.Time, selectors ...string) time.Time {
	for _, sel := range selectors {
		content, ok := doc.Find(sel).First().Attr("content")
		if !ok || strings.TrimSpace(content) == "" {
			continue
		}

		raw := strings.TrimSpace(content)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t
			}
		}
	}

	return fallback
}

// extractAuthor reads the author name from the page's embedded
// structured-data annotation. Absence or malformed JSON yields "".
func extractAuthor(doc *goquery.Document) string {
	var author string

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var payload struct {
			Author struct {
				Name string `json:"name"`
			} `json:"author"`
		}

		if err := json.Unmarshal([]byte(s.Text()), &payload); err != nil {
			return true
		}

		if payload.Author.Name != "" {
			author = payload.Author.Name
			return false
		}

		return true
	})

	return author
}

// findContentRoot locates the article body: the platform's editor-content
// article element, then any div whose class looks like an article content
// container, then the main element.
func findContentRoot(doc *goquery.Document) *goquery.Selection {
	if s := doc.Find(`article[class*="editor-content"]`).First(); s.Length() > 0 {
		return s
	}

	var fallback *goquery.Selection

	doc.Find("div[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		if articleContentClass.MatchString(class) {
			fallback = s
			return false
		}

		return true
	})

	if fallback != nil {
		return fallback
	}

	if s := doc.Find("main").First(); s.Length() > 0 {
		return s
	}

	return nil
}

// ParseMetadataOnly reads only the page's annotations, skipping content-root
// location. Used by the conversion state tracker, which must classify a
// document without running the full pipeline.
func ParseMetadataOnly(r io.Reader, now time.Time) (models.ArticleMetadata, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return models.ArticleMetadata{}, fmt.Errorf("failed to parse markup: %w", err)
	}

	return ExtractMetadata(doc, now), nil
}
