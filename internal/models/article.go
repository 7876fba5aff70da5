// Package models defines the data structures shared across the conversion
// pipeline.
package models

import "time"

// Layouts for publish-date derived names.
const (
	PublishSlugLayout    = "2006-01-02_15-04"
	PublishDisplayLayout = "2006-01-02 15:04"
	DatePrefixLayout     = "20060102"
)

// ArticleMetadata holds the document-level metadata extracted from a saved
// article page. It is immutable once extracted; timestamps always carry a
// usable value because extraction substitutes fallbacks instead of failing.
type ArticleMetadata struct {
	Title       string
	Author      string
	PublishedAt time.Time
	ModifiedAt  time.Time
}

// PublishSlug returns the publish timestamp formatted for directory names.
// The time component is included so two articles published the same day do
// not collide.
func (m ArticleMetadata) PublishSlug() string {
	return m.PublishedAt.Format(PublishSlugLayout)
}

// PublishDisplay returns the publish timestamp formatted for display.
func (m ArticleMetadata) PublishDisplay() string {
	return m.PublishedAt.Format(PublishDisplayLayout)
}

// ModifiedDisplay returns the last-modified timestamp formatted for display.
func (m ArticleMetadata) ModifiedDisplay() string {
	return m.ModifiedAt.Format(PublishDisplayLayout)
}

// DatePrefix returns the YYYYMMDD prefix used in rendered artifact names.
func (m ArticleMetadata) DatePrefix() string {
	return m.PublishedAt.Format(DatePrefixLayout)
}

// ImageAsset describes one distinct image referenced by the article body.
// CanonicalURL is the deduplication key: every node resolving to the same
// canonical URL shares one asset and one local path.
type ImageAsset struct {
	// CanonicalURL is the origin-server URL after undoing any resize-proxy
	// redirection encoding.
	CanonicalURL string

	// ProxyURL is the resize-proxy URL the page carried, kept as an
	// alternate fetch source. Empty when the page linked the origin
	// directly.
	ProxyURL string

	// Ordinal is the 1-based position of the image's first occurrence in
	// document order. Ordinals are dense and monotonic across the list.
	Ordinal int

	// LocalPath is the on-disk destination for the downloaded bytes.
	LocalPath string

	// RelPath is the document-relative path written into the content tree
	// in place of the remote URL.
	RelPath string

	// AltText is the image's alternate text, possibly empty.
	AltText string
}
