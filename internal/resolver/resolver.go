// Package resolver walks the article body, resolves every embedded image
// reference to a canonical origin URL and assigns deterministic local names.
package resolver

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"vocusconv/internal/models"
)

// Known image extensions, checked against the URL path case-insensitively.
var knownExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg"}

// Resolver normalizes proxy/resize URL schemes to the canonical origin and
// rewrites image nodes to their future local paths.
type Resolver struct {
	// OriginHost is the canonical image origin domain.
	OriginHost string
	// ProxyHost is the resize-proxy domain whose URLs embed the origin URL
	// in a query parameter.
	ProxyHost string
	// ImagesDir is the on-disk root for downloaded images.
	ImagesDir string
}

// New creates a resolver for the given platform hosts and image root.
func New(originHost, proxyHost, imagesDir string) *Resolver {
	return &Resolver{
		OriginHost: originHost,
		ProxyHost:  proxyHost,
		ImagesDir:  imagesDir,
	}
}

// Resolve extracts every image reference from the body in document order,
// deduplicates on canonical URL and mutates each image node to carry its
// local relative path. A second node referencing an already-seen canonical
// URL produces no new asset but is still rewritten to the same local path.
func (r *Resolver) Resolve(body *goquery.Selection, meta models.ArticleMetadata) []models.ImageAsset {
	var assets []models.ImageAsset

	seen := make(map[string]int) // canonical URL -> index into assets
	folder := fmt.Sprintf("article_%s", meta.PublishSlug())

	body.Find("img").Each(func(_ int, s *goquery.Selection) {
		chosen, canonical := r.selectURL(s)
		if chosen == "" {
			return
		}

		proxyURL := ""
		if dataSrc, ok := s.Attr("data-src"); ok && strings.Contains(dataSrc, r.ProxyHost) {
			proxyURL = dataSrc
		}

		// Dedup key: canonical origin URL when recoverable, otherwise the
		// chosen URL itself.
		key := canonical
		if key == "" {
			key = chosen
		}

		if idx, ok := seen[key]; ok {
			rewriteNode(s, assets[idx].RelPath)
			return
		}

		ordinal := len(assets) + 1
		ext := ExtensionFor(key)
		filename := fmt.Sprintf("image_%d%s", ordinal, ext)

		asset := models.ImageAsset{
			CanonicalURL: key,
			ProxyURL:     proxyURL,
			Ordinal:      ordinal,
			LocalPath:    filepath.Join(r.ImagesDir, folder, filename),
			RelPath:      path.Join("../..", filepath.Base(r.ImagesDir), folder, filename),
			AltText:      s.AttrOr("alt", ""),
		}

		seen[key] = len(assets)
		assets = append(assets, asset)

		rewriteNode(s, asset.RelPath)
	})

	return assets
}

// selectURL picks the best available URL for an image node with priority
// explicit-original, lazy-load, direct. It returns the chosen fetch URL and
// the canonical origin URL when one was recoverable ("" otherwise).
func (r *Resolver) selectURL(s *goquery.Selection) (chosen, canonical string) {
	original, _ := s.Attr("data-original-src")
	dataSrc, _ := s.Attr("data-src")
	src, _ := s.Attr("src")

	switch {
	case original != "" && strings.Contains(original, r.OriginHost):
		chosen = original
		canonical = original
	case dataSrc != "":
		chosen = dataSrc
	case src != "" && !strings.HasPrefix(src, "./"):
		chosen = src
	default:
		return "", ""
	}

	// Undo the resize-proxy redirection: the origin URL travels in the
	// proxy URL's query string.
	if canonical == "" && strings.Contains(chosen, r.ProxyHost) {
		if decoded := r.decodeProxyURL(chosen); decoded != "" {
			canonical = decoded
		}
	}

	return chosen, canonical
}

// decodeProxyURL extracts the embedded origin URL from a resize-proxy URL.
// Returns "" unless the decoded URL belongs to the canonical origin domain.
func (r *Resolver) decodeProxyURL(proxyURL string) string {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return ""
	}

	embedded := u.Query().Get("url")
	if embedded == "" || !strings.Contains(embedded, r.OriginHost) {
		return ""
	}

	return embedded
}

// rewriteNode points the image at its local copy and strips the proxy and
// lazy-load attributes so renderers see a single resolvable source.
func rewriteNode(s *goquery.Selection, relPath string) {
	s.SetAttr("src", relPath)
	s.RemoveAttr("data-src")
	s.RemoveAttr("data-original-src")
}

// ExtensionFor infers the local file extension from the URL path suffix,
// defaulting to .jpg when unrecognized.
func ExtensionFor(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ".jpg"
	}

	p := strings.ToLower(u.Path)
	for _, ext := range knownExtensions {
		if strings.HasSuffix(p, ext) {
			return ext
		}
	}

	return ".jpg"
}

// ExtractOriginURLs collects every distinct canonical origin URL referenced
// anywhere in the document, sorted for deterministic ordering. Used by the
// standalone image fetcher, which downloads without converting.
func (r *Resolver) ExtractOriginURLs(doc *goquery.Document) []string {
	set := make(map[string]struct{})

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		for _, attr := range []string{"data-original-src", "data-src", "src"} {
			val, ok := s.Attr(attr)
			if !ok || val == "" {
				continue
			}

			if strings.Contains(val, r.OriginHost) {
				set[val] = struct{}{}
			} else if strings.Contains(val, r.ProxyHost) {
				if decoded := r.decodeProxyURL(val); decoded != "" {
					set[decoded] = struct{}{}
				}
			}
		}
	})

	urls := make([]string, 0, len(set))
	for u := range set {
		urls = append(urls, u)
	}

	sort.Strings(urls)

	return urls
}
