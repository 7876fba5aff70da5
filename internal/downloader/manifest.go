package downloader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"vocusconv/internal/models"
)

// ManifestName is the per-article asset provenance file written next to the
// downloaded images.
const ManifestName = "image_urls.txt"

// WriteManifest records where each local image came from so a failed asset
// can be fetched by hand later. It is written after the download loop,
// whether or not every asset succeeded.
func WriteManifest(dir, sourceName string, meta models.ArticleMetadata, assets []models.ImageAsset) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create manifest directory: %w", err)
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Image URL manifest - source: %s\n", sourceName)
	fmt.Fprintf(&b, "Article: %s\n", meta.Title)
	fmt.Fprintf(&b, "Published: %s\n", meta.PublishDisplay())
	b.WriteString(strings.Repeat("=", 50) + "\n\n")

	for _, asset := range assets {
		fmt.Fprintf(&b, "Image %d:\n", asset.Ordinal)
		fmt.Fprintf(&b, "  Origin URL: %s\n", asset.CanonicalURL)

		if asset.ProxyURL != "" {
			fmt.Fprintf(&b, "  Proxy URL: %s\n", asset.ProxyURL)
		}

		fmt.Fprintf(&b, "  Local path: %s\n", asset.LocalPath)
		fmt.Fprintf(&b, "  Alt text: %s\n", asset.AltText)
		b.WriteString("\n")
	}

	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}

	return path, nil
}
