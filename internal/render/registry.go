// Package render turns the sanitized content tree and metadata block into
// durable artifacts. Backends are capability-probed once and selected in
// priority order per format.
package render

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"vocusconv/internal/models"
)

// ErrNoBackend indicates no registered backend for a format is available on
// this host.
var ErrNoBackend = errors.New("no available renderer backend")

// Input is the contract the pipeline hands each renderer. Every image
// reference in Body is already a local relative path (or a known-missing
// path in the exhausted-download case); renderers do no URL resolution.
type Input struct {
	Meta models.ArticleMetadata
	Body *goquery.Selection

	// BaseName is the artifact file name without extension.
	BaseName string
	// OutputDir is the format-specific artifact directory.
	OutputDir string
	// ImagesRoot is the absolute path of the downloaded-images root, for
	// backends that need absolute image locations.
	ImagesRoot string
}

// Renderer produces one artifact format.
type Renderer interface {
	Name() string
	// Format is the artifact extension without the dot ("md", "pdf").
	Format() string
	// Available reports whether this backend can run on this host. Called
	// once per process lifetime; the registry caches the answer.
	Available() bool
	// Render writes the artifact and returns its path.
	Render(ctx context.Context, in *Input) (string, error)
}

// Registry holds backends in priority order and resolves one per format.
type Registry struct {
	backends []Renderer

	mu     sync.Mutex
	chosen map[string]Renderer
	missed map[string]bool
}

// NewRegistry creates a registry; earlier backends win over later ones for
// the same format.
func NewRegistry(backends ...Renderer) *Registry {
	return &Registry{
		backends: backends,
		chosen:   make(map[string]Renderer),
		missed:   make(map[string]bool),
	}
}

// For returns the first available backend for the format. Availability is
// probed at most once per backend; the outcome is cached for the process
// lifetime.
func (r *Registry) For(format string) (Renderer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if backend, ok := r.chosen[format]; ok {
		return backend, nil
	}

	if r.missed[format] {
		return nil, fmt.Errorf("%w: %s", ErrNoBackend, format)
	}

	for _, backend := range r.backends {
		if backend.Format() != format {
			continue
		}

		if backend.Available() {
			r.chosen[format] = backend
			return backend, nil
		}
	}

	r.missed[format] = true

	return nil, fmt.Errorf("%w: %s", ErrNoBackend, format)
}
