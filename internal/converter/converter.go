// Package converter orchestrates the per-document pipeline: metadata
// extraction, asset resolution, sanitization, resilient download and
// rendering, plus batch runs over many documents.
package converter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"vocusconv/internal/config"
	"vocusconv/internal/downloader"
	"vocusconv/internal/extractor"
	"vocusconv/internal/logger"
	"vocusconv/internal/models"
	"vocusconv/internal/render"
	"vocusconv/internal/resolver"
	"vocusconv/internal/sanitizer"
	"vocusconv/internal/state"
)

// Converter runs the conversion pipeline for one source document at a time.
// All stages run strictly sequentially on the calling goroutine.
type Converter struct {
	cfg       *config.Config
	log       *logger.Logger
	dl        *downloader.Downloader
	res       *resolver.Resolver
	san       *sanitizer.Sanitizer
	renderers *render.Registry
	sink      ProgressSink
	gate      *Gate
	now       func() time.Time
}

// New creates a converter with default dependencies built from the config.
func New(cfg *config.Config, log *logger.Logger, sink ProgressSink) *Converter {
	registry := render.NewRegistry(
		&render.MarkdownRenderer{},
		&render.PDFRenderer{BrowserPath: cfg.Render.BrowserPath},
	)

	return NewWithDeps(cfg, log, downloader.New(cfg, log), registry, sink)
}

// NewWithDeps creates a converter with injected dependencies.
func NewWithDeps(cfg *config.Config, log *logger.Logger, dl *downloader.Downloader, registry *render.Registry, sink ProgressSink) *Converter {
	if sink == nil {
		sink = NopSink{}
	}

	return &Converter{
		cfg:       cfg,
		log:       log,
		dl:        dl,
		res:       resolver.New(cfg.Site.OriginHost, cfg.Site.ProxyHost, cfg.Output.ImagesDir),
		san:       sanitizer.New(),
		renderers: registry,
		sink:      sink,
		now:       time.Now,
	}
}

// SetGate installs the pause latch consulted before each asset download.
func (c *Converter) SetGate(g *Gate) { c.gate = g }

// Convert runs the full pipeline for one source document. A document whose
// content subtree cannot be identified aborts with an error; every other
// failure degrades into the report and the run completes.
func (c *Converter) Convert(ctx context.Context, sourcePath string) (*models.DocumentReport, error) {
	filename := filepath.Base(sourcePath)
	report := &models.DocumentReport{
		Filename:        filename,
		TextStatus:      models.StageSkipped,
		PaginatedStatus: models.StageSkipped,
	}

	f, err := os.Open(sourcePath)
	if err != nil {
		return report, fmt.Errorf("failed to open source document: %w", err)
	}

	doc, err := extractor.Parse(f, c.now())
	f.Close()

	if err != nil {
		return report, fmt.Errorf("failed to parse %s: %w", filename, err)
	}

	c.log.Info("parsed article",
		"title", doc.Meta.Title, "author", doc.Meta.Author, "published", doc.Meta.PublishDisplay())

	// Resolve before sanitizing: the sanitizer's preservation invariant is
	// defined over images the resolver has already rewritten.
	assets := c.res.Resolve(doc.Body, doc.Meta)
	report.TotalImages = len(assets)

	c.san.Clean(doc.Body)

	if len(assets) > 0 {
		// A nil *Gate must reach the downloader as a nil interface, not as
		// a non-nil interface wrapping a nil pointer.
		var gate downloader.Gate
		if c.gate != nil {
			gate = c.gate
		}

		result, err := c.dl.DownloadAll(ctx, assets, gate, func(done, total int) {
			c.sink.Publish(Event{Type: EventAsset, Current: done, Total: total, Context: filename})
		})

		report.DownloadedImages = result.Succeeded

		if err != nil {
			return report, err // cancellation, not a download failure
		}

		if result.Failed > 0 {
			c.sink.Publish(Event{
				Type:     EventStatus,
				Message:  fmt.Sprintf("%s: %d of %d images could not be downloaded", filename, result.Failed, len(assets)),
				Severity: SeverityWarning,
			})
		}

		manifestDir := filepath.Dir(assets[0].LocalPath)
		if _, err := downloader.WriteManifest(manifestDir, filename, doc.Meta, assets); err != nil {
			c.log.Warn("failed to write asset manifest", "error", err)
		}
	}

	baseName := state.OutputBaseName(doc.Meta)

	imagesRoot, err := filepath.Abs(c.cfg.Output.ImagesDir)
	if err != nil {
		imagesRoot = c.cfg.Output.ImagesDir
	}

	if c.cfg.Render.Text {
		report.TextStatus = c.renderStage(ctx, "md", &render.Input{
			Meta:       doc.Meta,
			Body:       doc.Body,
			BaseName:   baseName,
			OutputDir:  c.cfg.TextDir(),
			ImagesRoot: imagesRoot,
		}, report)
	}

	if c.cfg.Render.Paginated {
		report.PaginatedStatus = c.renderStage(ctx, "pdf", &render.Input{
			Meta:       doc.Meta,
			Body:       doc.Body,
			BaseName:   baseName,
			OutputDir:  c.cfg.PaginatedDir(),
			ImagesRoot: imagesRoot,
		}, report)
	}

	return report, nil
}

// renderStage runs one renderer; its failure affects neither the other
// stage nor other documents.
func (c *Converter) renderStage(ctx context.Context, format string, in *render.Input, report *models.DocumentReport) string {
	backend, err := c.renderers.For(format)
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
		c.sink.Publish(Event{
			Type:     EventStatus,
			Message:  fmt.Sprintf("%s: no %s renderer available", report.Filename, format),
			Severity: SeverityWarning,
		})

		return models.StageFailed
	}

	path, err := backend.Render(ctx, in)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("%s rendering: %v", format, err))
		c.sink.Publish(Event{
			Type:     EventStatus,
			Message:  fmt.Sprintf("%s: %s rendering failed: %v", report.Filename, format, err),
			Severity: SeverityError,
		})

		return models.StageFailed
	}

	c.log.Info("artifact written", "format", format, "path", path)
	c.sink.Publish(Event{
		Type:     EventStatus,
		Message:  fmt.Sprintf("%s: %s written", report.Filename, path),
		Severity: SeveritySuccess,
	})

	return models.StageSuccess
}
