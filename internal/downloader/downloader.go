// Package downloader fetches resolved image assets through a bounded chain
// of anti-blocking strategies with shared validation.
package downloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vocusconv/internal/config"
	"vocusconv/internal/logger"
	"vocusconv/internal/models"
)

// Download errors.
var (
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	ErrNotImage             = errors.New("response is not an image")
	ErrBodyTooSmall         = errors.New("image body below minimum size")
	ErrExhausted            = errors.New("all download strategies exhausted")
	ErrNoFetchableURL       = errors.New("asset has no fetchable URL")
)

// Leading-byte signatures of accepted image formats. A body that matches
// none is kept anyway; the signature check only confirms success, it does
// not fail an otherwise valid fetch.
var imageSignatures = [][]byte{
	{0xff, 0xd8, 0xff},                         // JPEG
	{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, // PNG
	[]byte("GIF87a"),
	[]byte("GIF89a"),
	[]byte("RIFF"), // WebP container
	{0x00, 0x00, 0x01, 0x00}, // ICO
}

// Gate blocks between assets while a run is paused. Wait returns once the
// run may proceed, or the context's error if it is cancelled while waiting.
type Gate interface {
	Wait(ctx context.Context) error
}

// Progress is invoked once per attempted asset with the number of assets
// downloaded so far and the total. Never invoked per retry.
type Progress func(done, total int)

// Result accumulates per-run success and failure counts.
type Result struct {
	Succeeded int
	Failed    int
}

// Downloader materializes image assets on disk. One instance reuses its
// HTTP client's connection pool across fetches within a run; it carries no
// cross-document state.
type Downloader struct {
	client *http.Client
	cfg    config.DownloadConfig
	site   config.SiteConfig
	retry  config.RetryPolicy
	log    *logger.Logger
	rng    *rand.Rand
}

// New creates a downloader from the converter configuration.
func New(cfg *config.Config, log *logger.Logger) *Downloader {
	return &Downloader{
		client: &http.Client{Timeout: cfg.Download.Timeout()},
		cfg:    cfg.Download,
		site:   cfg.Site,
		retry:  cfg.Retry,
		log:    log,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// strategy is one fetch configuration in the chain.
type strategy struct {
	name string
	run  func(ctx context.Context, rawURL, dest string) error
}

func (d *Downloader) strategies() []strategy {
	return []strategy{
		{"direct", d.strategyDirect},
		{"delayed", d.strategyDelayed},
		{"header-rotation", d.strategyHeaderRotation},
		{"throttled", d.strategyThrottled},
		{"minimal-headers", d.strategyMinimal},
	}
}

// Fetch runs the full strategy chain for one URL. Each strategy is retried
// up to the configured bound with randomized inter-attempt delay; escalation
// to the next strategy waits out the retry policy's backoff. The error wraps
// ErrExhausted only after every strategy has been attempted.
func (d *Downloader) Fetch(ctx context.Context, rawURL, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create asset directory: %w", err)
	}

	var lastErr error

	for i, strat := range d.strategies() {
		if i > 0 {
			if err := d.sleep(ctx, d.retry.GetRetryDelay(i+1)); err != nil {
				return err
			}
		}

		for attempt := 1; attempt <= d.cfg.MaxRetries; attempt++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			err := strat.run(ctx, rawURL, dest)
			if err == nil {
				d.log.Debug("download succeeded", "strategy", strat.name, "url", rawURL)
				return nil
			}

			lastErr = err
			d.log.Debug("download attempt failed",
				"strategy", strat.name, "attempt", attempt, "url", rawURL, "error", err)

			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}

			if attempt < d.cfg.MaxRetries {
				if err := d.sleep(ctx, d.retryJitter()); err != nil {
					return err
				}
			}
		}
	}

	return fmt.Errorf("%w: %s: %w", ErrExhausted, rawURL, lastErr)
}

// FetchBestKnown tries the asset's best known sources in order: the
// canonical origin URL with image-request headers, the alternate proxy URL,
// then the origin again with page-emulation headers. It shares fetch and
// validation logic with the full chain; callers escalate to Fetch when it
// fails.
func (d *Downloader) FetchBestKnown(ctx context.Context, asset *models.ImageAsset) error {
	if err := os.MkdirAll(filepath.Dir(asset.LocalPath), 0o755); err != nil {
		return fmt.Errorf("failed to create asset directory: %w", err)
	}

	type variant struct {
		name    string
		url     string
		headers http.Header
	}

	var variants []variant

	if strings.Contains(asset.CanonicalURL, d.site.OriginHost) {
		variants = append(variants, variant{"origin", asset.CanonicalURL, d.imageHeaders()})
	}

	if asset.ProxyURL != "" {
		variants = append(variants, variant{"proxy", asset.ProxyURL, d.imageHeaders()})
	}

	if asset.CanonicalURL != "" {
		variants = append(variants, variant{"page-mode", asset.CanonicalURL, d.pageHeaders()})
	}

	if len(variants) == 0 {
		return ErrNoFetchableURL
	}

	var lastErr error

	for _, v := range variants {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := d.fetchOnce(ctx, v.url, asset.LocalPath, v.headers, false)
		if err == nil {
			d.log.Debug("download succeeded", "source", v.name, "url", v.url)
			return nil
		}

		lastErr = err
		d.log.Debug("download source failed", "source", v.name, "url", v.url, "error", err)
	}

	return lastErr
}

// DownloadAll fetches every asset in ordinal order, one at a time. The
// cancellation context and pause gate are consulted before each asset, never
// mid-fetch. An asset that exhausts all strategies is counted as failed and
// left unresolved; the run continues.
func (d *Downloader) DownloadAll(ctx context.Context, assets []models.ImageAsset, gate Gate, progress Progress) (Result, error) {
	var res Result

	total := len(assets)
	if progress != nil {
		progress(0, total)
	}

	for i := range assets {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if gate != nil {
			if err := gate.Wait(ctx); err != nil {
				return res, err
			}
		}

		asset := &assets[i]

		err := d.FetchBestKnown(ctx, asset)
		if err != nil && !isContextErr(err) {
			d.log.Debug("best-known sources failed, escalating to strategy chain",
				"ordinal", asset.Ordinal, "url", asset.CanonicalURL, "error", err)
			err = d.Fetch(ctx, asset.CanonicalURL, asset.LocalPath)
		}

		switch {
		case err == nil:
			res.Succeeded++
		case isContextErr(err):
			return res, err
		default:
			res.Failed++
			d.log.Warn("asset left unresolved",
				"ordinal", asset.Ordinal, "url", asset.CanonicalURL, "path", asset.LocalPath, "error", err)
		}

		if progress != nil {
			progress(res.Succeeded, total)
		}
	}

	return res, nil
}

// strategyDirect fetches with a randomly selected browser header set.
func (d *Downloader) strategyDirect(ctx context.Context, rawURL, dest string) error {
	return d.fetchOnce(ctx, rawURL, dest, d.randomHeaderSet(), false)
}

// strategyDelayed waits a randomized interval first to break up
// request-burst signatures.
func (d *Downloader) strategyDelayed(ctx context.Context, rawURL, dest string) error {
	delay := time.Duration(500+d.rng.Intn(1500)) * time.Millisecond
	if err := d.sleep(ctx, delay); err != nil {
		return err
	}

	return d.fetchOnce(ctx, rawURL, dest, d.randomHeaderSet(), false)
}

// strategyHeaderRotation iterates every header set variant until one works.
func (d *Downloader) strategyHeaderRotation(ctx context.Context, rawURL, dest string) error {
	var lastErr error

	for _, headers := range d.headerSets() {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := d.fetchOnce(ctx, rawURL, dest, headers, false)
		if err == nil {
			return nil
		}

		lastErr = err
	}

	return lastErr
}

// strategyThrottled streams the body in small chunks with a per-chunk delay.
func (d *Downloader) strategyThrottled(ctx context.Context, rawURL, dest string) error {
	return d.fetchOnce(ctx, rawURL, dest, d.randomHeaderSet(), true)
}

// strategyMinimal uses the non-browser header set as a last resort.
func (d *Downloader) strategyMinimal(ctx context.Context, rawURL, dest string) error {
	return d.fetchOnce(ctx, rawURL, dest, minimalHeaders(), false)
}

// fetchOnce performs a single attempt: request, status and content-type
// checks, body write, validation. Any failure aborts this attempt only.
func (d *Downloader) fetchOnce(ctx context.Context, rawURL, dest string, headers http.Header, throttled bool) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header = headers.Clone()

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "image") && !strings.Contains(contentType, "octet-stream") {
		return fmt.Errorf("%w: content type %q", ErrNotImage, contentType)
	}

	if err := d.writeBody(resp.Body, dest, throttled); err != nil {
		return err
	}

	return d.validate(dest)
}

func (d *Downloader) writeBody(body io.Reader, dest string, throttled bool) error {
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer f.Close()

	if !throttled {
		if _, err := io.Copy(f, body); err != nil {
			return fmt.Errorf("failed to write body: %w", err)
		}

		return nil
	}

	buf := make([]byte, d.cfg.ChunkSizeBytes)
	chunkDelay := time.Duration(d.cfg.ChunkDelayMs) * time.Millisecond

	for {
		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return fmt.Errorf("failed to write body: %w", werr)
			}

			time.Sleep(chunkDelay)
		}

		if err == io.EOF {
			return nil
		}

		if err != nil {
			return fmt.Errorf("failed to read body: %w", err)
		}
	}
}

// validate checks the materialized file: a body below the minimum size is
// an error page in disguise and is deleted; an unrecognized leading
// signature is logged but the file is kept.
func (d *Downloader) validate(dest string) error {
	info, err := os.Stat(dest)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", dest, err)
	}

	if info.Size() < int64(d.cfg.MinBodyBytes) {
		os.Remove(dest)
		return fmt.Errorf("%w: %d bytes", ErrBodyTooSmall, info.Size())
	}

	f, err := os.Open(dest)
	if err != nil {
		return fmt.Errorf("failed to reopen %s: %w", dest, err)
	}
	defer f.Close()

	header := make([]byte, 20)
	n, _ := io.ReadFull(f, header)
	header = header[:n]

	if !hasImageSignature(header) {
		d.log.Warn("unrecognized image signature, keeping file", "path", dest)
	}

	return nil
}

func hasImageSignature(header []byte) bool {
	for _, sig := range imageSignatures {
		if bytes.HasPrefix(header, sig) {
			return true
		}
	}

	return false
}

// retryJitter picks a randomized inter-attempt delay from the configured
// range.
func (d *Downloader) retryJitter() time.Duration {
	span := d.cfg.MaxDelayMs - d.cfg.MinDelayMs
	ms := d.cfg.MinDelayMs
	if span > 0 {
		ms += d.rng.Intn(span)
	}

	return time.Duration(ms) * time.Millisecond
}

func (d *Downloader) randomHeaderSet() http.Header {
	sets := d.headerSets()
	return sets[d.rng.Intn(len(sets))]
}

// sleep waits for the given duration or until the context is cancelled.
func (d *Downloader) sleep(ctx context.Context, dur time.Duration) error {
	timer := time.NewTimer(dur)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
