package downloader

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vocusconv/internal/config"
	"vocusconv/internal/logger"
	"vocusconv/internal/models"
)

// pngBody is a syntactically valid-looking PNG payload above the minimum
// body size.
var pngBody = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, bytes.Repeat([]byte{0xaa}, 120)...)

func testDownloader(t *testing.T, originHost string) *Downloader {
	t.Helper()

	cfg := config.Default()
	cfg.Site.OriginHost = originHost
	cfg.Download.TimeoutSec = 5
	cfg.Download.MaxRetries = 1
	cfg.Download.MinDelayMs = 0
	cfg.Download.MaxDelayMs = 0
	cfg.Download.ChunkDelayMs = 0
	cfg.Download.MinBodyBytes = 50
	cfg.Retry.InitialDelayMs = 0
	cfg.Retry.MaxDelayMs = 0

	log := logger.NewLoggerWithOptions("error", "text", io.Discard)

	return New(cfg, log)
}

func serveImage(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return srv
}

func TestFetch_DirectSuccess(t *testing.T) {
	srv := serveImage(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBody)
	})

	d := testDownloader(t, "127.0.0.1")
	dest := filepath.Join(t.TempDir(), "sub", "image_1.png")

	if err := d.Fetch(context.Background(), srv.URL+"/image_1.png", dest); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if !bytes.Equal(data, pngBody) {
		t.Error("downloaded body differs from served body")
	}
}

func TestFetch_ExhaustsAllStrategies(t *testing.T) {
	var requests int

	srv := serveImage(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusForbidden)
	})

	d := testDownloader(t, "127.0.0.1")
	dest := filepath.Join(t.TempDir(), "image_1.png")

	err := d.Fetch(context.Background(), srv.URL, dest)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}

	if !errors.Is(err, ErrUnexpectedStatusCode) {
		t.Errorf("err = %v, want wrapped ErrUnexpectedStatusCode", err)
	}

	// direct + delayed + 3 header variants + throttled + minimal.
	if requests != 7 {
		t.Errorf("server saw %d requests, want 7", requests)
	}
}

func TestFetch_EscalationWaitHonorsCancellation(t *testing.T) {
	var requests int

	srv := serveImage(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusForbidden)
	})

	d := testDownloader(t, "127.0.0.1")
	d.retry = config.RetryPolicy{
		MaxAttempts:       3,
		InitialDelayMs:    5000,
		MaxDelayMs:        5000,
		BackoffMultiplier: 1.0,
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	dest := filepath.Join(t.TempDir(), "image_1.png")

	err := d.Fetch(ctx, srv.URL, dest)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	// The first strategy's attempt went out; cancellation landed during the
	// backoff before the second strategy, so no further requests were made.
	if requests != 1 {
		t.Errorf("server saw %d requests, want 1", requests)
	}
}

func TestFetch_LastStrategySucceeds(t *testing.T) {
	// Only the non-browser fallback headers get through; every
	// browser-emulating attempt is rejected.
	srv := serveImage(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "curl/") {
			w.WriteHeader(http.StatusForbidden)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBody)
	})

	d := testDownloader(t, "127.0.0.1")
	dest := filepath.Join(t.TempDir(), "image_1.png")

	if err := d.Fetch(context.Background(), srv.URL, dest); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if _, err := os.Stat(dest); err != nil {
		t.Errorf("image not materialized: %v", err)
	}
}

func TestFetchOnce_RejectsNonImageContentType(t *testing.T) {
	srv := serveImage(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>blocked</html>"))
	})

	d := testDownloader(t, "127.0.0.1")
	dest := filepath.Join(t.TempDir(), "image_1.png")

	err := d.fetchOnce(context.Background(), srv.URL, dest, minimalHeaders(), false)
	if !errors.Is(err, ErrNotImage) {
		t.Fatalf("err = %v, want ErrNotImage", err)
	}
}

func TestFetchOnce_AcceptsOctetStream(t *testing.T) {
	srv := serveImage(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(pngBody)
	})

	d := testDownloader(t, "127.0.0.1")
	dest := filepath.Join(t.TempDir(), "image_1.png")

	if err := d.fetchOnce(context.Background(), srv.URL, dest, minimalHeaders(), false); err != nil {
		t.Fatalf("fetchOnce failed: %v", err)
	}
}

func TestFetchOnce_DeletesUndersizedBody(t *testing.T) {
	srv := serveImage(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("tiny"))
	})

	d := testDownloader(t, "127.0.0.1")
	dest := filepath.Join(t.TempDir(), "image_1.png")

	err := d.fetchOnce(context.Background(), srv.URL, dest, minimalHeaders(), false)
	if !errors.Is(err, ErrBodyTooSmall) {
		t.Fatalf("err = %v, want ErrBodyTooSmall", err)
	}

	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("undersized body was not deleted")
	}
}

func TestFetchOnce_KeepsUnrecognizedSignature(t *testing.T) {
	body := bytes.Repeat([]byte{0x42}, 120) // no known magic bytes

	srv := serveImage(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(body)
	})

	d := testDownloader(t, "127.0.0.1")
	dest := filepath.Join(t.TempDir(), "image_1.png")

	if err := d.fetchOnce(context.Background(), srv.URL, dest, minimalHeaders(), false); err != nil {
		t.Fatalf("fetchOnce failed: %v", err)
	}

	if _, err := os.Stat(dest); err != nil {
		t.Errorf("file with unknown signature was not kept: %v", err)
	}
}

func TestFetchOnce_Throttled(t *testing.T) {
	srv := serveImage(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBody)
	})

	d := testDownloader(t, "127.0.0.1")
	d.cfg.ChunkSizeBytes = 16

	dest := filepath.Join(t.TempDir(), "image_1.png")

	if err := d.fetchOnce(context.Background(), srv.URL, dest, minimalHeaders(), true); err != nil {
		t.Fatalf("throttled fetch failed: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if !bytes.Equal(data, pngBody) {
		t.Error("throttled body differs from served body")
	}
}

func TestFetchBestKnown_FallsBackToProxyURL(t *testing.T) {
	srv := serveImage(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/proxy/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBody)
	})

	d := testDownloader(t, "127.0.0.1")

	asset := models.ImageAsset{
		CanonicalURL: srv.URL + "/origin/a.png",
		ProxyURL:     srv.URL + "/proxy/a.png",
		Ordinal:      1,
		LocalPath:    filepath.Join(t.TempDir(), "image_1.png"),
	}

	if err := d.FetchBestKnown(context.Background(), &asset); err != nil {
		t.Fatalf("FetchBestKnown failed: %v", err)
	}
}

func TestFetchBestKnown_NoFetchableURL(t *testing.T) {
	d := testDownloader(t, "images.vocus.cc")

	asset := models.ImageAsset{LocalPath: filepath.Join(t.TempDir(), "image_1.png")}

	err := d.FetchBestKnown(context.Background(), &asset)
	if !errors.Is(err, ErrNoFetchableURL) {
		t.Fatalf("err = %v, want ErrNoFetchableURL", err)
	}
}

func TestDownloadAll_CountsAndProgress(t *testing.T) {
	srv := serveImage(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "broken") {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBody)
	})

	d := testDownloader(t, "127.0.0.1")
	tmpDir := t.TempDir()

	assets := []models.ImageAsset{
		{CanonicalURL: srv.URL + "/a.png", Ordinal: 1, LocalPath: filepath.Join(tmpDir, "image_1.png")},
		{CanonicalURL: srv.URL + "/broken.png", Ordinal: 2, LocalPath: filepath.Join(tmpDir, "image_2.png")},
		{CanonicalURL: srv.URL + "/b.png", Ordinal: 3, LocalPath: filepath.Join(tmpDir, "image_3.png")},
	}

	var calls int

	res, err := d.DownloadAll(context.Background(), assets, nil, func(done, total int) {
		calls++

		if total != 3 {
			t.Errorf("progress total = %d, want 3", total)
		}
	})
	if err != nil {
		t.Fatalf("DownloadAll failed: %v", err)
	}

	if res.Succeeded != 2 || res.Failed != 1 {
		t.Errorf("Result = %+v, want 2 succeeded, 1 failed", res)
	}

	// One initial call plus exactly one per asset, never per retry.
	if calls != 4 {
		t.Errorf("progress called %d times, want 4", calls)
	}
}

func TestDownloadAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := testDownloader(t, "127.0.0.1")

	assets := []models.ImageAsset{
		{CanonicalURL: "http://127.0.0.1/a.png", Ordinal: 1, LocalPath: filepath.Join(t.TempDir(), "image_1.png")},
	}

	res, err := d.DownloadAll(ctx, assets, nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	if res.Succeeded != 0 {
		t.Errorf("Succeeded = %d, want 0", res.Succeeded)
	}
}

func TestHasImageSignature(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
		want   bool
	}{
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0}, true},
		{"png", []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, true},
		{"gif", []byte("GIF89a..."), true},
		{"webp riff", []byte("RIFF....WEBP"), true},
		{"html error page", []byte("<html>"), false},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasImageSignature(tt.header); got != tt.want {
				t.Errorf("hasImageSignature = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWriteManifest(t *testing.T) {
	dir := t.TempDir()

	meta := models.ArticleMetadata{Title: "Sample"}
	assets := []models.ImageAsset{
		{CanonicalURL: "https://images.vocus.cc/a.png", ProxyURL: "https://resize-image.vocus.cc/?url=x", Ordinal: 1, LocalPath: "images/a/image_1.png", AltText: "chart"},
		{CanonicalURL: "https://images.vocus.cc/b.png", Ordinal: 2, LocalPath: "images/a/image_2.png"},
	}

	path, err := WriteManifest(dir, "article.html", meta, assets)
	if err != nil {
		t.Fatalf("WriteManifest failed: %v", err)
	}

	if filepath.Base(path) != ManifestName {
		t.Errorf("manifest name = %s, want %s", filepath.Base(path), ManifestName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	content := string(data)

	for _, want := range []string{
		"source: article.html",
		"https://images.vocus.cc/a.png",
		"Proxy URL: https://resize-image.vocus.cc/?url=x",
		"Image 2:",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("manifest missing %q", want)
		}
	}
}
