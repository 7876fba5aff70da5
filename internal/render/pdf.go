package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Browser binaries probed on PATH when no explicit path is configured.
var browserCandidates = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"headless-shell",
	"chrome",
}

// pdfRenderTimeout bounds one print job, browser startup included.
const pdfRenderTimeout = 2 * time.Minute

// A4 paper in inches, 2cm margins.
const (
	paperWidthIn  = 8.27
	paperHeightIn = 11.69
	marginIn      = 0.79
)

// PDFRenderer produces the paginated artifact by printing the styled HTML
// shell through a headless browser.
type PDFRenderer struct {
	// BrowserPath overrides discovery. Empty means probe browserCandidates
	// on PATH.
	BrowserPath string

	probeOnce sync.Once
	browser   string
}

func (r *PDFRenderer) Name() string   { return "headless-chrome" }
func (r *PDFRenderer) Format() string { return "pdf" }

// Available reports whether a usable browser binary exists. The probe runs
// once; the registry caches the verdict for the process lifetime.
func (r *PDFRenderer) Available() bool {
	r.probeOnce.Do(func() {
		if r.BrowserPath != "" {
			if _, err := os.Stat(r.BrowserPath); err == nil {
				r.browser = r.BrowserPath
			}

			return
		}

		for _, name := range browserCandidates {
			if path, err := exec.LookPath(name); err == nil {
				r.browser = path
				return
			}
		}
	})

	return r.browser != ""
}

// Render writes "{BaseName}.pdf" into the output directory. The body is
// cloned before image paths are made absolute, so the caller's tree is
// untouched.
func (r *PDFRenderer) Render(ctx context.Context, in *Input) (string, error) {
	if !r.Available() {
		return "", fmt.Errorf("%w: pdf", ErrNoBackend)
	}

	if err := os.MkdirAll(in.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	bodyHTML, err := r.bodyWithAbsoluteImages(in)
	if err != nil {
		return "", err
	}

	shell := buildHTMLShell(in.Meta, bodyHTML)

	tmp, err := os.CreateTemp("", "article-*.html")
	if err != nil {
		return "", fmt.Errorf("failed to create temp page: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(shell); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write temp page: %w", err)
	}

	tmp.Close()

	pdf, err := r.print(ctx, "file://"+tmp.Name())
	if err != nil {
		return "", fmt.Errorf("failed to print page: %w", err)
	}

	path := filepath.Join(in.OutputDir, in.BaseName+".pdf")
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return "", fmt.Errorf("failed to write pdf: %w", err)
	}

	return path, nil
}

// bodyWithAbsoluteImages rewrites the document-relative image paths to
// file:// URLs the browser can load, on a clone of the body.
func (r *PDFRenderer) bodyWithAbsoluteImages(in *Input) (string, error) {
	clone := in.Body.Clone()
	base := filepath.Dir(in.ImagesRoot)

	clone.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok || !strings.HasPrefix(src, "../../") {
			return
		}

		abs := filepath.Join(base, strings.TrimPrefix(src, "../../"))
		s.SetAttr("src", "file://"+abs)
	})

	bodyHTML, err := goquery.OuterHtml(clone)
	if err != nil {
		return "", fmt.Errorf("failed to serialize body: %w", err)
	}

	return bodyHTML, nil
}

func (r *PDFRenderer) print(ctx context.Context, pageURL string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.ExecPath(r.browser),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, pdfRenderTimeout)
	defer cancelTimeout()

	var pdf []byte

	err := chromedp.Run(taskCtx,
		chromedp.Navigate(pageURL),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(paperWidthIn).
				WithPaperHeight(paperHeightIn).
				WithMarginTop(marginIn).
				WithMarginBottom(marginIn).
				WithMarginLeft(marginIn).
				WithMarginRight(marginIn).
				Do(ctx)
			if err != nil {
				return err
			}

			pdf = buf

			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	return pdf, nil
}
