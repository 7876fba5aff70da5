// Package main provides a standalone image fetcher: it pulls every origin
// image URL out of a saved article and downloads them with the full retry
// chain, without producing any converted artifacts.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
	flag "github.com/spf13/pflag"

	"vocusconv/internal/config"
	"vocusconv/internal/downloader"
	"vocusconv/internal/extractor"
	"vocusconv/internal/logger"
	"vocusconv/internal/resolver"
)

func main() {
	configPath := flag.StringP("config", "c", "", "path to YAML configuration (defaults apply when omitted)")
	imagesDir := flag.StringP("images-dir", "i", "", "override images directory")
	listOnly := flag.BoolP("list", "l", false, "print the extracted URLs without downloading")

	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: imagefetch [flags] <article.html>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *imagesDir != "" {
		cfg.Output.ImagesDir = *imagesDir
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLoggerWithOptions(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, flag.Arg(0), *listOnly); err != nil {
		log.Error(fmt.Sprintf("image fetch failed: %v", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger, sourcePath string, listOnly bool) error {
	raw, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to read source document: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(sourcePath), err)
	}

	res := resolver.New(cfg.Site.OriginHost, cfg.Site.ProxyHost, cfg.Output.ImagesDir)

	urls := res.ExtractOriginURLs(doc)
	if len(urls) == 0 {
		return fmt.Errorf("no origin image URLs found in %s", filepath.Base(sourcePath))
	}

	log.Info("extracted image URLs", "count", len(urls))

	if listOnly {
		for _, u := range urls {
			fmt.Println(u)
		}

		return nil
	}

	meta, err := extractor.ParseMetadataOnly(bytes.NewReader(raw), time.Now())
	if err != nil {
		return err
	}

	destDir := filepath.Join(cfg.Output.ImagesDir, fmt.Sprintf("article_%s", meta.PublishSlug()))

	dl := downloader.New(cfg, log)

	var failed int

	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			return err
		}

		dest := filepath.Join(destDir, fmt.Sprintf("image_%d%s", i+1, resolver.ExtensionFor(u)))

		log.Info("fetching image", "index", i+1, "total", len(urls), "url", u)

		if err := dl.Fetch(ctx, u, dest); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			log.Error(fmt.Sprintf("failed to fetch %s: %v", u, err))
			failed++
		}
	}

	fmt.Printf("Downloaded %d/%d images to %s\n", len(urls)-failed, len(urls), destDir)

	if failed > 0 {
		return fmt.Errorf("%d of %d images could not be downloaded", failed, len(urls))
	}

	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}

	return config.Load(path)
}
