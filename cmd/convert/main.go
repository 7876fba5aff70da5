// Package main provides the single-document converter command.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"vocusconv/internal/config"
	"vocusconv/internal/converter"
	"vocusconv/internal/logger"
)

func main() {
	configPath := flag.StringP("config", "c", "", "path to YAML configuration (defaults apply when omitted)")
	outputDir := flag.StringP("output-dir", "o", "", "override output directory")
	imagesDir := flag.StringP("images-dir", "i", "", "override images directory")
	noText := flag.Bool("no-md", false, "skip the markdown artifact")
	noPaginated := flag.Bool("no-pdf", false, "skip the PDF artifact")

	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: convert [flags] <article.html>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *outputDir != "" {
		cfg.Output.BaseDir = *outputDir
	}

	if *imagesDir != "" {
		cfg.Output.ImagesDir = *imagesDir
	}

	if *noText {
		cfg.Render.Text = false
	}

	if *noPaginated {
		cfg.Render.Paginated = false
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLoggerWithOptions(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conv := converter.New(cfg, log, &converter.LogSink{Log: log})

	report, err := conv.Convert(ctx, flag.Arg(0))
	if err != nil {
		log.Error(fmt.Sprintf("conversion failed: %v", err))
		os.Exit(1)
	}

	fmt.Println("\n------------------------------------------------")
	fmt.Println("Conversion Summary")
	fmt.Println("------------------------------------------------")
	fmt.Printf("Source: %s\n", report.Filename)
	fmt.Printf("Images: %d/%d downloaded\n", report.DownloadedImages, report.TotalImages)
	fmt.Printf("Markdown: %s\n", report.TextStatus)
	fmt.Printf("PDF: %s\n", report.PaginatedStatus)

	if len(report.Errors) > 0 {
		fmt.Printf("Errors encountered: %d\n", len(report.Errors))

		for _, e := range report.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	fmt.Println("------------------------------------------------")

	if report.Failed() {
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}

	return config.Load(path)
}
