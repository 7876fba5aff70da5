// Package main provides the batch converter command. It expands glob
// patterns, skips already-converted documents and writes a run report.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	flag "github.com/spf13/pflag"

	"vocusconv/internal/config"
	"vocusconv/internal/converter"
	"vocusconv/internal/logger"
	"vocusconv/internal/state"
)

func main() {
	configPath := flag.StringP("config", "c", "", "path to YAML configuration (defaults apply when omitted)")
	outputDir := flag.StringP("output-dir", "o", "", "override output directory")
	skipExisting := flag.BoolP("skip-existing", "s", false, "convert only documents with no existing outputs")
	force := flag.BoolP("force", "f", false, "reconvert everything, including fresh outputs")

	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: batch [flags] <pattern>...")
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

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	files, err := expandPatterns(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no files match the given patterns")
		os.Exit(1)
	}

	log := logger.NewLoggerWithOptions(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conv := converter.New(cfg, log, &converter.LogSink{Log: log})
	checker := state.NewChecker(cfg.TextDir(), cfg.PaginatedDir())

	batch := converter.NewBatch(conv, checker, log, cfg.ReportDir())
	batch.SkipExisting = *skipExisting
	batch.Force = *force

	report, runErr := batch.Run(ctx, files)

	fmt.Println("\n------------------------------------------------")
	fmt.Println("Batch Summary")
	fmt.Println("------------------------------------------------")
	fmt.Printf("Matched files: %d\n", len(files))
	fmt.Printf("Processed: %d\n", report.TotalFiles)
	fmt.Printf("Successful: %d\n", report.Successful)
	fmt.Printf("Failed: %d\n", report.Failed)
	fmt.Println("------------------------------------------------")

	if runErr != nil {
		log.Error(fmt.Sprintf("batch aborted: %v", runErr))
		os.Exit(1)
	}

	if report.Failed > 0 {
		os.Exit(1)
	}
}

// expandPatterns globs each argument and returns the union, sorted and
// deduplicated. An argument that matches nothing is silently dropped so a
// shell-quoted pattern and a pre-expanded one behave the same.
func expandPatterns(patterns []string) ([]string, error) {
	set := make(map[string]struct{})

	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}

		for _, m := range matches {
			set[m] = struct{}{}
		}
	}

	files := make([]string, 0, len(set))
	for f := range set {
		files = append(files, f)
	}

	sort.Strings(files)

	return files, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}

	return config.Load(path)
}
