// Package main provides a post-conversion checker: it scans converted
// markdown files and reports image references whose local files are missing.
package main

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	flag "github.com/spf13/pflag"

	"vocusconv/internal/config"
)

// imageRefPattern matches markdown image syntax and captures the target.
var imageRefPattern = regexp.MustCompile(`!\[[^\]]*\]\(([^)]+)\)`)

func main() {
	configPath := flag.StringP("config", "c", "", "path to YAML configuration (defaults apply when omitted)")
	textDir := flag.StringP("md-dir", "d", "", "directory of markdown files to verify (defaults to the configured output)")

	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	dir := cfg.TextDir()
	if *textDir != "" {
		dir = *textDir
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "no markdown files found in %s\n", dir)
		os.Exit(1)
	}

	sort.Strings(files)

	var totalRefs, totalMissing int

	for _, mdPath := range files {
		refs, missing, err := verifyFile(mdPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

		totalRefs += refs
		totalMissing += len(missing)

		if len(missing) == 0 {
			fmt.Printf("OK   %s (%d images)\n", filepath.Base(mdPath), refs)
			continue
		}

		fmt.Printf("FAIL %s (%d/%d images missing)\n", filepath.Base(mdPath), len(missing), refs)

		for _, m := range missing {
			fmt.Printf("     missing: %s\n", m)
		}
	}

	fmt.Printf("\nChecked %d files, %d image references, %d missing\n", len(files), totalRefs, totalMissing)

	if totalMissing > 0 {
		os.Exit(1)
	}
}

// verifyFile returns the number of local image references in a markdown file
// and the subset whose targets do not exist on disk. Remote references are
// counted but never flagged.
func verifyFile(mdPath string) (refs int, missing []string, err error) {
	data, err := os.ReadFile(mdPath)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read %s: %w", mdPath, err)
	}

	baseDir := filepath.Dir(mdPath)

	for _, match := range imageRefPattern.FindAllStringSubmatch(string(data), -1) {
		target := strings.TrimSpace(match[1])
		refs++

		if isRemote(target) {
			continue
		}

		resolved := target
		if !filepath.IsAbs(resolved) {
			resolved = filepath.Join(baseDir, filepath.FromSlash(target))
		}

		if _, statErr := os.Stat(resolved); statErr != nil {
			missing = append(missing, target)
		}
	}

	return refs, missing, nil
}

func isRemote(target string) bool {
	u, err := url.Parse(target)

	return err == nil && u.Scheme != ""
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}

	return config.Load(path)
}
