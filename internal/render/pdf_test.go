package render

import (
	"strings"
	"testing"
	"time"

	"vocusconv/internal/models"
)

func TestPDFRenderer_AvailableWithMissingOverride(t *testing.T) {
	r := &PDFRenderer{BrowserPath: "/nonexistent/browser"}

	if r.Available() {
		t.Error("Available() = true for nonexistent browser path")
	}
}

func TestBodyWithAbsoluteImages(t *testing.T) {
	body := parseBody(t, `
<img src="../../images/article_x/image_1.png" alt="chart">
<img src="https://example.com/remote.png" alt="remote">`)

	r := &PDFRenderer{}

	html, err := r.bodyWithAbsoluteImages(&Input{
		Body:       body,
		ImagesRoot: "/data/images",
	})
	if err != nil {
		t.Fatalf("bodyWithAbsoluteImages failed: %v", err)
	}

	if !strings.Contains(html, `src="file:///data/images/article_x/image_1.png"`) {
		t.Errorf("local image not rewritten to file URL:\n%s", html)
	}

	if !strings.Contains(html, `src="https://example.com/remote.png"`) {
		t.Errorf("remote image should be untouched:\n%s", html)
	}

	// The caller's tree keeps its relative paths.
	if src, _ := body.Find("img").First().Attr("src"); src != "../../images/article_x/image_1.png" {
		t.Errorf("original tree mutated: src = %q", src)
	}
}

func TestBuildHTMLShell(t *testing.T) {
	meta := models.ArticleMetadata{
		Title:       `Title <with> "markup"`,
		Author:      "Writer & Co",
		PublishedAt: time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC),
		ModifiedAt:  time.Date(2024, 3, 16, 9, 0, 0, 0, time.UTC),
	}

	shell := buildHTMLShell(meta, "<p>body</p>")

	for _, want := range []string{
		"Title &lt;with&gt; &#34;markup&#34;",
		"Writer &amp; Co",
		"2024-03-15 14:30",
		"<p>body</p>",
		"@page",
		`<meta charset="utf-8">`,
	} {
		if !strings.Contains(shell, want) {
			t.Errorf("shell missing %q", want)
		}
	}

	if strings.Contains(shell, `<title>Title <with>`) {
		t.Error("title not escaped")
	}
}

func TestFormatTable_CJKWidths(t *testing.T) {
	rows := [][]string{
		{"項目", "數值"},
		{"資本支出", "100"},
	}

	lines := formatTable(rows)
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}

	// CJK cells are double width: 資本支出 is 8 columns, so the narrower
	// header pads out to match.
	if lines[0] != "| 項目     | 數值 |" {
		t.Errorf("header = %q", lines[0])
	}

	if lines[1] != "| -------- | ---- |" {
		t.Errorf("separator = %q", lines[1])
	}

	if lines[2] != "| 資本支出 | 100  |" {
		t.Errorf("row = %q", lines[2])
	}
}

func TestFormatTable_Empty(t *testing.T) {
	if got := formatTable(nil); got != nil {
		t.Errorf("formatTable(nil) = %v, want nil", got)
	}
}

func TestFormatTable_RaggedRows(t *testing.T) {
	rows := [][]string{
		{"a", "b", "c"},
		{"only"},
	}

	lines := formatTable(rows)
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}

	// Every line carries the full column count.
	for i, line := range lines {
		if got := strings.Count(line, "|"); got != 4 {
			t.Errorf("line %d has %d pipes, want 4: %q", i, got, line)
		}
	}
}
