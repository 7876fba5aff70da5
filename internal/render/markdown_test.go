package render

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"vocusconv/internal/models"
)

func parseBody(t *testing.T, markup string) *goquery.Selection {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body><main>" + markup + "</main></body></html>"))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}

	return doc.Find("main")
}

func renderToString(t *testing.T, markup string) string {
	t.Helper()

	meta := models.ArticleMetadata{
		Title:       "Sample Article",
		Author:      "Writer",
		PublishedAt: time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC),
		ModifiedAt:  time.Date(2024, 3, 16, 9, 0, 0, 0, time.UTC),
	}

	outDir := t.TempDir()

	r := &MarkdownRenderer{}

	path, err := r.Render(context.Background(), &Input{
		Meta:      meta,
		Body:      parseBody(t, markup),
		BaseName:  "20240315_Sample Article",
		OutputDir: outDir,
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if filepath.Base(path) != "20240315_Sample Article.md" {
		t.Errorf("output file = %s", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	return string(data)
}

func TestRender_MetadataHeader(t *testing.T) {
	got := renderToString(t, `<p>body</p>`)

	for _, want := range []string{
		"# Sample Article\n",
		"**Author**: Writer  \n",
		"**Published**: 2024-03-15 14:30  \n",
		"**Last modified**: 2024-03-16 09:00\n",
		"---\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\ngot:\n%s", want, got)
		}
	}
}

func TestRender_Blocks(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   string
	}{
		{"heading", `<h2>Section</h2>`, "## Section\n"},
		{"paragraph", `<p>Some <strong>bold</strong> text.</p>`, "Some **bold** text.\n"},
		{"emphasis", `<p><em>subtle</em></p>`, "*subtle*\n"},
		{"link", `<p><a href="https://example.com">site</a></p>`, "[site](https://example.com)\n"},
		{"bare link", `<p><a href="https://example.com"></a></p>`, "[https://example.com](https://example.com)\n"},
		{"inline code", `<p>run <code>go doc</code> now</p>`, "run `go doc` now\n"},
		{"image", `<img src="../../images/a/image_1.png" alt="chart">`, "![chart](../../images/a/image_1.png)\n"},
		{"figure caption", `<figure><img src="x.png" alt=""><figcaption>caption</figcaption></figure>`, "*caption*\n"},
		{"rule", `<hr>`, "---\n\n---\n"},
		{"blockquote", `<blockquote><p>quoted</p></blockquote>`, "> quoted\n"},
		{"pre block", "<pre>x := 1\ny := 2</pre>", "```\nx := 1\ny := 2\n```\n"},
		{"container unwrap", `<div><section><p>nested</p></section></div>`, "nested\n"},
		{"script dropped", `<script>alert(1)</script><p>kept</p>`, "kept\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderToString(t, tt.markup)
			if !strings.Contains(got, tt.want) {
				t.Errorf("output missing %q\ngot:\n%s", tt.want, got)
			}
		})
	}
}

func TestRender_Lists(t *testing.T) {
	markup := `
<ul>
  <li>first</li>
  <li>second
    <ol>
      <li>inner one</li>
      <li>inner two</li>
    </ol>
  </li>
</ul>`

	got := renderToString(t, markup)

	for _, want := range []string{
		"- first\n",
		"- second\n",
		"  1. inner one\n",
		"  2. inner two\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\ngot:\n%s", want, got)
		}
	}
}

func TestRender_Table(t *testing.T) {
	markup := `
<table>
  <tr><th>Name</th><th>Value</th></tr>
  <tr><td>alpha</td><td>1</td></tr>
</table>`

	got := renderToString(t, markup)

	for _, want := range []string{
		"| Name  | Value |",
		"| ----- | ----- |",
		"| alpha | 1     |",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\ngot:\n%s", want, got)
		}
	}
}

func TestRender_CollapsesBlankRuns(t *testing.T) {
	got := renderToString(t, `<p>a</p><div></div><div></div><p>b</p>`)

	if strings.Contains(got, "\n\n\n") {
		t.Errorf("output contains a run of blank lines:\n%s", got)
	}

	if !strings.HasSuffix(got, "\n") {
		t.Error("output does not end with a newline")
	}
}

func TestCollapseBlankLines(t *testing.T) {
	got := collapseBlankLines("a\n\n\n\n\nb\n\n")
	if got != "a\n\nb\n" {
		t.Errorf("collapseBlankLines = %q", got)
	}
}

func TestRegistry_PicksAvailableBackend(t *testing.T) {
	reg := NewRegistry(&MarkdownRenderer{})

	backend, err := reg.For("md")
	if err != nil {
		t.Fatalf("For(md) failed: %v", err)
	}

	if backend.Name() != "markdown" {
		t.Errorf("backend = %s, want markdown", backend.Name())
	}
}

func TestRegistry_NoBackend(t *testing.T) {
	reg := NewRegistry(&MarkdownRenderer{})

	if _, err := reg.For("pdf"); err == nil {
		t.Fatal("Expected error for unavailable format, got nil")
	}
}
