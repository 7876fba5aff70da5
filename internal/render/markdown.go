package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// MarkdownRenderer converts the sanitized content tree into a markdown
// document with a metadata header block. It has no host dependencies and is
// always available.
type MarkdownRenderer struct{}

func (r *MarkdownRenderer) Name() string    { return "markdown" }
func (r *MarkdownRenderer) Format() string  { return "md" }
func (r *MarkdownRenderer) Available() bool { return true }

// Render writes "{BaseName}.md" into the output directory.
func (r *MarkdownRenderer) Render(_ context.Context, in *Input) (string, error) {
	if err := os.MkdirAll(in.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", in.Meta.Title)
	fmt.Fprintf(&b, "**Author**: %s  \n", in.Meta.Author)
	fmt.Fprintf(&b, "**Published**: %s  \n", in.Meta.PublishDisplay())
	fmt.Fprintf(&b, "**Last modified**: %s\n\n", in.Meta.ModifiedDisplay())
	b.WriteString("---\n\n")

	for _, n := range in.Body.Nodes {
		writeBlockChildren(&b, n, 0)
	}

	content := collapseBlankLines(b.String())

	path := filepath.Join(in.OutputDir, in.BaseName+".md")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write markdown: %w", err)
	}

	return path, nil
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

func collapseBlankLines(s string) string {
	return strings.TrimSpace(blankRuns.ReplaceAllString(s, "\n\n")) + "\n"
}

// writeBlockChildren renders each child of n as a block element.
func writeBlockChildren(b *strings.Builder, n *html.Node, depth int) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeBlock(b, c, depth)
	}
}

func writeBlock(b *strings.Builder, n *html.Node, depth int) {
	switch n.Type {
	case html.TextNode:
		if text := strings.TrimSpace(n.Data); text != "" {
			b.WriteString(text + "\n\n")
		}

		return
	case html.ElementNode:
		// handled below
	default:
		return
	}

	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level := int(n.Data[1] - '0')
		b.WriteString(strings.Repeat("#", level) + " " + inlineText(n) + "\n\n")
	case "p":
		if text := strings.TrimSpace(inlineText(n)); text != "" {
			b.WriteString(text + "\n\n")
		}
	case "img":
		b.WriteString(imageMarkdown(n) + "\n\n")
	case "ul":
		writeList(b, n, depth, false)
		b.WriteString("\n")
	case "ol":
		writeList(b, n, depth, true)
		b.WriteString("\n")
	case "blockquote":
		var inner strings.Builder
		writeBlockChildren(&inner, n, depth)

		for _, line := range strings.Split(strings.TrimSpace(inner.String()), "\n") {
			b.WriteString("> " + line + "\n")
		}

		b.WriteString("\n")
	case "pre":
		b.WriteString("```\n" + strings.TrimRight(rawText(n), "\n") + "\n```\n\n")
	case "hr":
		b.WriteString("---\n\n")
	case "table":
		for _, line := range formatTable(tableRows(n)) {
			b.WriteString(line + "\n")
		}

		b.WriteString("\n")
	case "figcaption":
		if text := strings.TrimSpace(inlineText(n)); text != "" {
			b.WriteString("*" + text + "*\n\n")
		}
	case "br":
		b.WriteString("\n")
	case "script", "style", "noscript", "iframe", "button":
		// never content
	case "div", "section", "article", "figure", "main", "aside", "header", "footer":
		writeBlockChildren(b, n, depth)
	default:
		// Unknown elements degrade to their inline text.
		if text := strings.TrimSpace(inlineText(n)); text != "" {
			b.WriteString(text + "\n\n")
		}
	}
}

func writeList(b *strings.Builder, n *html.Node, depth int, ordered bool) {
	indent := strings.Repeat("  ", depth)
	index := 0

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "li" {
			continue
		}

		index++

		marker := "- "
		if ordered {
			marker = fmt.Sprintf("%d. ", index)
		}

		b.WriteString(indent + marker + strings.TrimSpace(inlineTextShallow(c)) + "\n")

		// Nested lists render beneath their parent item.
		for g := c.FirstChild; g != nil; g = g.NextSibling {
			if g.Type == html.ElementNode && (g.Data == "ul" || g.Data == "ol") {
				writeList(b, g, depth+1, g.Data == "ol")
			}
		}
	}
}

// inlineText renders the node's content as markdown inline text, including
// nested lists' items flattened into the flow.
func inlineText(n *html.Node) string {
	var b strings.Builder
	writeInlineChildren(&b, n)

	return strings.Join(strings.Fields(b.String()), " ")
}

// inlineTextShallow is inlineText minus nested lists, for list items that
// carry their own sublists.
func inlineTextShallow(n *html.Node) string {
	var b strings.Builder

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol") {
			continue
		}

		writeInline(&b, c)
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

func writeInlineChildren(b *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeInline(b, c)
	}
}

func writeInline(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		// handled below
	default:
		return
	}

	switch n.Data {
	case "a":
		href := attrVal(n, "href")
		text := strings.TrimSpace(collectInline(n))

		if text == "" {
			text = href
		}

		if href == "" {
			b.WriteString(text)
		} else {
			fmt.Fprintf(b, "[%s](%s)", text, href)
		}
	case "strong", "b":
		b.WriteString("**" + strings.TrimSpace(collectInline(n)) + "**")
	case "em", "i":
		b.WriteString("*" + strings.TrimSpace(collectInline(n)) + "*")
	case "code":
		b.WriteString("`" + rawText(n) + "`")
	case "img":
		b.WriteString(imageMarkdown(n))
	case "br":
		b.WriteString(" ")
	case "script", "style", "noscript":
		// skip
	default:
		writeInlineChildren(b, n)
	}
}

func collectInline(n *html.Node) string {
	var b strings.Builder
	writeInlineChildren(&b, n)

	return b.String()
}

func imageMarkdown(n *html.Node) string {
	return fmt.Sprintf("![%s](%s)", attrVal(n, "alt"), attrVal(n, "src"))
}

// rawText concatenates all text under n with no markdown interpretation.
func rawText(n *html.Node) string {
	var b strings.Builder

	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
			}

			walk(c)
		}
	}
	walk(n)

	return b.String()
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}

	return ""
}

// tableRows extracts cell text from a table element, header row first.
func tableRows(table *html.Node) [][]string {
	var rows [][]string

	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "tr" {
				var cells []string

				for td := c.FirstChild; td != nil; td = td.NextSibling {
					if td.Type == html.ElementNode && (td.Data == "td" || td.Data == "th") {
						cells = append(cells, strings.TrimSpace(inlineText(td)))
					}
				}

				if len(cells) > 0 {
					rows = append(rows, cells)
				}

				continue
			}

			walk(c)
		}
	}
	walk(table)

	return rows
}
