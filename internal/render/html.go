package render

import (
	"fmt"
	"html"

	"vocusconv/internal/models"
)

// pageStyle is the print stylesheet for the paginated artifact: A4 with 2cm
// margins, CJK-capable font stack, images kept whole across page breaks.
const pageStyle = `
        @page {
            size: A4;
            margin: 2cm;
        }
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", "Microsoft JhengHei", "Noto Sans CJK TC", sans-serif;
            line-height: 1.6;
            color: #333;
        }
        h1, h2, h3 {
            margin-top: 1.5em;
            margin-bottom: 0.5em;
        }
        h1 {
            font-size: 24pt;
            border-bottom: 2px solid #333;
            padding-bottom: 0.3em;
        }
        h2 {
            font-size: 20pt;
        }
        h3 {
            font-size: 16pt;
        }
        p {
            margin: 1em 0;
            text-align: justify;
        }
        img {
            max-width: 100%;
            height: auto;
            display: block;
            margin: 1em auto;
            page-break-inside: avoid;
        }
        .meta-info {
            color: #666;
            margin-bottom: 2em;
            padding-bottom: 1em;
            border-bottom: 1px solid #ccc;
        }
        ul, ol {
            margin: 1em 0;
            padding-left: 2em;
        }
        li {
            margin: 0.5em 0;
        }
        code {
            background-color: #f4f4f4;
            padding: 0.2em 0.4em;
            border-radius: 3px;
            font-family: monospace;
        }
        pre {
            background-color: #f4f4f4;
            padding: 1em;
            border-radius: 5px;
            overflow-x: auto;
        }
        blockquote {
            border-left: 4px solid #ddd;
            margin: 1em 0;
            padding-left: 1em;
            color: #666;
        }
`

// buildHTMLShell wraps the sanitized body markup in a complete printable
// document with a title heading and metadata block.
func buildHTMLShell(meta models.ArticleMetadata, bodyHTML string) string {
	title := html.EscapeString(meta.Title)
	author := html.EscapeString(meta.Author)

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>%s</title>
    <style>%s    </style>
</head>
<body>
    <h1>%s</h1>
    <div class="meta-info">
        <strong>Author:</strong> %s<br>
        <strong>Published:</strong> %s<br>
        <strong>Last modified:</strong> %s
    </div>
    %s
</body>
</html>
`, title, pageStyle, title, author, meta.PublishDisplay(), meta.ModifiedDisplay(), bodyHTML)
}
