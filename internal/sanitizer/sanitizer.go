// Package sanitizer removes platform UI-only markup from the article body
// while guaranteeing that every resolved image survives.
package sanitizer

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Advertisement phrasings removed when they make up (nearly) the whole text
// of a short node. Longer paragraphs that merely mention a phrase are kept.
var adPhrases = []string{
	"為什麼會看到廣告",
	"廣告",
	"advertisement",
	"ads",
}

// adTextMaxRunes bounds how long a text node may be and still count as pure
// advertisement text.
const adTextMaxRunes = 20

// Class-name patterns of zoom/ad UI chrome removed in the final element pass.
var uiClassPatterns = []*regexp.Regexp{
	regexp.MustCompile(`zoom.*control`),
	regexp.MustCompile(`zoom`),
	regexp.MustCompile(`(?:^|[\s_-])ads?(?:$|[\s_-])`),
	regexp.MustCompile(`advertisement`),
}

// Marker attributes of zoom UI chrome removed in the final element pass.
var uiMarkerAttrs = []string{"data-rmiz-btn-zoom", "data-rmiz-btn-zoom-icon"}

// Sanitizer performs the ordered in-place cleanup of the content tree.
// Clean is idempotent and never fails: a pass that matches nothing leaves
// the tree untouched.
type Sanitizer struct {
	// LocalPrefix marks image nodes already rewritten to local paths by
	// the resolver; those images are never dropped, only relocated.
	LocalPrefix string
	// Corrections is the allow-listed text-signature rule table. Nil
	// disables the pass entirely.
	Corrections []TextCorrection
}

// New creates a sanitizer with the default correction rule table.
func New() *Sanitizer {
	return &Sanitizer{
		LocalPrefix: "../../",
		Corrections: DefaultCorrections,
	}
}

// Clean runs the cleanup passes in a fixed order chosen so that later passes
// never orphan an image a preserved node depends on.
func (z *Sanitizer) Clean(body *goquery.Selection) {
	preserved := z.collectPreserved(body)
	root := rootNode(body)

	z.removeImagelessZoomControls(body)
	z.removeExpandButtons(body)
	z.unwrapZoomMarkers(body, preserved)
	z.removeVectorIcons(body)
	z.removeGhosts(body)
	z.removeAdText(body, root)
	z.removeUIChrome(body, preserved)
	applyCorrections(body, z.Corrections)
	z.pruneEmptyContainers(body)
}

// collectPreserved returns the set of image nodes whose src the resolver has
// already rewritten to a local path. These must remain reachable from the
// root no matter how many of their ancestors are removed.
func (z *Sanitizer) collectPreserved(body *goquery.Selection) map[*html.Node]bool {
	preserved := make(map[*html.Node]bool)

	body.Find("img").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok && strings.HasPrefix(src, z.LocalPrefix) {
			for _, n := range s.Nodes {
				preserved[n] = true
			}
		}
	})

	return preserved
}

// removeImagelessZoomControls drops zoom-control containers that hold no
// image. Containers with an image are handled by later, image-aware passes.
func (z *Sanitizer) removeImagelessZoomControls(body *goquery.Selection) {
	body.Find(`div[class*="zoom-control"]`).Each(func(_ int, s *goquery.Selection) {
		if s.Find("img").Length() == 0 {
			s.Remove()
		}
	})
}

// removeExpandButtons drops the platform's "expand image" controls.
func (z *Sanitizer) removeExpandButtons(body *goquery.Selection) {
	body.Find(`button[aria-label*="Expand image"]`).Remove()
}

// unwrapZoomMarkers handles the zoom-wrapper marker attribute: on an image
// the marker is stripped and the image kept; on a non-image wrapper any
// preserved image is relocated to a sibling position before the wrapper is
// removed.
func (z *Sanitizer) unwrapZoomMarkers(body *goquery.Selection, preserved map[*html.Node]bool) {
	body.Find("[data-rmiz]").Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "img" {
			s.RemoveAttr("data-rmiz")
			return
		}

		removeWithRescue(s, preserved)
	})
}

// removeVectorIcons drops all inline vector graphics; on this platform they
// are exclusively UI control glyphs.
func (z *Sanitizer) removeVectorIcons(body *goquery.Selection) {
	body.Find("svg").Remove()
}

// removeGhosts drops the placeholder nodes the zoom layout leaves behind.
func (z *Sanitizer) removeGhosts(body *goquery.Selection) {
	body.Find("[data-rmiz-ghost]").Remove()
}

// removeAdText drops short text nodes that are (nearly) pure advertisement
// phrasing, together with their enclosing element.
func (z *Sanitizer) removeAdText(body *goquery.Selection, root *html.Node) {
	for _, t := range textNodes(body) {
		text := strings.TrimSpace(t.Data)
		if text == "" {
			continue
		}

		for _, phrase := range adPhrases {
			if !strings.Contains(text, phrase) {
				continue
			}

			if text == phrase || utf8.RuneCountInString(text) < adTextMaxRunes {
				if parent := t.Parent; parent != nil && parent != root {
					detach(parent)
				}
			}

			break
		}
	}
}

// removeUIChrome drops the remaining zoom/ad UI elements matched by class
// pattern or marker attribute, relocating preserved images first.
func (z *Sanitizer) removeUIChrome(body *goquery.Selection, preserved map[*html.Node]bool) {
	var doomed []*goquery.Selection

	body.Find("[class]").Each(func(_ int, s *goquery.Selection) {
		class, _ := s.Attr("class")
		for _, pat := range uiClassPatterns {
			if pat.MatchString(class) {
				doomed = append(doomed, s)
				return
			}
		}
	})

	for _, attr := range uiMarkerAttrs {
		body.Find("[" + attr + "]").Each(func(_ int, s *goquery.Selection) {
			doomed = append(doomed, s)
		})
	}

	for _, s := range doomed {
		// Preserved images are never removed by this pass, whatever their
		// class says.
		if goquery.NodeName(s) == "img" && len(s.Nodes) == 1 && preserved[s.Nodes[0]] {
			continue
		}

		removeWithRescue(s, preserved)
	}
}

// pruneEmptyContainers removes containers with no text and no image, video
// or audio descendant. Runs last, after every content-bearing node has been
// protected or relocated.
func (z *Sanitizer) pruneEmptyContainers(body *goquery.Selection) {
	body.Find("div").Each(func(_ int, s *goquery.Selection) {
		if strings.TrimSpace(s.Text()) != "" {
			return
		}

		if s.Find("img, video, audio").Length() > 0 {
			return
		}

		if s.Find("[src]").Length() > 0 {
			return
		}

		s.Remove()
	})
}

// removeWithRescue relocates every preserved image inside the selection to a
// sibling position immediately before its wrapper, then removes the wrapper.
func removeWithRescue(s *goquery.Selection, preserved map[*html.Node]bool) {
	for _, wrapper := range s.Nodes {
		if wrapper.Parent == nil {
			continue // already detached by an earlier removal
		}

		for _, img := range descendantImages(wrapper) {
			if !preserved[img] {
				continue
			}

			detach(img)
			wrapper.Parent.InsertBefore(img, wrapper)
		}
	}

	s.Remove()
}

// descendantImages collects img element nodes in the subtree under n.
func descendantImages(n *html.Node) []*html.Node {
	var imgs []*html.Node

	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "img" {
				imgs = append(imgs, c)
			}

			walk(c)
		}
	}
	walk(n)

	return imgs
}

// textNodes snapshots every text node under the selection so passes can
// mutate the tree while iterating.
func textNodes(body *goquery.Selection) []*html.Node {
	var texts []*html.Node

	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				texts = append(texts, c)
			}

			walk(c)
		}
	}

	for _, n := range body.Nodes {
		walk(n)
	}

	return texts
}

func rootNode(body *goquery.Selection) *html.Node {
	if len(body.Nodes) > 0 {
		return body.Nodes[0]
	}

	return nil
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}
