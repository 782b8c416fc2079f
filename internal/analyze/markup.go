package analyze

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// HostElements counts the elements that carry a data URI in any attribute,
// keyed by tag name (img, source, div, ...).
func HostElements(text string) map[string]int {
	out := map[string]int{}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return out
	}
	doc.Find("*").Each(func(_ int, sel *goquery.Selection) {
		for _, n := range sel.Nodes {
			for _, attr := range n.Attr {
				if carriesDataURI(attr.Val) {
					out[n.Data]++
					break
				}
			}
		}
	})
	return out
}

func carriesDataURI(v string) bool {
	v = strings.ToLower(v)
	return strings.HasPrefix(strings.TrimSpace(v), "data:") ||
		strings.Contains(v, "url(data:") ||
		strings.Contains(v, "url('data:") ||
		strings.Contains(v, `url("data:`) ||
		strings.Contains(v, ", data:")
}

// Blocks counts block-editor block openers (<!-- wp:name ... -->) by name.
// Closing comments and self-closing markers are counted once per block.
func Blocks(text string) map[string]int {
	out := map[string]int{}
	z := html.NewTokenizer(strings.NewReader(text))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return out
		}
		if tt != html.CommentToken {
			continue
		}
		c := strings.TrimSpace(string(z.Text()))
		if !strings.HasPrefix(c, "wp:") {
			continue
		}
		name := c[len("wp:"):]
		if i := strings.IndexAny(name, " \t\r\n/"); i >= 0 {
			name = name[:i]
		}
		if name != "" {
			out[name]++
		}
	}
}
