// Package extractor turns fetched HTML into an article title and plain-text body.
package extractor

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// NoTitle is used when a page exposes no usable title.
const NoTitle = "(no title)"

// Mode selects how the body text is located.
type Mode string

const (
	// ModeParagraphs collects <p> elements from the article container.
	ModeParagraphs Mode = "paragraphs"
	// ModeReadability delegates body detection to readability scoring.
	ModeReadability Mode = "readability"
)

// nonContentTags never contribute to extracted text.
var nonContentTags = []string{"script", "style", "noscript", "header", "footer", "aside", "form", "svg"}

// Extractor parses HTML documents.
type Extractor struct {
	mode Mode
}

// New creates an Extractor. An unknown mode falls back to ModeParagraphs.
func New(mode Mode) *Extractor {
	if mode != ModeReadability {
		mode = ModeParagraphs
	}
	return &Extractor{mode: mode}
}

// Extract returns the title and cleaned body of rawHTML. pageURL is only
// used to resolve relative links in readability mode. An empty body is
// not an error.
func (e *Extractor) Extract(rawHTML []byte, pageURL string) (title, body string, err error) {
	doc, err := html.Parse(bytes.NewReader(rawHTML))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse html: %w", err)
	}

	removeElements(doc, nonContentTags)
	title = extractTitle(doc)

	if e.mode == ModeReadability {
		u, _ := url.Parse(pageURL)
		if u == nil {
			u = &url.URL{}
		}
		var cleaned bytes.Buffer
		if err := html.Render(&cleaned, doc); err != nil {
			return title, "", fmt.Errorf("failed to render cleaned html: %w", err)
		}
		article, err := readability.FromReader(&cleaned, u)
		if err != nil {
			return title, "", fmt.Errorf("readability failed: %w", err)
		}
		if title == NoTitle && strings.TrimSpace(article.Title) != "" {
			title = strings.TrimSpace(article.Title)
		}
		return title, strings.TrimSpace(article.TextContent), nil
	}

	return title, extractBody(doc), nil
}

// extractTitle resolves the title in priority order:
// og:title, twitter:title, <title>, first <h1>, then NoTitle.
func extractTitle(doc *html.Node) string {
	if v := metaContent(doc, "property", "og:title"); v != "" {
		return v
	}
	if v := metaContent(doc, "name", "twitter:title"); v != "" {
		return v
	}
	if n := findFirst(doc, func(n *html.Node) bool { return isElement(n, "title") }); n != nil {
		if v := nodeText(n); v != "" {
			return v
		}
	}
	if n := findFirst(doc, func(n *html.Node) bool { return isElement(n, "h1") }); n != nil {
		if v := nodeText(n); v != "" {
			return v
		}
	}
	return NoTitle
}

// extractBody collects paragraph text from the preferred container.
func extractBody(doc *html.Node) string {
	scope := findFirst(doc, func(n *html.Node) bool { return isElement(n, "article") })
	if scope == nil {
		scope = findFirst(doc, func(n *html.Node) bool {
			return isElement(n, "div") && hasClass(n, "article-content")
		})
	}
	if scope == nil {
		scope = doc
	}

	var paragraphs []string
	walk(scope, func(n *html.Node) {
		if isElement(n, "p") {
			if text := nodeText(n); text != "" {
				paragraphs = append(paragraphs, text)
			}
		}
	})
	return strings.TrimSpace(strings.Join(paragraphs, "\n"))
}

func metaContent(doc *html.Node, key, value string) string {
	n := findFirst(doc, func(n *html.Node) bool {
		return isElement(n, "meta") && attr(n, key) == value
	})
	if n == nil {
		return ""
	}
	return strings.TrimSpace(attr(n, "content"))
}

// nodeText joins the trimmed text nodes under n with single spaces.
func nodeText(n *html.Node) string {
	var parts []string
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			if s := strings.TrimSpace(c.Data); s != "" {
				parts = append(parts, strings.Join(strings.Fields(s), " "))
			}
		}
	})
	return strings.Join(parts, " ")
}

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// walk visits n and its descendants in document order.
func walk(n *html.Node, visit func(*html.Node)) {
	visit(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

// removeElements detaches every element with one of the given tag names.
func removeElements(n *html.Node, tags []string) {
	tagSet := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tagSet[tag] = true
	}

	var toRemove []*html.Node
	var collect func(*html.Node)
	collect = func(node *html.Node) {
		if node.Type == html.ElementNode && tagSet[node.Data] {
			toRemove = append(toRemove, node)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)

	for _, node := range toRemove {
		if node.Parent != nil {
			node.Parent.RemoveChild(node)
		}
	}
}
