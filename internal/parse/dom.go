package parse

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// parseDoc parses an HTML body into a DOM tree.
//
// Design decision: We use golang.org/x/net/html rather than regex because
// it correctly handles the malformed HTML real marketplaces serve and
// gives us a proper tree to walk.
func parseDoc(body []byte) (*html.Node, error) {
	return html.Parse(bytes.NewReader(body))
}

// getAttr returns the value of the named attribute, or "".
func getAttr(n *html.Node, name string) string {
	for _, attr := range n.Attr {
		if attr.Key == name {
			return attr.Val
		}
	}
	return ""
}

// hasClass reports whether the node's class attribute contains the given
// class token.
func hasClass(n *html.Node, class string) bool {
	for _, token := range strings.Fields(getAttr(n, "class")) {
		if token == class {
			return true
		}
	}
	return false
}

// findFirst returns the first element node in document order for which
// pred returns true, or nil.
func findFirst(n *html.Node, pred func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && pred(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, pred); found != nil {
			return found
		}
	}
	return nil
}

// findAll returns all element nodes in document order for which pred
// returns true.
func findAll(n *html.Node, pred func(*html.Node) bool) []*html.Node {
	var nodes []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && pred(n) {
			nodes = append(nodes, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return nodes
}

// byID matches an element node by its id attribute.
func byID(id string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return getAttr(n, "id") == id
	}
}

// innerText returns the concatenated text content of a subtree, trimmed.
func innerText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
