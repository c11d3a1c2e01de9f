package adapters

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// parseHTML parses a listing page; the parser never fails on broken
// markup, it builds what it can.
func parseHTML(body []byte) (*html.Node, error) {
	return html.Parse(bytes.NewReader(body))
}

// findAll walks the tree and collects nodes matching pred.
func findAll(n *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && pred(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// attrVal returns the value of an attribute, "" when absent.
func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// hasAttr reports whether the attribute is present at all.
func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

// hasClass reports whether the node's class list contains name.
func hasClass(n *html.Node, name string) bool {
	for _, c := range strings.Fields(attrVal(n, "class")) {
		if c == name {
			return true
		}
	}
	return false
}

// nodeText returns the concatenated text content of a node.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// anchorHrefs collects the href of every anchor on the page.
func anchorHrefs(body []byte) ([]string, error) {
	root, err := parseHTML(body)
	if err != nil {
		return nil, err
	}
	var hrefs []string
	for _, a := range findAll(root, func(n *html.Node) bool {
		return n.Data == "a" && hasAttr(n, "href")
	}) {
		hrefs = append(hrefs, attrVal(a, "href"))
	}
	return hrefs, nil
}

// downloadHrefs collects hrefs of anchors carrying a download
// attribute.
func downloadHrefs(body []byte) ([]string, error) {
	root, err := parseHTML(body)
	if err != nil {
		return nil, err
	}
	var hrefs []string
	for _, a := range findAll(root, func(n *html.Node) bool {
		return n.Data == "a" && hasAttr(n, "href") && hasAttr(n, "download")
	}) {
		hrefs = append(hrefs, attrVal(a, "href"))
	}
	return hrefs, nil
}

// optionValues collects option values, optionally restricted to a
// select element matched by pred.
func optionValues(body []byte, selPred func(*html.Node) bool) ([]string, error) {
	root, err := parseHTML(body)
	if err != nil {
		return nil, err
	}
	scope := root
	if selPred != nil {
		sels := findAll(root, func(n *html.Node) bool {
			return n.Data == "select" && selPred(n)
		})
		if len(sels) == 0 {
			return nil, nil
		}
		scope = sels[0]
	}
	var values []string
	for _, opt := range findAll(scope, func(n *html.Node) bool { return n.Data == "option" }) {
		if v := attrVal(opt, "value"); v != "" {
			values = append(values, v)
		}
	}
	return values, nil
}
