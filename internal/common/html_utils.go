package common

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ExtractText gets all text content from an HTML node and its children
func ExtractText(node *html.Node) string {
	var text strings.Builder

	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && (n.Data == "br" || n.Data == "p" || n.Data == "div" || n.Data == "li") && text.Len() > 0 {
			text.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}

	traverse(node)
	return strings.Join(strings.Fields(text.String()), " ")
}

// StripMarkup returns the visible text of a rendered column value. Values
// without markup are returned unchanged.
func StripMarkup(value string) string {
	if !looksLikeMarkup(value) {
		return value
	}

	nodes, err := html.ParseFragment(strings.NewReader(value), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return value
	}

	parts := make([]string, 0, len(nodes))
	for _, node := range nodes {
		if text := ExtractText(node); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

func looksLikeMarkup(value string) bool {
	open := strings.Index(value, "<")
	if open < 0 || open+1 >= len(value) {
		return false
	}
	next := value[open+1]
	isTagStart := next == '/' || next == '!' || (next >= 'a' && next <= 'z') || (next >= 'A' && next <= 'Z')
	return isTagStart && strings.Contains(value[open:], ">")
}
