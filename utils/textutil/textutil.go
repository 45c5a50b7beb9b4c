// Package textutil turns lesson HTML into short plain-text snippets for
// notifications and emails.
package textutil

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// skipped elements contribute no visible text
var skipped = map[string]bool{
	"script": true,
	"style":  true,
	"head":   true,
}

// block elements are separated from their neighbours by a space
var block = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"tr": true, "td": true, "th": true, "section": true, "article": true,
}

// PlainText strips markup from an HTML fragment and collapses whitespace.
// Input that is not HTML is returned with whitespace collapsed.
func PlainText(fragment string) string {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipped[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && block[n.Data] {
			sb.WriteByte(' ')
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if n.Type == html.ElementNode && block[n.Data] {
			sb.WriteByte(' ')
		}
	}
	walk(doc)

	return strings.Join(strings.Fields(sb.String()), " ")
}

// Truncate shortens s to at most max runes, cutting at a word boundary when
// possible and appending an ellipsis
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}

	runes := []rune(s)
	cut := string(runes[:max])
	if i := strings.LastIndex(cut, " "); i > max/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}

// Excerpt is PlainText followed by Truncate
func Excerpt(fragment string, max int) string {
	return Truncate(PlainText(fragment), max)
}
