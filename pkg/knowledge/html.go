package knowledge

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// htmlDocument extracts readable text from an HTML page. It prefers <main> or
// <article>, falls back to <body>, and skips scripts and navigation chrome.
func htmlDocument(data []byte) (Document, error) {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return Document{}, err
	}

	var title string
	if head := findElement(root, "head"); head != nil {
		if t := findElement(head, "title"); t != nil && t.FirstChild != nil {
			title = strings.TrimSpace(t.FirstChild.Data)
		}
	}

	content := findElement(root, "main")
	if content == nil {
		content = findElement(root, "article")
	}
	if content == nil {
		content = findElement(root, "body")
	}

	var b strings.Builder
	if content != nil {
		writeText(&b, content, false)
	}
	return Document{Title: title, Text: collapseBlankLines(b.String())}, nil
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && strings.EqualFold(n.Data, tag) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func writeText(b *strings.Builder, n *html.Node, inPre bool) {
	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "script", "style", "noscript", "nav", "footer", "aside", "iframe":
			return
		case "pre":
			inPre = true
		case "br", "hr", "p", "h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "tr":
			b.WriteString("\n")
		case "td", "th":
			b.WriteString("\t")
		}
	}

	if n.Type == html.TextNode {
		data := n.Data
		if !inPre {
			data = strings.Join(strings.Fields(data), " ")
			if data != "" && b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
				data = " " + data
			}
		}
		b.WriteString(data)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c, inPre)
	}

	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "p", "h1", "h2", "h3", "h4", "h5", "h6", "pre":
			b.WriteString("\n\n")
		case "li":
			b.WriteString("\n")
		}
	}
}

// collapseBlankLines trims every line and keeps at most one blank line in a row.
func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" && (len(out) == 0 || out[len(out)-1] == "") {
			continue
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
