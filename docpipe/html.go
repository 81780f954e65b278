package docpipe

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var htmlPolicy = bluemonday.UGCPolicy()

func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
}

// stripHTML turns an HTML document into readable text: sanitise away scripts,
// styles and event handlers, then convert the remaining markup to
// markdown-flavoured text (headings and tables survive as structure the
// analyzer can see). DOM text collection is the fallback when conversion
// fails on malformed input.
func stripHTML(s string) string {
	clean := htmlPolicy.Sanitize(s)
	if md, err := newMarkdownConverter().ConvertString(clean); err == nil {
		if t := strings.TrimSpace(md); t != "" {
			return t
		}
	}
	return collectHTMLText(s)
}

// collectHTMLText walks the DOM and gathers visible text nodes.
func collectHTMLText(s string) string {
	doc, err := xhtml.Parse(strings.NewReader(s))
	if err != nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*xhtml.Node)
	walk = func(n *xhtml.Node) {
		if n.Type == xhtml.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Head:
				return
			}
		}
		if n.Type == xhtml.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		// Block elements separate paragraphs.
		if n.Type == xhtml.ElementNode {
			switch n.DataAtom {
			case atom.P, atom.Div, atom.Br, atom.Tr, atom.Li, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
				sb.WriteByte('\n')
			}
		}
	}
	walk(doc)
	return strings.TrimSpace(sb.String())
}

// extractEmail splits an RFC 822-ish message into a header preamble and body.
// Subject/From/To/Date survive as labelled lines; an HTML body is stripped.
func extractEmail(raw string) string {
	headerPart, body, found := strings.Cut(strings.ReplaceAll(raw, "\r\n", "\n"), "\n\n")
	if !found {
		body = raw
		headerPart = ""
	}

	var sb strings.Builder
	for _, line := range strings.Split(headerPart, "\n") {
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "subject", "from", "to", "cc", "date":
			sb.WriteString(strings.TrimSpace(key))
			sb.WriteString(": ")
			sb.WriteString(strings.TrimSpace(val))
			sb.WriteByte('\n')
		}
	}
	if sb.Len() > 0 {
		sb.WriteByte('\n')
	}

	if strings.Contains(strings.ToLower(body), "<html") || strings.Contains(body, "</") {
		sb.WriteString(stripHTML(body))
	} else {
		sb.WriteString(strings.TrimSpace(body))
	}
	return sb.String()
}
