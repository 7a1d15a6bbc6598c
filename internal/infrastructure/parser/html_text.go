package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const blockSelectors = "p, div, li, tr, h1, h2, h3, h4, h5, h6, blockquote"

// PlainText flattens post markup into text. Line breaks and block ends become
// newlines so sentence boundaries survive.
func PlainText(raw string) string {
	if !strings.ContainsAny(raw, "<&") {
		return raw
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return raw
	}

	doc.Find("script, style").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find(blockSelectors).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	return strings.TrimSpace(collapseBlankLines(doc.Text()))
}

func collapseBlankLines(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
