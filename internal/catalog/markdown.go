package catalog

import (
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
)

// DescriptionMarkdown renders a course description authored as HTML.
// Non-visible and interactive elements are dropped first. If conversion
// fails the collapsed plain text is returned.
func DescriptionMarkdown(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}
	doc.Find("script, style, noscript, iframe, object, embed, form, input, button, select, textarea").Remove()

	plain := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	body, err := doc.Find("body").Html()
	if err != nil {
		return plain
	}
	md, err := htmltomarkdown.ConvertString(body)
	if err != nil {
		return plain
	}
	return strings.TrimSpace(md)
}

// Markdown returns the course description as Markdown.
func (c Course) Markdown() string { return DescriptionMarkdown(c.Description) }
