// Package extract turns imported note sources into Markdown text ready for
// recognition. Markdown and plain text pass through untouched; HTML from web
// clips or the clipboard is converted, keeping highlights as ==cloze== marks.
package extract

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// Options controls HTML conversion.
type Options struct {
	Selector string // CSS selector limiting conversion to matching elements
	// Readability extracts the main article of full pages. Fragments such as
	// clipboard snippets are always converted whole.
	Readability bool
	BaseURL     *url.URL // optional page URL for readability
}

var (
	htmlTag      = regexp.MustCompile(`(?i)<(?:!doctype\s+html|html|head|body|p|div|h[1-6]|ul|ol|li|table|br|span|strong|em|mark|article)\b[^>]*>`)
	documentHTML = regexp.MustCompile(`(?i)<(?:!doctype\s+html|html|body)\b`)
)

// IsHTML reports whether text looks like markup rather than a note. A note
// counts as HTML only when it opens with a tag and contains a known element.
func IsHTML(text string) bool {
	trimmed := strings.TrimSpace(text)
	return strings.HasPrefix(trimmed, "<") && htmlTag.MatchString(trimmed)
}

// Note reads a source and returns its note text. Non-HTML content is
// returned byte for byte.
func Note(content io.Reader, opts Options) (string, error) {
	raw, err := io.ReadAll(content)
	if err != nil {
		return "", fmt.Errorf("failed to read note content: %w", err)
	}
	text := string(raw)
	if !IsHTML(text) {
		return text, nil
	}
	return ToMarkdown(text, opts)
}

// ToMarkdown converts HTML to Markdown.
//
// A selector wins over everything else. Readability applies only to whole
// documents; when it finds nothing the full page is converted instead.
func ToMarkdown(html string, opts Options) (string, error) {
	if opts.Selector != "" {
		return extractWithSelector(html, opts.Selector)
	}
	if opts.Readability && documentHTML.MatchString(html) {
		if out, err := extractMainContent(html, opts.BaseURL); err == nil && out != "" {
			return out, nil
		}
	}
	return convertToMarkdown(html)
}

// extractMainContent uses go-readability to extract the main article content
func extractMainContent(html string, baseURL *url.URL) (string, error) {
	if baseURL == nil {
		baseURL = &url.URL{}
	}

	article, err := readability.FromReader(strings.NewReader(html), baseURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract main content: %w", err)
	}
	return convertToMarkdown(article.Content)
}

// extractWithSelector uses a CSS selector to extract specific content
func extractWithSelector(html, selector string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	selection := doc.Find(selector)
	if selection.Length() == 0 {
		return "", fmt.Errorf("no elements found matching selector: %s", selector)
	}

	var htmlParts []string
	selection.Each(func(i int, s *goquery.Selection) {
		inner, err := s.Html()
		if err == nil {
			// wrap each element to preserve structure
			tagName := goquery.NodeName(s)
			htmlParts = append(htmlParts, fmt.Sprintf("<%s>%s</%s>", tagName, inner, tagName))
		}
	})
	if len(htmlParts) == 0 {
		return "", fmt.Errorf("failed to extract HTML from selection")
	}

	return convertToMarkdown(strings.Join(htmlParts, "\n"))
}

// highlightRule keeps <mark> spans as ==highlight== cloze marks.
var highlightRule = md.Rule{
	Filter: []string{"mark"},
	Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
		content = strings.TrimSpace(content)
		if content == "" {
			return &content
		}
		out := "==" + content + "=="
		return &out
	},
}

// convertToMarkdown converts HTML string to clean Markdown
func convertToMarkdown(htmlString string) (string, error) {
	converter := md.NewConverter("", true, nil)
	converter.AddRules(highlightRule)

	markdown, err := converter.ConvertString(htmlString)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to Markdown: %w", err)
	}

	cleaned := strings.TrimSpace(markdown)
	for strings.Contains(cleaned, "\n\n\n") {
		cleaned = strings.ReplaceAll(cleaned, "\n\n\n", "\n\n")
	}
	return cleaned, nil
}
