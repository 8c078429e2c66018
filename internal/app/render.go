package app

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chriscorrea/notecard/internal/card"
)

// Render formats a report.
func Render(r *Report, format OutputFormat) (string, error) {
	switch format {
	case JSON:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode report: %w", err)
		}
		return string(data) + "\n", nil
	case Text:
		return renderCards(r, textWriter{}), nil
	default:
		return renderCards(r, markdownWriter{}), nil
	}
}

// cardWriter renders the parts of one card in a given format.
type cardWriter interface {
	header(b *strings.Builder, c CardResult)
	question(b *strings.Builder, text string)
	answer(b *strings.Builder, text string)
	options(b *strings.Builder, text, correct string)
	field(b *strings.Builder, name, value string)
	tags(b *strings.Builder, tags []string, suggested bool)
	unrecognized(b *strings.Builder, c CardResult)
	warning(b *strings.Builder, w string)
	separator(b *strings.Builder)
}

// layoutFields are rendered by dedicated writers, everything else as a field.
var layoutFields = map[string]bool{
	card.FieldQuestion:      true,
	card.FieldAnswer:        true,
	card.FieldOptions:       true,
	card.FieldCorrectAnswer: true,
	card.FieldTags:          true,
	card.FieldNotes:         true,
}

func renderCards(r *Report, w cardWriter) string {
	var b strings.Builder
	for i, c := range r.Cards {
		if i > 0 {
			w.separator(&b)
		}
		w.header(&b, c)

		if !c.Success {
			w.unrecognized(&b, c)
			for _, warn := range c.Warnings {
				w.warning(&b, warn)
			}
			continue
		}

		f := c.Fields
		if q := f[card.FieldQuestion]; q != "" {
			w.question(&b, q)
		}
		if opts := f[card.FieldOptions]; opts != "" {
			w.options(&b, opts, f[card.FieldCorrectAnswer])
		}
		if a := f[card.FieldAnswer]; a != "" {
			w.answer(&b, a)
		}
		for _, name := range f.Names() {
			if layoutFields[name] || f[name] == "" {
				continue
			}
			w.field(&b, name, f[name])
		}
		switch {
		case strings.TrimSpace(f[card.FieldTags]) != "":
			w.tags(&b, splitTags(f[card.FieldTags]), false)
		case len(c.SuggestedTags) > 0:
			w.tags(&b, c.SuggestedTags, true)
		}
		for _, warn := range c.Warnings {
			w.warning(&b, warn)
		}
	}
	return b.String()
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func location(c CardResult) string {
	if c.Line > 1 {
		return fmt.Sprintf("%s:%d", c.Source, c.Line)
	}
	return c.Source
}

// markdownWriter renders cards as Markdown, one heading per question.
type markdownWriter struct{}

func (markdownWriter) header(b *strings.Builder, c CardResult) {
	fmt.Fprintf(b, "<!-- %s | %s | %.2f -->\n", location(c), strategyName(c), c.Confidence)
}

func (markdownWriter) question(b *strings.Builder, text string) {
	fmt.Fprintf(b, "## %s\n\n", strings.TrimSpace(text))
}

func (markdownWriter) answer(b *strings.Builder, text string) {
	fmt.Fprintf(b, "%s\n\n", strings.TrimSpace(text))
}

func (markdownWriter) options(b *strings.Builder, text, correct string) {
	fmt.Fprintf(b, "%s\n\n", strings.TrimSpace(text))
	if correct != "" {
		fmt.Fprintf(b, "**Answer:** %s\n\n", correct)
	}
}

func (markdownWriter) field(b *strings.Builder, name, value string) {
	fmt.Fprintf(b, "**%s:** %s\n\n", name, strings.TrimSpace(value))
}

func (markdownWriter) tags(b *strings.Builder, tags []string, suggested bool) {
	label := "Tags"
	if suggested {
		label = "Suggested tags"
	}
	fmt.Fprintf(b, "%s: #%s\n\n", label, strings.Join(tags, " #"))
}

func (markdownWriter) unrecognized(b *strings.Builder, c CardResult) {
	b.WriteString("> [!warning] Not recognized")
	if c.Preserved != nil {
		fmt.Fprintf(b, " (suggested template: %s)", c.Preserved.FallbackTemplateID)
	}
	b.WriteString("\n")
	if c.Preserved != nil {
		for _, s := range c.Preserved.RepairSuggestions {
			fmt.Fprintf(b, "> - %s\n", s)
		}
	}
	fmt.Fprintf(b, "\n%s\n\n", strings.TrimSpace(c.OriginalContent))
}

func (markdownWriter) warning(b *strings.Builder, w string) {
	fmt.Fprintf(b, "> warning: %s\n\n", w)
}

func (markdownWriter) separator(b *strings.Builder) {
	b.WriteString("---\n\n")
}

// textWriter renders cards as plain Q/A text without Markdown markup.
type textWriter struct{}

func (textWriter) header(b *strings.Builder, c CardResult) {
	fmt.Fprintf(b, "[%s] %s %.2f\n", location(c), strategyName(c), c.Confidence)
}

func (textWriter) question(b *strings.Builder, text string) {
	fmt.Fprintf(b, "Q: %s\n", stripMarkdown(strings.TrimSpace(text)))
}

func (textWriter) answer(b *strings.Builder, text string) {
	fmt.Fprintf(b, "A: %s\n", stripMarkdown(strings.TrimSpace(text)))
}

func (textWriter) options(b *strings.Builder, text, correct string) {
	fmt.Fprintf(b, "%s\n", stripMarkdown(strings.TrimSpace(text)))
	if correct != "" {
		fmt.Fprintf(b, "Answer: %s\n", correct)
	}
}

func (textWriter) field(b *strings.Builder, name, value string) {
	fmt.Fprintf(b, "%s: %s\n", name, stripMarkdown(strings.TrimSpace(value)))
}

func (textWriter) tags(b *strings.Builder, tags []string, suggested bool) {
	label := "Tags"
	if suggested {
		label = "Suggested tags"
	}
	fmt.Fprintf(b, "%s: %s\n", label, strings.Join(tags, ", "))
}

func (textWriter) unrecognized(b *strings.Builder, c CardResult) {
	b.WriteString("Not recognized")
	if c.Preserved != nil {
		fmt.Fprintf(b, " (suggested template: %s)", c.Preserved.FallbackTemplateID)
	}
	b.WriteString("\n")
	fmt.Fprintf(b, "%s\n", stripMarkdown(strings.TrimSpace(c.OriginalContent)))
}

func (textWriter) warning(b *strings.Builder, w string) {
	fmt.Fprintf(b, "warning: %s\n", w)
}

func (textWriter) separator(b *strings.Builder) {
	b.WriteString("\n")
}

func strategyName(c CardResult) string {
	if c.PatternID != "" {
		return c.Strategy + "/" + c.PatternID
	}
	return c.Strategy
}
