// Package chunk splits a note that holds several flashcards into one block
// per card.
//
// The split runs in waves, from the most explicit card boundary to the least:
//  1. Delimiter lines (%%card%%): the author marked every card by hand
//  2. Headings: the shallowest heading level that occurs at least twice
//  3. Question labels (Q:, 问题:, 質問:): one card per label when a block has several
//
// Each wave applies to every card block left by the previous one. Text before
// the first boundary is kept as a preamble block, so joining the lines of all
// blocks always reconstructs the input.
//
// Usage Example:
//
//	for _, b := range chunk.SplitCards(note) {
//		if b.Kind == chunk.Card {
//			// recognize b.Text
//		}
//	}
package chunk

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/chriscorrea/notecard/internal/language"
)

// Kind classifies a block.
type Kind int

const (
	// Card holds the text of one card
	Card Kind = iota
	// Preamble is text before the first card boundary
	Preamble
	// Delimiter is an explicit %%card%% marker line
	Delimiter
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case Card:
		return "card"
	case Preamble:
		return "preamble"
	case Delimiter:
		return "delimiter"
	default:
		return "unknown"
	}
}

// Block is a contiguous run of lines of the input.
type Block struct {
	Text     string
	Kind     Kind
	Line     int    // zero-based index of the first line
	Strategy string // wave that produced the block; empty when the note was not split
}

// Blank reports whether the block holds only whitespace.
func (b Block) Blank() bool {
	return strings.TrimSpace(b.Text) == ""
}

// DelimiterMark separates cards explicitly.
const DelimiterMark = "%%card%%"

var (
	headingLine = regexp.MustCompile(`^[ \t]{0,3}(#{1,6})[ \t]+\S`)
	fenceLine   = regexp.MustCompile("^[ \t]*(```|~~~)")
)

// splitStrategy finds the line indices where a new card starts.
type splitStrategy struct {
	name   string
	starts func(lines []string, code []bool) []int
}

// strategies are ordered from the most explicit boundary to the least
var strategies = []splitStrategy{
	{name: "delimiter", starts: delimiterStarts},
	{name: "heading", starts: headingStarts},
	{name: "question-label", starts: labelStarts},
}

// span is a half-open range of lines.
type span struct {
	start, end int
	kind       Kind
	strategy   string
}

// SplitCards breaks text into card blocks. Empty or whitespace-only text
// yields no blocks; text with no boundary yields a single card block.
func SplitCards(text string) []Block {
	slog.Debug("SplitCards called", "textLength", len(text))
	if strings.TrimSpace(text) == "" {
		return []Block{}
	}

	lines := strings.Split(text, "\n")
	code := codeLines(lines)
	spans := []span{{start: 0, end: len(lines), kind: Card}}

	for _, strategy := range strategies {
		var next []span
		for _, s := range spans {
			if s.kind != Card {
				next = append(next, s)
				continue
			}
			parts := splitSpan(s, strategy, lines, code)
			if len(parts) > 1 {
				slog.Debug("Split block", "strategy", strategy.name, "line", s.start, "parts", len(parts))
			}
			next = append(next, parts...)
		}
		spans = next
	}

	blocks := make([]Block, 0, len(spans))
	for _, s := range spans {
		blocks = append(blocks, Block{
			Text:     strings.Join(lines[s.start:s.end], "\n"),
			Kind:     s.kind,
			Line:     s.start,
			Strategy: s.strategy,
		})
	}
	slog.Debug("SplitCards completed", "blocks", len(blocks))
	return blocks
}

// Cards returns the texts of the non-blank card blocks.
func Cards(blocks []Block) []string {
	var out []string
	for _, b := range blocks {
		if b.Kind == Card && !b.Blank() {
			out = append(out, b.Text)
		}
	}
	return out
}

// splitSpan cuts s at the starts found by strategy.
func splitSpan(s span, strategy splitStrategy, lines []string, code []bool) []span {
	local := strategy.starts(lines[s.start:s.end], code[s.start:s.end])
	if len(local) == 0 {
		return []span{s}
	}

	var out []span
	if strategy.name == "delimiter" {
		prev := s.start
		for _, i := range local {
			at := s.start + i
			if at > prev {
				out = append(out, span{start: prev, end: at, kind: Card, strategy: strategy.name})
			}
			out = append(out, span{start: at, end: at + 1, kind: Delimiter, strategy: strategy.name})
			prev = at + 1
		}
		if prev < s.end {
			out = append(out, span{start: prev, end: s.end, kind: Card, strategy: strategy.name})
		}
		return out
	}

	if first := s.start + local[0]; first > s.start {
		out = append(out, span{start: s.start, end: first, kind: Preamble, strategy: strategy.name})
	}
	for k, i := range local {
		end := s.end
		if k+1 < len(local) {
			end = s.start + local[k+1]
		}
		out = append(out, span{start: s.start + i, end: end, kind: Card, strategy: strategy.name})
	}
	return out
}

func delimiterStarts(lines []string, code []bool) []int {
	var out []int
	for i, l := range lines {
		if !code[i] && strings.EqualFold(strings.TrimSpace(l), DelimiterMark) {
			out = append(out, i)
		}
	}
	return out
}

// headingStarts splits at the shallowest heading level with at least two
// headings in the block.
func headingStarts(lines []string, code []bool) []int {
	byLevel := make(map[int][]int)
	for i, l := range lines {
		if code[i] {
			continue
		}
		if m := headingLine.FindStringSubmatch(l); m != nil {
			byLevel[len(m[1])] = append(byLevel[len(m[1])], i)
		}
	}
	for level := 1; level <= 6; level++ {
		if len(byLevel[level]) >= 2 {
			return byLevel[level]
		}
	}
	return nil
}

func labelStarts(lines []string, code []bool) []int {
	var out []int
	for i, l := range lines {
		if !code[i] && language.AnyQuestionLine(l) {
			out = append(out, i)
		}
	}
	if len(out) < 2 {
		return nil
	}
	return out
}

// codeLines marks lines inside fenced code blocks, fences included.
func codeLines(lines []string) []bool {
	code := make([]bool, len(lines))
	var fence string
	for i, l := range lines {
		if m := fenceLine.FindStringSubmatch(l); m != nil {
			code[i] = true
			switch {
			case fence == "":
				fence = m[1]
			case fence == m[1]:
				fence = ""
			}
			continue
		}
		code[i] = fence != ""
	}
	return code
}
