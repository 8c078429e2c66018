// Package boundary finds the question and answer of a note by structural
// analysis rather than regular expressions.
//
// Content is segmented line by line into headings, separators and content
// runs. The question is the first heading, else the first labeled question
// line, else the first line ending in a question mark. The answer is every
// line after the question up to the first of:
//  1. a heading of equal or shallower level
//  2. a separator line
//  3. a new labeled question line
//  4. the end of the document
//
// Nothing between the question and the boundary is dropped. The detector is
// used as a parsing strategy of last resort and to check that a regex result
// did not cut an answer short.
package boundary

import (
	"log/slog"
	"math"
	"strings"

	"github.com/chriscorrea/notecard/internal/counter"
	"github.com/chriscorrea/notecard/internal/language"
)

// CompletenessThreshold is the coverage below which a parse risks truncation.
const CompletenessThreshold = 0.9

// Kind classifies a section.
type Kind int

const (
	Content Kind = iota
	Heading
	Separator
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case Heading:
		return "heading"
	case Separator:
		return "separator"
	default:
		return "content"
	}
}

// MarshalText renders the kind by name in JSON output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Span is a half-open range of line indices.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Section is a run of lines sharing one structural role. Text holds the raw
// lines joined by newlines; Title is the heading text without its hashes.
type Section struct {
	Kind  Kind   `json:"kind"`
	Level int    `json:"level,omitempty"`
	Text  string `json:"text"`
	Title string `json:"title,omitempty"`
	Span  Span   `json:"span"`
}

// Stop says what ended the answer.
type Stop string

const (
	StopNone      Stop = ""
	StopEnd       Stop = "end"
	StopHeading   Stop = "heading"
	StopSeparator Stop = "separator"
	StopQuestion  Stop = "question"
)

// Origin says where the question was found.
type Origin string

const (
	OriginNone     Origin = ""
	OriginHeading  Origin = "heading"
	OriginLabel    Origin = "label"
	OriginQuestion Origin = "question-mark"
)

// ParsedContent is the detector's reading of one note.
type ParsedContent struct {
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	Sections   []Section `json:"sections"`
	Confidence float64   `json:"confidence"`
	Warnings   []string  `json:"warnings,omitempty"`
	Origin     Origin    `json:"origin,omitempty"`
	Stop       Stop      `json:"stop,omitempty"`
}

// Found reports whether a question was located.
func (p ParsedContent) Found() bool {
	return p.Origin != OriginNone
}

// Detector segments notes and locates answer boundaries.
type Detector struct {
	preserveFormatting bool
	questionStops      bool
}

// Option configures a Detector.
type Option func(*Detector)

// WithPreserveFormatting keeps sub-heading markup in the answer. When off, a
// sub-heading contributes only its title.
func WithPreserveFormatting(keep bool) Option {
	return func(d *Detector) {
		d.preserveFormatting = keep
	}
}

// WithQuestionStops controls whether a new labeled question line ends the answer.
func WithQuestionStops(stop bool) Option {
	return func(d *Detector) {
		d.questionStops = stop
	}
}

// NewDetector returns a detector with formatting preserved and question stops on.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{preserveFormatting: true, questionStops: true}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// line is one classified input line.
type line struct {
	raw    string
	kind   Kind
	level  int
	title  string
	qlabel bool
	alabel bool
}

func splitLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	return strings.Split(content, "\n")
}

func classifyLines(content string) []line {
	p := getLinePatterns()
	raw := splitLines(content)
	lines := make([]line, len(raw))
	for i, r := range raw {
		l := line{raw: r}
		switch {
		case p.separatorRegex.MatchString(r):
			l.kind = Separator
		case p.headingRegex.MatchString(r):
			m := p.headingRegex.FindStringSubmatch(r)
			l.kind = Heading
			l.level = len(m[1])
			l.title = strings.TrimSpace(m[2])
		default:
			l.kind = Content
			l.qlabel = language.AnyQuestionLine(r)
			if !l.qlabel {
				_, l.alabel = language.StripAnyAnswerMarker(r)
			}
		}
		lines[i] = l
	}
	return lines
}

// Segment splits content into ordered sections. Headings and separators are
// sections of their own; consecutive content lines form one section, with a
// new one starting at each labeled question or answer line. Joining the
// sections' Text with newlines reproduces the input lines.
func Segment(content string) []Section {
	return sections(classifyLines(content))
}

func sections(lines []line) []Section {
	var out []Section
	var cur *Section
	var buf []string

	flush := func(end int) {
		if cur == nil {
			return
		}
		cur.Text = strings.Join(buf, "\n")
		cur.Span.End = end
		out = append(out, *cur)
		cur, buf = nil, nil
	}

	for i, l := range lines {
		if l.kind != Content {
			flush(i)
			out = append(out, Section{Kind: l.kind, Level: l.level, Text: l.raw, Title: l.title, Span: Span{i, i + 1}})
			continue
		}
		if cur != nil && (l.qlabel || l.alabel) {
			flush(i)
		}
		if cur == nil {
			cur = &Section{Kind: Content, Span: Span{Start: i}}
		}
		buf = append(buf, l.raw)
	}
	flush(len(lines))
	return out
}

// Analyze locates the question and answer of content.
func (d *Detector) Analyze(content string) ParsedContent {
	lines := classifyLines(content)
	res := ParsedContent{Sections: sections(lines)}

	if strings.TrimSpace(content) == "" {
		res.Warnings = append(res.Warnings, "content is empty")
		return res
	}

	qi, level, origin := locateQuestion(lines)
	if origin == OriginNone {
		slog.Debug("Boundary detector found no question", "lines", len(lines))
		res.Warnings = append(res.Warnings, "no heading, question label or question line found")
		return res
	}
	res.Origin = origin

	start := qi + 1
	switch origin {
	case OriginHeading:
		res.Question = lines[qi].title
	case OriginLabel:
		first, _ := language.StripAnyQuestionMarker(lines[qi].raw)
		question := []string{first}
		// a labeled question runs on until its answer label, when one follows
		if j := answerLabelAfter(lines, qi); j > 0 {
			for _, l := range lines[qi+1 : j] {
				question = append(question, l.raw)
			}
			start = j
		}
		res.Question = strings.TrimSpace(strings.Join(question, "\n"))
	case OriginQuestion:
		res.Question = strings.TrimSpace(lines[qi].raw)
	}

	answer, stop, end := d.scanAnswer(lines, start, level)
	res.Answer = answer
	res.Stop = stop

	if res.Answer == "" {
		res.Warnings = append(res.Warnings, "answer is empty")
	}
	if stop != StopEnd && hasText(lines, end) {
		res.Warnings = append(res.Warnings, "content after the answer boundary ("+string(stop)+") belongs to another card")
	}
	if leadingText(lines, qi) {
		res.Warnings = append(res.Warnings, "text before the question is not part of the card")
	}

	res.Confidence = confidence(res, lines)
	slog.Debug("Boundary analysis complete", "origin", origin, "stop", stop,
		"sections", len(res.Sections), "confidence", res.Confidence)
	return res
}

// locateQuestion returns the question line, the heading level that bounds its
// answer and where it was found.
func locateQuestion(lines []line) (int, int, Origin) {
	for i, l := range lines {
		if l.kind == Heading && l.title != "" {
			return i, l.level, OriginHeading
		}
	}
	for i, l := range lines {
		if l.qlabel {
			return i, 6, OriginLabel
		}
	}
	for i, l := range lines {
		if l.kind == Content && language.EndsWithQuestionMark(l.raw) {
			return i, 6, OriginQuestion
		}
	}
	return -1, 0, OriginNone
}

// answerLabelAfter returns the index of the answer label that closes the
// labeled question at qi, or -1 when a boundary comes first.
func answerLabelAfter(lines []line, qi int) int {
	for j := qi + 1; j < len(lines); j++ {
		l := lines[j]
		switch {
		case l.alabel:
			return j
		case l.kind != Content, l.qlabel:
			return -1
		}
	}
	return -1
}

// scanAnswer collects the answer from start and returns it with the stop
// reason and the index of the stopping line.
func (d *Detector) scanAnswer(lines []line, start, level int) (string, Stop, int) {
	var parts []string
	stop := StopEnd

	k := start
scan:
	for ; k < len(lines); k++ {
		l := lines[k]
		switch {
		case l.kind == Heading && l.level <= level:
			stop = StopHeading
			break scan
		case l.kind == Separator:
			stop = StopSeparator
			break scan
		case d.questionStops && l.qlabel:
			stop = StopQuestion
			break scan
		case l.kind == Heading:
			if d.preserveFormatting {
				parts = append(parts, strings.TrimSpace(l.raw))
			} else {
				parts = append(parts, l.title)
			}
		case k == start && l.alabel:
			text, _ := language.StripAnyAnswerMarker(l.raw)
			parts = append(parts, text)
		default:
			parts = append(parts, l.raw)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n")), stop, k
}

func hasText(lines []line, from int) bool {
	for _, l := range lines[from:] {
		if l.kind != Separator && strings.TrimSpace(l.raw) != "" {
			return true
		}
	}
	return false
}

func leadingText(lines []line, qi int) bool {
	for _, l := range lines[:qi] {
		if l.kind == Content && strings.TrimSpace(l.raw) != "" {
			return true
		}
	}
	return false
}

var chars = counter.NewCharCounter()

// Confidence weights.
const (
	questionPresent = 0.2
	questionLength  = 0.1
	questionMark    = 0.1
	questionWord    = 0.05
	answerPresent   = 0.2
	answerLength    = 0.1
	answerStructure = 0.05
	structureCue    = 0.1
	balancedRatio   = 0.1
)

func confidence(p ParsedContent, lines []line) float64 {
	minQ, minA := counter.Characters.MinFieldLength()
	var score float64

	if q := p.Question; q != "" {
		score += questionPresent
		if chars.Count(q) >= minQ {
			score += questionLength
		}
		if language.EndsWithQuestionMark(q) {
			score += questionMark
		}
		if language.For(language.Detect(q)).HasQuestionWord(q) {
			score += questionWord
		}
	}

	if a := p.Answer; a != "" {
		score += answerPresent
		if chars.Count(a) >= minA {
			score += answerLength
		}
		if strings.Contains(a, "\n") || getLinePatterns().listItemRegex.MatchString(a) {
			score += answerStructure
		}
	}

	if p.Origin == OriginHeading || p.Origin == OriginLabel {
		score += structureCue
	}

	qn, an := float64(chars.Count(p.Question)), float64(chars.Count(p.Answer))
	if qn > 0 && an > 0 {
		if r := qn / (qn + an); r >= 0.1 && r <= 0.5 {
			score += balancedRatio
		}
	}

	return math.Round(math.Min(1, score)*1e6) / 1e6
}
