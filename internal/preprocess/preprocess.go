// Package preprocess normalizes freeform note text before recognition.
//
// Normalization runs as a fixed sequence of passes:
//  1. Line endings (CRLF and CR become LF)
//  2. Span protection (code, math and link spans are swapped for placeholder tokens)
//  3. Punctuation folding (full-width structural punctuation and curly quotes)
//  4. Heading spacing (#Title becomes # Title)
//  5. Whitespace collapsing (trailing blanks, interior runs, blank-line runs)
//  6. Span restoration
//
// Protected spans are restored byte-for-byte, so recognition heuristics never
// rewrite code, links or formulas. Normalize never fails; a pass that cannot
// apply leaves the text as it was.
package preprocess

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/width"
)

// Transformation names reported in Result.Transformations.
const (
	LineEndings     = "line-endings"
	ProtectSpans    = "protect-spans"
	Punctuation     = "punctuation"
	HeadingSpacing  = "heading-spacing"
	WhitespaceRuns  = "whitespace"
	RestoreSpans    = "restore-spans"
	placeholderHead = "NCPH"
)

// Options selects which passes Normalize applies.
type Options struct {
	UnifyLineEndings     bool
	ProtectCode          bool
	ProtectMath          bool
	ProtectLinks         bool
	NormalizePunctuation bool
	NormalizeHeadings    bool
	CollapseWhitespace   bool
}

// DefaultOptions enables every pass.
func DefaultOptions() Options {
	return Options{
		UnifyLineEndings:     true,
		ProtectCode:          true,
		ProtectMath:          true,
		ProtectLinks:         true,
		NormalizePunctuation: true,
		NormalizeHeadings:    true,
		CollapseWhitespace:   true,
	}
}

// SpanKind identifies what a protected span contained.
type SpanKind string

const (
	KindCode SpanKind = "code"
	KindMath SpanKind = "math"
	KindLink SpanKind = "link"
)

// Span is a protected region of the input and the token that replaced it.
type Span struct {
	Token    string   `json:"token"`
	Original string   `json:"original"`
	Kind     SpanKind `json:"kind"`
}

// Result is the output of Normalize.
type Result struct {
	// Processed is the normalized text with every protected span restored.
	Processed string `json:"processed"`
	// Masked is the normalized text with placeholder tokens still in place.
	Masked          string   `json:"-"`
	Transformations []string `json:"transformations_applied"`
	Preserved       []Span   `json:"preserved_spans"`
}

// Restore replaces the placeholder tokens of r found in s with their originals.
func (r Result) Restore(s string) string {
	return Restore(s, r.Preserved)
}

// Restore replaces placeholder tokens in s with the original span text.
// Tokens that do not occur in s are ignored.
func Restore(s string, spans []Span) string {
	if len(spans) == 0 || !strings.Contains(s, placeholderHead) {
		return s
	}
	// later spans may sit inside earlier ones, so restore newest first
	for i := len(spans) - 1; i >= 0; i-- {
		s = strings.ReplaceAll(s, spans[i].Token, spans[i].Original)
	}
	return s
}

// protector describes one span class that is masked before normalization.
type protector struct {
	kind    SpanKind
	enabled func(Options) bool
	regex   *regexp.Regexp
}

// protectors run in order; fenced and block forms first so inline forms never
// match inside them.
var protectors = []protector{
	{KindCode, func(o Options) bool { return o.ProtectCode }, regexp.MustCompile("(?s)```.*?```|~~~.*?~~~")},
	{KindMath, func(o Options) bool { return o.ProtectMath }, regexp.MustCompile(`(?s)\$\$.+?\$\$`)},
	{KindCode, func(o Options) bool { return o.ProtectCode }, regexp.MustCompile("`[^`\n]+`")},
	{KindMath, func(o Options) bool { return o.ProtectMath }, regexp.MustCompile(`\$[^$\s](?:[^$\n]*[^$\s])?\$`)},
	{KindLink, func(o Options) bool { return o.ProtectLinks }, regexp.MustCompile(`!?\[\[[^\]\n]+\]\]`)},
	{KindLink, func(o Options) bool { return o.ProtectLinks }, regexp.MustCompile(`!?\[[^\]\n]*\]\([^)\n]*\)`)},
	{KindLink, func(o Options) bool { return o.ProtectLinks }, regexp.MustCompile(`<https?://[^>\s]+>|https?://[^\s<>()]+`)},
}

var (
	headingNoSpace = regexp.MustCompile(`^(#{1,6})([^\s#])`)
	tagOnlyLine    = regexp.MustCompile(`^#[\p{L}\p{N}_/-]+(?:[ \t]+#[\p{L}\p{N}_/-]+)+[ \t]*$`)
	interiorRun    = regexp.MustCompile(`(\S)[ \t]{2,}`)
	blankLineRun   = regexp.MustCompile(`\n{3,}`)
)

// structural lists the full-width forms folded to ASCII. Sentence punctuation
// such as ？ ！ 。 ， is left alone because it is part of the author's text.
var structural = map[rune]bool{
	'：': true, '（': true, '）': true, '［': true, '］': true, '＃': true,
	'＊': true, '－': true, '＝': true, '＞': true, '｜': true, '＿': true,
	'｀': true, '　': true,
}

var punctuationFolder = runes.If(runes.Predicate(func(r rune) bool { return structural[r] }), width.Narrow, nil)

var quoteReplacer = strings.NewReplacer(
	"“", `"`, "”", `"`, "„", `"`,
	"‘", "'", "’", "'",
	"\u00a0", " ",
)

// Normalize applies the passes selected by opts to text.
func Normalize(text string, opts Options) Result {
	res := Result{}
	current := text

	apply := func(name string, next string) {
		if next != current {
			res.Transformations = append(res.Transformations, name)
			current = next
		}
	}

	if opts.UnifyLineEndings {
		apply(LineEndings, unifyLineEndings(current))
	}

	masked, spans := protect(current, opts)
	if len(spans) > 0 {
		res.Transformations = append(res.Transformations, ProtectSpans)
		current = masked
	}
	res.Preserved = spans

	if opts.NormalizePunctuation {
		apply(Punctuation, foldPunctuation(current))
	}
	if opts.NormalizeHeadings {
		apply(HeadingSpacing, spaceHeadings(current))
	}
	if opts.CollapseWhitespace {
		apply(WhitespaceRuns, collapseWhitespace(current))
	}

	res.Masked = current
	res.Processed = Restore(current, spans)
	if len(spans) > 0 {
		res.Transformations = append(res.Transformations, RestoreSpans)
	}

	slog.Debug("Normalized note text", "inputLength", len(text), "outputLength", len(res.Processed),
		"transformations", res.Transformations, "protectedSpans", len(spans))
	return res
}

func unifyLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// protect masks every enabled span class with a unique token. The per-call
// nonce keeps tokens from colliding with text the author wrote.
func protect(s string, opts Options) (string, []Span) {
	nonce := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	var spans []Span

	for _, p := range protectors {
		if !p.enabled(opts) {
			continue
		}
		s = p.regex.ReplaceAllStringFunc(s, func(match string) string {
			token := fmt.Sprintf("%s%s%04dX", placeholderHead, nonce, len(spans))
			spans = append(spans, Span{Token: token, Original: match, Kind: p.kind})
			return token
		})
	}
	return s, spans
}

func foldPunctuation(s string) string {
	folded, _, err := transform.String(punctuationFolder, s)
	if err != nil {
		slog.Debug("Punctuation folding failed, keeping text", "error", err)
		folded = s
	}
	return quoteReplacer.Replace(folded)
}

func spaceHeadings(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if tagOnlyLine.MatchString(line) {
			continue
		}
		lines[i] = headingNoSpace.ReplaceAllString(line, "$1 $2")
	}
	return strings.Join(lines, "\n")
}

func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		line = strings.TrimRight(line, " \t")
		lines[i] = interiorRun.ReplaceAllString(line, "$1 ")
	}
	s = strings.Join(lines, "\n")
	s = blankLineRun.ReplaceAllString(s, "\n\n")
	return strings.Trim(s, "\n")
}
