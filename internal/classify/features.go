package classify

import (
	"regexp"
	"strings"

	"github.com/chriscorrea/notecard/internal/counter"
	"github.com/chriscorrea/notecard/internal/language"
)

// Fallback template ids.
const (
	TemplateEmergency  = "emergency-basic"
	TemplateCloze      = "cloze-basic"
	TemplateChoice     = "choice-basic"
	TemplateDefinition = "definition-basic"
	TemplateLongNote   = "long-note"
	TemplateBasic      = "basic-qa"
)

// LongNoteChars is the whitespace-insensitive length above which a note is long.
const LongNoteChars = 600

// Features describes the structure of a note.
type Features struct {
	Empty            bool              `json:"empty"`
	Chars            int               `json:"chars"`
	Lines            int               `json:"lines"`
	Paragraphs       int               `json:"paragraphs"`
	Language         language.Language `json:"language"`
	HasHeading       bool              `json:"has_heading"`
	HasQuestionLabel bool              `json:"has_question_label"`
	HasAnswerLabel   bool              `json:"has_answer_label"`
	HasQuestionMark  bool              `json:"has_question_mark"`
	HasSeparator     bool              `json:"has_separator"`
	HasCloze         bool              `json:"has_cloze"`
	OptionLines      int               `json:"option_lines"`
	HasAnswerLine    bool              `json:"has_answer_line"`
	HasDefinitionCue bool              `json:"has_definition_cue"`

	// secondOption is set when a "B" or "2" option line exists, telling a
	// choice list apart from stacked "A:" answer labels
	secondOption bool
}

// HasOptions reports whether the note carries a multiple-choice option list.
func (f Features) HasOptions() bool {
	return f.OptionLines >= 2 && f.secondOption
}

// HasQuestionCue reports whether anything marks a question.
func (f Features) HasQuestionCue() bool {
	return f.HasHeading || f.HasQuestionLabel || f.HasQuestionMark
}

var (
	headingLine    = regexp.MustCompile(`^\s{0,3}#{1,6}\s+\S`)
	separatorLine  = regexp.MustCompile(`^\s*(?:-{3,}|={3,}|\*{3,})\s*$`)
	clozeSpan      = regexp.MustCompile(`\{\{c\d+::|==[^=\n]+==`)
	optionLine     = regexp.MustCompile(`^\s*(?:[-*+]\s+)?\(?(?:[A-Ha-hＡ-Ｈ]|[1-9])[.)．）:：、]\s*\S`)
	secondLine     = regexp.MustCompile(`^\s*(?:[-*+]\s+)?\(?(?:[Bb]|Ｂ|2)[.)．）:：、]\s*\S`)
	answerLine     = regexp.MustCompile(`(?i)^\s*\**\s*(?:correct answer|answer|ans|正确答案|答案|正解)\s*\**\s*[:：]`)
	definitionLead = regexp.MustCompile(`(?i)^[^\n]{1,80}?\s(?:is|are|means|refers to|denotes)\s|::|^[^\n]{1,40}?\s[-–—]\s`)
)

// definitionStems are stemmed words that mark a definition card
var definitionStems = map[string]struct{}{
	"defin":      {},
	"definit":    {},
	"mean":       {},
	"term":       {},
	"concept":    {},
	"denot":      {},
	"glossari":   {},
	"vocabulari": {},
}

var tokenRegex = regexp.MustCompile(`\b[a-zA-Z]+\b`)

var chars = counter.NewCharCounter()

// Analyze extracts the structural features of content.
func Analyze(content string) Features {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	f := Features{
		Empty:    strings.TrimSpace(content) == "",
		Chars:    chars.Count(content),
		Language: language.Detect(content),
	}
	if f.Empty {
		return f
	}

	inParagraph := false
	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		f.Lines++
		if strings.TrimSpace(line) == "" {
			inParagraph = false
			continue
		}
		if !inParagraph {
			f.Paragraphs++
			inParagraph = true
		}

		switch {
		case separatorLine.MatchString(line):
			f.HasSeparator = true
		case headingLine.MatchString(line):
			f.HasHeading = true
		case language.AnyQuestionLine(line):
			f.HasQuestionLabel = true
		case answerLine.MatchString(line):
			f.HasAnswerLine = true
			f.HasAnswerLabel = true
		case optionLine.MatchString(line):
			f.OptionLines++
			if secondLine.MatchString(line) {
				f.secondOption = true
			}
		}
		if _, ok := language.StripAnyAnswerMarker(line); ok {
			f.HasAnswerLabel = true
		}
		if language.EndsWithQuestionMark(line) {
			f.HasQuestionMark = true
		}
	}

	f.HasCloze = clozeSpan.MatchString(content)
	f.HasDefinitionCue = definitionLead.MatchString(content) || hasDefinitionWord(content)
	return f
}

func hasDefinitionWord(content string) bool {
	for _, token := range tokenRegex.FindAllString(strings.ToLower(content), -1) {
		if _, ok := definitionStems[stemWord(token)]; ok {
			return true
		}
	}
	return false
}

// FallbackTemplate picks the template id a note should fall back to when no
// pattern recognized it. Empty notes always get the emergency template.
func FallbackTemplate(f Features) string {
	switch {
	case f.Empty:
		return TemplateEmergency
	case f.HasCloze:
		return TemplateCloze
	case f.HasOptions():
		return TemplateChoice
	case f.HasDefinitionCue && !f.HasQuestionMark:
		return TemplateDefinition
	case f.Chars > LongNoteChars:
		return TemplateLongNote
	default:
		return TemplateBasic
	}
}

// RepairSuggestions returns hints an author can follow to make the note
// recognizable. The result is never empty.
func RepairSuggestions(f Features) []string {
	if f.Empty {
		return []string{"the note is empty: add a question and an answer"}
	}

	var out []string
	if !f.HasQuestionCue() {
		out = append(out, "start the question with a heading (## ...) or a \"Q:\" label")
	}
	if f.HasQuestionLabel && !f.HasAnswerLabel {
		out = append(out, "mark the answer with an \"A:\" label")
	}
	if f.HasOptions() && !f.HasAnswerLine {
		out = append(out, "add an \"Answer: B\" line after the options")
	}
	if f.Lines == 1 && !f.HasCloze {
		out = append(out, "put the answer on its own line after the question")
	}
	if f.Lines > 1 && f.Paragraphs < 2 && !f.HasSeparator && !f.HasHeading {
		out = append(out, "use a blank line between fields")
	}
	if f.Chars > LongNoteChars {
		out = append(out, "split long notes into one card per heading")
	}
	if len(out) == 0 {
		out = append(out, "use a blank line or a --- separator between question and answer")
	}
	return out
}
