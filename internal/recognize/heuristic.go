package recognize

import (
	"log/slog"
	"strings"

	"github.com/jdkato/prose/v2"

	"github.com/chriscorrea/notecard/internal/card"
	"github.com/chriscorrea/notecard/internal/language"
)

// Heuristic confidence components.
const (
	heuristicBase     = 0.35
	heuristicMark     = 0.1
	heuristicWord     = 0.05
	heuristicSentence = 0.05
)

// keywordHeuristic looks for a question-like line or sentence without any
// structural cue.
type keywordHeuristic struct{}

// NewKeywordHeuristic returns the last-resort strategy. It finds the first
// line that reads as a question and treats what follows as the answer; a
// single paragraph is split into sentences first.
func NewKeywordHeuristic() ParseStrategy {
	return keywordHeuristic{}
}

func (keywordHeuristic) Name() string { return KeywordHeuristic }

func (keywordHeuristic) Execute(in Input) card.Attempt {
	text := strings.TrimSpace(in.Content)
	if text == "" {
		return card.Failure(KeywordHeuristic, "content is empty")
	}

	lines := nonBlank(strings.Split(text, "\n"))
	if q, a, ok := splitAtQuestion(lines, "\n"); ok {
		return heuristicAttempt(q, a, false)
	}

	if len(lines) == 1 || !strings.Contains(text, "\n\n") {
		sentences := splitSentences(strings.Join(lines, " "), in.Language)
		if q, a, ok := splitAtQuestion(sentences, " "); ok {
			return heuristicAttempt(q, a, true)
		}
	}
	return card.Failure(KeywordHeuristic, "no line or sentence reads as a question")
}

func heuristicAttempt(question, answer string, sentence bool) card.Attempt {
	fields := qaFields(question, answer)
	conf := heuristicBase
	if language.EndsWithQuestionMark(question) {
		conf += heuristicMark
	}
	if language.For(language.Detect(question)).HasQuestionWord(question) {
		conf += heuristicWord
	}
	if !sentence {
		conf += heuristicSentence
	}
	return card.Attempt{
		Strategy:   KeywordHeuristic,
		Outcome:    outcome(fields, qaNames),
		Method:     card.Intelligent,
		Fields:     fields,
		Confidence: conf,
		Warnings:   append([]string{"question guessed from wording"}, emptyFieldWarnings(fields, qaNames)...),
	}
}

// splitAtQuestion returns the first part that looks like a question and
// everything after it.
func splitAtQuestion(parts []string, sep string) (string, string, bool) {
	for i, p := range parts {
		if i == len(parts)-1 {
			break
		}
		if language.LooksLikeQuestion(p) {
			return p, strings.Join(parts[i+1:], sep), true
		}
	}
	return "", "", false
}

func nonBlank(lines []string) []string {
	out := lines[:0:0]
	for _, l := range lines {
		if s := strings.TrimSpace(l); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// splitSentences segments text. English goes through prose's sentence
// tokenizer; CJK text is cut after sentence-final punctuation.
func splitSentences(text string, lang language.Language) []string {
	if lang != language.English {
		return splitCJK(text)
	}
	doc, err := prose.NewDocument(text,
		prose.WithTokenization(false),
		prose.WithTagging(false),
		prose.WithExtraction(false))
	if err != nil {
		slog.Debug("Sentence segmentation failed", "error", err)
		return []string{text}
	}
	var out []string
	for _, s := range doc.Sentences() {
		if t := strings.TrimSpace(s.Text); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func splitCJK(text string) []string {
	var out []string
	var cur strings.Builder
	for _, r := range text {
		cur.WriteRune(r)
		switch r {
		case '。', '！', '？', '?', '!':
			if s := strings.TrimSpace(cur.String()); s != "" {
				out = append(out, s)
			}
			cur.Reset()
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		out = append(out, s)
	}
	return out
}
