// Package language provides per-language marker and keyword tables used to
// recognize question/answer structure in notes.
//
// Each PatternSet bundles the question labels, answer labels, separators and
// question words of one language. English question words are compared after
// snowball stemming so "defines", "definition" and "define" share one cue.
package language

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
)

// Language identifies a marker table.
type Language string

const (
	English  Language = "en"
	Chinese  Language = "zh"
	Japanese Language = "ja"
)

// PatternSet holds the markers of one language.
type PatternSet struct {
	Language        Language
	QuestionMarkers []*regexp.Regexp
	AnswerMarkers   []*regexp.Regexp
	Separators      []string
	QuestionWords   []string
	TagLabels       []string

	// stems holds stemmed question words for languages with word boundaries
	stems map[string]struct{}
}

// label builds a line-prefix matcher for "Label:" style markers, tolerating bold
// wrapping, numbering and full-width colons.
func label(words string) *regexp.Regexp {
	return regexp.MustCompile(`^\s*(?:[-*+]\s+)?\**\s*(?i:` + words + `)\s*\d*\s*\**\s*[:：]\s*\**\s*`)
}

var sets = []*PatternSet{
	{
		Language: English,
		QuestionMarkers: []*regexp.Regexp{
			label(`q|question|prompt|front`),
			regexp.MustCompile(`^\s*\**Q\d*\.\**\s+`),
		},
		AnswerMarkers: []*regexp.Regexp{
			label(`a|ans|answer|back|response`),
			regexp.MustCompile(`^\s*\**A\d*\.\**\s+`),
		},
		Separators:    []string{"---", "===", "?", "::"},
		QuestionWords: []string{"what", "why", "how", "when", "where", "which", "who", "whom", "whose", "define", "explain", "describe", "list", "name", "compare", "is", "are", "does", "do", "can"},
		TagLabels:     []string{"tags", "tag"},
	},
	{
		Language: Chinese,
		QuestionMarkers: []*regexp.Regexp{
			label(`问题|问|题目|提问|题`),
		},
		AnswerMarkers: []*regexp.Regexp{
			label(`答案|答|解答|回答|解析`),
		},
		Separators:    []string{"---", "==="},
		QuestionWords: []string{"什么", "为什么", "怎么", "怎样", "如何", "哪", "谁", "多少", "几", "吗", "呢", "是否"},
		TagLabels:     []string{"标签"},
	},
	{
		Language: Japanese,
		QuestionMarkers: []*regexp.Regexp{
			label(`質問|問題|問い|問`),
		},
		AnswerMarkers: []*regexp.Regexp{
			label(`答え|回答|解答|答`),
		},
		Separators:    []string{"---", "==="},
		QuestionWords: []string{"何", "なぜ", "どう", "どの", "どこ", "いつ", "誰", "ですか", "か？"},
		TagLabels:     []string{"タグ"},
	},
}

func init() {
	for _, s := range sets {
		if s.Language != English {
			continue
		}
		s.stems = make(map[string]struct{}, len(s.QuestionWords))
		for _, w := range s.QuestionWords {
			s.stems[stem(w)] = struct{}{}
		}
	}
}

// stem reduces an English word to its snowball stem, falling back to the
// lowercased word.
func stem(word string) string {
	word = strings.ToLower(word)
	stemmed, err := snowball.Stem(word, "english", true)
	if err != nil || stemmed == "" {
		return word
	}
	return stemmed
}

// All returns every pattern set, English first.
func All() []*PatternSet {
	return sets
}

// For returns the pattern set of lang, defaulting to English.
func For(lang Language) *PatternSet {
	for _, s := range sets {
		if s.Language == lang {
			return s
		}
	}
	return sets[0]
}

// Detect guesses the dominant language of text from its script mix.
func Detect(text string) Language {
	var han, kana, letters int
	for _, r := range text {
		switch {
		case unicode.In(r, unicode.Hiragana, unicode.Katakana):
			kana++
			letters++
		case unicode.Is(unicode.Han, r):
			han++
			letters++
		case unicode.IsLetter(r):
			letters++
		}
	}
	if letters == 0 {
		return English
	}
	if kana > 0 && float64(kana+han)/float64(letters) > 0.3 {
		return Japanese
	}
	if float64(han)/float64(letters) > 0.3 {
		return Chinese
	}
	return English
}

// IsQuestionLine reports whether line starts with one of the set's question labels.
func (s *PatternSet) IsQuestionLine(line string) bool {
	_, ok := s.StripQuestionMarker(line)
	return ok
}

// IsAnswerLine reports whether line starts with one of the set's answer labels.
func (s *PatternSet) IsAnswerLine(line string) bool {
	_, ok := s.StripAnswerMarker(line)
	return ok
}

// StripQuestionMarker removes a leading question label from line.
func (s *PatternSet) StripQuestionMarker(line string) (string, bool) {
	return stripFirst(s.QuestionMarkers, line)
}

// StripAnswerMarker removes a leading answer label from line.
func (s *PatternSet) StripAnswerMarker(line string) (string, bool) {
	return stripFirst(s.AnswerMarkers, line)
}

func stripFirst(markers []*regexp.Regexp, line string) (string, bool) {
	for _, re := range markers {
		if loc := re.FindStringIndex(line); loc != nil {
			return strings.TrimSpace(line[loc[1]:]), true
		}
	}
	return line, false
}

// HasQuestionWord reports whether text contains one of the set's question words.
// English text is checked on its leading word only, where interrogatives sit.
func (s *PatternSet) HasQuestionWord(text string) bool {
	if s.stems != nil {
		words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && r != '\''
		})
		if len(words) == 0 {
			return false
		}
		_, ok := s.stems[stem(words[0])]
		return ok
	}
	for _, w := range s.QuestionWords {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// IsTagLine reports whether line is a "Tags: a, b" label line and returns the value.
func (s *PatternSet) IsTagLine(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	for _, l := range s.TagLabels {
		for _, sep := range []string{":", "："} {
			prefix := l + sep
			if len(trimmed) >= len(prefix) && strings.EqualFold(trimmed[:len(prefix)], prefix) {
				return strings.TrimSpace(trimmed[len(prefix):]), true
			}
		}
	}
	return "", false
}

// AnyQuestionLine reports whether line carries a question label in any language.
func AnyQuestionLine(line string) bool {
	for _, s := range sets {
		if s.IsQuestionLine(line) {
			return true
		}
	}
	return false
}

// StripAnyQuestionMarker strips a question label of any language.
func StripAnyQuestionMarker(line string) (string, bool) {
	for _, s := range sets {
		if out, ok := s.StripQuestionMarker(line); ok {
			return out, true
		}
	}
	return line, false
}

// StripAnyAnswerMarker strips an answer label of any language.
func StripAnyAnswerMarker(line string) (string, bool) {
	for _, s := range sets {
		if out, ok := s.StripAnswerMarker(line); ok {
			return out, true
		}
	}
	return line, false
}

// EndsWithQuestionMark reports whether text ends in a half- or full-width question mark.
func EndsWithQuestionMark(text string) bool {
	text = strings.TrimRight(strings.TrimSpace(text), "*_")
	return strings.HasSuffix(text, "?") || strings.HasSuffix(text, "？")
}

// LooksLikeQuestion reports whether text reads as a question in its detected language.
func LooksLikeQuestion(text string) bool {
	if EndsWithQuestionMark(text) {
		return true
	}
	return For(Detect(text)).HasQuestionWord(text)
}
