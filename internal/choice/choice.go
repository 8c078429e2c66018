// Package choice parses the option lines and correct-answer notation of
// multiple-choice notes.
//
// Option lines take the form <label><punct><content> where the label is a
// letter or a number, half- or full-width, and the punctuation is one of
// . ) : 、 or their full-width forms. Upper-case letters and numbers may also
// be followed by a bare space. Labels are folded to a canonical id ("Ａ" and
// "a" both become "A") so answers match regardless of how they were typed.
//
// A broken label sequence is a warning, never an error: malformed but usable
// option sets are kept.
package choice

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

var (
	// ErrNoOptions is returned when the options text holds no option line.
	ErrNoOptions = errors.New("no options found")
	// ErrNoAnswer is returned when the correct-answer text is empty.
	ErrNoAnswer = errors.New("no correct answer given")
	// ErrUnknownLabel is wrapped by errors naming labels that match no option.
	ErrUnknownLabel = errors.New("unknown answer label")
)

// Option is one answer choice.
type Option struct {
	// ID is the canonical label: an upper-case ASCII letter or a decimal number.
	ID        string `json:"id"`
	Label     string `json:"label"`
	Content   string `json:"content"`
	IsCorrect bool   `json:"is_correct"`
}

// Options is the result of ParseOptions.
type Options struct {
	Options  []Option `json:"options"`
	Warnings []string `json:"warnings,omitempty"`
}

// Answer is the result of ParseCorrectAnswer.
type Answer struct {
	CorrectIDs []string `json:"correct_ids"`
	IsMultiple bool     `json:"is_multiple"`
}

// Question is a fully parsed multiple-choice field set.
type Question struct {
	Options    []Option `json:"options"`
	CorrectIDs []string `json:"correct_ids"`
	IsMultiple bool     `json:"is_multiple"`
	Warnings   []string `json:"warnings,omitempty"`
}

var (
	// punctuated labels: "A.", "b)", "3:", "Ｃ．", "(D)"
	punctLine = regexp.MustCompile(`^[ \t]*(?:[-*+][ \t]+)?\(?([A-Za-zＡ-Ｚａ-ｚ]|[0-9０-９]{1,2})[.)．）:：、][ \t]*(.*)$`)
	// bare labels: "A Paris", "1 Paris"
	bareLine = regexp.MustCompile(`^[ \t]*(?:[-*+][ \t]+)?([A-ZＡ-Ｚ]|[0-9０-９]{1,2})[ \t]+(\S.*)$`)

	answerLead = regexp.MustCompile(`^[ \t]*(?:\*\*)?(?i:correct answers?|answers?|ans|correct|正确答案|答案|正解)(?:\*\*)?[ \t]*[:：][ \t]*`)
	answerSep  = regexp.MustCompile(`[,，;；、/\s]+|\band\b|和|及`)
)

// canonical folds a label to its option id.
func canonical(label string) string {
	label = strings.TrimSpace(width.Narrow.String(label))
	label = strings.Trim(label, "()[]*.)")
	if n, err := strconv.Atoi(label); err == nil {
		return strconv.Itoa(n)
	}
	return strings.ToUpper(label)
}

// ParseOptions reads option lines from text. Lines that are not options
// continue the previous option's content; lines before the first option are
// reported and skipped.
func ParseOptions(text string) Options {
	var res Options
	for i, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		m := punctLine.FindStringSubmatch(raw)
		if m == nil {
			m = bareLine.FindStringSubmatch(raw)
			// "A city on the Seine" continues an option unless A comes next
			if m != nil && !nextLabel(res.Options, canonical(m[1])) {
				m = nil
			}
		}
		if m == nil {
			if n := len(res.Options); n > 0 {
				last := &res.Options[n-1]
				last.Content = strings.TrimSpace(last.Content + "\n" + strings.TrimSpace(raw))
				continue
			}
			res.Warnings = append(res.Warnings, fmt.Sprintf("line %d is not an option: %q", i+1, strings.TrimSpace(raw)))
			continue
		}
		res.Options = append(res.Options, Option{
			ID:      canonical(m[1]),
			Label:   m[1],
			Content: strings.TrimSpace(m[2]),
		})
	}
	res.Warnings = append(res.Warnings, continuity(res.Options)...)
	slog.Debug("Parsed choice options", "options", len(res.Options), "warnings", len(res.Warnings))
	return res
}

// continuity checks that labels run A, B, C... or 1, 2, 3... without gaps.
func continuity(opts []Option) []string {
	if len(opts) == 0 {
		return nil
	}
	var warnings []string
	numeric := isNumber(opts[0].ID)
	seen := make(map[string]bool, len(opts))
	for i, o := range opts {
		if isNumber(o.ID) != numeric {
			warnings = append(warnings, "options mix letter and number labels")
			return warnings
		}
		if seen[o.ID] {
			warnings = append(warnings, fmt.Sprintf("option label %s is repeated", o.ID))
		}
		seen[o.ID] = true

		want := expected(numeric, i)
		if o.ID == want {
			continue
		}
		if i == 0 {
			warnings = append(warnings, fmt.Sprintf("option labels start at %s, expected %s", o.ID, want))
		} else {
			warnings = append(warnings, fmt.Sprintf("option label %s follows %s, expected %s", o.ID, opts[i-1].ID, want))
		}
		return warnings
	}
	return warnings
}

// nextLabel reports whether id is the label that follows opts: A or 1 for
// the first option, then the successor of the last label.
func nextLabel(opts []Option, id string) bool {
	if len(opts) == 0 {
		return id == "A" || id == "1"
	}
	last := opts[len(opts)-1].ID
	if n, err := strconv.Atoi(last); err == nil {
		return id == strconv.Itoa(n+1)
	}
	return len(last) == 1 && id == string(rune(last[0]+1))
}

func expected(numeric bool, i int) string {
	if numeric {
		return strconv.Itoa(i + 1)
	}
	return string(rune('A' + i))
}

func isNumber(id string) bool {
	_, err := strconv.Atoi(id)
	return err == nil
}

// ParseCorrectAnswer resolves the correct-answer notation against options.
// It accepts a single label or a list separated by commas, semicolons,
// slashes, whitespace or their full-width forms, optionally led by an
// "Answer:" label. An answer that repeats an option's content verbatim
// selects that option. Labels matching no option are returned as an error
// wrapping ErrUnknownLabel alongside the ids that did resolve.
func ParseCorrectAnswer(text string, options []Option) (Answer, error) {
	text = strings.TrimSpace(answerLead.ReplaceAllString(strings.TrimSpace(text), ""))
	text = strings.Trim(text, "*")
	if text == "" {
		return Answer{}, ErrNoAnswer
	}

	byID := make(map[string]int, len(options))
	for i, o := range options {
		if _, dup := byID[o.ID]; !dup {
			byID[o.ID] = i
		}
	}

	for i, o := range options {
		if o.Content != "" && strings.EqualFold(o.Content, text) {
			return Answer{CorrectIDs: []string{options[i].ID}}, nil
		}
	}

	picked := make(map[string]bool)
	var unknown []string
	for _, tok := range answerSep.Split(width.Narrow.String(text), -1) {
		tok = strings.TrimFunc(tok, func(r rune) bool { return unicode.IsPunct(r) && r != '-' })
		if tok == "" {
			continue
		}
		id := canonical(tok)
		if _, ok := byID[id]; ok {
			picked[id] = true
			continue
		}
		unknown = append(unknown, tok)
	}

	// report in option order
	var ans Answer
	for _, o := range options {
		if picked[o.ID] {
			ans.CorrectIDs = append(ans.CorrectIDs, o.ID)
			delete(picked, o.ID)
		}
	}
	ans.IsMultiple = len(ans.CorrectIDs) > 1

	if len(unknown) > 0 {
		return ans, fmt.Errorf("%w: %s", ErrUnknownLabel, strings.Join(unknown, ", "))
	}
	if len(ans.CorrectIDs) == 0 {
		return ans, ErrNoAnswer
	}
	return ans, nil
}

// ParseChoiceQuestion parses options and the correct answer together and
// marks the correct options. The returned Question is usable even when an
// error reports unknown answer labels.
func ParseChoiceQuestion(optionsText, correctText string) (Question, error) {
	opts := ParseOptions(optionsText)
	q := Question{Options: opts.Options, Warnings: opts.Warnings}
	if len(q.Options) == 0 {
		return q, ErrNoOptions
	}

	ans, err := ParseCorrectAnswer(correctText, q.Options)
	q.CorrectIDs = ans.CorrectIDs
	q.IsMultiple = ans.IsMultiple

	correct := make(map[string]bool, len(ans.CorrectIDs))
	for _, id := range ans.CorrectIDs {
		correct[id] = true
	}
	// a repeated label is marked once, on its first option
	for i := range q.Options {
		id := q.Options[i].ID
		q.Options[i].IsCorrect = correct[id]
		delete(correct, id)
	}

	if err != nil {
		return q, fmt.Errorf("parsing correct answer: %w", err)
	}
	return q, nil
}
