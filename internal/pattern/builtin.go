package pattern

import (
	"strconv"
	"strings"

	"github.com/chriscorrea/notecard/internal/card"
)

// Ids of the built-in patterns.
const (
	H1QA              = "h1-qa"
	H2QA              = "h2-qa"
	H3QA              = "h3-qa"
	HeadingQA         = "heading-qa"
	QAColonEnglish    = "qa-colon-en"
	QAColonChinese    = "qa-colon-zh"
	QAColonJapanese   = "qa-colon-ja"
	Choice            = "choice"
	SeparatorQA       = "separator"
	InlineDoubleColon = "inline-double-colon"
	BoldLabel         = "bold-label"
	Cloze             = "cloze"
	QuestionLine      = "question-line"
	InlineQuestion    = "inline-question"
	ParagraphSplit    = "paragraph-split"
)

// labelLead matches a "Label:" line prefix, tolerating list bullets, bold
// wrapping, numbering and full-width colons.
func labelLead(words string) string {
	return `[ \t]*(?:[-*+][ \t]+)?(?:\*\*)?(?:` + words + `)[ \t]*\d*[ \t]*(?:\*\*)?[ \t]*[:：][ \t]*(?:\*\*)?[ \t]*`
}

// labeledQA builds a question/answer label pattern. The answer stops before
// the next question label so stacked pairs are not merged.
func labeledQA(question, answer string) string {
	q := labelLead(question)
	return `^` + q + `([\s\S]+?)\s*\n` + labelLead(answer) + `([\s\S]+?)\s*(?=\n` + q + `|\z)`
}

// unstructured rejects content that opens with a heading or a question label,
// leaving it to the structural patterns.
const unstructured = `(?![ \t]*(?:#|(?:\*\*)?(?:(?i:q|question)|问题|问|質問|問題)[ \t]*\d*[ \t]*(?:\*\*)?[ \t]*[:：]))`

// headingQA builds a question pattern for one heading level. The answer
// stops before the next heading at the same or a shallower level.
func headingQA(level int) string {
	return `^` + strings.Repeat("#", level) + `[ \t]+(.+?)[ \t#]*\n+([\s\S]+?)\s*(?=\n#{1,` + strconv.Itoa(level) + `}[ \t]|\z)`
}

// anyHeadingQA captures the hashes in group 1 so the answer can stop at a
// heading that is not deeper than the question's own.
const anyHeadingQA = `^(#{1,6})[ \t]+(.+?)[ \t#]*\n+([\s\S]+?)\s*(?=\n(?!\1#)#{1,6}[ \t]|\z)`

var qaMapping = map[string]int{card.FieldQuestion: 1, card.FieldAnswer: 2}

func qa() map[string]int {
	m := make(map[string]int, len(qaMapping))
	for k, v := range qaMapping {
		m[k] = v
	}
	return m
}

// Builtins returns the built-in pattern set. Each call returns fresh values.
func Builtins() []ContentPattern {
	return []ContentPattern{
		{
			ID: H1QA, Name: "Level 1 heading question",
			Regex:        headingQA(1),
			FieldMapping: qa(), Priority: 100, BaseConfidence: 0.95, Category: CategoryHeading,
			Examples: []string{"# What is X?\n\nX is Y."},
		},
		{
			ID: H2QA, Name: "Level 2 heading question",
			Regex:        headingQA(2),
			FieldMapping: qa(), Priority: 100, BaseConfidence: 0.95, Category: CategoryHeading,
			Examples: []string{"## What is X?\n\nX is Y."},
		},
		{
			ID: H3QA, Name: "Level 3 heading question",
			Regex:        headingQA(3),
			FieldMapping: qa(), Priority: 99, BaseConfidence: 0.93, Category: CategoryHeading,
			Examples: []string{"### What is X?\nX is Y."},
		},
		{
			ID: QAColonEnglish, Name: "Q:/A: labels",
			Regex:        labeledQA(`(?i:q|question|prompt|front)`, `(?i:a|ans|answer|back|response)`),
			FieldMapping: qa(), Priority: 98, BaseConfidence: 0.95, Category: CategoryLabel,
			Examples: []string{"Q: What is Y?\nA: Y is Z."},
		},
		{
			ID: QAColonChinese, Name: "问题/答案 labels",
			Regex:        labeledQA(`问题|题目|提问|问|题`, `答案|解答|回答|解析|答`),
			FieldMapping: qa(), Priority: 98, BaseConfidence: 0.95, Category: CategoryLabel,
			Examples: []string{"问题:什么是递归？\n\n答案:函数调用自身。"},
		},
		{
			ID: QAColonJapanese, Name: "質問/答え labels",
			Regex:        labeledQA(`質問|問題|問い|問`, `答え|回答|解答|答`),
			FieldMapping: qa(), Priority: 97, BaseConfidence: 0.95, Category: CategoryLabel,
			Examples: []string{"質問: 再帰とは？\n答え: 自分自身を呼ぶこと。"},
		},
		{
			ID: Choice, Name: "Multiple choice with answer line",
			Regex: `^([\s\S]+?)\s*\n((?:[ \t]*(?:[A-Ha-h]|[1-9])[.)．）:：、][ \t]*[^\n]+\n)+)\s*` +
				`(?:\*\*)?(?i:correct answer|correct|answer|ans|正确答案|答案|正解)(?:\*\*)?[ \t]*[:：][ \t]*(?:\*\*)?` +
				`([A-Ha-h1-9](?:[ \t]*[,，;；、 ][ \t]*[A-Ha-h1-9])*)(?:\*\*)?\s*\z`,
			FieldMapping: map[string]int{card.FieldQuestion: 1, card.FieldOptions: 2, card.FieldCorrectAnswer: 3},
			Priority:     96, BaseConfidence: 0.9, Category: CategoryChoice,
			Examples: []string{"Capital of France?\nA. Paris\nB. London\nAnswer: A"},
		},
		{
			ID: HeadingQA, Name: "Any heading question",
			Regex:        anyHeadingQA,
			FieldMapping: map[string]int{card.FieldQuestion: 2, card.FieldAnswer: 3},
			Priority:     80, BaseConfidence: 0.85, Category: CategoryHeading,
			Examples: []string{"#### Deep heading\nBody."},
		},
		{
			ID: SeparatorQA, Name: "Front/back separated by a rule",
			Regex:        `^([\s\S]+?)\s*\n[ \t]*(?:-{3,}|={3,}|\*{3,})[ \t]*\n\s*([\s\S]+?)\s*\z`,
			FieldMapping: qa(), Priority: 75, BaseConfidence: 0.85, Category: CategorySeparator,
			Examples: []string{"Front text\n---\nBack text"},
		},
		{
			ID: InlineDoubleColon, Name: "term :: definition",
			Regex:        `^(?![\s\S]*\{\{c\d+::)[ \t]*([^\n]+?)[ \t]*::[ \t]*([^\n]+?)\s*\z`,
			FieldMapping: qa(), Priority: 72, BaseConfidence: 0.85, Category: CategoryInline,
			Examples: []string{"Mitochondria :: powerhouse of the cell"},
		},
		{
			ID: BoldLabel, Name: "Bold question line",
			Regex:        `^[ \t]*\*\*([^\n]+?)\*\*[ \t]*\n+([\s\S]+?)\s*\z`,
			FieldMapping: qa(), Priority: 70, BaseConfidence: 0.8, Category: CategoryLabel,
			Examples: []string{"**What is X?**\nX is Y."},
		},
		{
			ID: Cloze, Name: "Cloze deletion",
			Regex:        `^([\s\S]*?(?:\{\{c\d+::[\s\S]+?\}\}|==[^=\n]+==)[\s\S]*)\z`,
			FieldMapping: map[string]int{card.FieldText: 1},
			Priority:     65, BaseConfidence: 0.85, Category: CategoryCloze,
			Examples: []string{"The capital of France is {{c1::Paris}}."},
		},
		{
			ID: QuestionLine, Name: "Question line then answer",
			Regex:        `^` + unstructured + `([^\n]+?[?？])[ \t]*\n+([\s\S]+?)\s*\z`,
			FieldMapping: qa(), Priority: 60, BaseConfidence: 0.75, Category: CategoryHeuristic,
			Examples: []string{"Why is the sky blue?\nRayleigh scattering."},
		},
		{
			ID: InlineQuestion, Name: "Question and answer on one line",
			Regex:        `^` + unstructured + `([^\n?？]+[?？])[ \t]+([^\n]+?)\s*\z`,
			FieldMapping: qa(), Priority: 55, BaseConfidence: 0.6, Category: CategoryHeuristic,
			Examples: []string{"What is 2+2? Four."},
		},
		{
			ID: ParagraphSplit, Name: "First paragraph line then body",
			Regex:        `^` + unstructured + `([^\n]+)\n[ \t]*\n\s*([\s\S]+?)\s*\z`,
			FieldMapping: qa(), Priority: 20, BaseConfidence: 0.5, Category: CategoryHeuristic,
			Examples: []string{"Topic\n\nLonger explanation."},
		},
	}
}
