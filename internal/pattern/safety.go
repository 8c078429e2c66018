package pattern

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// Defaults for the complexity screen.
const (
	DefaultBudget       = 1000 * time.Millisecond
	DefaultWarnLength   = 500
	DefaultRejectLength = 4000
)

// SafetyValidator screens user supplied expressions for catastrophic
// backtracking. It combines a static scan for known ReDoS shapes with a run of
// adversarial inputs under a hard wall-clock budget.
type SafetyValidator struct {
	// Budget bounds each adversarial match.
	Budget       time.Duration
	WarnLength   int
	RejectLength int
}

// NewSafetyValidator returns a validator with the default budget and limits.
func NewSafetyValidator() *SafetyValidator {
	return &SafetyValidator{
		Budget:       DefaultBudget,
		WarnLength:   DefaultWarnLength,
		RejectLength: DefaultRejectLength,
	}
}

// Check screens expr and returns every finding. Any critical finding means
// the expression must be rejected.
func (v *SafetyValidator) Check(expr string, opts regexp2.RegexOptions) []Finding {
	var findings []Finding

	n := utf8.RuneCountInString(expr)
	switch {
	case v.RejectLength > 0 && n > v.RejectLength:
		findings = append(findings, Finding{CodeLength, SeverityCritical,
			fmt.Sprintf("expression is %d characters, limit is %d", n, v.RejectLength)})
		return findings
	case v.WarnLength > 0 && n > v.WarnLength:
		findings = append(findings, Finding{CodeLength, SeverityWarning,
			fmt.Sprintf("expression is %d characters", n)})
	}

	findings = append(findings, scanStructure(expr)...)
	if strings.Contains(expr, ".*.*") || strings.Contains(expr, ".+.+") || strings.Contains(expr, ".*?.*") {
		findings = append(findings, Finding{CodeAdjacentWildcards, SeverityWarning,
			"adjacent wildcards backtrack against each other"})
	}

	// the static scan already proves the shape is unsafe
	if hasCritical(findings) {
		return findings
	}

	re, err := regexp2.Compile(expr, opts)
	if err != nil {
		return append(findings, Finding{CodeSyntax, SeverityCritical, err.Error()})
	}
	re.MatchTimeout = v.Budget

	for _, input := range adversarialInputs(expr) {
		if elapsed, err := v.run(re, input); err != nil {
			slog.Debug("Adversarial input exceeded budget", "length", len(input), "elapsed", elapsed, "error", err)
			findings = append(findings, Finding{CodeTimeout, SeverityCritical,
				fmt.Sprintf("matching a %d character adversarial input exceeded %s", len(input), v.Budget)})
			break
		}
	}
	return findings
}

var errBudget = errors.New("match budget exceeded")

// run matches one input. regexp2 enforces MatchTimeout itself; the timer is a
// backstop so a runaway match can never hold the caller past the budget.
func (v *SafetyValidator) run(re *regexp2.Regexp, input string) (time.Duration, error) {
	start := time.Now()
	done := make(chan error, 1)
	go func() {
		_, err := re.MatchString(input)
		done <- err
	}()

	timer := time.NewTimer(v.Budget + v.Budget/2)
	defer timer.Stop()
	select {
	case err := <-done:
		return time.Since(start), err
	case <-timer.C:
		return time.Since(start), errBudget
	}
}

// adversarialInputs builds strings that provoke backtracking: long repeats of
// the expression's own literals followed by a character that forces failure,
// partial matches and the empty string.
func adversarialInputs(expr string) []string {
	inputs := []string{
		"",
		strings.Repeat("a", 64) + "!",
		strings.Repeat("1", 64) + "!",
		strings.Repeat(" ", 64) + "\x00",
		strings.Repeat("\n", 64) + "!",
		strings.Repeat("ab", 48) + "\x00",
		strings.Repeat("## x\n", 24) + "\x00",
		strings.Repeat("Q: a\nA: b\n", 16) + "\x00",
	}

	seen := map[rune]bool{}
	for _, r := range literals(expr) {
		if seen[r] || len(seen) >= 8 {
			continue
		}
		seen[r] = true
		inputs = append(inputs, strings.Repeat(string(r), 64)+"\x00")
	}
	return inputs
}

// literals returns the unescaped literal runes of expr.
func literals(expr string) []rune {
	var out []rune
	escaped := false
	for _, r := range expr {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case strings.ContainsRune("()[]{}|*+?.^$", r):
		default:
			out = append(out, r)
		}
	}
	return out
}

// frame tracks one open group during the structural scan.
type frame struct {
	quantified bool // holds an unbounded quantifier somewhere inside
	altStart   int
	alts       []string
}

// scanStructure walks expr once and reports nested unbounded quantifiers,
// such as (a+)+ or (a*)*, and quantified groups whose alternatives overlap,
// such as (a|a)*.
func scanStructure(expr string) []Finding {
	var findings []Finding
	rs := []rune(expr)
	stack := []*frame{{}}

	for i := 0; i < len(rs); i++ {
		switch rs[i] {
		case '\\':
			i++
		case '[':
			i = skipClass(rs, i)
		case '(':
			stack = append(stack, &frame{altStart: i + 1})
			if i+1 < len(rs) && rs[i+1] == '?' {
				// group modifiers such as (?: (?= (?<name> are not quantifiers
				i++
				stack[len(stack)-1].altStart = i + 1
			}
		case '|':
			top := stack[len(stack)-1]
			top.alts = append(top.alts, string(rs[top.altStart:i]))
			top.altStart = i + 1
		case '*', '+':
			if i > 0 && rs[i-1] != '(' {
				stack[len(stack)-1].quantified = true
			}
		case '{':
			if end, unbounded, ok := parseBraces(rs, i); ok {
				if unbounded {
					stack[len(stack)-1].quantified = true
				}
				i = end
			}
		case ')':
			if len(stack) == 1 {
				continue
			}
			top := stack[len(stack)-1]
			top.alts = append(top.alts, string(rs[top.altStart:i]))
			stack = stack[:len(stack)-1]

			outer := unboundedAt(rs, i+1)
			if outer && top.quantified {
				findings = append(findings, Finding{CodeNestedQuantifier, SeverityCritical,
					fmt.Sprintf("group ending at offset %d repeats an inner unbounded quantifier", i)})
			}
			if outer && len(top.alts) > 1 {
				findings = append(findings, overlapFindings(top.alts, i)...)
			}
			if top.quantified || outer {
				stack[len(stack)-1].quantified = true
			}
		}
	}
	return findings
}

func overlapFindings(alts []string, offset int) []Finding {
	seen := map[string]bool{}
	first := map[rune]bool{}
	var out []Finding
	for _, a := range alts {
		if seen[a] {
			return []Finding{{CodeOverlappingAlternate, SeverityCritical,
				fmt.Sprintf("repeated group ending at offset %d has duplicate alternative %q", offset, a)}}
		}
		seen[a] = true
		if r, _ := utf8.DecodeRuneInString(a); r != utf8.RuneError && a != "" {
			if first[r] && len(out) == 0 {
				out = append(out, Finding{CodeOverlappingAlternate, SeverityWarning,
					fmt.Sprintf("repeated group ending at offset %d has alternatives sharing a prefix", offset)})
			}
			first[r] = true
		}
	}
	return out
}

// unboundedAt reports whether an unbounded quantifier starts at rs[i].
func unboundedAt(rs []rune, i int) bool {
	if i >= len(rs) {
		return false
	}
	switch rs[i] {
	case '*', '+':
		return true
	case '{':
		_, unbounded, ok := parseBraces(rs, i)
		return ok && unbounded
	}
	return false
}

// parseBraces parses a {n}, {n,} or {n,m} quantifier starting at rs[i]. A
// brace that is not a quantifier is a literal and reports ok=false.
func parseBraces(rs []rune, i int) (end int, unbounded bool, ok bool) {
	digits, comma, after := 0, false, 0
	for j := i + 1; j < len(rs); j++ {
		switch {
		case rs[j] >= '0' && rs[j] <= '9':
			if comma {
				after++
			} else {
				digits++
			}
		case rs[j] == ',' && !comma:
			comma = true
		case rs[j] == '}':
			if digits == 0 {
				return i, false, false
			}
			return j, comma && after == 0, true
		default:
			return i, false, false
		}
	}
	return i, false, false
}

// skipClass returns the index of the bracket closing the class opened at rs[i].
func skipClass(rs []rune, i int) int {
	j := i + 1
	if j < len(rs) && rs[j] == '^' {
		j++
	}
	if j < len(rs) && rs[j] == ']' {
		j++
	}
	for ; j < len(rs); j++ {
		switch rs[j] {
		case '\\':
			j++
		case ']':
			return j
		}
	}
	return len(rs) - 1
}
