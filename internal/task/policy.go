package task

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/nibzard/atomgraph-go/internal/errs"
)

// Policy holds the atomicity heuristics a task must satisfy: small, specific
// and verifiable.
type Policy struct {
	// Strict makes New reject tasks that fail Check. When false, callers are
	// expected to run Check themselves and report the result as a warning.
	Strict bool
	// MinTitleWords and MaxTitleWords bound the title length in words.
	MinTitleWords int
	MaxTitleWords int
	// MaxItems caps success criteria plus deliverables.
	MaxItems int
	// ActionVerbs are the accepted first words of a title.
	ActionVerbs []string
	// SubjectiveWords flag criteria that cannot be measured unless the
	// criterion also contains a number.
	SubjectiveWords []string
}

// DefaultActionVerbs returns the built-in action verbs.
func DefaultActionVerbs() []string {
	return []string{
		"add", "build", "change", "check", "clean", "configure", "convert",
		"create", "define", "delete", "deploy", "design", "document", "drop",
		"enable", "disable", "extract", "fix", "generate", "handle", "implement",
		"improve", "integrate", "introduce", "load", "log", "measure", "merge",
		"migrate", "move", "optimize", "parse", "persist", "port", "refactor",
		"release", "remove", "rename", "replace", "report", "resolve", "restore",
		"return", "review", "rewrite", "save", "set", "ship", "split", "store",
		"support", "test", "update", "upgrade", "validate", "verify", "wire", "write",
	}
}

// DefaultSubjectiveWords returns the built-in vague-wording list.
func DefaultSubjectiveWords() []string {
	return []string{
		"good", "nice", "better", "best", "properly", "proper", "clean",
		"easy", "easily", "user-friendly", "appropriate", "appropriately",
		"robust", "fast", "faster", "intuitive", "well", "reasonable",
		"simple", "efficient", "adequate",
	}
}

// DefaultPolicy returns the strict built-in policy.
func DefaultPolicy() Policy {
	return Policy{
		Strict:          true,
		MinTitleWords:   2,
		MaxTitleWords:   12,
		MaxItems:        12,
		ActionVerbs:     DefaultActionVerbs(),
		SubjectiveWords: DefaultSubjectiveWords(),
	}
}

// Check applies the atomicity heuristics and returns a PolicyViolation error
// listing every finding.
func (p Policy) Check(t *Task) error {
	v := p.Findings(t)
	if len(v) > 0 {
		return errs.Policy("task.policy", t.ID, v...)
	}
	return nil
}

// Findings returns the policy violations of t without wrapping them.
func (p Policy) Findings(t *Task) []errs.Violation {
	var v []errs.Violation
	add := func(path, format string, args ...any) {
		v = append(v, errs.Violation{Path: path, Msg: fmt.Sprintf(format, args...)})
	}

	words := strings.Fields(t.Title)
	if p.MinTitleWords > 0 && len(words) < p.MinTitleWords {
		add("title", "too vague: use at least %d words", p.MinTitleWords)
	}
	if p.MaxTitleWords > 0 && len(words) > p.MaxTitleWords {
		add("title", "too broad: use at most %d words", p.MaxTitleWords)
	}
	if len(words) > 0 && len(p.ActionVerbs) > 0 {
		first := strings.ToLower(strings.TrimFunc(words[0], notWordRune))
		if !slices.Contains(p.ActionVerbs, first) {
			add("title", "must start with an action verb, got %q", words[0])
		}
	}

	for i, c := range t.SuccessCriteria {
		if word, ok := p.subjective(c.Text); ok {
			add(fmt.Sprintf("success_criteria[%d].text", i),
				"subjective wording %q without a measurable target", word)
		}
	}

	if n := len(t.SuccessCriteria) + len(t.Deliverables); p.MaxItems > 0 && n > p.MaxItems {
		add("", "task has %d criteria and deliverables, split it (max %d)", n, p.MaxItems)
	}
	return v
}

// CheckCriterion applies the criterion heuristics to a single text.
func (p Policy) CheckCriterion(text string) error {
	if word, ok := p.subjective(text); ok {
		return errs.Policy("task.policy", "", errs.Violation{
			Path: "text",
			Msg:  fmt.Sprintf("subjective wording %q without a measurable target", word),
		})
	}
	return nil
}

// subjective returns the first subjective word in text, unless the text
// carries a number that makes it measurable.
func (p Policy) subjective(text string) (string, bool) {
	if strings.IndexFunc(text, unicode.IsDigit) >= 0 {
		return "", false
	}
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.TrimFunc(w, notWordRune)
		if slices.Contains(p.SubjectiveWords, w) {
			return w, true
		}
	}
	return "", false
}

func notWordRune(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
}
