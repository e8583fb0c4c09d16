package index

import (
	"strings"
	"unicode"

	"github.com/nibzard/atomgraph-go/internal/task"
)

// minTermLength drops single-character tokens.
const minTermLength = 2

// Tokenize lower-cases text and splits it on anything that is not a letter
// or digit. Duplicates are removed; order of first appearance is kept.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < minTermLength || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	return terms
}

// Terms returns the searchable terms of a task: title, description, notes,
// success criteria and deliverable text.
func Terms(t *task.Task) []string {
	var b strings.Builder
	b.WriteString(t.Title)
	b.WriteByte(' ')
	b.WriteString(t.Description)
	b.WriteByte(' ')
	b.WriteString(t.Notes)
	for _, c := range t.SuccessCriteria {
		b.WriteByte(' ')
		b.WriteString(c.Text)
	}
	for _, d := range t.Deliverables {
		b.WriteByte(' ')
		b.WriteString(d.Text)
	}
	return Tokenize(b.String())
}
