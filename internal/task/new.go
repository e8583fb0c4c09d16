package task

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// IDPrefix prefixes every generated task id.
const IDPrefix = "task-"

// NewID returns a fresh task id.
func NewID() string {
	return IDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// DeliverableDraft describes a deliverable before it has an id.
type DeliverableDraft struct {
	Text     string
	FilePath string
}

// Draft holds caller-supplied fields for a new task.
type Draft struct {
	Title           string
	Description     string
	Priority        Priority
	SuccessCriteria []string
	Deliverables    []DeliverableDraft
	Blockers        []string
	Dependencies    string
	RelatedFiles    []string
	Notes           string
}

// New builds a task from a draft. The task gets a generated id, creation
// timestamps and item ids, and must pass Validate and, when the policy is
// strict, the policy's atomicity checks.
//
// A task with blockers starts blocked; otherwise it starts ready.
func New(d Draft, p Policy) (*Task, error) {
	ts := now()
	t := &Task{
		ID:           NewID(),
		Title:        strings.TrimSpace(d.Title),
		Description:  strings.TrimSpace(d.Description),
		Status:       StatusReady,
		Priority:     d.Priority,
		Dependencies: strings.TrimSpace(d.Dependencies),
		Notes:        d.Notes,
		Blockers:     dedupe(d.Blockers),
		RelatedFiles: cleanPaths(d.RelatedFiles),
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if len(t.Blockers) > 0 {
		t.Status = StatusBlocked
	}
	for i, text := range d.SuccessCriteria {
		t.SuccessCriteria = append(t.SuccessCriteria, Criterion{
			ID:   fmt.Sprintf("%s%d", criterionPrefix, i+1),
			Text: strings.TrimSpace(text),
		})
	}
	for i, dd := range d.Deliverables {
		t.Deliverables = append(t.Deliverables, Deliverable{
			ID:       fmt.Sprintf("%s%d", deliverablePrefix, i+1),
			Text:     strings.TrimSpace(dd.Text),
			FilePath: cleanPath(dd.FilePath),
		})
	}
	t.Normalize()

	if err := Validate(t); err != nil {
		return nil, err
	}
	if p.Strict {
		if err := p.Check(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	return filepath.ToSlash(filepath.Clean(p))
}

func cleanPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		c := cleanPath(p)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
