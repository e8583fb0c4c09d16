package task

import (
	"fmt"
	"slices"
	"time"
)

// now is the clock used for every timestamp. Tests replace it.
var now = func() time.Time { return time.Now().UTC() }

// Status represents a task lifecycle status.
type Status string

const (
	StatusReady      Status = "ready"
	StatusInProgress Status = "in_progress"
	StatusInReview   Status = "in_review"
	StatusCompleted  Status = "completed"
	StatusBlocked    Status = "blocked"
)

// Statuses lists every status in lifecycle order.
func Statuses() []Status {
	return []Status{StatusReady, StatusInProgress, StatusInReview, StatusCompleted, StatusBlocked}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return slices.Contains(Statuses(), s)
}

// ParseStatus converts a string into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("invalid status %q, must be one of: ready, in_progress, in_review, completed, blocked", s)
	}
	return st, nil
}

// Priority is a three-level priority tier.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Priorities lists every priority from highest to lowest.
func Priorities() []Priority {
	return []Priority{PriorityHigh, PriorityMedium, PriorityLow}
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return slices.Contains(Priorities(), p)
}

// ParsePriority converts a string into a Priority.
func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if !p.Valid() {
		return "", fmt.Errorf("invalid priority %q, must be one of: high, medium, low", s)
	}
	return p, nil
}

// Criterion is a verifiable success criterion.
type Criterion struct {
	ID          string     `json:"id"`
	Text        string     `json:"text"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Deliverable is a concrete output of the task, optionally a file.
type Deliverable struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	FilePath  string `json:"file_path,omitempty"`
}

// Verification records a check against an external library's documentation.
type Verification struct {
	LibraryID  string    `json:"library_id"`
	VerifiedAt time.Time `json:"verified_at"`
	Notes      string    `json:"notes,omitempty"`
}

// FixSource is where a needs-fixing item came from.
type FixSource string

const (
	FixFromReview       FixSource = "review"
	FixFromTest         FixSource = "test"
	FixFromVerification FixSource = "verification"
	FixFromUser         FixSource = "user"
)

// Valid reports whether s is a known fix source.
func (s FixSource) Valid() bool {
	switch s {
	case FixFromReview, FixFromTest, FixFromVerification, FixFromUser:
		return true
	}
	return false
}

// FixItem is a follow-up that must be fixed before the task is trusted.
type FixItem struct {
	Text      string    `json:"text"`
	Source    FixSource `json:"source"`
	FilePath  string    `json:"file_path,omitempty"`
	Completed bool      `json:"completed"`
}

// Task is a single node of the dependency graph.
type Task struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	Status          Status         `json:"status"`
	Priority        Priority       `json:"priority"`
	SuccessCriteria []Criterion    `json:"success_criteria"`
	Deliverables    []Deliverable  `json:"deliverables"`
	Blockers        []string       `json:"blockers"`
	Dependencies    string         `json:"dependencies,omitempty"`
	Edges           []string       `json:"edges"`
	RelatedFiles    []string       `json:"related_files"`
	Notes           string         `json:"notes,omitempty"`
	Verifications   []Verification `json:"external_verifications"`
	FixItems        []FixItem      `json:"needs_fixing"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	CompletedAt     *time.Time     `json:"completed_at"`
}

// IsZero returns true if the task is empty (has no ID).
func (t *Task) IsZero() bool {
	return t == nil || t.ID == ""
}

// ItemsComplete reports whether every success criterion and deliverable is
// complete. A task with no items is never complete.
func (t *Task) ItemsComplete() bool {
	if len(t.SuccessCriteria) == 0 || len(t.Deliverables) == 0 {
		return false
	}
	for _, c := range t.SuccessCriteria {
		if !c.Completed {
			return false
		}
	}
	for _, d := range t.Deliverables {
		if !d.Completed {
			return false
		}
	}
	return true
}

// Progress returns the number of completed items and the total item count.
func (t *Task) Progress() (done, total int) {
	for _, c := range t.SuccessCriteria {
		if c.Completed {
			done++
		}
	}
	for _, d := range t.Deliverables {
		if d.Completed {
			done++
		}
	}
	return done, len(t.SuccessCriteria) + len(t.Deliverables)
}

// Files returns every file path the task references: related files followed
// by deliverable file paths.
func (t *Task) Files() []string {
	files := make([]string, 0, len(t.RelatedFiles)+len(t.Deliverables))
	files = append(files, t.RelatedFiles...)
	for _, d := range t.Deliverables {
		if d.FilePath != "" {
			files = append(files, d.FilePath)
		}
	}
	return files
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.SuccessCriteria = slices.Clone(t.SuccessCriteria)
	for i := range c.SuccessCriteria {
		c.SuccessCriteria[i].CompletedAt = cloneTime(t.SuccessCriteria[i].CompletedAt)
	}
	c.Deliverables = slices.Clone(t.Deliverables)
	c.Blockers = slices.Clone(t.Blockers)
	c.Edges = slices.Clone(t.Edges)
	c.RelatedFiles = slices.Clone(t.RelatedFiles)
	c.Verifications = slices.Clone(t.Verifications)
	c.FixItems = slices.Clone(t.FixItems)
	c.CompletedAt = cloneTime(t.CompletedAt)
	return &c
}

// Normalize replaces nil slices with empty ones so the task always
// serializes with explicit arrays.
func (t *Task) Normalize() {
	if t.SuccessCriteria == nil {
		t.SuccessCriteria = []Criterion{}
	}
	if t.Deliverables == nil {
		t.Deliverables = []Deliverable{}
	}
	if t.Blockers == nil {
		t.Blockers = []string{}
	}
	if t.Edges == nil {
		t.Edges = []string{}
	}
	if t.RelatedFiles == nil {
		t.RelatedFiles = []string{}
	}
	if t.Verifications == nil {
		t.Verifications = []Verification{}
	}
	if t.FixItems == nil {
		t.FixItems = []FixItem{}
	}
}

// Touch bumps UpdatedAt.
func (t *Task) Touch() {
	t.UpdatedAt = now()
}

func cloneTime(ts *time.Time) *time.Time {
	if ts == nil {
		return nil
	}
	c := *ts
	return &c
}
