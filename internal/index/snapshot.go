package index

// Buckets is the serialized form of the index, written to the persisted file
// as a convenience for external tooling. Loading never reads it back.
type Buckets struct {
	ByStatus   map[string][]string `json:"by_status"`
	ByPriority map[string][]string `json:"by_priority"`
	ByFile     map[string][]string `json:"by_file"`
	Terms      map[string][]string `json:"terms"`
	Roots      []string            `json:"roots"`
	Orphans    []string            `json:"orphans"`
	Leaves     []string            `json:"leaves"`
}

// Snapshot returns every table with sorted id lists.
func (m *Manager) Snapshot() Buckets {
	b := Buckets{
		ByStatus:   make(map[string][]string, len(m.status)),
		ByPriority: make(map[string][]string, len(m.priority)),
		ByFile:     make(map[string][]string, len(m.files)),
		Terms:      make(map[string][]string, len(m.terms)),
		Roots:      m.Roots(),
		Orphans:    m.Orphans(),
		Leaves:     m.Leaves(),
	}
	for k, s := range m.status {
		b.ByStatus[string(k)] = sorted(s)
	}
	for k, s := range m.priority {
		b.ByPriority[string(k)] = sorted(s)
	}
	for k, s := range m.files {
		b.ByFile[k] = sorted(s)
	}
	for k, s := range m.terms {
		b.Terms[k] = sorted(s)
	}
	return b
}
