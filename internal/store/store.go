// Package store persists a project graph as a single JSON document.
//
// Saves go through a temporary file in the same directory that is synced,
// checked, and renamed over the primary file only after the previous primary
// has been copied into the backup rotation. A failure at any step leaves the
// primary file as it was.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/nibzard/atomgraph-go/internal/errs"
	"github.com/nibzard/atomgraph-go/internal/graph"
	"github.com/nibzard/atomgraph-go/internal/index"
	"github.com/nibzard/atomgraph-go/internal/task"
)

// DefaultRetention is the number of backups kept when Options leaves it unset.
const DefaultRetention = 5

var (
	// ErrMissing means the primary file does not exist.
	ErrMissing = errors.New("graph file missing")
	// ErrCorrupt means the primary file exists but cannot be decoded.
	ErrCorrupt = errors.New("graph file corrupt")
)

// Options configures a Store.
type Options struct {
	// Retention is the number of backup slots kept. Zero means DefaultRetention.
	Retention int
	// Logger receives debug output. Nil discards it.
	Logger *log.Logger
}

// Store reads and writes one graph file.
type Store struct {
	path      string
	retention int
	logger    *log.Logger

	mu sync.Mutex
	// rename replaces the primary file; tests swap it to simulate a crash.
	rename func(oldpath, newpath string) error
}

// New returns a store for the file at path. Nothing is read or created.
func New(path string, opts Options) *Store {
	s := &Store{
		path:      filepath.Clean(path),
		retention: opts.Retention,
		logger:    opts.Logger,
		rename:    os.Rename,
	}
	if s.retention <= 0 {
		s.retention = DefaultRetention
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}
	return s
}

// Path returns the primary file path.
func (s *Store) Path() string {
	return s.path
}

// Retention returns the number of backup slots kept.
func (s *Store) Retention() int {
	return s.retention
}

// Exists reports whether the primary file exists, without reading it.
func (s *Store) Exists() bool {
	info, err := os.Stat(s.path)
	return err == nil && info.Mode().IsRegular()
}

// Load reads the primary file and rebuilds the engine and its indexes.
func (s *Store) Load() (*graph.Engine, *index.Manager, error) {
	return s.loadFile("store.load", s.path)
}

func (s *Store) loadFile(op, path string) (*graph.Engine, *index.Manager, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, errs.Storage(op, fmt.Errorf("%w: %s", ErrMissing, path))
		}
		return nil, nil, errs.Storage(op, err)
	}
	g, idx, err := decode(op, data)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Debug("graph loaded", "path", path, "tasks", g.Len(), "bytes", len(data))
	return g, idx, nil
}

// decode validates raw bytes and turns them into an engine plus a freshly
// rebuilt index. The persisted indexes block is never consulted.
func decode(op string, data []byte) (*graph.Engine, *index.Manager, error) {
	corrupt := func(err error) error { return corruptError(op, err) }
	if len(data) == 0 {
		return nil, nil, corrupt(errors.New("empty file"))
	}
	violations, err := validateDocument(data)
	if err != nil {
		return nil, nil, errs.Storage(op, err)
	}
	if len(violations) > 0 {
		return nil, nil, &errs.Error{Kind: errs.ErrStorageFailure, Op: op, Violations: violations, Err: ErrCorrupt}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, corrupt(err)
	}
	for key, t := range doc.Tasks {
		if t == nil || t.ID != key {
			return nil, nil, corrupt(fmt.Errorf("task key %q does not match its id", key))
		}
		if err := task.Validate(t); err != nil {
			return nil, nil, corrupt(err)
		}
	}

	g, err := graph.FromSnapshot(doc.snapshot())
	if err != nil {
		return nil, nil, corrupt(err)
	}
	idx := index.New()
	idx.RebuildAll(g.Nodes(), g)
	return g, idx, nil
}

// corruptError reports a file that cannot be decoded as a storage failure
// only. A taxonomy error from task or graph validation keeps its violations
// and detail, but not its kind.
func corruptError(op string, err error) error {
	var inner *errs.Error
	if !errors.As(err, &inner) {
		return errs.Storage(op, fmt.Errorf("%w: %w", ErrCorrupt, err))
	}
	if len(inner.Violations) > 0 {
		return &errs.Error{Kind: errs.ErrStorageFailure, Op: op, ID: inner.ID, Violations: inner.Violations, Err: ErrCorrupt}
	}
	detail := *inner
	detail.Op = ""
	return errs.Storage(op, fmt.Errorf("%w: %s", ErrCorrupt, detail.Error()))
}

// Save writes g to the primary file. idx is persisted as a cache and may be
// nil.
func (s *Store) Save(g *graph.Engine, idx *index.Manager) error {
	const op = "store.save"
	data, err := NewDocument(g, idx).Encode()
	if err != nil {
		return errs.Storage(op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.replace(op, data); err != nil {
		return err
	}
	s.logger.Debug("graph saved", "path", s.path, "tasks", g.Len(), "bytes", len(data))
	return nil
}

// replace runs the temp-write, backup, rename sequence. Callers hold mu.
func (s *Store) replace(op string, data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Storage(op, fmt.Errorf("create directory: %w", err))
	}

	tmpPath, err := writeTemp(dir, "."+filepath.Base(s.path)+".tmp-*", data)
	if err != nil {
		return errs.Storage(op, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if s.Exists() {
		if err := s.rotate(); err != nil {
			return errs.Storage(op, fmt.Errorf("rotate backups: %w", err))
		}
		if err := copyFile(s.path, s.BackupPath(0)); err != nil {
			return errs.Storage(op, fmt.Errorf("write backup: %w", err))
		}
	}

	if err := s.rename(tmpPath, s.path); err != nil {
		return errs.Storage(op, fmt.Errorf("rename temp file: %w", err))
	}
	committed = true
	if err := syncDir(dir); err != nil {
		s.logger.Warn("directory sync failed", "dir", dir, "err", err)
	}
	return nil
}
