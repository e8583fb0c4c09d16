package store

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ChangeOp is the kind of change seen on the primary file.
type ChangeOp int

const (
	// ChangeWritten means the primary file was created, replaced, or written.
	ChangeWritten ChangeOp = iota
	// ChangeRemoved means the primary file was removed or renamed away.
	ChangeRemoved
)

func (op ChangeOp) String() string {
	switch op {
	case ChangeWritten:
		return "written"
	case ChangeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Change is one notification about the primary file.
type Change struct {
	Path string
	Op   ChangeOp
}

// Watcher reports changes to a store's primary file. The directory is
// watched rather than the file so rename-over saves are seen.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	events  chan Change
	errors  chan error
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// Watch starts watching the primary file. Call Stop to release the watcher.
func (s *Store) Watch() (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	w := &Watcher{
		watcher: fw,
		path:    s.path,
		events:  make(chan Change, 16),
		errors:  make(chan error, 4),
		done:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

// Events emits changes to the primary file. It is closed by Stop.
func (w *Watcher) Events() <-chan Change {
	return w.events
}

// Errors emits watcher errors. It is closed by Stop.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Stop shuts the watcher down and waits for its goroutine. It is safe to call
// more than once.
func (w *Watcher) Stop() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		if cerr := w.watcher.Close(); cerr != nil {
			err = fmt.Errorf("failed to close watcher: %w", cerr)
		}
		w.wg.Wait()
		close(w.events)
		close(w.errors)
	})
	return err
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			change, ok := w.convert(ev)
			if !ok {
				continue
			}
			select {
			case w.events <- change:
			case <-w.done:
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			case <-w.done:
				return
			default:
				// drop when nobody is reading
			}
		}
	}
}

func (w *Watcher) convert(ev fsnotify.Event) (Change, bool) {
	if filepath.Clean(ev.Name) != w.path {
		return Change{}, false
	}
	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		return Change{Path: w.path, Op: ChangeWritten}, true
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return Change{Path: w.path, Op: ChangeRemoved}, true
	}
	return Change{}, false
}
