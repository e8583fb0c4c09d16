package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nibzard/atomgraph-go/internal/errs"
	"github.com/nibzard/atomgraph-go/internal/graph"
	"github.com/nibzard/atomgraph-go/internal/index"
)

// Backup describes one existing backup file.
type Backup struct {
	Slot    int       `json:"slot"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// BackupPath returns the file for a backup slot: slot 0 is "<primary>.bak",
// slot n is "<primary>.bak.n".
func (s *Store) BackupPath(slot int) string {
	if slot == 0 {
		return s.path + ".bak"
	}
	return s.path + ".bak." + strconv.Itoa(slot)
}

// Backups lists the backups that exist, newest first.
func (s *Store) Backups() ([]Backup, error) {
	var out []Backup
	for slot := 0; slot < s.retention; slot++ {
		p := s.BackupPath(slot)
		info, err := os.Stat(p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, errs.Storage("store.backups", err)
		}
		out = append(out, Backup{Slot: slot, Path: p, Size: info.Size(), ModTime: info.ModTime()})
	}
	return out, nil
}

// rotate shifts every backup down one slot and drops the oldest, leaving
// slot 0 free. Callers hold mu.
func (s *Store) rotate() error {
	last := s.BackupPath(s.retention - 1)
	if err := os.Remove(last); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	for slot := s.retention - 2; slot >= 0; slot-- {
		from, to := s.BackupPath(slot), s.BackupPath(slot+1)
		if err := os.Rename(from, to); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// RestoreFromBackup replaces the primary file with the given backup and
// returns the reloaded graph. The backup must decode cleanly before anything
// is written. The primary being replaced goes into the backup rotation like
// any other save, so a restore can itself be undone.
func (s *Store) RestoreFromBackup(backupPath string) (*graph.Engine, *index.Manager, error) {
	const op = "store.restore"
	backupPath = filepath.Clean(backupPath)
	if backupPath == s.path {
		return nil, nil, errs.Invalid(op, backupPath, "path", "backup path is the primary file")
	}
	data, err := os.ReadFile(backupPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, errs.Storage(op, fmt.Errorf("%w: %s", ErrMissing, backupPath))
		}
		return nil, nil, errs.Storage(op, err)
	}
	g, idx, err := decode(op, data)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Rotation may move the chosen backup, but its bytes are already in hand.
	if err := s.replace(op, data); err != nil {
		return nil, nil, err
	}
	s.logger.Info("graph restored", "from", backupPath, "tasks", g.Len())
	return g, idx, nil
}
