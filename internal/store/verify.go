package store

import (
	"context"
	"sort"
	"sync"
)

// BackupCheck is the outcome of decoding one backup.
type BackupCheck struct {
	Backup
	Tasks int   `json:"tasks"`
	Err   error `json:"-"`
}

// OK reports whether the backup decoded cleanly.
func (c BackupCheck) OK() bool { return c.Err == nil }

// VerifyBackups decodes every existing backup with at most workers running at
// once (zero means one per backup). Results are ordered by slot. Backups not
// started before ctx is cancelled report ctx.Err().
func (s *Store) VerifyBackups(ctx context.Context, workers int) ([]BackupCheck, error) {
	backups, err := s.Backups()
	if err != nil {
		return nil, err
	}
	if workers <= 0 || workers > len(backups) {
		workers = len(backups)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make([]BackupCheck, 0, len(backups))
		sem     = make(chan struct{}, max(workers, 1))
	)
	for _, b := range backups {
		wg.Add(1)
		go func() {
			defer wg.Done()
			check := BackupCheck{Backup: b}
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
				if err := ctx.Err(); err != nil {
					check.Err = err
					break
				}
				g, _, err := s.loadFile("store.verify", b.Path)
				if err != nil {
					check.Err = err
				} else {
					check.Tasks = g.Len()
				}
			case <-ctx.Done():
				check.Err = ctx.Err()
			}

			mu.Lock()
			defer mu.Unlock()
			results = append(results, check)
		}()
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Slot < results[j].Slot })
	return results, nil
}
