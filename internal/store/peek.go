package store

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/tidwall/gjson"

	"github.com/nibzard/atomgraph-go/internal/errs"
)

// Summary is the metadata block of a graph file, read without decoding tasks.
type Summary struct {
	Version     int       `json:"version"`
	Format      string    `json:"format"`
	ProjectName string    `json:"project_name"`
	GraphVer    string    `json:"graph_version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	TaskCount   int       `json:"task_count"`
}

// Peek returns the primary file's metadata. It checks that the file is JSON
// with the expected format tag but does not validate tasks.
func (s *Store) Peek() (*Summary, error) {
	const op = "store.peek"
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errs.Storage(op, fmt.Errorf("%w: %s", ErrMissing, s.path))
		}
		return nil, errs.Storage(op, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, errs.Storage(op, fmt.Errorf("%w: invalid JSON", ErrCorrupt))
	}

	res := gjson.GetManyBytes(data,
		"version", "format",
		"metadata.project_name", "metadata.version",
		"metadata.created_at", "metadata.updated_at", "metadata.task_count")
	if res[1].String() != FileFormat {
		return nil, errs.Storage(op, fmt.Errorf("%w: format %q, want %q", ErrCorrupt, res[1].String(), FileFormat))
	}
	return &Summary{
		Version:     int(res[0].Int()),
		Format:      res[1].String(),
		ProjectName: res[2].String(),
		GraphVer:    res[3].String(),
		CreatedAt:   res[4].Time(),
		UpdatedAt:   res[5].Time(),
		TaskCount:   int(res[6].Int()),
	}, nil
}
