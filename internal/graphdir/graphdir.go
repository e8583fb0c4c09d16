// Package graphdir provides constants and utilities for the .atomgraph
// directory structure.
package graphdir

import (
	"os"
	"path/filepath"
)

const (
	// Dir is the name of the project state directory.
	Dir = ".atomgraph"

	// DefaultGraphFile is the default graph file name (inside .atomgraph).
	DefaultGraphFile = "graph.json"

	// DefaultConfigFile is the default config file name (inside .atomgraph).
	DefaultConfigFile = "config.toml"

	// DefaultLogFile is the default log file name (inside .atomgraph).
	DefaultLogFile = "atomgraph.log"
)

// GraphPath returns the full path to the graph file within a work directory.
func GraphPath(workDir string) string {
	return joinPath(workDir, DefaultGraphFile)
}

// ConfigPath returns the full path to the config file within a work directory.
func ConfigPath(workDir string) string {
	return joinPath(workDir, DefaultConfigFile)
}

// LogPath returns the full path to the log file within a work directory.
func LogPath(workDir string) string {
	return joinPath(workDir, DefaultLogFile)
}

// DirPath returns the full path to the .atomgraph directory within a work directory.
func DirPath(workDir string) string {
	if workDir == "." || workDir == "" {
		return Dir
	}
	return filepath.Join(workDir, Dir)
}

// Find walks up from start and returns the first directory containing a
// .atomgraph directory. ok is false when none is found before the
// filesystem root.
func Find(start string) (root string, ok bool) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", false
	}
	for {
		if info, err := os.Stat(filepath.Join(dir, Dir)); err == nil && info.IsDir() {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func joinPath(workDir, file string) string {
	return filepath.Join(DirPath(workDir), file)
}
