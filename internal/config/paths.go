package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/nibzard/atomgraph-go/internal/graphdir"
)

// findProjectRoot returns the nearest ancestor of workDir holding a
// .atomgraph directory, or workDir itself.
func findProjectRoot(workDir string) string {
	if workDir == "" {
		workDir = "."
	}
	if root, ok := graphdir.Find(workDir); ok {
		return root
	}
	if abs, err := filepath.Abs(workDir); err == nil {
		return abs
	}
	return workDir
}

// findProjectConfigFile returns the project config file under root if it exists.
func findProjectConfigFile(root string) string {
	p := graphdir.ConfigPath(root)
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}

// findUserConfigFile looks for a user-level config file.
// ATOMGRAPH_CONFIG wins when set; then ~/.atomgraph/config.toml, then the
// OS-specific config directory.
func findUserConfigFile() string {
	if p := os.Getenv("ATOMGRAPH_CONFIG"); p != "" {
		p = expandPath(p)
		if _, err := os.Stat(p); err == nil {
			return p
		}
		return ""
	}

	home, err := os.UserHomeDir()
	if err == nil {
		userConfigPath := filepath.Join(home, graphdir.Dir, graphdir.DefaultConfigFile)
		if _, err := os.Stat(userConfigPath); err == nil {
			return userConfigPath
		}
	}

	if cfgDir := osUserConfigDir(); cfgDir != "" {
		userConfigPath := filepath.Join(cfgDir, "atomgraph", graphdir.DefaultConfigFile)
		if _, err := os.Stat(userConfigPath); err == nil {
			return userConfigPath
		}
	}

	return ""
}

// osUserConfigDir returns the OS-specific user config directory.
// Returns empty string if the directory cannot be determined.
func osUserConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		if appdata := os.Getenv("APPDATA"); appdata != "" {
			return appdata
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, "Library", "Application Support")
		}
	case "linux", "openbsd", "freebsd", "netbsd":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return xdg
		}
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, ".config")
		}
	}
	return ""
}

// expandPath expands home directory and environment variables in paths.
// It supports ~/ or ~\ prefixes and %VAR% expansion on Windows.
func expandPath(p string) string {
	if p == "" {
		return p
	}

	expanded := expandEnv(p)
	if expanded == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return expanded
		}
		return home
	}
	if strings.HasPrefix(expanded, "~/") || (runtime.GOOS == "windows" && strings.HasPrefix(expanded, "~\\")) {
		home, err := os.UserHomeDir()
		if err != nil {
			return expanded
		}
		return filepath.Join(home, expanded[2:])
	}
	return expanded
}

func expandEnv(p string) string {
	expanded := os.ExpandEnv(p)
	if runtime.GOOS != "windows" {
		return expanded
	}
	return expandWindowsEnv(expanded)
}

func expandWindowsEnv(p string) string {
	if !strings.Contains(p, "%") {
		return p
	}
	var b strings.Builder
	for i := 0; i < len(p); {
		if p[i] == '%' {
			end := strings.IndexByte(p[i+1:], '%')
			if end >= 0 {
				key := p[i+1 : i+1+end]
				if key == "" {
					b.WriteByte('%')
					i++
					continue
				}
				if val, ok := os.LookupEnv(key); ok {
					b.WriteString(val)
				} else {
					b.WriteByte('%')
					b.WriteString(key)
					b.WriteByte('%')
				}
				i += end + 2
				continue
			}
		}
		b.WriteByte(p[i])
		i++
	}
	return b.String()
}
