package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"

	"github.com/nibzard/atomgraph-go/internal/graphdir"
)

// Load loads configuration from multiple sources in priority order:
// 1. Defaults
// 2. User config file
// 3. Project config file (.atomgraph/config.toml under the project root)
// 4. Environment variables
// 5. CLI flags that were set on fs (fs may be nil)
func Load(workDir string, fs *pflag.FlagSet) (*Config, error) {
	cws, err := LoadWithSources(workDir, fs)
	if err != nil {
		return nil, err
	}
	return cws.Config, nil
}

// LoadWithSources loads configuration and tracks the source of each value.
func LoadWithSources(workDir string, fs *pflag.FlagSet) (*ConfigWithSources, error) {
	sources := make(map[string]ConfigSource)
	cfg := &Config{}

	// 1. Set defaults (all fields start with default source)
	setDefaults(cfg)
	for _, field := range configFields() {
		sources[field] = SourceDefault
	}
	cfg.ProjectRoot = findProjectRoot(workDir)

	// 2. Try to load from user config file
	if userConfigFile := findUserConfigFile(); userConfigFile != "" {
		if err := loadConfigFile(cfg, userConfigFile, sources, SourceUserFile); err != nil {
			return nil, fmt.Errorf("loading user config file %s: %w", userConfigFile, err)
		}
	}

	// 3. Try to load from project config file (overrides user config)
	if projectConfigFile := findProjectConfigFile(cfg.ProjectRoot); projectConfigFile != "" {
		if err := loadConfigFile(cfg, projectConfigFile, sources, SourceProjFile); err != nil {
			return nil, fmt.Errorf("loading project config file %s: %w", projectConfigFile, err)
		}
	}

	// 4. Override from environment
	if err := loadFromEnv(cfg, sources); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	// 5. Apply CLI flags (they override everything)
	if err := applyFlags(cfg, fs, sources); err != nil {
		return nil, fmt.Errorf("applying flags: %w", err)
	}

	// 6. Compute derived values
	finalizeConfig(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &ConfigWithSources{Config: cfg, Sources: sources}, nil
}

// loadConfigFile decodes a TOML file over cfg. Keys absent from the file keep
// their current values; unknown keys are an error.
func loadConfigFile(cfg *Config, path string, sources map[string]ConfigSource, source ConfigSource) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	known := configFields()
	for _, key := range md.Keys() {
		if name := key.String(); slices.Contains(known, name) && sources != nil {
			sources[name] = source
		}
	}
	cfg.Files = append(cfg.Files, path)
	return nil
}

// finalizeConfig expands paths and resolves them against the project root.
func finalizeConfig(cfg *Config) {
	cfg.DataFile = expandPath(cfg.DataFile)
	switch {
	case cfg.DataFile == "":
		cfg.DataFile = graphdir.GraphPath(cfg.ProjectRoot)
	case !filepath.IsAbs(cfg.DataFile):
		cfg.DataFile = filepath.Join(cfg.ProjectRoot, cfg.DataFile)
	}
	cfg.LogFile = expandPath(cfg.LogFile)
	if cfg.LogFile != "" && !filepath.IsAbs(cfg.LogFile) {
		cfg.LogFile = filepath.Join(cfg.ProjectRoot, cfg.LogFile)
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
}

func validate(cfg *Config) error {
	if cfg.BackupRetention < 1 {
		return fmt.Errorf("backup_retention must be at least 1, got %d", cfg.BackupRetention)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "warning", "error", "fatal":
	default:
		return fmt.Errorf("invalid log_level %q, must be one of: debug, info, warn, error, fatal", cfg.LogLevel)
	}
	switch cfg.LogFormat {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("invalid log_format %q, must be one of: text, json, logfmt", cfg.LogFormat)
	}
	p := cfg.Policy
	if p.MinTitleWords < 0 || p.MaxTitleWords < 0 || p.MaxItems < 0 {
		return fmt.Errorf("policy limits must not be negative")
	}
	if p.MaxTitleWords > 0 && p.MinTitleWords > p.MaxTitleWords {
		return fmt.Errorf("policy.min_title_words (%d) exceeds policy.max_title_words (%d)", p.MinTitleWords, p.MaxTitleWords)
	}
	return nil
}

// GetConfigFile returns the config file that was applied last, or "" when
// only defaults, environment and flags were used.
func (cws *ConfigWithSources) GetConfigFile() string {
	if n := len(cws.Config.Files); n > 0 {
		return cws.Config.Files[n-1]
	}
	return ""
}
