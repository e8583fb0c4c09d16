package config

import (
	"slices"

	"github.com/nibzard/atomgraph-go/internal/task"
)

// ConfigSource represents where a configuration value came from.
type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"
	SourceUserFile ConfigSource = "user file"
	SourceProjFile ConfigSource = "project file"
	SourceEnv      ConfigSource = "environment"
	SourceFlag     ConfigSource = "flag"
)

// Default values.
const (
	DefaultBackupRetention = 5
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
)

// Config holds the full configuration for atomgraph.
type Config struct {
	// Graph file; relative paths resolve against the project root. Empty
	// means .atomgraph/graph.json.
	DataFile        string `toml:"data_file"`
	BackupRetention int    `toml:"backup_retention"`

	// Logging configuration
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	LogTimestamps bool   `toml:"log_timestamps"`
	LogCaller     bool   `toml:"log_caller"`
	LogFile       string `toml:"log_file"`

	Policy PolicyConfig `toml:"policy"`

	// Project root (computed)
	ProjectRoot string `toml:"-"`
	// Files that contributed, in load order (computed)
	Files []string `toml:"-"`
}

// PolicyConfig tunes the task atomicity policy.
type PolicyConfig struct {
	Strict        bool `toml:"strict"`
	MinTitleWords int  `toml:"min_title_words"`
	MaxTitleWords int  `toml:"max_title_words"`
	MaxItems      int  `toml:"max_items"`
	// ActionVerbs replaces the built-in verb list when non-empty.
	ActionVerbs []string `toml:"action_verbs"`
	// ExtraActionVerbs is appended to the verb list.
	ExtraActionVerbs []string `toml:"extra_action_verbs"`
	// SubjectiveWords replaces the built-in list when non-empty.
	SubjectiveWords []string `toml:"subjective_words"`
}

// TaskPolicy converts the configuration into a task.Policy.
func (p PolicyConfig) TaskPolicy() task.Policy {
	pol := task.DefaultPolicy()
	pol.Strict = p.Strict
	pol.MinTitleWords = p.MinTitleWords
	pol.MaxTitleWords = p.MaxTitleWords
	pol.MaxItems = p.MaxItems
	if len(p.ActionVerbs) > 0 {
		pol.ActionVerbs = lower(p.ActionVerbs)
	}
	for _, v := range lower(p.ExtraActionVerbs) {
		if !slices.Contains(pol.ActionVerbs, v) {
			pol.ActionVerbs = append(pol.ActionVerbs, v)
		}
	}
	if len(p.SubjectiveWords) > 0 {
		pol.SubjectiveWords = lower(p.SubjectiveWords)
	}
	return pol
}

// ConfigWithSources holds configuration along with source information for each field.
type ConfigWithSources struct {
	Config  *Config
	Sources map[string]ConfigSource
}

// configFields returns the list of configurable field names for source tracking.
func configFields() []string {
	return []string{
		"data_file",
		"backup_retention",
		"log_level",
		"log_format",
		"log_timestamps",
		"log_caller",
		"log_file",
		"policy.strict",
		"policy.min_title_words",
		"policy.max_title_words",
		"policy.max_items",
		"policy.action_verbs",
		"policy.extra_action_verbs",
		"policy.subjective_words",
	}
}

// setDefaults applies default values to the config.
func setDefaults(cfg *Config) {
	def := task.DefaultPolicy()
	cfg.BackupRetention = DefaultBackupRetention
	cfg.LogLevel = DefaultLogLevel
	cfg.LogFormat = DefaultLogFormat
	cfg.Policy = PolicyConfig{
		Strict:        def.Strict,
		MinTitleWords: def.MinTitleWords,
		MaxTitleWords: def.MaxTitleWords,
		MaxItems:      def.MaxItems,
	}
}
