// Package config tests configuration loading.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"

	"github.com/nibzard/atomgraph-go/internal/graphdir"
	"github.com/nibzard/atomgraph-go/internal/task"
)

// isolate points the user config at a file that does not exist and clears
// every ATOMGRAPH_* variable the loader reads.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("ATOMGRAPH_CONFIG", filepath.Join(t.TempDir(), "none.toml"))
	for _, name := range []string{
		"DATA_FILE", "LOG_LEVEL", "LOG_FORMAT", "LOG_FILE", "LOG_TIMESTAMPS",
		"LOG_CALLER", "POLICY_STRICT", "ACTION_VERBS", "BACKUP_RETENTION", "POLICY_MAX_ITEMS",
	} {
		t.Setenv(EnvPrefix+name, "")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDefaults(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	if cfg.BackupRetention != DefaultBackupRetention {
		t.Errorf("BackupRetention: got %d, want %d", cfg.BackupRetention, DefaultBackupRetention)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("logging: got %s/%s, want info/text", cfg.LogLevel, cfg.LogFormat)
	}
	if !cfg.Policy.Strict || cfg.Policy.MaxItems != 12 {
		t.Errorf("Policy: got %+v", cfg.Policy)
	}
}

func TestLoadDefaultsOnly(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	cws, err := LoadWithSources(dir, nil)
	if err != nil {
		t.Fatalf("LoadWithSources: %v", err)
	}
	cfg := cws.Config
	root, _ := filepath.Abs(dir)
	if cfg.ProjectRoot != root {
		t.Errorf("ProjectRoot: got %q, want %q", cfg.ProjectRoot, root)
	}
	if want := graphdir.GraphPath(root); cfg.DataFile != want {
		t.Errorf("DataFile: got %q, want %q", cfg.DataFile, want)
	}
	if cws.GetConfigFile() != "" {
		t.Errorf("GetConfigFile: got %q, want none", cws.GetConfigFile())
	}
	for field, src := range cws.Sources {
		if src != SourceDefault {
			t.Errorf("source of %s: got %s, want default", field, src)
		}
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `backup_retention = 3
log_level = "debug"

[policy]
strict = false
extra_action_verbs = ["Benchmark"]
`)

	cfg := &Config{}
	setDefaults(cfg)
	sources := map[string]ConfigSource{}
	if err := loadConfigFile(cfg, path, sources, SourceProjFile); err != nil {
		t.Fatalf("loadConfigFile: %v", err)
	}

	if cfg.BackupRetention != 3 || cfg.LogLevel != "debug" {
		t.Errorf("got retention %d level %q, want 3 debug", cfg.BackupRetention, cfg.LogLevel)
	}
	if cfg.Policy.Strict {
		t.Error("Policy.Strict: got true, want false")
	}
	if cfg.Policy.MaxItems != 12 {
		t.Errorf("Policy.MaxItems: got %d, want default 12 kept", cfg.Policy.MaxItems)
	}
	want := map[string]ConfigSource{
		"backup_retention":          SourceProjFile,
		"log_level":                 SourceProjFile,
		"policy.strict":             SourceProjFile,
		"policy.extra_action_verbs": SourceProjFile,
	}
	if diff := cmp.Diff(want, sources); diff != "" {
		t.Errorf("sources (-want +got):\n%s", diff)
	}
}

func TestLoadConfigFileUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "max_iterations = 5\n")
	cfg := &Config{}
	err := loadConfigFile(cfg, path, nil, SourceUserFile)
	if err == nil || !strings.Contains(err.Error(), "max_iterations") {
		t.Errorf("loadConfigFile: got %v, want unknown key error", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("ATOMGRAPH_DATA_FILE", "custom.json")
	t.Setenv("ATOMGRAPH_BACKUP_RETENTION", "9")
	t.Setenv("ATOMGRAPH_LOG_CALLER", "yes")
	t.Setenv("ATOMGRAPH_ACTION_VERBS", "profile, benchmark")

	cfg := &Config{}
	setDefaults(cfg)
	sources := map[string]ConfigSource{}
	if err := loadFromEnv(cfg, sources); err != nil {
		t.Fatalf("loadFromEnv: %v", err)
	}
	if cfg.DataFile != "custom.json" || cfg.BackupRetention != 9 || !cfg.LogCaller {
		t.Errorf("got %q %d %v", cfg.DataFile, cfg.BackupRetention, cfg.LogCaller)
	}
	if diff := cmp.Diff([]string{"profile", "benchmark"}, cfg.Policy.ExtraActionVerbs); diff != "" {
		t.Errorf("ExtraActionVerbs (-want +got):\n%s", diff)
	}
	if sources["backup_retention"] != SourceEnv {
		t.Errorf("source: got %q, want environment", sources["backup_retention"])
	}

	t.Setenv("ATOMGRAPH_BACKUP_RETENTION", "many")
	if err := loadFromEnv(cfg, nil); err == nil {
		t.Error("loadFromEnv with bad integer: got nil error")
	}
}

func TestApplyFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse([]string{"--log-level", "warn", "--strict=false", "--backup-retention", "2"}); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{}
	setDefaults(cfg)
	cfg.LogFormat = "json"
	sources := map[string]ConfigSource{}
	if err := applyFlags(cfg, fs, sources); err != nil {
		t.Fatalf("applyFlags: %v", err)
	}
	if cfg.LogLevel != "warn" || cfg.Policy.Strict || cfg.BackupRetention != 2 {
		t.Errorf("got level %q strict %v retention %d", cfg.LogLevel, cfg.Policy.Strict, cfg.BackupRetention)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("unset flag overrode LogFormat: got %q", cfg.LogFormat)
	}
	if _, ok := sources["log_format"]; ok {
		t.Error("unset flag recorded as a source")
	}
}

func TestLoadPrecedence(t *testing.T) {
	isolate(t)
	root := t.TempDir()
	user := filepath.Join(t.TempDir(), "user.toml")
	writeFile(t, user, "log_level = \"debug\"\nlog_format = \"json\"\nbackup_retention = 7\n")
	t.Setenv("ATOMGRAPH_CONFIG", user)
	writeFile(t, graphdir.ConfigPath(root), "log_format = \"logfmt\"\nbackup_retention = 4\ndata_file = \"tasks/graph.json\"\n")
	t.Setenv("ATOMGRAPH_BACKUP_RETENTION", "3")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse([]string{"--log-level", "error"}); err != nil {
		t.Fatal(err)
	}

	nested := filepath.Join(root, "src", "pkg")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	cws, err := LoadWithSources(nested, fs)
	if err != nil {
		t.Fatalf("LoadWithSources: %v", err)
	}
	cfg := cws.Config
	absRoot, _ := filepath.Abs(root)

	tests := []struct {
		field  string
		got    any
		want   any
		source ConfigSource
	}{
		{"log_level", cfg.LogLevel, "error", SourceFlag},
		{"log_format", cfg.LogFormat, "logfmt", SourceProjFile},
		{"backup_retention", cfg.BackupRetention, 3, SourceEnv},
		{"data_file", cfg.DataFile, filepath.Join(absRoot, "tasks", "graph.json"), SourceProjFile},
		{"log_caller", cfg.LogCaller, false, SourceDefault},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.field, tt.got, tt.want)
		}
		if src := cws.Sources[tt.field]; src != tt.source {
			t.Errorf("%s source: got %s, want %s", tt.field, src, tt.source)
		}
	}
	if cfg.ProjectRoot != absRoot {
		t.Errorf("ProjectRoot: got %q, want %q", cfg.ProjectRoot, absRoot)
	}
	if got := cws.GetConfigFile(); got != graphdir.ConfigPath(absRoot) {
		t.Errorf("GetConfigFile: got %q, want project file", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"retention", func(c *Config) { c.BackupRetention = 0 }, "backup_retention"},
		{"level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"title words", func(c *Config) { c.Policy.MinTitleWords = 20 }, "min_title_words"},
		{"negative", func(c *Config) { c.Policy.MaxItems = -1 }, "negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			setDefaults(cfg)
			tt.mutate(cfg)
			err := validate(cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("validate: got %v, want error mentioning %q", err, tt.want)
			}
		})
	}
}

func TestTaskPolicy(t *testing.T) {
	pc := PolicyConfig{
		Strict:           false,
		MinTitleWords:    1,
		MaxTitleWords:    5,
		MaxItems:         4,
		ExtraActionVerbs: []string{"Benchmark", "add"},
		SubjectiveWords:  []string{"Snappy"},
	}
	pol := pc.TaskPolicy()
	if pol.Strict || pol.MinTitleWords != 1 || pol.MaxTitleWords != 5 || pol.MaxItems != 4 {
		t.Errorf("limits: got %+v", pol)
	}
	if n := len(pol.ActionVerbs); n != len(task.DefaultActionVerbs())+1 {
		t.Errorf("ActionVerbs: got %d entries, want defaults plus one", n)
	}
	if diff := cmp.Diff([]string{"snappy"}, pol.SubjectiveWords); diff != "" {
		t.Errorf("SubjectiveWords (-want +got):\n%s", diff)
	}
}

func TestExampleConfigDecodes(t *testing.T) {
	cfg := &Config{}
	md, err := toml.Decode(ExampleConfig(), cfg)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if u := md.Undecoded(); len(u) != 0 {
		t.Errorf("undecoded keys: %v", u)
	}
	if err := validate(cfg); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}

	tests := []struct {
		input string
		want  string
	}{
		{"~/test", filepath.Join(home, "test")},
		{"~", home},
		{"/absolute/path", "/absolute/path"},
		{"relative", "relative"},
	}
	if runtime.GOOS == "windows" {
		t.Setenv("ATOMGRAPH_TEST_HOME", home)
		tests = append(tests, struct {
			input string
			want  string
		}{`%ATOMGRAPH_TEST_HOME%\logs`, filepath.Join(home, "logs")})
	} else {
		tests = append(tests, struct {
			input string
			want  string
		}{`~\test`, `~\test`})
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := expandPath(tt.input); got != tt.want {
				t.Errorf("expandPath(%q): got %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestBoolFromString(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1", true}, {"true", true}, {" YES ", true}, {"on", true},
		{"0", false}, {"false", false}, {"off", false}, {"maybe", false},
	}
	for _, tt := range tests {
		if got := boolFromString(tt.in); got != tt.want {
			t.Errorf("boolFromString(%q): got %v, want %v", tt.in, got, tt.want)
		}
	}
}
