package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/nibzard/atomgraph-go/internal/utils"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "ATOMGRAPH_"

// loadFromEnv overrides config from ATOMGRAPH_* environment variables. If
// sources is non-nil, it tracks the source of each value.
func loadFromEnv(cfg *Config, sources map[string]ConfigSource) error {
	set := func(field string) {
		if sources != nil {
			sources[field] = SourceEnv
		}
	}
	str := func(name, field string, dst *string) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*dst = v
			set(field)
		}
	}
	boolean := func(name, field string, dst *bool) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
			*dst = boolFromString(v)
			set(field)
		}
	}
	list := func(name, field string, dst *[]string) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*dst = utils.SplitAndTrim(v, ",")
			set(field)
		}
	}
	integer := func(name, field string, dst *int) error {
		v := os.Getenv(EnvPrefix + name)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %q is not an integer", EnvPrefix, name, v)
		}
		*dst = n
		set(field)
		return nil
	}

	str("DATA_FILE", "data_file", &cfg.DataFile)
	str("LOG_LEVEL", "log_level", &cfg.LogLevel)
	str("LOG_FORMAT", "log_format", &cfg.LogFormat)
	str("LOG_FILE", "log_file", &cfg.LogFile)
	boolean("LOG_TIMESTAMPS", "log_timestamps", &cfg.LogTimestamps)
	boolean("LOG_CALLER", "log_caller", &cfg.LogCaller)
	boolean("POLICY_STRICT", "policy.strict", &cfg.Policy.Strict)
	list("ACTION_VERBS", "policy.extra_action_verbs", &cfg.Policy.ExtraActionVerbs)

	if err := integer("BACKUP_RETENTION", "backup_retention", &cfg.BackupRetention); err != nil {
		return err
	}
	if err := integer("POLICY_MAX_ITEMS", "policy.max_items", &cfg.Policy.MaxItems); err != nil {
		return err
	}
	return nil
}

func boolFromString(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

func lower(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			out = append(out, w)
		}
	}
	return out
}
