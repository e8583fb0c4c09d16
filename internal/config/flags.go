package config

import (
	"github.com/spf13/pflag"
)

// Flag names shared by every command.
const (
	FlagDataFile  = "data-file"
	FlagRetention = "backup-retention"
	FlagLogLevel  = "log-level"
	FlagLogFormat = "log-format"
	FlagLogFile   = "log-file"
	FlagStrict    = "strict"
)

// RegisterFlags defines the configuration flags on fs. Defaults are left
// empty; only flags the user sets override lower layers.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(FlagDataFile, "", "graph file (default .atomgraph/graph.json)")
	fs.Int(FlagRetention, 0, "number of backups to keep")
	fs.String(FlagLogLevel, "", "log level: debug, info, warn, error")
	fs.String(FlagLogFormat, "", "log format: text, json, logfmt")
	fs.String(FlagLogFile, "", "also write logs to this file (rotated)")
	fs.Bool(FlagStrict, true, "reject tasks that fail the atomicity policy")
}

// applyFlags copies every flag the user set on fs into cfg.
func applyFlags(cfg *Config, fs *pflag.FlagSet, sources map[string]ConfigSource) error {
	if fs == nil {
		return nil
	}
	set := func(field string) {
		if sources != nil {
			sources[field] = SourceFlag
		}
	}
	var err error
	str := func(name, field string, dst *string) {
		if err != nil || !changed(fs, name) {
			return
		}
		var v string
		if v, err = fs.GetString(name); err == nil {
			*dst = v
			set(field)
		}
	}

	str(FlagDataFile, "data_file", &cfg.DataFile)
	str(FlagLogLevel, "log_level", &cfg.LogLevel)
	str(FlagLogFormat, "log_format", &cfg.LogFormat)
	str(FlagLogFile, "log_file", &cfg.LogFile)
	if err != nil {
		return err
	}
	if changed(fs, FlagRetention) {
		n, err := fs.GetInt(FlagRetention)
		if err != nil {
			return err
		}
		cfg.BackupRetention = n
		set("backup_retention")
	}
	if changed(fs, FlagStrict) {
		b, err := fs.GetBool(FlagStrict)
		if err != nil {
			return err
		}
		cfg.Policy.Strict = b
		set("policy.strict")
	}
	return nil
}

func changed(fs *pflag.FlagSet, name string) bool {
	f := fs.Lookup(name)
	return f != nil && f.Changed
}
