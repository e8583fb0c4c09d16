package config

// ExampleConfig returns an example configuration showing all available options.
func ExampleConfig() string {
	return `# atomgraph configuration file
# Values can be overridden by ATOMGRAPH_* environment variables or CLI flags

# Graph file (relative to the project root, default .atomgraph/graph.json)
# data_file = ".atomgraph/graph.json"

# Number of backups kept next to the graph file (graph.json.bak, .bak.1, ...)
backup_retention = 5

# Logging
log_level = "info"       # debug, info, warn, error
log_format = "text"      # text, json, logfmt
log_timestamps = false
log_caller = false
# log_file = ".atomgraph/atomgraph.log"  # rotated automatically

# Atomicity policy applied to new and edited tasks
[policy]
strict = true            # false logs findings as warnings instead of rejecting
min_title_words = 2
max_title_words = 12
max_items = 12           # success criteria plus deliverables
# extra_action_verbs = ["benchmark", "profile"]
# action_verbs = []      # replaces the built-in list when set
# subjective_words = []  # replaces the built-in list when set
`
}
