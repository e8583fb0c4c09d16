// Package config handles configuration loading and defaults.
//
// Configuration is loaded from multiple sources in priority order:
// 1. Built-in defaults
// 2. User config file (~/.atomgraph/config.toml or OS-specific config directory)
// 3. Project config file (.atomgraph/config.toml in the project root)
// 4. Environment variables (ATOMGRAPH_*)
// 5. CLI flags
//
// Each level overrides the previous one, so CLI flags take precedence.
//
// User-level config locations:
// - $ATOMGRAPH_CONFIG when set
// - ~/.atomgraph/config.toml
// - Windows: %APPDATA%\atomgraph\config.toml
// - macOS: ~/Library/Application Support/atomgraph/config.toml
// - Linux/BSD: $XDG_CONFIG_HOME/atomgraph/config.toml or ~/.config/atomgraph/config.toml
//
// The project root is the nearest directory, starting at the work directory,
// that contains a .atomgraph directory.
package config
