// Package config loads and merges flowscribe configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (FLOWSCRIBE_PROVIDER, FLOWSCRIBE_CHAT_MODEL, FLOWSCRIBE_CACHE_DIR, etc.)
//  3. Config file ($XDG_CONFIG_HOME/flowscribe/config.yaml, or FLOWSCRIBE_CONFIG)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged [Config], [Save] to write a config file, and
// [SetField] to update a single dotted key. [LoadAPIKey] resolves the
// provider key from the environment or a YAML secrets file.
package config
