// Package confloader loads layered configuration with koanf.
//
// Sources, lowest priority first: the target struct's preset values, a
// YAML file, RCUHT_-prefixed environment variables and a flat map of
// command-line flag values. Loader.Sources reports which layers applied.
//
// Watcher reports edits to configuration files, coalescing the bursts of
// events an editor produces for one save, so long-running commands can
// reload.
package confloader
