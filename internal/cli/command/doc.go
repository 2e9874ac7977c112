// Package command defines the rcuht-bench command line.
//
// It uses urfave/cli/v2. Every command loads its configuration through
// the config package, so any flag can also be set from the YAML file or
// an RCUHT_* environment variable.
package command
