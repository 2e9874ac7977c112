// Package logger provides structured logging for rcuht.
//
// It wraps log/slog behind a small Logger interface. All loggers built with
// New share one level, so SetLevel applies to tables that are already
// running. Records logged through a context tagged with WithRunID carry a
// run_id attribute.
//
// Table and domain constructors accept a Logger; when none is given they
// log through Component.
package logger
