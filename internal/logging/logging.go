// Package logging is a small leveled logger over stderr. Command output
// itself goes to stdout; everything diagnostic goes through here so --json
// output stays parseable.
package logging

import (
	"log"
	"os"
)

// Level represents the logging level
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

var (
	level  = LevelInfo
	logger = log.New(os.Stderr, "", log.LstdFlags)
)

// SetVerbose enables debug logging.
func SetVerbose(verbose bool) {
	if verbose {
		level = LevelDebug
	} else {
		level = LevelInfo
	}
}

// Errorf logs an error message.
func Errorf(format string, args ...any) {
	if level >= LevelError {
		logger.Printf("[ERROR] "+format, args...)
	}
}

// Warnf logs a warning message.
func Warnf(format string, args ...any) {
	if level >= LevelWarn {
		logger.Printf("[WARN] "+format, args...)
	}
}

// Infof logs an info message.
func Infof(format string, args ...any) {
	if level >= LevelInfo {
		logger.Printf("[INFO] "+format, args...)
	}
}

// Debugf logs a debug message.
func Debugf(format string, args ...any) {
	if level >= LevelDebug {
		logger.Printf("[DEBUG] "+format, args...)
	}
}
