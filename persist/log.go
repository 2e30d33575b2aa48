package persist

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is a file-backed logger that brackets its output with a STARTUP
// line on creation and a SHUTDOWN line on Close, so a log file's lifetime
// is recoverable just by reading it. Debug-level output (Debugln) is only
// written when the logger was created with verbose set.
type Logger struct {
	log  *logrus.Logger
	file *os.File
}

// NewFileLogger creates a Logger that appends to filename, creating the file
// if it does not already exist, and writes a STARTUP line on every call.
// identifier is recorded in
// the STARTUP line so a shared log directory can tell which component wrote
// which file.
func NewFileLogger(identifier string, filename string, verbose bool) (*Logger, error) {
	file, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("persist: could not open log file: %w", err)
	}

	log := logrus.New()
	log.SetOutput(file)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:    true,
		DisableColors:    true,
		DisableQuote:     true,
		QuoteEmptyFields: true,
	})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}

	l := &Logger{log: log, file: file}
	l.log.Infof("STARTUP: %s logger started", identifier)
	return l, nil
}

// Println logs v at info level, always written regardless of verbosity.
func (l *Logger) Println(v ...interface{}) {
	l.log.Infoln(v...)
}

// Printf logs a formatted message at info level.
func (l *Logger) Printf(format string, v ...interface{}) {
	l.log.Infof(format, v...)
}

// Debugln logs v at debug level; suppressed unless the logger was created
// with verbose set.
func (l *Logger) Debugln(v ...interface{}) {
	l.log.Debugln(v...)
}

// Critical logs v at error level and then panics, for invariant violations
// that must not be allowed to continue silently (mirrors build.Critical's
// severity, but always panics since a caller reaching for the persist
// logger's Critical has already decided this is fatal).
func (l *Logger) Critical(v ...interface{}) {
	msg := fmt.Sprintln(v...)
	l.log.Error("CRITICAL: " + msg)
	panic("persist: critical error: " + msg)
}

// Close writes a SHUTDOWN line and closes the underlying file.
func (l *Logger) Close() error {
	l.log.Infoln("SHUTDOWN: logger closed")
	return l.file.Close()
}
