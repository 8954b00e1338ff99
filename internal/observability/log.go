// Package observability provides the solver's leveled logging wrapper.
// No structured-logging library is used: the teacher's own code never
// calls zap/zerolog/logrus directly either, only stdlib log, so this
// module keeps that register rather than importing a library the corpus
// never actually exercises.
package observability

import (
	"log"
	"os"
)

// Logger wraps the standard library logger with leveled prefixes.
type Logger struct {
	l *log.Logger
}

// NewLogger builds a Logger writing to stderr with a microsecond-precision
// timestamp, matching the teacher's own log.New usage.
func NewLogger(prefix string) *Logger {
	return &Logger{
		l: log.New(os.Stderr, prefix, log.LstdFlags|log.Lmicroseconds),
	}
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.l.Printf("INFO "+format, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.l.Printf("WARN "+format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.l.Printf("ERROR "+format, args...)
}

func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.l.Fatalf("FATAL "+format, args...)
}
