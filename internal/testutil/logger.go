package testutil

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger is a sugared zap logger that records every entry in memory.
// It satisfies the small logger interfaces declared by each package.
type TestLogger struct {
	*zap.SugaredLogger
	observed *observer.ObservedLogs
}

// Entry represents a logged message.
type Entry struct {
	Level  string
	Msg    string
	Fields map[string]any
}

// NewTestLogger creates a logger instance capturing debug and above.
func NewTestLogger() *TestLogger {
	core, observed := observer.New(zapcore.DebugLevel)
	return &TestLogger{
		SugaredLogger: zap.New(core).Sugar(),
		observed:      observed,
	}
}

// Logger returns the unsugared logger sharing the same sink.
func (l *TestLogger) Logger() *zap.Logger {
	return l.Desugar()
}

// Entries returns a copy of logged entries.
func (l *TestLogger) Entries() []Entry {
	all := l.observed.All()
	out := make([]Entry, 0, len(all))
	for _, e := range all {
		out = append(out, Entry{
			Level:  e.Level.String(),
			Msg:    e.Message,
			Fields: e.ContextMap(),
		})
	}
	return out
}

// Count returns how many entries carry exactly msg.
func (l *TestLogger) Count(msg string) int {
	return l.observed.FilterMessage(msg).Len()
}
