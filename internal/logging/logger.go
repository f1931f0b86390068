// Package logging wraps structured logging and per-key log throttling.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger emits leveled events tagged with a component and process name.
type Logger struct {
	z         *zap.Logger
	component string
}

// New builds a production zap logger for the given component.
func New(component string) (*Logger, error) {
	z, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}
	return &Logger{z: z, component: component}, nil
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop(component string) *Logger {
	return &Logger{z: zap.NewNop(), component: component}
}

// Named returns a logger for a different component sharing the same core.
func (l *Logger) Named(component string) *Logger {
	return &Logger{z: l.z, component: component}
}

func (l *Logger) log(level zapcore.Level, process, format string, args ...any) {
	l.z.Log(level, fmt.Sprintf(format, args...),
		zap.String("component", l.component),
		zap.String("process", process),
	)
}

func (l *Logger) Info(process, format string, args ...any) {
	l.log(zapcore.InfoLevel, process, format, args...)
}

func (l *Logger) Warning(process, format string, args ...any) {
	l.log(zapcore.WarnLevel, process, format, args...)
}

func (l *Logger) Error(process, format string, args ...any) {
	l.log(zapcore.ErrorLevel, process, format, args...)
}

func (l *Logger) Debug(process, format string, args ...any) {
	l.log(zapcore.DebugLevel, process, format, args...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.z.Sync()
}
