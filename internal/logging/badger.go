package logging

import (
	"context"
	"fmt"
	"strings"
)

// BadgerLogger adapts Logger to badger's printf-style logger interface.
type BadgerLogger struct {
	l Logger
}

func NewBadgerLogger(l Logger) *BadgerLogger {
	return &BadgerLogger{l: l.With("component", "badgerdb")}
}

func (b *BadgerLogger) Errorf(format string, args ...any) {
	b.l.Error(context.Background(), trim(format, args...))
}

func (b *BadgerLogger) Warningf(format string, args ...any) {
	b.l.Warn(context.Background(), trim(format, args...))
}

func (b *BadgerLogger) Infof(format string, args ...any) {
	b.l.Info(context.Background(), trim(format, args...))
}

func (b *BadgerLogger) Debugf(format string, args ...any) {
	b.l.Debug(context.Background(), trim(format, args...))
}

// badger terminates most messages with a newline.
func trim(format string, args ...any) string {
	return strings.TrimRight(fmt.Sprintf(format, args...), "\n")
}
