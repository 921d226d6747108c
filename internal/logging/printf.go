package logging

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// PrintfLogger bridges libraries that log through a Printf method (kafka-go, go-redis)
// to zerolog.
type PrintfLogger struct {
	ZLog  zerolog.Logger
	Level zerolog.Level
}

func NewPrintfLogger(zlog zerolog.Logger, level zerolog.Level) PrintfLogger {
	return PrintfLogger{ZLog: zlog, Level: level}
}

func (l PrintfLogger) Printf(format string, args ...any) {
	l.ZLog.WithLevel(l.Level).Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// ContextPrintfLogger is the go-redis flavor of PrintfLogger.
type ContextPrintfLogger struct {
	PrintfLogger
}

func (l ContextPrintfLogger) Printf(_ context.Context, format string, args ...any) {
	l.PrintfLogger.Printf(format, args...)
}
