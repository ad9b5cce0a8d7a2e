package logger

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/cockroachdb/errors/errbase"
)

// replaceAttr names the custom levels and renders errors as their message.
// Machine readable outputs report durations in milliseconds.
func replaceAttr(durationMs bool) func([]string, slog.Attr) slog.Attr {
	return func(groups []string, attr slog.Attr) slog.Attr {
		if len(groups) == 0 {
			switch attr.Key {
			case slog.LevelKey:
				if l, ok := attr.Value.Any().(slog.Level); ok {
					return slog.String(slog.LevelKey, levelName(l))
				}
			case ErrorKey:
				if err, ok := attr.Value.Any().(error); ok && err != nil {
					return slog.String(ErrorKey, err.Error())
				}
			}
		}
		if durationMs && attr.Value.Kind() == slog.KindDuration {
			return slog.Int64(attr.Key, attr.Value.Duration().Milliseconds())
		}
		return attr
	}
}

func levelName(l slog.Level) string {
	switch {
	case l < LevelPanic:
		return l.String()
	case l < LevelFatal:
		return "PANIC"
	default:
		return "FATAL"
	}
}

// verboseErrorHandler adds the verbose form and the stack trace of the first error attribute of a record.
type verboseErrorHandler struct {
	slog.Handler
}

func (h *verboseErrorHandler) Handle(ctx context.Context, rec slog.Record) error {
	rec.Attrs(func(attr slog.Attr) bool {
		if attr.Key != ErrorKey {
			return true
		}
		err, ok := attr.Value.Any().(error)
		if !ok || err == nil {
			return true
		}
		rec.AddAttrs(slog.String(ErrorVerboseKey, fmt.Sprintf("%+v", err)))
		if x, ok := err.(errbase.StackTraceProvider); ok {
			rec.AddAttrs(slog.Any(ErrorStackTraceKey, stackFrames(x.StackTrace())))
		}
		return false
	})
	return h.Handler.Handle(ctx, rec)
}

func (h *verboseErrorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &verboseErrorHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *verboseErrorHandler) WithGroup(name string) slog.Handler {
	return &verboseErrorHandler{Handler: h.Handler.WithGroup(name)}
}

func stackFrames(st errbase.StackTrace) []string {
	pcs := make([]uintptr, len(st))
	for i, f := range st {
		pcs[i] = uintptr(f)
	}
	frames := runtime.CallersFrames(pcs)
	var lines []string
	for {
		frame, more := frames.Next()
		lines = append(lines, fmt.Sprintf("%s %s:%d", frame.Function, frame.File, frame.Line))
		if !more {
			break
		}
	}
	return lines
}
