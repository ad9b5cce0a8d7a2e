// Package slogx has typed attribute constructors, so call sites read the same whatever the value type.
package slogx

import (
	"fmt"
	"log/slog"
	"time"
)

// ErrorKey is the attribute key of errors logged with [Error].
const ErrorKey = "error"

// Error returns an attribute for err. A nil error gives an empty attribute, which handlers ignore.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any(ErrorKey, err)
}

func String(key, value string) slog.Attr {
	return slog.String(key, value)
}

// Stringer returns a string attribute, or an empty one for a nil value.
func Stringer(key string, value fmt.Stringer) slog.Attr {
	if value == nil {
		return slog.Attr{}
	}
	return slog.String(key, value.String())
}

func Strings(key string, values []string) slog.Attr {
	return slog.Any(key, values)
}

func Int(key string, value int) slog.Attr {
	return slog.Int64(key, int64(value))
}

func Int64(key string, value int64) slog.Attr {
	return slog.Int64(key, value)
}

func Time(key string, v time.Time) slog.Attr {
	return slog.Time(key, v)
}

func Duration(key string, v time.Duration) slog.Attr {
	return slog.Duration(key, v)
}
