// Package logger は zerolog をラップした構造化ロガーを提供します。
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	JSONLoggingFormat = "json"

	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Logger はアプリケーション共通のロガーです。
type Logger struct {
	zerolog.Logger
}

// New は標準出力へ書き込むロガーを作成します。
func New(level, format string) Logger {
	return NewWithWriter(level, format, os.Stdout)
}

// NewWithWriter は任意の Writer へ書き込むロガーを作成します。
func NewWithWriter(level, format string, w io.Writer) Logger {
	var logLevel zerolog.Level

	switch strings.ToLower(level) {
	case LogLevelDebug:
		logLevel = zerolog.DebugLevel
	case LogLevelWarn, "warning":
		logLevel = zerolog.WarnLevel
	case LogLevelError:
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339})
	if format == JSONLoggingFormat {
		logger = zerolog.New(w)
	}

	return Logger{
		Logger: logger.Level(logLevel).With().Timestamp().Logger(),
	}
}

// Component はコンポーネント名を付与した子ロガーを返します。
func (l Logger) Component(name string) Logger {
	return Logger{Logger: l.With().Str("component", name).Logger()}
}
