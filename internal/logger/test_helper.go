package logger

import (
	"io"

	"github.com/rs/zerolog"
)

// NewTestLogger は何も出力しないロガーを返します。
func NewTestLogger() Logger {
	return Logger{Logger: zerolog.Nop()}
}

// NewBufferedTestLogger は w に JSON で書き込むロガーを返します。
func NewBufferedTestLogger(w io.Writer) Logger {
	return Logger{Logger: zerolog.New(w)}
}
