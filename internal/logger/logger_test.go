package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewWithWriterJSONLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter("warn", JSONLoggingFormat, buf)

	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info message should be filtered: %s", out)
	}
	if !strings.Contains(out, `"message":"shown"`) {
		t.Fatalf("warn message missing: %s", out)
	}
}

func TestComponent(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewBufferedTestLogger(buf).Component("gate")
	log.Info().Msg("x")

	if !strings.Contains(buf.String(), `"component":"gate"`) {
		t.Fatalf("component field missing: %s", buf.String())
	}
}
