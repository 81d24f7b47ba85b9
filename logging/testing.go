package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

type testAppender struct {
	tb testing.TB
}

// NewTestAppender returns an appender that logs through `tb.Log` so that parallel tests get their
// own log lines. `tb.Helper` keeps the reported file/line pointing away from this appender.
func NewTestAppender(tb testing.TB) Appender {
	return &testAppender{tb}
}

func (tapp *testAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	tapp.tb.Helper()
	parts := []string{
		entry.Time.Format(DefaultTimeFormatStr),
		strings.ToUpper(entry.Level.String()),
		entry.LoggerName,
	}
	if entry.Caller.Defined {
		parts = append(parts, callerToString(&entry.Caller))
	}
	parts = append(parts, entry.Message)

	var encodeErr error
	if len(fields) > 0 {
		var encoded string
		encoded, encodeErr = encodeFields(fields)
		if encodeErr == nil {
			parts = append(parts, encoded)
		}
	}
	tapp.tb.Log(strings.Join(parts, "\t"))
	return encodeErr
}

func (tapp *testAppender) Sync() error {
	return nil
}
