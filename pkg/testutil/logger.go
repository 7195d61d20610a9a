package testutil

import (
	"bytes"
	"log/slog"
)

// BufferLogger returns a logger whose output is kept in the returned buffer,
// so tests can assert on diagnostics when they care and ignore them otherwise.
func BufferLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}
