package logging

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// recordingHandler captures every record it is handed.
type recordingHandler struct {
	level   slog.Level
	err     error
	records []slog.Record
}

func (h *recordingHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *recordingHandler) Handle(_ context.Context, record slog.Record) error {
	h.records = append(h.records, record)
	return h.err
}

func (h *recordingHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(_ string) slog.Handler      { return h }

func record(level slog.Level, msg string) slog.Record {
	return slog.NewRecord(time.Now(), level, msg, 0)
}

func TestMultiHandlerFansOut(t *testing.T) {
	a := &recordingHandler{level: slog.LevelInfo}
	b := &recordingHandler{level: slog.LevelError}
	m := NewMultiHandler(a, b)

	assert.NoError(t, m.Handle(context.Background(), record(slog.LevelInfo, "info line")))
	assert.NoError(t, m.Handle(context.Background(), record(slog.LevelError, "error line")))

	assert.Len(t, a.records, 2)
	assert.Len(t, b.records, 1)
	assert.Equal(t, "error line", b.records[0].Message)
}

func TestMultiHandlerEnabled(t *testing.T) {
	m := NewMultiHandler(
		&recordingHandler{level: slog.LevelWarn},
		&recordingHandler{level: slog.LevelError},
	)

	assert.False(t, m.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, m.Enabled(context.Background(), slog.LevelWarn))
}

func TestMultiHandlerFailingSinkDoesNotBlockOthers(t *testing.T) {
	broken := &recordingHandler{level: slog.LevelInfo, err: errors.New("sink down")}
	healthy := &recordingHandler{level: slog.LevelInfo}
	m := NewMultiHandler(broken, healthy)

	err := m.Handle(context.Background(), record(slog.LevelInfo, "still delivered"))
	assert.Error(t, err)
	assert.Len(t, healthy.records, 1)
}

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run("LOG_LEVEL="+tt.value, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.value)
			assert.Equal(t, tt.want, LevelFromEnv())
		})
	}
}
