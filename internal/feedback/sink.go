package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileSinkConfig configures the feedback log file.
type FileSinkConfig struct {
	Path       string
	MaxSizeMB  int // rotation threshold, lumberjack defaults to 100
	MaxBackups int // 0 keeps every rotated file
}

// FileSink appends records to a log file, rotating it by size.
type FileSink struct {
	mu  sync.Mutex
	out *lumberjack.Logger
	now func() time.Time
}

// NewFileSink creates a sink. The file is opened on the first write.
func NewFileSink(cfg FileSinkConfig) *FileSink {
	return &FileSink{
		out: &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		},
		now: time.Now,
	}
}

// Record writes one line. Each record is a single Write so concurrent
// records never interleave.
func (s *FileSink) Record(_ context.Context, r Record) error {
	if r.Time.IsZero() {
		r.Time = s.now()
	}
	line := r.Line()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.out.Write([]byte(line)); err != nil {
		return fmt.Errorf("writing feedback to %s: %w", s.out.Filename, err)
	}

	slog.Debug("feedback recorded",
		"session_id", r.SessionID,
		"message_id", r.MessageID,
		"feedback", r.FeedbackType,
	)
	return nil
}

// Close closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Close()
}
