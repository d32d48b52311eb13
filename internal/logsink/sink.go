package logsink

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/akave-ai/returnall/internal/config"
	"github.com/akave-ai/returnall/internal/model"
)

// Sink durably records captured requests.
type Sink interface {
	Record(ctx context.Context, message string, rec *model.RequestRecord)
}

// ZerologSink writes one JSON line per record with level, name, time,
// message and the full record under request_info.
type ZerologSink struct {
	logger zerolog.Logger
	file   *os.File
	once   sync.Once
}

// New opens cfg.Path for appending, creating parent directories, and mirrors
// every line to stdout when cfg.Console is set.
func New(cfg config.LogConfig) (*ZerologSink, error) {
	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", cfg.Path, err)
	}

	var w io.Writer = f
	if cfg.Console {
		w = zerolog.MultiLevelWriter(os.Stdout, f)
	}
	s := NewWithWriter(w, cfg.Name)
	s.file = f
	return s, nil
}

// NewWithWriter returns a sink writing to w. Close is a no-op for it.
func NewWithWriter(w io.Writer, name string) *ZerologSink {
	l := zerolog.New(w).With().
		Str("name", name).
		Timestamp().
		Logger()
	return &ZerologSink{logger: l}
}

func (s *ZerologSink) Record(_ context.Context, message string, rec *model.RequestRecord) {
	s.logger.Info().
		Interface("request_info", rec).
		Msg(message)
}

// Close releases the log file.
func (s *ZerologSink) Close() error {
	var err error
	s.once.Do(func() {
		if s.file != nil {
			err = s.file.Close()
		}
	})
	return err
}
