package authlog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/dmitrijs2005/chapterhub/internal/server/metrics"
)

// LogSink writes records as single-line JSON through zerolog, one writer
// per level class.
type LogSink struct {
	info io.Writer
	warn io.Writer
	err  io.Writer
}

// NewLogSink routes info to info, warn to warn, error and security to errw.
// Nil writers fall back to stdout/stderr.
func NewLogSink(info, warn, errw io.Writer) *LogSink {
	if info == nil {
		info = os.Stdout
	}
	if warn == nil {
		warn = os.Stderr
	}
	if errw == nil {
		errw = os.Stderr
	}
	return &LogSink{
		info: zerolog.SyncWriter(info),
		warn: zerolog.SyncWriter(warn),
		err:  zerolog.SyncWriter(errw),
	}
}

func (s *LogSink) writerFor(l Level) io.Writer {
	switch l {
	case LevelError, LevelSecurity:
		return s.err
	case LevelWarn:
		return s.warn
	default:
		return s.info
	}
}

func (s *LogSink) Validate(r Record) error {
	if r.Kind == "" {
		return errors.New("record without event")
	}
	switch r.Level {
	case LevelInfo, LevelWarn, LevelError, LevelSecurity:
		return nil
	default:
		return fmt.Errorf("unknown level %q", r.Level)
	}
}

func (s *LogSink) Handle(_ context.Context, r Record) error {
	w := &captureWriter{w: s.writerFor(r.Level)}
	zl := zerolog.New(w)

	zl.Log().
		Str("time", r.Time.UTC().Format(time.RFC3339)).
		Str("level", string(r.Level)).
		Str("event", string(r.Kind)).
		Fields(r.Fields).
		Msg("")

	return w.err
}

// captureWriter keeps the write error zerolog would otherwise swallow.
type captureWriter struct {
	w   io.Writer
	err error
}

func (c *captureWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	if err != nil {
		c.err = err
	}
	return n, err
}

// MetricSink feeds records into the metrics store.
type MetricSink struct {
	store *metrics.Store
}

func NewMetricSink(store *metrics.Store) *MetricSink {
	return &MetricSink{store: store}
}

func (s *MetricSink) Validate(r Record) error {
	return metrics.Validate(r.Kind, r.Params)
}

func (s *MetricSink) Handle(_ context.Context, r Record) error {
	return s.store.Track(r.Kind, r.Params)
}
