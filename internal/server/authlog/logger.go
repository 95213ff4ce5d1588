// Package authlog emits one structured record per auth event. Records are
// sanitized before they leave the package and published to a fixed set of
// subscribers (the JSON log sink and the metrics sink). A record is either
// accepted by every subscriber or dropped as a whole.
package authlog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/chapterhub/internal/logging"
	"github.com/dmitrijs2005/chapterhub/internal/server/metrics"
	"github.com/dmitrijs2005/chapterhub/internal/timex"
)

// Level is the record severity.
type Level string

const (
	LevelInfo     Level = "info"
	LevelWarn     Level = "warn"
	LevelError    Level = "error"
	LevelSecurity Level = "security"
)

// ErrDropped is returned by Log when a subscriber rejected the record.
var ErrDropped = errors.New("auth record dropped")

// DefaultLevel is the level used when an Event carries none.
func DefaultLevel(kind metrics.EventKind) Level {
	switch {
	case kind == metrics.RateLimitExceeded, kind == metrics.SuspiciousActivity:
		return LevelSecurity
	case kind == metrics.BlockedIP, strings.HasSuffix(string(kind), "_failure"):
		return LevelWarn
	default:
		return LevelInfo
	}
}

// Event is what callers hand to Log. Email is masked and Attrs are
// sanitized on the way out; Duration only matters for session end events.
type Event struct {
	Kind     metrics.EventKind
	Level    Level
	Email    string
	UserID   string
	Provider string
	Reason   string
	Duration time.Duration
	Request  *RequestInfo
	Attrs    map[string]any
}

// Record is a sanitized event ready for subscribers.
type Record struct {
	Time   time.Time
	Level  Level
	Kind   metrics.EventKind
	Params metrics.Params
	Fields map[string]any
}

// Subscriber receives published records. Validate must not have side
// effects; Handle is only called once every subscriber validated.
type Subscriber interface {
	Validate(r Record) error
	Handle(ctx context.Context, r Record) error
}

type Logger struct {
	subs  []Subscriber
	clock timex.Clock
	ops   logging.Logger

	dropped    atomic.Uint64
	sinkErrors atomic.Uint64
}

type Option func(*Logger)

func WithClock(c timex.Clock) Option { return func(l *Logger) { l.clock = c } }

// WithOperationalLogger sets where drops and sink failures are reported.
func WithOperationalLogger(ops logging.Logger) Option {
	return func(l *Logger) { l.ops = ops }
}

func New(subs []Subscriber, opts ...Option) *Logger {
	l := &Logger{
		subs:  subs,
		clock: timex.Now,
		ops:   logging.Nop{},
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Build turns an event into the record that would be published.
func (l *Logger) Build(e Event) Record {
	level := e.Level
	if level == "" {
		level = DefaultLevel(e.Kind)
	}

	fields := Sanitize(e.Attrs)
	if fields == nil {
		fields = make(map[string]any)
	}
	if e.Email != "" {
		fields["email"] = MaskEmail(e.Email)
	}
	if e.UserID != "" {
		fields["user_id"] = e.UserID
	}
	if e.Provider != "" {
		fields["provider"] = e.Provider
	}
	if e.Reason != "" {
		fields["reason"] = e.Reason
	}
	if e.Duration > 0 {
		fields["duration_seconds"] = int64(e.Duration / time.Second)
	}
	if e.Request != nil {
		e.Request.appendTo(fields)
	}

	return Record{
		Time:   l.clock(),
		Level:  level,
		Kind:   e.Kind,
		Params: metrics.Params{Provider: e.Provider, Duration: e.Duration},
		Fields: fields,
	}
}

// Log publishes e. If any subscriber rejects the record nothing is written,
// the drop counter is bumped and ErrDropped is returned. Sink write errors
// after validation are counted but do not fail the call.
func (l *Logger) Log(ctx context.Context, e Event) error {
	r := l.Build(e)

	for _, s := range l.subs {
		if err := s.Validate(r); err != nil {
			l.dropped.Add(1)
			l.ops.Warn(ctx, "auth record dropped", "event", string(r.Kind), "error", err)
			return fmt.Errorf("%w: %v", ErrDropped, err)
		}
	}

	for _, s := range l.subs {
		if err := s.Handle(ctx, r); err != nil {
			l.sinkErrors.Add(1)
			l.ops.Error(ctx, "auth sink failed", "event", string(r.Kind), "error", err)
		}
	}
	return nil
}

// Dropped is the number of records rejected during validation.
func (l *Logger) Dropped() uint64 { return l.dropped.Load() }

// SinkErrors is the number of failed Handle calls.
func (l *Logger) SinkErrors() uint64 { return l.sinkErrors.Load() }
