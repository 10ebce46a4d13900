// Package audit records every dispatched action on a best-effort basis.
//
// Persisting a record may fail (unreachable store, unserializable details);
// such failures are reported on the diagnostic logger and never reach the
// caller. Callers must not assume every action ends up in the store.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Reserved actions that are not tool names
const (
	ActionError     = "error"
	ActionToolsList = "mcp_tools_list"
)

// Record is the persisted shape of one audit entry
type Record struct {
	Action    string         `json:"action"`
	Details   map[string]any `json:"details"`
	Timestamp string         `json:"timestamp"`
}

// Sink accepts audit records without ever failing from the caller's view
type Sink interface {
	// Record queues an audit entry and returns immediately
	Record(ctx context.Context, action string, details map[string]any)
}

// Store persists encoded records under a caller-supplied key
type Store interface {
	Put(ctx context.Context, key string, body []byte) error
}

// Discard is a Sink that drops everything (auditing disabled)
type Discard struct{}

// Record implements Sink
func (Discard) Record(context.Context, string, map[string]any) {}

// Recorder is the Sink backed by a Store. Writes run in the background with
// their own timeout and are detached from the request context, so an
// aborted request neither cancels nor waits for its audit write.
type Recorder struct {
	store   Store
	prefix  string
	timeout time.Duration
	now     func() time.Time
	newID   func() string
	logger  zerolog.Logger

	// mu orders wg.Add in Record against Close setting closed
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// RecorderOption configures a Recorder
type RecorderOption func(*Recorder)

// WithPrefix sets the key prefix (default "audit/")
func WithPrefix(prefix string) RecorderOption {
	return func(r *Recorder) {
		r.prefix = prefix
	}
}

// WithTimeout bounds each background write (default 5s)
func WithTimeout(d time.Duration) RecorderOption {
	return func(r *Recorder) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		r.now = now
	}
}

// WithLogger sets the diagnostic logger used for write failures
func WithLogger(logger zerolog.Logger) RecorderOption {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// NewRecorder creates a Recorder writing to store
func NewRecorder(store Store, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:   store,
		prefix:  "audit/",
		timeout: 5 * time.Second,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
		logger:  log.Logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Key derives the storage key for a record written at ts
func (r *Recorder) Key(ts time.Time) string {
	return fmt.Sprintf("%s%s-%s.json", r.prefix, ts.UTC().Format("2006-01-02T15:04:05.000000Z"), r.newID())
}

func (r *Recorder) encode(action string, details map[string]any) (string, []byte, error) {
	ts := r.now().UTC()
	if details == nil {
		details = map[string]any{}
	}

	body, err := json.Marshal(Record{
		Action:    action,
		Details:   details,
		Timestamp: ts.Format(time.RFC3339Nano),
	})
	if err != nil {
		return "", nil, fmt.Errorf("encode audit record: %w", err)
	}

	return r.Key(ts), body, nil
}

// Write encodes and stores a record synchronously and reports the outcome.
// Record is the fire-and-forget wrapper callers normally use.
func (r *Recorder) Write(ctx context.Context, action string, details map[string]any) error {
	key, body, err := r.encode(action, details)
	if err != nil {
		return err
	}
	return r.put(ctx, key, body)
}

func (r *Recorder) put(ctx context.Context, key string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.store.Put(ctx, key, body); err != nil {
		return fmt.Errorf("store audit record %s: %w", key, err)
	}
	return nil
}

// Record implements Sink. The record is encoded before returning, so later
// changes to details are not observed; the store write happens in the
// background.
func (r *Recorder) Record(ctx context.Context, action string, details map[string]any) {
	key, body, err := r.encode(action, details)
	if err != nil {
		r.logger.Warn().Err(err).Str("action", action).Msg("audit record dropped")
		return
	}

	writeCtx := context.WithoutCancel(ctx)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.logger.Warn().Str("action", action).Msg("audit record dropped after close")
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				r.logger.Error().Interface("panic", p).Str("action", action).Msg("audit store panicked")
			}
		}()

		if err := r.put(writeCtx, key, body); err != nil {
			r.logger.Warn().Err(err).Str("action", action).Msg("audit write failed")
		}
	}()
}

// Close stops accepting records and waits for in-flight writes, or until
// ctx is done. Records arriving after Close are dropped.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
