package watch

import (
	"fmt"
	sc "sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Scope is one in-flight measurement. It must be ended exactly once, which
// is usually done with defer:
//
//	s := w.Begin("Orders.Load", 200)
//	defer s.End()
type Scope struct {
	w           *Watcher
	id          string
	key         string
	thresholdMs uint64
	start       time.Time
	params      string

	mx     sc.Mutex
	failed bool
	err    error

	ended atomic.Bool
}

// Begin starts a measurement. It does not touch the registry.
func (w *Watcher) Begin(key string, thresholdMs uint64) *Scope {
	return &Scope{
		w:           w,
		id:          uuid.NewString(),
		key:         key,
		thresholdMs: thresholdMs,
		start:       time.Now(),
	}
}

func (s *Scope) ID() string          { return s.id }
func (s *Scope) Key() string         { return s.key }
func (s *Scope) ThresholdMs() uint64 { return s.thresholdMs }

// MarkFailed flags the scope as failed. It may be called any number of times
// before End; the last non-nil err becomes the recorded error message.
func (s *Scope) MarkFailed(err error) {
	s.mx.Lock()
	s.failed = true
	if err != nil {
		s.err = err
	}
	s.mx.Unlock()
}

// Failed reports whether MarkFailed has been called.
func (s *Scope) Failed() bool {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.failed
}

// End stops the timer, commits the measurement and returns it. Ending a
// scope twice panics with an error wrapping ErrScopeEnded.
func (s *Scope) End() Result {
	return s.finish("")
}

func (s *Scope) finish(output string) Result {
	if !s.ended.CompareAndSwap(false, true) {
		panic(fmt.Errorf("%w: key=%s scope=%s", ErrScopeEnded, s.key, s.id))
	}

	elapsed := time.Since(s.start)
	if elapsed < 0 {
		elapsed = 0
	}

	s.mx.Lock()
	failed, err := s.failed, s.err
	s.mx.Unlock()

	elapsedMs := uint64(elapsed.Milliseconds())
	res := Result{
		ScopeID:        s.id,
		Key:            s.key,
		ElapsedMs:      elapsedMs,
		ThresholdMs:    s.thresholdMs,
		Classification: Classify(elapsedMs, s.thresholdMs, failed),
		Err:            err,
		EndedAt:        time.Now(),
	}

	s.w.commit(res, s.params, output)
	return res
}
