package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Class identifies an independently throttled kind of outbound request.
type Class string

const (
	ClassSearch Class = "search"
	ClassFetch  Class = "fetch"
)

// ErrUnknownClass is returned when Acquire is called for a class with no rule.
var ErrUnknownClass = errors.New("ratelimit: unknown class")

// Rule caps admissions to Limit per trailing Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Clock abstracts time so tests can drive the limiter.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// AdmitFunc is called after every admission with the recorded timestamp and
// the total time the caller waited.
type AdmitFunc func(class Class, admittedAt time.Time, waited time.Duration)

type window struct {
	mu     sync.Mutex
	rule   Rule
	stamps []time.Time
}

// Limiter keeps a rolling window of admission timestamps per class.
type Limiter struct {
	windows map[Class]*window
	clock   Clock
	onAdmit AdmitFunc
}

type Option func(*Limiter)

func WithClock(c Clock) Option {
	return func(l *Limiter) { l.clock = c }
}

func WithAdmitHook(fn AdmitFunc) Option {
	return func(l *Limiter) { l.onAdmit = fn }
}

// New creates a Limiter with one independent window per rule.
func New(rules map[Class]Rule, opts ...Option) (*Limiter, error) {
	l := &Limiter{
		windows: make(map[Class]*window, len(rules)),
		clock:   realClock{},
	}
	for class, rule := range rules {
		if rule.Limit <= 0 || rule.Window <= 0 {
			return nil, fmt.Errorf("ratelimit: invalid rule for %q: limit=%d window=%s", class, rule.Limit, rule.Window)
		}
		l.windows[class] = &window{rule: rule, stamps: make([]time.Time, 0, rule.Limit)}
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Acquire blocks until one more request of the given class can be admitted
// without exceeding the class ceiling, then records it. It returns the time
// spent waiting. The request is never refused; only ctx cancellation ends the
// wait early.
func (l *Limiter) Acquire(ctx context.Context, class Class) (time.Duration, error) {
	w, ok := l.windows[class]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownClass, class)
	}

	var waited time.Duration
	for {
		now, delay, admitted := w.tryAdmit(l.clock)
		if admitted {
			if l.onAdmit != nil {
				l.onAdmit(class, now, waited)
			}
			return waited, nil
		}

		select {
		case <-ctx.Done():
			return waited, ctx.Err()
		case <-l.clock.After(delay):
			waited += delay
		}
	}
}

// Occupancy reports how many admissions of class fall inside the current window.
func (l *Limiter) Occupancy(class Class) int {
	w, ok := l.windows[class]
	if !ok {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.evict(l.clock.Now())
	return len(w.stamps)
}

// tryAdmit evicts expired stamps and either records the current time or
// reports how long until the oldest stamp leaves the window. The clock is read
// under the lock so stamps are appended in non-decreasing order.
func (w *window) tryAdmit(clock Clock) (time.Time, time.Duration, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := clock.Now()
	w.evict(now)
	if len(w.stamps) < w.rule.Limit {
		w.stamps = append(w.stamps, now)
		return now, 0, true
	}

	delay := w.stamps[0].Add(w.rule.Window).Sub(now)
	if delay <= 0 {
		delay = time.Millisecond
	}
	return now, delay, false
}

func (w *window) evict(now time.Time) {
	cut := 0
	for cut < len(w.stamps) && now.Sub(w.stamps[cut]) >= w.rule.Window {
		cut++
	}
	if cut > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[cut:]...)
	}
}

// DefaultRules returns the provider-friendly ceilings: 30 searches and 20
// page fetches per minute.
func DefaultRules() map[Class]Rule {
	return map[Class]Rule{
		ClassSearch: {Limit: 30, Window: time.Minute},
		ClassFetch:  {Limit: 20, Window: time.Minute},
	}
}
