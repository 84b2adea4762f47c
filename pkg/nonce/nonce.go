// Package nonce issues the replay-protection tokens that exchanges expect in
// every signed request.
//
// A Factory hands out time-derived values that never repeat and never go
// down, even when the wall clock stalls or steps backwards, and even when
// several goroutines sign requests at the same time.
package nonce

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Source is what request-signing code depends on.
type Source interface {
	Next() int64
}

// Precision is the clock unit a nonce is expressed in. Exchanges differ in
// what they accept, so every adapter picks its own.
type Precision int

const (
	Seconds Precision = iota
	Milliseconds
	Microseconds
	Nanoseconds
)

// Unit returns the duration of one tick at this precision.
func (p Precision) Unit() time.Duration {
	switch p {
	case Seconds:
		return time.Second
	case Microseconds:
		return time.Microsecond
	case Nanoseconds:
		return time.Nanosecond
	default:
		return time.Millisecond
	}
}

func (p Precision) String() string {
	switch p {
	case Seconds:
		return "s"
	case Milliseconds:
		return "ms"
	case Microseconds:
		return "us"
	case Nanoseconds:
		return "ns"
	default:
		return fmt.Sprintf("Precision(%d)", int(p))
	}
}

// ParsePrecision accepts the short unit names used in config files
// ("s", "ms", "us", "ns") as well as the spelled-out forms.
func ParsePrecision(v string) (Precision, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "s", "sec", "second", "seconds":
		return Seconds, nil
	case "ms", "milli", "millis", "millisecond", "milliseconds":
		return Milliseconds, nil
	case "us", "µs", "micro", "micros", "microsecond", "microseconds":
		return Microseconds, nil
	case "ns", "nano", "nanos", "nanosecond", "nanoseconds":
		return Nanoseconds, nil
	default:
		return 0, fmt.Errorf("unknown nonce precision %q (want s, ms, us or ns)", v)
	}
}

// Option configures a Factory.
type Option func(*Factory)

// WithClock replaces the wall clock. Tests use it to freeze or rewind time.
func WithClock(now func() time.Time) Option {
	return func(f *Factory) {
		if now != nil {
			f.now = now
		}
	}
}

// WithPrecision sets the unit the time-derived candidate is truncated to.
func WithPrecision(p Precision) Option {
	return func(f *Factory) {
		f.unit = int64(p.Unit())
	}
}

// Factory is a process-local, strictly increasing nonce generator.
type Factory struct {
	mu   sync.Mutex
	last int64

	now  func() time.Time
	unit int64
}

// New creates a factory using the wall clock at millisecond precision
// unless options say otherwise.
func New(opts ...Option) *Factory {
	f := &Factory{
		now:  time.Now,
		unit: int64(time.Millisecond),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Next returns a value strictly greater than every value previously
// returned by this factory: max(clock candidate, last+1).
func (f *Factory) Next() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	candidate := f.now().UnixNano() / f.unit
	if candidate <= f.last {
		candidate = f.last + 1
	}
	f.last = candidate
	return candidate
}

// SetPrecision changes the unit of later candidates. The sequence carries on
// from the last issued value; a coarser unit never takes it backwards.
func (f *Factory) SetPrecision(p Precision) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unit = int64(p.Unit())
}

// NextString is Next encoded the way form and query parameters carry it.
func (f *Factory) NextString() string {
	return strconv.FormatInt(f.Next(), 10)
}

// Last reports the most recently issued value, or 0 before the first call.
func (f *Factory) Last() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}
