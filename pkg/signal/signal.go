// Package signal provides the settable-value and positioner primitives the
// diffractometer core consumes from its device-positioning framework:
// values with subscribe-on-change notification and motor readbacks with
// their own travel limits.
package signal

import (
	"sync"

	"hkl-go-migration/pkg/errors"
)

// Callback receives the new value after a notifying put.
type Callback[T any] func(value T)

// Signal is a named settable value with change notification.
type Signal[T any] struct {
	mu    sync.Mutex
	name  string
	value T
	subs  []Callback[T]
}

// New creates a Signal holding initial.
func New[T any](name string, initial T) *Signal[T] {
	return &Signal[T]{name: name, value: initial}
}

// Name returns the signal name.
func (s *Signal[T]) Name() string {
	return s.name
}

// Get returns the current value.
func (s *Signal[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Put sets the value and notifies every subscriber synchronously, in
// subscription order. Callbacks run outside the signal lock so they may
// read this or other signals.
func (s *Signal[T]) Put(v T) {
	s.mu.Lock()
	s.value = v
	subs := make([]Callback[T], len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, cb := range subs {
		cb(v)
	}
}

// PutQuiet sets the value without notifying subscribers. Used by the
// energy synchronizer when writing derived display values, so a put can
// never re-enter the handler that issued it.
func (s *Signal[T]) PutQuiet(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = v
}

// Subscribe registers cb to run on every notifying put.
func (s *Signal[T]) Subscribe(cb Callback[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, cb)
}

// Positioner is one motorized degree of freedom: a readback value plus
// software travel limits.
type Positioner struct {
	mu        sync.Mutex
	name      string
	position  float64
	low, high float64
	hasLimits bool
}

// NewPositioner creates a positioner with software limits.
func NewPositioner(name string, low, high float64) *Positioner {
	return &Positioner{name: name, low: low, high: high, hasLimits: true}
}

// NewUnboundedPositioner creates a positioner with no software limits.
func NewUnboundedPositioner(name string) *Positioner {
	return &Positioner{name: name}
}

// Name returns the positioner name.
func (p *Positioner) Name() string {
	return p.name
}

// Position returns the current readback value.
func (p *Positioner) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

// SetPosition updates the readback value.
func (p *Positioner) SetPosition(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = v
}

// Limits returns the software limits. ok is false when the positioner
// is unbounded.
func (p *Positioner) Limits() (low, high float64, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.low, p.high, p.hasLimits
}

// SetLimits replaces the software limits.
func (p *Positioner) SetLimits(low, high float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.low, p.high, p.hasLimits = low, high, true
}

// CheckValue returns a LIMIT error if target is outside the software
// limits. Unbounded positioners accept any target.
func (p *Positioner) CheckValue(target float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hasLimits {
		return nil
	}
	if target < p.low || target > p.high {
		return errors.LimitError(p.name, target, p.low, p.high)
	}
	return nil
}
