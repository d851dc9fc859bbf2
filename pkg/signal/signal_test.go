package signal

import (
	"testing"

	"hkl-go-migration/pkg/errors"
)

func TestPutNotifies(t *testing.T) {
	s := New("energy", 8.0)

	var seen []float64
	s.Subscribe(func(v float64) { seen = append(seen, v) })

	s.Put(9.0)
	s.Put(10.0)

	if len(seen) != 2 || seen[0] != 9.0 || seen[1] != 10.0 {
		t.Errorf("callbacks saw %v, want [9 10]", seen)
	}
	if s.Get() != 10.0 {
		t.Errorf("Get() = %v, want 10", s.Get())
	}
}

func TestPutQuietSkipsSubscribers(t *testing.T) {
	s := New("energy", 8.0)

	calls := 0
	s.Subscribe(func(v float64) { calls++ })

	s.PutQuiet(7.9)

	if calls != 0 {
		t.Errorf("PutQuiet notified %d subscribers", calls)
	}
	if s.Get() != 7.9 {
		t.Errorf("Get() = %v, want 7.9", s.Get())
	}
}

func TestCallbackMayReadSignal(t *testing.T) {
	s := New("units", "keV")

	var got string
	s.Subscribe(func(string) { got = s.Get() })
	s.Put("eV")

	if got != "eV" {
		t.Errorf("callback read %q, want eV", got)
	}
}

func TestPositionerCheckValue(t *testing.T) {
	p := NewPositioner("tth", -5, 180)

	if err := p.CheckValue(90); err != nil {
		t.Errorf("in-bounds target rejected: %v", err)
	}
	err := p.CheckValue(181)
	if !errors.Is(err, errors.ErrLimit) {
		t.Fatalf("expected LIMIT error, got %v", err)
	}
	if de := err.(*errors.DiffractError); de.Axis != "tth" {
		t.Errorf("error axis = %q, want tth", de.Axis)
	}

	u := NewUnboundedPositioner("kphi")
	if err := u.CheckValue(1e6); err != nil {
		t.Errorf("unbounded positioner rejected target: %v", err)
	}
}
