package diffract

// Constraint is one real axis's solver-side search state: bounds, a
// seed/target value, and whether the engine may vary the axis during a
// forward search. Constraints are values; replace them wholesale.
type Constraint struct {
	LowLimit  float64
	HighLimit float64
	Value     float64
	Fit       bool
}

// NewConstraint builds a Constraint in field order.
func NewConstraint(lowLimit, highLimit, value float64, fit bool) Constraint {
	return Constraint{LowLimit: lowLimit, HighLimit: highLimit, Value: value, Fit: fit}
}

// ConstraintSet maps real-axis names to constraints. Snapshots cover every
// real axis; sets passed to ApplyConstraints may name any subset.
type ConstraintSet map[string]Constraint

// clone returns an independent copy.
func (cs ConstraintSet) clone() ConstraintSet {
	out := make(ConstraintSet, len(cs))
	for axis, con := range cs {
		out[axis] = con
	}
	return out
}

// constraintStack is the apply/undo/reset history. Element 0, when
// present, is the snapshot taken immediately before the first apply since
// the stack was last empty; reset restores it and discards everything.
type constraintStack struct {
	entries []ConstraintSet
}

func (s *constraintStack) depth() int {
	return len(s.entries)
}

func (s *constraintStack) push(cs ConstraintSet) {
	s.entries = append(s.entries, cs)
}

// pop removes and returns the most recent snapshot.
func (s *constraintStack) pop() (ConstraintSet, bool) {
	if len(s.entries) == 0 {
		return nil, false
	}
	top := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	return top, true
}

// baseline returns the oldest snapshot without removing it.
func (s *constraintStack) baseline() (ConstraintSet, bool) {
	if len(s.entries) == 0 {
		return nil, false
	}
	return s.entries[0], true
}

func (s *constraintStack) clear() {
	s.entries = nil
}
