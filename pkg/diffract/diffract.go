// Package diffract coordinates a diffractometer: a device positioned in
// both reciprocal-space pseudo coordinates (h, k, l) and physical motor
// coordinates (angles), related through a bound calculation engine.
//
// The package owns the coordination logic only: energy/units/offset
// synchronization, scoped constraint overrides with undo/reset, and the
// forward/inverse kinematic bridge with multi-solution disambiguation.
// The crystallographic math lives in the engine behind calc.Calc.
package diffract

import (
	"fmt"
	"sync"

	"hkl-go-migration/pkg/calc"
	"hkl-go-migration/pkg/errors"
	"hkl-go-migration/pkg/log"
	"hkl-go-migration/pkg/signal"
)

// forwardMaxIters bounds the engine's forward search. The cap is part of
// the contract: two hosts starting from the same position converge on
// the same solution set only if they hand the engine the same budget.
const forwardMaxIters = 100

// Diffractometer composes the energy synchronizer, the constraint stack
// and the kinematic adapter over one bound calculation engine.
//
// The engine is shared mutable state: every solver-touching operation
// serializes on one per-instance lock. Public operations run to
// completion before the next begins; none are cancellable mid-flight.
type Diffractometer struct {
	mu       sync.Mutex
	name     string
	calc     calc.Calc
	decision DecisionFunc
	logger   *log.Logger

	connected bool

	// Energy settables. Reads and subscriptions are open to callers;
	// writes go through SetEnergy and friends so unit validation and
	// update directionality hold.
	Energy       *signal.Signal[float64]
	EnergyUnits  *signal.Signal[string]
	EnergyOffset *signal.Signal[float64]
	EnergyUpdate *signal.Signal[bool]

	pseudoNames []string
	realNames   []string
	pseudos     map[string]*signal.Positioner
	reals       map[string]*signal.Positioner

	stack constraintStack
}

// Option configures a Diffractometer at construction.
type Option func(*Diffractometer) error

// WithDecisionFunc injects the multi-solution disambiguation policy.
func WithDecisionFunc(fn DecisionFunc) Option {
	return func(d *Diffractometer) error {
		if fn == nil {
			return errors.ConfigurationError("decision function must not be nil")
		}
		d.decision = fn
		return nil
	}
}

// WithGeometry requires the bound engine to expose the named geometry.
func WithGeometry(name string) Option {
	return func(d *Diffractometer) error {
		if got := d.calc.GeometryName(); got != name {
			return errors.ConfigurationError(
				fmt.Sprintf("calculation instance has geometry %s, %s required", got, name))
		}
		return nil
	}
}

// WithLogger replaces the default component logger.
func WithLogger(l *log.Logger) Option {
	return func(d *Diffractometer) error {
		d.logger = l
		return nil
	}
}

// New binds a diffractometer to a calculation engine.
//
// The engine must be locked: the engine determines the pseudo axis name
// set, so switching it from underneath a live device would break every
// positioner. Construction fails fast otherwise.
func New(name string, c calc.Calc, opts ...Option) (*Diffractometer, error) {
	if c == nil {
		return nil, errors.ConfigurationError("calculation instance is required")
	}
	if !c.EngineLocked() {
		return nil, errors.ConfigurationError("calculation engine must be locked")
	}

	d := &Diffractometer{
		name:      name,
		calc:      c,
		decision:  FirstSolution,
		logger:    log.Default().WithPrefix("diffract"),
		connected: true,

		Energy:       signal.New("energy", 8.0),
		EnergyUnits:  signal.New("energy_units", "keV"),
		EnergyOffset: signal.New("energy_offset", 0.0),
		EnergyUpdate: signal.New("energy_update_calc_flag", true),

		pseudoNames: c.PseudoAxisNames(),
		realNames:   c.PhysicalAxisNames(),
		pseudos:     make(map[string]*signal.Positioner),
		reals:       make(map[string]*signal.Positioner),
	}

	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}

	for _, axis := range d.realNames {
		low, high, err := c.AxisLimits(axis)
		if err != nil {
			return nil, errors.CalcError("limits", err)
		}
		p := signal.NewPositioner(axis, low, high)
		value, err := c.AxisValue(axis)
		if err != nil {
			return nil, errors.CalcError("value", err)
		}
		p.SetPosition(value)
		d.reals[axis] = p
	}
	pos := c.PseudoPositions()
	for i, axis := range d.pseudoNames {
		p := signal.NewUnboundedPositioner(axis)
		if i < len(pos) {
			p.SetPosition(pos[i])
		}
		d.pseudos[axis] = p
	}

	d.subscribeEnergy()
	return d, nil
}

// Name returns the device name.
func (d *Diffractometer) Name() string { return d.name }

// Calc returns the bound calculation engine.
func (d *Diffractometer) Calc() calc.Calc { return d.calc }

// SetDecisionFunc replaces the disambiguation policy.
func (d *Diffractometer) SetDecisionFunc(fn DecisionFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if fn != nil {
		d.decision = fn
	}
}

// Connected reports device readiness. Solver-touching operations on a
// disconnected device are skipped or refused, never half-applied.
func (d *Diffractometer) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// SetConnected records device readiness.
func (d *Diffractometer) SetConnected(connected bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = connected
}

// PseudoAxisNames enumerates the pseudo axes in engine order.
func (d *Diffractometer) PseudoAxisNames() []string {
	out := make([]string, len(d.pseudoNames))
	copy(out, d.pseudoNames)
	return out
}

// RealAxisNames enumerates the real axes in engine order.
func (d *Diffractometer) RealAxisNames() []string {
	out := make([]string, len(d.realNames))
	copy(out, d.realNames)
	return out
}

// Position returns the live pseudo position, ordered per PseudoAxisNames.
func (d *Diffractometer) Position() []float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pseudoPositionLocked()
}

// RealPosition returns the live real position, ordered per RealAxisNames.
func (d *Diffractometer) RealPosition() []float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.realPositionLocked()
}

func (d *Diffractometer) pseudoPositionLocked() []float64 {
	out := make([]float64, len(d.pseudoNames))
	for i, axis := range d.pseudoNames {
		out[i] = d.pseudos[axis].Position()
	}
	return out
}

func (d *Diffractometer) realPositionLocked() []float64 {
	out := make([]float64, len(d.realNames))
	for i, axis := range d.realNames {
		out[i] = d.reals[axis].Position()
	}
	return out
}

// isReal reports whether axis names a real positioner.
func (d *Diffractometer) isReal(axis string) bool {
	_, ok := d.reals[axis]
	return ok
}

// isPseudo reports whether axis names a pseudo positioner.
func (d *Diffractometer) isPseudo(axis string) bool {
	_, ok := d.pseudos[axis]
	return ok
}

// Forward maps a pseudo target to one real position through the engine's
// bounded forward search. Every candidate is handed unfiltered to the
// decision function; an empty candidate set is a NO_SOLUTION failure
// carrying the attempted target, and the device position is unchanged.
func (d *Diffractometer) Forward(target []float64) (calc.Solution, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.forwardLocked(target)
}

func (d *Diffractometer) forwardLocked(target []float64) (calc.Solution, error) {
	if !d.connected {
		return nil, errors.NotConnectedError(d.name, "forward")
	}
	if len(target) != len(d.pseudoNames) {
		return nil, errors.New(errors.ErrCalc,
			fmt.Sprintf("pseudo target has %d values, %s needs %d",
				len(target), d.name, len(d.pseudoNames)))
	}

	start := d.pseudoPositionLocked()
	solutions, err := d.calc.ForwardIter(start, target, forwardMaxIters)
	if err != nil {
		return nil, errors.CalcError("forward", err)
	}
	d.logger.DebugFields("pseudo to real", log.Fields{
		"device":    d.name,
		"solutions": len(solutions),
	})
	if len(solutions) == 0 {
		return nil, errors.NoSolutionError(target).SetDevice(d.name)
	}
	return d.decision(target, solutions), nil
}

// ForwardSolutions returns every candidate real position for a pseudo
// target, in engine order, without selecting one or moving anything.
func (d *Diffractometer) ForwardSolutions(target []float64) ([]calc.Solution, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil, errors.NotConnectedError(d.name, "forward")
	}
	if len(target) != len(d.pseudoNames) {
		return nil, errors.New(errors.ErrCalc,
			fmt.Sprintf("pseudo target has %d values, %s needs %d",
				len(target), d.name, len(d.pseudoNames)))
	}
	solutions, err := d.calc.ForwardIter(d.pseudoPositionLocked(), target, forwardMaxIters)
	if err != nil {
		return nil, errors.CalcError("forward", err)
	}
	if len(solutions) == 0 {
		return nil, errors.NoSolutionError(target).SetDevice(d.name)
	}
	return solutions, nil
}

// Inverse maps a real position back to the pseudo position. The physical
// direction is single-valued; no disambiguation is involved. The engine's
// current-position state is overwritten as a side effect.
func (d *Diffractometer) Inverse(real []float64) ([]float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inverseLocked(real)
}

func (d *Diffractometer) inverseLocked(real []float64) ([]float64, error) {
	if !d.connected {
		return nil, errors.NotConnectedError(d.name, "inverse")
	}
	if err := d.calc.SetPhysicalPositions(real); err != nil {
		return nil, errors.CalcError("inverse", err)
	}
	return d.calc.PseudoPositions(), nil
}

// Move drives the device to a full pseudo target: forward-solve, apply
// the selected solution to the engine and the real positioners, then
// read the settled pseudo position back.
func (d *Diffractometer) Move(target []float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	solution, err := d.forwardLocked(target)
	if err != nil {
		return err
	}
	if err := d.calc.SetPhysicalPositions(solution); err != nil {
		return errors.CalcError("move", err)
	}
	for i, axis := range d.realNames {
		d.reals[axis].SetPosition(solution[i])
	}
	d.updatePositionLocked()
	return nil
}

// updatePositionLocked refreshes the pseudo readbacks from the engine.
func (d *Diffractometer) updatePositionLocked() {
	pos := d.calc.PseudoPositions()
	for i, axis := range d.pseudoNames {
		if i < len(pos) {
			d.pseudos[axis].SetPosition(pos[i])
		}
	}
}

// CheckValue validates a full pseudo target without moving: the target
// must be solvable under the current constraints.
func (d *Diffractometer) CheckValue(target []float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.forwardLocked(target)
	return err
}

// CheckValueMap validates a partial move request keyed by axis name, as a
// scan delivers it. Every key must name a positioner on this device;
// all keys are checked before any axis is validated. Real-axis targets
// are validated each against its own bounds. Pseudo-axis targets are
// merged with the live position and the composite validated whole.
// Requests mixing pseudo and real axes are refused: scanning both sides
// of the kinematic mapping at once has no defined meaning.
func (d *Diffractometer) CheckValueMap(targets map[string]float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var hasReal, hasPseudo bool
	for axis := range targets {
		switch {
		case d.isReal(axis):
			hasReal = true
		case d.isPseudo(axis):
			hasPseudo = true
		default:
			return errors.UnknownAxisError(axis, d.name)
		}
	}
	if hasReal && hasPseudo {
		return errors.MixedAxesError(d.name)
	}

	if hasReal {
		for axis, target := range targets {
			if err := d.reals[axis].CheckValue(target); err != nil {
				return err
			}
		}
		return nil
	}

	composite := make([]float64, len(d.pseudoNames))
	for i, axis := range d.pseudoNames {
		if v, ok := targets[axis]; ok {
			composite[i] = v
		} else {
			composite[i] = d.pseudos[axis].Position()
		}
	}
	_, err := d.forwardLocked(composite)
	return err
}

// ApplyConstraints overrides solver constraints for the named axes. The
// full pre-apply state of every real axis is pushed first, so the change
// can be undone or reset. Writes are ordered limits, value, fit: the
// value lands against the new bounds, never stale ones.
func (d *Diffractometer) ApplyConstraints(constraints ConstraintSet) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return errors.NotConnectedError(d.name, "apply_constraints")
	}
	for axis := range constraints {
		if !d.isReal(axis) {
			return errors.UnknownAxisError(axis, d.name)
		}
	}

	snapshot, err := d.snapshotLocked()
	if err != nil {
		return err
	}
	d.stack.push(snapshot)
	return d.setConstraintsLocked(constraints)
}

// UndoLastConstraints pops the most recent snapshot and restores it.
// A no-op on an empty stack.
func (d *Diffractometer) UndoLastConstraints() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return errors.NotConnectedError(d.name, "undo_last_constraints")
	}
	snapshot, ok := d.stack.pop()
	if !ok {
		return nil
	}
	return d.setConstraintsLocked(snapshot)
}

// ResetConstraints restores the pre-first-apply baseline in one step and
// empties the stack, discarding all intermediate history. A no-op on an
// empty stack.
func (d *Diffractometer) ResetConstraints() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return errors.NotConnectedError(d.name, "reset_constraints")
	}
	baseline, ok := d.stack.baseline()
	if !ok {
		return nil
	}
	if err := d.setConstraintsLocked(baseline); err != nil {
		return err
	}
	d.stack.clear()
	return nil
}

// Constraints returns the live solver constraint state of every real axis.
func (d *Diffractometer) Constraints() (ConstraintSet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

// ConstraintStackDepth returns the number of snapshots on the stack.
func (d *Diffractometer) ConstraintStackDepth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stack.depth()
}

// snapshotLocked captures the live constraint state of every real axis.
// The caller holds the instance lock, so the capture is atomic relative
// to any write that follows it.
func (d *Diffractometer) snapshotLocked() (ConstraintSet, error) {
	snapshot := make(ConstraintSet, len(d.realNames))
	for _, axis := range d.realNames {
		low, high, err := d.calc.AxisLimits(axis)
		if err != nil {
			return nil, errors.CalcError("limits", err)
		}
		value, err := d.calc.AxisValue(axis)
		if err != nil {
			return nil, errors.CalcError("value", err)
		}
		fit, err := d.calc.AxisFit(axis)
		if err != nil {
			return nil, errors.CalcError("fit", err)
		}
		snapshot[axis] = Constraint{LowLimit: low, HighLimit: high, Value: value, Fit: fit}
	}
	return snapshot, nil
}

// setConstraintsLocked writes constraints into the engine, limits before
// value before fit, and mirrors the bounds onto the real positioners.
func (d *Diffractometer) setConstraintsLocked(constraints ConstraintSet) error {
	for axis, con := range constraints {
		if err := d.calc.SetAxisLimits(axis, con.LowLimit, con.HighLimit); err != nil {
			return errors.CalcError("limits", err)
		}
		if err := d.calc.SetAxisValue(axis, con.Value); err != nil {
			return errors.CalcError("value", err)
		}
		if err := d.calc.SetAxisFit(axis, con.Fit); err != nil {
			return errors.CalcError("fit", err)
		}
		if p, ok := d.reals[axis]; ok {
			p.SetLimits(con.LowLimit, con.HighLimit)
		}
	}
	return nil
}

// GeometryName returns the engine's geometry name.
func (d *Diffractometer) GeometryName() string { return d.calc.GeometryName() }

// ClassName identifies the device type.
func (d *Diffractometer) ClassName() string { return "Diffractometer" }

// EngineName returns the engine name.
func (d *Diffractometer) EngineName() string { return d.calc.EngineName() }

// EngineMode returns the engine's operating mode.
func (d *Diffractometer) EngineMode() string { return d.calc.EngineMode() }

// SampleName returns the mounted sample's name.
func (d *Diffractometer) SampleName() string { return d.calc.Sample().Name }

// Lattice returns the sample lattice.
func (d *Diffractometer) Lattice() calc.Lattice { return d.calc.Sample().Lattice }

// ReciprocalLattice returns the sample's reciprocal lattice.
func (d *Diffractometer) ReciprocalLattice() calc.Lattice { return d.calc.Sample().Reciprocal }

// U returns the sample orientation matrix.
func (d *Diffractometer) U() [3][3]float64 { return d.calc.Sample().U }

// UB returns the sample orientation+lattice matrix.
func (d *Diffractometer) UB() [3][3]float64 { return d.calc.Sample().UB }

// Reflections returns the sample's reference reflections.
func (d *Diffractometer) Reflections() []calc.Reflection { return d.calc.Sample().Reflections }

// Wavelength returns the engine wavelength in angstroms.
func (d *Diffractometer) Wavelength() float64 { return d.calc.Wavelength() }

// CalcEnergy returns the engine energy in keV, the authoritative value
// the public energy field is derived from.
func (d *Diffractometer) CalcEnergy() float64 { return d.calc.Energy() }
