// Package calc defines the surface this host consumes from a
// reciprocal-space calculation engine, plus a simulated engine used by
// tests and demo tooling. The real crystallographic math (UB refinement,
// Bragg condition solving) lives in the engine, not here.
package calc

// Lattice describes unit cell edges (angstrom) and angles (degrees).
type Lattice struct {
	A     float64
	B     float64
	C     float64
	Alpha float64
	Beta  float64
	Gamma float64
}

// Reflection is one oriented reference reflection: its hkl indices and
// the physical axis positions it was observed at.
type Reflection struct {
	H         float64
	K         float64
	L         float64
	Positions map[string]float64
}

// Sample is the engine's view of the mounted crystal.
type Sample struct {
	Name        string
	Lattice     Lattice
	Reciprocal  Lattice
	U           [3][3]float64
	UB          [3][3]float64
	Reflections []Reflection
}

// Solution is one candidate physical-axis tuple from a forward search,
// ordered to match PhysicalAxisNames. Solutions are returned by value;
// the engine does not retain them.
type Solution []float64

// Calc is the calculation engine surface consumed by the diffractometer.
//
// The engine is a shared mutable resource: forward and inverse calls
// mutate its current-position state as a side effect, and per-axis
// limits/value/fit form the constraint state the host snapshots and
// restores. Callers serialize access (the facade holds one lock per
// instance).
type Calc interface {
	// GeometryName identifies the diffractometer geometry (e.g. "E4CV").
	GeometryName() string

	// EngineName identifies the active calculation engine (e.g. "hkl").
	EngineName() string

	// EngineMode is the engine's current operating mode (e.g. "bissector").
	EngineMode() string

	// EngineLocked reports whether the active engine is fixed for the
	// lifetime of this instance. The engine determines the pseudo axis
	// name set, so a host must refuse an unlocked engine.
	EngineLocked() bool

	// Energy returns the engine energy in keV.
	Energy() float64

	// SetEnergy writes the engine energy in keV.
	SetEnergy(keV float64)

	// Wavelength returns the wavelength in angstroms derived from the
	// engine energy.
	Wavelength() float64

	// PseudoAxisNames enumerates the reciprocal-space axes in engine order.
	PseudoAxisNames() []string

	// PhysicalAxisNames enumerates the motor axes in engine order.
	PhysicalAxisNames() []string

	// AxisLimits reads the solver-side bounds of one physical axis.
	AxisLimits(axis string) (low, high float64, err error)

	// SetAxisLimits writes the solver-side bounds of one physical axis.
	SetAxisLimits(axis string, low, high float64) error

	// AxisValue reads one physical axis's current value, which doubles
	// as the forward-search seed for that axis.
	AxisValue(axis string) (float64, error)

	// SetAxisValue writes one physical axis's value.
	SetAxisValue(axis string, value float64) error

	// AxisFit reads whether the engine may vary the axis during a
	// forward search.
	AxisFit(axis string) (bool, error)

	// SetAxisFit writes the fit flag of one physical axis.
	SetAxisFit(axis string, fit bool) error

	// ForwardIter runs the bounded-iteration forward search from the
	// start pseudo position to the end pseudo position, returning every
	// candidate physical solution. An empty result is not an error at
	// this layer.
	ForwardIter(start, end []float64, maxIters int) ([]Solution, error)

	// SetPhysicalPositions writes the physical axis values, ordered per
	// PhysicalAxisNames.
	SetPhysicalPositions(pos []float64) error

	// PseudoPositions reads the pseudo position implied by the current
	// physical axis values, ordered per PseudoAxisNames.
	PseudoPositions() []float64

	// Sample returns the mounted sample description.
	Sample() Sample
}
