// Simulated calculation engine.
//
// SimCalc stands in for a real reciprocal-space engine: it honors the
// full Calc surface
// (locked engine, per-axis constraint state, degenerate forward search,
// wavelength scaling) over an analytically invertible mapping, so hosts
// and tests exercise real coordination paths without the crystallographic
// solver.
//
// The mapping: with reals r0..r(n-1) and pseudos p0..p(m-1),
//
//	p0 = (r0 + r(n-1)/2) / (S * wavelength)
//	pj = rj / (S * wavelength)        for j = 1..m-1
//
// r0 plays the incidence circle, r(n-1) the detector circle; reals m..n-2
// are spectators held at their current values. The forward direction is
// degenerate in the (r0, r(n-1)) pair: a bissector branch and a
// hold-current-r0 branch both satisfy p0.
package calc

import (
	"fmt"
	"math"
	"sync"

	"hkl-go-migration/pkg/geometry"
	"hkl-go-migration/pkg/units"
)

// simScale is S above, in degrees*angstrom per reciprocal unit.
const simScale = 10.0

// feasibility tolerance for axes pinned by fit=false
const simPinTol = 1e-6

type simAxis struct {
	low, high float64
	value     float64
	fit       bool
}

// SimCalc is a simulated, always-locked-capable calculation engine.
type SimCalc struct {
	mu     sync.Mutex
	geo    geometry.Geometry
	locked bool
	mode   string
	energy float64 // keV
	axes   map[string]*simAxis
	sample Sample
}

// NewSimCalc creates a simulated engine for the named geometry. The
// lockEngine flag mirrors the real engine's lock_engine construction
// option; hosts refuse an unlocked instance.
func NewSimCalc(geo geometry.Geometry, lockEngine bool) (*SimCalc, error) {
	if err := geo.Validate(); err != nil {
		return nil, err
	}
	c := &SimCalc{
		geo:    geo,
		locked: lockEngine,
		mode:   "bissector",
		energy: 8.0,
		axes:   make(map[string]*simAxis, len(geo.Reals)),
	}
	if len(geo.Modes) > 0 {
		c.mode = geo.Modes[0]
	}
	for _, name := range geo.Reals {
		c.axes[name] = &simAxis{
			low:   geo.LowLimit,
			high:  geo.HighLimit,
			value: 0.0,
			fit:   true,
		}
	}
	c.sample = defaultSample()
	return c, nil
}

func defaultSample() Sample {
	const a = 1.54
	rec := 2.0 * math.Pi / a
	var u, ub [3][3]float64
	for i := 0; i < 3; i++ {
		u[i][i] = 1.0
		ub[i][i] = rec
	}
	return Sample{
		Name:       "main",
		Lattice:    Lattice{A: a, B: a, C: a, Alpha: 90, Beta: 90, Gamma: 90},
		Reciprocal: Lattice{A: rec, B: rec, C: rec, Alpha: 90, Beta: 90, Gamma: 90},
		U:          u,
		UB:         ub,
	}
}

// GeometryName returns the geometry name.
func (c *SimCalc) GeometryName() string { return c.geo.Name }

// EngineName returns "sim".
func (c *SimCalc) EngineName() string { return "sim" }

// EngineMode returns the current operating mode.
func (c *SimCalc) EngineMode() string { return c.mode }

// EngineLocked reports whether the engine was constructed locked.
func (c *SimCalc) EngineLocked() bool { return c.locked }

// Energy returns the engine energy in keV.
func (c *SimCalc) Energy() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.energy
}

// SetEnergy writes the engine energy in keV.
func (c *SimCalc) SetEnergy(keV float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.energy = keV
}

// Wavelength returns the wavelength in angstroms for the engine energy.
func (c *SimCalc) Wavelength() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return units.Wavelength(c.energy)
}

// PseudoAxisNames enumerates the pseudo axes in engine order.
func (c *SimCalc) PseudoAxisNames() []string {
	names := make([]string, len(c.geo.Pseudos))
	copy(names, c.geo.Pseudos)
	return names
}

// PhysicalAxisNames enumerates the real axes in engine order.
func (c *SimCalc) PhysicalAxisNames() []string {
	names := make([]string, len(c.geo.Reals))
	copy(names, c.geo.Reals)
	return names
}

func (c *SimCalc) axis(name string) (*simAxis, error) {
	a, ok := c.axes[name]
	if !ok {
		return nil, fmt.Errorf("sim: unknown axis %q in %s", name, c.geo.Name)
	}
	return a, nil
}

// AxisLimits reads the bounds of one real axis.
func (c *SimCalc) AxisLimits(axis string) (low, high float64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, err := c.axis(axis)
	if err != nil {
		return 0, 0, err
	}
	return a.low, a.high, nil
}

// SetAxisLimits writes the bounds of one real axis.
func (c *SimCalc) SetAxisLimits(axis string, low, high float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, err := c.axis(axis)
	if err != nil {
		return err
	}
	a.low, a.high = low, high
	return nil
}

// AxisValue reads the current value of one real axis.
func (c *SimCalc) AxisValue(axis string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, err := c.axis(axis)
	if err != nil {
		return 0, err
	}
	return a.value, nil
}

// SetAxisValue writes the value of one real axis.
func (c *SimCalc) SetAxisValue(axis string, value float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, err := c.axis(axis)
	if err != nil {
		return err
	}
	a.value = value
	return nil
}

// AxisFit reads the fit flag of one real axis.
func (c *SimCalc) AxisFit(axis string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, err := c.axis(axis)
	if err != nil {
		return false, err
	}
	return a.fit, nil
}

// SetAxisFit writes the fit flag of one real axis.
func (c *SimCalc) SetAxisFit(axis string, fit bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, err := c.axis(axis)
	if err != nil {
		return err
	}
	a.fit = fit
	return nil
}

// SetPhysicalPositions writes every real axis value, ordered per
// PhysicalAxisNames.
func (c *SimCalc) SetPhysicalPositions(pos []float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(pos) != len(c.geo.Reals) {
		return fmt.Errorf("sim: physical position has %d values, %s needs %d",
			len(pos), c.geo.Name, len(c.geo.Reals))
	}
	for i, name := range c.geo.Reals {
		c.axes[name].value = pos[i]
	}
	return nil
}

// PseudoPositions reads the pseudo position implied by the current real
// axis values.
func (c *SimCalc) PseudoPositions() []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pseudoFromValues()
}

func (c *SimCalc) pseudoFromValues() []float64 {
	kl := simScale * units.Wavelength(c.energy)
	reals := c.geo.Reals
	first := c.axes[reals[0]].value
	last := c.axes[reals[len(reals)-1]].value

	out := make([]float64, len(c.geo.Pseudos))
	out[0] = (first + last/2.0) / kl
	for j := 1; j < len(c.geo.Pseudos); j++ {
		out[j] = c.axes[reals[j]].value / kl
	}
	return out
}

// ForwardIter searches for physical solutions reaching the end pseudo
// position, refining the detector-circle target iteratively and giving
// up after maxIters refinement steps. Degenerate pairs (bissector and
// hold-incidence branches) are both returned when both are feasible.
func (c *SimCalc) ForwardIter(start, end []float64, maxIters int) ([]Solution, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(end) != len(c.geo.Pseudos) {
		return nil, fmt.Errorf("sim: pseudo target has %d values, %s needs %d",
			len(end), c.geo.Name, len(c.geo.Pseudos))
	}

	kl := simScale * units.Wavelength(c.energy)
	reals := c.geo.Reals
	n := len(reals)
	incidence := c.axes[reals[0]]
	detector := c.axes[reals[n-1]]

	// Refine the combined incidence+detector angle sum toward the first
	// pseudo target, seeded from the current position. The mapping is
	// linear so this converges immediately, but the iteration cap is part
	// of the engine contract.
	sum := incidence.value + detector.value/2.0
	converged := false
	for i := 0; i < maxIters; i++ {
		resid := sum/kl - end[0]
		if math.Abs(resid) < 1e-12 {
			converged = true
			break
		}
		sum -= resid * kl
	}
	if !converged {
		return nil, nil
	}

	// Spectator pseudo axes map one-to-one onto their real axis; a real
	// pinned by fit=false only works if it already sits on target.
	targets := make(map[string]float64, n)
	for j := 1; j < len(c.geo.Pseudos); j++ {
		a := c.axes[reals[j]]
		want := end[j] * kl
		if !a.fit && math.Abs(a.value-want) > simPinTol {
			return nil, nil
		}
		targets[reals[j]] = want
	}
	for j := len(c.geo.Pseudos); j < n-1; j++ {
		targets[reals[j]] = c.axes[reals[j]].value
	}

	type branch struct{ inc, det float64 }
	var branches []branch
	switch {
	case !incidence.fit && !detector.fit:
		if math.Abs(incidence.value+detector.value/2.0-sum) <= simPinTol {
			branches = []branch{{incidence.value, detector.value}}
		}
	case !incidence.fit:
		branches = []branch{{incidence.value, 2.0 * (sum - incidence.value)}}
	case !detector.fit:
		branches = []branch{{sum - detector.value/2.0, detector.value}}
	default:
		bissector := branch{sum / 2.0, sum}
		hold := branch{incidence.value, 2.0 * (sum - incidence.value)}
		branches = []branch{bissector}
		if math.Abs(hold.inc-bissector.inc) > 1e-9 || math.Abs(hold.det-bissector.det) > 1e-9 {
			branches = append(branches, hold)
		}
	}

	var solutions []Solution
	for _, b := range branches {
		sol := make(Solution, n)
		ok := true
		for i, name := range reals {
			var v float64
			switch i {
			case 0:
				v = b.inc
			case n - 1:
				v = b.det
			default:
				v = targets[name]
			}
			a := c.axes[name]
			if v < a.low || v > a.high {
				ok = false
				break
			}
			sol[i] = v
		}
		if ok {
			solutions = append(solutions, sol)
		}
	}
	return solutions, nil
}

// Sample returns the mounted sample description.
func (c *SimCalc) Sample() Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sample
}

// SetSample replaces the mounted sample description.
func (c *SimCalc) SetSample(s Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sample = s
}
