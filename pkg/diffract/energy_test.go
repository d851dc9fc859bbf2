package diffract

import (
	"math"
	"testing"

	"hkl-go-migration/pkg/calc"
	"hkl-go-migration/pkg/errors"
	"hkl-go-migration/pkg/geometry"
)

func newSimDiffractometer(t *testing.T) (*Diffractometer, *calc.SimCalc) {
	t.Helper()
	geo, err := geometry.Get("SIM4C")
	if err != nil {
		t.Fatal(err)
	}
	c, err := calc.NewSimCalc(geo, true)
	if err != nil {
		t.Fatal(err)
	}
	d, err := New("sim4c", c)
	if err != nil {
		t.Fatal(err)
	}
	return d, c
}

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// The offset/units scenario: 8.0 keV with zero offset reads straight
// through; a 0.1 keV offset is absorbed by the public field while the
// engine stays at 8.0; switching to eV rescales the public field only.
func TestEnergyOffsetUnitsScenario(t *testing.T) {
	d, c := newSimDiffractometer(t)

	d.SetEnergy(8.0)
	if !near(c.Energy(), 8.0, 1e-12) {
		t.Fatalf("calc energy = %g, want 8.0", c.Energy())
	}

	d.SetEnergyOffset(0.1)
	if !near(d.Energy.Get(), 7.9, 1e-9) {
		t.Errorf("public energy = %g, want 7.9", d.Energy.Get())
	}
	if !near(c.Energy(), 8.0, 1e-12) {
		t.Errorf("calc energy moved to %g on offset change", c.Energy())
	}

	if err := d.SetEnergyUnits("eV"); err != nil {
		t.Fatal(err)
	}
	if !near(d.Energy.Get(), 7900.0, 1e-6) {
		t.Errorf("public energy = %g, want 7900.0", d.Energy.Get())
	}
	if !near(c.Energy(), 8.0, 1e-12) {
		t.Errorf("calc energy moved to %g on units change", c.Energy())
	}
}

// Setting the public energy in non-keV units converts before the engine
// write, and the offset lands in keV after conversion.
func TestEnergySetInOtherUnits(t *testing.T) {
	d, c := newSimDiffractometer(t)

	if err := d.SetEnergyUnits("eV"); err != nil {
		t.Fatal(err)
	}
	d.SetEnergyOffset(0.25)
	d.SetEnergy(7750.0)

	if !near(c.Energy(), 8.0, 1e-9) {
		t.Errorf("calc energy = %g, want 7.75 + 0.25 = 8.0", c.Energy())
	}
}

func TestEnergyUnitRoundTrip(t *testing.T) {
	d, _ := newSimDiffractometer(t)

	d.SetEnergy(8.5)
	for _, unit := range []string{"eV", "MeV", "keV"} {
		if err := d.SetEnergyUnits(unit); err != nil {
			t.Fatal(err)
		}
	}
	if !near(d.Energy.Get(), 8.5, 1e-9) {
		t.Errorf("public energy after unit round trip = %g, want 8.5", d.Energy.Get())
	}
}

func TestEnergyUnsupportedUnit(t *testing.T) {
	d, c := newSimDiffractometer(t)
	d.SetEnergy(8.0)

	err := d.SetEnergyUnits("furlong")
	if !errors.Is(err, errors.ErrUnsupportedUnit) {
		t.Fatalf("expected UNSUPPORTED_UNIT, got %v", err)
	}
	if d.EnergyUnits.Get() != "keV" {
		t.Errorf("units changed to %q despite hard failure", d.EnergyUnits.Get())
	}
	if !near(d.Energy.Get(), 8.0, 1e-12) || !near(c.Energy(), 8.0, 1e-12) {
		t.Error("energy state changed despite hard failure")
	}
}

func TestEnergyUpdateFlagDecouples(t *testing.T) {
	d, c := newSimDiffractometer(t)
	d.SetEnergy(8.0)

	d.SetEnergyUpdate(false)
	d.SetEnergy(9.0)

	if !near(d.Energy.Get(), 9.0, 1e-12) {
		t.Errorf("public energy = %g, want recorded 9.0", d.Energy.Get())
	}
	if !near(c.Energy(), 8.0, 1e-12) {
		t.Errorf("calc energy = %g, must not propagate while disabled", c.Energy())
	}

	// Re-enabling does not push retroactively.
	d.SetEnergyUpdate(true)
	if !near(c.Energy(), 8.0, 1e-12) {
		t.Errorf("calc energy = %g, re-enable must not auto-push", c.Energy())
	}

	// The explicit push does.
	if err := d.UpdateCalcEnergy(); err != nil {
		t.Fatal(err)
	}
	if !near(c.Energy(), 9.0, 1e-12) {
		t.Errorf("calc energy = %g after explicit push, want 9.0", c.Energy())
	}
}

func TestEnergyNotConnected(t *testing.T) {
	d, c := newSimDiffractometer(t)
	d.SetEnergy(8.0)
	d.SetConnected(false)

	d.SetEnergy(10.0)
	if !near(d.Energy.Get(), 10.0, 1e-12) {
		t.Errorf("public energy = %g, disconnected write still records", d.Energy.Get())
	}
	if !near(c.Energy(), 8.0, 1e-12) {
		t.Errorf("calc energy = %g, must not update while disconnected", c.Energy())
	}

	err := d.UpdateCalcEnergy()
	if !errors.IsNotConnected(err) {
		t.Fatalf("expected NOT_CONNECTED, got %v", err)
	}

	d.SetConnected(true)
	if err := d.UpdateCalcEnergy(); err != nil {
		t.Fatal(err)
	}
	if !near(c.Energy(), 10.0, 1e-12) {
		t.Errorf("calc energy = %g after reconnect push, want 10.0", c.Energy())
	}
}

func TestEnergyChangeRecomputesPosition(t *testing.T) {
	d, c := newSimDiffractometer(t)

	if _, err := d.Inverse([]float64{5, 0, 0, 10}); err != nil {
		t.Fatal(err)
	}
	d.SetEnergy(8.0) // refreshes readbacks at 8 keV
	h8 := d.Position()[0]
	if h8 == 0 {
		t.Fatal("expected non-zero h at the test position")
	}

	d.SetEnergy(16.0)
	h16 := d.Position()[0]
	if !near(h16, 2.0*h8, 1e-9) {
		t.Errorf("doubling energy: h readback went %g -> %g, want factor 2", h8, h16)
	}
	if got := c.PseudoPositions()[0]; !near(got, h16, 1e-12) {
		t.Errorf("readback %g does not track engine %g", h16, got)
	}
}

// A public energy write after an offset change must still satisfy the
// invariant: the handler recomputes from units and offset, not from any
// cached engine value.
func TestEnergyInvariantAfterMixedWrites(t *testing.T) {
	d, c := newSimDiffractometer(t)

	d.SetEnergy(8.0)
	d.SetEnergyOffset(0.1)
	if err := d.SetEnergyUnits("eV"); err != nil {
		t.Fatal(err)
	}

	d.SetEnergy(7900.0) // same public value the derivation produced
	if !near(c.Energy(), 8.0, 1e-9) {
		t.Errorf("calc energy = %g, want fixed point 8.0", c.Energy())
	}

	d.SetEnergy(8000.0)
	if !near(c.Energy(), 8.1, 1e-9) {
		t.Errorf("calc energy = %g, want 8.0 + 0.1", c.Energy())
	}
}
