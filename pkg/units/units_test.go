package units

import (
	"math"
	"testing"

	"hkl-go-migration/pkg/errors"
)

func TestToKeV(t *testing.T) {
	cases := []struct {
		value float64
		unit  string
		want  float64
	}{
		{8.0, "keV", 8.0},
		{8000.0, "eV", 8.0},
		{0.008, "MeV", 8.0},
		{8.0, "kev", 8.0}, // case-insensitive
	}
	for _, c := range cases {
		got, err := ToKeV(c.value, c.unit)
		if err != nil {
			t.Fatalf("ToKeV(%g, %q) failed: %v", c.value, c.unit, err)
		}
		if math.Abs(got-c.want) > 1e-9 {
			t.Errorf("ToKeV(%g, %q) = %g, want %g", c.value, c.unit, got, c.want)
		}
	}
}

func TestUnsupportedUnit(t *testing.T) {
	_, err := ToKeV(1.0, "furlong")
	if !errors.Is(err, errors.ErrUnsupportedUnit) {
		t.Fatalf("expected UNSUPPORTED_UNIT, got %v", err)
	}
	de := err.(*errors.DiffractError)
	if de.Unit != "furlong" {
		t.Errorf("error should name the offending unit, got %q", de.Unit)
	}
	if Supported("furlong") {
		t.Error("Supported(furlong) = true")
	}
	if !Supported("eV") {
		t.Error("Supported(eV) = false")
	}
}

func TestRoundTrip(t *testing.T) {
	for _, unit := range []string{"eV", "keV", "MeV", "GeV", "J"} {
		out, err := FromKeV(8.0, unit)
		if err != nil {
			t.Fatalf("FromKeV(8.0, %q) failed: %v", unit, err)
		}
		back, err := ToKeV(out, unit)
		if err != nil {
			t.Fatalf("ToKeV back from %q failed: %v", unit, err)
		}
		if math.Abs(back-8.0) > 1e-9 {
			t.Errorf("round trip through %q: 8.0 -> %g -> %g", unit, out, back)
		}
	}
}

func TestWavelength(t *testing.T) {
	// Cu K-alpha-ish: 8.0509 keV <-> 1.5406 angstrom
	lambda := Wavelength(8.0509)
	if math.Abs(lambda-1.54010) > 1e-3 {
		t.Errorf("Wavelength(8.0509) = %g, want ~1.5401", lambda)
	}
	if math.Abs(Energy(lambda)-8.0509) > 1e-9 {
		t.Errorf("Energy(Wavelength(E)) != E")
	}
}
