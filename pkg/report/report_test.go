package report

import (
	"strings"
	"testing"

	"hkl-go-migration/pkg/calc"
	"hkl-go-migration/pkg/diffract"
	"hkl-go-migration/pkg/geometry"
)

func newDevice(t *testing.T) *diffract.Diffractometer {
	t.Helper()
	geo, err := geometry.Get("SIM4C")
	if err != nil {
		t.Fatal(err)
	}
	c, err := calc.NewSimCalc(geo, true)
	if err != nil {
		t.Fatal(err)
	}
	d, err := diffract.New("sim4c", c)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestWhereIs(t *testing.T) {
	d := newDevice(t)
	if err := d.Move([]float64{0.5, 0, 0}); err != nil {
		t.Fatal(err)
	}

	out := WhereIs(d)
	for _, want := range []string{
		"diffractometer", "sim4c",
		"energy (keV)", "8.00000",
		"h", "0.50000", "pseudo",
		"tth", "real",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("WhereIs output missing %q:\n%s", want, out)
		}
	}
}

func TestShowConstraints(t *testing.T) {
	d := newDevice(t)
	err := d.ApplyConstraints(diffract.ConstraintSet{
		"tth": diffract.NewConstraint(-5, 160, 0, false),
	})
	if err != nil {
		t.Fatal(err)
	}

	out, err := ShowConstraints(d)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "160.00000") || !strings.Contains(out, "false") {
		t.Errorf("constraint table missing applied values:\n%s", out)
	}
	// One row per real axis plus the header.
	lines := strings.Count(strings.TrimSpace(out), "\n") + 1
	if lines != len(d.RealAxisNames())+1 {
		t.Errorf("constraint table has %d lines, want %d", lines, len(d.RealAxisNames())+1)
	}
}

func TestShowAll(t *testing.T) {
	d := newDevice(t)

	out, err := ShowAll(d)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"geometry", "SIM4C",
		"class", "Diffractometer",
		"unit cell edges", "a=1.54",
		"[UB]", "4.07999",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("ShowAll output missing %q:\n%s", want, out)
		}
	}
}

func TestForwardSolutionsTable(t *testing.T) {
	d := newDevice(t)

	reflections := [][]float64{
		{0.5, 0, 0},
		{100, 0, 0}, // unreachable
	}
	out := ForwardSolutionsTable(d, reflections, true)

	if !strings.Contains(out, "(0.5, 0, 0)") {
		t.Errorf("table missing reachable reflection:\n%s", out)
	}
	if !strings.Contains(out, "none") {
		t.Errorf("table missing none row for unreachable reflection:\n%s", out)
	}
}
