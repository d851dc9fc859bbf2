package geometry

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetBuiltin(t *testing.T) {
	g, err := Get("e4cv")
	if err != nil {
		t.Fatalf("Get(e4cv) failed: %v", err)
	}
	if g.Name != "E4CV" {
		t.Errorf("Name = %s, want E4CV", g.Name)
	}
	if len(g.Pseudos) != 3 || g.Pseudos[0] != "h" {
		t.Errorf("Pseudos = %v, want [h k l]", g.Pseudos)
	}
	if len(g.Reals) != 4 || g.Reals[3] != "tth" {
		t.Errorf("Reals = %v, want [omega chi phi tth]", g.Reals)
	}
}

func TestGetUnknown(t *testing.T) {
	if _, err := Get("Z80"); err == nil {
		t.Fatal("Get(Z80) should fail")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		g    Geometry
	}{
		{"no name", Geometry{Pseudos: []string{"h"}, Reals: []string{"a", "b"}, LowLimit: -1, HighLimit: 1}},
		{"too few reals", Geometry{Name: "X", Pseudos: []string{"h", "k"}, Reals: []string{"a", "b"}, LowLimit: -1, HighLimit: 1}},
		{"duplicate axis", Geometry{Name: "X", Pseudos: []string{"h"}, Reals: []string{"h", "b"}, LowLimit: -1, HighLimit: 1}},
		{"bad limits", Geometry{Name: "X", Pseudos: []string{"h"}, Reals: []string{"a", "b"}, LowLimit: 1, HighLimit: -1}},
	}
	for _, c := range cases {
		if err := c.g.Validate(); err == nil {
			t.Errorf("%s: Validate() should fail", c.name)
		}
	}
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	err := Register(Geometry{
		Name:      "E4CV",
		Pseudos:   []string{"h"},
		Reals:     []string{"a", "b"},
		LowLimit:  -1,
		HighLimit: 1,
	})
	if err == nil {
		t.Fatal("Register of existing name should fail")
	}
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	doc := `geometries:
  - name: PSIC
    engine: hkl
    pseudo_axes: [h, k, l]
    real_axes: [eta, mu, chi, phi, nu, del]
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	geoms, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	if len(geoms) != 1 {
		t.Fatalf("loaded %d geometries, want 1", len(geoms))
	}
	g := geoms[0]
	if g.Name != "PSIC" || len(g.Reals) != 6 {
		t.Errorf("unexpected geometry: %+v", g)
	}
	if g.LowLimit != -180 || g.HighLimit != 180 {
		t.Errorf("default limits not applied: [%g, %g]", g.LowLimit, g.HighLimit)
	}
}

func TestLoadCatalogInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	doc := `geometries:
  - name: BAD
    pseudo_axes: [h, k]
    real_axes: [only]
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCatalog(path); err == nil {
		t.Fatal("LoadCatalog should reject a geometry with too few reals")
	}
}
