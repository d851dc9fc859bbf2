// Diffractometer geometry catalog: the pseudo/real axis name sets and
// default travel limits for each supported geometry.
package geometry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Geometry describes one diffractometer geometry. The pseudo axis set is
// determined by the calculation engine; the real axis set by the
// instrument circles.
type Geometry struct {
	Name      string   `yaml:"name"`
	Engine    string   `yaml:"engine"`
	Modes     []string `yaml:"modes,omitempty"`
	Pseudos   []string `yaml:"pseudo_axes"`
	Reals     []string `yaml:"real_axes"`
	LowLimit  float64  `yaml:"low_limit"`
	HighLimit float64  `yaml:"high_limit"`
}

// Validate checks structural soundness of a geometry definition.
func (g *Geometry) Validate() error {
	if g.Name == "" {
		return fmt.Errorf("geometry: missing name")
	}
	if len(g.Pseudos) == 0 {
		return fmt.Errorf("geometry %s: no pseudo axes", g.Name)
	}
	// The simulated engine maps the first and last real axes onto the
	// first pseudo axis, so every geometry needs more reals than pseudos.
	if len(g.Reals) <= len(g.Pseudos) {
		return fmt.Errorf("geometry %s: needs more real axes (%d) than pseudo axes (%d)",
			g.Name, len(g.Reals), len(g.Pseudos))
	}
	seen := make(map[string]bool)
	for _, a := range append(append([]string{}, g.Pseudos...), g.Reals...) {
		if a == "" {
			return fmt.Errorf("geometry %s: empty axis name", g.Name)
		}
		if seen[a] {
			return fmt.Errorf("geometry %s: duplicate axis name %q", g.Name, a)
		}
		seen[a] = true
	}
	if g.LowLimit >= g.HighLimit {
		return fmt.Errorf("geometry %s: invalid default limits [%g, %g]",
			g.Name, g.LowLimit, g.HighLimit)
	}
	return nil
}

var (
	catalogMu sync.RWMutex
	catalog   = map[string]Geometry{}
)

func builtin(name string, pseudos, reals []string, modes ...string) Geometry {
	return Geometry{
		Name:      name,
		Engine:    "hkl",
		Modes:     modes,
		Pseudos:   pseudos,
		Reals:     reals,
		LowLimit:  -180.0,
		HighLimit: 180.0,
	}
}

func init() {
	hkl := []string{"h", "k", "l"}
	for _, g := range []Geometry{
		builtin("E4CV", hkl, []string{"omega", "chi", "phi", "tth"},
			"bissector", "constant_omega", "constant_chi", "constant_phi"),
		builtin("E4CH", hkl, []string{"omega", "chi", "phi", "tth"},
			"bissector", "constant_omega", "constant_chi", "constant_phi"),
		builtin("E6C", hkl, []string{"mu", "omega", "chi", "phi", "gamma", "delta"},
			"bissector_vertical", "constant_mu_vertical"),
		builtin("K4CV", hkl, []string{"komega", "kappa", "kphi", "tth"},
			"bissector", "constant_omega", "constant_chi", "constant_phi"),
		builtin("K6C", hkl, []string{"mu", "komega", "kappa", "kphi", "gamma", "delta"},
			"bissector_vertical"),
		builtin("TwoC", []string{"q"}, []string{"omega", "tth"}, "bissector"),
		{
			Name:      "SIM4C",
			Engine:    "sim",
			Modes:     []string{"bissector"},
			Pseudos:   hkl,
			Reals:     []string{"omega", "chi", "phi", "tth"},
			LowLimit:  -180.0,
			HighLimit: 180.0,
		},
	} {
		catalog[strings.ToUpper(g.Name)] = g
	}
}

// Get looks up a geometry by name, case-insensitively.
func Get(name string) (Geometry, error) {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	g, ok := catalog[strings.ToUpper(name)]
	if !ok {
		return Geometry{}, fmt.Errorf("geometry: unknown geometry %q", name)
	}
	return g, nil
}

// Register adds a geometry to the catalog. Re-registering a builtin name
// is refused.
func Register(g Geometry) error {
	if err := g.Validate(); err != nil {
		return err
	}
	catalogMu.Lock()
	defer catalogMu.Unlock()
	key := strings.ToUpper(g.Name)
	if _, ok := catalog[key]; ok {
		return fmt.Errorf("geometry: %q already registered", g.Name)
	}
	catalog[key] = g
	return nil
}

// Names returns the sorted catalog names.
func Names() []string {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	names := make([]string, 0, len(catalog))
	for _, g := range catalog {
		names = append(names, g.Name)
	}
	sort.Strings(names)
	return names
}
