// Loading user-supplied geometry catalogs from YAML files.
package geometry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CatalogFile is the on-disk format of a geometry catalog.
type CatalogFile struct {
	Geometries []Geometry `yaml:"geometries"`
}

// LoadCatalog parses a YAML catalog file and returns the geometries it
// defines. Definitions with missing default limits inherit [-180, 180].
func LoadCatalog(path string) ([]Geometry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("geometry: unable to read catalog %s: %w", path, err)
	}
	var f CatalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("geometry: invalid catalog %s: %w", path, err)
	}
	for i := range f.Geometries {
		g := &f.Geometries[i]
		if g.LowLimit == 0 && g.HighLimit == 0 {
			g.LowLimit, g.HighLimit = -180.0, 180.0
		}
		if err := g.Validate(); err != nil {
			return nil, fmt.Errorf("geometry: catalog %s: %w", path, err)
		}
	}
	return f.Geometries, nil
}

// LoadAndRegister loads a catalog file and registers every geometry in it.
func LoadAndRegister(path string) error {
	geoms, err := LoadCatalog(path)
	if err != nil {
		return err
	}
	for _, g := range geoms {
		if err := Register(g); err != nil {
			return err
		}
	}
	return nil
}
