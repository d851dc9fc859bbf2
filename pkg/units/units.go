// Package units converts X-ray photon energies between user-facing units
// and the canonical keV used by the calculation engine.
package units

import (
	"strings"

	"hkl-go-migration/pkg/errors"
)

// hc in keV*angstrom, CODATA 2018.
const keVAngstrom = 12.398419843320026

// 1 keV in joules.
const joulePerKeV = 1.602176634e-16

// toKeV holds the multiplicative factor from each supported unit to keV.
var toKeV = map[string]float64{
	"ev":    1e-3,
	"kev":   1.0,
	"mev":   1e3,
	"gev":   1e6,
	"j":     1.0 / joulePerKeV,
	"joule": 1.0 / joulePerKeV,
}

func factor(unit string) (float64, error) {
	f, ok := toKeV[strings.ToLower(strings.TrimSpace(unit))]
	if !ok {
		return 0, errors.UnsupportedUnitError(unit)
	}
	return f, nil
}

// Supported reports whether unit names a recognized energy unit.
func Supported(unit string) bool {
	_, err := factor(unit)
	return err == nil
}

// ToKeV converts value expressed in unit to keV.
func ToKeV(value float64, unit string) (float64, error) {
	f, err := factor(unit)
	if err != nil {
		return 0, err
	}
	return value * f, nil
}

// FromKeV converts a keV value into unit.
func FromKeV(keV float64, unit string) (float64, error) {
	f, err := factor(unit)
	if err != nil {
		return 0, err
	}
	return keV / f, nil
}

// Wavelength returns the photon wavelength in angstroms for an energy
// in keV.
func Wavelength(keV float64) float64 {
	return keVAngstrom / keV
}

// Energy returns the photon energy in keV for a wavelength in angstroms.
func Energy(angstrom float64) float64 {
	return keVAngstrom / angstrom
}
