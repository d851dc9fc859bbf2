// Energy/units/offset synchronization.
//
// One authoritative value, the engine energy in canonical keV, plus three
// public settables. The invariant after every settled update:
//
//	calc.Energy == ToKeV(Energy.Get(), EnergyUnits.Get()) + EnergyOffset.Get()
//
// with the offset in keV. Writes flow one way only: a public energy write
// recomputes the engine energy; offset and units writes re-express the
// *current* engine energy into the public field and never touch the
// engine. Derived writes land with PutQuiet, so the energy handler cannot
// re-fire inside the same logical operation and no notify cycle exists.
package diffract

import (
	"hkl-go-migration/pkg/errors"
	"hkl-go-migration/pkg/log"
	"hkl-go-migration/pkg/units"
)

func (d *Diffractometer) subscribeEnergy() {
	d.Energy.Subscribe(d.energyChanged)
	d.EnergyOffset.Subscribe(d.energyOffsetChanged)
	d.EnergyUnits.Subscribe(d.energyUnitsChanged)
}

// SetEnergy writes the public energy field in the public units. The value
// is always recorded; it propagates to the engine only when the device is
// connected and the update flag is enabled.
func (d *Diffractometer) SetEnergy(value float64) {
	d.Energy.Put(value)
}

// SetEnergyOffset writes the energy offset (keV). The public energy field
// is re-derived from the engine energy; the engine is not touched.
func (d *Diffractometer) SetEnergyOffset(offset float64) {
	d.EnergyOffset.Put(offset)
}

// SetEnergyUnits switches the public units. The unit name is validated
// before any state changes; an unknown unit is a hard failure. On
// success the public energy field is re-derived from the engine energy.
func (d *Diffractometer) SetEnergyUnits(unit string) error {
	if !units.Supported(unit) {
		return errors.UnsupportedUnitError(unit)
	}
	d.EnergyUnits.Put(unit)
	return nil
}

// SetEnergyUpdate records whether public energy writes propagate to the
// engine. Re-enabling does not push retroactively; use UpdateCalcEnergy.
func (d *Diffractometer) SetEnergyUpdate(enabled bool) {
	d.EnergyUpdate.Put(enabled)
}

// UpdateCalcEnergy pushes the recorded public energy into the engine
// regardless of the update flag, then refreshes the pseudo readbacks.
func (d *Diffractometer) UpdateCalcEnergy() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		d.logger.Warnf("%s not fully connected, calc energy not updated", d.name)
		return errors.NotConnectedError(d.name, "update_calc_energy")
	}
	return d.updateCalcEnergyLocked(d.Energy.Get())
}

// energyChanged runs on every notifying public energy write.
func (d *Diffractometer) energyChanged(value float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		d.logger.Warnf("%s not fully connected, calc energy not updated", d.name)
		return
	}
	if !d.EnergyUpdate.Get() {
		// Recorded but deliberately not propagated, e.g. batch setup.
		return
	}
	if err := d.updateCalcEnergyLocked(value); err != nil {
		d.logger.Errorf("%s: %v", d.name, err)
	}
}

func (d *Diffractometer) updateCalcEnergyLocked(value float64) error {
	unit := d.EnergyUnits.Get()
	keV, err := units.ToKeV(value, unit)
	if err != nil {
		return err
	}
	keV += d.EnergyOffset.Get()

	d.logger.DebugFields("setting calc energy", log.Fields{
		"device": d.name,
		"keV":    keV,
	})
	d.calc.SetEnergy(keV)
	d.updatePositionLocked()
	return nil
}

// energyOffsetChanged absorbs a new offset into the public energy field.
// The engine energy stays the invariant-defining quantity: it is read,
// never written, on this path.
func (d *Diffractometer) energyOffsetChanged(offset float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		d.logger.Warnf("%s not fully connected, energy offset not applied", d.name)
		return
	}
	public, err := units.FromKeV(d.calc.Energy()-offset, d.EnergyUnits.Get())
	if err != nil {
		d.logger.Errorf("%s: %v", d.name, err)
		return
	}
	d.Energy.PutQuiet(public)
}

// energyUnitsChanged re-expresses the engine energy in the new units,
// minus the current offset, into the public energy field. Symmetric to
// the offset path; the engine is never written here.
func (d *Diffractometer) energyUnitsChanged(unit string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		d.logger.Warnf("%s not fully connected, energy units not applied", d.name)
		return
	}
	public, err := units.FromKeV(d.calc.Energy()-d.EnergyOffset.Get(), unit)
	if err != nil {
		// Reachable only by writing the units signal directly, around
		// SetEnergyUnits validation.
		d.logger.Errorf("%s: %v", d.name, err)
		return
	}
	d.Energy.PutQuiet(public)
}
