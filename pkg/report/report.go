// Package report renders read-only tabular views of diffractometer
// state: the where-is summary, the full settings dump, the constraint
// table and the per-reflection forward solutions table. Reports read
// core state through the facade's public surface and never mutate it.
package report

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"hkl-go-migration/pkg/diffract"
)

func newTable(sb *strings.Builder) *tabwriter.Writer {
	return tabwriter.NewWriter(sb, 0, 0, 2, ' ', 0)
}

// WhereIs reports the device identity, energy state and every axis
// position, one row per term.
func WhereIs(d *diffract.Diffractometer) string {
	var sb strings.Builder
	w := newTable(&sb)

	fmt.Fprintln(w, "term\tvalue\taxis_type")
	fmt.Fprintf(w, "diffractometer\t%s\t\n", d.Name())
	fmt.Fprintf(w, "sample name\t%s\t\n", d.SampleName())
	fmt.Fprintf(w, "energy (keV)\t%.5f\t\n", d.CalcEnergy())
	fmt.Fprintf(w, "wavelength (angstrom)\t%.5f\t\n", d.Wavelength())
	fmt.Fprintf(w, "calc engine\t%s\t\n", d.EngineName())
	fmt.Fprintf(w, "mode\t%s\t\n", d.EngineMode())

	pseudo := d.Position()
	for i, axis := range d.PseudoAxisNames() {
		fmt.Fprintf(w, "%s\t%.5f\tpseudo\n", axis, pseudo[i])
	}
	real := d.RealPosition()
	for i, axis := range d.RealAxisNames() {
		fmt.Fprintf(w, "%s\t%.5f\treal\n", axis, real[i])
	}

	w.Flush()
	return sb.String()
}

// ShowConstraints reports the live solver constraint of every real axis.
func ShowConstraints(d *diffract.Diffractometer) (string, error) {
	constraints, err := d.Constraints()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	w := newTable(&sb)
	fmt.Fprintln(w, "axis\tlow_limit\thigh_limit\tvalue\tfit")
	for _, axis := range d.RealAxisNames() {
		con := constraints[axis]
		fmt.Fprintf(w, "%s\t%.5f\t%.5f\t%.5f\t%t\n",
			axis, con.LowLimit, con.HighLimit, con.Value, con.Fit)
	}
	w.Flush()
	return sb.String(), nil
}

// ShowAll reports the full device settings: identity, energy, positions,
// constraints and the sample/orientation state.
func ShowAll(d *diffract.Diffractometer) (string, error) {
	var sb strings.Builder
	w := newTable(&sb)

	fmt.Fprintln(w, "term\tvalue")
	fmt.Fprintf(w, "diffractometer\t%s\n", d.Name())
	fmt.Fprintf(w, "geometry\t%s\n", d.GeometryName())
	fmt.Fprintf(w, "class\t%s\n", d.ClassName())
	fmt.Fprintf(w, "energy (keV)\t%.5f\n", d.CalcEnergy())
	fmt.Fprintf(w, "wavelength (angstrom)\t%.5f\n", d.Wavelength())
	fmt.Fprintf(w, "calc engine\t%s\n", d.EngineName())
	fmt.Fprintf(w, "mode\t%s\n", d.EngineMode())

	real := d.RealPosition()
	for i, axis := range d.RealAxisNames() {
		fmt.Fprintf(w, "position %s\t%.5f\n", axis, real[i])
	}
	w.Flush()

	constraints, err := ShowConstraints(d)
	if err != nil {
		return "", err
	}
	sb.WriteString("\nconstraints:\n")
	sb.WriteString(constraints)

	sb.WriteString("\nsample: " + d.SampleName() + "\n")
	w = newTable(&sb)
	lat := d.Lattice()
	fmt.Fprintf(w, "unit cell edges\ta=%g, b=%g, c=%g\n", lat.A, lat.B, lat.C)
	fmt.Fprintf(w, "unit cell angles\talpha=%g, beta=%g, gamma=%g\n",
		lat.Alpha, lat.Beta, lat.Gamma)
	for i, ref := range d.Reflections() {
		fmt.Fprintf(w, "ref %d (hkl)\th=%g, k=%g, l=%g\n", i+1, ref.H, ref.K, ref.L)
	}
	fmt.Fprintf(w, "[U]\t%s\n", matrixString(d.U()))
	fmt.Fprintf(w, "[UB]\t%s\n", matrixString(d.UB()))
	w.Flush()

	return sb.String(), nil
}

func matrixString(m [3][3]float64) string {
	rows := make([]string, 3)
	for i, row := range m {
		rows[i] = fmt.Sprintf("[%.5f %.5f %.5f]", row[0], row[1], row[2])
	}
	return "[" + strings.Join(rows, " ") + "]"
}

// ForwardSolutionsTable computes every forward solution for each supplied
// reflection under the current constraints. Unreachable reflections get
// a "none" row. With full false only the first solution of each
// reflection is shown, matching what the default decision policy would
// pick.
func ForwardSolutionsTable(d *diffract.Diffractometer, reflections [][]float64, full bool) string {
	var sb strings.Builder
	w := newTable(&sb)

	motors := d.RealAxisNames()
	fmt.Fprintf(w, "(hkl)\tsolution\t%s\n", strings.Join(motors, "\t"))

	for _, reflection := range reflections {
		label := hklString(reflection)
		solutions, err := d.ForwardSolutions(reflection)
		if err != nil {
			fmt.Fprintf(w, "%s\tnone\t%s\n", label, strings.Repeat("\t", len(motors)-1))
			continue
		}
		for i, sol := range solutions {
			cells := make([]string, len(sol))
			for j, v := range sol {
				cells[j] = fmt.Sprintf("%.5f", v)
			}
			fmt.Fprintf(w, "%s\t%d\t%s\n", label, i, strings.Join(cells, "\t"))
			if !full {
				break
			}
		}
	}
	w.Flush()
	return sb.String()
}

func hklString(reflection []float64) string {
	parts := make([]string, len(reflection))
	for i, v := range reflection {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
