// hklctl is an operator console for a simulated diffractometer: inspect
// where the device sits, dump its full settings, try forward/inverse
// transforms and experiment with solver constraints without touching a
// beamline.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"hkl-go-migration/pkg/calc"
	"hkl-go-migration/pkg/diffract"
	"hkl-go-migration/pkg/geometry"
	"hkl-go-migration/pkg/log"
	"hkl-go-migration/pkg/report"
)

var (
	flagName     string
	flagGeometry string
	flagCatalog  string
	flagEnergy   float64
	flagUnits    string
	flagOffset   float64
	flagSet      []string
	flagVerbose  bool
	flagAll      bool
)

var heading = color.New(color.FgCyan, color.Bold)

func newDevice() (*diffract.Diffractometer, error) {
	if flagVerbose {
		log.Default().SetLevel(log.DEBUG)
	}
	if flagCatalog != "" {
		if err := geometry.LoadAndRegister(flagCatalog); err != nil {
			return nil, err
		}
	}

	geo, err := geometry.Get(flagGeometry)
	if err != nil {
		return nil, err
	}
	engine, err := calc.NewSimCalc(geo, true)
	if err != nil {
		return nil, err
	}
	d, err := diffract.New(flagName, engine)
	if err != nil {
		return nil, err
	}

	if err := d.SetEnergyUnits(flagUnits); err != nil {
		return nil, err
	}
	d.SetEnergyOffset(flagOffset)
	d.SetEnergy(flagEnergy)

	if len(flagSet) > 0 {
		constraints, err := parseConstraints(flagSet)
		if err != nil {
			return nil, err
		}
		if err := d.ApplyConstraints(constraints); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// parseConstraints turns axis=low,high,value,fit specs into a set.
func parseConstraints(specs []string) (diffract.ConstraintSet, error) {
	out := make(diffract.ConstraintSet, len(specs))
	for _, spec := range specs {
		axis, rest, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("constraint %q: want axis=low,high,value,fit", spec)
		}
		parts := strings.Split(rest, ",")
		if len(parts) != 4 {
			return nil, fmt.Errorf("constraint %q: want 4 fields, got %d", spec, len(parts))
		}
		var vals [3]float64
		for i := 0; i < 3; i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
			if err != nil {
				return nil, fmt.Errorf("constraint %q: %w", spec, err)
			}
			vals[i] = v
		}
		fit, err := strconv.ParseBool(strings.TrimSpace(parts[3]))
		if err != nil {
			return nil, fmt.Errorf("constraint %q: %w", spec, err)
		}
		out[strings.TrimSpace(axis)] = diffract.NewConstraint(vals[0], vals[1], vals[2], fit)
	}
	return out, nil
}

func parseFloats(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("bad value %q: %w", a, err)
		}
		out[i] = v
	}
	return out, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hklctl",
		Short:         "operator console for a simulated diffractometer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flagName, "name", "sim4c", "device name")
	pf.StringVarP(&flagGeometry, "geometry", "g", "SIM4C", "geometry name from the catalog")
	pf.StringVar(&flagCatalog, "catalog", "", "YAML file with additional geometries")
	pf.Float64VarP(&flagEnergy, "energy", "e", 8.0, "energy in the selected units")
	pf.Float64Var(&flagOffset, "offset", 0.0, "energy offset (keV)")
	pf.StringVar(&flagUnits, "units", "keV", "energy units")
	pf.StringArrayVar(&flagSet, "set", nil, "constraint override axis=low,high,value,fit (repeatable)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	wh := &cobra.Command{
		Use:   "wh",
		Short: "report where the diffractometer is",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDevice()
			if err != nil {
				return err
			}
			heading.Println(d.Name())
			fmt.Print(report.WhereIs(d))
			return nil
		},
	}

	pa := &cobra.Command{
		Use:   "pa",
		Short: "report every diffractometer setting",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDevice()
			if err != nil {
				return err
			}
			heading.Println(d.Name())
			out, err := report.ShowAll(d)
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}

	constraints := &cobra.Command{
		Use:   "constraints",
		Short: "show the solver constraints (after any --set overrides)",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDevice()
			if err != nil {
				return err
			}
			heading.Println("constraints")
			out, err := report.ShowConstraints(d)
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}

	forward := &cobra.Command{
		Use:   "forward h k l ...",
		Short: "solve a pseudo target into motor angles",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDevice()
			if err != nil {
				return err
			}
			target, err := parseFloats(args)
			if err != nil {
				return err
			}
			if flagAll {
				heading.Println("solutions")
				fmt.Print(report.ForwardSolutionsTable(d, [][]float64{target}, true))
				return nil
			}
			solution, err := d.Forward(target)
			if err != nil {
				return err
			}
			heading.Println("selected solution")
			for i, axis := range d.RealAxisNames() {
				fmt.Printf("%s = %.5f\n", axis, solution[i])
			}
			return nil
		},
	}
	forward.Flags().BoolVar(&flagAll, "all", false, "show every solution, not just the selected one")

	inverse := &cobra.Command{
		Use:   "inverse angle ...",
		Short: "map motor angles back to the pseudo position",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDevice()
			if err != nil {
				return err
			}
			real, err := parseFloats(args)
			if err != nil {
				return err
			}
			pseudo, err := d.Inverse(real)
			if err != nil {
				return err
			}
			heading.Println("pseudo position")
			for i, axis := range d.PseudoAxisNames() {
				fmt.Printf("%s = %.5f\n", axis, pseudo[i])
			}
			return nil
		},
	}

	geometries := &cobra.Command{
		Use:   "geometries",
		Short: "list the geometry catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagCatalog != "" {
				if err := geometry.LoadAndRegister(flagCatalog); err != nil {
					return err
				}
			}
			for _, name := range geometry.Names() {
				g, err := geometry.Get(name)
				if err != nil {
					return err
				}
				fmt.Printf("%s\tpseudo: %s\treal: %s\n",
					name, strings.Join(g.Pseudos, ","), strings.Join(g.Reals, ","))
			}
			return nil
		},
	}

	root.AddCommand(wh, pa, constraints, forward, inverse, geometries)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "hklctl: %v\n", err)
		os.Exit(1)
	}
}
