package diffract

import (
	"math"

	"hkl-go-migration/pkg/calc"
)

// DecisionFunc selects one solution from a non-empty forward search
// result. The adapter passes every candidate through unfiltered; the
// policy may inspect criteria this layer never computes.
type DecisionFunc func(target []float64, solutions []calc.Solution) calc.Solution

// FirstSolution returns the first solution in engine order. This is the
// default policy: an arbitrary but deterministic tie-break, not a "best"
// choice by any metric.
func FirstSolution(_ []float64, solutions []calc.Solution) calc.Solution {
	return solutions[0]
}

// MinimalMotion returns a policy preferring the solution with the
// smallest total angular travel from the position reported by the given
// function at decision time.
func MinimalMotion(position func() []float64) DecisionFunc {
	return func(_ []float64, solutions []calc.Solution) calc.Solution {
		from := position()
		best := solutions[0]
		bestCost := math.Inf(1)
		for _, sol := range solutions {
			cost := 0.0
			for i := range sol {
				if i < len(from) {
					cost += math.Abs(sol[i] - from[i])
				}
			}
			if cost < bestCost {
				best = sol
				bestCost = cost
			}
		}
		return best
	}
}
