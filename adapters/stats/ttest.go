// Package stats implements the two-sample tests and multiple-testing
// correction used for differential expression against the non-targeting
// control group.
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// WelchTTest computes the two-tailed p-value for a difference of means
// with unequal variances, using the Welch-Satterthwaite degrees of
// freedom.
func WelchTTest(x, y []float64) float64 {
	n1 := float64(len(x))
	n2 := float64(len(y))
	if n1 < 2 || n2 < 2 {
		return 1.0
	}

	mean1, var1 := stat.MeanVariance(x, nil)
	mean2, var2 := stat.MeanVariance(y, nil)

	se1 := var1 / n1
	se2 := var2 / n2
	seDiff := math.Sqrt(se1 + se2)
	if seDiff < 1e-15 {
		if mean1 == mean2 {
			return 1.0
		}
		return 0.0
	}

	t := (mean1 - mean2) / seDiff

	num := (se1 + se2) * (se1 + se2)
	den := 0.0
	if se1 > 0 {
		den += se1 * se1 / (n1 - 1)
	}
	if se2 > 0 {
		den += se2 * se2 / (n2 - 1)
	}
	if den < 1e-15 {
		return 1.0
	}
	df := num / den
	if df < 1 {
		df = 1
	}

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * dist.CDF(-math.Abs(t))
}

// CohenD returns the pooled-variance standardized effect size.
func CohenD(x, y []float64) float64 {
	n1 := float64(len(x))
	n2 := float64(len(y))
	if n1 < 2 || n2 < 2 {
		return 0
	}
	mean1, var1 := stat.MeanVariance(x, nil)
	mean2, var2 := stat.MeanVariance(y, nil)
	pooled := math.Sqrt(((n1-1)*var1 + (n2-1)*var2) / (n1 + n2 - 2))
	if pooled == 0 {
		return 0
	}
	return (mean1 - mean2) / pooled
}
