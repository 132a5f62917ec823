package stats

import (
	"math"
	"testing"
)

func TestWelchTTest(t *testing.T) {
	t.Run("clear separation", func(t *testing.T) {
		x := []float64{10.1, 10.2, 9.9, 10.0, 10.1, 9.8}
		y := []float64{0.1, 0.2, -0.1, 0.0, 0.15, -0.05}
		p := WelchTTest(x, y)
		if p > 1e-6 {
			t.Errorf("p = %v for clearly separated samples, want near zero", p)
		}
	})

	t.Run("identical samples", func(t *testing.T) {
		x := []float64{1, 2, 3, 4, 5}
		p := WelchTTest(x, x)
		if p < 0.99 {
			t.Errorf("p = %v for identical samples, want ~1", p)
		}
	})

	t.Run("tiny samples return one", func(t *testing.T) {
		if p := WelchTTest([]float64{1}, []float64{2, 3}); p != 1.0 {
			t.Errorf("p = %v for n=1, want 1.0", p)
		}
	})

	t.Run("constant but different samples", func(t *testing.T) {
		x := []float64{5, 5, 5}
		y := []float64{2, 2, 2}
		if p := WelchTTest(x, y); p != 0.0 {
			t.Errorf("p = %v for distinct constants, want 0", p)
		}
	})

	t.Run("p is a probability", func(t *testing.T) {
		x := []float64{1.2, 0.8, 1.5, 0.9, 1.1}
		y := []float64{1.0, 1.3, 0.7, 1.4, 0.95}
		p := WelchTTest(x, y)
		if p < 0 || p > 1 {
			t.Errorf("p = %v outside [0,1]", p)
		}
	})
}

func TestWilcoxonRankSum(t *testing.T) {
	t.Run("clear separation", func(t *testing.T) {
		x := []float64{11, 12, 13, 14, 15, 16, 17, 18}
		y := []float64{1, 2, 3, 4, 5, 6, 7, 8}
		p := WilcoxonRankSum(x, y)
		if p > 0.01 {
			t.Errorf("p = %v for disjoint samples, want small", p)
		}
	})

	t.Run("heavy zero ties", func(t *testing.T) {
		// Zero inflation should not blow up the tie correction.
		x := []float64{0, 0, 0, 0, 1, 2, 0, 0, 3, 0}
		y := []float64{0, 0, 0, 0, 0, 0, 1, 0, 0, 0}
		p := WilcoxonRankSum(x, y)
		if math.IsNaN(p) || p < 0 || p > 1 {
			t.Errorf("p = %v for tied samples, want a probability", p)
		}
	})

	t.Run("all values identical", func(t *testing.T) {
		x := []float64{0, 0, 0}
		if p := WilcoxonRankSum(x, x); p != 1.0 {
			t.Errorf("p = %v for all-tied samples, want 1.0", p)
		}
	})

	t.Run("empty sample", func(t *testing.T) {
		if p := WilcoxonRankSum(nil, []float64{1, 2}); p != 1.0 {
			t.Errorf("p = %v for empty sample, want 1.0", p)
		}
	})
}

func TestCohenD(t *testing.T) {
	x := []float64{2, 2, 2, 2}
	y := []float64{0, 0, 0, 0}
	if d := CohenD(x, y); d != 0 {
		// Pooled SD is zero, effect size degenerates to zero by convention.
		t.Errorf("d = %v for zero-variance samples, want 0", d)
	}

	x = []float64{10, 11, 9, 10, 10.5, 9.5}
	y = []float64{0, 1, -1, 0, 0.5, -0.5}
	if d := CohenD(x, y); d < 5 {
		t.Errorf("d = %v for strongly separated samples, want large positive", d)
	}
	if d := CohenD(y, x); d > -5 {
		t.Errorf("d = %v with groups swapped, want large negative", d)
	}
}

func TestBenjaminiHochberg(t *testing.T) {
	t.Run("known adjustment", func(t *testing.T) {
		pvals := []float64{0.01, 0.02, 0.03, 0.04}
		fdr := BenjaminiHochberg(pvals)
		// Rank i adjustment is p*n/rank, then step-up: all equal 0.04 here.
		for i, q := range fdr {
			if math.Abs(q-0.04) > 1e-12 {
				t.Errorf("fdr[%d] = %v, want 0.04", i, q)
			}
		}
	})

	t.Run("order preserved", func(t *testing.T) {
		pvals := []float64{0.5, 0.001, 0.03}
		fdr := BenjaminiHochberg(pvals)
		if fdr[1] > fdr[2] || fdr[2] > fdr[0] {
			t.Errorf("fdr = %v does not respect the p-value order %v", fdr, pvals)
		}
	})

	t.Run("capped at one", func(t *testing.T) {
		fdr := BenjaminiHochberg([]float64{0.9, 0.95, 0.99})
		for i, q := range fdr {
			if q > 1 {
				t.Errorf("fdr[%d] = %v exceeds 1", i, q)
			}
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if got := BenjaminiHochberg(nil); got != nil {
			t.Errorf("fdr of empty input = %v, want nil", got)
		}
	})
}
