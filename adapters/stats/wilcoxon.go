package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// WilcoxonRankSum computes the two-tailed Mann-Whitney U p-value using the
// normal approximation with tie correction and continuity correction.
// Single-cell expression vectors carry heavy zero ties, so the tie term
// matters.
func WilcoxonRankSum(x, y []float64) float64 {
	n1 := len(x)
	n2 := len(y)
	if n1 == 0 || n2 == 0 {
		return 1.0
	}

	type entry struct {
		val   float64
		group int
	}
	combined := make([]entry, 0, n1+n2)
	for _, v := range x {
		combined = append(combined, entry{val: v, group: 1})
	}
	for _, v := range y {
		combined = append(combined, entry{val: v, group: 2})
	}
	sort.Slice(combined, func(i, j int) bool {
		return combined[i].val < combined[j].val
	})

	total := len(combined)
	ranks := make([]float64, total)
	i := 0
	for i < total {
		j := i
		for j < total && combined[j].val == combined[i].val {
			j++
		}
		avgRank := float64(i+j+1) / 2.0
		for k := i; k < j; k++ {
			ranks[k] = avgRank
		}
		i = j
	}

	r1 := 0.0
	for k, e := range combined {
		if e.group == 1 {
			r1 += ranks[k]
		}
	}

	n1f := float64(n1)
	n2f := float64(n2)
	u1 := r1 - n1f*(n1f+1)/2
	u2 := n1f*n2f - u1
	u := math.Min(u1, u2)
	muU := n1f * n2f / 2

	tieSum := 0.0
	i = 0
	for i < total {
		j := i
		for j < total && combined[j].val == combined[i].val {
			j++
		}
		t := float64(j - i)
		if t > 1 {
			tieSum += t*t*t - t
		}
		i = j
	}

	nf := float64(total)
	sigmaU := math.Sqrt(n1f * n2f * ((nf + 1) - tieSum/(nf*(nf-1))) / 12)
	if sigmaU < 1e-10 {
		return 1.0
	}

	z := (u - muU + 0.5) / sigmaU
	norm := distuv.Normal{Mu: 0, Sigma: 1}
	return 2 * norm.CDF(-math.Abs(z))
}
