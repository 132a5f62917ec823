package stats

import (
	"math"
	"sort"

	"perturbscope/domain/expr"
	"perturbscope/domain/mixscape"
)

// ln2 converts natural-log differences to log2 fold changes.
const ln2 = 0.6931471805599453

// DifferentialExpression tests every gene of a target group against the
// control rows and returns the genes passing the FDR and fold-change
// cutoffs, ordered by FDR ascending with |log2FC| descending as the
// tie-break. Input values are expected in natural-log space (normalized
// expression or perturbation signatures), so the fold change is the
// difference of group means; this stays defined for the signed values a
// signature matrix carries.
func DifferentialExpression(m *expr.Matrix, groupRows, controlRows []int, method mixscape.DEMethod, alpha, minLogFC float64) []mixscape.DEGene {
	test := WelchTTest
	if method == mixscape.DEWilcoxon {
		test = WilcoxonRankSum
	}
	nGenes := m.GeneCount()
	results := make([]mixscape.DEGene, 0, nGenes)
	pvals := make([]float64, 0, nGenes)

	for j := 0; j < nGenes; j++ {
		g := m.ColumnValues(groupRows, j)
		c := m.ColumnValues(controlRows, j)

		log2FC := (mean(g) - mean(c)) / ln2

		results = append(results, mixscape.DEGene{
			Gene:       m.Genes[j],
			Log2FC:     log2FC,
			PValue:     test(g, c),
			EffectSize: CohenD(g, c),
			Pct1:       pctExpressed(g),
			Pct2:       pctExpressed(c),
		})
		pvals = append(pvals, results[j].PValue)
	}

	fdr := BenjaminiHochberg(pvals)
	passing := results[:0]
	for i := range results {
		results[i].FDR = fdr[i]
		if results[i].FDR < alpha && math.Abs(results[i].Log2FC) >= minLogFC {
			passing = append(passing, results[i])
		}
	}

	out := make([]mixscape.DEGene, len(passing))
	copy(out, passing)
	sort.Slice(out, func(i, j int) bool {
		if out[i].FDR != out[j].FDR {
			return out[i].FDR < out[j].FDR
		}
		return math.Abs(out[i].Log2FC) > math.Abs(out[j].Log2FC)
	})
	return out
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func pctExpressed(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	nnz := 0
	for _, v := range vals {
		if v != 0 {
			nnz++
		}
	}
	return float64(nnz) / float64(len(vals))
}
