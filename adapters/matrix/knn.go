package matrix

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// NearestRows returns the k rows among candidates closest to the query row
// in the embedding, by squared Euclidean distance. Ties break on row index
// so results are deterministic. The query row itself is skipped when it
// appears among the candidates.
func NearestRows(coords *mat.Dense, query int, candidates []int, k int) []int {
	type scored struct {
		row  int
		dist float64
	}
	_, dims := coords.Dims()
	q := make([]float64, dims)
	mat.Row(q, query, coords)

	scoredRows := make([]scored, 0, len(candidates))
	buf := make([]float64, dims)
	for _, c := range candidates {
		if c == query {
			continue
		}
		mat.Row(buf, c, coords)
		d := 0.0
		for i, v := range buf {
			diff := v - q[i]
			d += diff * diff
		}
		scoredRows = append(scoredRows, scored{row: c, dist: d})
	}

	sort.Slice(scoredRows, func(i, j int) bool {
		if scoredRows[i].dist != scoredRows[j].dist {
			return scoredRows[i].dist < scoredRows[j].dist
		}
		return scoredRows[i].row < scoredRows[j].row
	})

	if k > len(scoredRows) {
		k = len(scoredRows)
	}
	out := make([]int, k)
	for i := 0; i < k; i++ {
		out[i] = scoredRows[i].row
	}
	return out
}
