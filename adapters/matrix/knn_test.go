package matrix

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestNearestRows(t *testing.T) {
	// 1-D embedding keeps the expected ordering obvious.
	coords := mat.NewDense(5, 1, []float64{0, 1, 2, 10, 11})

	t.Run("closest first", func(t *testing.T) {
		got := NearestRows(coords, 0, []int{1, 2, 3, 4}, 2)
		if len(got) != 2 || got[0] != 1 || got[1] != 2 {
			t.Errorf("NearestRows = %v, want [1 2]", got)
		}
	})

	t.Run("query excluded from its own neighborhood", func(t *testing.T) {
		got := NearestRows(coords, 1, []int{0, 1, 2}, 3)
		for _, r := range got {
			if r == 1 {
				t.Fatalf("query row returned as its own neighbor: %v", got)
			}
		}
		if len(got) != 2 {
			t.Errorf("got %d neighbors, want 2 after self-exclusion", len(got))
		}
	})

	t.Run("k clamped to candidate pool", func(t *testing.T) {
		got := NearestRows(coords, 0, []int{1, 2}, 10)
		if len(got) != 2 {
			t.Errorf("got %d neighbors, want 2", len(got))
		}
	})

	t.Run("ties break on row index", func(t *testing.T) {
		// Rows 1 and 2 sit at equal distance from row 0.
		sym := mat.NewDense(3, 1, []float64{0, -1, 1})
		got := NearestRows(sym, 0, []int{2, 1}, 2)
		if got[0] != 1 || got[1] != 2 {
			t.Errorf("tie order = %v, want [1 2]", got)
		}
	})
}

func TestNearestRows_Deterministic(t *testing.T) {
	coords := mat.NewDense(6, 2, []float64{
		0, 0,
		1, 1,
		2, 0,
		0, 2,
		3, 3,
		1, 0,
	})
	candidates := []int{1, 2, 3, 4, 5}

	first := NearestRows(coords, 0, candidates, 3)
	for i := 0; i < 10; i++ {
		again := NearestRows(coords, 0, candidates, 3)
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("run %d: neighbors %v differ from first run %v", i, again, first)
			}
		}
	}
}
