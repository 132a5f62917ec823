package expr

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"perturbscope/domain/core"
)

// Matrix is a cells x genes expression matrix with row and column labels.
// Rows are cells in dataset order, columns are genes. The underlying data
// is dense; single-cell counts after gene filtering are small enough for
// the batch sizes this engine targets.
type Matrix struct {
	CellIDs []string
	Genes   []string
	Data    *mat.Dense
}

// New builds a labeled matrix and checks that the labels match the data
// dimensions.
func New(cellIDs, genes []string, data *mat.Dense) (*Matrix, error) {
	if data == nil {
		return nil, core.ErrEmptyMatrix
	}
	r, c := data.Dims()
	if r == 0 || c == 0 {
		return nil, core.ErrEmptyMatrix
	}
	if len(cellIDs) != r {
		return nil, core.NewDimensionMismatchError("cell IDs", len(cellIDs), r)
	}
	if len(genes) != c {
		return nil, core.NewDimensionMismatchError("gene names", len(genes), c)
	}
	return &Matrix{CellIDs: cellIDs, Genes: genes, Data: data}, nil
}

// Cells returns the number of rows.
func (m *Matrix) Cells() int {
	r, _ := m.Data.Dims()
	return r
}

// GeneCount returns the number of columns.
func (m *Matrix) GeneCount() int {
	_, c := m.Data.Dims()
	return c
}

// Row copies the expression vector of one cell into dst, allocating when
// dst is nil.
func (m *Matrix) Row(dst []float64, i int) []float64 {
	return mat.Row(dst, i, m.Data)
}

// Col copies the expression of one gene across cells into dst, allocating
// when dst is nil.
func (m *Matrix) Col(dst []float64, j int) []float64 {
	return mat.Col(dst, j, m.Data)
}

// GeneIndex returns the column index of a gene name.
func (m *Matrix) GeneIndex(gene string) (int, error) {
	for j, g := range m.Genes {
		if g == gene {
			return j, nil
		}
	}
	return 0, fmt.Errorf("%w: gene %s", core.ErrNotFound, gene)
}

// SubsetRows returns a new matrix holding only the given cell rows, in the
// given order. Gene labels are shared, not copied.
func (m *Matrix) SubsetRows(rows []int) (*Matrix, error) {
	if len(rows) == 0 {
		return nil, core.ErrEmptyMatrix
	}
	_, c := m.Data.Dims()
	out := mat.NewDense(len(rows), c, nil)
	ids := make([]string, len(rows))
	for i, r := range rows {
		if r < 0 || r >= m.Cells() {
			return nil, fmt.Errorf("row index %d out of range [0,%d)", r, m.Cells())
		}
		out.SetRow(i, m.Row(nil, r))
		ids[i] = m.CellIDs[r]
	}
	return &Matrix{CellIDs: ids, Genes: m.Genes, Data: out}, nil
}

// ColumnValues extracts one gene's values for a subset of cells.
func (m *Matrix) ColumnValues(rows []int, col int) []float64 {
	vals := make([]float64, len(rows))
	for i, r := range rows {
		vals[i] = m.Data.At(r, col)
	}
	return vals
}

// Clone deep-copies the matrix, including labels.
func (m *Matrix) Clone() *Matrix {
	data := mat.DenseCopyOf(m.Data)
	ids := make([]string, len(m.CellIDs))
	copy(ids, m.CellIDs)
	genes := make([]string, len(m.Genes))
	copy(genes, m.Genes)
	return &Matrix{CellIDs: ids, Genes: genes, Data: data}
}
