package app

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"perturbscope/domain/cell"
	"perturbscope/domain/core"
	"perturbscope/domain/expr"
)

func TestProfileBundle(t *testing.T) {
	data := mat.NewDense(3, 3, []float64{
		10, 0, 90, // 100 counts, 2 genes
		5, 5, 0, // 10 counts, 2 genes
		20, 20, 0, // 40 counts, 2 genes
	})
	rna, err := expr.New([]string{"c0", "c1", "c2"}, []string{"g0", "g1", "g2"}, data)
	if err != nil {
		t.Fatalf("expr.New: %v", err)
	}
	bundle := &expr.Bundle{
		ID:   core.DatasetID(core.NewID()),
		Name: "t",
		RNA:  rna,
		Meta: []cell.Metadata{
			{CellID: "c0", Replicate: "rep1", GuideID: "NTg1", NonTargeting: true},
			{CellID: "c1", Replicate: "rep1", GuideID: "g1", TargetGene: "JAK2"},
			{CellID: "c2", Replicate: "rep1", GuideID: "g2", TargetGene: "IFNGR1"},
		},
	}

	p := ProfileBundle(bundle)

	if p.Cells != 3 || p.Genes != 3 {
		t.Errorf("dims = %dx%d, want 3x3", p.Cells, p.Genes)
	}
	if p.Controls != 1 {
		t.Errorf("controls = %d, want 1", p.Controls)
	}
	if p.TargetGroups != 2 {
		t.Errorf("target groups = %d, want 2", p.TargetGroups)
	}
	if p.MedianCounts != 40 {
		t.Errorf("median counts = %v, want 40", p.MedianCounts)
	}
	if p.MedianGenes != 2 {
		t.Errorf("median genes = %v, want 2", p.MedianGenes)
	}
	if p.MeanCounts != 50 {
		t.Errorf("mean counts = %v, want 50", p.MeanCounts)
	}
	if p.HasProtein {
		t.Error("profile reports protein for an RNA-only bundle")
	}
}
