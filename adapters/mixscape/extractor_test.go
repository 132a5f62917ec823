package mixscape

import (
	"testing"

	"perturbscope/domain/cell"
	"perturbscope/domain/mixscape"
	"perturbscope/domain/stage"
)

func classifiedFixture() *stage.Classified {
	return &stage.Classified{
		Groups: []mixscape.GroupOutcome{
			{
				TargetGene: cell.NTGroup,
				Status:     mixscape.StatusClassified,
				Cells: []cell.Classification{
					{CellID: "nt1", TargetGene: cell.NTGroup, Label: cell.LabelNT, Posterior: 0},
				},
			},
			{
				TargetGene: "IFNGR1",
				Status:     mixscape.StatusClassified,
				Cells: []cell.Classification{
					{CellID: "a1", TargetGene: "IFNGR1", Label: cell.LabelKO, Posterior: 1.0},
					{CellID: "a2", TargetGene: "IFNGR1", Label: cell.LabelKO, Posterior: 0.8},
					{CellID: "a3", TargetGene: "IFNGR1", Label: cell.LabelNP, Posterior: 0.1},
				},
			},
			{
				TargetGene: "JAK2",
				Status:     mixscape.StatusClassified,
				Cells: []cell.Classification{
					{CellID: "b1", TargetGene: "JAK2", Label: cell.LabelKO, Posterior: 1.0},
					{CellID: "b2", TargetGene: "JAK2", Label: cell.LabelKO, Posterior: 1.0},
				},
			},
			{
				TargetGene: "STAT1",
				Status:     mixscape.StatusUnclassifiable,
				Reason:     "too few DE genes",
			},
		},
	}
}

func TestExtractor_Extract(t *testing.T) {
	genes, err := NewExtractor().Extract(classifiedFixture(), 1.0)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	// At the strict threshold only cells with posterior 1.0 qualify; each
	// gene appears exactly once despite multiple qualifying cells.
	if len(genes) != 2 {
		t.Fatalf("extracted %d genes, want 2: %v", len(genes), genes)
	}

	// Equal posteriors sort by gene name.
	if genes[0].Gene != "IFNGR1" || genes[1].Gene != "JAK2" {
		t.Errorf("gene order = [%s %s], want [IFNGR1 JAK2]", genes[0].Gene, genes[1].Gene)
	}
	if genes[1].Cells != 2 {
		t.Errorf("JAK2 qualifying cells = %d, want 2", genes[1].Cells)
	}
}

func TestExtractor_LowerThreshold(t *testing.T) {
	genes, err := NewExtractor().Extract(classifiedFixture(), 0.75)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if len(genes) != 2 {
		t.Fatalf("extracted %d genes, want 2", len(genes))
	}
	// IFNGR1 keeps its maximum posterior, not the last seen one.
	for _, g := range genes {
		if g.Gene == "IFNGR1" {
			if g.Posterior != 1.0 {
				t.Errorf("IFNGR1 posterior = %v, want the maximum 1.0", g.Posterior)
			}
			if g.Cells != 2 {
				t.Errorf("IFNGR1 qualifying cells = %d, want 2", g.Cells)
			}
		}
	}
}

func TestExtractor_SortsByPosteriorDescending(t *testing.T) {
	c := &stage.Classified{
		Groups: []mixscape.GroupOutcome{
			{
				TargetGene: "LOW",
				Status:     mixscape.StatusClassified,
				Cells: []cell.Classification{
					{CellID: "l1", TargetGene: "LOW", Label: cell.LabelKO, Posterior: 0.6},
				},
			},
			{
				TargetGene: "HIGH",
				Status:     mixscape.StatusClassified,
				Cells: []cell.Classification{
					{CellID: "h1", TargetGene: "HIGH", Label: cell.LabelKO, Posterior: 0.9},
				},
			},
		},
	}

	genes, err := NewExtractor().Extract(c, 0.5)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(genes) != 2 || genes[0].Gene != "HIGH" || genes[1].Gene != "LOW" {
		t.Errorf("order = %v, want HIGH before LOW", genes)
	}
}

func TestExtractor_ControlsNeverContribute(t *testing.T) {
	c := &stage.Classified{
		Groups: []mixscape.GroupOutcome{
			{
				TargetGene: cell.NTGroup,
				Status:     mixscape.StatusClassified,
				Cells: []cell.Classification{
					{CellID: "nt1", TargetGene: cell.NTGroup, Label: cell.LabelNT, Posterior: 0},
				},
			},
		},
	}

	genes, err := NewExtractor().Extract(c, 0.0)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(genes) != 0 {
		t.Errorf("control cells produced knockout genes: %v", genes)
	}
}

func TestExtractor_RejectsBadThreshold(t *testing.T) {
	for _, threshold := range []float64{-0.1, 1.1} {
		if _, err := NewExtractor().Extract(classifiedFixture(), threshold); err == nil {
			t.Errorf("threshold %v accepted", threshold)
		}
	}
}
