package cell

import (
	"fmt"
	"sort"
)

// Label is the mixscape classification assigned to a cell.
type Label string

const (
	// LabelKO marks a cell with a detectable knockout phenotype.
	LabelKO Label = "KO"
	// LabelNP marks a perturbed cell whose expression is indistinguishable
	// from control ("escaper").
	LabelNP Label = "NP"
	// LabelNT marks a non-targeting control cell. NT cells are never
	// relabeled KO or NP.
	LabelNT Label = "NT"
)

// Valid reports whether l is one of the three classification labels.
func (l Label) Valid() bool {
	return l == LabelKO || l == LabelNP || l == LabelNT
}

// Phase is a cell-cycle phase annotation (G1, S, G2M in typical datasets).
type Phase string

// Metadata carries the per-cell annotations supplied with the dataset.
type Metadata struct {
	CellID     string `json:"cell_id"`
	Replicate  string `json:"replicate"`
	Phase      Phase  `json:"phase,omitempty"`
	GuideID    string `json:"guide_id"`
	TargetGene string `json:"target_gene"`
	// NonTargeting is true for control guides. NonTargeting cells form the
	// distinguished NT perturbation group.
	NonTargeting bool `json:"non_targeting"`
}

// Validate checks the metadata invariants for a single cell.
func (m Metadata) Validate() error {
	if m.CellID == "" {
		return fmt.Errorf("cell metadata missing cell_id")
	}
	if m.Replicate == "" {
		return fmt.Errorf("cell %s missing replicate", m.CellID)
	}
	if !m.NonTargeting && m.TargetGene == "" {
		return fmt.Errorf("cell %s is targeting but has no target gene", m.CellID)
	}
	return nil
}

// Group returns the perturbation group key this cell belongs to. Every cell
// belongs to exactly one group; all non-targeting cells share NTGroup.
func (m Metadata) Group() string {
	if m.NonTargeting {
		return NTGroup
	}
	return m.TargetGene
}

// NTGroup is the group key shared by all non-targeting control cells.
const NTGroup = "NT"

// Classification is the per-cell mixscape outcome: a label plus the
// posterior probability that the cell belongs to the knockout component.
type Classification struct {
	CellID     string  `json:"cell_id"`
	TargetGene string  `json:"target_gene"`
	Label      Label   `json:"label"`
	Posterior  float64 `json:"posterior"`
}

// Validate checks the classification invariants.
func (c Classification) Validate() error {
	if !c.Label.Valid() {
		return fmt.Errorf("cell %s has invalid label %q", c.CellID, c.Label)
	}
	if c.Posterior < 0 || c.Posterior > 1 {
		return fmt.Errorf("cell %s posterior %v outside [0,1]", c.CellID, c.Posterior)
	}
	if c.Label == LabelNT && c.Posterior != 0 {
		return fmt.Errorf("NT cell %s must carry zero posterior, got %v", c.CellID, c.Posterior)
	}
	return nil
}

// GroupIndex partitions cell row indices by perturbation group key.
type GroupIndex map[string][]int

// BuildGroupIndex partitions cells by their group key, preserving row order
// within each group.
func BuildGroupIndex(meta []Metadata) GroupIndex {
	idx := make(GroupIndex)
	for i, m := range meta {
		key := m.Group()
		idx[key] = append(idx[key], i)
	}
	return idx
}

// Targets returns the targeting group keys in sorted order, excluding NT.
func (g GroupIndex) Targets() []string {
	targets := make([]string, 0, len(g))
	for key := range g {
		if key != NTGroup {
			targets = append(targets, key)
		}
	}
	sort.Strings(targets)
	return targets
}

// Controls returns the row indices of the non-targeting group.
func (g GroupIndex) Controls() []int {
	return g[NTGroup]
}

// ReplicateIndex partitions cell row indices by biological replicate.
func ReplicateIndex(meta []Metadata) map[string][]int {
	idx := make(map[string][]int)
	for i, m := range meta {
		idx[m.Replicate] = append(idx[m.Replicate], i)
	}
	return idx
}
