package mixscape

import (
	"fmt"
	"sort"

	"perturbscope/domain/cell"
	"perturbscope/domain/mixscape"
	"perturbscope/domain/stage"
)

// Extractor filters classified cells into the knocked-out gene list:
// genes with at least one cell at or above the posterior threshold,
// deduplicated keeping each gene's maximum posterior, sorted by posterior
// descending with gene name as the tie-break.
type Extractor struct{}

// NewExtractor creates a new knockout gene extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract builds the gene list. NT cells never contribute.
func (e *Extractor) Extract(c *stage.Classified, threshold float64) ([]mixscape.KnockoutGene, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("knockout threshold must lie in [0,1], got %v", threshold)
	}

	best := make(map[string]*mixscape.KnockoutGene)
	for _, group := range c.Groups {
		if !group.Classified() || group.TargetGene == cell.NTGroup {
			continue
		}
		for _, cls := range group.Cells {
			if cls.Label == cell.LabelNT || cls.Posterior < threshold {
				continue
			}
			entry, ok := best[cls.TargetGene]
			if !ok {
				best[cls.TargetGene] = &mixscape.KnockoutGene{
					Gene:      cls.TargetGene,
					Posterior: cls.Posterior,
					Cells:     1,
				}
				continue
			}
			entry.Cells++
			if cls.Posterior > entry.Posterior {
				entry.Posterior = cls.Posterior
			}
		}
	}

	out := make([]mixscape.KnockoutGene, 0, len(best))
	for _, entry := range best {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Posterior != out[j].Posterior {
			return out[i].Posterior > out[j].Posterior
		}
		return out[i].Gene < out[j].Gene
	})
	return out, nil
}
