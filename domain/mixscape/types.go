package mixscape

import (
	"fmt"

	"perturbscope/domain/cell"
	"perturbscope/domain/core"
)

// ControlFallback selects how the signature calculator behaves when a
// replicate carries fewer non-targeting cells than the configured
// neighborhood size.
type ControlFallback string

const (
	// FallbackError aborts the run with ErrInsufficientControls.
	FallbackError ControlFallback = "error"
	// FallbackShrink shrinks the neighborhood to the available controls.
	FallbackShrink ControlFallback = "shrink"
)

// DEMethod selects the two-sample test used for differential expression
// against the control group.
type DEMethod string

const (
	// DEWelch is Welch's unequal-variance t-test.
	DEWelch DEMethod = "welch"
	// DEWilcoxon is the Mann-Whitney U rank-sum test, more robust to the
	// zero inflation of raw single-cell counts.
	DEWilcoxon DEMethod = "wilcoxon"
)

// Params holds every tunable of the classification pipeline. Zero values
// are not usable; construct with DefaultParams and override.
type Params struct {
	// Neighbors is k for nearest-control matching in PC space.
	Neighbors int `yaml:"neighbors" json:"neighbors"`
	// Components is the number of principal components used for matching.
	Components int `yaml:"components" json:"components"`
	// ControlFallback governs replicates with fewer than Neighbors controls.
	ControlFallback ControlFallback `yaml:"control_fallback" json:"control_fallback"`

	// MinDEGenes is the minimum differentially expressed gene count a
	// target group must reach to be classifiable.
	MinDEGenes int `yaml:"min_de_genes" json:"min_de_genes"`
	// DEMethod selects the two-sample test for differential expression.
	DEMethod DEMethod `yaml:"de_method" json:"de_method"`
	// DEAlpha is the FDR cutoff for calling a gene differentially expressed.
	DEAlpha float64 `yaml:"de_alpha" json:"de_alpha"`
	// MinLogFC is the absolute log2 fold-change floor for DE genes.
	MinLogFC float64 `yaml:"min_log_fc" json:"min_log_fc"`

	// Iterations caps the outer refinement loop (rederive DE genes from
	// current KO calls, rescore, refit).
	Iterations int `yaml:"iterations" json:"iterations"`
	// EMIterations caps expectation-maximization steps per mixture fit.
	EMIterations int `yaml:"em_iterations" json:"em_iterations"`
	// EMTolerance stops EM early when the log-likelihood gain drops below it.
	EMTolerance float64 `yaml:"em_tolerance" json:"em_tolerance"`

	// KnockoutThreshold is the posterior cutoff for the gene extractor.
	// The historical behavior is a strict 1.0; it is a parameter here.
	KnockoutThreshold float64 `yaml:"knockout_threshold" json:"knockout_threshold"`

	// Seed drives mixture initialization and any sampling. Fixed seed plus
	// fixed inputs yields identical labels and posteriors.
	Seed int64 `yaml:"seed" json:"seed"`
}

// DefaultParams mirrors the conventional mixscape settings.
func DefaultParams() Params {
	return Params{
		Neighbors:         20,
		Components:        40,
		ControlFallback:   FallbackError,
		MinDEGenes:        5,
		DEMethod:          DEWelch,
		DEAlpha:           0.05,
		MinLogFC:          0.25,
		Iterations:        10,
		EMIterations:      250,
		EMTolerance:       1e-6,
		KnockoutThreshold: 1.0,
		Seed:              42,
	}
}

// Validate rejects parameter combinations the pipeline cannot honor.
func (p Params) Validate() error {
	if p.Neighbors < 1 {
		return fmt.Errorf("neighbors must be at least 1, got %d", p.Neighbors)
	}
	if p.Components < 1 {
		return fmt.Errorf("components must be at least 1, got %d", p.Components)
	}
	if p.ControlFallback != FallbackError && p.ControlFallback != FallbackShrink {
		return fmt.Errorf("control_fallback must be %q or %q, got %q", FallbackError, FallbackShrink, p.ControlFallback)
	}
	if p.MinDEGenes < 1 {
		return fmt.Errorf("min_de_genes must be at least 1, got %d", p.MinDEGenes)
	}
	if p.DEMethod != DEWelch && p.DEMethod != DEWilcoxon {
		return fmt.Errorf("de_method must be %q or %q, got %q", DEWelch, DEWilcoxon, p.DEMethod)
	}
	if p.DEAlpha <= 0 || p.DEAlpha >= 1 {
		return fmt.Errorf("de_alpha must lie in (0,1), got %v", p.DEAlpha)
	}
	if p.Iterations < 1 {
		return fmt.Errorf("iterations must be at least 1, got %d", p.Iterations)
	}
	if p.EMIterations < 1 {
		return fmt.Errorf("em_iterations must be at least 1, got %d", p.EMIterations)
	}
	if p.KnockoutThreshold < 0 || p.KnockoutThreshold > 1 {
		return fmt.Errorf("knockout_threshold must lie in [0,1], got %v", p.KnockoutThreshold)
	}
	return nil
}

// DEGene is one differentially expressed gene for a target group vs NT.
type DEGene struct {
	Gene   string  `json:"gene"`
	Log2FC float64 `json:"log2_fc"`
	PValue float64 `json:"p_value"`
	FDR    float64 `json:"fdr"`
	// EffectSize is Cohen's d between the target and control groups.
	EffectSize float64 `json:"effect_size"`
	// Pct1 and Pct2 are the expressed fractions in the target and control
	// groups respectively.
	Pct1 float64 `json:"pct_1"`
	Pct2 float64 `json:"pct_2"`
}

// GroupStatus reports whether a target group could be classified.
type GroupStatus string

const (
	StatusClassified     GroupStatus = "classified"
	StatusUnclassifiable GroupStatus = "unclassifiable"
)

// GroupOutcome is the classification result for one target-gene group.
type GroupOutcome struct {
	TargetGene string      `json:"target_gene"`
	Status     GroupStatus `json:"status"`
	// Reason carries the diagnostic for unclassifiable groups.
	Reason string `json:"reason,omitempty"`

	Cells      []cell.Classification `json:"cells,omitempty"`
	DEGenes    []DEGene              `json:"de_genes,omitempty"`
	Iterations int                   `json:"iterations"`

	// Mixture summary for the final fit.
	KOMean  float64 `json:"ko_mean"`
	NPMean  float64 `json:"np_mean"`
	KOCount int     `json:"ko_count"`
	NPCount int     `json:"np_count"`
}

// Classified reports whether the group produced per-cell labels.
func (g GroupOutcome) Classified() bool {
	return g.Status == StatusClassified
}

// KnockoutGene is one entry of the extracted gene list: a target gene and
// the maximum knockout posterior observed among its cells.
type KnockoutGene struct {
	Gene      string  `json:"gene"`
	Posterior float64 `json:"posterior"`
	// Cells counts how many cells met the extraction threshold.
	Cells int `json:"cells"`
}

// RunRecord is the persisted summary of one classification run.
type RunRecord struct {
	ID        core.RunID     `json:"id"`
	DatasetID core.DatasetID `json:"dataset_id"`
	Params    Params         `json:"params"`
	Groups    []GroupOutcome `json:"groups"`
	Knockouts []KnockoutGene `json:"knockouts"`
	StartedAt core.Timestamp `json:"started_at"`
	EndedAt   core.Timestamp `json:"ended_at"`
}

// Outcome returns the outcome for one target gene.
func (r *RunRecord) Outcome(gene string) (GroupOutcome, error) {
	for _, g := range r.Groups {
		if g.TargetGene == gene {
			return g, nil
		}
	}
	return GroupOutcome{}, fmt.Errorf("%w: %s", core.ErrGroupNotFound, gene)
}
