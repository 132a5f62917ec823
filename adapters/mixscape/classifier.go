package mixscape

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"go.uber.org/zap"

	"perturbscope/adapters/stats"
	"perturbscope/domain/cell"
	"perturbscope/domain/core"
	"perturbscope/domain/expr"
	"perturbscope/domain/mixscape"
	"perturbscope/domain/stage"
)

// Classifier assigns every cell a KO/NP/NT label with a knockout
// posterior, one target-gene group at a time. Groups that cannot be
// classified are reported with a diagnostic, never silently dropped.
type Classifier struct {
	log *zap.Logger
}

// NewClassifier creates a new mixscape classifier
func NewClassifier(log *zap.Logger) *Classifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Classifier{log: log}
}

// Classify runs the mixture-model procedure for every target group in the
// signature. Non-targeting cells are labeled NT with posterior 0 by
// definition.
func (c *Classifier) Classify(ctx context.Context, s *stage.Signature, params mixscape.Params) (*stage.Classified, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	bundle := s.Reduced.Normalized.Bundle
	groups := bundle.Groups()
	controls := groups.Controls()
	rng := rand.New(rand.NewSource(params.Seed))

	outcomes := make([]mixscape.GroupOutcome, 0, len(groups))
	outcomes = append(outcomes, ntOutcome(bundle, controls))

	for _, target := range groups.Targets() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		outcome, err := c.classifyGroup(s.Matrix, groups[target], controls, target, params, rng)
		if err != nil {
			if core.IsUnclassifiableError(err) {
				c.log.Warn("target group unclassifiable",
					zap.String("target", target),
					zap.Error(err))
				outcomes = append(outcomes, mixscape.GroupOutcome{
					TargetGene: target,
					Status:     mixscape.StatusUnclassifiable,
					Reason:     err.Error(),
				})
				continue
			}
			return nil, fmt.Errorf("classifying group %s: %w", target, err)
		}
		c.log.Info("target group classified",
			zap.String("target", target),
			zap.Int("ko", outcome.KOCount),
			zap.Int("np", outcome.NPCount),
			zap.Int("iterations", outcome.Iterations))
		outcomes = append(outcomes, *outcome)
	}

	return &stage.Classified{Signature: s, Groups: outcomes}, nil
}

// ntOutcome labels every control cell NT with zero posterior.
func ntOutcome(bundle *expr.Bundle, controls []int) mixscape.GroupOutcome {
	cells := make([]cell.Classification, len(controls))
	for i, row := range controls {
		cells[i] = cell.Classification{
			CellID:     bundle.Meta[row].CellID,
			TargetGene: cell.NTGroup,
			Label:      cell.LabelNT,
			Posterior:  0,
		}
	}
	return mixscape.GroupOutcome{
		TargetGene: cell.NTGroup,
		Status:     mixscape.StatusClassified,
		Cells:      cells,
		NPCount:    0,
		KOCount:    0,
	}
}

func (c *Classifier) classifyGroup(sig *expr.Matrix, groupRows, controlRows []int, target string, params mixscape.Params, rng *rand.Rand) (*mixscape.GroupOutcome, error) {
	if len(groupRows) == 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrNoPerturbedCells, target)
	}

	deGenes := stats.DifferentialExpression(sig, groupRows, controlRows, params.DEMethod, params.DEAlpha, params.MinLogFC)
	if len(deGenes) < params.MinDEGenes {
		return nil, core.NewInsufficientDEGenesError(target, len(deGenes), params.MinDEGenes)
	}

	deCols, err := geneColumns(sig, deGenes)
	if err != nil {
		return nil, err
	}

	// Start from the assumption that every perturbed cell is a knockout,
	// then let the mixture peel off the escapers.
	koRows := append([]int(nil), groupRows...)
	post := make([]float64, len(groupRows))
	var fit Mixture
	iterations := 0

	for iter := 0; iter < params.Iterations; iter++ {
		iterations++

		if iter > 0 {
			// Refine the DE gene set using only the cells currently called
			// KO; keep the previous set when the refinement starves.
			refined := stats.DifferentialExpression(sig, koRows, controlRows, params.DEMethod, params.DEAlpha, params.MinLogFC)
			if len(refined) >= params.MinDEGenes {
				deGenes = refined
				if deCols, err = geneColumns(sig, refined); err != nil {
					return nil, err
				}
			}
		}

		dir := koDirection(sig, koRows, controlRows, deCols)
		ctrlScores := project(sig, controlRows, deCols, dir)
		grpScores := project(sig, groupRows, deCols, dir)

		init := InitFromGroups(ctrlScores, grpScores, rng.NormFloat64()*1e-3)
		all := make([]float64, 0, len(ctrlScores)+len(grpScores))
		all = append(all, ctrlScores...)
		all = append(all, grpScores...)

		m, postAll, err := FitTwoComponent(all, init, params.EMIterations, params.EMTolerance)
		if err != nil {
			return nil, err
		}

		// Component 2 must be the one displaced from the control mean.
		ctrlMean := mean(ctrlScores)
		if math.Abs(m.Mu2-ctrlMean) < math.Abs(m.Mu1-ctrlMean) {
			m.Mu1, m.Mu2 = m.Mu2, m.Mu1
			m.Sigma1, m.Sigma2 = m.Sigma2, m.Sigma1
			m.Weight = 1 - m.Weight
			for i := range postAll {
				postAll[i] = 1 - postAll[i]
			}
		}
		fit = m
		copy(post, postAll[len(ctrlScores):])

		newKO := make([]int, 0, len(groupRows))
		for i, row := range groupRows {
			if post[i] > 0.5 {
				newKO = append(newKO, row)
			}
		}
		if equalRows(newKO, koRows) {
			break
		}
		if len(newKO) == 0 {
			// Everything escaped: the group has no detectable phenotype.
			koRows = nil
			break
		}
		koRows = newKO
	}

	outcome := &mixscape.GroupOutcome{
		TargetGene: target,
		Status:     mixscape.StatusClassified,
		DEGenes:    deGenes,
		Iterations: iterations,
		KOMean:     fit.Mu2,
		NPMean:     fit.Mu1,
	}
	for i, row := range groupRows {
		label := cell.LabelNP
		if post[i] > 0.5 {
			label = cell.LabelKO
			outcome.KOCount++
		} else {
			outcome.NPCount++
		}
		outcome.Cells = append(outcome.Cells, cell.Classification{
			CellID:     sig.CellIDs[row],
			TargetGene: target,
			Label:      label,
			Posterior:  clamp01(post[i]),
		})
	}
	return outcome, nil
}

// koDirection is the mean signature difference between the current KO
// cells and the controls over the DE columns, scaled to unit length.
func koDirection(sig *expr.Matrix, koRows, controlRows []int, deCols []int) []float64 {
	dir := make([]float64, len(deCols))
	norm := 0.0
	for i, col := range deCols {
		d := mean(sig.ColumnValues(koRows, col)) - mean(sig.ColumnValues(controlRows, col))
		dir[i] = d
		norm += d * d
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range dir {
			dir[i] /= norm
		}
	}
	return dir
}

// project computes each row's perturbation score: the dot product of its
// signature restricted to the DE columns with the KO direction.
func project(sig *expr.Matrix, rows, deCols []int, dir []float64) []float64 {
	scores := make([]float64, len(rows))
	for i, row := range rows {
		s := 0.0
		for j, col := range deCols {
			s += sig.Data.At(row, col) * dir[j]
		}
		scores[i] = s
	}
	return scores
}

func geneColumns(sig *expr.Matrix, genes []mixscape.DEGene) ([]int, error) {
	cols := make([]int, len(genes))
	for i, g := range genes {
		col, err := sig.GeneIndex(g.Gene)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	return cols, nil
}

func equalRows(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
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

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
