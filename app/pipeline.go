// Package app orchestrates the classification pipeline. Every stage
// consumes the previous stage's record and produces a new one; the run
// record is persisted through the ledger port at the end.
package app

import (
	"context"

	"go.uber.org/zap"

	"perturbscope/domain/core"
	"perturbscope/domain/mixscape"
	"perturbscope/domain/stage"
	"perturbscope/ports"
)

// Pipeline runs the full classification flow:
// load → normalize → reduce → signature → classify → extract.
type Pipeline struct {
	reader     ports.DatasetReaderPort
	normalizer ports.NormalizerPort
	reducer    ports.ReducerPort
	signature  ports.SignaturePort
	classifier ports.ClassifierPort
	extractor  ports.ExtractorPort
	ledger     ports.LedgerPort
	log        *zap.Logger
}

// NewPipeline wires the pipeline from its ports.
func NewPipeline(
	reader ports.DatasetReaderPort,
	normalizer ports.NormalizerPort,
	reducer ports.ReducerPort,
	signature ports.SignaturePort,
	classifier ports.ClassifierPort,
	extractor ports.ExtractorPort,
	ledger ports.LedgerPort,
	log *zap.Logger,
) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		reader:     reader,
		normalizer: normalizer,
		reducer:    reducer,
		signature:  signature,
		classifier: classifier,
		extractor:  extractor,
		ledger:     ledger,
		log:        log,
	}
}

// Run executes the pipeline against a dataset directory and persists the
// run record. Any stage failure aborts the whole run; there is no retry
// and no partial output.
func (p *Pipeline) Run(ctx context.Context, datasetDir string, params mixscape.Params) (*mixscape.RunRecord, *stage.Classified, error) {
	if err := params.Validate(); err != nil {
		return nil, nil, err
	}

	startedAt := core.Now()

	bundle, err := p.reader.Read(ctx, datasetDir)
	if err != nil {
		return nil, nil, err
	}
	profile := ProfileBundle(bundle)
	p.log.Info("dataset loaded",
		zap.String("dataset", bundle.Name),
		zap.Int("cells", profile.Cells),
		zap.Int("genes", profile.Genes),
		zap.Int("controls", profile.Controls),
		zap.Int("target_groups", profile.TargetGroups),
		zap.Float64("median_counts", profile.MedianCounts),
		zap.Float64("median_genes", profile.MedianGenes))

	normalized, err := p.normalizer.Normalize(bundle)
	if err != nil {
		return nil, nil, err
	}

	reduced, err := p.reducer.Reduce(normalized, params.Components)
	if err != nil {
		return nil, nil, err
	}
	p.log.Debug("embedding computed", zap.Int("components", len(reduced.ExplainedVariance)))

	sig, err := p.signature.Compute(reduced, params)
	if err != nil {
		return nil, nil, err
	}

	classified, err := p.classifier.Classify(ctx, sig, params)
	if err != nil {
		return nil, nil, err
	}

	knockouts, err := p.extractor.Extract(classified, params.KnockoutThreshold)
	if err != nil {
		return nil, nil, err
	}

	record := &mixscape.RunRecord{
		ID:        core.RunID(core.NewID()),
		DatasetID: bundle.ID,
		Params:    params,
		Groups:    classified.Groups,
		Knockouts: knockouts,
		StartedAt: startedAt,
		EndedAt:   core.Now(),
	}
	if err := p.ledger.SaveRun(ctx, record); err != nil {
		return nil, nil, err
	}

	p.log.Info("run complete",
		zap.String("run_id", record.ID.String()),
		zap.Int("groups", len(record.Groups)),
		zap.Int("knockouts", len(record.Knockouts)))
	return record, classified, nil
}
