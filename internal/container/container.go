// Package container wires concrete adapters into the application
// services based on configuration.
package container

import (
	"go.uber.org/zap"

	"perturbscope/adapters/ledger"
	"perturbscope/adapters/matrix"
	"perturbscope/adapters/mixscape"
	"perturbscope/adapters/report"
	"perturbscope/adapters/tsv"
	"perturbscope/app"
	"perturbscope/internal/config"
	"perturbscope/internal/errors"
	"perturbscope/ports"
)

// Container holds the wired application services.
type Container struct {
	Pipeline  *app.Pipeline
	Extract   *app.ExtractService
	Ledger    ports.LedgerPort
	GeneList  ports.GeneListWriterPort
	Report    ports.ReportWriterPort
	closeFunc func() error
}

// New builds the container for the given configuration.
func New(cfg *config.Config, log *zap.Logger) (*Container, error) {
	var (
		ledgerPort ports.LedgerPort
		closeFunc  func() error
	)
	switch cfg.Ledger.Driver {
	case "memory":
		ledgerPort = ledger.NewMemory()
	case "postgres", "sqlite":
		sqlLedger, err := ledger.Open(cfg.Ledger.Driver, cfg.Ledger.DSN)
		if err != nil {
			return nil, err
		}
		ledgerPort = sqlLedger
		closeFunc = sqlLedger.Close
	default:
		return nil, errors.ConfigInvalid("unknown ledger driver " + cfg.Ledger.Driver)
	}

	extractor := mixscape.NewExtractor()
	pipeline := app.NewPipeline(
		tsv.NewReader(),
		matrix.NewNormalizer(),
		matrix.NewReducer(),
		mixscape.NewSignatureCalculator(),
		mixscape.NewClassifier(log),
		extractor,
		ledgerPort,
		log,
	)

	return &Container{
		Pipeline:  pipeline,
		Extract:   app.NewExtractService(ledgerPort, extractor),
		Ledger:    ledgerPort,
		GeneList:  report.NewGeneListWriter(),
		Report:    report.NewExcelWriter(),
		closeFunc: closeFunc,
	}, nil
}

// Close releases held resources.
func (c *Container) Close() error {
	if c.closeFunc != nil {
		return c.closeFunc()
	}
	return nil
}
