package ports

import (
	"perturbscope/domain/mixscape"
)

// GeneListWriterPort emits the flat knockout gene list, one gene per line
// in extractor order.
type GeneListWriterPort interface {
	WriteGeneList(path string, genes []mixscape.KnockoutGene) error
}

// ReportWriterPort renders a full run report (per-group summaries, DE
// genes, knockout list) to a workbook.
type ReportWriterPort interface {
	WriteReport(path string, run *mixscape.RunRecord) error
}
