// Package report renders run outputs: the flat knockout gene list and an
// Excel workbook with per-group detail.
package report

import (
	"bufio"
	"os"

	"perturbscope/domain/mixscape"
	"perturbscope/internal/errors"
)

// GeneListWriter emits the knockout gene list as a flat text file, one
// gene identifier per line in extractor order.
type GeneListWriter struct{}

// NewGeneListWriter creates a new gene list writer
func NewGeneListWriter() *GeneListWriter {
	return &GeneListWriter{}
}

// WriteGeneList writes the list to path, replacing any existing file.
func (w *GeneListWriter) WriteGeneList(path string, genes []mixscape.KnockoutGene) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating gene list %s", path)
	}
	defer f.Close()

	buf := bufio.NewWriter(f)
	for _, g := range genes {
		if _, err := buf.WriteString(g.Gene + "\n"); err != nil {
			return errors.Wrapf(err, "writing gene list %s", path)
		}
	}
	if err := buf.Flush(); err != nil {
		return errors.Wrapf(err, "flushing gene list %s", path)
	}
	return nil
}
