package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"perturbscope/domain/mixscape"
	"perturbscope/internal/errors"
)

// Sheet names in the run report workbook.
const (
	sheetSummary   = "Groups"
	sheetDEGenes   = "DE Genes"
	sheetKnockouts = "Knockouts"
)

// ExcelWriter renders a full run report workbook: one sheet of per-group
// outcomes, one of DE genes, one of extracted knockouts.
type ExcelWriter struct{}

// NewExcelWriter creates a new Excel report writer
func NewExcelWriter() *ExcelWriter {
	return &ExcelWriter{}
}

// WriteReport writes the workbook to path.
func (w *ExcelWriter) WriteReport(path string, run *mixscape.RunRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return errors.Wrap(err, "renaming summary sheet")
	}
	if err := w.writeSummary(f, run); err != nil {
		return err
	}
	if err := w.writeDEGenes(f, run); err != nil {
		return err
	}
	if err := w.writeKnockouts(f, run); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return errors.Wrapf(err, "saving report workbook %s", path)
	}
	return nil
}

func (w *ExcelWriter) writeSummary(f *excelize.File, run *mixscape.RunRecord) error {
	headers := []interface{}{"Target Gene", "Status", "Reason", "KO Cells", "NP Cells", "Iterations", "KO Mean", "NP Mean"}
	if err := f.SetSheetRow(sheetSummary, "A1", &headers); err != nil {
		return errors.Wrap(err, "writing summary header")
	}
	for i, g := range run.Groups {
		row := []interface{}{g.TargetGene, string(g.Status), g.Reason, g.KOCount, g.NPCount, g.Iterations, g.KOMean, g.NPMean}
		cellRef := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheetSummary, cellRef, &row); err != nil {
			return errors.Wrapf(err, "writing summary row for %s", g.TargetGene)
		}
	}
	return nil
}

func (w *ExcelWriter) writeDEGenes(f *excelize.File, run *mixscape.RunRecord) error {
	if _, err := f.NewSheet(sheetDEGenes); err != nil {
		return errors.Wrap(err, "creating DE gene sheet")
	}
	headers := []interface{}{"Target Gene", "DE Gene", "Log2 FC", "P Value", "FDR", "Effect Size", "Pct Target", "Pct Control"}
	if err := f.SetSheetRow(sheetDEGenes, "A1", &headers); err != nil {
		return errors.Wrap(err, "writing DE gene header")
	}
	rowIdx := 2
	for _, g := range run.Groups {
		for _, de := range g.DEGenes {
			row := []interface{}{g.TargetGene, de.Gene, de.Log2FC, de.PValue, de.FDR, de.EffectSize, de.Pct1, de.Pct2}
			cellRef := fmt.Sprintf("A%d", rowIdx)
			if err := f.SetSheetRow(sheetDEGenes, cellRef, &row); err != nil {
				return errors.Wrapf(err, "writing DE gene row for %s", g.TargetGene)
			}
			rowIdx++
		}
	}
	return nil
}

func (w *ExcelWriter) writeKnockouts(f *excelize.File, run *mixscape.RunRecord) error {
	if _, err := f.NewSheet(sheetKnockouts); err != nil {
		return errors.Wrap(err, "creating knockout sheet")
	}
	headers := []interface{}{"Gene", "Max Posterior", "Cells At Threshold"}
	if err := f.SetSheetRow(sheetKnockouts, "A1", &headers); err != nil {
		return errors.Wrap(err, "writing knockout header")
	}
	for i, ko := range run.Knockouts {
		row := []interface{}{ko.Gene, ko.Posterior, ko.Cells}
		cellRef := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheetKnockouts, cellRef, &row); err != nil {
			return errors.Wrapf(err, "writing knockout row for %s", ko.Gene)
		}
	}
	return nil
}
