package app

import (
	"github.com/montanaflynn/stats"

	"perturbscope/domain/expr"
)

// DatasetProfile summarizes a loaded dataset for logging and reports:
// library-size distribution and per-cell detected gene counts.
type DatasetProfile struct {
	Cells        int     `json:"cells"`
	Genes        int     `json:"genes"`
	Controls     int     `json:"controls"`
	MeanCounts   float64 `json:"mean_counts"`
	MedianCounts float64 `json:"median_counts"`
	MedianGenes  float64 `json:"median_genes"`
	CountsStdDev float64 `json:"counts_std_dev"`
	HasProtein   bool    `json:"has_protein"`
	TargetGroups int     `json:"target_groups"`
}

// ProfileBundle computes summary statistics over the raw counts.
func ProfileBundle(b *expr.Bundle) DatasetProfile {
	cells := b.RNA.Cells()
	libSizes := make([]float64, cells)
	detected := make([]float64, cells)
	row := make([]float64, b.RNA.GeneCount())
	for i := 0; i < cells; i++ {
		b.RNA.Row(row, i)
		total, nnz := 0.0, 0.0
		for _, v := range row {
			total += v
			if v > 0 {
				nnz++
			}
		}
		libSizes[i] = total
		detected[i] = nnz
	}

	meanCounts, _ := stats.Mean(libSizes)
	medianCounts, _ := stats.Median(libSizes)
	medianGenes, _ := stats.Median(detected)
	countsSD, _ := stats.StandardDeviation(libSizes)

	groups := b.Groups()
	return DatasetProfile{
		Cells:        cells,
		Genes:        b.RNA.GeneCount(),
		Controls:     len(groups.Controls()),
		MeanCounts:   meanCounts,
		MedianCounts: medianCounts,
		MedianGenes:  medianGenes,
		CountsStdDev: countsSD,
		HasProtein:   b.Protein != nil,
		TargetGroups: len(groups.Targets()),
	}
}
