// Package tsv loads pre-bundled single-cell datasets from tab-separated
// assay files: an RNA counts matrix, an optional protein counts matrix,
// and a per-cell metadata table, all keyed by cell barcode.
package tsv

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"perturbscope/domain/cell"
	"perturbscope/domain/core"
	"perturbscope/domain/expr"
	"perturbscope/internal/errors"
)

// Conventional file names inside a dataset directory.
const (
	RNAFile      = "rna_counts.tsv"
	ProteinFile  = "protein_counts.tsv"
	MetadataFile = "cells.tsv"
)

// Reader loads a dataset directory into an expression bundle.
type Reader struct{}

// NewReader creates a new dataset reader
func NewReader() *Reader {
	return &Reader{}
}

// Read loads the bundle. The protein matrix is optional; metadata is
// required and must align row-for-row with the RNA matrix.
func (r *Reader) Read(ctx context.Context, dir string) (*expr.Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rna, err := readMatrix(filepath.Join(dir, RNAFile))
	if err != nil {
		return nil, errors.Wrapf(err, "loading RNA counts from %s", dir)
	}

	var protein *expr.Matrix
	proteinPath := filepath.Join(dir, ProteinFile)
	if _, statErr := os.Stat(proteinPath); statErr == nil {
		protein, err = readMatrix(proteinPath)
		if err != nil {
			return nil, errors.Wrapf(err, "loading protein counts from %s", dir)
		}
	}

	meta, err := readMetadata(filepath.Join(dir, MetadataFile))
	if err != nil {
		return nil, err
	}

	bundle := &expr.Bundle{
		ID:      core.DatasetID(core.NewID()),
		Name:    filepath.Base(dir),
		RNA:     rna,
		Protein: protein,
		Meta:    meta,
	}
	if err := bundle.Validate(); err != nil {
		return nil, err
	}
	return bundle, nil
}

// readMatrix parses a counts table: header row of gene names after a
// leading cell_id column, one row per cell.
func readMatrix(path string) (*expr.Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: %s has no data rows", core.ErrEmptyMatrix, filepath.Base(path))
	}

	header := records[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("%w: %s has no gene columns", core.ErrEmptyMatrix, filepath.Base(path))
	}
	genes := header[1:]

	rows := len(records) - 1
	cols := len(genes)
	cellIDs := make([]string, rows)
	data := mat.NewDense(rows, cols, nil)

	for i, record := range records[1:] {
		if len(record) != cols+1 {
			return nil, fmt.Errorf("row %d of %s has %d fields, want %d", i+2, filepath.Base(path), len(record), cols+1)
		}
		cellIDs[i] = record[0]
		for j, field := range record[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d gene %s of %s: %w", i+2, genes[j], filepath.Base(path), err)
			}
			data.Set(i, j, v)
		}
	}

	return expr.New(cellIDs, genes, data)
}

// readMetadata parses the per-cell annotation table. Cells whose target
// gene is the NT sentinel are non-targeting controls.
func readMetadata(path string) ([]cell.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = '\t'

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 1 {
		return nil, core.NewMalformedMetadataError("cell_id")
	}

	col := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		col[name] = i
	}
	for _, required := range []string{"cell_id", "replicate", "guide_id", "target_gene"} {
		if _, ok := col[required]; !ok {
			return nil, core.NewMalformedMetadataError(required)
		}
	}

	meta := make([]cell.Metadata, 0, len(records)-1)
	for _, record := range records[1:] {
		m := cell.Metadata{
			CellID:     record[col["cell_id"]],
			Replicate:  record[col["replicate"]],
			GuideID:    record[col["guide_id"]],
			TargetGene: record[col["target_gene"]],
		}
		if phaseIdx, ok := col["phase"]; ok {
			m.Phase = cell.Phase(record[phaseIdx])
		}
		m.NonTargeting = m.TargetGene == cell.NTGroup
		meta = append(meta, m)
	}
	return meta, nil
}
