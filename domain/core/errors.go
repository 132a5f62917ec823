package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound        = errors.New("resource not found")
	ErrRunNotFound     = fmt.Errorf("%w: run", ErrNotFound)
	ErrDatasetNotFound = fmt.Errorf("%w: dataset", ErrNotFound)
	ErrGroupNotFound   = fmt.Errorf("%w: perturbation group", ErrNotFound)
	ErrJobNotFound     = fmt.Errorf("%w: job", ErrNotFound)

	// Data errors
	ErrMalformedMetadata = errors.New("malformed cell metadata")
	ErrDimensionMismatch = errors.New("matrix dimension mismatch")
	ErrEmptyMatrix       = errors.New("empty expression matrix")

	// Signature errors
	ErrInsufficientControls = errors.New("insufficient control cells for neighbor matching")

	// Classification errors
	ErrInsufficientDEGenes = errors.New("insufficient differentially expressed genes")
	ErrNoPerturbedCells    = errors.New("group contains no perturbed cells")
	ErrDegenerateFit       = errors.New("mixture fit is degenerate")
)

// Error constructors with context

func NewMalformedMetadataError(column string) error {
	return fmt.Errorf("%w: required column %q is missing", ErrMalformedMetadata, column)
}

func NewInsufficientControlsError(replicate string, have, want int) error {
	return fmt.Errorf("%w: replicate %s has %d non-targeting cells, need %d", ErrInsufficientControls, replicate, have, want)
}

func NewInsufficientDEGenesError(gene string, have, want int) error {
	return fmt.Errorf("%w: group %s has %d DE genes, minimum is %d", ErrInsufficientDEGenes, gene, have, want)
}

func NewDimensionMismatchError(what string, got, want int) error {
	return fmt.Errorf("%w: %s has length %d, want %d", ErrDimensionMismatch, what, got, want)
}

// Error checking helpers

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsDataError(err error) bool {
	return errors.Is(err, ErrMalformedMetadata) ||
		errors.Is(err, ErrDimensionMismatch) ||
		errors.Is(err, ErrEmptyMatrix)
}

// IsUnclassifiableError reports whether a gene group failed classification
// for a reason that should be surfaced per group rather than aborting the
// whole run.
func IsUnclassifiableError(err error) bool {
	return errors.Is(err, ErrInsufficientDEGenes) ||
		errors.Is(err, ErrNoPerturbedCells) ||
		errors.Is(err, ErrDegenerateFit)
}
