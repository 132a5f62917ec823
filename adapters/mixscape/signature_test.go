package mixscape

import (
	"errors"
	"math"
	"testing"

	"perturbscope/adapters/matrix"
	"perturbscope/domain/core"
	"perturbscope/domain/mixscape"
	"perturbscope/domain/stage"
	"perturbscope/internal/testkit"
)

func reducedFromConfig(t *testing.T, cfg testkit.Config, components int) *stage.Reduced {
	t.Helper()
	bundle, err := testkit.GenerateBundle(cfg)
	if err != nil {
		t.Fatalf("GenerateBundle: %v", err)
	}
	normalized, err := matrix.NewNormalizer().Normalize(bundle)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	reduced, err := matrix.NewReducer().Reduce(normalized, components)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	return reduced
}

func TestSignatureCalculator_Compute(t *testing.T) {
	reduced := reducedFromConfig(t, testkit.DefaultConfig(), 10)

	params := mixscape.DefaultParams()
	params.Neighbors = 10

	sig, err := NewSignatureCalculator().Compute(reduced, params)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	rna := reduced.Normalized.RNA
	if sig.Matrix.Cells() != rna.Cells() || sig.Matrix.GeneCount() != rna.GeneCount() {
		t.Fatalf("signature dims %dx%d do not match expression %dx%d",
			sig.Matrix.Cells(), sig.Matrix.GeneCount(), rna.Cells(), rna.GeneCount())
	}

	// Control cells match other controls, so their signatures hover near
	// zero while shifted knockout cells deviate.
	bundle := reduced.Normalized.Bundle
	groups := bundle.Groups()

	controlMag := meanAbsSignature(sig, groups.Controls())
	koMag := meanAbsSignature(sig, groups["IFNGR1"][10:]) // skip escapers
	if koMag <= controlMag {
		t.Errorf("knockout signature magnitude %v not above control magnitude %v", koMag, controlMag)
	}
}

func meanAbsSignature(sig *stage.Signature, rows []int) float64 {
	total := 0.0
	n := 0
	for _, row := range rows {
		for j := 0; j < sig.Matrix.GeneCount(); j++ {
			total += math.Abs(sig.Matrix.Data.At(row, j))
			n++
		}
	}
	return total / float64(n)
}

func TestSignatureCalculator_InsufficientControls(t *testing.T) {
	cfg := testkit.DefaultConfig()
	cfg.ControlCells = 8 // 4 controls per replicate

	reduced := reducedFromConfig(t, cfg, 5)

	params := mixscape.DefaultParams()
	params.Neighbors = 10
	params.ControlFallback = mixscape.FallbackError

	_, err := NewSignatureCalculator().Compute(reduced, params)
	if !errors.Is(err, core.ErrInsufficientControls) {
		t.Fatalf("error = %v, want ErrInsufficientControls", err)
	}
}

func TestSignatureCalculator_ShrinkFallback(t *testing.T) {
	cfg := testkit.DefaultConfig()
	cfg.ControlCells = 8

	reduced := reducedFromConfig(t, cfg, 5)

	params := mixscape.DefaultParams()
	params.Neighbors = 10
	params.ControlFallback = mixscape.FallbackShrink

	sig, err := NewSignatureCalculator().Compute(reduced, params)
	if err != nil {
		t.Fatalf("shrink fallback failed: %v", err)
	}
	if sig.Matrix == nil {
		t.Fatal("shrink fallback produced no signature")
	}
}
