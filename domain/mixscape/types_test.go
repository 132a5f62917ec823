package mixscape

import (
	"errors"
	"testing"

	"perturbscope/domain/core"
)

func TestParams_Validate(t *testing.T) {
	mutate := func(f func(*Params)) Params {
		p := DefaultParams()
		f(&p)
		return p
	}

	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{name: "defaults", params: DefaultParams()},
		{name: "shrink fallback", params: mutate(func(p *Params) { p.ControlFallback = FallbackShrink })},
		{name: "wilcoxon DE", params: mutate(func(p *Params) { p.DEMethod = DEWilcoxon })},
		{name: "zero neighbors", params: mutate(func(p *Params) { p.Neighbors = 0 }), wantErr: true},
		{name: "zero components", params: mutate(func(p *Params) { p.Components = 0 }), wantErr: true},
		{name: "unknown fallback", params: mutate(func(p *Params) { p.ControlFallback = "panic" }), wantErr: true},
		{name: "unknown DE method", params: mutate(func(p *Params) { p.DEMethod = "fisher" }), wantErr: true},
		{name: "zero min DE genes", params: mutate(func(p *Params) { p.MinDEGenes = 0 }), wantErr: true},
		{name: "alpha at one", params: mutate(func(p *Params) { p.DEAlpha = 1 }), wantErr: true},
		{name: "alpha at zero", params: mutate(func(p *Params) { p.DEAlpha = 0 }), wantErr: true},
		{name: "zero iterations", params: mutate(func(p *Params) { p.Iterations = 0 }), wantErr: true},
		{name: "zero EM iterations", params: mutate(func(p *Params) { p.EMIterations = 0 }), wantErr: true},
		{name: "threshold above one", params: mutate(func(p *Params) { p.KnockoutThreshold = 1.5 }), wantErr: true},
		{name: "negative threshold", params: mutate(func(p *Params) { p.KnockoutThreshold = -0.5 }), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultParams_StrictThreshold(t *testing.T) {
	if got := DefaultParams().KnockoutThreshold; got != 1.0 {
		t.Errorf("default knockout threshold = %v, want 1.0", got)
	}
}

func TestRunRecord_Outcome(t *testing.T) {
	run := RunRecord{
		Groups: []GroupOutcome{
			{TargetGene: "IFNGR1", Status: StatusClassified},
			{TargetGene: "JAK2", Status: StatusUnclassifiable, Reason: "too few DE genes"},
		},
	}

	got, err := run.Outcome("JAK2")
	if err != nil {
		t.Fatalf("Outcome(JAK2) error: %v", err)
	}
	if got.Status != StatusUnclassifiable {
		t.Errorf("JAK2 status = %q, want unclassifiable", got.Status)
	}

	_, err = run.Outcome("STAT1")
	if !errors.Is(err, core.ErrGroupNotFound) {
		t.Errorf("Outcome(STAT1) error = %v, want ErrGroupNotFound", err)
	}
}
