package errors

import (
	stderrors "errors"
	"testing"
)

func TestWrapPreservesChain(t *testing.T) {
	sentinel := stderrors.New("boom")
	wrapped := Wrap(sentinel, "loading dataset")

	if !stderrors.Is(wrapped, sentinel) {
		t.Error("wrapped error lost the sentinel")
	}
	if GetCode(wrapped) != CodeInternalError {
		t.Errorf("code = %q, want %q for plain errors", GetCode(wrapped), CodeInternalError)
	}
}

func TestWrapKeepsAppErrorCode(t *testing.T) {
	base := LedgerError("saving run", stderrors.New("disk full"))
	wrapped := Wrapf(base, "run %s", "abc")

	if GetCode(wrapped) != CodeLedgerError {
		t.Errorf("code = %q, want the original %q", GetCode(wrapped), CodeLedgerError)
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("wrapping nil should stay nil")
	}
}

func TestGetCodeUnknown(t *testing.T) {
	if got := GetCode(stderrors.New("x")); got != "UNKNOWN" {
		t.Errorf("code = %q, want UNKNOWN", got)
	}
}
