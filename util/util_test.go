package util_test

import (
	"errors"
	"testing"

	"github.com/opticslab/asicam/util"
)

func TestMergeErrorsAllNil(t *testing.T) {
	if err := util.MergeErrors([]error{nil, nil, nil}); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestMergeErrorsJoins(t *testing.T) {
	errs := []error{errors.New("a"), nil, errors.New("b")}
	err := util.MergeErrors(errs)
	if err == nil {
		t.Fatal("expected an error")
	}
	if err.Error() != "a; b" {
		t.Errorf("expected \"a; b\", got %q", err.Error())
	}
}

func TestAllElementsNumbers(t *testing.T) {
	cases := map[string]bool{
		"100":   true,
		"0.25":  true,
		"100ms": false,
		"":      false,
		"abc":   false,
	}
	for in, expected := range cases {
		if got := util.AllElementsNumbers(in); got != expected {
			t.Errorf("AllElementsNumbers(%q): expected %t, got %t", in, expected, got)
		}
	}
}

func TestClamp(t *testing.T) {
	if got := util.Clamp(5, 0, 1); got != 1 {
		t.Errorf("expected 1, got %g", got)
	}
	if got := util.Clamp(-5, 0, 1); got != 0 {
		t.Errorf("expected 0, got %g", got)
	}
	if got := util.Clamp(0.5, 0, 1); got != 0.5 {
		t.Errorf("expected 0.5, got %g", got)
	}
}
