package nn

import (
	"errors"
	"math"
	"testing"
)

func TestResolveActivationFallback(t *testing.T) {
	act, fellBack := ResolveActivation("swish")
	if !fellBack {
		t.Fatal("expected fallback for unknown activation")
	}
	if act.Name != DefaultActivation {
		t.Fatalf("fallback activation: got %s, want %s", act.Name, DefaultActivation)
	}

	act, fellBack = ResolveActivation("relu")
	if fellBack {
		t.Fatal("unexpected fallback for relu")
	}
	if act.Name != "relu" {
		t.Fatalf("activation: got %s, want relu", act.Name)
	}
}

func TestRegisterActivationDuplicate(t *testing.T) {
	defer resetActivationRegistryForTests()

	err := RegisterActivation(Activation{
		Name:       "selu",
		Func:       func(x float64) float64 { return x },
		Derivative: func(x float64) float64 { return 1 },
	})
	if !errors.Is(err, ErrActivationExists) {
		t.Fatalf("expected ErrActivationExists, got %v", err)
	}
}

func TestGetActivationNotFound(t *testing.T) {
	if _, err := GetActivation("softplus"); !errors.Is(err, ErrActivationNotFound) {
		t.Fatalf("expected ErrActivationNotFound, got %v", err)
	}
}

func TestSeluValues(t *testing.T) {
	selu, err := GetActivation("selu")
	if err != nil {
		t.Fatalf("get selu: %v", err)
	}
	if got := selu.Func(1); math.Abs(got-seluScale) > 1e-12 {
		t.Fatalf("selu(1): got %v, want %v", got, seluScale)
	}
	if got := selu.Func(0); got != 0 {
		t.Fatalf("selu(0): got %v, want 0", got)
	}
	want := seluScale * seluAlpha * (math.Exp(-1) - 1)
	if got := selu.Func(-1); math.Abs(got-want) > 1e-12 {
		t.Fatalf("selu(-1): got %v, want %v", got, want)
	}
}

func TestListActivationsSorted(t *testing.T) {
	names := ListActivations()
	if len(names) < 4 {
		t.Fatalf("expected at least 4 built-in activations, got %v", names)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("names not sorted: %v", names)
		}
	}
}
