package nn

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestDenseStackShapes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	act, _ := GetActivation("selu")
	stack, err := NewDenseStack(3, []int{5, 4, 2}, act, rng)
	if err != nil {
		t.Fatalf("new stack: %v", err)
	}
	if got := stack.InputDim(); got != 3 {
		t.Fatalf("input dim: got %d, want 3", got)
	}
	if got := stack.OutputDim(); got != 2 {
		t.Fatalf("output dim: got %d, want 2", got)
	}

	out := stack.Forward(mat.NewDense(7, 3, nil))
	r, c := out.Dims()
	if r != 7 || c != 2 {
		t.Fatalf("forward shape: got (%d,%d), want (7,2)", r, c)
	}
}

func TestDenseStackFinalLayerLinear(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	act, _ := GetActivation("relu")
	stack, err := NewDenseStack(2, []int{3, 1}, act, rng)
	if err != nil {
		t.Fatalf("new stack: %v", err)
	}

	layers := stack.Layers()
	if layers[0].Act == nil {
		t.Fatal("hidden layer must carry the nonlinearity")
	}
	if layers[len(layers)-1].Act != nil {
		t.Fatal("output layer must be strictly linear")
	}

	// With relu hidden units the only way to reach unbounded negative
	// outputs is a linear output layer.
	last := layers[len(layers)-1]
	for j := range last.Biases {
		last.Biases[j] = -1e6
	}
	out := stack.Forward(mat.NewDense(1, 2, []float64{0.3, -0.7}))
	if out.At(0, 0) > -1e5 {
		t.Fatalf("output not unbounded below: %v", out.At(0, 0))
	}
}

func TestDenseStackInvalidConfig(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	act, _ := GetActivation("selu")
	if _, err := NewDenseStack(0, []int{2}, act, rng); err == nil {
		t.Fatal("expected error for zero input dim")
	}
	if _, err := NewDenseStack(2, nil, act, rng); err == nil {
		t.Fatal("expected error for empty widths")
	}
	if _, err := NewDenseStack(2, []int{3, 0}, act, rng); err == nil {
		t.Fatal("expected error for zero width layer")
	}
	if _, err := NewDenseStack(2, []int{3}, act, nil); err == nil {
		t.Fatal("expected error for nil rng")
	}
}

// TestDenseStackGradients checks the analytic backward pass against central
// finite differences of the scalar loss 0.5*sum(out^2).
func TestDenseStackGradients(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	act, _ := GetActivation("selu")
	stack, err := NewDenseStack(3, []int{4, 2}, act, rng)
	if err != nil {
		t.Fatalf("new stack: %v", err)
	}

	input := mat.NewDense(5, 3, nil)
	for i := 0; i < 5; i++ {
		for j := 0; j < 3; j++ {
			input.Set(i, j, rng.NormFloat64())
		}
	}

	loss := func() float64 {
		out := stack.Forward(input)
		r, c := out.Dims()
		total := 0.0
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				total += 0.5 * out.At(i, j) * out.At(i, j)
			}
		}
		return total
	}

	out, cache := stack.forward(input)
	grads := NewStackGrads(stack)
	stack.backward(cache, mat.DenseCopyOf(out), grads)

	const eps = 1e-6
	params := stack.paramSlices()
	analytic := grads.slices()
	for gi, p := range params {
		for j := range p {
			orig := p[j]
			p[j] = orig + eps
			plus := loss()
			p[j] = orig - eps
			minus := loss()
			p[j] = orig

			numeric := (plus - minus) / (2 * eps)
			diff := math.Abs(numeric - analytic[gi][j])
			scale := math.Max(1, math.Abs(numeric))
			if diff/scale > 1e-4 {
				t.Fatalf("gradient mismatch group %d index %d: analytic %v, numeric %v", gi, j, analytic[gi][j], numeric)
			}
		}
	}
}
