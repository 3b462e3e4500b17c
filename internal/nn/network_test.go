package nn

import (
	"bytes"
	"math"
	"math/rand"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func testNetwork(t *testing.T, seed int64) *Network {
	t.Helper()
	net, err := NewNetwork(Config{
		DimMotor:        2,
		DimSensor:       2,
		DimEnc:          2,
		EncoderLayers:   []int{3},
		PredictorLayers: []int{4},
		Activation:      "selu",
		Rand:            rand.New(rand.NewSource(seed)),
	})
	if err != nil {
		t.Fatalf("new network: %v", err)
	}
	return net
}

func randomBatch(rng *rand.Rand, rows, cols int) *mat.Dense {
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, rng.NormFloat64())
		}
	}
	return out
}

func TestNetworkActivationFallbackWarns(t *testing.T) {
	var warnings bytes.Buffer
	net, err := NewNetwork(Config{
		DimMotor:        2,
		DimSensor:       2,
		DimEnc:          2,
		EncoderLayers:   []int{3},
		PredictorLayers: []int{3},
		Activation:      "elu",
		Rand:            rand.New(rand.NewSource(1)),
		Warnings:        &warnings,
	})
	if err != nil {
		t.Fatalf("new network: %v", err)
	}
	if !strings.Contains(warnings.String(), "WARNING") {
		t.Fatalf("expected a warning, got %q", warnings.String())
	}
	if net.Activation() != DefaultActivation {
		t.Fatalf("activation after fallback: got %s, want %s", net.Activation(), DefaultActivation)
	}
}

// TestNetworkWeightSharing exercises the invariant that both motor branches
// reference the identical encoder parameters: encoding the same input
// through either branch of Predict must agree for any parameter state.
func TestNetworkWeightSharing(t *testing.T) {
	net := testNetwork(t, 2)
	rng := rand.New(rand.NewSource(3))

	motor := randomBatch(rng, 6, 2)
	sensor := randomBatch(rng, 6, 2)

	// Mutate the parameters to an arbitrary trained-like state.
	for _, p := range net.Params() {
		for i := range p {
			p[i] += 0.1 * rng.NormFloat64()
		}
	}

	// With motor_t == motor_tp the concatenated embeddings are equal, so a
	// predictor fed [e, e, s] must match Predict exactly.
	enc := net.Encode(motor)
	pred := net.Predict(motor, motor, sensor)
	direct := net.predictor.Forward(concatColumns(enc, enc, sensor))
	if !mat.Equal(pred, direct) {
		t.Fatal("the two encoder invocations do not share parameters")
	}
}

// TestNetworkGradients checks the full backward pass, including the
// accumulation of both encoder branch gradients into the shared buffer,
// against finite differences.
func TestNetworkGradients(t *testing.T) {
	net := testNetwork(t, 4)
	rng := rand.New(rand.NewSource(5))

	motorT := randomBatch(rng, 4, 2)
	motorTP := randomBatch(rng, 4, 2)
	sensorT := randomBatch(rng, 4, 2)
	sensorTP := randomBatch(rng, 4, 2)

	_, grads := net.LossAndGradients(motorT, motorTP, sensorT, sensorTP)

	loss := func() float64 {
		l, _ := net.Loss(motorT, motorTP, sensorT, sensorTP)
		return l
	}

	const eps = 1e-6
	params := net.Params()
	analytic := grads.Slices()
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

func TestNetworkCheckpointRoundTrip(t *testing.T) {
	source := testNetwork(t, 6)
	restored := testNetwork(t, 7) // different random init

	if err := restored.Restore(source.Checkpoint()); err != nil {
		t.Fatalf("restore: %v", err)
	}

	rng := rand.New(rand.NewSource(8))
	motorT := randomBatch(rng, 5, 2)
	motorTP := randomBatch(rng, 5, 2)
	sensorT := randomBatch(rng, 5, 2)

	want := source.Predict(motorT, motorTP, sensorT)
	got := restored.Predict(motorT, motorTP, sensorT)
	if !mat.Equal(want, got) {
		t.Fatal("restored predictions are not bit-identical")
	}
}

func TestNetworkRestoreShapeMismatch(t *testing.T) {
	source := testNetwork(t, 9)
	other, err := NewNetwork(Config{
		DimMotor:        2,
		DimSensor:       2,
		DimEnc:          3,
		EncoderLayers:   []int{3},
		PredictorLayers: []int{4},
		Activation:      "selu",
		Rand:            rand.New(rand.NewSource(10)),
	})
	if err != nil {
		t.Fatalf("new network: %v", err)
	}
	if err := other.Restore(source.Checkpoint()); err == nil {
		t.Fatal("expected error restoring a mismatched architecture")
	}
}
