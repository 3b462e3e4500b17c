package nn

import (
	"fmt"
	"io"
	"math/rand"
	"os"

	"gonum.org/v1/gonum/mat"

	"sensorimotor/internal/model"
)

// Config describes the fixed twin-branch architecture: a motor encoder
// applied with shared parameters to the current and future motor
// configurations, and a predictor fed their concatenation with the current
// sensory input.
type Config struct {
	DimMotor        int
	DimSensor       int
	DimEnc          int
	EncoderLayers   []int
	PredictorLayers []int
	Activation      string
	Rand            *rand.Rand

	// Warnings receives non-fatal configuration notices; defaults to stderr.
	Warnings io.Writer
}

// Network is the sensorimotor predictive network. The encoder is a single
// parameter set invoked on both motor branches, so the two embeddings live
// in the same learned metric space.
type Network struct {
	cfg       Config
	encoder   *DenseStack
	predictor *DenseStack
}

func NewNetwork(cfg Config) (*Network, error) {
	if cfg.DimMotor <= 0 || cfg.DimSensor <= 0 || cfg.DimEnc <= 0 {
		return nil, fmt.Errorf("dimensions must be > 0: motor=%d sensor=%d enc=%d", cfg.DimMotor, cfg.DimSensor, cfg.DimEnc)
	}
	if cfg.Rand == nil {
		return nil, fmt.Errorf("random source is required")
	}
	warnings := cfg.Warnings
	if warnings == nil {
		warnings = os.Stderr
	}

	act, fellBack := ResolveActivation(cfg.Activation)
	if fellBack {
		fmt.Fprintf(warnings, "WARNING: incorrect activation function %q [%q or \"relu\"] - %q is used instead\n",
			cfg.Activation, DefaultActivation, DefaultActivation)
		cfg.Activation = act.Name
	}

	encoderWidths := append(append([]int(nil), cfg.EncoderLayers...), cfg.DimEnc)
	encoder, err := NewDenseStack(cfg.DimMotor, encoderWidths, act, cfg.Rand)
	if err != nil {
		return nil, fmt.Errorf("build encoder: %w", err)
	}

	predictorWidths := append(append([]int(nil), cfg.PredictorLayers...), cfg.DimSensor)
	predictor, err := NewDenseStack(2*cfg.DimEnc+cfg.DimSensor, predictorWidths, act, cfg.Rand)
	if err != nil {
		return nil, fmt.Errorf("build predictor: %w", err)
	}

	return &Network{cfg: cfg, encoder: encoder, predictor: predictor}, nil
}

// Activation returns the activation actually in use after any fallback.
func (n *Network) Activation() string { return n.cfg.Activation }

// DimEnc returns the embedding width.
func (n *Network) DimEnc() int { return n.cfg.DimEnc }

// DimSensor returns the sensory dimensionality.
func (n *Network) DimSensor() int { return n.cfg.DimSensor }

// Encode maps motor configurations (rows) to embeddings through the shared
// encoder parameters. Both motor branches go through this same path.
func (n *Network) Encode(motor *mat.Dense) *mat.Dense {
	return n.encoder.Forward(motor)
}

// Predict runs the full forward pass and returns the predicted future
// sensory input.
func (n *Network) Predict(motorT, motorTP, sensorT *mat.Dense) *mat.Dense {
	encT := n.encoder.Forward(motorT)
	encTP := n.encoder.Forward(motorTP)
	return n.predictor.Forward(concatColumns(encT, encTP, sensorT))
}

// Loss returns the mean over the batch of the per-sample sum of squared
// prediction errors, together with the predictions.
func (n *Network) Loss(motorT, motorTP, sensorT, sensorTP *mat.Dense) (float64, *mat.Dense) {
	pred := n.Predict(motorT, motorTP, sensorT)
	return predictionLoss(pred, sensorTP), pred
}

// Gradients holds loss gradients for every trainable parameter. The encoder
// grads already contain the sum of both branch contributions.
type Gradients struct {
	Encoder   *StackGrads
	Predictor *StackGrads
}

// LossAndGradients computes the loss on a batch and the gradients of every
// parameter by backpropagation through both encoder invocations.
func (n *Network) LossAndGradients(motorT, motorTP, sensorT, sensorTP *mat.Dense) (float64, *Gradients) {
	encT, cacheT := n.encoder.forward(motorT)
	encTP, cacheTP := n.encoder.forward(motorTP)
	concat := concatColumns(encT, encTP, sensorT)
	pred, cacheP := n.predictor.forward(concat)

	loss := predictionLoss(pred, sensorTP)

	batch, dim := pred.Dims()
	dPred := mat.NewDense(batch, dim, nil)
	scale := 2.0 / float64(batch)
	for i := 0; i < batch; i++ {
		p := pred.RawRowView(i)
		y := sensorTP.RawRowView(i)
		d := dPred.RawRowView(i)
		for j := 0; j < dim; j++ {
			d[j] = scale * (p[j] - y[j])
		}
	}

	grads := &Gradients{
		Encoder:   NewStackGrads(n.encoder),
		Predictor: NewStackGrads(n.predictor),
	}

	dConcat := n.predictor.backward(cacheP, dPred, grads.Predictor)

	dimEnc := n.cfg.DimEnc
	dEncT := mat.DenseCopyOf(dConcat.Slice(0, batch, 0, dimEnc))
	dEncTP := mat.DenseCopyOf(dConcat.Slice(0, batch, dimEnc, 2*dimEnc))

	// Both branches reference the same parameter set, so their gradients
	// accumulate into the one encoder buffer.
	n.encoder.backward(cacheT, dEncT, grads.Encoder)
	n.encoder.backward(cacheTP, dEncTP, grads.Encoder)

	return loss, grads
}

// Params exposes the raw parameter storage for in-place optimizer updates,
// encoder first.
func (n *Network) Params() [][]float64 {
	return append(n.encoder.paramSlices(), n.predictor.paramSlices()...)
}

// Slices returns gradient storage aligned with Network.Params.
func (g *Gradients) Slices() [][]float64 {
	return append(g.Encoder.slices(), g.Predictor.slices()...)
}

// Checkpoint captures the trainable parameters.
func (n *Network) Checkpoint() model.Checkpoint {
	return model.Checkpoint{
		Encoder:   n.encoder.state(),
		Predictor: n.predictor.state(),
	}
}

// Restore loads parameters from a checkpoint into a network of matching
// architecture.
func (n *Network) Restore(cp model.Checkpoint) error {
	if err := n.encoder.restore(cp.Encoder); err != nil {
		return fmt.Errorf("restore encoder: %w", err)
	}
	if err := n.predictor.restore(cp.Predictor); err != nil {
		return fmt.Errorf("restore predictor: %w", err)
	}
	return nil
}

func predictionLoss(pred, target *mat.Dense) float64 {
	batch, dim := pred.Dims()
	total := 0.0
	for i := 0; i < batch; i++ {
		p := pred.RawRowView(i)
		y := target.RawRowView(i)
		for j := 0; j < dim; j++ {
			d := p[j] - y[j]
			total += d * d
		}
	}
	return total / float64(batch)
}

func concatColumns(parts ...*mat.Dense) *mat.Dense {
	rows, _ := parts[0].Dims()
	cols := 0
	for _, p := range parts {
		_, c := p.Dims()
		cols += c
	}
	out := mat.NewDense(rows, cols, nil)
	offset := 0
	for _, p := range parts {
		_, c := p.Dims()
		for i := 0; i < rows; i++ {
			copy(out.RawRowView(i)[offset:offset+c], p.RawRowView(i))
		}
		offset += c
	}
	return out
}
