package nn

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"sensorimotor/internal/model"
)

// DenseLayer is one fully connected layer. Act is nil for the strictly
// linear output layer.
type DenseLayer struct {
	Weights *mat.Dense // in x out
	Biases  []float64  // out
	Act     *Activation
}

// DenseStack is an ordered sequence of fully connected layers; the first
// L-1 use the configured nonlinearity, the final layer has no activation so
// it can represent unbounded real-valued outputs.
type DenseStack struct {
	layers []*DenseLayer
}

// NewDenseStack builds a stack mapping inputDim inputs through the given
// layer widths. Weights use Glorot-uniform initialization from rng.
func NewDenseStack(inputDim int, widths []int, act Activation, rng *rand.Rand) (*DenseStack, error) {
	if inputDim <= 0 {
		return nil, fmt.Errorf("input dimension must be > 0, got %d", inputDim)
	}
	if len(widths) == 0 {
		return nil, fmt.Errorf("at least one layer width is required")
	}
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}

	layers := make([]*DenseLayer, 0, len(widths))
	in := inputDim
	for i, out := range widths {
		if out <= 0 {
			return nil, fmt.Errorf("layer %d width must be > 0, got %d", i, out)
		}
		layer := &DenseLayer{
			Weights: glorotUniform(in, out, rng),
			Biases:  make([]float64, out),
		}
		if i < len(widths)-1 {
			a := act
			layer.Act = &a
		}
		layers = append(layers, layer)
		in = out
	}
	return &DenseStack{layers: layers}, nil
}

func glorotUniform(in, out int, rng *rand.Rand) *mat.Dense {
	limit := math.Sqrt(6.0 / float64(in+out))
	data := make([]float64, in*out)
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * limit
	}
	return mat.NewDense(in, out, data)
}

// InputDim returns the expected number of input features.
func (s *DenseStack) InputDim() int {
	r, _ := s.layers[0].Weights.Dims()
	return r
}

// OutputDim returns the number of output features.
func (s *DenseStack) OutputDim() int {
	_, c := s.layers[len(s.layers)-1].Weights.Dims()
	return c
}

// Layers exposes the underlying layers; callers must not resize them.
func (s *DenseStack) Layers() []*DenseLayer {
	return s.layers
}

// stackCache records the per-layer inputs and pre-activations of one
// forward pass, for use by the matching backward pass.
type stackCache struct {
	inputs []*mat.Dense
	pre    []*mat.Dense
}

// Forward runs a batch (rows are samples) through the stack.
func (s *DenseStack) Forward(x *mat.Dense) *mat.Dense {
	out, _ := s.forward(x)
	return out
}

func (s *DenseStack) forward(x *mat.Dense) (*mat.Dense, *stackCache) {
	cache := &stackCache{
		inputs: make([]*mat.Dense, len(s.layers)),
		pre:    make([]*mat.Dense, len(s.layers)),
	}
	current := x
	for li, layer := range s.layers {
		cache.inputs[li] = current

		batch, _ := current.Dims()
		_, out := layer.Weights.Dims()
		pre := mat.NewDense(batch, out, nil)
		pre.Mul(current, layer.Weights)
		for i := 0; i < batch; i++ {
			row := pre.RawRowView(i)
			for j := 0; j < out; j++ {
				row[j] += layer.Biases[j]
			}
		}
		cache.pre[li] = pre

		if layer.Act == nil {
			current = pre
			continue
		}
		activated := mat.NewDense(batch, out, nil)
		for i := 0; i < batch; i++ {
			src := pre.RawRowView(i)
			dst := activated.RawRowView(i)
			for j := 0; j < out; j++ {
				dst[j] = layer.Act.Func(src[j])
			}
		}
		current = activated
	}
	return current, cache
}

// StackGrads accumulates parameter gradients for one stack. Accumulation
// (rather than assignment) is what lets a weight-sharing caller fold the
// gradients of several invocations into one parameter set.
type StackGrads struct {
	W []*mat.Dense
	B [][]float64
}

// NewStackGrads returns zeroed gradient buffers matching the stack shape.
func NewStackGrads(s *DenseStack) *StackGrads {
	g := &StackGrads{
		W: make([]*mat.Dense, len(s.layers)),
		B: make([][]float64, len(s.layers)),
	}
	for i, layer := range s.layers {
		r, c := layer.Weights.Dims()
		g.W[i] = mat.NewDense(r, c, nil)
		g.B[i] = make([]float64, c)
	}
	return g
}

// backward propagates dOut (gradient of the loss with respect to the stack
// output) through the stack, adding parameter gradients into grads and
// returning the gradient with respect to the stack input.
func (s *DenseStack) backward(cache *stackCache, dOut *mat.Dense, grads *StackGrads) *mat.Dense {
	current := dOut
	for li := len(s.layers) - 1; li >= 0; li-- {
		layer := s.layers[li]
		batch, out := current.Dims()

		dPre := current
		if layer.Act != nil {
			dPre = mat.NewDense(batch, out, nil)
			pre := cache.pre[li]
			for i := 0; i < batch; i++ {
				preRow := pre.RawRowView(i)
				srcRow := current.RawRowView(i)
				dstRow := dPre.RawRowView(i)
				for j := 0; j < out; j++ {
					dstRow[j] = srcRow[j] * layer.Act.Derivative(preRow[j])
				}
			}
		}

		input := cache.inputs[li]
		in, _ := layer.Weights.Dims()

		var dW mat.Dense
		dW.Mul(input.T(), dPre)
		grads.W[li].Add(grads.W[li], &dW)

		bias := grads.B[li]
		for i := 0; i < batch; i++ {
			row := dPre.RawRowView(i)
			for j := 0; j < out; j++ {
				bias[j] += row[j]
			}
		}

		dIn := mat.NewDense(batch, in, nil)
		dIn.Mul(dPre, layer.Weights.T())
		current = dIn
	}
	return current
}

// paramSlices returns the raw parameter storage, weights then biases per
// layer, for in-place optimizer updates.
func (s *DenseStack) paramSlices() [][]float64 {
	out := make([][]float64, 0, 2*len(s.layers))
	for _, layer := range s.layers {
		out = append(out, layer.Weights.RawMatrix().Data, layer.Biases)
	}
	return out
}

func (g *StackGrads) slices() [][]float64 {
	out := make([][]float64, 0, 2*len(g.W))
	for i := range g.W {
		out = append(out, g.W[i].RawMatrix().Data, g.B[i])
	}
	return out
}

func (s *DenseStack) state() []model.LayerState {
	out := make([]model.LayerState, 0, len(s.layers))
	for _, layer := range s.layers {
		r, c := layer.Weights.Dims()
		state := model.LayerState{
			In:      r,
			Out:     c,
			Weights: append([]float64(nil), layer.Weights.RawMatrix().Data...),
			Biases:  append([]float64(nil), layer.Biases...),
		}
		if layer.Act != nil {
			state.Activation = layer.Act.Name
		}
		out = append(out, state)
	}
	return out
}

func (s *DenseStack) restore(states []model.LayerState) error {
	if len(states) != len(s.layers) {
		return fmt.Errorf("checkpoint has %d layers, stack has %d", len(states), len(s.layers))
	}
	for i, state := range states {
		layer := s.layers[i]
		r, c := layer.Weights.Dims()
		if state.In != r || state.Out != c {
			return fmt.Errorf("layer %d checkpoint shape (%d,%d) does not match (%d,%d)", i, state.In, state.Out, r, c)
		}
		if len(state.Weights) != r*c || len(state.Biases) != c {
			return fmt.Errorf("layer %d checkpoint payload size mismatch", i)
		}
		copy(layer.Weights.RawMatrix().Data, state.Weights)
		copy(layer.Biases, state.Biases)
	}
	return nil
}
