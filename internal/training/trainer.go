package training

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	"sensorimotor/internal/model"
	"sensorimotor/internal/nn"
)

// DefaultEvalEvery is the number of optimizer steps between evaluations.
const DefaultEvalEvery = 1000

var (
	ErrAlreadyRunning = errors.New("training run already in progress")
	ErrDiverged       = errors.New("loss is not a finite number")
)

// State of the trainer's two-state machine.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

// EvalResult is what one evaluation pass produces.
type EvalResult struct {
	Loss             float64
	MetricError      float64
	TopologyErrorInP float64
	TopologyErrorInH float64
}

// Tracker is invoked at every evaluation boundary. TrackProgress computes
// the geometric diagnostics and telemetry loss; persistence failures inside
// it are reported, not returned. SaveNetwork checkpoints the parameters.
type Tracker interface {
	TrackProgress(ctx context.Context, net *nn.Network, data *model.Dataset, step int64, learningRate float64) (EvalResult, error)
	SaveNetwork(ctx context.Context, net *nn.Network) error
}

// Config assembles a training run.
type Config struct {
	Network   *nn.Network
	BatchSize int
	Schedule  PolynomialDecay
	Rand      *rand.Rand
	Tracker   Tracker

	// EvalEvery defaults to DefaultEvalEvery when zero.
	EvalEvery int64

	// Progress receives human-readable evaluation lines; defaults to discard.
	Progress io.Writer
	// Warnings receives non-fatal persistence notices; defaults to discard.
	Warnings io.Writer
}

// Summary reports a finished run.
type Summary struct {
	Steps       int64
	InitialEval EvalResult
	FinalEval   EvalResult
	FinalLoss   float64
}

// Trainer owns the training state machine. All parameter mutation happens
// through its optimizer steps.
type Trainer struct {
	cfg Config

	mu    sync.Mutex
	state State
	step  int64
}

func New(cfg Config) (*Trainer, error) {
	if cfg.Network == nil {
		return nil, errors.New("network is required")
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be > 0, got %d", cfg.BatchSize)
	}
	if cfg.Rand == nil {
		return nil, errors.New("random source is required")
	}
	if cfg.Tracker == nil {
		return nil, errors.New("tracker is required")
	}
	if cfg.EvalEvery <= 0 {
		cfg.EvalEvery = DefaultEvalEvery
	}
	if cfg.Progress == nil {
		cfg.Progress = io.Discard
	}
	if cfg.Warnings == nil {
		cfg.Warnings = io.Discard
	}
	return &Trainer{cfg: cfg, state: StateIdle}, nil
}

// State reports the current state of the run state machine.
func (t *Trainer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Step reports the global step counter.
func (t *Trainer) Step() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.step
}

// FullTrain runs optimizer steps until the global step counter reaches
// nEpochs, evaluating and checkpointing every EvalEvery steps. The run
// session is released before returning on every path.
func (t *Trainer) FullTrain(ctx context.Context, nEpochs int64, data *model.Dataset) (Summary, error) {
	if err := data.Validate(); err != nil {
		return Summary{}, err
	}

	t.mu.Lock()
	if t.state == StateRunning {
		t.mu.Unlock()
		return Summary{}, ErrAlreadyRunning
	}
	t.state = StateRunning
	t.step = 0
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.state = StateIdle
		t.mu.Unlock()
	}()

	optimizer := NewAdam()
	start := time.Now()

	initial, err := t.evaluate(ctx, data)
	if err != nil {
		return Summary{}, err
	}
	fmt.Fprintf(t.cfg.Progress, "epoch: %6d, loss: _, metric error: %.2e, topo error in P: %.2e, topo error in H: %.2e - (%.2f sec)\n",
		0, initial.MetricError, initial.TopologyErrorInP, initial.TopologyErrorInH, time.Since(start).Seconds())

	summary := Summary{InitialEval: initial}

	for t.Step() < nEpochs {
		cycle := t.cfg.EvalEvery
		if remaining := nEpochs - t.Step(); remaining < cycle {
			cycle = remaining
		}
		loss, err := t.trainCycle(data, cycle, optimizer)
		if err != nil {
			return summary, err
		}
		summary.FinalLoss = loss

		eval, err := t.evaluate(ctx, data)
		if err != nil {
			return summary, err
		}
		if err := t.cfg.Tracker.SaveNetwork(ctx, t.cfg.Network); err != nil {
			fmt.Fprintf(t.cfg.Warnings, "WARNING: saving the network failed: %v\n", err)
		}

		fmt.Fprintf(t.cfg.Progress, "epoch: %6d, loss: %.2e, metric error: %.2e, topo error in P: %.2e, topo error in H: %.2e - (%.2f sec)\n",
			t.Step(), loss, eval.MetricError, eval.TopologyErrorInP, eval.TopologyErrorInH, time.Since(start).Seconds())

		// A non-finite loss is fatal, detected here at the checkpoint
		// boundary rather than mid-cycle.
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return summary, fmt.Errorf("%w at step %d", ErrDiverged, t.Step())
		}
	}

	final, err := t.evaluate(ctx, data)
	if err != nil {
		return summary, err
	}
	summary.FinalEval = final
	summary.Steps = t.Step()
	return summary, nil
}

// TrainSteps runs a single burst of n optimizer steps on minibatches drawn
// with replacement and returns the loss of the last step. Each call takes
// the run session like FullTrain does and starts a fresh optimizer, so
// moment estimates do not carry over between bursts.
func (t *Trainer) TrainSteps(data *model.Dataset, n int64) (float64, error) {
	if err := data.Validate(); err != nil {
		return 0, err
	}

	t.mu.Lock()
	if t.state == StateRunning {
		t.mu.Unlock()
		return 0, ErrAlreadyRunning
	}
	t.state = StateRunning
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.state = StateIdle
		t.mu.Unlock()
	}()

	return t.trainCycle(data, n, NewAdam())
}

func (t *Trainer) trainCycle(data *model.Dataset, n int64, optimizer *Adam) (float64, error) {
	loss := math.NaN()
	for i := int64(0); i < n; i++ {
		motorT, motorTP, sensorT, sensorTP := Minibatch(data, t.cfg.BatchSize, t.cfg.Rand)
		currentLoss, grads := t.cfg.Network.LossAndGradients(motorT, motorTP, sensorT, sensorTP)

		rate := t.cfg.Schedule.Rate(t.Step())
		if err := optimizer.Step(t.cfg.Network.Params(), grads.Slices(), rate); err != nil {
			return loss, fmt.Errorf("optimizer step: %w", err)
		}

		t.mu.Lock()
		t.step++
		t.mu.Unlock()
		loss = currentLoss
	}
	return loss, nil
}

func (t *Trainer) evaluate(ctx context.Context, data *model.Dataset) (EvalResult, error) {
	step := t.Step()
	rate := t.cfg.Schedule.Rate(step)
	result, err := t.cfg.Tracker.TrackProgress(ctx, t.cfg.Network, data, step, rate)
	if err != nil {
		return EvalResult{}, fmt.Errorf("track progress at step %d: %w", step, err)
	}
	return result, nil
}

// Minibatch draws batchSize transitions with replacement. Sampling with
// replacement is a deliberate trade-off: without replacement is markedly
// slower at this batch scale.
func Minibatch(data *model.Dataset, batchSize int, rng *rand.Rand) (motorT, motorTP, sensorT, sensorTP *mat.Dense) {
	n := data.Transitions()
	indexes := make([]int, batchSize)
	for i := range indexes {
		indexes[i] = rng.Intn(n)
	}
	return selectRows(data.MotorT, indexes),
		selectRows(data.MotorTP, indexes),
		selectRows(data.SensorT, indexes),
		selectRows(data.SensorTP, indexes)
}

func selectRows(src *mat.Dense, indexes []int) *mat.Dense {
	_, cols := src.Dims()
	out := mat.NewDense(len(indexes), cols, nil)
	for i, idx := range indexes {
		copy(out.RawRowView(i), src.RawRowView(idx))
	}
	return out
}
