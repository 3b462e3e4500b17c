package stats

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"

	"sensorimotor/internal/diagnostics"
	"sensorimotor/internal/model"
	"sensorimotor/internal/nn"
	"sensorimotor/internal/storage"
	"sensorimotor/internal/training"
)

// Tracker evaluates the network on the grid, records telemetry, exports the
// display snapshot, and checkpoints parameters. Telemetry and snapshot
// failures are reported on Warnings and never interrupt training; only a
// failure of the diagnostics themselves is returned.
type Tracker struct {
	Store     storage.Store
	RunID     string
	ModelDir  string
	BatchSize int
	Rand      *rand.Rand

	// Warnings defaults to stderr.
	Warnings io.Writer
}

func (tr *Tracker) warnings() io.Writer {
	if tr.Warnings != nil {
		return tr.Warnings
	}
	return os.Stderr
}

// TrackProgress implements training.Tracker.
func (tr *Tracker) TrackProgress(ctx context.Context, net *nn.Network, data *model.Dataset, step int64, learningRate float64) (training.EvalResult, error) {
	embedding := net.Encode(data.GridMotor)

	diag, err := diagnostics.Evaluate(data.GridPos, embedding)
	if err != nil {
		return training.EvalResult{}, err
	}

	// The telemetry loss comes from a fresh random minibatch, independent
	// of the training step that triggered this evaluation.
	motorT, motorTP, sensorT, sensorTP := training.Minibatch(data, tr.BatchSize, tr.Rand)
	loss, predicted := net.Loss(motorT, motorTP, sensorT, sensorTP)

	point := model.TelemetryPoint{
		Step:             step,
		Loss:             loss,
		MetricError:      diag.MetricError,
		TopologyErrorInP: diag.TopologyErrorInP,
		TopologyErrorInH: diag.TopologyErrorInH,
		LearningRate:     learningRate,
	}
	if err := tr.Store.AppendTelemetry(ctx, tr.RunID, point); err != nil {
		fmt.Fprintf(tr.warnings(), "WARNING: appending telemetry at step %d failed: %v\n", step, err)
	}

	snapshot := model.Snapshot{
		Step:               step,
		Loss:               loss,
		Motor:              model.MatrixRows(data.GridMotor),
		GTPos:              model.MatrixRows(data.GridPos),
		EncodedMotor:       model.MatrixRows(embedding),
		ProjectedEncoding:  model.MatrixRows(diag.FittedP),
		MetricError:        diag.MetricError,
		TopologyErrorInP:   diag.TopologyErrorInP,
		TopologyErrorInH:   diag.TopologyErrorInH,
		GTSensation:        model.MatrixRows(sensorTP),
		PredictedSensation: model.MatrixRows(predicted),
	}
	if err := WriteSnapshot(tr.ModelDir, snapshot); err != nil {
		fmt.Fprintf(tr.warnings(), "WARNING: writing the display snapshot failed: %v\n", err)
	}

	return training.EvalResult{
		Loss:             loss,
		MetricError:      diag.MetricError,
		TopologyErrorInP: diag.TopologyErrorInP,
		TopologyErrorInH: diag.TopologyErrorInH,
	}, nil
}

// SaveNetwork implements training.Tracker by overwriting the checkpoint
// blob at its fixed location.
func (tr *Tracker) SaveNetwork(_ context.Context, net *nn.Network) error {
	cp := net.Checkpoint()
	cp.RunID = tr.RunID
	return WriteCheckpoint(tr.ModelDir, cp)
}
