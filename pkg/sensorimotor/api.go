package sensorimotor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"

	"github.com/google/uuid"

	"sensorimotor/internal/model"
	"sensorimotor/internal/nn"
	"sensorimotor/internal/platform"
	"sensorimotor/internal/stats"
	"sensorimotor/internal/storage"
	"sensorimotor/internal/training"
)

const (
	defaultDBPath   = "sensorimotor.db"
	defaultModelDir = "model/trained"
)

// Defaults of the reference architecture.
var (
	defaultEncoderLayers   = []int{150, 100, 50}
	defaultPredictorLayers = []int{200, 150, 100}
)

const (
	defaultDimEnc       = 3
	defaultBatchSize    = 100
	defaultEpochs       = int64(100000)
	defaultInitialRate  = 1e-3
	defaultFinalRate    = 1e-5
	defaultDecayHorizon = int64(8e4)
	defaultDecayPower   = 1.0
)

type Options struct {
	StoreKind string
	DBPath    string
	ModelDir  string
}

type Client struct {
	store    storage.Store
	modelDir string
}

type TrainRequest struct {
	Data            *model.Dataset
	Epochs          int64
	BatchSize       int
	DimEnc          int
	EncoderLayers   []int
	PredictorLayers []int
	Activation      string
	InitialRate     float64
	FinalRate       float64
	DecayHorizon    int64
	DecayPower      float64
	Seed            int64
	Display         bool
	Quiet           bool
}

type TrainSummary struct {
	RunID            string
	Steps            int64
	InitialLoss      float64
	FinalLoss        float64
	MetricError      float64
	TopologyErrorInP float64
	TopologyErrorInH float64
	ModelDir         string
}

type TelemetryRequest struct {
	RunID string
	Limit int
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	modelDir := opts.ModelDir
	if modelDir == "" {
		modelDir = defaultModelDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	return &Client{store: store, modelDir: modelDir}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

// Train runs a full training session on the supplied transition dataset and
// returns the final diagnostics.
func (c *Client) Train(ctx context.Context, req TrainRequest) (TrainSummary, error) {
	if req.Data == nil {
		return TrainSummary{}, errors.New("a transition dataset is required")
	}
	if err := req.Data.Validate(); err != nil {
		return TrainSummary{}, err
	}
	if req.Epochs <= 0 {
		req.Epochs = defaultEpochs
	}
	if req.BatchSize <= 0 {
		req.BatchSize = defaultBatchSize
	}
	if req.DimEnc <= 0 {
		req.DimEnc = defaultDimEnc
	}
	if len(req.EncoderLayers) == 0 {
		req.EncoderLayers = defaultEncoderLayers
	}
	if len(req.PredictorLayers) == 0 {
		req.PredictorLayers = defaultPredictorLayers
	}
	if req.Activation == "" {
		req.Activation = nn.DefaultActivation
	}
	if req.InitialRate <= 0 {
		req.InitialRate = defaultInitialRate
	}
	if req.FinalRate <= 0 {
		req.FinalRate = defaultFinalRate
	}
	if req.DecayHorizon <= 0 {
		req.DecayHorizon = defaultDecayHorizon
	}
	if req.DecayPower <= 0 {
		req.DecayPower = defaultDecayPower
	}

	if err := c.store.Init(ctx); err != nil {
		return TrainSummary{}, fmt.Errorf("init store: %w", err)
	}

	rng := rand.New(rand.NewSource(req.Seed))
	runID := uuid.NewString()

	net, err := nn.NewNetwork(nn.Config{
		DimMotor:        req.Data.DimMotor(),
		DimSensor:       req.Data.DimSensor(),
		DimEnc:          req.DimEnc,
		EncoderLayers:   req.EncoderLayers,
		PredictorLayers: req.PredictorLayers,
		Activation:      req.Activation,
		Rand:            rng,
	})
	if err != nil {
		return TrainSummary{}, err
	}

	tracker := &stats.Tracker{
		Store:     c.store,
		RunID:     runID,
		ModelDir:  c.modelDir,
		BatchSize: req.BatchSize,
		Rand:      rng,
	}

	var progress io.Writer = os.Stdout
	if req.Quiet {
		progress = io.Discard
	}
	trainer, err := training.New(training.Config{
		Network:   net,
		BatchSize: req.BatchSize,
		Schedule: training.PolynomialDecay{
			Initial: req.InitialRate,
			Final:   req.FinalRate,
			Horizon: req.DecayHorizon,
			Power:   req.DecayPower,
		},
		Rand:     rng,
		Tracker:  tracker,
		Progress: progress,
		Warnings: os.Stderr,
	})
	if err != nil {
		return TrainSummary{}, err
	}

	// The display process is optional and loosely coupled: a failed launch
	// is reported and skipped, and the process is killed when the run ends.
	if req.Display {
		display, err := platform.LaunchDisplay(stats.SnapshotPath(c.modelDir))
		if err != nil {
			fmt.Fprintf(os.Stderr, "WARNING: display process not started: %v\n", err)
		} else {
			defer display.Kill()
		}
	}

	result, err := trainer.FullTrain(ctx, req.Epochs, req.Data)
	if err != nil {
		return TrainSummary{}, err
	}

	hp := model.Hyperparameters{
		Type:            "SensorimotorPredictiveNetwork",
		DimMotor:        req.Data.DimMotor(),
		DimSensor:       req.Data.DimSensor(),
		DimEnc:          req.DimEnc,
		EncoderLayers:   req.EncoderLayers,
		PredictorLayers: req.PredictorLayers,
		Activation:      net.Activation(),
		InitialRate:     req.InitialRate,
		FinalRate:       req.FinalRate,
		DecayHorizon:    req.DecayHorizon,
		DecayPower:      req.DecayPower,
		BatchSize:       req.BatchSize,
		ModelDir:        c.modelDir,
	}
	if err := stats.WriteHyperparameters(c.modelDir, hp); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: saving the network parameters in %s failed: %v\n", c.modelDir, err)
	}

	return TrainSummary{
		RunID:            runID,
		Steps:            result.Steps,
		InitialLoss:      result.InitialEval.Loss,
		FinalLoss:        result.FinalEval.Loss,
		MetricError:      result.FinalEval.MetricError,
		TopologyErrorInP: result.FinalEval.TopologyErrorInP,
		TopologyErrorInH: result.FinalEval.TopologyErrorInH,
		ModelDir:         c.modelDir,
	}, nil
}

// Telemetry reads back the scalar time series of a run.
func (c *Client) Telemetry(ctx context.Context, req TelemetryRequest) ([]model.TelemetryPoint, error) {
	if req.RunID == "" {
		return nil, errors.New("run id is required")
	}
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	if err := c.store.Init(ctx); err != nil {
		return nil, err
	}

	points, ok, err := c.store.GetTelemetry(ctx, req.RunID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("telemetry not found for run id: %s", req.RunID)
	}
	if req.Limit > 0 && len(points) > req.Limit {
		points = points[:req.Limit]
	}
	return points, nil
}

// Runs lists the run identifiers present in the telemetry store.
func (c *Client) Runs(ctx context.Context) ([]string, error) {
	if err := c.store.Init(ctx); err != nil {
		return nil, err
	}
	return c.store.ListRuns(ctx)
}

// Hyperparameters reads the human-readable record written after training.
func (c *Client) Hyperparameters(_ context.Context) (model.Hyperparameters, error) {
	hp, ok, err := stats.ReadHyperparameters(c.modelDir)
	if err != nil {
		return model.Hyperparameters{}, err
	}
	if !ok {
		return model.Hyperparameters{}, fmt.Errorf("no hyper-parameter record in %s", c.modelDir)
	}
	return hp, nil
}

// LoadNetwork rebuilds a network from the hyper-parameter record and the
// checkpoint blob. Predictions of the restored network are bit-identical to
// the checkpointed one.
func (c *Client) LoadNetwork(_ context.Context) (*nn.Network, error) {
	hp, ok, err := stats.ReadHyperparameters(c.modelDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no hyper-parameter record in %s", c.modelDir)
	}
	cp, ok, err := stats.ReadCheckpoint(c.modelDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no checkpoint in %s", c.modelDir)
	}

	net, err := nn.NewNetwork(nn.Config{
		DimMotor:        hp.DimMotor,
		DimSensor:       hp.DimSensor,
		DimEnc:          hp.DimEnc,
		EncoderLayers:   hp.EncoderLayers,
		PredictorLayers: hp.PredictorLayers,
		Activation:      hp.Activation,
		Rand:            rand.New(rand.NewSource(0)),
	})
	if err != nil {
		return nil, err
	}
	if err := net.Restore(cp); err != nil {
		return nil, err
	}
	return net, nil
}
