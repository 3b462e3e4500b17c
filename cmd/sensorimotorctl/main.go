package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"sensorimotor/internal/storage"
	smapi "sensorimotor/pkg/sensorimotor"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "train":
		return runTrain(ctx, args[1:])
	case "telemetry":
		return runTelemetry(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "hyperparams":
		return runHyperparams(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runTrain(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	dataPath := fs.String("data", "", "path to a transition dataset JSON file")
	synthetic := fs.Int("synthetic", 0, "generate a synthetic dataset with this many transitions instead of loading one")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "sensorimotor.db", "sqlite database path")
	modelDir := fs.String("model-dir", "model/trained", "directory for checkpoints and snapshots")
	epochs := fs.Int64("epochs", 100000, "number of optimizer steps")
	batchSize := fs.Int("batch-size", 100, "minibatch size")
	dimEnc := fs.Int("dim-enc", 3, "motor embedding dimension")
	activation := fs.String("activation", "selu", "activation function: selu|relu")
	initialRate := fs.Float64("lr-initial", 1e-3, "initial learning rate")
	finalRate := fs.Float64("lr-final", 1e-5, "final learning rate")
	decayHorizon := fs.Int64("lr-horizon", 8e4, "learning rate decay horizon in steps")
	decayPower := fs.Float64("lr-power", 1, "learning rate decay power")
	seed := fs.Int64("seed", 0, "random seed")
	display := fs.Bool("display", false, "launch the external display process")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if (*dataPath == "") == (*synthetic == 0) {
		return errors.New("use exactly one of -data or -synthetic")
	}

	data, err := loadOrGenerateDataset(*dataPath, *synthetic, *seed)
	if err != nil {
		return err
	}

	client, err := smapi.New(smapi.Options{StoreKind: *storeKind, DBPath: *dbPath, ModelDir: *modelDir})
	if err != nil {
		return err
	}
	defer client.Close()

	summary, err := client.Train(ctx, smapi.TrainRequest{
		Data:         data,
		Epochs:       *epochs,
		BatchSize:    *batchSize,
		DimEnc:       *dimEnc,
		Activation:   *activation,
		InitialRate:  *initialRate,
		FinalRate:    *finalRate,
		DecayHorizon: *decayHorizon,
		DecayPower:   *decayPower,
		Seed:         *seed,
		Display:      *display,
	})
	if err != nil {
		return err
	}

	fmt.Printf("run %s finished after %d steps\n", summary.RunID, summary.Steps)
	fmt.Printf("loss: %.6e (initial %.6e)\n", summary.FinalLoss, summary.InitialLoss)
	fmt.Printf("metric error: %.6e, topo error in P: %.6e, topo error in H: %.6e\n",
		summary.MetricError, summary.TopologyErrorInP, summary.TopologyErrorInH)
	fmt.Printf("artifacts: %s\n", summary.ModelDir)
	return nil
}

func runTelemetry(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("telemetry", flag.ContinueOnError)
	runID := fs.String("run", "", "run identifier")
	limit := fs.Int("limit", 0, "maximum number of points (0 for all)")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "sensorimotor.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return errors.New("run identifier is required")
	}

	client, err := smapi.New(smapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer client.Close()

	points, err := client.Telemetry(ctx, smapi.TelemetryRequest{RunID: *runID, Limit: *limit})
	if err != nil {
		return err
	}
	fmt.Printf("%8s %14s %14s %14s %14s %12s\n", "step", "loss", "metric_err", "topo_err_P", "topo_err_H", "lr")
	for _, p := range points {
		fmt.Printf("%8d %14.6e %14.6e %14.6e %14.6e %12.6e\n",
			p.Step, p.Loss, p.MetricError, p.TopologyErrorInP, p.TopologyErrorInH, p.LearningRate)
	}
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "sensorimotor.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := smapi.New(smapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer client.Close()

	runs, err := client.Runs(ctx)
	if err != nil {
		return err
	}
	for _, id := range runs {
		fmt.Println(id)
	}
	return nil
}

func runHyperparams(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("hyperparams", flag.ContinueOnError)
	modelDir := fs.String("model-dir", "model/trained", "directory for checkpoints and snapshots")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := smapi.New(smapi.Options{ModelDir: *modelDir, StoreKind: "memory"})
	if err != nil {
		return err
	}
	defer client.Close()

	hp, err := client.Hyperparameters(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("type: %s\n", hp.Type)
	fmt.Printf("dim_motor: %d, dim_sensor: %d, dim_enc: %d\n", hp.DimMotor, hp.DimSensor, hp.DimEnc)
	fmt.Printf("encoder layers: %v, predictor layers: %v\n", hp.EncoderLayers, hp.PredictorLayers)
	fmt.Printf("activation: %s, batch size: %d\n", hp.Activation, hp.BatchSize)
	fmt.Printf("learning rate: %g -> %g over %d steps (power %g)\n", hp.InitialRate, hp.FinalRate, hp.DecayHorizon, hp.DecayPower)
	return nil
}

func usageError(message string) error {
	return fmt.Errorf("%s\nusage: sensorimotorctl <train|telemetry|runs|hyperparams> [flags]", message)
}
