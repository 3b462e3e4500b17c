package stats

import (
	"fmt"
	"os"
	"path/filepath"

	"sensorimotor/internal/model"
	"sensorimotor/internal/storage"
)

// Fixed sub-paths of the model directory. The snapshot path is the contract
// with the external display process; the checkpoint path is overwritten on
// every save with no history retained.
const (
	snapshotDirName     = "display_progress"
	snapshotFileName    = "display_data.json"
	checkpointDirName   = "model"
	checkpointFileName  = "checkpoint.json"
	hyperparamsFileName = "network_params.json"
)

// SnapshotPath returns the well-known snapshot location under modelDir.
func SnapshotPath(modelDir string) string {
	return filepath.Join(modelDir, snapshotDirName, snapshotFileName)
}

// CheckpointPath returns the fixed checkpoint location under modelDir.
func CheckpointPath(modelDir string) string {
	return filepath.Join(modelDir, checkpointDirName, checkpointFileName)
}

// HyperparametersPath returns the hyper-parameter record location.
func HyperparametersPath(modelDir string) string {
	return filepath.Join(modelDir, hyperparamsFileName)
}

// WriteSnapshot overwrites the single snapshot file polled by the display
// process. The write goes through a temporary file and rename so a polling
// reader never observes a partial record.
func WriteSnapshot(modelDir string, snapshot model.Snapshot) error {
	payload, err := storage.EncodeSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return overwriteFile(SnapshotPath(modelDir), payload)
}

// ReadSnapshot loads the current snapshot, reporting whether one exists.
func ReadSnapshot(modelDir string) (model.Snapshot, bool, error) {
	payload, err := os.ReadFile(SnapshotPath(modelDir))
	if err != nil {
		if os.IsNotExist(err) {
			return model.Snapshot{}, false, nil
		}
		return model.Snapshot{}, false, err
	}
	snapshot, err := storage.DecodeSnapshot(payload)
	if err != nil {
		return model.Snapshot{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return snapshot, true, nil
}

// WriteCheckpoint overwrites the versioned parameter blob.
func WriteCheckpoint(modelDir string, cp model.Checkpoint) error {
	payload, err := storage.EncodeCheckpoint(cp)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	return overwriteFile(CheckpointPath(modelDir), payload)
}

// ReadCheckpoint loads the checkpoint blob, reporting whether one exists.
func ReadCheckpoint(modelDir string) (model.Checkpoint, bool, error) {
	payload, err := os.ReadFile(CheckpointPath(modelDir))
	if err != nil {
		if os.IsNotExist(err) {
			return model.Checkpoint{}, false, nil
		}
		return model.Checkpoint{}, false, err
	}
	cp, err := storage.DecodeCheckpoint(payload)
	if err != nil {
		return model.Checkpoint{}, false, fmt.Errorf("decode checkpoint: %w", err)
	}
	return cp, true, nil
}

// WriteHyperparameters writes the human-readable hyper-parameter record.
// Callers treat a failure as best-effort: report it and keep training.
func WriteHyperparameters(modelDir string, hp model.Hyperparameters) error {
	payload, err := storage.EncodeHyperparameters(hp)
	if err != nil {
		return fmt.Errorf("encode hyperparameters: %w", err)
	}
	return overwriteFile(HyperparametersPath(modelDir), payload)
}

// ReadHyperparameters loads the record, reporting whether one exists.
func ReadHyperparameters(modelDir string) (model.Hyperparameters, bool, error) {
	payload, err := os.ReadFile(HyperparametersPath(modelDir))
	if err != nil {
		if os.IsNotExist(err) {
			return model.Hyperparameters{}, false, nil
		}
		return model.Hyperparameters{}, false, err
	}
	hp, err := storage.DecodeHyperparameters(payload)
	if err != nil {
		return model.Hyperparameters{}, false, fmt.Errorf("decode hyperparameters: %w", err)
	}
	return hp, true, nil
}

func overwriteFile(path string, payload []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}
