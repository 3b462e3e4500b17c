package storage

import (
	"encoding/json"
	"errors"

	"sensorimotor/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// EncodeCheckpoint serializes the parameter blob, stamping the current
// schema and codec versions.
func EncodeCheckpoint(cp model.Checkpoint) ([]byte, error) {
	cp.SchemaVersion = CurrentSchemaVersion
	cp.CodecVersion = CurrentCodecVersion
	return json.Marshal(cp)
}

func DecodeCheckpoint(data []byte) (model.Checkpoint, error) {
	var cp model.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return model.Checkpoint{}, err
	}
	if err := checkVersion(cp.VersionedRecord); err != nil {
		return model.Checkpoint{}, err
	}
	return cp, nil
}

func EncodeSnapshot(s model.Snapshot) ([]byte, error) {
	s.SchemaVersion = CurrentSchemaVersion
	s.CodecVersion = CurrentCodecVersion
	return json.Marshal(s)
}

func DecodeSnapshot(data []byte) (model.Snapshot, error) {
	var snapshot model.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return model.Snapshot{}, err
	}
	if err := checkVersion(snapshot.VersionedRecord); err != nil {
		return model.Snapshot{}, err
	}
	return snapshot, nil
}

func EncodeHyperparameters(hp model.Hyperparameters) ([]byte, error) {
	hp.SchemaVersion = CurrentSchemaVersion
	hp.CodecVersion = CurrentCodecVersion
	return json.MarshalIndent(hp, "", "  ")
}

func DecodeHyperparameters(data []byte) (model.Hyperparameters, error) {
	var hp model.Hyperparameters
	if err := json.Unmarshal(data, &hp); err != nil {
		return model.Hyperparameters{}, err
	}
	if err := checkVersion(hp.VersionedRecord); err != nil {
		return model.Hyperparameters{}, err
	}
	return hp, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
