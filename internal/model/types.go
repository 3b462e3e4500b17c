package model

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Dataset holds sensorimotor transitions plus the disjoint evaluation grid.
// All transition matrices share the leading sample count; the grid has its
// own row count. The data generator guarantees the arrays are free of NaN
// values; that contract is not re-checked here.
type Dataset struct {
	MotorT    *mat.Dense
	MotorTP   *mat.Dense
	SensorT   *mat.Dense
	SensorTP  *mat.Dense
	GridMotor *mat.Dense
	GridPos   *mat.Dense
}

// Transitions returns the number of sensorimotor transitions.
func (d *Dataset) Transitions() int {
	if d.MotorT == nil {
		return 0
	}
	r, _ := d.MotorT.Dims()
	return r
}

// GridPoints returns the number of evaluation grid points.
func (d *Dataset) GridPoints() int {
	if d.GridMotor == nil {
		return 0
	}
	r, _ := d.GridMotor.Dims()
	return r
}

// DimMotor returns the motor configuration dimensionality.
func (d *Dataset) DimMotor() int {
	if d.MotorT == nil {
		return 0
	}
	_, c := d.MotorT.Dims()
	return c
}

// DimSensor returns the sensory input dimensionality.
func (d *Dataset) DimSensor() int {
	if d.SensorT == nil {
		return 0
	}
	_, c := d.SensorT.Dims()
	return c
}

// Validate checks the shape invariants shared by all dataset consumers.
func (d *Dataset) Validate() error {
	if d == nil {
		return errors.New("dataset is required")
	}
	for name, m := range map[string]*mat.Dense{
		"motor_t":    d.MotorT,
		"motor_tp":   d.MotorTP,
		"sensor_t":   d.SensorT,
		"sensor_tp":  d.SensorTP,
		"grid_motor": d.GridMotor,
		"grid_pos":   d.GridPos,
	} {
		if m == nil {
			return fmt.Errorf("dataset array %s is required", name)
		}
	}

	n, dimMotor := d.MotorT.Dims()
	if n == 0 {
		return errors.New("dataset has no transitions")
	}
	if r, c := d.MotorTP.Dims(); r != n || c != dimMotor {
		return fmt.Errorf("motor_tp shape (%d,%d) does not match motor_t (%d,%d)", r, c, n, dimMotor)
	}
	sn, dimSensor := d.SensorT.Dims()
	if sn != n {
		return fmt.Errorf("sensor_t has %d rows, expected %d", sn, n)
	}
	if r, c := d.SensorTP.Dims(); r != n || c != dimSensor {
		return fmt.Errorf("sensor_tp shape (%d,%d) does not match sensor_t (%d,%d)", r, c, n, dimSensor)
	}

	g, gc := d.GridMotor.Dims()
	if g == 0 {
		return errors.New("evaluation grid has no points")
	}
	if gc != dimMotor {
		return fmt.Errorf("grid_motor has %d columns, expected %d", gc, dimMotor)
	}
	if r, c := d.GridPos.Dims(); r != g || c != 2 {
		return fmt.Errorf("grid_pos shape (%d,%d), expected (%d,2)", r, c, g)
	}
	return nil
}

// Hyperparameters is the human-readable record persisted next to the
// checkpoint. Only primitive and list-of-primitive fields belong here.
type Hyperparameters struct {
	VersionedRecord
	Type            string  `json:"type"`
	DimMotor        int     `json:"dim_motor"`
	DimSensor       int     `json:"dim_sensor"`
	DimEnc          int     `json:"dim_enc"`
	EncoderLayers   []int   `json:"encoding_layers_size"`
	PredictorLayers []int   `json:"predictive_layers_size"`
	Activation      string  `json:"activation"`
	InitialRate     float64 `json:"initial_learning_rate"`
	FinalRate       float64 `json:"final_learning_rate"`
	DecayHorizon    int64   `json:"decay_horizon"`
	DecayPower      float64 `json:"decay_power"`
	BatchSize       int     `json:"batch_size"`
	ModelDir        string  `json:"model_destination"`
}

// LayerState is the serialized form of one fully connected layer.
type LayerState struct {
	In         int       `json:"in"`
	Out        int       `json:"out"`
	Weights    []float64 `json:"weights"`
	Biases     []float64 `json:"biases"`
	Activation string    `json:"activation,omitempty"`
}

// Checkpoint holds the trainable parameters of the encoder and predictor
// stacks. Optimizer and schedule state are deliberately excluded.
type Checkpoint struct {
	VersionedRecord
	RunID     string       `json:"run_id,omitempty"`
	Encoder   []LayerState `json:"encoder"`
	Predictor []LayerState `json:"predictor"`
}

// TelemetryPoint is one entry of the append-only scalar time series.
type TelemetryPoint struct {
	Step             int64   `json:"step"`
	Loss             float64 `json:"loss"`
	MetricError      float64 `json:"metric_error"`
	TopologyErrorInP float64 `json:"topology_error_in_P"`
	TopologyErrorInH float64 `json:"topology_error_in_H"`
	LearningRate     float64 `json:"learning_rate"`
}

// Snapshot is the single-file export polled by the external display process.
type Snapshot struct {
	VersionedRecord
	Step               int64       `json:"epoch"`
	Loss               float64     `json:"loss"`
	Motor              [][]float64 `json:"motor"`
	GTPos              [][]float64 `json:"gt_pos"`
	EncodedMotor       [][]float64 `json:"encoded_motor"`
	ProjectedEncoding  [][]float64 `json:"projected_encoding"`
	MetricError        float64     `json:"metric_error"`
	TopologyErrorInP   float64     `json:"topo_error_in_P"`
	TopologyErrorInH   float64     `json:"topo_error_in_H"`
	GTSensation        [][]float64 `json:"gt_sensation"`
	PredictedSensation [][]float64 `json:"predicted_sensation"`
}

// MatrixRows copies a matrix into the row-slice form used by the snapshot.
func MatrixRows(m mat.Matrix) [][]float64 {
	if m == nil {
		return nil
	}
	r, c := m.Dims()
	out := make([][]float64, r)
	for i := 0; i < r; i++ {
		row := make([]float64, c)
		for j := 0; j < c; j++ {
			row[j] = m.At(i, j)
		}
		out[i] = row
	}
	return out
}

// RowsMatrix builds a dense matrix from row slices, validating rectangularity.
func RowsMatrix(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 {
		return nil, errors.New("empty matrix")
	}
	c := len(rows[0])
	if c == 0 {
		return nil, errors.New("matrix rows must not be empty")
	}
	data := make([]float64, 0, len(rows)*c)
	for i, row := range rows {
		if len(row) != c {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", i, len(row), c)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), c, data), nil
}
