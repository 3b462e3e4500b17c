package main

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"

	"sensorimotor/internal/model"
)

// datasetFile is the on-disk layout produced by the external data
// generator: row-major transition arrays plus the evaluation grid.
type datasetFile struct {
	MotorT    [][]float64 `json:"motor_t"`
	MotorTP   [][]float64 `json:"motor_tp"`
	SensorT   [][]float64 `json:"sensor_t"`
	SensorTP  [][]float64 `json:"sensor_tp"`
	GridMotor [][]float64 `json:"grid_motor"`
	GridPos   [][]float64 `json:"grid_pos"`
}

func loadOrGenerateDataset(path string, synthetic int, seed int64) (*model.Dataset, error) {
	if path != "" {
		return loadDataset(path)
	}
	return syntheticDataset(synthetic, seed), nil
}

func loadDataset(path string) (*model.Dataset, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file datasetFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return nil, fmt.Errorf("decode dataset %s: %w", path, err)
	}

	data := &model.Dataset{}
	if data.MotorT, err = model.RowsMatrix(file.MotorT); err != nil {
		return nil, fmt.Errorf("motor_t: %w", err)
	}
	if data.MotorTP, err = model.RowsMatrix(file.MotorTP); err != nil {
		return nil, fmt.Errorf("motor_tp: %w", err)
	}
	if data.SensorT, err = model.RowsMatrix(file.SensorT); err != nil {
		return nil, fmt.Errorf("sensor_t: %w", err)
	}
	if data.SensorTP, err = model.RowsMatrix(file.SensorTP); err != nil {
		return nil, fmt.Errorf("sensor_tp: %w", err)
	}
	if data.GridMotor, err = model.RowsMatrix(file.GridMotor); err != nil {
		return nil, fmt.Errorf("grid_motor: %w", err)
	}
	if data.GridPos, err = model.RowsMatrix(file.GridPos); err != nil {
		return nil, fmt.Errorf("grid_pos: %w", err)
	}
	if err := data.Validate(); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return data, nil
}

// syntheticDataset builds a smoke-test dataset: a 3-joint arm whose 2-D end
// position drives a smooth 4-D sensation. It stands in for the external
// generator during local runs.
func syntheticDataset(n int, seed int64) *model.Dataset {
	rng := rand.New(rand.NewSource(seed))

	const (
		dimMotor  = 3
		dimSensor = 4
		gridSide  = 8
	)

	position := func(motor []float64) (float64, float64) {
		x, y := 0.0, 0.0
		angle := 0.0
		for _, m := range motor {
			angle += m * math.Pi
			x += math.Cos(angle)
			y += math.Sin(angle)
		}
		return x, y
	}
	sensation := func(x, y float64) []float64 {
		return []float64{
			math.Sin(x) + math.Cos(y),
			math.Sin(2*x) * math.Cos(y),
			x * y / 9,
			math.Cos(x - y),
		}
	}

	sample := func() (motor []float64, sense []float64) {
		motor = make([]float64, dimMotor)
		for i := range motor {
			motor[i] = rng.Float64()*2 - 1
		}
		x, y := position(motor)
		return motor, sensation(x, y)
	}

	motorT := make([][]float64, n)
	motorTP := make([][]float64, n)
	sensorT := make([][]float64, n)
	sensorTP := make([][]float64, n)
	for i := 0; i < n; i++ {
		motorT[i], sensorT[i] = sample()
		motorTP[i], sensorTP[i] = sample()
	}

	gridMotor := make([][]float64, 0, gridSide*gridSide)
	gridPos := make([][]float64, 0, gridSide*gridSide)
	for i := 0; i < gridSide; i++ {
		for j := 0; j < gridSide; j++ {
			motor := []float64{
				-1 + 2*float64(i)/float64(gridSide-1),
				-1 + 2*float64(j)/float64(gridSide-1),
				0,
			}
			x, y := position(motor)
			gridMotor = append(gridMotor, motor)
			gridPos = append(gridPos, []float64{x, y})
		}
	}

	data := &model.Dataset{}
	data.MotorT, _ = model.RowsMatrix(motorT)
	data.MotorTP, _ = model.RowsMatrix(motorTP)
	data.SensorT, _ = model.RowsMatrix(sensorT)
	data.SensorTP, _ = model.RowsMatrix(sensorTP)
	data.GridMotor, _ = model.RowsMatrix(gridMotor)
	data.GridPos, _ = model.RowsMatrix(gridPos)
	return data
}
