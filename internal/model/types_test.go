package model

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func validDataset() *Dataset {
	return &Dataset{
		MotorT:    mat.NewDense(4, 3, nil),
		MotorTP:   mat.NewDense(4, 3, nil),
		SensorT:   mat.NewDense(4, 2, nil),
		SensorTP:  mat.NewDense(4, 2, nil),
		GridMotor: mat.NewDense(5, 3, nil),
		GridPos:   mat.NewDense(5, 2, nil),
	}
}

func TestDatasetValidate(t *testing.T) {
	if err := validDataset().Validate(); err != nil {
		t.Fatalf("valid dataset: %v", err)
	}
}

func TestDatasetValidateShapeMismatch(t *testing.T) {
	data := validDataset()
	data.MotorTP = mat.NewDense(3, 3, nil)
	if err := data.Validate(); err == nil {
		t.Fatal("expected error for motor_tp row mismatch")
	}

	data = validDataset()
	data.GridPos = mat.NewDense(5, 3, nil)
	if err := data.Validate(); err == nil {
		t.Fatal("expected error for grid_pos column count")
	}

	data = validDataset()
	data.SensorTP = nil
	if err := data.Validate(); err == nil {
		t.Fatal("expected error for missing sensor_tp")
	}
}

func TestDatasetDims(t *testing.T) {
	data := validDataset()
	if got := data.Transitions(); got != 4 {
		t.Fatalf("transitions: got %d, want 4", got)
	}
	if got := data.GridPoints(); got != 5 {
		t.Fatalf("grid points: got %d, want 5", got)
	}
	if got := data.DimMotor(); got != 3 {
		t.Fatalf("dim motor: got %d, want 3", got)
	}
	if got := data.DimSensor(); got != 2 {
		t.Fatalf("dim sensor: got %d, want 2", got)
	}
}

func TestRowsMatrixRoundTrip(t *testing.T) {
	rows := [][]float64{{1, 2}, {3, 4}, {5, 6}}
	m, err := RowsMatrix(rows)
	if err != nil {
		t.Fatalf("rows matrix: %v", err)
	}
	back := MatrixRows(m)
	for i := range rows {
		for j := range rows[i] {
			if back[i][j] != rows[i][j] {
				t.Fatalf("round trip mismatch at (%d,%d): %v != %v", i, j, back[i][j], rows[i][j])
			}
		}
	}
}

func TestRowsMatrixRagged(t *testing.T) {
	if _, err := RowsMatrix([][]float64{{1, 2}, {3}}); err == nil {
		t.Fatal("expected error for ragged rows")
	}
	if _, err := RowsMatrix(nil); err == nil {
		t.Fatal("expected error for empty matrix")
	}
}
