package diagnostics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestPdistTriangle(t *testing.T) {
	points := mat.NewDense(3, 2, []float64{
		0, 0,
		3, 0,
		0, 4,
	})
	got := Pdist(points)
	want := []float64{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("pair count: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("distance %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPdistPairCount(t *testing.T) {
	points := mat.NewDense(7, 3, nil)
	if got := len(Pdist(points)); got != 21 {
		t.Fatalf("pair count: got %d, want 21", got)
	}
}
