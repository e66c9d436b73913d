package ultrametric

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
)

func isInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

func TestBuildMST_BadData(t *testing.T) {
	cfg := quietConfig()

	if _, err := BuildMST(nil, 0, 2, cfg); !isInvalidInput(err) {
		t.Errorf("n=0: err = %v, want ErrInvalidInput", err)
	}
	if _, err := BuildMST([]float64{1, 2}, 1, 0, cfg); !isInvalidInput(err) {
		t.Errorf("dims=0: err = %v, want ErrInvalidInput", err)
	}
	if _, err := BuildMST([]float64{1, 2, 3}, 2, 2, cfg); !isInvalidInput(err) {
		t.Errorf("length mismatch: err = %v, want ErrInvalidInput", err)
	}
	if _, err := BuildMST([]float64{1, math.NaN()}, 1, 2, cfg); !isInvalidInput(err) {
		t.Errorf("NaN: err = %v, want ErrInvalidInput", err)
	}
	if _, err := BuildMST([]float64{1, math.Inf(1)}, 1, 2, cfg); !isInvalidInput(err) {
		t.Errorf("Inf: err = %v, want ErrInvalidInput", err)
	}
}

func TestBuildMST_IdenticalPoints(t *testing.T) {
	// Coincident points produce a valid zero-weight MST, not an error.
	data := []float64{3, 3, 3, 3, 3, 3}
	for _, algo := range []Algorithm{AlgorithmBrute, AlgorithmPrims, AlgorithmBoruvkaKDTree} {
		cfg := quietConfig()
		cfg.Algorithm = algo

		edges, err := BuildMST(data, 3, 2, cfg)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", algo, err)
		}
		if len(edges) != 2 {
			t.Fatalf("%s: got %d edges, want 2", algo, len(edges))
		}
		for _, e := range edges {
			if e.Dist != 0 {
				t.Errorf("%s: edge (%d,%d) dist = %v, want 0", algo, e.U, e.V, e.Dist)
			}
		}
	}
}

func TestComputeLoss_TwoSameLabelPoints(t *testing.T) {
	edges := []Edge{{U: 0, V: 1, Dist: 2}}

	result, err := ComputeLoss(edges, []int{4, 4}, 0.5, ModeFull, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// One positive pair, no negatives: nothing to contrast against.
	if result.Loss != 0 || result.Gradient[0] != 0 {
		t.Errorf("result = (loss %f, grad %f), want (0, 0)", result.Loss, result.Gradient[0])
	}
	if result.NumPairsPos != 1 || result.NumPairsNeg != 0 {
		t.Errorf("pair totals = (%f, %f), want (1, 0)", result.NumPairsPos, result.NumPairsNeg)
	}

	// In pretrain mode the positive pull term is still active.
	result, err = ComputeLoss(edges, []int{4, 4}, 0.5, ModePretrain, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(result.Loss-4) > 1e-12 {
		t.Errorf("pretrain loss = %f, want d^2 = 4", result.Loss)
	}
	if math.Abs(result.Gradient[0]-4) > 1e-12 {
		t.Errorf("pretrain gradient = %f, want 2d = 4", result.Gradient[0])
	}
}

func TestComputeLoss_ZeroAlpha(t *testing.T) {
	// With alpha=0 the scenario's negative edge (d=5) still violates the
	// margin against both positive edges (d=1): hinge = 4.
	edges, err := BuildMST(scenarioData, 4, 2, quietConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, err := ComputeLoss(edges, []int{1, 1, 2, 2}, 0, ModeFull, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantLoss := 2.0 * 4 * 4 * 4
	if math.Abs(result.Loss-wantLoss) > 1e-9 {
		t.Errorf("loss = %f, want %f", result.Loss, wantLoss)
	}
}

func TestConfigValidation(t *testing.T) {
	vol := scenarioVolume()

	cfg := DefaultConfig()
	cfg.LeafSize = -1
	if _, err := Loss(vol, cfg); !isInvalidInput(err) {
		t.Errorf("LeafSize -1: err = %v, want ErrInvalidInput", err)
	}

	cfg = DefaultConfig()
	cfg.Algorithm = Algorithm("kruskal_gpu")
	if _, err := Loss(vol, cfg); !isInvalidInput(err) {
		t.Errorf("bad algorithm: err = %v, want ErrInvalidInput", err)
	}

	cfg = DefaultConfig()
	cfg.CoordinateScale = []float64{1, 2}
	if _, err := Loss(vol, cfg); !isInvalidInput(err) {
		t.Errorf("2-entry scale: err = %v, want ErrInvalidInput", err)
	}

	cfg = DefaultConfig()
	cfg.CoordinateScale = []float64{0}
	if _, err := Loss(vol, cfg); !isInvalidInput(err) {
		t.Errorf("zero scale: err = %v, want ErrInvalidInput", err)
	}

	cfg = DefaultConfig()
	cfg.Alpha = math.Inf(1)
	if _, err := Loss(vol, cfg); !isInvalidInput(err) {
		t.Errorf("infinite alpha: err = %v, want ErrInvalidInput", err)
	}

	cfg = DefaultConfig()
	cfg.Workers = -2
	if _, err := Loss(vol, cfg); !isInvalidInput(err) {
		t.Errorf("negative workers: err = %v, want ErrInvalidInput", err)
	}
}
