package ultrametric

import (
	"math"
	"math/rand"
	"testing"
)

func TestCountPairs_FourPointScenario(t *testing.T) {
	edges, err := BuildMST(scenarioData, 4, 2, quietConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pc, err := CountPairs(edges, []int{1, 1, 2, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if pc.TotalPos != 2 || pc.TotalNeg != 4 {
		t.Errorf("totals = (%d, %d), want (2, 4)", pc.TotalPos, pc.TotalNeg)
	}

	// The two intra-pair edges hold one positive pair each; the long edge
	// is the bottleneck for all four negative pairs.
	wantPos := []int64{1, 1, 0}
	wantNeg := []int64{0, 0, 4}
	for i := range edges {
		if pc.NumPos[i] != wantPos[i] {
			t.Errorf("NumPos[%d] = %d, want %d", i, pc.NumPos[i], wantPos[i])
		}
		if pc.NumNeg[i] != wantNeg[i] {
			t.Errorf("NumNeg[%d] = %d, want %d", i, pc.NumNeg[i], wantNeg[i])
		}
	}

	if pc.RatioNeg[2] != 1.0 {
		t.Errorf("RatioNeg[2] = %f, want 1", pc.RatioNeg[2])
	}
	if pc.RatioNeg[0] != 0 || pc.RatioNeg[1] != 0 {
		t.Errorf("RatioNeg[0,1] = (%f, %f), want (0, 0)", pc.RatioNeg[0], pc.RatioNeg[1])
	}
	if pc.RatioPos[0] != 0.5 || pc.RatioPos[1] != 0.5 {
		t.Errorf("RatioPos[0,1] = (%f, %f), want (0.5, 0.5)", pc.RatioPos[0], pc.RatioPos[1])
	}
}

func TestCountPairs_TotalsCoverAllPairs(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	for _, n := range []int{2, 7, 30, 101} {
		data := randomPoints(n, 3, int64(n))
		labels := make([]int, n)
		for i := range labels {
			labels[i] = rng.Intn(4)
		}

		edges, err := BuildMST(data, n, 3, quietConfig())
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		pc, err := CountPairs(edges, labels)
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}

		want := int64(n) * int64(n-1) / 2
		if got := pc.TotalPos + pc.TotalNeg; got != want {
			t.Errorf("n=%d: TotalPos+TotalNeg = %d, want %d", n, got, want)
		}
	}
}

func TestCountPairs_RatiosSumToOne(t *testing.T) {
	n := 50
	data := randomPoints(n, 2, 13)
	labels := make([]int, n)
	rng := rand.New(rand.NewSource(14))
	for i := range labels {
		labels[i] = rng.Intn(3)
	}

	edges, err := BuildMST(data, n, 2, quietConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pc, err := CountPairs(edges, labels)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sumPos, sumNeg float64
	for i := range pc.RatioPos {
		sumPos += pc.RatioPos[i]
		sumNeg += pc.RatioNeg[i]
	}
	if math.Abs(sumPos-1.0) > 1e-9 {
		t.Errorf("sum RatioPos = %f, want 1", sumPos)
	}
	if math.Abs(sumNeg-1.0) > 1e-9 {
		t.Errorf("sum RatioNeg = %f, want 1", sumNeg)
	}
}

func TestCountPairs_SingleLabel(t *testing.T) {
	n := 12
	data := randomPoints(n, 2, 17)
	labels := make([]int, n) // all label 0

	edges, err := BuildMST(data, n, 2, quietConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pc, err := CountPairs(edges, labels)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if pc.TotalNeg != 0 {
		t.Errorf("TotalNeg = %d, want 0", pc.TotalNeg)
	}
	if pc.TotalPos != int64(n)*int64(n-1)/2 {
		t.Errorf("TotalPos = %d, want %d", pc.TotalPos, n*(n-1)/2)
	}
	for i := range pc.RatioNeg {
		if pc.RatioNeg[i] != 0 {
			t.Errorf("RatioNeg[%d] = %f, want 0", i, pc.RatioNeg[i])
		}
	}
}

func TestCountPairs_InvalidInputs(t *testing.T) {
	labels := []int{0, 1, 0}

	// Wrong edge count.
	if _, err := CountPairs([]Edge{{U: 0, V: 1, Dist: 1}}, labels); !isInvalidInput(err) {
		t.Errorf("wrong edge count: err = %v, want ErrInvalidInput", err)
	}

	// Unsorted distances.
	unsorted := []Edge{{U: 0, V: 1, Dist: 2}, {U: 1, V: 2, Dist: 1}}
	if _, err := CountPairs(unsorted, labels); !isInvalidInput(err) {
		t.Errorf("unsorted edges: err = %v, want ErrInvalidInput", err)
	}

	// Cycle.
	cyclic := []Edge{{U: 0, V: 1, Dist: 1}, {U: 0, V: 1, Dist: 2}}
	if _, err := CountPairs(cyclic, labels); !isInvalidInput(err) {
		t.Errorf("cycle: err = %v, want ErrInvalidInput", err)
	}

	// Out-of-range endpoint.
	ranged := []Edge{{U: 0, V: 1, Dist: 1}, {U: 1, V: 5, Dist: 2}}
	if _, err := CountPairs(ranged, labels); !isInvalidInput(err) {
		t.Errorf("endpoint out of range: err = %v, want ErrInvalidInput", err)
	}

	// Empty labels.
	if _, err := CountPairs(nil, nil); !isInvalidInput(err) {
		t.Errorf("empty labels: err = %v, want ErrInvalidInput", err)
	}
}
