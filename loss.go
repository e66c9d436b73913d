package ultrametric

import (
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// Mode selects the loss formulation.
type Mode string

const (
	// ModeFull is the quadruplet loss collapsed over bottleneck edges.
	ModeFull Mode = "full"
	// ModePretrain is the pair-only warm-start loss.
	ModePretrain Mode = "pretrain"
)

// LossResult is the output of ComputeLoss. All per-edge slices are aligned
// with the canonical MST edge order of the input.
type LossResult struct {
	Loss     float64
	Gradient []float64

	RatioPos []float64
	RatioNeg []float64
	NumPos   []int64
	NumNeg   []int64

	// NumPairsPos/NumPairsNeg are whole-set totals; their sum is
	// n*(n-1)/2. Exposed as float64 for callers that re-normalize.
	NumPairsPos float64
	NumPairsNeg float64

	// Degenerate reports that fewer than two points were given. The loss
	// is defined as zero with an empty gradient in that case; it is a
	// policy choice, not a failure.
	Degenerate bool
}

// ComputeLoss computes the margin loss and its analytic gradient with
// respect to each edge's distance.
//
// edges must be in canonical sorted order (as returned by BuildMST) and
// span the labeled points. alpha is the non-negative margin. In ModeFull
// the loss is the closed-form collapse of the quadruplet loss over all
// positive/negative pair combinations; in ModePretrain it is the pair-only
// warm-start objective, with balance selecting the class-balanced
// normalization.
//
// Fewer than two points is not an error: the result has zero loss, empty
// per-edge slices, and Degenerate set.
func ComputeLoss(edges []Edge, labels []int, alpha float64, mode Mode, balance bool) (*LossResult, error) {
	return computeLoss(edges, labels, alpha, mode, balance, runtime.NumCPU())
}

// ComputeGradient computes only the gradient of the loss with respect to
// each edge's distance. The value is identical to LossResult.Gradient from
// ComputeLoss on the same inputs; it exists for callers whose autodiff
// system requires forward and backward passes as distinct calls.
func ComputeGradient(edges []Edge, labels []int, alpha float64, mode Mode, balance bool) ([]float64, error) {
	result, err := ComputeLoss(edges, labels, alpha, mode, balance)
	if err != nil {
		return nil, err
	}
	return result.Gradient, nil
}

func computeLoss(edges []Edge, labels []int, alpha float64, mode Mode, balance bool, workers int) (*LossResult, error) {
	if math.IsNaN(alpha) || math.IsInf(alpha, 0) || alpha < 0 {
		return nil, invalidInputf("alpha must be finite and non-negative, got %v", alpha)
	}
	switch mode {
	case ModeFull, ModePretrain:
	default:
		return nil, invalidInputf("invalid mode %q", mode)
	}
	if len(labels) == 0 {
		return nil, invalidInputf("point set is empty")
	}
	if len(labels) < 2 {
		if len(edges) != 0 {
			return nil, invalidInputf("got %d edges for %d points, want 0", len(edges), len(labels))
		}
		return degenerateLossResult(), nil
	}

	pc, err := CountPairs(edges, labels)
	if err != nil {
		return nil, err
	}

	dists := make([]float64, len(edges))
	for i, e := range edges {
		dists[i] = e.Dist
	}

	var loss float64
	var gradient []float64
	if mode == ModePretrain {
		loss, gradient = pretrainLoss(dists, pc, alpha, balance)
	} else {
		loss, gradient = fullLoss(dists, pc, alpha, workers)
	}

	return &LossResult{
		Loss:        loss,
		Gradient:    gradient,
		RatioPos:    pc.RatioPos,
		RatioNeg:    pc.RatioNeg,
		NumPos:      pc.NumPos,
		NumNeg:      pc.NumNeg,
		NumPairsPos: float64(pc.TotalPos),
		NumPairsNeg: float64(pc.TotalNeg),
	}, nil
}

// degenerateLossResult is the defined zero-loss output for point sets with
// fewer than two points.
func degenerateLossResult() *LossResult {
	return &LossResult{
		Gradient:   []float64{},
		RatioPos:   []float64{},
		RatioNeg:   []float64{},
		NumPos:     []int64{},
		NumNeg:     []int64{},
		Degenerate: true,
	}
}

// fullLoss evaluates the collapsed quadruplet loss
//
//	L = sum_i sum_j numPos_i * numNeg_j * max(0, d_j - d_i + alpha)^2
//
// over edges with nonzero counts in each role, together with its analytic
// gradient: each active (i,j) term contributes -2·w·hinge to gradient[i]
// and +2·w·hinge to gradient[j]. The hinge is applied before squaring.
//
// The double sum is split across workers along the active edge lists: the
// positive role (per-edge loss contribution, negative gradient term) over
// the outer index i, the negative role (positive gradient term) over j.
// Every accumulator is owned by exactly one worker and summed in a fixed
// index order, and the final combination walks edges in canonical order,
// so the result is bit-identical regardless of the worker count.
func fullLoss(dists []float64, pc *PairCounts, alpha float64, workers int) (float64, []float64) {
	m := len(dists)
	gradient := make([]float64, m)

	// Edges with a zero count in a role contribute nothing in that role.
	posIdx := make([]int, 0, m)
	negIdx := make([]int, 0, m)
	for i := 0; i < m; i++ {
		if pc.NumPos[i] > 0 {
			posIdx = append(posIdx, i)
		}
		if pc.NumNeg[i] > 0 {
			negIdx = append(negIdx, i)
		}
	}
	if len(posIdx) == 0 || len(negIdx) == 0 {
		return 0, gradient
	}

	if workers < 1 {
		workers = 1
	}
	most := len(posIdx)
	if len(negIdx) > most {
		most = len(negIdx)
	}
	if workers > most {
		workers = most
	}

	lossByEdge := make([]float64, m)
	gradPos := make([]float64, m)
	gradNeg := make([]float64, m)

	posChunk := (len(posIdx) + workers - 1) / workers
	negChunk := (len(negIdx) + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()

			start, end := chunkRange(w, posChunk, len(posIdx))
			for _, i := range posIdx[start:end] {
				pi := float64(pc.NumPos[i])
				di := dists[i]
				var loss, g float64
				for _, j := range negIdx {
					hinge := dists[j] - di + alpha
					if hinge <= 0 {
						continue
					}
					wt := pi * float64(pc.NumNeg[j])
					loss += wt * hinge * hinge
					g -= 2 * wt * hinge
				}
				lossByEdge[i] = loss
				gradPos[i] = g
			}

			start, end = chunkRange(w, negChunk, len(negIdx))
			for _, j := range negIdx[start:end] {
				nj := float64(pc.NumNeg[j])
				dj := dists[j]
				var g float64
				for _, i := range posIdx {
					hinge := dj - dists[i] + alpha
					if hinge <= 0 {
						continue
					}
					wt := float64(pc.NumPos[i]) * nj
					g += 2 * wt * hinge
				}
				gradNeg[j] = g
			}
		}(w)
	}
	wg.Wait()

	floats.Add(gradient, gradPos)
	floats.Add(gradient, gradNeg)
	return floats.Sum(lossByEdge), gradient
}

// chunkRange returns the half-open range of worker w's chunk over a list of
// the given length.
func chunkRange(w, chunk, length int) (start, end int) {
	start = w * chunk
	end = start + chunk
	if start > length {
		start = length
	}
	if end > length {
		end = length
	}
	return start, end
}

// pretrainLoss evaluates the pair-only warm-start loss. Per edge,
//
//	lossPos_i = d_i^2 * ratioPos_i
//	lossNeg_i = max(0, alpha - d_i)^2 * ratioNeg_i
//
// With balance, the two class sums are added directly (the ratios already
// normalize each class by its own pair total). Without it, the class sums
// are denormalized by their pair counts and divided by the total number of
// pairs, weighting classes by how many pairs they contain.
func pretrainLoss(dists []float64, pc *PairCounts, alpha float64, balance bool) (float64, []float64) {
	m := len(dists)
	lossPos := make([]float64, m)
	lossNeg := make([]float64, m)
	gradPos := make([]float64, m)
	gradNeg := make([]float64, m)

	for i := 0; i < m; i++ {
		d := dists[i]
		lossPos[i] = d * d * pc.RatioPos[i]
		gradPos[i] = 2 * d * pc.RatioPos[i]

		hinge := alpha - d
		if hinge < 0 {
			hinge = 0
		}
		lossNeg[i] = hinge * hinge * pc.RatioNeg[i]
		gradNeg[i] = -2 * hinge * pc.RatioNeg[i]
	}

	gradient := make([]float64, m)

	if balance {
		floats.Add(gradient, gradPos)
		floats.Add(gradient, gradNeg)
		return floats.Sum(lossPos) + floats.Sum(lossNeg), gradient
	}

	numPos := float64(pc.TotalPos)
	numNeg := float64(pc.TotalNeg)
	total := numPos + numNeg // >= 1 whenever there is at least one edge

	floats.AddScaled(gradient, numPos/total, gradPos)
	floats.AddScaled(gradient, numNeg/total, gradNeg)
	loss := (floats.Sum(lossPos)*numPos + floats.Sum(lossNeg)*numNeg) / total
	return loss, gradient
}
