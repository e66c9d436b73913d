package ultrametric

import (
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// Edge is a single MST edge: two point indices and their Euclidean
// distance. After canonicalization U < V holds for every edge.
type Edge struct {
	U, V int
	Dist float64
}

// BuildMST computes the Euclidean minimum spanning tree over n points with
// the given dimensionality. data is flat row-major (n rows, dims columns).
//
// The returned edges are in canonical order: endpoints normalized so that
// U < V, then sorted by (Dist, U, V). Ties in distance are thereby broken
// by a fixed total order, so repeated runs on identical input are
// bit-reproducible, and the edge sequence is exactly the Kruskal processing
// order consumed by CountPairs.
//
// N=1 yields an empty edge slice (degenerate, not an error). Fails with
// ErrInvalidInput for an empty point set, shape mismatches, or non-finite
// embedding values. As an advisory diagnostic, the minimum and maximum edge
// distance are logged at Info level through Config.Logger.
func BuildMST(data []float64, n, dims int, cfg Config) ([]Edge, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	if err := validateData(data, n, dims); err != nil {
		return nil, err
	}
	if n == 1 {
		return []Edge{}, nil
	}

	var edges []Edge
	switch selectAlgorithm(cfg, n, dims) {
	case AlgorithmBrute:
		distMatrix := ComputePairwiseDistancesParallel(data, n, dims, cfg.Workers)
		edges = kruskalMST(distMatrix, n)
	case AlgorithmBoruvkaKDTree:
		tree := NewKDTree(data, n, dims, cfg.LeafSize)
		edges = NewBoruvka(tree).SpanningTree()
	default:
		edges = primMST(data, n, dims)
	}

	canonicalizeEdges(edges)

	if ce := cfg.Logger.Check(zap.InfoLevel, "ultrametric distance range"); ce != nil {
		dists := make([]float64, len(edges))
		for i, e := range edges {
			dists[i] = e.Dist
		}
		ce.Write(
			zap.Float64("min", floats.Min(dists)),
			zap.Float64("max", floats.Max(dists)),
		)
	}

	return edges, nil
}

// selectAlgorithm resolves AlgorithmAuto into a concrete strategy based on
// size and dimensionality. KD-tree pruning degrades with dimensionality, so
// high-dimensional or tiny inputs fall back to matrix-free Prim's.
func selectAlgorithm(cfg Config, n, dims int) Algorithm {
	if cfg.Algorithm != AlgorithmAuto {
		return cfg.Algorithm
	}
	if dims <= 60 && n >= 32 {
		return AlgorithmBoruvkaKDTree
	}
	return AlgorithmPrims
}

// primMST computes the MST with a matrix-free Prim's algorithm, keeping one
// best-known distance and tree-side source per non-tree point (O(n) memory,
// O(n²) time).
func primMST(data []float64, n, dims int) []Edge {
	inTree := make([]bool, n)
	bestDist := make([]float64, n)
	bestSource := make([]int, n)
	for j := range bestDist {
		bestDist[j] = math.Inf(1)
	}

	metric := EuclideanMetric{}
	current := 0
	edges := make([]Edge, 0, n-1)

	for len(edges) < n-1 {
		inTree[current] = true
		row := data[current*dims : (current+1)*dims]

		next := -1
		nextDist := math.Inf(1)
		for j := 0; j < n; j++ {
			if inTree[j] {
				continue
			}
			d := metric.Distance(row, data[j*dims:(j+1)*dims])
			if d < bestDist[j] {
				bestDist[j] = d
				bestSource[j] = current
			}
			if bestDist[j] < nextDist {
				nextDist = bestDist[j]
				next = j
			}
		}

		edges = append(edges, Edge{U: bestSource[next], V: next, Dist: bestDist[next]})
		current = next
	}

	return edges
}

// kruskalMST runs Kruskal's algorithm over a full n×n distance matrix,
// processing every candidate edge in (dist, u, v) order. O(n² log n); used
// by the brute-force path and as the tie-breaking reference.
func kruskalMST(distMatrix []float64, n int) []Edge {
	candidates := make([]Edge, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			candidates = append(candidates, Edge{U: i, V: j, Dist: distMatrix[i*n+j]})
		}
	}
	sortEdges(candidates)

	uf := newSpanUnionFind(n)
	edges := make([]Edge, 0, n-1)
	for _, e := range candidates {
		if uf.find(e.U) != uf.find(e.V) {
			uf.union(e.U, e.V)
			edges = append(edges, e)
			if len(edges) == n-1 {
				break
			}
		}
	}
	return edges
}

// sortEdges orders edges by (Dist, U, V), the canonical tie-break order.
func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.Dist != b.Dist {
			return a.Dist < b.Dist
		}
		if a.U != b.U {
			return a.U < b.U
		}
		return a.V < b.V
	})
}

// canonicalizeEdges normalizes endpoint order (U < V) and sorts into the
// canonical (Dist, U, V) order consumed by the pair counter.
func canonicalizeEdges(edges []Edge) {
	for i := range edges {
		if edges[i].U > edges[i].V {
			edges[i].U, edges[i].V = edges[i].V, edges[i].U
		}
	}
	sortEdges(edges)
}
