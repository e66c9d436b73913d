package ultrametric

import (
	"math"
	"sort"
	"testing"
)

func TestKDTree_QueryKNNMatchesBruteForce(t *testing.T) {
	n, dims := 60, 3
	data := randomPoints(n, dims, 11)
	tree := NewKDTree(data, n, dims, 8)
	metric := EuclideanMetric{}

	k := 5
	idx, dist := tree.QueryKNN(data, n, k)

	for q := 0; q < n; q++ {
		// Brute-force k nearest for query q.
		type cand struct {
			i int
			d float64
		}
		cands := make([]cand, n)
		for j := 0; j < n; j++ {
			cands[j] = cand{j, metric.Distance(data[q*dims:(q+1)*dims], data[j*dims:(j+1)*dims])}
		}
		sort.Slice(cands, func(a, b int) bool { return cands[a].d < cands[b].d })

		if len(idx[q]) != k {
			t.Fatalf("query %d: got %d neighbors, want %d", q, len(idx[q]), k)
		}
		for r := 0; r < k; r++ {
			if math.Abs(dist[q][r]-cands[r].d) > 1e-12 {
				t.Errorf("query %d rank %d: dist = %f, want %f", q, r, dist[q][r], cands[r].d)
			}
		}
		// The first neighbor of a point is itself at distance zero.
		if idx[q][0] != q || dist[q][0] != 0 {
			t.Errorf("query %d: nearest = (%d, %f), want itself at 0", q, idx[q][0], dist[q][0])
		}
	}
}

func TestKDTree_SmallLeafAndSinglePoint(t *testing.T) {
	data := []float64{1, 2}
	tree := NewKDTree(data, 1, 2, 4)
	if tree.NumPoints() != 1 || tree.NumNodes() != 1 {
		t.Fatalf("single-point tree: points=%d nodes=%d", tree.NumPoints(), tree.NumNodes())
	}

	idx, dist := tree.QueryKNN(data, 1, 3)
	if len(idx[0]) != 1 || idx[0][0] != 0 || dist[0][0] != 0 {
		t.Errorf("QueryKNN on single point = (%v, %v)", idx[0], dist[0])
	}
}

func TestKDTree_BoundsContainPoints(t *testing.T) {
	n, dims := 100, 2
	data := randomPoints(n, dims, 5)
	tree := NewKDTree(data, n, dims, 10)

	for node := 0; node < tree.NumNodes(); node++ {
		nd := tree.nodes[node]
		for i := nd.idxStart; i < nd.idxEnd; i++ {
			pt := tree.idxArray[i]
			for d := 0; d < dims; d++ {
				v := tree.data[pt*dims+d]
				lo := tree.nodeBoundsMin[node*dims+d]
				hi := tree.nodeBoundsMax[node*dims+d]
				if v < lo || v > hi {
					t.Fatalf("node %d: point %d dim %d value %f outside [%f, %f]",
						node, pt, d, v, lo, hi)
				}
			}
		}
	}
}
