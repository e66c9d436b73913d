package ultrametric

// PairCounts holds, for every MST edge, the number of positive (same-label)
// and negative (different-label) point pairs whose bottleneck is that edge,
// plus whole-set totals and per-edge ratios. Slices are aligned with the
// canonical edge order.
type PairCounts struct {
	NumPos []int64
	NumNeg []int64

	// RatioPos[i] = NumPos[i]/TotalPos (0 if TotalPos is 0); same for neg.
	RatioPos []float64
	RatioNeg []float64

	// TotalPos + TotalNeg == n*(n-1)/2 for a spanning tree on n points.
	TotalPos int64
	TotalNeg int64
}

// CountPairs processes MST edges in their given order (canonical
// non-decreasing distance, i.e. Kruskal processing order) with a
// label-histogram union-find sweep.
//
// When edge (u,v) joins clusters A and B, the pairs whose bottleneck is
// that edge are exactly A×B: the tree structure guarantees no later edge
// can connect a point already in A to one already in B. Of those |A|·|B|
// pairs, the positive ones are the label-histogram dot product of A and B.
//
// Fails with ErrInvalidInput if the edge list is not a spanning tree over
// the labeled points or is not sorted by non-decreasing distance.
func CountPairs(edges []Edge, labels []int) (*PairCounts, error) {
	n := len(labels)
	if n == 0 {
		return nil, invalidInputf("point set is empty")
	}
	if len(edges) != n-1 {
		return nil, invalidInputf("got %d edges for %d points, want %d", len(edges), n, n-1)
	}

	m := len(edges)
	pc := &PairCounts{
		NumPos:   make([]int64, m),
		NumNeg:   make([]int64, m),
		RatioPos: make([]float64, m),
		RatioNeg: make([]float64, m),
	}

	uf := NewUnionFind(labels)
	prevDist := 0.0

	for k, e := range edges {
		if e.U < 0 || e.U >= n || e.V < 0 || e.V >= n || e.U == e.V {
			return nil, invalidInputf("edge %d has invalid endpoints (%d, %d)", k, e.U, e.V)
		}
		if e.Dist < prevDist {
			return nil, invalidInputf("edges are not sorted by non-decreasing distance at index %d", k)
		}
		prevDist = e.Dist

		a := uf.Find(e.U)
		b := uf.Find(e.V)
		if a == b {
			return nil, invalidInputf("edge %d (%d, %d) closes a cycle; edges do not form a tree", k, e.U, e.V)
		}

		pos := uf.SharedPairs(a, b)
		neg := int64(uf.Size(a))*int64(uf.Size(b)) - pos

		pc.NumPos[k] = pos
		pc.NumNeg[k] = neg
		pc.TotalPos += pos
		pc.TotalNeg += neg

		uf.Union(a, b)
	}

	for k := 0; k < m; k++ {
		if pc.TotalPos > 0 {
			pc.RatioPos[k] = float64(pc.NumPos[k]) / float64(pc.TotalPos)
		}
		if pc.TotalNeg > 0 {
			pc.RatioNeg[k] = float64(pc.NumNeg[k]) / float64(pc.TotalNeg)
		}
	}

	return pc, nil
}
