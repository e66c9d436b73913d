package ultrametric

import "math"

// spanUnionFind is a lightweight union-find used during MST construction
// (Borůvka rounds and the brute-force Kruskal path). It uses union by rank
// and path compression (halving).
type spanUnionFind struct {
	parent      []int
	rank        []int
	isComponent []bool // true if this element is a component root
}

func newSpanUnionFind(n int) *spanUnionFind {
	parent := make([]int, n)
	rank := make([]int, n)
	isComp := make([]bool, n)
	for i := range parent {
		parent[i] = i
		isComp[i] = true
	}
	return &spanUnionFind{parent: parent, rank: rank, isComponent: isComp}
}

func (uf *spanUnionFind) find(x int) int {
	// Path halving: every other node points to its grandparent.
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *spanUnionFind) union(x, y int) {
	xr := uf.find(x)
	yr := uf.find(y)
	if xr == yr {
		return
	}
	if uf.rank[xr] < uf.rank[yr] {
		uf.parent[xr] = yr
		uf.isComponent[xr] = false
	} else if uf.rank[xr] > uf.rank[yr] {
		uf.parent[yr] = xr
		uf.isComponent[yr] = false
	} else {
		uf.parent[yr] = xr
		uf.isComponent[yr] = false
		uf.rank[xr]++
	}
}

// components returns the list of current component root indices, ascending.
func (uf *spanUnionFind) components() []int {
	var out []int
	for i, v := range uf.isComponent {
		if v {
			out = append(out, i)
		}
	}
	return out
}

// Boruvka performs dual-tree Borůvka Euclidean MST construction over a
// KD-tree. Each round finds, for every connected component, its minimum
// outgoing edge via a pruned dual-tree traversal, then merges components
// until one remains.
//
// All candidate distances and node bounds are kept in true distance space;
// the tree's squared-distance lower bounds are converted before comparison.
type Boruvka struct {
	tree *KDTree

	numPoints   int
	numFeatures int
	numNodes    int

	// Per-point data (indexed by original point index).
	componentOfPoint  []int
	candidateNeighbor []int
	candidatePoint    []int
	candidateDist     []float64

	// Per-node data. bounds[node] is an upper bound on the candidate
	// distance of every point in the node's subtree for the current round.
	componentOfNode []int
	bounds          []float64

	uf         *spanUnionFind
	components []int

	edges    []Edge
	numEdges int
}

// NewBoruvka prepares Borůvka MST construction over the given tree.
func NewBoruvka(tree *KDTree) *Boruvka {
	n := tree.NumPoints()

	// Per-node arrays are indexed by heap position, which can exceed the
	// number of initialized nodes when the tree is uneven, so size them by
	// the full slot array.
	slots := len(tree.nodes)

	b := &Boruvka{
		tree:        tree,
		numPoints:   n,
		numFeatures: tree.NumFeatures(),
		numNodes:    slots,

		componentOfPoint:  make([]int, n),
		candidateNeighbor: make([]int, n),
		candidatePoint:    make([]int, n),
		candidateDist:     make([]float64, n),
		componentOfNode:   make([]int, slots),
		bounds:            make([]float64, slots),

		uf:    newSpanUnionFind(n),
		edges: make([]Edge, 0, n-1),
	}

	b.initializeComponents()
	b.seedCandidates()

	return b
}

func (b *Boruvka) initializeComponents() {
	for i := 0; i < b.numPoints; i++ {
		b.componentOfPoint[i] = i
		b.candidateNeighbor[i] = -1
		b.candidatePoint[i] = -1
		b.candidateDist[i] = math.MaxFloat64
	}
	for i := 0; i < b.numNodes; i++ {
		b.componentOfNode[i] = -(i + 1) // negative = mixed/unknown
		b.bounds[i] = math.MaxFloat64
	}
}

// seedCandidates primes each singleton component with its nearest neighbor,
// so the first round already has good candidates to prune against.
func (b *Boruvka) seedCandidates() {
	data := b.tree.data
	knnIdx, knnDist := b.tree.QueryKNN(data, b.numPoints, 2)

	for i := 0; i < b.numPoints; i++ {
		for k := 0; k < len(knnIdx[i]); k++ {
			m := knnIdx[i][k]
			if m == i {
				continue
			}
			if knnDist[i][k] < b.candidateDist[i] {
				b.candidatePoint[i] = i
				b.candidateNeighbor[i] = m
				b.candidateDist[i] = knnDist[i][k]
			}
		}
	}
}

// updateComponents adds each component's best candidate edge, merges the
// endpoints, and recomputes per-point and per-node component assignments.
// Returns the number of remaining components.
func (b *Boruvka) updateComponents() int {
	comps := b.uf.components()

	// For each component, try to add its best candidate edge.
	for _, component := range comps {
		source := b.candidatePoint[component]
		sink := b.candidateNeighbor[component]
		if source == -1 || sink == -1 {
			continue
		}
		srcComp := b.uf.find(source)
		sinkComp := b.uf.find(sink)
		if srcComp == sinkComp {
			b.resetCandidate(component)
			continue
		}

		b.edges = append(b.edges, Edge{U: source, V: sink, Dist: b.candidateDist[component]})
		b.numEdges++

		b.uf.union(source, sink)
		b.resetCandidate(component)

		if b.numEdges == b.numPoints-1 {
			b.components = b.uf.components()
			return len(b.components)
		}
	}

	// Propagate union-find results to componentOfPoint.
	for i := 0; i < b.numPoints; i++ {
		b.componentOfPoint[i] = b.uf.find(i)
	}

	// Set componentOfNode bottom-up: a node belongs to a component only if
	// every point in its subtree does.
	nodes := b.tree.nodes
	idxArray := b.tree.idxArray

	for n := b.numNodes - 1; n >= 0; n-- {
		nd := nodes[n]
		if n != 0 && nd.idxStart == 0 && nd.idxEnd == 0 {
			// Uninitialized slot.
			b.componentOfNode[n] = -(n + 1)
			continue
		}
		if nd.isLeaf {
			if nd.idxStart >= nd.idxEnd {
				continue
			}
			comp := b.componentOfPoint[idxArray[nd.idxStart]]
			allSame := true
			for i := nd.idxStart + 1; i < nd.idxEnd; i++ {
				if b.componentOfPoint[idxArray[i]] != comp {
					allSame = false
					break
				}
			}
			if allSame {
				b.componentOfNode[n] = comp
			} else {
				b.componentOfNode[n] = -(n + 1)
			}
		} else {
			left, right := b.tree.childNodes(n)
			if b.componentOfNode[left] == b.componentOfNode[right] && b.componentOfNode[left] >= 0 {
				b.componentOfNode[n] = b.componentOfNode[left]
			} else {
				b.componentOfNode[n] = -(n + 1)
			}
		}
	}

	// Reset bounds for the next round.
	b.components = b.uf.components()
	for i := 0; i < b.numNodes; i++ {
		b.bounds[i] = math.MaxFloat64
	}

	return len(b.components)
}

func (b *Boruvka) resetCandidate(component int) {
	b.candidatePoint[component] = -1
	b.candidateNeighbor[component] = -1
	b.candidateDist[component] = math.MaxFloat64
}

func (b *Boruvka) dualTreeTraversal(node1, node2 int) {
	nodeDist := rdistToDist(b.tree.minRdistDual(node1, node2))

	// Prune: if node distance >= current bound, nothing useful here.
	if nodeDist >= b.bounds[node1] {
		return
	}
	// Prune: if both nodes are entirely in the same component.
	if b.componentOfNode[node1] == b.componentOfNode[node2] && b.componentOfNode[node1] >= 0 {
		return
	}

	nodes := b.tree.nodes
	node1Info := nodes[node1]
	node2Info := nodes[node2]

	// Case 1: both leaves.
	if node1Info.isLeaf && node2Info.isLeaf {
		b.processLeafPair(node1, node2)
		return
	}

	// Case 2a: node1 is a leaf, or node2 is larger → descend into node2.
	if node1Info.isLeaf || (!node2Info.isLeaf && nodeCount(node2Info) > nodeCount(node1Info)) {
		left, right := b.tree.childNodes(node2)
		leftDist := rdistToDist(b.tree.minRdistDual(node1, left))
		rightDist := rdistToDist(b.tree.minRdistDual(node1, right))
		if leftDist < rightDist {
			b.dualTreeTraversal(node1, left)
			b.dualTreeTraversal(node1, right)
		} else {
			b.dualTreeTraversal(node1, right)
			b.dualTreeTraversal(node1, left)
		}
		return
	}

	// Case 2b: node2 is a leaf, or node1 is larger → descend into node1.
	left, right := b.tree.childNodes(node1)
	leftDist := rdistToDist(b.tree.minRdistDual(left, node2))
	rightDist := rdistToDist(b.tree.minRdistDual(right, node2))
	if leftDist < rightDist {
		b.dualTreeTraversal(left, node2)
		b.dualTreeTraversal(right, node2)
	} else {
		b.dualTreeTraversal(right, node2)
		b.dualTreeTraversal(left, node2)
	}
}

func nodeCount(nd nodeData) int {
	return nd.idxEnd - nd.idxStart
}

func (b *Boruvka) processLeafPair(node1, node2 int) {
	nodes := b.tree.nodes
	idxArray := b.tree.idxArray
	data := b.tree.data
	dims := b.numFeatures
	metric := EuclideanMetric{}

	n1 := nodes[node1]
	n2 := nodes[node2]

	newBound := 0.0

	for i := n1.idxStart; i < n1.idxEnd; i++ {
		p := idxArray[i]
		comp1 := b.componentOfPoint[p]
		pSlice := data[p*dims : (p+1)*dims]

		for j := n2.idxStart; j < n2.idxEnd; j++ {
			q := idxArray[j]

			if comp1 == b.componentOfPoint[q] {
				continue
			}

			d := metric.Distance(pSlice, data[q*dims:(q+1)*dims])
			if d < b.candidateDist[comp1] {
				b.candidateDist[comp1] = d
				b.candidateNeighbor[comp1] = q
				b.candidatePoint[comp1] = p
			}
		}

		if b.candidateDist[comp1] > newBound {
			newBound = b.candidateDist[comp1]
		}
	}

	// The bound is the worst candidate distance over the leaf's points: no
	// pair further away than that can improve any of them.
	if newBound < b.bounds[node1] {
		b.bounds[node1] = newBound
		b.propagateBoundsUp(node1)
	}
}

func (b *Boruvka) propagateBoundsUp(node int) {
	for node > 0 {
		parent := (node - 1) / 2
		left := 2*parent + 1
		right := 2*parent + 2

		newBound := math.Max(b.bounds[left], b.bounds[right])
		if newBound < b.bounds[parent] {
			b.bounds[parent] = newBound
			node = parent
		} else {
			break
		}
	}
}

// SpanningTree runs Borůvka rounds to completion and returns the MST edges.
// Edge order is traversal-dependent; callers normalize via canonicalizeEdges.
func (b *Boruvka) SpanningTree() []Edge {
	numComponents := len(b.uf.components())

	for numComponents > 1 && b.numEdges < b.numPoints-1 {
		b.dualTreeTraversal(0, 0)
		numComponents = b.updateComponents()
	}

	return b.edges
}
