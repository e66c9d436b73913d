package ultrametric

// UnionFind implements a disjoint-set data structure with path compression
// and union by size, extended with a per-root label histogram. Histograms
// are folded smaller-into-larger on every union ("small-to-large"), which
// bounds total histogram merge work at O(n log n) label moves.
type UnionFind struct {
	parent []int // -1 means "is a root"
	size   []int
	// hist[root] counts points per label in the set; nil for non-roots.
	hist []map[int]int64
}

// NewUnionFind creates one singleton set per label entry, each holding a
// single point with that label in its histogram.
func NewUnionFind(labels []int) *UnionFind {
	n := len(labels)
	parent := make([]int, n)
	size := make([]int, n)
	hist := make([]map[int]int64, n)
	for i := 0; i < n; i++ {
		parent[i] = -1
		size[i] = 1
		hist[i] = map[int]int64{labels[i]: 1}
	}
	return &UnionFind{parent: parent, size: size, hist: hist}
}

// Find returns the root of the set containing x, with path compression.
func (uf *UnionFind) Find(x int) int {
	// Walk to the root.
	root := x
	for uf.parent[root] != -1 {
		root = uf.parent[root]
	}
	// Path compression: point all nodes along the path directly to root.
	for uf.parent[x] != -1 {
		x, uf.parent[x] = uf.parent[x], root
	}
	return root
}

// Size returns the number of points in the set rooted at root.
func (uf *UnionFind) Size(root int) int { return uf.size[root] }

// Histogram returns the label histogram of the set rooted at root.
// The returned map is owned by the UnionFind and must not be modified.
func (uf *UnionFind) Histogram(root int) map[int]int64 { return uf.hist[root] }

// SharedPairs returns the number of same-label cross pairs between the
// disjoint sets rooted at a and b: the sum over labels of
// countA(label)*countB(label). The smaller histogram drives the loop.
func (uf *UnionFind) SharedPairs(a, b int) int64 {
	ha, hb := uf.hist[a], uf.hist[b]
	if len(hb) < len(ha) {
		ha, hb = hb, ha
	}
	var pairs int64
	for label, ca := range ha {
		pairs += ca * hb[label]
	}
	return pairs
}

// Union merges the sets containing x and y, attaching the smaller set
// under the larger and folding the smaller label histogram into the
// larger. Returns the new root.
func (uf *UnionFind) Union(x, y int) int {
	rootX := uf.Find(x)
	rootY := uf.Find(y)
	if rootX == rootY {
		return rootX
	}

	// Attach smaller to larger.
	if uf.size[rootX] < uf.size[rootY] {
		rootX, rootY = rootY, rootX
	}
	uf.parent[rootY] = rootX
	uf.size[rootX] += uf.size[rootY]

	// Histogram sizes need not follow set sizes, so pick the fold
	// direction independently and keep the result at the new root.
	hx, hy := uf.hist[rootX], uf.hist[rootY]
	if len(hx) < len(hy) {
		hx, hy = hy, hx
	}
	for label, c := range hy {
		hx[label] += c
	}
	uf.hist[rootX] = hx
	uf.hist[rootY] = nil

	return rootX
}
