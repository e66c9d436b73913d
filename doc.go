// Package ultrametric computes a margin-based contrastive loss over point
// embeddings under the ultrametric induced by their Euclidean minimum
// spanning tree (MST).
//
// The ultrametric distance between two points is the weight of the
// maximum-weight edge on the unique MST path connecting them (their
// "bottleneck" edge). Training an embedding against this loss pulls
// same-label points below different-label points in the single-linkage
// merge hierarchy:
//
//	L = sum_p sum_n max(0, d(n) - d(p) + alpha)^2
//
// where p ranges over same-label ("positive") pairs, n over different-label
// ("negative") pairs, and d(.) is the ultrametric distance. The sum over all
// O(N²) pairs is never materialized: every pair's ultrametric distance is
// realized by one of the N-1 MST edges, so the loss collapses to a sum over
// edge pairs weighted by per-edge bottleneck pair counts.
//
// Basic usage on flat points:
//
//	cfg := ultrametric.DefaultConfig()
//	edges, err := ultrametric.BuildMST(data, n, dims, cfg)
//	result, err := ultrametric.ComputeLoss(edges, labels, cfg.Alpha, ultrametric.ModeFull, false)
//	// result.Loss, result.Gradient (one entry per MST edge)
//
// Or end to end on a volume-shaped embedding (k feature channels over a
// d×h×w grid), with optional coordinate augmentation and masking:
//
//	res, err := ultrametric.Loss(vol, cfg)
//
// # Algorithm selection
//
// By default (Algorithm: "auto"), BuildMST picks the MST construction
// strategy based on size and dimensionality. For low-dimensional data it
// uses dual-tree Borůvka with a KD-tree, which is significantly faster than
// the quadratic alternatives on large point sets. Set Config.Algorithm to
// force a specific strategy:
//
//	cfg.Algorithm = ultrametric.AlgorithmBrute          // full distance matrix + Kruskal
//	cfg.Algorithm = ultrametric.AlgorithmPrims          // matrix-free Prim's
//	cfg.Algorithm = ultrametric.AlgorithmBoruvkaKDTree  // dual-tree Borůvka + KD-tree
//
// All strategies normalize their output into one canonical order (endpoints
// with U < V, edges sorted by (Dist, U, V)), so downstream pair counting and
// loss computation are independent of the strategy and bit-reproducible on
// identical input.
package ultrametric
