package ultrametric

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// Volume describes a k-channel embedding over a d×h×w grid together with
// per-voxel ground-truth labels and an optional mask. It is the
// framework-facing input shape: training code hands over its embedding and
// segmentation tensors unchanged.
type Volume struct {
	// Embedding is channel-major flat data of length K*D*H*W: channel k
	// first, then z, y, x, matching the layout of a (k, d, h, w) tensor.
	Embedding []float64

	// Labels holds one label per voxel, length D*H*W, in z, y, x order.
	Labels []int

	// Mask, if non-nil, must have length D*H*W; voxels with a false entry
	// are dropped before any computation.
	Mask []bool

	K, D, H, W int
}

// Result is the output of the end-to-end Loss pipeline.
type Result struct {
	*LossResult

	// Edges is the MST in canonical order; Gradient in the embedded
	// LossResult is aligned with it.
	Edges []Edge

	// N and Dims describe the flattened point set after masking and
	// coordinate augmentation.
	N    int
	Dims int
}

// Loss computes the ultrametric margin loss end to end on a volume-shaped
// embedding: it optionally augments each voxel's features with scaled
// spatial coordinates, applies the mask, flattens to a point list, builds
// the Euclidean MST, counts bottleneck pairs, and evaluates the loss and
// its gradient per MST edge.
//
// Labels and the margin are constants of the computation; the per-edge
// distances are the only differentiable quantity, so a host autodiff
// system backpropagates by routing Gradient into the distance computation
// of the returned Edges.
//
// A mask that removes every point is ErrInvalidInput; one surviving point
// yields the defined degenerate zero-loss result.
func Loss(vol Volume, cfg Config) (*Result, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	if err := validateVolume(vol); err != nil {
		return nil, err
	}

	data, labels, dims := flattenVolume(vol, cfg)
	n := len(labels)
	if n == 0 {
		return nil, invalidInputf("mask removed every point")
	}

	if cfg.AddCoordinates {
		warnMarginRange(cfg, vol.K)
	}

	if n == 1 {
		return &Result{LossResult: degenerateLossResult(), Edges: []Edge{}, N: 1, Dims: dims}, nil
	}

	edges, err := BuildMST(data, n, dims, cfg)
	if err != nil {
		return nil, err
	}

	lossResult, err := computeLoss(edges, labels, cfg.Alpha, cfg.Mode, cfg.PretrainBalance, cfg.Workers)
	if err != nil {
		return nil, err
	}

	return &Result{LossResult: lossResult, Edges: edges, N: n, Dims: dims}, nil
}

// LossForPoints is the flat-point counterpart of Loss: it runs the same
// MST, pair-count, and loss pipeline on an already-flattened point store.
// No coordinate augmentation is applied; the points are used as given.
func LossForPoints(pts *Points, cfg Config) (*Result, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	if len(pts.Labels) != pts.N {
		return nil, invalidInputf("got %d labels for %d points", len(pts.Labels), pts.N)
	}

	if pts.N == 1 {
		return &Result{LossResult: degenerateLossResult(), Edges: []Edge{}, N: 1, Dims: pts.Dims}, nil
	}

	edges, err := BuildMST(pts.Data, pts.N, pts.Dims, cfg)
	if err != nil {
		return nil, err
	}
	lossResult, err := computeLoss(edges, pts.Labels, cfg.Alpha, cfg.Mode, cfg.PretrainBalance, cfg.Workers)
	if err != nil {
		return nil, err
	}
	return &Result{LossResult: lossResult, Edges: edges, N: pts.N, Dims: pts.Dims}, nil
}

// validateVolume checks the volume's shape invariants.
func validateVolume(vol Volume) error {
	if vol.K <= 0 || vol.D <= 0 || vol.H <= 0 || vol.W <= 0 {
		return invalidInputf("volume shape (k=%d, d=%d, h=%d, w=%d) must be positive",
			vol.K, vol.D, vol.H, vol.W)
	}
	voxels := vol.D * vol.H * vol.W
	if len(vol.Embedding) != vol.K*voxels {
		return invalidInputf("embedding length %d does not match k*d*h*w = %d",
			len(vol.Embedding), vol.K*voxels)
	}
	if len(vol.Labels) != voxels {
		return invalidInputf("labels length %d does not match d*h*w = %d", len(vol.Labels), voxels)
	}
	if vol.Mask != nil && len(vol.Mask) != voxels {
		return invalidInputf("mask length %d does not match d*h*w = %d", len(vol.Mask), voxels)
	}
	return nil
}

// flattenVolume converts the channel-major volume into a flat row-major
// point list, appending scaled (z, y, x) coordinates when configured and
// dropping masked-out voxels. Surviving points keep their z, y, x scan
// order, renumbered densely.
func flattenVolume(vol Volume, cfg Config) (data []float64, labels []int, dims int) {
	voxels := vol.D * vol.H * vol.W
	dims = vol.K
	if cfg.AddCoordinates {
		dims += 3
	}

	kept := voxels
	if vol.Mask != nil {
		kept = 0
		for _, m := range vol.Mask {
			if m {
				kept++
			}
		}
	}

	data = make([]float64, 0, kept*dims)
	labels = make([]int, 0, kept)
	scale := cfg.CoordinateScale

	v := 0
	for z := 0; z < vol.D; z++ {
		for y := 0; y < vol.H; y++ {
			for x := 0; x < vol.W; x++ {
				if vol.Mask != nil && !vol.Mask[v] {
					v++
					continue
				}
				for k := 0; k < vol.K; k++ {
					data = append(data, vol.Embedding[k*voxels+v])
				}
				if cfg.AddCoordinates {
					data = append(data,
						float64(z)*scale[0],
						float64(y)*scale[1],
						float64(x)*scale[2],
					)
				}
				labels = append(labels, vol.Labels[v])
				v++
			}
		}
	}

	return data, labels, dims
}

// warnMarginRange logs an advisory warning when the margin exceeds the
// ultrametric range attainable under coordinate augmentation. The bound
// assumes embedding channels in [0, 1]: the smallest possible edge is one
// step along the cheapest axis, the largest is one step along the most
// expensive axis plus the full channel range.
func warnMarginRange(cfg Config, k int) {
	minScale := floats.Min(cfg.CoordinateScale)
	maxScale := floats.Max(cfg.CoordinateScale)
	minD := minScale
	maxD := math.Sqrt(maxScale*maxScale + float64(k))

	if maxD-minD < cfg.Alpha {
		cfg.Logger.Warn("margin exceeds attainable ultrametric range; "+
			"assumes embedding values in [0, 1]",
			zap.Float64("alpha", cfg.Alpha),
			zap.Float64("min", minD),
			zap.Float64("max", maxD),
		)
	}
}
