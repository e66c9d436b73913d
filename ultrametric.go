package ultrametric

import (
	"math"
	"runtime"

	"go.uber.org/zap"
)

// Algorithm selects the MST construction strategy.
type Algorithm string

const (
	AlgorithmAuto          Algorithm = "auto"
	AlgorithmBrute         Algorithm = "brute"
	AlgorithmPrims         Algorithm = "prims"
	AlgorithmBoruvkaKDTree Algorithm = "boruvka_kdtree"
)

// Config controls loss computation. Start with [DefaultConfig] and override
// the fields you need.
type Config struct {
	// Alpha is the margin of the quadruplet loss: the desired separation
	// between negative-pair and positive-pair ultrametric distances.
	// Must be >= 0 and finite. Default: 0.1.
	Alpha float64

	// Mode selects the loss formulation: ModeFull (default) computes the
	// quadruplet loss over all positive/negative pair combinations;
	// ModePretrain computes the cheaper pair-only warm-start objective.
	Mode Mode

	// PretrainBalance controls ModePretrain normalization. If false (the
	// default), the total loss is pair-count-weighted, putting more
	// emphasis on whichever pair class occurs more frequently. If true,
	// positive and negative classes get equal weight regardless of their
	// pair counts. Ignored in ModeFull.
	PretrainBalance bool

	// AddCoordinates augments each point's feature vector with its
	// (z, y, x) grid coordinates before computing distances. Only used by
	// the volume pipeline (Loss). Default: true.
	AddCoordinates bool

	// CoordinateScale scales the appended coordinates per axis. A single
	// value broadcasts to all three axes. Must be positive and finite.
	// Default: [1, 1, 1].
	CoordinateScale []float64

	// Algorithm selects the MST construction strategy.
	// "auto" picks based on size and dimensionality. "brute" uses the
	// full distance matrix with Kruskal (O(n²) memory). "prims" uses
	// matrix-free Prim's (O(n) memory). "boruvka_kdtree" uses dual-tree
	// Borůvka (fastest for low-dimensional data). Default: "auto".
	Algorithm Algorithm

	// LeafSize controls the maximum number of points in a KD-tree leaf
	// node. Only used with the Borůvka algorithm. Default: 40.
	LeafSize int

	// Workers controls the number of goroutines for parallelizable stages
	// (pairwise distances, the full-mode loss double sum). Results are
	// bit-identical regardless of the worker count. 0 means
	// runtime.NumCPU().
	Workers int

	// Logger receives advisory diagnostics: the MST distance range and
	// margin sanity warnings. Diagnostics never affect results. Default:
	// zap.NewNop() (silent).
	Logger *zap.Logger
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Alpha:           0.1,
		Mode:            ModeFull,
		AddCoordinates:  true,
		CoordinateScale: []float64{1, 1, 1},
		Algorithm:       AlgorithmAuto,
		LeafSize:        40,
	}
}

// applyDefaults fills in zero-valued config fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.Mode == "" {
		cfg.Mode = ModeFull
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = AlgorithmAuto
	}
	if cfg.LeafSize == 0 {
		cfg.LeafSize = 40
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.CoordinateScale == nil {
		cfg.CoordinateScale = []float64{1, 1, 1}
	}
	if len(cfg.CoordinateScale) == 1 {
		s := cfg.CoordinateScale[0]
		cfg.CoordinateScale = []float64{s, s, s}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
}

// validateConfig checks that cfg fields are valid and returns a
// descriptive ErrInvalidInput if not.
func validateConfig(cfg *Config) error {
	if math.IsNaN(cfg.Alpha) || math.IsInf(cfg.Alpha, 0) || cfg.Alpha < 0 {
		return invalidInputf("Alpha must be finite and non-negative, got %v", cfg.Alpha)
	}
	switch cfg.Mode {
	case ModeFull, ModePretrain:
	default:
		return invalidInputf("invalid Mode %q", cfg.Mode)
	}
	switch cfg.Algorithm {
	case AlgorithmAuto, AlgorithmBrute, AlgorithmPrims, AlgorithmBoruvkaKDTree:
	default:
		return invalidInputf("invalid Algorithm %q", cfg.Algorithm)
	}
	if cfg.LeafSize < 1 {
		return invalidInputf("LeafSize must be >= 1, got %d", cfg.LeafSize)
	}
	if cfg.Workers < 1 {
		return invalidInputf("Workers must be >= 1 after defaulting, got %d", cfg.Workers)
	}
	if len(cfg.CoordinateScale) != 3 {
		return invalidInputf("CoordinateScale must have 1 or 3 entries, got %d", len(cfg.CoordinateScale))
	}
	for i, s := range cfg.CoordinateScale {
		if math.IsNaN(s) || math.IsInf(s, 0) || s <= 0 {
			return invalidInputf("CoordinateScale[%d] must be finite and positive, got %v", i, s)
		}
	}
	return nil
}
