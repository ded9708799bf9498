// Package analysis implements the match-clustering and build-variation
// mining pipeline: feature-matrix construction, k-means partitioning,
// per-cluster item statistics, core-item selection, pairwise association
// (lift/PMI) and variation synthesis.
//
// Every component is a pure function of its inputs plus an explicit config
// struct; there is no package-level mutable state, and identical inputs with
// identical configuration always produce identical output.
package analysis

import (
	"fmt"
	"strings"
)

// Scope selects which rounds of each match contribute item presence. The
// same scope value must be threaded through the feature matrix, the pair
// table and the variation stage; the artifact layer records it so a
// mismatch between independently produced stages is detectable.
type Scope struct {
	Final bool // final round only
	TopN  int  // last-N rounds when Final is false
}

// ParseScope validates a scope flag pair ("final" or "topn" + N).
func ParseScope(kind string, topN int) (Scope, error) {
	switch strings.ToLower(kind) {
	case "final":
		return Scope{Final: true}, nil
	case "topn":
		if topN < 1 {
			return Scope{}, fmt.Errorf("scope topn requires --topn >= 1, got %d", topN)
		}
		return Scope{TopN: topN}, nil
	default:
		return Scope{}, fmt.Errorf("unknown scope %q (want final or topn)", kind)
	}
}

// LastN is the number of trailing rounds the scope covers.
func (s Scope) LastN() int {
	if s.Final {
		return 1
	}
	return s.TopN
}

// Tag is the scope's artifact tag, e.g. "final" or "top3".
func (s Scope) Tag() string {
	if s.Final {
		return "final"
	}
	return fmt.Sprintf("top%d", s.TopN)
}

// ClusterConfig shapes the feature matrix and the k-means partitioning.
type ClusterConfig struct {
	// K is the fixed number of clusters.
	K int

	// MinItemFreq is the minimum number of in-scope matches an item must
	// appear in to become a matrix column.
	MinItemFreq int

	// MaxItems caps the retained columns at the most frequent items.
	MaxItems int

	// Seed and Restarts make the partitioning reproducible: the best of
	// Restarts seeded runs (by within-cluster sum of squares) wins.
	Seed     int64
	Restarts int

	// MaxIter bounds the Lloyd iterations of a single run.
	MaxIter int
}

func DefaultClusterConfig() ClusterConfig {
	return ClusterConfig{
		K:           8,
		MinItemFreq: 15,
		MaxItems:    300,
		Seed:        42,
		Restarts:    20,
		MaxIter:     100,
	}
}

// CoreConfig holds the core-item selection thresholds.
type CoreConfig struct {
	TopK           int
	MinClusterRate float64
	MinLift        float64
	MinCount       int

	// StapleMaxGlobalRate caps out near-universal items; <= 0 disables
	// the staple filter.
	StapleMaxGlobalRate float64
}

func DefaultCoreConfig() CoreConfig {
	return CoreConfig{
		TopK:                8,
		MinClusterRate:      0.30,
		MinLift:             1.20,
		MinCount:            10,
		StapleMaxGlobalRate: 0.65,
	}
}

// PairConfig holds the pairwise association threshold.
type PairConfig struct {
	// MinPairCount drops pairs co-occurring in fewer matches.
	MinPairCount int
}

func DefaultPairConfig() PairConfig {
	return PairConfig{MinPairCount: 20}
}

// VariationConfig holds the variation synthesis thresholds.
type VariationConfig struct {
	// MinClusterRate is the candidate-eligibility floor, deliberately
	// looser than CoreConfig.MinClusterRate.
	MinClusterRate float64

	// MinRateAdvantage may be slightly negative to admit "glue" items
	// that support a build without being over-represented.
	MinRateAdvantage float64

	MinLift float64
	MinPMI  float64

	MaxPerCluster   int
	CorePreviewSize int
}

func DefaultVariationConfig() VariationConfig {
	return VariationConfig{
		MinClusterRate:   0.08,
		MinRateAdvantage: -0.01,
		MinLift:          1.5,
		MinPMI:           0.5,
		MaxPerCluster:    40,
		CorePreviewSize:  4,
	}
}
