package analysis

import (
	"fmt"
	"math"
	"math/rand"
)

// Partitioner assigns each row to one of k clusters.
type Partitioner interface {
	Partition(rows [][]float64, k int) ([]int, error)
}

// KMeans is a plain Lloyd's k-means over dense rows. The seed fixes the
// centroid initialization, so the same rows, k and seed always yield the
// same labels; best-of-Restarts by inertia smooths out bad starts.
type KMeans struct {
	Seed     int64
	Restarts int
	MaxIter  int
}

// NewKMeans builds a partitioner from the cluster config.
func NewKMeans(cfg ClusterConfig) *KMeans {
	return &KMeans{Seed: cfg.Seed, Restarts: cfg.Restarts, MaxIter: cfg.MaxIter}
}

// Partition runs Restarts independent k-means fits and returns the labels
// of the fit with the lowest inertia. Clusters may come out empty when k
// exceeds the number of distinct rows; callers must tolerate unused label
// values in [0, k).
func (km *KMeans) Partition(rows [][]float64, k int) ([]int, error) {
	if k < 1 {
		return nil, fmt.Errorf("kmeans: k must be >= 1, got %d", k)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("kmeans: no rows to partition")
	}
	restarts := km.Restarts
	if restarts < 1 {
		restarts = 1
	}
	maxIter := km.MaxIter
	if maxIter < 1 {
		maxIter = 100
	}

	rng := rand.New(rand.NewSource(km.Seed))

	var bestLabels []int
	bestInertia := math.Inf(1)
	for r := 0; r < restarts; r++ {
		labels, inertia := km.fit(rows, k, maxIter, rng)
		if inertia < bestInertia {
			bestInertia = inertia
			bestLabels = labels
		}
	}
	return bestLabels, nil
}

func (km *KMeans) fit(rows [][]float64, k, maxIter int, rng *rand.Rand) ([]int, float64) {
	dim := len(rows[0])

	// Seed centroids from randomly drawn rows.
	centroids := make([][]float64, k)
	for c := 0; c < k; c++ {
		src := rows[rng.Intn(len(rows))]
		centroids[c] = append([]float64(nil), src...)
	}

	labels := make([]int, len(rows))
	counts := make([]int, k)
	sums := make([][]float64, k)
	for c := range sums {
		sums[c] = make([]float64, dim)
	}

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, row := range rows {
			best, bestDist := 0, sqDist(row, centroids[0])
			for c := 1; c < k; c++ {
				if d := sqDist(row, centroids[c]); d < bestDist {
					best, bestDist = c, d
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		for c := 0; c < k; c++ {
			counts[c] = 0
			for j := range sums[c] {
				sums[c][j] = 0
			}
		}
		for i, row := range rows {
			c := labels[i]
			counts[c]++
			for j, v := range row {
				sums[c][j] += v
			}
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// Empty cluster keeps its position; it may capture
				// rows again on a later iteration.
				continue
			}
			for j := range centroids[c] {
				centroids[c][j] = sums[c][j] / float64(counts[c])
			}
		}
	}

	inertia := 0.0
	for i, row := range rows {
		inertia += sqDist(row, centroids[labels[i]])
	}
	return labels, inertia
}

func sqDist(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
