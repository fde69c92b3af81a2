package service

import (
	"math"
	"sort"
)

const kmeansMaxIterations = 10

// SelectDiverse picks up to n recipes spread across the embedding space.
// Candidates are clustered with k-means and the highest-similarity recipe of
// each cluster is kept, so near-duplicate recipes collapse into one slot.
// When there are n or fewer candidates they are returned unchanged.
//
// embeddings[i] must correspond to recipes[i]. Seeding is farthest-point from
// the first candidate, so the selection is deterministic.
func SelectDiverse(recipes []ScoredRecipe, embeddings [][]float32, n int) []ScoredRecipe {
	if n <= 0 {
		return nil
	}
	if len(recipes) <= n {
		return recipes
	}
	if len(embeddings) != len(recipes) {
		return recipes[:n]
	}

	vectors := make([][]float64, len(embeddings))
	for i, e := range embeddings {
		vectors[i] = normalizeUnit(toFloat64(e))
	}

	labels := kmeans(vectors, n)

	// Top similarity per cluster.
	best := make(map[int]int, n)
	for i, label := range labels {
		if cur, ok := best[label]; !ok || recipes[i].Similarity > recipes[cur].Similarity {
			best[label] = i
		}
	}

	selected := make([]ScoredRecipe, 0, len(best))
	for _, idx := range best {
		selected = append(selected, recipes[idx])
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Similarity > selected[j].Similarity
	})
	return selected
}

// kmeans assigns each vector to one of k clusters. Centroids are seeded with
// farthest-point sampling starting from vector 0, then refined with a bounded
// number of Lloyd iterations. Empty clusters keep their previous centroid.
func kmeans(vectors [][]float64, k int) []int {
	if k > len(vectors) {
		k = len(vectors)
	}

	centroids := make([][]float64, 0, k)
	centroids = append(centroids, vectors[0])
	for len(centroids) < k {
		farthest, minBest := 0, math.Inf(1)
		for i, v := range vectors {
			nearest := math.Inf(-1)
			for _, c := range centroids {
				if sim := dot(v, c); sim > nearest {
					nearest = sim
				}
			}
			if nearest < minBest {
				minBest = nearest
				farthest = i
			}
		}
		centroids = append(centroids, vectors[farthest])
	}

	labels := make([]int, len(vectors))
	for iter := 0; iter < kmeansMaxIterations; iter++ {
		changed := false
		for i, v := range vectors {
			bestCluster, bestSim := 0, math.Inf(-1)
			for c, centroid := range centroids {
				if sim := dot(v, centroid); sim > bestSim {
					bestSim = sim
					bestCluster = c
				}
			}
			if labels[i] != bestCluster {
				labels[i] = bestCluster
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		for c := range centroids {
			members := make([][]float64, 0)
			for i, label := range labels {
				if label == c {
					members = append(members, vectors[i])
				}
			}
			if len(members) > 0 {
				centroids[c] = normalizeUnit(meanVector(members))
			}
		}
	}
	return labels
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func dot(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func meanVector(vectors [][]float64) []float64 {
	mean := make([]float64, len(vectors[0]))
	for _, v := range vectors {
		for i, x := range v {
			mean[i] += x
		}
	}
	for i := range mean {
		mean[i] /= float64(len(vectors))
	}
	return mean
}

func normalizeUnit(v []float64) []float64 {
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return v
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
