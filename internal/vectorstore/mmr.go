package vectorstore

// MMR selects up to k candidate indices by maximal marginal relevance.
// The first pick is the candidate most similar to query; each later pick
// maximizes lambda*sim(query, c) - (1-lambda)*max sim(c, picked).
// Ties go to the earlier candidate.
func MMR(query []float32, candidates [][]float32, k int, lambda float64) []int {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	relevance := make([]float64, len(candidates))
	for i, c := range candidates {
		relevance[i] = float64(Cosine(query, c))
	}

	picked := make([]int, 0, k)
	used := make([]bool, len(candidates))
	// redundancy[i] is the max similarity of candidate i to any picked one.
	redundancy := make([]float64, len(candidates))

	for len(picked) < k {
		best := -1
		var bestScore float64
		for i := range candidates {
			if used[i] {
				continue
			}
			score := relevance[i]
			if len(picked) > 0 {
				score = lambda*relevance[i] - (1-lambda)*redundancy[i]
			}
			if best == -1 || score > bestScore {
				best, bestScore = i, score
			}
		}

		picked = append(picked, best)
		used[best] = true
		for i, c := range candidates {
			if used[i] {
				continue
			}
			sim := float64(Cosine(c, candidates[best]))
			if len(picked) == 1 || sim > redundancy[i] {
				redundancy[i] = sim
			}
		}
	}
	return picked
}
