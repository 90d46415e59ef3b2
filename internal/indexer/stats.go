package indexer

import (
	"math"
	"sort"
)

// ChunkStats summarizes chunk lengths (in runes) for an ingestion run.
type ChunkStats struct {
	Count int     `json:"count"`
	Min   int     `json:"min"`
	Max   int     `json:"max"`
	Mean  float64 `json:"mean"`
	P95   int     `json:"p95"`
}

// ComputeChunkStats computes length statistics over chunks.
func ComputeChunkStats(chunks []Chunk) ChunkStats {
	lengths := make([]int, len(chunks))
	for i, c := range chunks {
		lengths[i] = c.Length
	}
	return computeLengthStats(lengths)
}

// computeLengthStats computes count, min, max, mean, and p95.
func computeLengthStats(lengths []int) ChunkStats {
	if len(lengths) == 0 {
		return ChunkStats{}
	}

	// Sort for percentile calculation
	sorted := make([]int, len(lengths))
	copy(sorted, lengths)
	sort.Ints(sorted)

	sum := 0
	for _, n := range lengths {
		sum += n
	}
	mean := float64(sum) / float64(len(lengths))

	p95Index := int(math.Ceil(float64(len(sorted)) * 0.95))
	if p95Index >= len(sorted) {
		p95Index = len(sorted) - 1
	}

	return ChunkStats{
		Count: len(sorted),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Mean:  math.Round(mean*100) / 100, // Round to 2 decimal places
		P95:   sorted[p95Index],
	}
}
