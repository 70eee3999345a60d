// Package concentration measures how concentrated a portfolio's weights are.
package concentration

import (
	"math"
	"sort"
)

// UnknownBucket holds weight whose category is missing.
const UnknownBucket = "Unknown"

// Metrics summarizes position concentration on absolute weights renormalized to 1.
type Metrics struct {
	Largest            float64 `json:"largest"`
	LargestSymbol      string  `json:"largest_symbol"`
	Top3               float64 `json:"top3"`
	Top5               float64 `json:"top5"`
	Top10              float64 `json:"top10"`
	HHI                float64 `json:"hhi"`
	EffectivePositions float64 `json:"effective_positions"`
	Positions          int     `json:"positions"`
}

type weighted struct {
	key    string
	weight float64
}

// normalize takes absolute weights, drops zeros and sorts descending (ties by key).
func normalize(weights map[string]float64) []weighted {
	total := 0.0
	for _, w := range weights {
		total += math.Abs(w)
	}
	out := make([]weighted, 0, len(weights))
	if total == 0 {
		return out
	}
	for k, w := range weights {
		if w == 0 {
			continue
		}
		out = append(out, weighted{key: k, weight: math.Abs(w) / total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].weight != out[j].weight {
			return out[i].weight > out[j].weight
		}
		return out[i].key < out[j].key
	})
	return out
}

func topN(w []weighted, n int) float64 {
	sum := 0.0
	for i := 0; i < n && i < len(w); i++ {
		sum += w[i].weight
	}
	return sum
}

func herfindahl(w []weighted) (hhi, effective float64) {
	for _, x := range w {
		hhi += x.weight * x.weight
	}
	if hhi > 0 {
		effective = 1 / hhi
	}
	return
}

// Analyze computes concentration metrics for weights.
func Analyze(weights map[string]float64) Metrics {
	w := normalize(weights)
	m := Metrics{Positions: len(w)}
	if len(w) == 0 {
		return m
	}
	m.Largest = w[0].weight
	m.LargestSymbol = w[0].key
	m.Top3 = topN(w, 3)
	m.Top5 = topN(w, 5)
	m.Top10 = topN(w, 10)
	m.HHI, m.EffectivePositions = herfindahl(w)
	return m
}

// Bucket is the weight held in one category.
type Bucket struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Count  int     `json:"count"`
}

// BucketMetrics is concentration across categories (sector, market cap, ...).
type BucketMetrics struct {
	Buckets          []Bucket `json:"buckets"`
	HHI              float64  `json:"hhi"`
	EffectiveBuckets float64  `json:"effective_buckets"`
}

// Buckets groups weights by categoryOf. Symbols without a category go to UnknownBucket.
func Buckets(weights map[string]float64, categoryOf func(symbol string) string) BucketMetrics {
	byName := make(map[string]float64)
	counts := make(map[string]int)
	for _, x := range normalize(weights) {
		name := ""
		if categoryOf != nil {
			name = categoryOf(x.key)
		}
		if name == "" {
			name = UnknownBucket
		}
		byName[name] += x.weight
		counts[name]++
	}

	w := normalize(byName)
	out := BucketMetrics{Buckets: make([]Bucket, len(w))}
	for i, b := range w {
		out.Buckets[i] = Bucket{Name: b.key, Weight: b.weight, Count: counts[b.key]}
	}
	out.HHI, out.EffectiveBuckets = herfindahl(w)
	return out
}

// FromMap adapts a symbol->category map for Buckets.
func FromMap(categories map[string]string) func(string) string {
	return func(symbol string) string { return categories[symbol] }
}

// Market capitalization buckets
const (
	MegaCap  = "Mega Cap"
	LargeCap = "Large Cap"
	MidCap   = "Mid Cap"
	SmallCap = "Small Cap"
	MicroCap = "Micro Cap"
)

// MarketCapBucket classifies a market capitalization in dollars.
func MarketCapBucket(marketCap float64) string {
	switch {
	case marketCap <= 0 || math.IsNaN(marketCap):
		return UnknownBucket
	case marketCap >= 200e9:
		return MegaCap
	case marketCap >= 10e9:
		return LargeCap
	case marketCap >= 2e9:
		return MidCap
	case marketCap >= 300e6:
		return SmallCap
	default:
		return MicroCap
	}
}
