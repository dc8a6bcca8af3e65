package aggregate

import (
	"math"
	"sort"
)

// bucketGrowth is the ratio between consecutive histogram bucket upper
// bounds. It bounds the relative error of approximate quantiles.
const bucketGrowth = 1.2

// RunningStats tracks mean, variance, max and approximate quantiles of
// a sample stream without retaining the samples.
//
// Mean and variance use Welford's online method with the pairwise
// merge formula, so two RunningStats folded over disjoint streams
// merge into the exact single-stream result. Quantiles come from an
// exponential-bucket histogram: each positive sample lands in the
// bucket whose upper bound is the smallest power of bucketGrowth not
// below it. The sketch is deterministic and merges by summing bucket
// counts, unlike a sampling reservoir.
type RunningStats struct {
	count int64
	mean  float64
	m2    float64
	max   float64

	buckets map[int]int64
}

// NewRunningStats returns an empty accumulator.
func NewRunningStats() *RunningStats {
	return &RunningStats{buckets: make(map[int]int64)}
}

// Observe folds one sample into the statistics.
func (r *RunningStats) Observe(v float64) {
	r.count++
	delta := v - r.mean
	r.mean += delta / float64(r.count)
	r.m2 += delta * (v - r.mean)

	if v > r.max {
		r.max = v
	}
	r.buckets[bucketIndex(v)]++
}

// Merge combines another accumulator into r. Merging is commutative
// and associative up to floating-point rounding.
func (r *RunningStats) Merge(other *RunningStats) {
	if other == nil || other.count == 0 {
		return
	}
	if r.count == 0 {
		r.count = other.count
		r.mean = other.mean
		r.m2 = other.m2
		r.max = other.max
		r.buckets = make(map[int]int64, len(other.buckets))
		for idx, n := range other.buckets {
			r.buckets[idx] = n
		}
		return
	}

	total := r.count + other.count
	delta := other.mean - r.mean
	r.m2 += other.m2 + delta*delta*float64(r.count)*float64(other.count)/float64(total)
	r.mean += delta * float64(other.count) / float64(total)
	r.count = total

	if other.max > r.max {
		r.max = other.max
	}
	for idx, n := range other.buckets {
		r.buckets[idx] += n
	}
}

// Count returns the number of observed samples.
func (r *RunningStats) Count() int64 {
	return r.count
}

// Mean returns the sample mean, zero when empty.
func (r *RunningStats) Mean() float64 {
	return r.mean
}

// Variance returns the sample variance, zero for fewer than two
// samples.
func (r *RunningStats) Variance() float64 {
	if r.count < 2 {
		return 0
	}
	return r.m2 / float64(r.count-1)
}

// Max returns the largest observed sample, zero when empty.
func (r *RunningStats) Max() float64 {
	return r.max
}

// P95 returns the approximate 95th percentile.
func (r *RunningStats) P95() float64 {
	return r.Quantile(0.95)
}

// Quantile returns the approximate q-quantile (0 < q <= 1) as the
// upper bound of the histogram bucket holding the q-th sample, capped
// at the observed maximum.
func (r *RunningStats) Quantile(q float64) float64 {
	if r.count == 0 {
		return 0
	}

	indices := make([]int, 0, len(r.buckets))
	for idx := range r.buckets {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	rank := int64(math.Ceil(q * float64(r.count)))
	if rank < 1 {
		rank = 1
	}

	var seen int64
	for _, idx := range indices {
		seen += r.buckets[idx]
		if seen >= rank {
			return math.Min(bucketUpperBound(idx), r.max)
		}
	}
	return r.max
}

// bucketIndex returns the histogram bucket for a sample. Non-positive
// samples share the lowest bucket.
func bucketIndex(v float64) int {
	if v <= 0 {
		return math.MinInt32
	}
	return int(math.Ceil(math.Log(v) / math.Log(bucketGrowth)))
}

// bucketUpperBound returns the largest value a bucket can hold.
func bucketUpperBound(idx int) float64 {
	if idx == math.MinInt32 {
		return 0
	}
	return math.Pow(bucketGrowth, float64(idx))
}
