package acwr

import (
	"fmt"
	"time"
)

// Defaults for the optimized calculation path.
const (
	DefaultDecayRate         = 0.1
	DefaultChronicPeriodDays = 28
	DefaultBatchSize         = 1000
)

// Strategy tags reported in Metrics.Optimization.
const (
	OptimizationStandard      = "standard"
	OptimizationCachedWeights = "cached_weights"
	OptimizationChunked       = "chunked"
)

// Size thresholds for strategy selection. Below standardThreshold the plain
// per-activity loop wins; above chunkThreshold partial sums are accumulated
// per chunk to bound the working set.
const (
	standardThreshold = 50
	chunkThreshold    = 1000
)

// OptimizeOptions tunes the optimized calculation. Zero numeric fields fall
// back to the package defaults; UseCaching is taken as given, so start from
// DefaultOptimizeOptions when the caller wants caching enabled.
type OptimizeOptions struct {
	DecayRate         float64
	ChronicPeriodDays int
	UseCaching        bool
	BatchSize         int
	MinChronicDays    int
}

// DefaultOptimizeOptions returns the options the service layer starts from.
func DefaultOptimizeOptions() OptimizeOptions {
	return OptimizeOptions{
		DecayRate:         DefaultDecayRate,
		ChronicPeriodDays: DefaultChronicPeriodDays,
		UseCaching:        true,
		BatchSize:         DefaultBatchSize,
		MinChronicDays:    DefaultMinChronicDays,
	}
}

func (o OptimizeOptions) withDefaults() OptimizeOptions {
	if o.DecayRate == 0 {
		o.DecayRate = DefaultDecayRate
	}
	if o.ChronicPeriodDays == 0 {
		o.ChronicPeriodDays = DefaultChronicPeriodDays
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.MinChronicDays <= 0 {
		o.MinChronicDays = DefaultMinChronicDays
	}
	return o
}

// EnhancedACWROptimized is the performance-tiered variant of EnhancedACWR.
// It picks standard, cached-weight, or chunked evaluation for the chronic
// set based on its size; the three strategies are numerically equivalent and
// only the Optimization tag (and BatchesProcessed for the chunked path)
// reveals which one ran.
func EnhancedACWROptimized(acute, chronic []Activity, refDate time.Time, opts OptimizeOptions) (Report, error) {
	opts = opts.withDefaults()

	if !ValidateDecayRate(opts.DecayRate) {
		return Report{}, fmt.Errorf("%w: got %g", ErrInvalidDecayRate, opts.DecayRate)
	}
	if !ValidateChronicPeriod(opts.ChronicPeriodDays) {
		return Report{}, fmt.Errorf("%w: got %d", ErrInvalidChronicPeriod, opts.ChronicPeriodDays)
	}

	if gap := detectGap(acute, chronic, refDate, opts.MinChronicDays); gap != nil {
		return Report{Gap: gap}, nil
	}

	// The acute window holds at most a handful of entries; it always takes
	// the standard path.
	acuteRes, err := WeightedAverages(acute, opts.DecayRate, refDate)
	if err != nil {
		return Report{}, err
	}

	var (
		chronicRes DecayResult
		batches    int
		tag        string
	)
	switch {
	case len(chronic) <= standardThreshold || !opts.UseCaching && len(chronic) <= chunkThreshold:
		tag = OptimizationStandard
		chronicRes, err = WeightedAverages(chronic, opts.DecayRate, refDate)
	case len(chronic) <= chunkThreshold:
		tag = OptimizationCachedWeights
		chronicRes, err = cachedWeightedAverages(chronic, opts.DecayRate, refDate)
	default:
		tag = OptimizationChunked
		chronicRes, batches, err = chunkedWeightedAverages(chronic, opts.DecayRate, refDate, opts.BatchSize)
	}
	if err != nil {
		return Report{}, err
	}

	m := combine(acuteRes, chronicRes)
	m.DataQuality = assessQuality(acute, chronic, refDate, opts.ChronicPeriodDays)
	m.Optimization = tag
	m.BatchesProcessed = batches
	return Report{Computed: &m}, nil
}

// cachedWeightedAverages evaluates the set against a precomputed
// days-ago -> weight table. The table is local to one invocation.
func cachedWeightedAverages(activities []Activity, decayRate float64, refDate time.Time) (DecayResult, error) {
	maxAgo, err := maxDaysAgo(activities, refDate)
	if err != nil {
		return DecayResult{}, err
	}

	table := weightTable(maxAgo, decayRate)

	res := DecayResult{DecayRate: decayRate, Method: MethodExponentialDecay}
	for _, a := range activities {
		w := table[DaysBetween(a.Date, refDate)]
		res.WeightedLoadSum += w * a.LoadMiles
		res.WeightedTRIMPSum += w * a.TRIMP
		res.TotalWeight += w
	}
	res.ActivityCount = len(activities)
	res.finish()
	return res, nil
}

// chunkedWeightedAverages accumulates partial weighted sums per fixed-size
// chunk and combines them, bounding the peak working set for very large
// inputs. Returns the number of chunks processed.
func chunkedWeightedAverages(activities []Activity, decayRate float64, refDate time.Time, batchSize int) (DecayResult, int, error) {
	maxAgo, err := maxDaysAgo(activities, refDate)
	if err != nil {
		return DecayResult{}, 0, err
	}

	table := weightTable(maxAgo, decayRate)

	res := DecayResult{DecayRate: decayRate, Method: MethodExponentialDecay}
	batches := 0
	for start := 0; start < len(activities); start += batchSize {
		end := start + batchSize
		if end > len(activities) {
			end = len(activities)
		}

		var loadSum, trimpSum, weightSum float64
		for _, a := range activities[start:end] {
			w := table[DaysBetween(a.Date, refDate)]
			loadSum += w * a.LoadMiles
			trimpSum += w * a.TRIMP
			weightSum += w
		}

		res.WeightedLoadSum += loadSum
		res.WeightedTRIMPSum += trimpSum
		res.TotalWeight += weightSum
		batches++
	}

	res.ActivityCount = len(activities)
	res.finish()
	return res, batches, nil
}

func maxDaysAgo(activities []Activity, refDate time.Time) (int, error) {
	maxAgo := 0
	for _, a := range activities {
		ago := DaysBetween(a.Date, refDate)
		if ago < 0 {
			return 0, fmt.Errorf("activity on %s: %w", Day(a.Date).Format("2006-01-02"), ErrFutureActivity)
		}
		if ago > maxAgo {
			maxAgo = ago
		}
	}
	return maxAgo, nil
}
