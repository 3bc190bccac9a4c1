package acwr

import (
	"fmt"
	"time"
)

// GapKind identifies why a calculation could not produce numbers.
type GapKind string

const (
	GapNoData              GapKind = "no_data"
	GapNoAcuteData         GapKind = "no_acute_data"
	GapNoChronicData       GapKind = "no_chronic_data"
	GapFutureDates         GapKind = "future_dates"
	GapInsufficientChronic GapKind = "insufficient_chronic_data"
)

// DataGap describes a data-sufficiency condition. It is a result, not an
// error: "new user, no history yet" is routine and callers branch on Kind.
type DataGap struct {
	Kind    GapKind
	Message string
}

// Data-quality buckets, assessed from how many days in each window actually
// have recorded activity.
const (
	QualityExcellent = "excellent"
	QualityGood      = "good"
	QualityFair      = "fair"
	QualityPoor      = "poor"
)

// Metrics is the numeric outcome of an enhanced ACWR calculation. Every
// float field is rounded to 3 decimals.
type Metrics struct {
	AcuteLoadAvg         float64
	AcuteTRIMPAvg        float64
	ChronicLoad          float64
	ChronicTRIMP         float64
	LoadRatio            float64
	TRIMPRatio           float64
	NormalizedDivergence float64
	DecayRate            float64
	Method               string
	DataQuality          string

	// Set only by the optimized path.
	Optimization     string
	BatchesProcessed int
}

// Report is the two-variant outcome of an enhanced ACWR calculation: exactly
// one of Computed or Gap is non-nil.
type Report struct {
	Computed *Metrics
	Gap      *DataGap
}

// DefaultMinChronicDays is the minimum number of distinct days of chronic
// history required before a ratio is considered meaningful.
const DefaultMinChronicDays = 7

// EnhancedACWR runs the decay-weighted ACWR calculation over separate acute
// and chronic activity windows sharing a decay rate and reference date. Data
// sufficiency problems come back as a Report gap; parameter problems are
// errors.
func EnhancedACWR(acute, chronic []Activity, decayRate float64, refDate time.Time) (Report, error) {
	return enhanced(acute, chronic, decayRate, refDate, DefaultChronicPeriodDays, DefaultMinChronicDays)
}

func enhanced(acute, chronic []Activity, decayRate float64, refDate time.Time, chronicPeriodDays, minChronicDays int) (Report, error) {
	if !ValidateDecayRate(decayRate) {
		return Report{}, fmt.Errorf("%w: got %g", ErrInvalidDecayRate, decayRate)
	}

	if gap := detectGap(acute, chronic, refDate, minChronicDays); gap != nil {
		return Report{Gap: gap}, nil
	}

	acuteRes, err := WeightedAverages(acute, decayRate, refDate)
	if err != nil {
		return Report{}, err
	}
	chronicRes, err := WeightedAverages(chronic, decayRate, refDate)
	if err != nil {
		return Report{}, err
	}

	m := combine(acuteRes, chronicRes)
	m.DataQuality = assessQuality(acute, chronic, refDate, chronicPeriodDays)
	return Report{Computed: &m}, nil
}

// combine derives the ratio and divergence metrics from the two window
// averages.
func combine(acute, chronic DecayResult) Metrics {
	loadRatio := SafeRatio(acute.WeightedLoadAvg, chronic.WeightedLoadAvg)
	trimpRatio := SafeRatio(acute.WeightedTRIMPAvg, chronic.WeightedTRIMPAvg)

	return Metrics{
		AcuteLoadAvg:         acute.WeightedLoadAvg,
		AcuteTRIMPAvg:        acute.WeightedTRIMPAvg,
		ChronicLoad:          chronic.WeightedLoadAvg,
		ChronicTRIMP:         chronic.WeightedTRIMPAvg,
		LoadRatio:            Round3(loadRatio),
		TRIMPRatio:           Round3(trimpRatio),
		NormalizedDivergence: Round3(Divergence(loadRatio, trimpRatio)),
		DecayRate:            acute.DecayRate,
		Method:               MethodExponentialDecay,
	}
}

// detectGap applies the ordered edge-case policy; the first matching
// condition wins so callers always receive one unambiguous diagnostic.
func detectGap(acute, chronic []Activity, refDate time.Time, minChronicDays int) *DataGap {
	switch {
	case len(acute) == 0 && len(chronic) == 0:
		return &DataGap{Kind: GapNoData, Message: "no activity data in either window"}
	case len(acute) == 0:
		return &DataGap{Kind: GapNoAcuteData, Message: "no activity data in the acute window"}
	case len(chronic) == 0:
		return &DataGap{Kind: GapNoChronicData, Message: "no activity data in the chronic window"}
	}

	for _, set := range [][]Activity{acute, chronic} {
		for _, a := range set {
			if DaysBetween(a.Date, refDate) < 0 {
				return &DataGap{
					Kind:    GapFutureDates,
					Message: fmt.Sprintf("activity dated %s is after the reference date %s", Day(a.Date).Format("2006-01-02"), Day(refDate).Format("2006-01-02")),
				}
			}
		}
	}

	if days := distinctDays(chronic); days < minChronicDays {
		return &DataGap{
			Kind:    GapInsufficientChronic,
			Message: fmt.Sprintf("chronic window has %d days of data, need at least %d", days, minChronicDays),
		}
	}

	return nil
}

// SafeRatio divides num by den, defining the result as 0 when the denominator
// is 0. The ratio is never an error condition.
func SafeRatio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// Divergence is the symmetric relative difference between the external
// (load) and internal (TRIMP) ratios. It is 0 unless both ratios are
// positive; values near 0 mean the two training-stress signals agree.
func Divergence(external, internal float64) float64 {
	if external <= 0 || internal <= 0 {
		return 0
	}
	return (external - internal) / ((external + internal) / 2)
}

// assessQuality buckets the fraction of days in each window that carry
// recorded activity.
func assessQuality(acute, chronic []Activity, refDate time.Time, chronicPeriodDays int) string {
	acuteCover := float64(distinctDaysWithin(acute, refDate, acuteWindowDays)) / float64(acuteWindowDays)
	chronicCover := float64(distinctDaysWithin(chronic, refDate, chronicPeriodDays)) / float64(chronicPeriodDays)
	cover := (acuteCover + chronicCover) / 2

	switch {
	case cover >= 0.8:
		return QualityExcellent
	case cover >= 0.6:
		return QualityGood
	case cover >= 0.4:
		return QualityFair
	default:
		return QualityPoor
	}
}

// acuteWindowDays is the standard short-window length used when assessing
// acute coverage.
const acuteWindowDays = 7
