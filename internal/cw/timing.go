// internal/cw/timing.go
package cw

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/cwio/morsewav/internal/dsp"
)

var (
	// ErrInsufficientSignal indicates fewer than two marks were detected.
	ErrInsufficientSignal = errors.New("not enough signal detected")
	// ErrNoTiming indicates the dot duration could not be determined.
	ErrNoTiming = errors.New("could not determine dot timing")
	// ErrZeroTiming indicates the estimated dot duration was zero.
	ErrZeroTiming = errors.New("no signal duration detected")
	// ErrInvalidTolerances indicates the classification ratios are not
	// strictly ordered.
	ErrInvalidTolerances = errors.New("tolerance ratios must satisfy 0 < dot_max < dash_min <= char_space < word_space")
)

// minMarkSpread is the mark-duration standard deviation (seconds) below
// which the signal is treated as uniform speed: every mark becomes a dot
// candidate instead of splitting around the mean.
const minMarkSpread = 0.02

// Tolerances are the classification thresholds as multiples of the dot unit.
// The band between DotMax and DashMin is deliberately ambiguous: marks
// landing there are neither dot nor dash and contribute no symbol. This is a
// documented limitation of duration-only classification.
type Tolerances struct {
	DotMax    float64 // longest mark still read as a dot
	DashMin   float64 // shortest mark read as a dash
	CharSpace float64 // shortest gap that closes a character
	WordSpace float64 // shortest gap that closes a word
}

// DefaultTolerances returns thresholds tolerant of operator "swing":
// dots up to 1.7 units, dashes from 2.0, characters close at 2.0 and words
// at 5.0 gap units.
func DefaultTolerances() Tolerances {
	return Tolerances{
		DotMax:    1.7,
		DashMin:   2.0,
		CharSpace: 2.0,
		WordSpace: 5.0,
	}
}

// Validate enforces the strict threshold ordering the decoder relies on.
func (t Tolerances) Validate() error {
	if t.DotMax <= 0 || t.DotMax >= t.DashMin || t.DashMin > t.CharSpace || t.CharSpace >= t.WordSpace {
		return ErrInvalidTolerances
	}
	return nil
}

// Timing is the per-decode timing model: the estimated dot unit plus the
// derived absolute thresholds in seconds. Nothing is persisted between
// decodes.
type Timing struct {
	DotSeconds   float64
	WPM          float64
	DotMax       float64
	DashMin      float64
	CharSpaceMin float64
	WordSpaceMin float64
}

// EstimateTiming infers the dot duration from the observed mark runs with no
// prior knowledge of the sender's speed. Marks with meaningful spread are
// split around their mean and the short ones taken as dot candidates (or
// synthesized as duration/3 when the signal is all dashes); uniform marks
// are all treated as dots. The estimate is the median candidate.
func EstimateTiming(runs []dsp.Run, tol Tolerances) (Timing, error) {
	if err := tol.Validate(); err != nil {
		return Timing{}, err
	}

	var marks []float64
	for _, r := range runs {
		if r.Keyed {
			marks = append(marks, r.Duration)
		}
	}
	if len(marks) < 2 {
		return Timing{}, ErrInsufficientSignal
	}

	dots := dotCandidates(marks)
	if len(dots) == 0 {
		return Timing{}, ErrNoTiming
	}

	dot := median(dots)
	if dot == 0 {
		return Timing{}, ErrZeroTiming
	}

	return timingFor(dot, tol), nil
}

// TimingForWPM builds the timing model for a caller-supplied speed, skipping
// estimation entirely.
func TimingForWPM(wpm float64, tol Tolerances) (Timing, error) {
	if err := tol.Validate(); err != nil {
		return Timing{}, err
	}
	if wpm <= 0 {
		return Timing{}, ErrInvalidWPM
	}
	return timingFor(DotUnit/wpm, tol), nil
}

func timingFor(dot float64, tol Tolerances) Timing {
	return Timing{
		DotSeconds:   dot,
		WPM:          DotUnit / dot,
		DotMax:       dot * tol.DotMax,
		DashMin:      dot * tol.DashMin,
		CharSpaceMin: dot * tol.CharSpace,
		WordSpaceMin: dot * tol.WordSpace,
	}
}

func dotCandidates(marks []float64) []float64 {
	mean := stat.Mean(marks, nil)
	spread := math.Sqrt(stat.Variance(marks, nil))

	if mean <= 0 || spread <= minMarkSpread {
		// Uniform speed: pure dots (or pure dashes read as dots, which
		// the WPM estimate then reflects).
		return marks
	}

	var dots []float64
	for _, d := range marks {
		if d < mean {
			dots = append(dots, d)
		}
	}
	if len(dots) == 0 {
		// All dashes: estimate the dot from the 3:1 ratio.
		dots = make([]float64, len(marks))
		for i, d := range marks {
			dots[i] = d / 3
		}
	}
	return dots
}

func median(xs []float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
