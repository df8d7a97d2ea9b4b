// internal/cw/decode.go
package cw

import (
	"errors"
	"math"
	"strings"

	"github.com/cwio/morsewav/internal/audio"
	"github.com/cwio/morsewav/internal/dsp"
	"github.com/cwio/morsewav/internal/recovery"
)

// ErrNilBuffer indicates Decode was called without an audio buffer.
var ErrNilBuffer = errors.New("audio buffer is nil")

// DefaultBinaryStride is the downsampling stride for the binary-signal
// debugging view.
const DefaultBinaryStride = 100

// Status labels the decode outcome. Degenerate signals are results, not
// errors: the caller always receives a well-formed Result.
type Status int

const (
	// StatusOK means text was decoded.
	StatusOK Status = iota
	// StatusInsufficientSignal means fewer than two marks were detected.
	StatusInsufficientSignal
	// StatusNoTiming means the dot duration could not be determined.
	StatusNoTiming
	// StatusZeroTiming means the estimated dot duration was zero.
	StatusZeroTiming
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInsufficientSignal:
		return "insufficient_signal"
	case StatusNoTiming:
		return "no_timing"
	case StatusZeroTiming:
		return "zero_timing"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler for JSON output.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// placeholderText carries the human-readable explanation for each degenerate
// outcome, returned in place of decoded text.
var placeholderText = map[Status]string{
	StatusInsufficientSignal: "[ERROR: Not enough signal detected]",
	StatusNoTiming:           "[ERROR: Could not determine dot timing]",
	StatusZeroTiming:         "[ERROR: No signal duration detected]",
}

// Event is one decoded character with the cumulative signal time at which
// its closing gap was observed (or end of signal for a trailing character).
type Event struct {
	Time float64 `json:"time"`
	Char string  `json:"char"`
}

// Result is the read-only snapshot returned for one decode: the recovered
// text, the speed estimate, the timestamped character events and the
// diagnostic views of the signal.
type Result struct {
	Status       Status      `json:"status"`
	Text         string      `json:"full_text"`
	WPM          float64     `json:"wpm"`
	Events       []Event     `json:"events"`
	Spectrogram  [][]float64 `json:"spectrogram_data"`
	BinarySignal []int       `json:"binary_signal_data"`
}

// Options are the caller-tunable decode parameters. Zero values fall back to
// the documented defaults.
type Options struct {
	// ThresholdFactor scales the envelope peak into the keying threshold
	// (default 0.5; the single canonical default for every surface).
	ThresholdFactor float64
	// EnvelopeWindow is the moving-average span in seconds (default 0.01).
	EnvelopeWindow float64
	// WPMOverride, when positive, skips timing estimation and derives the
	// thresholds from the given speed.
	WPMOverride float64
	// Tolerances are the classification ratios (default DefaultTolerances).
	Tolerances Tolerances
	// BinaryStride is the downsampling stride for the binary debug view
	// (default 100).
	BinaryStride int
}

// DefaultOptions returns the canonical decode parameters.
func DefaultOptions() Options {
	return Options{
		ThresholdFactor: dsp.DefaultThresholdFactor,
		EnvelopeWindow:  dsp.DefaultEnvelopeWindow,
		Tolerances:      DefaultTolerances(),
		BinaryStride:    DefaultBinaryStride,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ThresholdFactor == 0 {
		o.ThresholdFactor = d.ThresholdFactor
	}
	if o.EnvelopeWindow == 0 {
		o.EnvelopeWindow = d.EnvelopeWindow
	}
	if o.Tolerances == (Tolerances{}) {
		o.Tolerances = d.Tolerances
	}
	if o.BinaryStride == 0 {
		o.BinaryStride = d.BinaryStride
	}
	return o
}

// Decode runs the full pipeline over a complete recording: envelope,
// adaptive binarization, run-length segmentation, timing estimation and the
// symbol state machine. It is a pure synchronous computation; concurrent
// calls are independent. Signal-insufficiency outcomes are reported in
// Result.Status, never as errors.
func Decode(buf *audio.Buffer, opts Options) (*Result, error) {
	if buf == nil {
		return nil, ErrNilBuffer
	}
	if buf.SampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	opts = opts.withDefaults()
	if err := opts.Tolerances.Validate(); err != nil {
		return nil, err
	}

	env := dsp.Envelope(buf.Samples, buf.SampleRate, opts.EnvelopeWindow)
	bits := dsp.Binarize(env, opts.ThresholdFactor)
	runs := dsp.Segments(bits, buf.SampleRate)

	res := &Result{
		Status:       StatusOK,
		Events:       []Event{},
		Spectrogram:  [][]float64{},
		BinarySignal: dsp.Downsample(bits, opts.BinaryStride),
	}

	// The spectrogram is diagnostic only; a failure there must not block
	// returning the decoded text.
	if err := recovery.Guard(func() {
		res.Spectrogram = dsp.Spectrogram(buf.Samples, buf.SampleRate)
	}); err != nil {
		res.Spectrogram = [][]float64{}
	}

	timing, err := deriveTiming(runs, opts)
	if err != nil {
		status, known := statusForTimingError(err)
		if !known {
			return nil, err
		}
		res.Status = status
		res.Text = placeholderText[status]
		return res, nil
	}

	text, events := decodeRuns(runs, timing)
	res.Text = strings.TrimSpace(text)
	res.WPM = math.Round(timing.WPM*10) / 10
	res.Events = events
	return res, nil
}

// deriveTiming picks the timing model: the caller's WPM when overridden,
// otherwise the estimator. Fewer than two marks is insufficient signal
// either way.
func deriveTiming(runs []dsp.Run, opts Options) (Timing, error) {
	if opts.WPMOverride > 0 {
		if markCount(runs) < 2 {
			return Timing{}, ErrInsufficientSignal
		}
		return TimingForWPM(opts.WPMOverride, opts.Tolerances)
	}
	return EstimateTiming(runs, opts.Tolerances)
}

func markCount(runs []dsp.Run) int {
	n := 0
	for _, r := range runs {
		if r.Keyed {
			n++
		}
	}
	return n
}

func statusForTimingError(err error) (Status, bool) {
	switch {
	case errors.Is(err, ErrInsufficientSignal):
		return StatusInsufficientSignal, true
	case errors.Is(err, ErrNoTiming):
		return StatusNoTiming, true
	case errors.Is(err, ErrZeroTiming):
		return StatusZeroTiming, true
	}
	return StatusOK, false
}

// decodeRuns is the symbol state machine. It accumulates dot/dash symbols
// from mark runs, closes characters on gaps past CharSpaceMin (adding a word
// separator past WordSpaceMin) and flushes a trailing character at end of
// signal. Marks inside the ambiguous band and gaps shorter than a character
// space contribute nothing. Elapsed time accumulates over every run, so
// event timestamps are absolute signal time.
func decodeRuns(runs []dsp.Run, timing Timing) (string, []Event) {
	var (
		text    strings.Builder
		symbols strings.Builder
		elapsed float64
		events  = []Event{}
	)

	resolve := func(at float64) rune {
		char := CharFor(symbols.String())
		events = append(events, Event{Time: at, Char: string(char)})
		symbols.Reset()
		return char
	}

	for _, run := range runs {
		switch {
		case run.Keyed && run.Duration < timing.DotMax:
			symbols.WriteByte('.')
		case run.Keyed && run.Duration > timing.DashMin:
			symbols.WriteByte('-')
		case run.Keyed:
			// Ambiguous duration between dot and dash: dropped.
		case symbols.Len() > 0 && run.Duration > timing.WordSpaceMin:
			text.WriteRune(resolve(elapsed))
			text.WriteByte(' ')
		case symbols.Len() > 0 && run.Duration > timing.CharSpaceMin:
			text.WriteRune(resolve(elapsed))
		}
		elapsed += run.Duration
	}

	// End-of-transmission flush: a trailing character needs no closing gap.
	if symbols.Len() > 0 {
		text.WriteRune(resolve(elapsed))
	}

	return text.String(), events
}
