// internal/dsp/envelope.go
// Package dsp implements the time-domain signal analysis used for keying
// detection: envelope extraction, adaptive binarization and run-length
// segmentation.
package dsp

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultEnvelopeWindow is the moving-average span in seconds. It must be
// longer than one period of the tone (700 Hz ≈ 1.4 ms) and shorter than the
// shortest legal mark (a dot at 60 WPM is 20 ms), so 10 ms covers the usual
// tone and speed ranges.
const DefaultEnvelopeWindow = 0.01

// DefaultThresholdFactor is the canonical keyed/unkeyed threshold as a
// fraction of the envelope peak.
const DefaultThresholdFactor = 0.5

// Run is a maximal stretch of the binary signal in one state.
type Run struct {
	Keyed    bool    // tone present
	Duration float64 // seconds
}

// Envelope rectifies the samples and smooths them with a uniform
// moving-average kernel of width round(sampleRate*windowSeconds), using
// same-length zero-padded convolution. An all-zero input yields an all-zero
// envelope.
func Envelope(samples []float64, sampleRate int, windowSeconds float64) []float64 {
	if len(samples) == 0 {
		return nil
	}
	if windowSeconds <= 0 {
		windowSeconds = DefaultEnvelopeWindow
	}

	w := int(math.Round(float64(sampleRate) * windowSeconds))
	if w < 1 {
		w = 1
	}

	n := len(samples)
	prefix := make([]float64, n+1)
	for i, s := range samples {
		prefix[i+1] = prefix[i] + math.Abs(s)
	}

	// Same-length convolution: output i covers input [i+q-w+1, i+q] with
	// q = (w-1)/2, zeros outside the signal.
	q := (w - 1) / 2
	env := make([]float64, n)
	for i := range env {
		lo := i + q - w + 1
		if lo < 0 {
			lo = 0
		}
		hi := i + q + 1
		if hi > n {
			hi = n
		}
		env[i] = (prefix[hi] - prefix[lo]) / float64(w)
	}
	return env
}

// Binarize converts the envelope to a keyed/unkeyed signal. The threshold is
// max(envelope)*factor, or 0 for a silent envelope; the comparison is a
// strict greater-than, so total silence yields an all-unkeyed signal.
func Binarize(env []float64, factor float64) []int {
	if len(env) == 0 {
		return nil
	}

	threshold := 0.0
	if m := floats.Max(env); m > 0 {
		threshold = m * factor
	}

	bits := make([]int, len(env))
	for i, v := range env {
		if v > threshold {
			bits[i] = 1
		}
	}
	return bits
}

// Segments converts the binary signal into an ordered run sequence. The
// signal boundaries count as transitions, so leading and trailing runs are
// captured and the run durations sum to the full signal duration.
func Segments(bits []int, sampleRate int) []Run {
	if len(bits) == 0 || sampleRate <= 0 {
		return nil
	}

	var runs []Run
	start := 0
	for i := 1; i <= len(bits); i++ {
		if i < len(bits) && bits[i] == bits[i-1] {
			continue
		}
		runs = append(runs, Run{
			Keyed:    bits[start] == 1,
			Duration: float64(i-start) / float64(sampleRate),
		})
		start = i
	}
	return runs
}

// Downsample returns every stride-th element of the binary signal, the
// debugging view returned alongside decode results.
func Downsample(bits []int, stride int) []int {
	if stride < 1 {
		stride = 1
	}
	out := make([]int, 0, (len(bits)+stride-1)/stride)
	for i := 0; i < len(bits); i += stride {
		out = append(out, bits[i])
	}
	return out
}
