// internal/dsp/spectrogram.go
package dsp

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// Spectrogram parameters. The decode algorithm never reads this output; it
// exists for diagnostic display, so the resolution only needs to be good
// enough to see keying against the tone.
const (
	spectrogramFrame   = 1024
	spectrogramHop     = 512
	spectrogramMaxHz   = 2000.0
	spectrogramFloorDB = -80.0
	spectrogramStride  = 4
)

// Spectrogram computes a decibel-scaled time-frequency magnitude grid of the
// raw signal, downsampled by a fixed stride on both axes. Rows are frequency
// bins up to 2 kHz (low to high), columns are time frames. Inputs shorter
// than one frame yield an empty grid.
func Spectrogram(samples []float64, sampleRate int) [][]float64 {
	if len(samples) < spectrogramFrame || sampleRate <= 0 {
		return [][]float64{}
	}

	maxBin := int(spectrogramMaxHz * spectrogramFrame / float64(sampleRate))
	if maxBin > spectrogramFrame/2 {
		maxBin = spectrogramFrame / 2
	}
	if maxBin < 1 {
		maxBin = 1
	}

	// Hann window.
	window := make([]float64, spectrogramFrame)
	for i := range window {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(spectrogramFrame-1)))
	}

	nFrames := (len(samples)-spectrogramFrame)/spectrogramHop + 1
	power := make([][]float64, maxBin)
	for bin := range power {
		power[bin] = make([]float64, nFrames)
	}

	frame := make([]float64, spectrogramFrame)
	peak := 0.0
	for f := 0; f < nFrames; f++ {
		off := f * spectrogramHop
		for i := range frame {
			frame[i] = samples[off+i] * window[i]
		}
		spec := fft.FFTReal(frame)
		for bin := 0; bin < maxBin; bin++ {
			mag := cmplx.Abs(spec[bin])
			p := mag * mag
			power[bin][f] = p
			if p > peak {
				peak = p
			}
		}
	}

	// dB relative to the strongest cell, floored, stride-downsampled.
	out := make([][]float64, 0, (maxBin+spectrogramStride-1)/spectrogramStride)
	for bin := 0; bin < maxBin; bin += spectrogramStride {
		row := make([]float64, 0, (nFrames+spectrogramStride-1)/spectrogramStride)
		for f := 0; f < nFrames; f += spectrogramStride {
			row = append(row, powerToDB(power[bin][f], peak))
		}
		out = append(out, row)
	}
	return out
}

func powerToDB(p, ref float64) float64 {
	if ref <= 0 || p <= 0 {
		return spectrogramFloorDB
	}
	db := 10 * math.Log10(p/ref)
	if db < spectrogramFloorDB {
		return spectrogramFloorDB
	}
	return db
}
