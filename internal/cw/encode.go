// internal/cw/encode.go
package cw

import (
	"errors"
	"math"

	"github.com/cwio/morsewav/internal/audio"
)

// Morse timing ratios (ITU standard), all multiples of the dot unit.
const (
	DashRatio           = 3.0 // dash duration
	IntraCharSpaceRatio = 1.0 // gap between symbols within a character
	InterCharSpaceRatio = 3.0 // gap between characters
	WordSpaceRatio      = 7.0 // gap between words

	// DotUnit relates WPM to dot length: a dot at W WPM lasts 1.2/W
	// seconds (PARIS = 50 dot units).
	DotUnit = 1.2
)

var (
	ErrInvalidWPM        = errors.New("WPM must be positive")
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	ErrInvalidFrequency  = errors.New("tone frequency must be positive and less than Nyquist frequency")
	ErrInvalidAmplitude  = errors.New("amplitude must be between 0.0 and 1.0")
	ErrInvalidPadding    = errors.New("padding must be non-negative")
)

// EncoderConfig holds the synthesis parameters. All values have documented
// defaults; nothing is read from package-level state.
type EncoderConfig struct {
	// WPM is the keying speed (from config: wpm)
	WPM int
	// ToneFrequency is the carrier frequency in Hz (from config: tone_frequency)
	ToneFrequency float64
	// SampleRate is the output sample rate in Hz (from config: sample_rate)
	SampleRate int
	// Amplitude is the tone peak, 0.0-1.0 (from config: amplitude)
	Amplitude float64
	// PadSeconds is the leading and trailing silence (from config: pad_seconds)
	PadSeconds float64
}

// DefaultEncoderConfig returns the standard synthesis parameters: 20 WPM,
// 700 Hz at 44.1 kHz, -10 dBFS tone, half a second of padding.
func DefaultEncoderConfig() EncoderConfig {
	return EncoderConfig{
		WPM:           20,
		ToneFrequency: 700,
		SampleRate:    44100,
		Amplitude:     0.316,
		PadSeconds:    0.5,
	}
}

// Validate checks the synthesis parameters.
func (c EncoderConfig) Validate() error {
	if c.WPM <= 0 {
		return ErrInvalidWPM
	}
	if c.SampleRate <= 0 {
		return ErrInvalidSampleRate
	}
	if c.ToneFrequency <= 0 || c.ToneFrequency >= float64(c.SampleRate)/2 {
		return ErrInvalidFrequency
	}
	if c.Amplitude < 0 || c.Amplitude > 1 {
		return ErrInvalidAmplitude
	}
	if c.PadSeconds < 0 {
		return ErrInvalidPadding
	}
	return nil
}

// Encode renders text as one continuous audio buffer: a tone segment per
// dot/dash, one unit of silence between symbols, three units after each
// character and seven units for a literal space. Characters outside the
// codebook are skipped. Encoding is deterministic and stateless; the empty
// string yields only the leading and trailing padding.
func Encode(text string, cfg EncoderConfig) (*audio.Buffer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	unit := DotUnit / float64(cfg.WPM)
	b := &builder{
		cfg:  cfg,
		unit: unit,
	}

	b.silence(cfg.PadSeconds / unit)

	for _, char := range text {
		if char == ' ' {
			b.silence(WordSpaceRatio)
			continue
		}
		symbols, ok := SymbolsFor(char)
		if !ok {
			continue
		}
		for i, s := range symbols {
			if s == '.' {
				b.tone(1)
			} else {
				b.tone(DashRatio)
			}
			if i < len(symbols)-1 {
				b.silence(IntraCharSpaceRatio)
			}
		}
		b.silence(InterCharSpaceRatio)
	}

	b.silence(cfg.PadSeconds / unit)

	return &audio.Buffer{Samples: b.samples, SampleRate: cfg.SampleRate}, nil
}

type builder struct {
	cfg     EncoderConfig
	unit    float64
	samples []float64
}

func (b *builder) tone(units float64) {
	n := b.segmentSamples(units)
	omega := 2 * math.Pi * b.cfg.ToneFrequency / float64(b.cfg.SampleRate)
	for i := 0; i < n; i++ {
		b.samples = append(b.samples, b.cfg.Amplitude*math.Sin(omega*float64(i)))
	}
}

func (b *builder) silence(units float64) {
	n := b.segmentSamples(units)
	b.samples = append(b.samples, make([]float64, n)...)
}

func (b *builder) segmentSamples(units float64) int {
	return int(math.Round(units * b.unit * float64(b.cfg.SampleRate)))
}
