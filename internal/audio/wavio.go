// internal/audio/wavio.go
// Package audio handles WAV file acquisition and emission for the codec.
package audio

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/transforms"
	"github.com/go-audio/wav"
	"github.com/zeebo/xxh3"
)

var (
	ErrNotWAV       = errors.New("not a valid WAV file")
	ErrEmptyAudio   = errors.New("audio contains no samples")
	ErrTooLarge     = errors.New("audio file exceeds size limit")
	ErrNilBuffer    = errors.New("audio buffer is nil")
	ErrNoUniqueName = errors.New("could not allocate a unique output name")
)

// MaxDecodeBytes caps the size of decode input files.
const MaxDecodeBytes = 16 << 20

// nameAttempts bounds the collision-retry loop in CreateUnique.
const nameAttempts = 100

// Buffer is a finite mono recording: samples normalized to [-1, 1] plus the
// rate they were captured at. It is read-only once loaded.
type Buffer struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the total length of the buffer in seconds.
func (b *Buffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// ReadWAV decodes a WAV stream at its native sample rate, downmixes to mono
// and normalizes the peak to 1.0. Silence-only files pass through unscaled.
func ReadWAV(r io.ReadSeeker) (*Buffer, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, ErrNotWAV
	}

	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read PCM data: %w", err)
	}
	if len(pcm.Data) == 0 {
		return nil, ErrEmptyAudio
	}

	fb := pcm.AsFloatBuffer()
	if fb.Format.NumChannels > 1 {
		if err := transforms.MonoDownmix(fb); err != nil {
			return nil, fmt.Errorf("downmix to mono: %w", err)
		}
	}
	transforms.NormalizeMax(fb)

	return &Buffer{
		Samples:    fb.Data,
		SampleRate: fb.Format.SampleRate,
	}, nil
}

// ReadWAVFile loads a WAV file from disk, enforcing MaxDecodeBytes.
func ReadWAVFile(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat audio file: %w", err)
	}
	if info.Size() > MaxDecodeBytes {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, info.Size(), MaxDecodeBytes)
	}

	return ReadWAV(f)
}

// WriteWAV writes the buffer as single-channel 16-bit PCM. Samples outside
// [-1, 1] are clamped.
func WriteWAV(w io.WriteSeeker, buf *Buffer) error {
	if buf == nil {
		return ErrNilBuffer
	}
	if buf.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", buf.SampleRate)
	}

	enc := wav.NewEncoder(w, buf.SampleRate, 16, 1, 1)

	data := make([]int, len(buf.Samples))
	for i, s := range buf.Samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		data[i] = int(s * 32767)
	}

	intBuf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: buf.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(intBuf); err != nil {
		return fmt.Errorf("write PCM data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize WAV: %w", err)
	}
	return nil
}

// WriteWAVFile writes the buffer to path, creating or truncating the file.
func WriteWAVFile(path string, buf *Buffer) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create audio file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close audio file: %w", cerr)
		}
	}()

	return WriteWAV(f, buf)
}

// CreateUnique opens a new output file in dir whose name is derived from the
// content hash of text. Concurrent requests for the same text each get their
// own file: creation uses O_EXCL and collisions retry with a numeric suffix.
func CreateUnique(dir, text string) (*os.File, string, error) {
	base := fmt.Sprintf("morse_%016x", xxh3.HashString(text))

	for n := 0; n < nameAttempts; n++ {
		name := base + ".wav"
		if n > 0 {
			name = fmt.Sprintf("%s-%d.wav", base, n)
		}
		path := filepath.Join(dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("create output file: %w", err)
		}
	}
	return nil, "", ErrNoUniqueName
}
