package cw

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/cwio/morsewav/internal/audio"
	"github.com/cwio/morsewav/internal/dsp"
)

func encodeForTest(t *testing.T, text string) *audio.Buffer {
	t.Helper()
	buf, err := Encode(text, testEncoderConfig())
	if err != nil {
		t.Fatalf("Encode(%q) error = %v", text, err)
	}
	return buf
}

func TestDecode_RoundTripSOS(t *testing.T) {
	buf := encodeForTest(t, "SOS")

	res, err := Decode(buf, DefaultOptions())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if res.Status != StatusOK {
		t.Fatalf("Decode() status = %v, want %v", res.Status, StatusOK)
	}
	if res.Text != "SOS" {
		t.Errorf("Decode() text = %q, want %q", res.Text, "SOS")
	}
	if math.Abs(res.WPM-20) > 2 {
		t.Errorf("Decode() WPM = %v, want about 20", res.WPM)
	}
	if len(res.Events) != 3 {
		t.Errorf("Decode() produced %d events, want 3", len(res.Events))
	}
}

func TestDecode_RoundTripWords(t *testing.T) {
	buf := encodeForTest(t, "CQ DX")

	res, err := Decode(buf, DefaultOptions())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if res.Text != "CQ DX" {
		t.Errorf("Decode() text = %q, want %q", res.Text, "CQ DX")
	}
}

// TestDecode_RoundTripNoisy overlays deterministic low-level noise on the
// encoded signal. The threshold adapts to the envelope peak, so noise well
// below the tone must not disturb keying detection.
func TestDecode_RoundTripNoisy(t *testing.T) {
	buf := encodeForTest(t, "CQ DX")
	rng := rand.New(rand.NewSource(1))
	for i := range buf.Samples {
		buf.Samples[i] += (rng.Float64()*2 - 1) * 0.05
	}

	res, err := Decode(buf, DefaultOptions())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if res.Status != StatusOK {
		t.Fatalf("Decode() status = %v, want %v", res.Status, StatusOK)
	}
	if res.Text != "CQ DX" {
		t.Errorf("Decode() text = %q, want %q", res.Text, "CQ DX")
	}
	if math.Abs(res.WPM-20) > 2 {
		t.Errorf("Decode() WPM = %v, want about 20", res.WPM)
	}
}

// TestDecode_RoundTripAlphabet round-trips every codebook character whose
// signal carries usable timing on its own. Two groups cannot: single-mark
// characters (E, T) report insufficient signal, and all-dash characters
// (M, O, 0) present uniform marks that the estimator reads as dots. Both
// are covered by dedicated tests below.
func TestDecode_RoundTripAlphabet(t *testing.T) {
	for _, char := range Alphabet() {
		symbols, _ := SymbolsFor(char)
		if len(symbols) < 2 || !strings.ContainsRune(symbols, '.') {
			continue
		}
		buf := encodeForTest(t, string(char))

		res, err := Decode(buf, DefaultOptions())
		if err != nil {
			t.Fatalf("Decode(%q) error = %v", char, err)
		}
		if res.Text != string(char) {
			t.Errorf("Decode(Encode(%q)) = %q, want %q", char, res.Text, char)
		}
	}
}

// TestDecode_UniformDashesReadAsDots documents the estimator's behavior on
// an isolated all-dash transmission: with negligible mark spread every mark
// is taken as a dot, so O decodes as S at a third of the true speed. With
// the speed known, the override recovers the intended reading.
func TestDecode_UniformDashesReadAsDots(t *testing.T) {
	buf := encodeForTest(t, "O")

	res, err := Decode(buf, DefaultOptions())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if res.Text != "S" {
		t.Errorf("Decode(Encode(\"O\")) = %q, want %q (dashes read as dots)", res.Text, "S")
	}

	opts := DefaultOptions()
	opts.WPMOverride = 20
	res, err = Decode(buf, opts)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if res.Text != "O" {
		t.Errorf("Decode() with speed override = %q, want %q", res.Text, "O")
	}
}

func TestDecode_SingleMarkIsInsufficient(t *testing.T) {
	for _, char := range []string{"E", "T"} {
		buf := encodeForTest(t, char)

		res, err := Decode(buf, DefaultOptions())
		if err != nil {
			t.Fatalf("Decode(%q) error = %v", char, err)
		}
		if res.Status != StatusInsufficientSignal {
			t.Errorf("Decode(%q) status = %v, want %v", char, res.Status, StatusInsufficientSignal)
		}
	}
}

func TestDecode_Silence(t *testing.T) {
	buf := &audio.Buffer{Samples: make([]float64, 8000), SampleRate: 8000}

	res, err := Decode(buf, DefaultOptions())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if res.Status != StatusInsufficientSignal {
		t.Errorf("Decode() status = %v, want %v", res.Status, StatusInsufficientSignal)
	}
	if res.WPM != 0 {
		t.Errorf("Decode() WPM = %v, want 0", res.WPM)
	}
	if len(res.Events) != 0 {
		t.Errorf("Decode() produced %d events, want 0", len(res.Events))
	}
	if res.Text == "" {
		t.Error("Decode() text is empty, want a placeholder explanation")
	}
	if len(res.BinarySignal) == 0 {
		t.Error("Decode() binary signal view is empty")
	}
}

func TestDecode_EventTimestamps(t *testing.T) {
	buf := encodeForTest(t, "PARIS PARIS")

	res, err := Decode(buf, DefaultOptions())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if res.Status != StatusOK {
		t.Fatalf("Decode() status = %v, want %v", res.Status, StatusOK)
	}

	prev := 0.0
	for i, ev := range res.Events {
		if ev.Time < prev {
			t.Errorf("event %d at %v before previous event at %v", i, ev.Time, prev)
		}
		prev = ev.Time
	}
	if total := buf.Duration(); prev > total {
		t.Errorf("last event at %v past signal end %v", prev, total)
	}
}

func TestDecode_WPMOverride(t *testing.T) {
	buf := encodeForTest(t, "SOS")

	opts := DefaultOptions()
	opts.WPMOverride = 20
	res, err := Decode(buf, opts)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if res.Text != "SOS" {
		t.Errorf("Decode() text = %q, want %q", res.Text, "SOS")
	}
	if res.WPM != 20 {
		t.Errorf("Decode() WPM = %v, want exactly 20 (override)", res.WPM)
	}

	// The override does not rescue a signal with fewer than two marks.
	silent := &audio.Buffer{Samples: make([]float64, 8000), SampleRate: 8000}
	res, err = Decode(silent, opts)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if res.Status != StatusInsufficientSignal {
		t.Errorf("Decode() status = %v, want %v", res.Status, StatusInsufficientSignal)
	}
}

func TestDecode_InvalidInput(t *testing.T) {
	if _, err := Decode(nil, DefaultOptions()); err != ErrNilBuffer {
		t.Errorf("Decode(nil) error = %v, want %v", err, ErrNilBuffer)
	}
	buf := &audio.Buffer{Samples: []float64{0, 0}, SampleRate: 0}
	if _, err := Decode(buf, DefaultOptions()); err != ErrInvalidSampleRate {
		t.Errorf("Decode() error = %v, want %v", err, ErrInvalidSampleRate)
	}
}

func TestDecodeRuns_AmbiguousMarkDropped(t *testing.T) {
	timing, err := TimingForWPM(20, DefaultTolerances())
	if err != nil {
		t.Fatalf("TimingForWPM() error = %v", err)
	}

	// S is dot dot dot; replace the middle dot with a mark inside the
	// ambiguous band (between DotMax and DashMin). It must contribute no
	// symbol, leaving I (dot dot).
	ambiguous := (timing.DotMax + timing.DashMin) / 2
	runs := []dsp.Run{
		{Keyed: true, Duration: 0.06},
		{Keyed: false, Duration: 0.06},
		{Keyed: true, Duration: ambiguous},
		{Keyed: false, Duration: 0.06},
		{Keyed: true, Duration: 0.06},
		{Keyed: false, Duration: 1.0},
	}

	text, events := decodeRuns(runs, timing)
	if got := len(events); got != 1 {
		t.Fatalf("decodeRuns() produced %d events, want 1", got)
	}
	if want := "I "; text != want {
		t.Errorf("decodeRuns() text = %q, want %q (ambiguous mark dropped)", text, want)
	}
}

func TestDecodeRuns_ExactBoundaryMarks(t *testing.T) {
	timing, err := TimingForWPM(20, DefaultTolerances())
	if err != nil {
		t.Fatalf("TimingForWPM() error = %v", err)
	}

	// Marks exactly at DotMax and DashMin sit on strict comparisons and
	// contribute nothing.
	runs := []dsp.Run{
		{Keyed: true, Duration: timing.DotMax},
		{Keyed: false, Duration: 0.06},
		{Keyed: true, Duration: timing.DashMin},
		{Keyed: false, Duration: 1.0},
	}
	_, events := decodeRuns(runs, timing)
	if len(events) != 0 {
		t.Errorf("decodeRuns() produced %d events, want 0 (boundary marks dropped)", len(events))
	}
}

func TestDecodeRuns_TrailingFlush(t *testing.T) {
	timing, err := TimingForWPM(20, DefaultTolerances())
	if err != nil {
		t.Fatalf("TimingForWPM() error = %v", err)
	}

	// Signal ends mid-character: no closing gap, the flush emits it.
	runs := []dsp.Run{
		{Keyed: true, Duration: 0.06},
		{Keyed: false, Duration: 0.06},
		{Keyed: true, Duration: 0.06},
		{Keyed: false, Duration: 0.06},
		{Keyed: true, Duration: 0.06},
	}
	text, events := decodeRuns(runs, timing)
	if text != "S" {
		t.Errorf("decodeRuns() text = %q, want %q", text, "S")
	}
	if len(events) != 1 {
		t.Fatalf("decodeRuns() produced %d events, want 1", len(events))
	}
	total := 5 * 0.06
	if math.Abs(events[0].Time-total) > 1e-9 {
		t.Errorf("flush event at %v, want %v (end of signal)", events[0].Time, total)
	}
}

func TestDecodeRuns_UnknownSequence(t *testing.T) {
	timing, err := TimingForWPM(20, DefaultTolerances())
	if err != nil {
		t.Fatalf("TimingForWPM() error = %v", err)
	}

	// Six dots has no codebook entry.
	var runs []dsp.Run
	for i := 0; i < 6; i++ {
		runs = append(runs,
			dsp.Run{Keyed: true, Duration: 0.06},
			dsp.Run{Keyed: false, Duration: 0.06},
		)
	}
	text, _ := decodeRuns(runs, timing)
	if text != string(Unknown) {
		t.Errorf("decodeRuns() text = %q, want %q", text, string(Unknown))
	}
}

func TestStatus_Strings(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusOK, "ok"},
		{StatusInsufficientSignal, "insufficient_signal"},
		{StatusNoTiming, "no_timing"},
		{StatusZeroTiming, "zero_timing"},
		{Status(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}
