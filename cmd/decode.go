// cmd/decode.go
package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cwio/morsewav/internal/audio"
	"github.com/cwio/morsewav/internal/config"
	"github.com/cwio/morsewav/internal/cw"
)

// ErrNotWAVExtension indicates a decode input without a .wav extension.
var ErrNotWAVExtension = errors.New("invalid file type, only .wav is allowed")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var decodeCmd = &cobra.Command{
	Use:   "decode <file.wav>",
	Short: "Decode a Morse code WAV recording to text",
	Long: `Analyzes a complete WAV recording, recovers the transmitted text
and keying speed, and prints the structured result as JSON: decoded text,
estimated WPM, timestamped character events and diagnostic signal views.`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

var (
	decodeThreshold float64
	decodeWPM       float64
)

func init() {
	rootCmd.AddCommand(decodeCmd)

	decodeCmd.Flags().Float64VarP(&decodeThreshold, "threshold", "t", 0,
		"keying threshold as a fraction of the envelope peak (0 = config value)")
	decodeCmd.Flags().Float64VarP(&decodeWPM, "wpm", "w", 0,
		"known keying speed; skips speed estimation (0 = estimate)")
}

func runDecode(cmd *cobra.Command, args []string) error {
	settings, err := config.Get()
	if err != nil {
		return err
	}

	path := args[0]
	if err := validateDecodePath(path); err != nil {
		return err
	}

	logger, err := newLogger(settings.Debug)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	buf, err := audio.ReadWAVFile(path)
	if err != nil {
		return err
	}

	res, err := cw.Decode(buf, decodeOptions(settings))
	if err != nil {
		return err
	}

	logger.Info("decoded recording",
		zap.String("path", path),
		zap.Stringer("status", res.Status),
		zap.Float64("wpm", res.WPM),
		zap.Int("events", len(res.Events)),
	)

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func validateDecodePath(path string) error {
	if !strings.EqualFold(filepath.Ext(path), ".wav") {
		return ErrNotWAVExtension
	}
	return nil
}

func decodeOptions(s *config.Settings) cw.Options {
	opts := cw.Options{
		ThresholdFactor: s.ThresholdFactor,
		EnvelopeWindow:  s.EnvelopeWindow,
		Tolerances: cw.Tolerances{
			DotMax:    s.DotMaxRatio,
			DashMin:   s.DashMinRatio,
			CharSpace: s.CharSpaceRatio,
			WordSpace: s.WordSpaceRatio,
		},
		BinaryStride: cw.DefaultBinaryStride,
	}
	if decodeThreshold > 0 {
		opts.ThresholdFactor = decodeThreshold
	}
	if decodeWPM > 0 {
		opts.WPMOverride = decodeWPM
	}
	return opts
}
