// cmd/encode.go
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cwio/morsewav/internal/audio"
	"github.com/cwio/morsewav/internal/config"
	"github.com/cwio/morsewav/internal/cw"
)

// ErrNoText indicates the encode command received no text to render.
var ErrNoText = errors.New("no text provided")

var encodeCmd = &cobra.Command{
	Use:   "encode [text...]",
	Short: "Render text as a Morse code WAV file",
	Long: `Renders the given text as a tone-keyed WAV file in the output
directory and prints the file path. Letters, digits and spaces are encoded;
other characters are skipped.`,
	RunE: runEncode,
}

func init() {
	rootCmd.AddCommand(encodeCmd)

	encodeCmd.Flags().IntP("wpm", "w", 20, "keying speed in words per minute")
	encodeCmd.Flags().Float64P("frequency", "f", 700, "tone frequency in Hz")
	encodeCmd.Flags().StringP("out-dir", "o", "generated_audio", "output directory")

	viper.BindPFlag("wpm", encodeCmd.Flags().Lookup("wpm"))
	viper.BindPFlag("tone_frequency", encodeCmd.Flags().Lookup("frequency"))
	viper.BindPFlag("output_dir", encodeCmd.Flags().Lookup("out-dir"))
}

func runEncode(cmd *cobra.Command, args []string) error {
	settings, err := config.Get()
	if err != nil {
		return err
	}

	text := strings.Join(args, " ")
	if strings.TrimSpace(text) == "" {
		return ErrNoText
	}

	logger, err := newLogger(settings.Debug)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	buf, err := cw.Encode(text, encoderConfig(settings))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(settings.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	f, path, err := audio.CreateUnique(settings.OutputDir, text)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := audio.WriteWAV(f, buf); err != nil {
		return err
	}

	logger.Info("wrote morse audio",
		zap.String("path", path),
		zap.Int("wpm", settings.WPM),
		zap.Float64("seconds", buf.Duration()),
	)
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func encoderConfig(s *config.Settings) cw.EncoderConfig {
	return cw.EncoderConfig{
		WPM:           s.WPM,
		ToneFrequency: s.ToneFrequency,
		SampleRate:    s.SampleRate,
		Amplitude:     s.Amplitude,
		PadSeconds:    s.PadSeconds,
	}
}
