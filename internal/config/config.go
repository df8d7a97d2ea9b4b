// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	AppName       = "morsewav"
	ConfigType    = "yaml"
	DefaultConfig = `# Morse audio codec configuration

# Synthesis (text -> audio)
sample_rate: 44100      # Output sample rate in Hz
tone_frequency: 700     # Tone frequency in Hz
wpm: 20                 # Keying speed in words per minute
amplitude: 0.316        # Tone peak (0.0-1.0), 0.316 is about -10 dBFS
pad_seconds: 0.5        # Leading/trailing silence in seconds
output_dir: "generated_audio"  # Where encoded .wav files are written

# Analysis (audio -> text)
envelope_window: 0.01   # Moving-average span in seconds; must exceed the
                        # tone period and stay below the shortest mark
threshold_factor: 0.5   # Keying threshold as a fraction of the envelope peak
dot_max_ratio: 1.7      # Longest mark still read as a dot (dot units)
dash_min_ratio: 2.0     # Shortest mark read as a dash; 1.7-2.0 is ambiguous
char_space_ratio: 2.0   # Shortest gap that closes a character
word_space_ratio: 5.0   # Shortest gap that closes a word

# Output
debug: false            # Enable debug logging
`
)

// Settings holds all application configuration
type Settings struct {
	// Synthesis
	SampleRate    int     `mapstructure:"sample_rate"`
	ToneFrequency float64 `mapstructure:"tone_frequency"`
	WPM           int     `mapstructure:"wpm"`
	Amplitude     float64 `mapstructure:"amplitude"`
	PadSeconds    float64 `mapstructure:"pad_seconds"`
	OutputDir     string  `mapstructure:"output_dir"`

	// Analysis
	EnvelopeWindow  float64 `mapstructure:"envelope_window"`
	ThresholdFactor float64 `mapstructure:"threshold_factor"`
	DotMaxRatio     float64 `mapstructure:"dot_max_ratio"`
	DashMinRatio    float64 `mapstructure:"dash_min_ratio"`
	CharSpaceRatio  float64 `mapstructure:"char_space_ratio"`
	WordSpaceRatio  float64 `mapstructure:"word_space_ratio"`

	// Output
	Debug bool `mapstructure:"debug"`
}

// Init initializes Viper with defaults and config file.
// Config file search order: current directory, then ~/.config/morsewav/
func Init() error {
	// Set defaults
	viper.SetDefault("sample_rate", 44100)
	viper.SetDefault("tone_frequency", 700)
	viper.SetDefault("wpm", 20)
	viper.SetDefault("amplitude", 0.316)
	viper.SetDefault("pad_seconds", 0.5)
	viper.SetDefault("output_dir", "generated_audio")
	viper.SetDefault("envelope_window", 0.01)
	viper.SetDefault("threshold_factor", 0.5)
	viper.SetDefault("dot_max_ratio", 1.7)
	viper.SetDefault("dash_min_ratio", 2.0)
	viper.SetDefault("char_space_ratio", 2.0)
	viper.SetDefault("word_space_ratio", 5.0)
	viper.SetDefault("debug", false)

	viper.SetConfigType(ConfigType)

	// Priority order: current directory first, then XDG config
	viper.AddConfigPath(".")

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	viper.AddConfigPath(filepath.Join(configDir, AppName))

	// Try .config.yaml first (hidden file), then config.yaml
	viper.SetConfigName(".config")
	if err = viper.ReadInConfig(); err != nil {
		viper.SetConfigName("config")
		err = viper.ReadInConfig()
	}

	// Read config file - if not found, create default in XDG config dir
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			xdgConfigPath := filepath.Join(configDir, AppName)
			if err = ensureConfigExists(xdgConfigPath); err != nil {
				return err
			}
			if err = viper.ReadInConfig(); err != nil {
				return fmt.Errorf("read config: %w", err)
			}
		} else {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return nil
}

func ensureConfigExists(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err = os.MkdirAll(configPath, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err = os.WriteFile(configFile, []byte(DefaultConfig), 0644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	return nil
}

// Get returns the current settings
func Get() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

// Validate checks that all settings are within acceptable ranges
func (s *Settings) Validate() error {
	var errs []error

	// Synthesis
	if s.SampleRate < 8000 || s.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %d", s.SampleRate))
	}
	if s.ToneFrequency < 100 || s.ToneFrequency > 3000 {
		errs = append(errs, fmt.Errorf("tone_frequency must be between 100 and 3000 Hz, got %v", s.ToneFrequency))
	}
	if s.WPM < 5 || s.WPM > 60 {
		errs = append(errs, fmt.Errorf("wpm must be between 5 and 60, got %d", s.WPM))
	}
	if s.Amplitude <= 0 || s.Amplitude > 1 {
		errs = append(errs, fmt.Errorf("amplitude must be between 0.0 (exclusive) and 1.0, got %v", s.Amplitude))
	}
	if s.PadSeconds < 0 || s.PadSeconds > 5 {
		errs = append(errs, fmt.Errorf("pad_seconds must be between 0 and 5, got %v", s.PadSeconds))
	}
	if s.OutputDir == "" {
		errs = append(errs, errors.New("output_dir must not be empty"))
	}

	// Analysis
	if s.EnvelopeWindow < 0.001 || s.EnvelopeWindow > 0.1 {
		errs = append(errs, fmt.Errorf("envelope_window must be between 0.001 and 0.1 seconds, got %v", s.EnvelopeWindow))
	}
	if s.ThresholdFactor <= 0 || s.ThresholdFactor > 1 {
		errs = append(errs, fmt.Errorf("threshold_factor must be between 0.0 (exclusive) and 1.0, got %v", s.ThresholdFactor))
	}
	if s.DotMaxRatio <= 0 || s.DotMaxRatio >= s.DashMinRatio {
		errs = append(errs, fmt.Errorf("dot_max_ratio must be positive and less than dash_min_ratio, got %v and %v", s.DotMaxRatio, s.DashMinRatio))
	}
	if s.DashMinRatio > s.CharSpaceRatio {
		errs = append(errs, fmt.Errorf("dash_min_ratio must not exceed char_space_ratio, got %v and %v", s.DashMinRatio, s.CharSpaceRatio))
	}
	if s.CharSpaceRatio >= s.WordSpaceRatio {
		errs = append(errs, fmt.Errorf("char_space_ratio must be less than word_space_ratio, got %v and %v", s.CharSpaceRatio, s.WordSpaceRatio))
	}

	// Nyquist check: tone frequency must be less than half the sample rate
	if s.ToneFrequency >= float64(s.SampleRate)/2 {
		errs = append(errs, fmt.Errorf("tone_frequency (%v Hz) must be less than Nyquist frequency (%v Hz)", s.ToneFrequency, float64(s.SampleRate)/2))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
