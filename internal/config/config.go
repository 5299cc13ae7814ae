package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"city-distance/internal/calculator"
	"city-distance/internal/points"

	"gopkg.in/yaml.v3"
)

type Config struct {
	InputPath       string         `yaml:"input_path"`
	OutputPath      string         `yaml:"output_path"`
	ThresholdMeters float64        `yaml:"threshold_meters"`
	Columns         points.Columns `yaml:"columns"`
	InputSheet      string         `yaml:"input_sheet"`
	OutputSheet     string         `yaml:"output_sheet"`
	LegacyHeader    bool           `yaml:"legacy_header"`
	// Workers <= 0 uses every CPU, 1 runs the plain sequential scan.
	Workers int           `yaml:"workers"`
	Log     LoggingConfig `yaml:"log"`
	Server  ServerConfig  `yaml:"server"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ServerConfig struct {
	Listen    string `yaml:"listen"`
	UploadDir string `yaml:"upload_dir"`
	OutputDir string `yaml:"output_dir"`
}

func Default() *Config {
	return &Config{
		InputPath:       "india_city.csv",
		OutputPath:      "city_distances.csv",
		ThresholdMeters: 100000,
		Columns:         points.DefaultColumns,
		OutputSheet:     "Distances",
		Workers:         1,
		Log: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Listen:    "127.0.0.1:9595",
			UploadDir: "uploads",
			OutputDir: "output",
		},
	}
}

// LoadConfig reads a YAML file over the defaults. An empty path returns the
// defaults unchanged. Unknown keys are rejected.
func LoadConfig(filename string) (*Config, error) {
	config := Default()
	if filename == "" {
		return config, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("error parsing config file %s: %w", filename, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", filename, err)
	}
	return config, nil
}

func (c *Config) Validate() error {
	if c.InputPath == "" {
		return errors.New("input_path is required")
	}
	if c.OutputPath == "" {
		return errors.New("output_path is required")
	}
	if err := calculator.ValidateThreshold(c.ThresholdMeters); err != nil {
		return fmt.Errorf("threshold_meters: %w", err)
	}

	cols := c.Columns
	if cols.Name == "" || cols.Latitude == "" || cols.Longitude == "" {
		return errors.New("columns: name, latitude and longitude must all be set")
	}
	if cols.Name == cols.Latitude || cols.Name == cols.Longitude || cols.Latitude == cols.Longitude {
		return fmt.Errorf("columns: %q, %q and %q must be distinct", cols.Name, cols.Latitude, cols.Longitude)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q, expected text or json", c.Log.Format)
	}
	return nil
}
