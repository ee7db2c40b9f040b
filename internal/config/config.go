package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultTolerance   = 0.0
	DefaultMaxIter     = 200
	DefaultFTol        = 1e-10
	DefaultClampTol    = 0.02
	DefaultCurvePoints = 100
)

type Config struct {
	Detection DetectionConfig `yaml:"detection"`
	Fit       FitConfig       `yaml:"fit"`
	Curve     CurveConfig     `yaml:"curve"`
	Workers   int             `yaml:"workers"`
}

// DetectionConfig tunes death-phase detection. Tolerance is the relative
// drop below the running maximum a point must show to count as decline;
// zero counts any strict decrease.
type DetectionConfig struct {
	Tolerance float64 `yaml:"tolerance"`
}

type FitConfig struct {
	MaxIter  int     `yaml:"max_iter"`
	FTol     float64 `yaml:"ftol"`
	ClampTol float64 `yaml:"clamp_tol"`
}

type CurveConfig struct {
	Points int `yaml:"points"`
}

func DefaultConfig() *Config {
	return &Config{
		Detection: DetectionConfig{
			Tolerance: DefaultTolerance,
		},
		Fit: FitConfig{
			MaxIter:  DefaultMaxIter,
			FTol:     DefaultFTol,
			ClampTol: DefaultClampTol,
		},
		Curve: CurveConfig{
			Points: DefaultCurvePoints,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
