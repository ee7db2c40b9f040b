package config

// Presets are analysis profiles for common data regimes. "strict" rejects
// anything questionable, "noisy" absorbs shallow plateau dips, "fast"
// trades precision for iteration count.
var Presets = map[string]*Config{
	"default": DefaultConfig(),
	"strict": {
		Detection: DetectionConfig{Tolerance: 0},
		Fit:       FitConfig{MaxIter: 400, FTol: 1e-12, ClampTol: 0},
		Curve:     CurveConfig{Points: DefaultCurvePoints},
	},
	"noisy": {
		Detection: DetectionConfig{Tolerance: 0.05},
		Fit:       FitConfig{MaxIter: 300, FTol: 1e-8, ClampTol: 0.05},
		Curve:     CurveConfig{Points: DefaultCurvePoints},
	},
	"fast": {
		Detection: DetectionConfig{Tolerance: 0},
		Fit:       FitConfig{MaxIter: 50, FTol: 1e-6, ClampTol: DefaultClampTol},
		Curve:     CurveConfig{Points: 50},
	},
}

func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
