package growth

import "math"

// Observation is one density measurement at a point in time.
type Observation struct {
	T       float64 `json:"time"`
	Density float64 `json:"density"`
}

// Key identifies one organism/experiment/replicate combination. Groups are
// independent units of work; nothing in the pipeline crosses keys.
type Key struct {
	Organism   string `json:"organism"`
	Experiment string `json:"experiment"`
	Replicate  string `json:"replicate"`
}

func (k Key) String() string {
	return k.Organism + "/" + k.Experiment + "/" + k.Replicate
}

// Series owns one group's observations, ordered ascending by time.
// Duplicate timestamps are permitted and preserved.
type Series struct {
	Key Key
	Obs []Observation
}

func (s Series) Clone() Series {
	obs := make([]Observation, len(s.Obs))
	copy(obs, s.Obs)
	return Series{Key: s.Key, Obs: obs}
}

// MaxDensity returns the highest observed density, or 0 for an empty series.
func (s Series) MaxDensity() float64 {
	max := 0.0
	for _, o := range s.Obs {
		if o.Density > max {
			max = o.Density
		}
	}
	return max
}

// Exclude returns a copy of the series without the flagged observations.
// Flags shorter than the series leave the tail untouched.
func (s Series) Exclude(flags []bool) Series {
	kept := make([]Observation, 0, len(s.Obs))
	for i, o := range s.Obs {
		if i < len(flags) && flags[i] {
			continue
		}
		kept = append(kept, o)
	}
	return Series{Key: s.Key, Obs: kept}
}

// Times returns the time column of the series.
func (s Series) Times() []float64 {
	ts := make([]float64, len(s.Obs))
	for i, o := range s.Obs {
		ts[i] = o.T
	}
	return ts
}

// Densities returns the density column of the series.
func (s Series) Densities() []float64 {
	ds := make([]float64, len(s.Obs))
	for i, o := range s.Obs {
		ds[i] = o.Density
	}
	return ds
}

// IsValid reports whether every observation is finite and non-negative.
func (s Series) IsValid() bool {
	for _, o := range s.Obs {
		if math.IsNaN(o.T) || math.IsInf(o.T, 0) || o.T < 0 {
			return false
		}
		if math.IsNaN(o.Density) || math.IsInf(o.Density, 0) || o.Density < 0 {
			return false
		}
	}
	return true
}

// Status reports whether a group's fit produced parameters.
type Status string

const (
	StatusConverged Status = "converged"
	StatusFailed    Status = "failed"
)

// FailReason classifies why a fit produced no parameters.
type FailReason string

const (
	ReasonNone             FailReason = ""
	ReasonInsufficientData FailReason = "insufficient_data"
	ReasonNonConvergence   FailReason = "non_convergence"
	ReasonDegenerate       FailReason = "degenerate_parameters"
)

// FitResult holds the outcome of fitting one group's filtered series.
// Parameters are reported at full precision in the input's units; any unit
// conversion is the caller's responsibility. A result is immutable once
// produced.
type FitResult struct {
	Key    Key        `json:"key"`
	Status Status     `json:"status"`
	Reason FailReason `json:"reason,omitempty"`

	R  float64 `json:"r,omitempty"`  // intrinsic growth rate, 1/time
	K  float64 `json:"k,omitempty"`  // carrying capacity, density units
	N0 float64 `json:"n0,omitempty"` // density at t = 0

	StdErrR  float64 `json:"stderr_r,omitempty"`
	StdErrK  float64 `json:"stderr_k,omitempty"`
	StdErrN0 float64 `json:"stderr_n0,omitempty"`

	RMSE       float64 `json:"rmse,omitempty"`
	RSquared   float64 `json:"r_squared,omitempty"`
	Iterations int     `json:"iterations,omitempty"`

	NObs   int `json:"n_obs"`   // observations the fit used
	NDeath int `json:"n_death"` // observations excluded as death phase
}

func (f FitResult) Converged() bool {
	return f.Status == StatusConverged
}

// Curve returns the fitted parameter triple for sampling.
// Only meaningful when the fit converged.
func (f FitResult) Curve() Curve {
	return Curve{R: f.R, K: f.K, N0: f.N0}
}

// Err maps a failed result onto its domain error, nil when converged.
func (f FitResult) Err() error {
	if f.Status != StatusFailed {
		return nil
	}
	switch f.Reason {
	case ReasonInsufficientData:
		return &FitError{Key: f.Key, Wrapped: ErrInsufficientData}
	case ReasonNonConvergence:
		return &FitError{Key: f.Key, Wrapped: ErrNonConvergence}
	default:
		return &FitError{Key: f.Key, Wrapped: ErrDegenerateParameters}
	}
}
