package growth

import "errors"

// Domain errors for fit outcomes. Every failure is local to one group; the
// batch layer never turns these into a global abort.
var (
	// ErrInsufficientData indicates fewer than three usable observations.
	ErrInsufficientData = errors.New("growth: insufficient data for fit")

	// ErrNonConvergence indicates the optimizer exhausted its iteration
	// budget without meeting the residual-improvement tolerance.
	ErrNonConvergence = errors.New("growth: fit did not converge")

	// ErrDegenerateParameters indicates a non-finite or non-positive
	// estimate, or a carrying capacity below the observed maximum.
	ErrDegenerateParameters = errors.New("growth: degenerate fit parameters")
)

// FitError wraps a fit failure with the group it belongs to.
type FitError struct {
	Key     Key
	Wrapped error
}

func (e *FitError) Error() string {
	return e.Key.String() + ": " + e.Wrapped.Error()
}

func (e *FitError) Unwrap() error {
	return e.Wrapped
}
