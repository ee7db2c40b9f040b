// Package fit estimates logistic growth parameters from observed density
// series by nonlinear least squares.
//
// [Fitter.Fit] takes one group's observations (death phase already removed)
// and returns a [growth.FitResult]: either converged parameters with quality
// measures, or a failure with a reason. Groups that cannot be fit never stop
// a batch; see the batch package.
//
// The solver is a Levenberg-Marquardt iteration specialized to the three
// logistic parameters, using analytic partial derivatives. Damping rises on
// rejected steps and falls on accepted ones; the fit fails once damping hits
// its ceiling or the iteration budget runs out.
package fit
