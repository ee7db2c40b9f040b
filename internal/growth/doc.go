// Package growth provides the core growth-curve analysis primitives.
//
// The package defines the domain types and the pure algorithms at the center
// of the pipeline:
//
//   - [Series]: one group's density-over-time observations
//   - [DeathPhase]: flags the terminal decline of a series
//   - [Logistic]: the three-parameter logistic growth law
//   - [Curve]: lazy sampling of a fitted curve
//   - [FitResult]: per-group fit outcome, converged or failed
//
// # Death Phase
//
// A series has entered its death phase at the first point from which density
// stays below the prior running maximum through the end of the observations.
// A transient dip that later rebounds to the prior maximum is not a death
// phase:
//
//	flags := growth.DeathPhase(s.Obs, 0)
//	kept := s.Exclude(flags)
//
// Fitting lives in the fit package; growth itself stays dependency-free.
package growth
