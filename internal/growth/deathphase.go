package growth

// DeathPhase flags the terminal decline of an ordered series. The returned
// slice has one flag per observation and is always a (possibly empty) run of
// false followed by a (possibly empty) run of true.
//
// The death phase begins at the smallest index i whose observation and every
// later one sit strictly below the maximum density seen before i, by more
// than the relative tolerance tol. A decline reversed by a later rebound to
// the prior maximum or above is not a death phase. With tol = 0 any strict
// decrease counts. Series of length 0 or 1 and series that never decrease
// yield all-false flags.
func DeathPhase(obs []Observation, tol float64) []bool {
	flags := make([]bool, len(obs))
	if len(obs) < 2 {
		return flags
	}
	if tol < 0 {
		tol = 0
	}

	// prefixMax[i] is the highest density strictly before index i.
	prefixMax := make([]float64, len(obs))
	run := obs[0].Density
	for i := 1; i < len(obs); i++ {
		prefixMax[i] = run
		if obs[i].Density > run {
			run = obs[i].Density
		}
	}

	// Walk candidates from the tail. Once an index fails against its own
	// prefix maximum it also fails against every earlier, smaller one, so
	// the scan can stop there.
	start := len(obs)
	for i := len(obs) - 1; i >= 1; i-- {
		if !sustainedDecline(obs[i:], prefixMax[i], tol) {
			break
		}
		start = i
	}

	for i := start; i < len(obs); i++ {
		flags[i] = true
	}
	return flags
}

// sustainedDecline reports whether every observation sits strictly below
// peak by more than the relative tolerance.
func sustainedDecline(tail []Observation, peak, tol float64) bool {
	limit := peak * (1 - tol)
	for _, o := range tail {
		if o.Density >= limit {
			return false
		}
	}
	return true
}
