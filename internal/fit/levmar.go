package fit

import (
	"math"

	"github.com/m-okahara/growthfit/internal/growth"
)

// Marquardt damping schedule.
var (
	lambdaInit  = 1e-3
	lambdaUp    = 10.0
	lambdaDown  = 0.25
	lambdaFloor = 1e-12
	lambdaCeil  = 1e12
)

// levmar minimizes the sum of squared residuals between observed densities
// and the logistic model. The parameter vector is [r, K, N0] throughout.
type levmar struct {
	times     []float64
	densities []float64
}

func (l *levmar) sse(p [3]float64) float64 {
	sum := 0.0
	for i, t := range l.times {
		d := l.densities[i] - growth.Logistic(t, p[0], p[1], p[2])
		sum += d * d
	}
	return sum
}

// logisticPartials evaluates the model and its three partial derivatives at
// one time point. The derivatives are written in terms of the model value
// itself so they stay finite wherever the model does:
//
//	dN/dr  = t * N * (1 - N/K)
//	dN/dK  = (N/K) * (1 - N*e^{-rt}/N0)
//	dN/dN0 = N^2 * e^{-rt} / N0^2
func logisticPartials(t, r, k, n0 float64) (n, dr, dk, dn0 float64) {
	em := math.Exp(-r * t)
	s := 1 + (k-n0)/n0*em
	if math.IsInf(s, 0) {
		return 0, 0, 0, 0
	}
	n = k / s
	dr = t * n * (1 - n/k)
	dk = (n / k) * (1 - n*em/n0)
	dn0 = n * n * em / (n0 * n0)
	return n, dr, dk, dn0
}

// normal accumulates the normal equations J^T*J and J^T*residual at p.
func (l *levmar) normal(p [3]float64) (jtj [3][3]float64, jtr [3]float64) {
	for i, t := range l.times {
		n, dr, dk, dn0 := logisticPartials(t, p[0], p[1], p[2])
		res := l.densities[i] - n
		row := [3]float64{dr, dk, dn0}
		for a := 0; a < 3; a++ {
			jtr[a] += row[a] * res
			for b := a; b < 3; b++ {
				jtj[a][b] += row[a] * row[b]
			}
		}
	}
	jtj[1][0] = jtj[0][1]
	jtj[2][0] = jtj[0][2]
	jtj[2][1] = jtj[1][2]
	return jtj, jtr
}

// run iterates from p0 until the relative SSE improvement of an accepted
// step drops below ftol. It reports non-convergence when the iteration
// budget is spent or damping reaches its ceiling without an acceptable step.
func (l *levmar) run(p0 [3]float64, maxIter int, ftol float64) (p [3]float64, iters int, sse float64, ok bool) {
	p = p0
	sse = l.sse(p)
	if sse == 0 {
		return p, 0, 0, true
	}

	lambda := lambdaInit
	for iter := 1; iter <= maxIter; iter++ {
		jtj, jtr := l.normal(p)

		for {
			damped := jtj
			for d := 0; d < 3; d++ {
				damped[d][d] *= 1 + lambda
			}

			delta, solved := solve3(damped, jtr)
			if solved {
				trial := [3]float64{p[0] + delta[0], p[1] + delta[1], p[2] + delta[2]}
				if trial[0] > 0 && trial[1] > 0 && trial[2] > 0 {
					trialSSE := l.sse(trial)
					if !math.IsNaN(trialSSE) && !math.IsInf(trialSSE, 0) && trialSSE <= sse {
						improvement := (sse - trialSSE) / sse
						p, sse = trial, trialSSE
						lambda = math.Max(lambda*lambdaDown, lambdaFloor)
						if improvement < ftol {
							return p, iter, sse, true
						}
						break
					}
				}
			}

			lambda *= lambdaUp
			if lambda > lambdaCeil {
				return p, iter, sse, false
			}
		}
	}
	return p, maxIter, sse, false
}

// solve3 solves a*x = b by Gaussian elimination with partial pivoting.
func solve3(a [3][3]float64, b [3]float64) ([3]float64, bool) {
	for col := 0; col < 3; col++ {
		piv := col
		for row := col + 1; row < 3; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[piv][col]) {
				piv = row
			}
		}
		if piv != col {
			a[col], a[piv] = a[piv], a[col]
			b[col], b[piv] = b[piv], b[col]
		}
		if a[col][col] == 0 {
			return [3]float64{}, false
		}
		for row := col + 1; row < 3; row++ {
			f := a[row][col] / a[col][col]
			for k := col; k < 3; k++ {
				a[row][k] -= f * a[col][k]
			}
			b[row] -= f * b[col]
		}
	}

	var x [3]float64
	for row := 2; row >= 0; row-- {
		sum := b[row]
		for k := row + 1; k < 3; k++ {
			sum -= a[row][k] * x[k]
		}
		x[row] = sum / a[row][row]
	}
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return [3]float64{}, false
		}
	}
	return x, true
}

// covDiag returns the diagonal of (J^T*J)^{-1}, used for standard errors.
func covDiag(jtj [3][3]float64) ([3]float64, bool) {
	var diag [3]float64
	for i := 0; i < 3; i++ {
		var e [3]float64
		e[i] = 1
		x, ok := solve3(jtj, e)
		if !ok {
			return [3]float64{}, false
		}
		diag[i] = x[i]
	}
	return diag, true
}
