package optimize

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ErrSurrogateFit is returned when the Gaussian Process cannot be fitted
// (non-finite targets or a covariance matrix that is not positive definite).
var ErrSurrogateFit = errors.New("surrogate fit failed")

// jitter is added to the covariance diagonal. The objective is deterministic,
// so it only stabilizes the factorization.
const jitter = 1e-6

// lengthScaleGrid is searched for the length scale that maximizes the log
// marginal likelihood. Inputs live in the unit cube.
var lengthScaleGrid = []float64{0.05, 0.1, 0.2, 0.35, 0.5, 0.75, 1.0, 1.5, 2.0, 3.0}

// GaussianProcess is a zero-mean GP with an isotropic Matérn-5/2 kernel over
// standardized targets. It is refit from scratch after every observation.
type GaussianProcess struct {
	x           [][]float64
	lengthScale float64
	yMean       float64
	yScale      float64
	chol        mat.Cholesky
	alpha       *mat.VecDense // K⁻¹ y (standardized)
	logML       float64
}

// FitGP fits a surrogate to inputs x (rows in the unit cube) and targets y.
func FitGP(x [][]float64, y []float64) (*GaussianProcess, error) {
	n := len(y)
	if n == 0 || len(x) != n {
		return nil, fmt.Errorf("%w: %d inputs for %d targets", ErrSurrogateFit, len(x), n)
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: target %d is %v", ErrSurrogateFit, i, v)
		}
	}

	mean, std := stat.MeanStdDev(y, nil)
	if n < 2 || std == 0 || math.IsNaN(std) {
		std = 1
	}
	ys := make([]float64, n)
	for i, v := range y {
		ys[i] = (v - mean) / std
	}
	yv := mat.NewVecDense(n, ys)

	var best *GaussianProcess
	for _, ls := range lengthScaleGrid {
		gp := &GaussianProcess{x: x, lengthScale: ls, yMean: mean, yScale: std}
		if !gp.chol.Factorize(gp.covariance()) {
			continue
		}
		alpha := mat.NewVecDense(n, nil)
		if err := gp.chol.SolveVecTo(alpha, yv); err != nil {
			continue
		}
		gp.alpha = alpha
		gp.logML = -0.5*mat.Dot(yv, alpha) - 0.5*gp.chol.LogDet() - 0.5*float64(n)*math.Log(2*math.Pi)
		if math.IsNaN(gp.logML) {
			continue
		}
		if best == nil || gp.logML > best.logML {
			best = gp
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: covariance not positive definite for any length scale", ErrSurrogateFit)
	}
	return best, nil
}

func (gp *GaussianProcess) covariance() *mat.SymDense {
	n := len(gp.x)
	k := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := gp.kernel(gp.x[i], gp.x[j])
			if i == j {
				v += jitter
			}
			k.SetSym(i, j, v)
		}
	}
	return k
}

// kernel is Matérn-5/2 with unit signal variance.
func (gp *GaussianProcess) kernel(a, b []float64) float64 {
	r := math.Sqrt(5) * floats.Distance(a, b, 2) / gp.lengthScale
	return (1 + r + r*r/3) * math.Exp(-r)
}

// Predict returns the posterior mean and standard deviation at x, in the
// units of the original targets.
func (gp *GaussianProcess) Predict(x []float64) (mean, std float64) {
	n := len(gp.x)
	ks := mat.NewVecDense(n, nil)
	for i := range gp.x {
		ks.SetVec(i, gp.kernel(gp.x[i], x))
	}
	mu := mat.Dot(ks, gp.alpha)

	w := mat.NewVecDense(n, nil)
	variance := 1.0
	if err := gp.chol.SolveVecTo(w, ks); err == nil {
		variance -= mat.Dot(ks, w)
	}
	if variance < 0 {
		variance = 0
	}
	return gp.yMean + mu*gp.yScale, math.Sqrt(variance) * gp.yScale
}

// LengthScale returns the selected kernel length scale.
func (gp *GaussianProcess) LengthScale() float64 { return gp.lengthScale }
