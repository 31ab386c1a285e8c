// Package stats holds the numeric fits behind the regression and
// correlation charts.
package stats

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrTooFewPoints is returned when a fit needs more observations.
	ErrTooFewPoints = errors.New("at least two points are required")
	// ErrZeroVariance is returned when every x value is the same.
	ErrZeroVariance = errors.New("x values have zero variance")
	// ErrLengthMismatch is returned when x and y differ in length.
	ErrLengthMismatch = errors.New("x and y lengths differ")
)

// LinearFit is an ordinary least squares line y = Intercept + Slope*x.
type LinearFit struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	RSquared  float64 `json:"r_squared"`
	N         int     `json:"n"`
}

// Predict evaluates the fitted line at x.
func (f LinearFit) Predict(x float64) float64 {
	return f.Intercept + f.Slope*x
}

// FitLinear fits an OLS line through the paired observations.
func FitLinear(x, y []float64) (LinearFit, error) {
	if len(x) != len(y) {
		return LinearFit{}, ErrLengthMismatch
	}
	if len(x) < 2 {
		return LinearFit{}, ErrTooFewPoints
	}
	if floats.Max(x) == floats.Min(x) {
		return LinearFit{}, ErrZeroVariance
	}

	alpha, beta := stat.LinearRegression(x, y, nil, false)
	fit := LinearFit{Slope: beta, Intercept: alpha, N: len(x)}
	fit.RSquared = rSquared(x, y, fit)
	return fit, nil
}

// rSquared computes 1 - SS_res/SS_tot. A constant y gives 1 when the line
// reproduces it exactly and 0 otherwise.
func rSquared(x, y []float64, fit LinearFit) float64 {
	mean := stat.Mean(y, nil)
	var ssRes, ssTot float64
	for i := range x {
		r := y[i] - fit.Predict(x[i])
		ssRes += r * r
		d := y[i] - mean
		ssTot += d * d
	}
	if ssTot == 0 {
		if ssRes < 1e-12 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

// Span returns n evenly spaced samples over [lo, hi].
func Span(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}

// Round rounds v to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
