package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/bngocle/motor-insurance-renewal/pkg/errors"
)

// TTestResult holds the outcome of Welch's two-sample t-test.
type TTestResult struct {
	Statistic float64
	DF        float64 // Welch-Satterthwaite degrees of freedom
	PValue    float64 // two-sided

	MeanX, MeanY float64
	NX, NY       int
}

// WelchTTest compares the means of two independent samples without assuming
// equal variances, returning the two-sided p-value.
func WelchTTest(x, y []float64) (*TTestResult, error) {
	if len(x) < 2 || len(y) < 2 {
		return nil, errors.NewValueError("WelchTTest", "each sample needs at least two observations")
	}

	meanX := stat.Mean(x, nil)
	meanY := stat.Mean(y, nil)
	varX := stat.Variance(x, nil)
	varY := stat.Variance(y, nil)

	nx := float64(len(x))
	ny := float64(len(y))
	sx := varX / nx
	sy := varY / ny
	se2 := sx + sy
	if se2 == 0 {
		return nil, errors.NewValueError("WelchTTest", "both samples have zero variance")
	}

	t := (meanX - meanY) / math.Sqrt(se2)
	df := se2 * se2 / (sx*sx/(nx-1) + sy*sy/(ny-1))

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * dist.CDF(-math.Abs(t))

	return &TTestResult{
		Statistic: t,
		DF:        df,
		PValue:    p,
		MeanX:     meanX,
		MeanY:     meanY,
		NX:        len(x),
		NY:        len(y),
	}, nil
}
