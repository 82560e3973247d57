package linear

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/bngocle/motor-insurance-renewal/pkg/errors"
)

// priceThresholdData builds n policies where renewal is decided by a hard
// price threshold: renewed iff price < 500.
func priceThresholdData(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		price := 200.0 + float64(i*7%600)
		X.Set(i, 0, price)
		if price < 500 {
			y.Set(i, 0, 1)
		}
	}
	return X, y
}

func TestLogisticRegression_PriceThreshold(t *testing.T) {
	// Quadratic-free separable-ish problem: the model must recover the
	// price rule well enough to score at least 0.9 on held-out rows.
	swapWarningHandler(t, func(error) {})

	X, y := priceThresholdData(100)
	XTrain := X.Slice(0, 80, 0, 1)
	yTrain := y.Slice(0, 80, 0, 1)
	XTest := X.Slice(80, 100, 0, 1)
	yTest := y.Slice(80, 100, 0, 1)

	lr := NewLogisticRegression()
	if err := lr.Fit(XTrain, yTrain); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	acc, err := lr.Score(XTest, yTest)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if acc < 0.9 {
		t.Errorf("accuracy = %v, want >= 0.9", acc)
	}

	// Higher price must lower the renewal probability.
	if coef := lr.Coef()[0]; coef >= 0 {
		t.Errorf("price coefficient = %v, want negative", coef)
	}
}

func TestLogisticRegression_KnownCoefficients(t *testing.T) {
	// Data generated from p = sigmoid(-1 + 2*x); with enough samples the
	// MLE should land near the generating parameters.
	n := 2000
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	// Deterministic quasi-random draw keeps the test stable.
	u := 0.5
	for i := 0; i < n; i++ {
		x := -2.0 + 4.0*float64(i)/float64(n-1)
		X.Set(i, 0, x)
		p := 1.0 / (1.0 + math.Exp(-(-1.0 + 2.0*x)))
		u = math.Mod(u+0.6180339887498949, 1.0)
		if u < p {
			y.Set(i, 0, 1)
		}
	}

	lr := NewLogisticRegression(WithFeatureNames([]string{"x"}))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	if got := lr.Intercept(); math.Abs(got-(-1)) > 0.3 {
		t.Errorf("Intercept = %v, want ~ -1", got)
	}
	if got := lr.Coef()[0]; math.Abs(got-2) > 0.4 {
		t.Errorf("Coef = %v, want ~2", got)
	}
}

func TestLogisticRegression_PredictProba(t *testing.T) {
	X, y := priceThresholdData(100)

	lr := NewLogisticRegression()
	swapWarningHandler(t, func(error) {})
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	probas, err := lr.PredictProba(X)
	if err != nil {
		t.Fatalf("PredictProba() error = %v", err)
	}
	rows, cols := probas.Dims()
	if rows != 100 || cols != 2 {
		t.Fatalf("probas dims = (%d, %d), want (100, 2)", rows, cols)
	}
	for i := 0; i < rows; i++ {
		p0, p1 := probas.At(i, 0), probas.At(i, 1)
		if math.Abs(p0+p1-1) > 1e-9 {
			t.Errorf("row %d: probabilities sum to %v, want 1", i, p0+p1)
		}
		if p1 < 0 || p1 > 1 {
			t.Errorf("row %d: p1 = %v out of [0, 1]", i, p1)
		}
	}
}

func TestLogisticRegression_CoefficientTable(t *testing.T) {
	X, y := priceThresholdData(200)

	lr := NewLogisticRegression(WithFeatureNames([]string{"price"}))
	swapWarningHandler(t, func(error) {})
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	table, err := lr.CoefficientTable()
	if err != nil {
		t.Fatalf("CoefficientTable() error = %v", err)
	}
	if len(table) != 2 {
		t.Fatalf("got %d rows, want 2 (intercept + price)", len(table))
	}
	if table[0].Name != "(intercept)" {
		t.Errorf("first row name = %q, want (intercept)", table[0].Name)
	}
	if table[1].Name != "price" {
		t.Errorf("second row name = %q, want price", table[1].Name)
	}
	for _, row := range table {
		if math.IsNaN(row.PValue) {
			continue // separable data has undefined Wald errors
		}
		if row.PValue < 0 || row.PValue > 1 {
			t.Errorf("%s: PValue = %v out of [0, 1]", row.Name, row.PValue)
		}
		if !math.IsNaN(row.StdErr) && row.StdErr <= 0 {
			t.Errorf("%s: StdErr = %v, want positive", row.Name, row.StdErr)
		}
	}
}

func TestLogisticRegression_NotFitted(t *testing.T) {
	lr := NewLogisticRegression()
	X := mat.NewDense(2, 1, []float64{1, 2})

	if _, err := lr.Predict(X); err == nil {
		t.Error("Predict() before Fit should error")
	} else {
		var nf *errors.NotFittedError
		if !errors.As(err, &nf) {
			t.Errorf("error = %v, want NotFittedError", err)
		}
	}
	if _, err := lr.CoefficientTable(); err == nil {
		t.Error("CoefficientTable() before Fit should error")
	}
}

func TestLogisticRegression_DegenerateData(t *testing.T) {
	tests := []struct {
		name     string
		X        *mat.Dense
		y        *mat.Dense
		wantKind string
	}{
		{
			name:     "single class labels",
			X:        mat.NewDense(4, 1, []float64{1, 2, 3, 4}),
			y:        mat.NewDense(4, 1, []float64{1, 1, 1, 1}),
			wantKind: "single_class",
		},
		{
			name:     "zero variance feature",
			X:        mat.NewDense(4, 1, []float64{7, 7, 7, 7}),
			y:        mat.NewDense(4, 1, []float64{0, 1, 0, 1}),
			wantKind: "zero_variance",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lr := NewLogisticRegression()
			err := lr.Fit(tt.X, tt.y)
			if err == nil {
				t.Fatal("Fit() should error on degenerate data")
			}
			var degen *errors.DegenerateDataError
			if !errors.As(err, &degen) {
				t.Fatalf("error = %v, want DegenerateDataError", err)
			}
			if degen.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", degen.Kind, tt.wantKind)
			}
		})
	}
}

func TestLogisticRegression_DimensionErrors(t *testing.T) {
	lr := NewLogisticRegression()
	X := mat.NewDense(3, 2, []float64{1, 2, 3, 5, 5, 1})
	y := mat.NewDense(3, 1, []float64{0, 1, 0})
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	bad := mat.NewDense(3, 3, nil)
	if _, err := lr.Predict(bad); err == nil {
		t.Error("Predict() with wrong feature count should error")
	}

	yBad := mat.NewDense(2, 1, []float64{0, 1})
	if err := lr.Fit(X, yBad); err == nil {
		t.Error("Fit() with mismatched rows should error")
	}

	yNonBinary := mat.NewDense(3, 1, []float64{0, 1, 2})
	if err := lr.Fit(X, yNonBinary); err == nil {
		t.Error("Fit() with non-binary labels should error")
	}
}

// swapWarningHandler routes package warnings to fn for the duration of the
// test and restores the default afterwards.
func swapWarningHandler(t *testing.T, fn func(error)) {
	t.Helper()
	errors.SetWarningHandler(fn)
	t.Cleanup(func() {
		errors.SetWarningHandler(func(error) {})
	})
}
