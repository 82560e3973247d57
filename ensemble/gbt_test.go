package ensemble

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/bngocle/motor-insurance-renewal/pkg/errors"
)

func TestGradientBoosting_SeparableData(t *testing.T) {
	X, y := renewalData(200)

	params := DefaultGBTParams()
	params.NTrees = 50
	params.MaxDepth = 2
	params.MinSamplesLeaf = 5
	params.RandomState = 19

	gbt := NewGradientBoostingClassifier(params)
	if err := gbt.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if gbt.NTrees() != 50 {
		t.Errorf("NTrees() = %d, want 50", gbt.NTrees())
	}

	acc, err := gbt.Score(X, y)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if acc < 0.95 {
		t.Errorf("training accuracy = %v, want >= 0.95 on separable data", acc)
	}
}

func TestGradientBoosting_Holdout(t *testing.T) {
	X, y := renewalData(250)
	XTrain := X.Slice(0, 200, 0, 2)
	yTrain := y.Slice(0, 200, 0, 1)
	XTest := X.Slice(200, 250, 0, 2)
	yTest := y.Slice(200, 250, 0, 1)

	params := DefaultGBTParams()
	params.NTrees = 50
	params.MaxDepth = 2
	params.MinSamplesLeaf = 5

	gbt := NewGradientBoostingClassifier(params)
	if err := gbt.Fit(XTrain, yTrain); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	acc, err := gbt.Score(XTest, yTest)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if acc < 0.9 {
		t.Errorf("held-out accuracy = %v, want >= 0.9", acc)
	}
}

func TestGradientBoosting_PredictProba(t *testing.T) {
	X, y := renewalData(100)

	params := DefaultGBTParams()
	params.NTrees = 20
	gbt := NewGradientBoostingClassifier(params)
	if err := gbt.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	probas, err := gbt.PredictProba(X)
	if err != nil {
		t.Fatalf("PredictProba() error = %v", err)
	}
	rows, cols := probas.Dims()
	if rows != 100 || cols != 2 {
		t.Fatalf("probas dims = (%d, %d), want (100, 2)", rows, cols)
	}
	for i := 0; i < rows; i++ {
		p0, p1 := probas.At(i, 0), probas.At(i, 1)
		if p1 < 0 || p1 > 1 {
			t.Errorf("row %d: p1 = %v out of [0, 1]", i, p1)
		}
		if math.Abs(p0+p1-1) > 1e-9 {
			t.Errorf("row %d: probabilities sum to %v, want 1", i, p0+p1)
		}
	}
}

func TestGradientBoosting_SubsampleDeterministic(t *testing.T) {
	X, y := renewalData(150)

	params := DefaultGBTParams()
	params.NTrees = 15
	params.Subsample = 0.8
	params.RandomState = 42

	fit := func() mat.Matrix {
		gbt := NewGradientBoostingClassifier(params)
		if err := gbt.Fit(X, y); err != nil {
			t.Fatalf("Fit() error = %v", err)
		}
		probas, err := gbt.PredictProba(X)
		if err != nil {
			t.Fatalf("PredictProba() error = %v", err)
		}
		return probas
	}

	if !mat.Equal(fit(), fit()) {
		t.Error("same seed must give identical predictions")
	}
}

func TestGradientBoosting_ParamValidation(t *testing.T) {
	X, y := renewalData(50)

	tests := []struct {
		name   string
		mutate func(*GBTParams)
	}{
		{"zero trees", func(p *GBTParams) { p.NTrees = 0 }},
		{"negative learning rate", func(p *GBTParams) { p.LearningRate = -0.1 }},
		{"subsample above one", func(p *GBTParams) { p.Subsample = 1.5 }},
		{"zero min samples leaf", func(p *GBTParams) { p.MinSamplesLeaf = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := DefaultGBTParams()
			tt.mutate(&params)
			gbt := NewGradientBoostingClassifier(params)
			if err := gbt.Fit(X, y); err == nil {
				t.Error("Fit() should reject invalid parameters")
			} else {
				var ve *errors.ValidationError
				if !errors.As(err, &ve) {
					t.Errorf("error = %v, want ValidationError", err)
				}
			}
		})
	}
}

func TestGradientBoosting_SingleClass(t *testing.T) {
	X, _ := renewalData(20)
	y := mat.NewDense(20, 1, nil)

	gbt := NewGradientBoostingClassifier(DefaultGBTParams())
	err := gbt.Fit(X, y)
	if err == nil {
		t.Fatal("Fit() with single-class labels should error")
	}
	var degen *errors.DegenerateDataError
	if !errors.As(err, &degen) {
		t.Errorf("error = %v, want DegenerateDataError", err)
	}
}
