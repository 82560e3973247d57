// Package linear implements the logistic regression model used to predict
// policy renewal.
package linear

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/bngocle/motor-insurance-renewal/core/model"
	"github.com/bngocle/motor-insurance-renewal/pkg/errors"
)

// LogisticRegression is a binary classifier with a logit link, fitted by
// maximum likelihood using iteratively reweighted least squares. No
// regularization is applied.
type LogisticRegression struct {
	state *model.StateManager

	// Hyperparameters
	fitIntercept bool
	maxIter      int
	tol          float64
	featureNames []string

	// Model parameters
	coef_      []float64
	intercept_ float64
	nFeatures_ int
	nIter_     int
	converged_ bool

	// Wald statistics computed from the final working weights
	table []Coefficient
}

// Coefficient is one row of the fitted coefficient table.
type Coefficient struct {
	Name     string
	Estimate float64
	StdErr   float64
	Z        float64
	PValue   float64
}

// LogisticRegressionOption is a functional option for LogisticRegression.
type LogisticRegressionOption func(*LogisticRegression)

// WithFitIntercept sets whether to fit an intercept term.
func WithFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.fitIntercept = fit
	}
}

// WithMaxIter sets the maximum number of IRLS iterations.
func WithMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.maxIter = maxIter
	}
}

// WithTol sets the convergence tolerance on the coefficient update.
func WithTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.tol = tol
	}
}

// WithFeatureNames names the feature columns for the coefficient table.
func WithFeatureNames(names []string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.featureNames = append([]string(nil), names...)
	}
}

// NewLogisticRegression creates a new LogisticRegression classifier.
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:        model.NewStateManager(),
		fitIntercept: true,
		maxIter:      50,
		tol:          1e-8,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// Fit trains the model on X (n_samples x n_features) and binary labels
// y (n_samples x 1, values 0 or 1).
//
// Degenerate training data is a fatal error for this model: a label column
// with a single class or a feature column with zero variance returns a
// DegenerateDataError.
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples == 0 {
		return errors.NewModelError("LogisticRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if nSamples != yRows {
		return errors.NewDimensionError("LogisticRegression.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("LogisticRegression.Fit", 1, yCols, 1)
	}

	labels := make([]float64, nSamples)
	hasZero, hasOne := false, false
	for i := 0; i < nSamples; i++ {
		v := y.At(i, 0)
		if v != 0 && v != 1 {
			return errors.NewValueError("LogisticRegression.Fit", "labels must be binary (0 or 1)")
		}
		labels[i] = v
		if v == 0 {
			hasZero = true
		} else {
			hasOne = true
		}
	}
	if !hasZero || !hasOne {
		return errors.NewDegenerateDataError("LogisticRegression.Fit", "single_class", "")
	}
	if col, ok := zeroVarianceColumn(X); ok {
		return errors.NewDegenerateDataError("LogisticRegression.Fit", "zero_variance", lr.featureName(col))
	}

	// Design matrix with an optional leading intercept column.
	p := nFeatures
	if lr.fitIntercept {
		p++
	}
	design := mat.NewDense(nSamples, p, nil)
	for i := 0; i < nSamples; i++ {
		j0 := 0
		if lr.fitIntercept {
			design.Set(i, 0, 1)
			j0 = 1
		}
		for j := 0; j < nFeatures; j++ {
			design.Set(i, j0+j, X.At(i, j))
		}
	}

	beta := mat.NewVecDense(p, nil)
	eta := mat.NewVecDense(nSamples, nil)
	weights := make([]float64, nSamples)

	lr.converged_ = false
	var info *mat.SymDense
	for iter := 0; iter < lr.maxIter; iter++ {
		lr.nIter_ = iter + 1

		eta.MulVec(design, beta)

		// Working response z = eta + (y - mu) / w with w = mu(1-mu).
		z := mat.NewVecDense(nSamples, nil)
		for i := 0; i < nSamples; i++ {
			mu := sigmoid(eta.AtVec(i))
			w := mu * (1 - mu)
			if w < 1e-10 {
				w = 1e-10
			}
			weights[i] = w
			z.SetVec(i, eta.AtVec(i)+(labels[i]-mu)/w)
		}

		// Weighted normal equations: (X'WX) beta = X'Wz.
		xtwx := mat.NewSymDense(p, nil)
		xtwz := mat.NewVecDense(p, nil)
		for a := 0; a < p; a++ {
			for b := a; b < p; b++ {
				sum := 0.0
				for i := 0; i < nSamples; i++ {
					sum += weights[i] * design.At(i, a) * design.At(i, b)
				}
				xtwx.SetSym(a, b, sum)
			}
			sum := 0.0
			for i := 0; i < nSamples; i++ {
				sum += weights[i] * design.At(i, a) * z.AtVec(i)
			}
			xtwz.SetVec(a, sum)
		}

		var chol mat.Cholesky
		if ok := chol.Factorize(xtwx); !ok {
			return errors.Wrap(errors.ErrSingularMatrix, "LogisticRegression.Fit: weighted normal equations")
		}
		next := mat.NewVecDense(p, nil)
		if err := chol.SolveVecTo(next, xtwz); err != nil {
			return errors.Wrap(err, "LogisticRegression.Fit: solving IRLS step")
		}

		delta := 0.0
		for a := 0; a < p; a++ {
			delta = math.Max(delta, math.Abs(next.AtVec(a)-beta.AtVec(a)))
		}
		beta.CopyVec(next)
		info = xtwx

		if delta < lr.tol {
			lr.converged_ = true
			break
		}
	}
	if !lr.converged_ {
		errors.Warn(errors.NewConvergenceWarning("LogisticRegression", lr.nIter_,
			"IRLS did not converge; data may be separable"))
	}

	lr.nFeatures_ = nFeatures
	if lr.fitIntercept {
		lr.intercept_ = beta.AtVec(0)
		lr.coef_ = make([]float64, nFeatures)
		for j := 0; j < nFeatures; j++ {
			lr.coef_[j] = beta.AtVec(j + 1)
		}
	} else {
		lr.intercept_ = 0
		lr.coef_ = make([]float64, nFeatures)
		for j := 0; j < nFeatures; j++ {
			lr.coef_[j] = beta.AtVec(j)
		}
	}

	lr.buildCoefficientTable(beta, info)
	lr.state.SetDimensions(nFeatures, nSamples)
	lr.state.SetFitted()
	return nil
}

// buildCoefficientTable computes Wald standard errors from the inverse of
// the final information matrix X'WX.
func (lr *LogisticRegression) buildCoefficientTable(beta *mat.VecDense, info *mat.SymDense) {
	p := beta.Len()
	lr.table = nil

	var inv mat.Dense
	if err := inv.Inverse(info); err != nil {
		// Separable or collinear data: report estimates without errors.
		for a := 0; a < p; a++ {
			lr.table = append(lr.table, Coefficient{
				Name:     lr.rowName(a),
				Estimate: beta.AtVec(a),
				StdErr:   math.NaN(),
				Z:        math.NaN(),
				PValue:   math.NaN(),
			})
		}
		return
	}

	norm := distuv.Normal{Mu: 0, Sigma: 1}
	for a := 0; a < p; a++ {
		se := math.Sqrt(inv.At(a, a))
		z := beta.AtVec(a) / se
		lr.table = append(lr.table, Coefficient{
			Name:     lr.rowName(a),
			Estimate: beta.AtVec(a),
			StdErr:   se,
			Z:        z,
			PValue:   2 * norm.CDF(-math.Abs(z)),
		})
	}
}

func (lr *LogisticRegression) rowName(idx int) string {
	if lr.fitIntercept {
		if idx == 0 {
			return "(intercept)"
		}
		idx--
	}
	return lr.featureName(idx)
}

func (lr *LogisticRegression) featureName(idx int) string {
	if idx < len(lr.featureNames) {
		return lr.featureNames[idx]
	}
	return fmt.Sprintf("x%d", idx)
}

// CoefficientTable returns the fitted coefficient estimates with Wald
// standard errors, z statistics and two-sided p-values.
func (lr *LogisticRegression) CoefficientTable() ([]Coefficient, error) {
	if err := lr.state.RequireFitted("LogisticRegression", "CoefficientTable"); err != nil {
		return nil, err
	}
	return append([]Coefficient(nil), lr.table...), nil
}

// DecisionFunction returns the linear predictor for each row of X.
func (lr *LogisticRegression) DecisionFunction(X mat.Matrix) (*mat.VecDense, error) {
	if err := lr.state.RequireFitted("LogisticRegression", "DecisionFunction"); err != nil {
		return nil, err
	}
	nSamples, nFeatures := X.Dims()
	if nFeatures != lr.nFeatures_ {
		return nil, errors.NewDimensionError("LogisticRegression.DecisionFunction", lr.nFeatures_, nFeatures, 1)
	}

	out := mat.NewVecDense(nSamples, nil)
	for i := 0; i < nSamples; i++ {
		z := lr.intercept_
		for j := 0; j < nFeatures; j++ {
			z += X.At(i, j) * lr.coef_[j]
		}
		out.SetVec(i, z)
	}
	return out, nil
}

// PredictProba returns probability estimates for each class, columns
// ordered (class 0, class 1).
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	scores, err := lr.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	n := scores.Len()
	probas := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		p1 := sigmoid(scores.AtVec(i))
		probas.Set(i, 0, 1-p1)
		probas.Set(i, 1, p1)
	}
	return probas, nil
}

// Predict returns class labels under a 0.5 probability threshold.
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	scores, err := lr.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	n := scores.Len()
	predictions := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		if sigmoid(scores.AtVec(i)) >= 0.5 {
			predictions.Set(i, 0, 1)
		}
	}
	return predictions, nil
}

// Score returns the mean accuracy on the given test data and labels.
func (lr *LogisticRegression) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	nSamples, _ := X.Dims()
	correct := 0
	for i := 0; i < nSamples; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(nSamples), nil
}

// Classes returns the class labels, always {0, 1}.
func (lr *LogisticRegression) Classes() []int {
	return []int{0, 1}
}

// Coef returns the fitted feature coefficients.
func (lr *LogisticRegression) Coef() []float64 {
	return append([]float64(nil), lr.coef_...)
}

// Intercept returns the fitted intercept term.
func (lr *LogisticRegression) Intercept() float64 {
	return lr.intercept_
}

// NIter returns the number of IRLS iterations performed.
func (lr *LogisticRegression) NIter() int {
	return lr.nIter_
}

// zeroVarianceColumn reports the first constant column of X, if any.
func zeroVarianceColumn(X mat.Matrix) (int, bool) {
	rows, cols := X.Dims()
	for j := 0; j < cols; j++ {
		first := X.At(0, j)
		constant := true
		for i := 1; i < rows; i++ {
			if X.At(i, j) != first {
				constant = false
				break
			}
		}
		if constant {
			return j, true
		}
	}
	return -1, false
}

// sigmoid computes the logistic function.
func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

var _ model.Classifier = (*LogisticRegression)(nil)
