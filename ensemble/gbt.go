package ensemble

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/bngocle/motor-insurance-renewal/core/model"
	"github.com/bngocle/motor-insurance-renewal/pkg/errors"
)

// GBTParams are the tunable hyperparameters of a gradient boosted trees
// classifier. The zero value is not usable; start from DefaultGBTParams.
type GBTParams struct {
	NTrees         int     // boosting rounds
	LearningRate   float64 // shrinkage applied to each tree
	MaxDepth       int     // per-tree depth limit, 0 for unlimited
	MinSamplesLeaf int     // minimum samples per leaf
	MinGain        float64 // minimum objective reduction to split
	Subsample      float64 // row fraction drawn per round, (0, 1]
	MaxFeatures    int     // candidate features per split, 0 for all
	RandomState    int64
}

// DefaultGBTParams returns a sensible baseline configuration.
func DefaultGBTParams() GBTParams {
	return GBTParams{
		NTrees:         100,
		LearningRate:   0.1,
		MaxDepth:       3,
		MinSamplesLeaf: 10,
		MinGain:        0,
		Subsample:      1.0,
		MaxFeatures:    0,
	}
}

// GradientBoostingClassifier fits an additive model of regression trees to
// the logistic loss. Each round builds a tree on the gradient and hessian of
// the loss at the current scores and adds it with shrinkage (Newton
// boosting).
type GradientBoostingClassifier struct {
	state *model.StateManager

	params GBTParams

	baseScore  float64
	trees      []*treeNode
	nFeatures_ int
}

// NewGradientBoostingClassifier creates a classifier with the given
// hyperparameters.
func NewGradientBoostingClassifier(params GBTParams) *GradientBoostingClassifier {
	return &GradientBoostingClassifier{
		state:  model.NewStateManager(),
		params: params,
	}
}

// Params returns the classifier's hyperparameters.
func (gbt *GradientBoostingClassifier) Params() GBTParams {
	return gbt.params
}

// Fit trains the boosted ensemble on X and binary labels y.
func (gbt *GradientBoostingClassifier) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples == 0 {
		return errors.NewModelError("GradientBoostingClassifier.Fit", "empty data", errors.ErrEmptyData)
	}
	if nSamples != yRows {
		return errors.NewDimensionError("GradientBoostingClassifier.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("GradientBoostingClassifier.Fit", 1, yCols, 1)
	}
	if err := gbt.validateParams(); err != nil {
		return err
	}

	labels := make([]float64, nSamples)
	nPos := 0
	for i := 0; i < nSamples; i++ {
		v := y.At(i, 0)
		if v != 0 && v != 1 {
			return errors.NewValueError("GradientBoostingClassifier.Fit", "labels must be binary (0 or 1)")
		}
		labels[i] = v
		if v == 1 {
			nPos++
		}
	}
	if nPos == 0 || nPos == nSamples {
		return errors.NewDegenerateDataError("GradientBoostingClassifier.Fit", "single_class", "")
	}
	if col, ok := constantColumn(X); ok {
		return errors.NewDegenerateDataError("GradientBoostingClassifier.Fit", "zero_variance", fmt.Sprintf("x%d", col))
	}

	Xd := toDense(X)
	cfg := treeConfig{
		maxDepth:       gbt.params.MaxDepth,
		minSamplesLeaf: gbt.params.MinSamplesLeaf,
		maxFeatures:    gbt.params.MaxFeatures,
		minGain:        gbt.params.MinGain,
	}

	// Start from the log-odds of the base rate.
	p0 := float64(nPos) / float64(nSamples)
	gbt.baseScore = math.Log(p0 / (1 - p0))

	scores := make([]float64, nSamples)
	for i := range scores {
		scores[i] = gbt.baseScore
	}

	seed := uint64(gbt.params.RandomState)
	rng := rand.New(rand.NewPCG(seed, seed))

	grad := make([]float64, nSamples)
	hess := make([]float64, nSamples)
	gbt.trees = make([]*treeNode, 0, gbt.params.NTrees)

	for round := 0; round < gbt.params.NTrees; round++ {
		for i := 0; i < nSamples; i++ {
			p := sigmoidScore(scores[i])
			grad[i] = p - labels[i]
			hess[i] = p * (1 - p)
		}

		idx := gbt.sampleRows(nSamples, rng)
		tree := buildRegressionTree(Xd, grad, hess, idx, 0, cfg, rng)
		gbt.trees = append(gbt.trees, tree)

		var buf []float64
		for i := 0; i < nSamples; i++ {
			buf = rowOf(Xd, i, buf)
			scores[i] += gbt.params.LearningRate * tree.predict(buf)
		}
	}

	gbt.nFeatures_ = nFeatures
	gbt.state.SetDimensions(nFeatures, nSamples)
	gbt.state.SetFitted()
	return nil
}

func (gbt *GradientBoostingClassifier) validateParams() error {
	p := gbt.params
	if p.NTrees < 1 {
		return errors.NewValidationError("NTrees", "must be at least 1", p.NTrees)
	}
	if p.LearningRate <= 0 {
		return errors.NewValidationError("LearningRate", "must be positive", p.LearningRate)
	}
	if p.Subsample <= 0 || p.Subsample > 1 {
		return errors.NewValidationError("Subsample", "must be in (0, 1]", p.Subsample)
	}
	if p.MinSamplesLeaf < 1 {
		return errors.NewValidationError("MinSamplesLeaf", "must be at least 1", p.MinSamplesLeaf)
	}
	return nil
}

// sampleRows draws the row subset for one boosting round. With Subsample at
// 1 every row is used; otherwise rows are drawn without replacement.
func (gbt *GradientBoostingClassifier) sampleRows(nSamples int, rng *rand.Rand) []int {
	if gbt.params.Subsample >= 1 {
		idx := make([]int, nSamples)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	k := int(gbt.params.Subsample * float64(nSamples))
	if k < 1 {
		k = 1
	}
	return rng.Perm(nSamples)[:k]
}

// decision returns the raw additive score for each row of X.
func (gbt *GradientBoostingClassifier) decision(X mat.Matrix) (*mat.VecDense, error) {
	if err := gbt.state.RequireFitted("GradientBoostingClassifier", "Predict"); err != nil {
		return nil, err
	}
	nSamples, nFeatures := X.Dims()
	if nFeatures != gbt.nFeatures_ {
		return nil, errors.NewDimensionError("GradientBoostingClassifier.Predict", gbt.nFeatures_, nFeatures, 1)
	}

	out := mat.NewVecDense(nSamples, nil)
	var buf []float64
	for i := 0; i < nSamples; i++ {
		buf = rowOf(X, i, buf)
		score := gbt.baseScore
		for _, tree := range gbt.trees {
			score += gbt.params.LearningRate * tree.predict(buf)
		}
		out.SetVec(i, score)
	}
	return out, nil
}

// PredictProba returns class probability estimates, columns ordered
// (class 0, class 1).
func (gbt *GradientBoostingClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	scores, err := gbt.decision(X)
	if err != nil {
		return nil, err
	}
	n := scores.Len()
	probas := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		p1 := sigmoidScore(scores.AtVec(i))
		probas.Set(i, 0, 1-p1)
		probas.Set(i, 1, p1)
	}
	return probas, nil
}

// Predict returns class labels under a 0.5 probability threshold.
func (gbt *GradientBoostingClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	scores, err := gbt.decision(X)
	if err != nil {
		return nil, err
	}
	n := scores.Len()
	predictions := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		if scores.AtVec(i) >= 0 {
			predictions.Set(i, 0, 1)
		}
	}
	return predictions, nil
}

// Score returns the mean accuracy on the given test data and labels.
func (gbt *GradientBoostingClassifier) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := gbt.Predict(X)
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
func (gbt *GradientBoostingClassifier) Classes() []int {
	return []int{0, 1}
}

// NTrees returns the number of fitted boosting rounds.
func (gbt *GradientBoostingClassifier) NTrees() int {
	return len(gbt.trees)
}

func sigmoidScore(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

var _ model.Classifier = (*GradientBoostingClassifier)(nil)
