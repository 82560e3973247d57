package ensemble

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/bngocle/motor-insurance-renewal/core/model"
	"github.com/bngocle/motor-insurance-renewal/core/parallel"
	"github.com/bngocle/motor-insurance-renewal/pkg/errors"
)

// RandomForestClassifier is a bagged ensemble of CART trees. Each tree is
// grown on a bootstrap sample and considers a random subset of features at
// every split. Prediction averages the per-tree leaf probabilities.
type RandomForestClassifier struct {
	state *model.StateManager

	// Hyperparameters
	nTrees         int
	maxDepth       int
	maxFeatures    int
	minSamplesLeaf int
	randomState    int64

	trees      []*treeNode
	nFeatures_ int
}

// RandomForestOption is a functional option for RandomForestClassifier.
type RandomForestOption func(*RandomForestClassifier)

// WithNTrees sets the number of trees in the forest.
func WithNTrees(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.nTrees = n
	}
}

// WithMaxDepth limits tree depth. Zero means unlimited.
func WithMaxDepth(depth int) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.maxDepth = depth
	}
}

// WithMaxFeatures sets the number of features tried at each split.
// Zero means all features.
func WithMaxFeatures(m int) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.maxFeatures = m
	}
}

// WithMinSamplesLeaf sets the minimum samples required in a leaf.
func WithMinSamplesLeaf(m int) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.minSamplesLeaf = m
	}
}

// WithRandomState seeds the forest. Tree i draws from seed randomState+i,
// so fits are reproducible regardless of goroutine scheduling.
func WithRandomState(seed int64) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.randomState = seed
	}
}

// NewRandomForestClassifier creates a forest with the given options.
func NewRandomForestClassifier(opts ...RandomForestOption) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		state:          model.NewStateManager(),
		nTrees:         100,
		maxDepth:       0,
		maxFeatures:    0,
		minSamplesLeaf: 1,
		randomState:    0,
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

// Fit grows the forest on X (n_samples x n_features) and binary labels y.
// Trees are trained concurrently; each is deterministic given its seed.
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples == 0 {
		return errors.NewModelError("RandomForestClassifier.Fit", "empty data", errors.ErrEmptyData)
	}
	if nSamples != yRows {
		return errors.NewDimensionError("RandomForestClassifier.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("RandomForestClassifier.Fit", 1, yCols, 1)
	}
	if rf.nTrees < 1 {
		return errors.NewValidationError("nTrees", "must be at least 1", rf.nTrees)
	}

	labels := make([]float64, nSamples)
	hasZero, hasOne := false, false
	for i := 0; i < nSamples; i++ {
		v := y.At(i, 0)
		if v != 0 && v != 1 {
			return errors.NewValueError("RandomForestClassifier.Fit", "labels must be binary (0 or 1)")
		}
		labels[i] = v
		if v == 0 {
			hasZero = true
		} else {
			hasOne = true
		}
	}
	if !hasZero || !hasOne {
		return errors.NewDegenerateDataError("RandomForestClassifier.Fit", "single_class", "")
	}
	if col, ok := constantColumn(X); ok {
		return errors.NewDegenerateDataError("RandomForestClassifier.Fit", "zero_variance", fmt.Sprintf("x%d", col))
	}

	Xd := toDense(X)
	cfg := treeConfig{
		maxDepth:       rf.maxDepth,
		minSamplesLeaf: rf.minSamplesLeaf,
		maxFeatures:    rf.maxFeatures,
	}

	trees := make([]*treeNode, rf.nTrees)
	parallel.Parallelize(rf.nTrees, func(start, end int) {
		for t := start; t < end; t++ {
			seed := uint64(rf.randomState) + uint64(t)
			rng := rand.New(rand.NewPCG(seed, seed))

			// Bootstrap sample: n draws with replacement.
			idx := make([]int, nSamples)
			for i := range idx {
				idx[i] = rng.IntN(nSamples)
			}
			trees[t] = buildClassificationTree(Xd, labels, idx, 0, cfg, rng)
		}
	})

	rf.trees = trees
	rf.nFeatures_ = nFeatures
	rf.state.SetDimensions(nFeatures, nSamples)
	rf.state.SetFitted()
	return nil
}

// PredictProba returns class probability estimates, columns ordered
// (class 0, class 1). Row probabilities are the mean of the per-tree leaf
// frequencies.
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.state.RequireFitted("RandomForestClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	nSamples, nFeatures := X.Dims()
	if nFeatures != rf.nFeatures_ {
		return nil, errors.NewDimensionError("RandomForestClassifier.PredictProba", rf.nFeatures_, nFeatures, 1)
	}

	probas := mat.NewDense(nSamples, 2, nil)
	parallel.Parallelize(nSamples, func(start, end int) {
		var buf []float64
		for i := start; i < end; i++ {
			buf = rowOf(X, i, buf)
			sum := 0.0
			for _, tree := range rf.trees {
				sum += tree.predict(buf)
			}
			p1 := sum / float64(len(rf.trees))
			probas.Set(i, 0, 1-p1)
			probas.Set(i, 1, p1)
		}
	})
	return probas, nil
}

// Predict returns class labels by majority vote across the trees.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	probas, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	nSamples, _ := probas.Dims()
	predictions := mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		if probas.At(i, 1) >= 0.5 {
			predictions.Set(i, 0, 1)
		}
	}
	return predictions, nil
}

// Score returns the mean accuracy on the given test data and labels.
func (rf *RandomForestClassifier) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := rf.Predict(X)
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
func (rf *RandomForestClassifier) Classes() []int {
	return []int{0, 1}
}

// NTrees returns the number of fitted trees.
func (rf *RandomForestClassifier) NTrees() int {
	return len(rf.trees)
}

var _ model.Classifier = (*RandomForestClassifier)(nil)
