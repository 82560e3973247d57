package ensemble

import (
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/bngocle/motor-insurance-renewal/core/model"
	"github.com/bngocle/motor-insurance-renewal/metrics"
	"github.com/bngocle/motor-insurance-renewal/pkg/errors"
)

// ParamGrid maps hyperparameter names to the candidate values to try.
// Recognised keys: n_trees, learning_rate, max_depth, min_samples_leaf,
// min_gain, subsample, max_features.
type ParamGrid map[string][]float64

// SearchResult records the cross-validated score of one parameter
// combination.
type SearchResult struct {
	Params    GBTParams
	MeanScore float64
	StdScore  float64
	Scores    []float64
}

// GridSearchCV exhaustively evaluates a hyperparameter grid for the
// gradient boosted trees classifier by cross-validation, scoring each
// combination by mean held-out AUC, then refits the best combination on the
// full training set.
type GridSearchCV struct {
	state *model.StateManager

	base     GBTParams
	grid     ParamGrid
	splitter Splitter

	BestParams GBTParams
	BestScore  float64
	Results    []SearchResult

	best *GradientBoostingClassifier
}

// NewGridSearchCV creates a grid search over the given base parameters.
// Grid keys override the corresponding base fields combination by
// combination.
func NewGridSearchCV(base GBTParams, grid ParamGrid, splitter Splitter) *GridSearchCV {
	return &GridSearchCV{
		state:    model.NewStateManager(),
		base:     base,
		grid:     grid,
		splitter: splitter,
	}
}

// Fit runs the search. Every combination is scored on the same folds; the
// folds of one combination are evaluated concurrently.
func (gs *GridSearchCV) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 {
		return errors.NewModelError("GridSearchCV.Fit", "empty data", errors.ErrEmptyData)
	}

	combos, err := gs.enumerate()
	if err != nil {
		return err
	}
	folds := gs.splitter.Split(X, y)
	if len(folds) < 2 {
		return errors.NewValidationError("splitter", "needs at least two folds", len(folds))
	}

	gs.Results = gs.Results[:0]
	gs.BestScore = math.Inf(-1)

	for _, params := range combos {
		scores := make([]float64, len(folds))
		foldErrs := make([]error, len(folds))

		var wg sync.WaitGroup
		for f := range folds {
			wg.Add(1)
			go func(f int) {
				defer wg.Done()
				scores[f], foldErrs[f] = scoreFold(params, X, y, folds[f])
			}(f)
		}
		wg.Wait()

		for _, ferr := range foldErrs {
			if ferr != nil {
				return ferr
			}
		}

		res := SearchResult{Params: params, Scores: scores}
		res.MeanScore, res.StdScore = meanStd(scores)
		gs.Results = append(gs.Results, res)

		if res.MeanScore > gs.BestScore {
			gs.BestScore = res.MeanScore
			gs.BestParams = params
		}
	}

	// Refit the winner on all training data.
	gs.best = NewGradientBoostingClassifier(gs.BestParams)
	if err := gs.best.Fit(X, y); err != nil {
		return errors.Wrap(err, "GridSearchCV.Fit: refitting best parameters")
	}

	gs.state.SetDimensions(nFeatures, nSamples)
	gs.state.SetFitted()
	return nil
}

// scoreFold trains one candidate on a fold's train rows and returns its AUC
// on the fold's test rows.
func scoreFold(params GBTParams, X, y mat.Matrix, fold Fold) (float64, error) {
	trainX, trainY := takeRows(X, y, fold.Train)
	testX, testY := takeRows(X, y, fold.Test)

	clf := NewGradientBoostingClassifier(params)
	if err := clf.Fit(trainX, trainY); err != nil {
		return 0, errors.Wrap(err, "GridSearchCV: fold training failed")
	}
	probas, err := clf.PredictProba(testX)
	if err != nil {
		return 0, errors.Wrap(err, "GridSearchCV: fold prediction failed")
	}

	n := len(fold.Test)
	yVec := mat.NewVecDense(n, nil)
	pVec := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		yVec.SetVec(i, testY.At(i, 0))
		pVec.SetVec(i, probas.At(i, 1))
	}
	return metrics.AUC(yVec, pVec)
}

// BestEstimator returns the refitted best classifier.
func (gs *GridSearchCV) BestEstimator() (*GradientBoostingClassifier, error) {
	if err := gs.state.RequireFitted("GridSearchCV", "BestEstimator"); err != nil {
		return nil, err
	}
	return gs.best, nil
}

// PredictProba delegates to the refitted best classifier.
func (gs *GridSearchCV) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := gs.state.RequireFitted("GridSearchCV", "PredictProba"); err != nil {
		return nil, err
	}
	return gs.best.PredictProba(X)
}

// Predict delegates to the refitted best classifier.
func (gs *GridSearchCV) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := gs.state.RequireFitted("GridSearchCV", "Predict"); err != nil {
		return nil, err
	}
	return gs.best.Predict(X)
}

// Score returns the mean accuracy of the refitted best classifier.
func (gs *GridSearchCV) Score(X, y mat.Matrix) (float64, error) {
	if err := gs.state.RequireFitted("GridSearchCV", "Score"); err != nil {
		return 0, err
	}
	return gs.best.Score(X, y)
}

// Classes returns the class labels, always {0, 1}.
func (gs *GridSearchCV) Classes() []int {
	return []int{0, 1}
}

// enumerate expands the grid into concrete parameter sets. Keys are walked
// in sorted order so the combination order is stable across runs.
func (gs *GridSearchCV) enumerate() ([]GBTParams, error) {
	keys := make([]string, 0, len(gs.grid))
	for key, values := range gs.grid {
		if len(values) == 0 {
			return nil, errors.NewValidationError("grid", "empty value list", key)
		}
		if !validGridKey(key) {
			return nil, errors.NewValidationError("grid", "unknown parameter", key)
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	combos := []GBTParams{gs.base}
	for _, key := range keys {
		expanded := make([]GBTParams, 0, len(combos)*len(gs.grid[key]))
		for _, params := range combos {
			for _, value := range gs.grid[key] {
				p := params
				applyGridValue(&p, key, value)
				expanded = append(expanded, p)
			}
		}
		combos = expanded
	}
	return combos, nil
}

func validGridKey(key string) bool {
	switch key {
	case "n_trees", "learning_rate", "max_depth", "min_samples_leaf",
		"min_gain", "subsample", "max_features":
		return true
	}
	return false
}

func applyGridValue(p *GBTParams, key string, value float64) {
	switch key {
	case "n_trees":
		p.NTrees = int(value)
	case "learning_rate":
		p.LearningRate = value
	case "max_depth":
		p.MaxDepth = int(value)
	case "min_samples_leaf":
		p.MinSamplesLeaf = int(value)
	case "min_gain":
		p.MinGain = value
	case "subsample":
		p.Subsample = value
	case "max_features":
		p.MaxFeatures = int(value)
	}
}

var _ model.Classifier = (*GridSearchCV)(nil)

func meanStd(values []float64) (mean, std float64) {
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	if len(values) < 2 {
		return mean, 0
	}
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return mean, math.Sqrt(sumSq / float64(len(values)-1))
}
