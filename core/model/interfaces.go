package model

import (
	"gonum.org/v1/gonum/mat"
)

// Fitter is the interface for models that can be trained.
type Fitter interface {
	// Fit trains the model on X (n_samples x n_features) and y (n_samples x 1).
	Fit(X, y mat.Matrix) error
}

// Predictor is the interface for models that can make predictions.
type Predictor interface {
	// Predict returns predicted class labels as an n_samples x 1 matrix.
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Scorer is the interface for models that can compute a score on labeled data.
type Scorer interface {
	// Score returns the mean accuracy of the prediction on X against y.
	Score(X, y mat.Matrix) (float64, error)
}

// Classifier combines the interfaces every classification model in this
// repository satisfies. All three renewal models implement it.
type Classifier interface {
	Fitter
	Predictor
	Scorer

	// PredictProba returns probability estimates, one column per class,
	// with columns ordered by ascending class label.
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the unique class labels seen during fitting.
	Classes() []int
}
