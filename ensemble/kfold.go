package ensemble

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Splitter generates cross-validation folds.
type Splitter interface {
	Split(X, y mat.Matrix) []Fold
	NSplits() int
}

// Fold is one train/test partition of the sample indices.
type Fold struct {
	Train []int
	Test  []int
}

// KFold splits samples into k consecutive folds, optionally shuffled.
type KFold struct {
	K       int
	Shuffle bool
	Seed    int64
}

// NewKFold creates a k-fold splitter. Fewer than two folds falls back to
// five.
func NewKFold(k int, shuffle bool, seed int64) *KFold {
	if k < 2 {
		k = 5
	}
	return &KFold{K: k, Shuffle: shuffle, Seed: seed}
}

// NSplits returns the number of folds.
func (kf *KFold) NSplits() int {
	return kf.K
}

// Split generates train/test indices for each fold. The first
// nSamples % k folds get one extra test sample.
func (kf *KFold) Split(X, _ mat.Matrix) []Fold {
	nSamples, _ := X.Dims()

	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		r := rand.New(rand.NewPCG(uint64(kf.Seed), uint64(kf.Seed)))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([]Fold, kf.K)
	foldSize := nSamples / kf.K
	remainder := nSamples % kf.K

	cursor := 0
	for f := 0; f < kf.K; f++ {
		testSize := foldSize
		if f < remainder {
			testSize++
		}

		test := make([]int, testSize)
		copy(test, indices[cursor:cursor+testSize])

		train := make([]int, 0, nSamples-testSize)
		train = append(train, indices[:cursor]...)
		train = append(train, indices[cursor+testSize:]...)

		sort.Ints(test)
		sort.Ints(train)
		folds[f] = Fold{Train: train, Test: test}
		cursor += testSize
	}
	return folds
}

// StratifiedKFold splits samples into k folds preserving the class balance
// of y in every fold.
type StratifiedKFold struct {
	K       int
	Shuffle bool
	Seed    int64
}

// NewStratifiedKFold creates a stratified k-fold splitter.
func NewStratifiedKFold(k int, shuffle bool, seed int64) *StratifiedKFold {
	if k < 2 {
		k = 5
	}
	return &StratifiedKFold{K: k, Shuffle: shuffle, Seed: seed}
}

// NSplits returns the number of folds.
func (skf *StratifiedKFold) NSplits() int {
	return skf.K
}

// Split generates stratified train/test indices for each fold. Classes are
// processed in sorted label order so the result is reproducible.
func (skf *StratifiedKFold) Split(X, y mat.Matrix) []Fold {
	nSamples, _ := X.Dims()

	byClass := make(map[float64][]int)
	for i := 0; i < nSamples; i++ {
		label := y.At(i, 0)
		byClass[label] = append(byClass[label], i)
	}
	labels := make([]float64, 0, len(byClass))
	for label := range byClass {
		labels = append(labels, label)
	}
	sort.Float64s(labels)

	if skf.Shuffle {
		r := rand.New(rand.NewPCG(uint64(skf.Seed), uint64(skf.Seed)))
		for _, label := range labels {
			indices := byClass[label]
			r.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}
	}

	folds := make([]Fold, skf.K)
	for _, label := range labels {
		indices := byClass[label]
		nClass := len(indices)
		foldSize := nClass / skf.K
		remainder := nClass % skf.K

		cursor := 0
		for f := 0; f < skf.K; f++ {
			testSize := foldSize
			if f < remainder {
				testSize++
			}
			folds[f].Test = append(folds[f].Test, indices[cursor:cursor+testSize]...)
			cursor += testSize
		}
	}

	for f := range folds {
		inTest := make(map[int]bool, len(folds[f].Test))
		for _, idx := range folds[f].Test {
			inTest[idx] = true
		}
		train := make([]int, 0, nSamples-len(folds[f].Test))
		for i := 0; i < nSamples; i++ {
			if !inTest[i] {
				train = append(train, i)
			}
		}
		sort.Ints(folds[f].Test)
		folds[f].Train = train
	}
	return folds
}

// takeRows extracts the named rows of X and y into fresh matrices.
func takeRows(X, y mat.Matrix, indices []int) (*mat.Dense, *mat.Dense) {
	_, xCols := X.Dims()
	_, yCols := y.Dims()

	xSub := mat.NewDense(len(indices), xCols, nil)
	ySub := mat.NewDense(len(indices), yCols, nil)
	for i, idx := range indices {
		for j := 0; j < xCols; j++ {
			xSub.Set(i, j, X.At(idx, j))
		}
		for j := 0; j < yCols; j++ {
			ySub.Set(i, j, y.At(idx, j))
		}
	}
	return xSub, ySub
}
