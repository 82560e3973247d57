package dataset

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/bngocle/motor-insurance-renewal/pkg/errors"
)

// SplitIndices is a disjoint partition of row indices into a training and a
// holdout subset. Every input row appears in exactly one side.
type SplitIndices struct {
	Train []int
	Test  []int
}

// TrainTestSplit partitions n rows by a seeded random permutation, putting
// floor(trainFrac*n) rows in the training side. The result is deterministic
// for a fixed (n, trainFrac, seed).
func TrainTestSplit(n int, trainFrac float64, seed int64) (SplitIndices, error) {
	var s SplitIndices
	if n <= 1 {
		return s, errors.NewValueError("TrainTestSplit", "need at least two rows")
	}
	if trainFrac <= 0 || trainFrac >= 1 {
		return s, errors.NewValidationError("trainFrac", "must be in (0, 1)", trainFrac)
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	r := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	r.Shuffle(n, func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	nTrain := int(trainFrac * float64(n))
	if nTrain == 0 {
		nTrain = 1
	}
	if nTrain == n {
		nTrain = n - 1
	}

	s.Train = append([]int(nil), indices[:nTrain]...)
	s.Test = append([]int(nil), indices[nTrain:]...)
	sort.Ints(s.Train)
	sort.Ints(s.Test)
	return s, nil
}

// StratifiedTrainTestSplit partitions rows so that each label value keeps
// approximately the trainFrac proportion on the training side. Remainder
// rows left by the per-class rounding go to the training side. Same
// determinism and partition guarantees as TrainTestSplit.
func StratifiedTrainTestSplit(labels []int, trainFrac float64, seed int64) (SplitIndices, error) {
	var s SplitIndices
	n := len(labels)
	if n <= 1 {
		return s, errors.NewValueError("StratifiedTrainTestSplit", "need at least two rows")
	}
	if trainFrac <= 0 || trainFrac >= 1 {
		return s, errors.NewValidationError("trainFrac", "must be in (0, 1)", trainFrac)
	}

	classIndices := make(map[int][]int)
	classOrder := make([]int, 0, 2)
	for i, label := range labels {
		if _, ok := classIndices[label]; !ok {
			classOrder = append(classOrder, label)
		}
		classIndices[label] = append(classIndices[label], i)
	}
	sort.Ints(classOrder)

	r := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	for _, label := range classOrder {
		indices := classIndices[label]
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})

		nTest := int(float64(len(indices)) * (1 - trainFrac))
		if nTest == len(indices) {
			nTest = len(indices) - 1
		}
		s.Test = append(s.Test, indices[:nTest]...)
		s.Train = append(s.Train, indices[nTest:]...)
	}

	if len(s.Train) == 0 || len(s.Test) == 0 {
		return SplitIndices{}, errors.NewValueError("StratifiedTrainTestSplit", "a side of the split is empty; use more rows or a different fraction")
	}
	sort.Ints(s.Train)
	sort.Ints(s.Test)
	return s, nil
}

// Take extracts the rows at idx from X and y into new dense values.
func Take(X mat.Matrix, y *mat.VecDense, idx []int) (*mat.Dense, *mat.VecDense) {
	_, cols := X.Dims()
	outX := mat.NewDense(len(idx), cols, nil)
	outY := mat.NewVecDense(len(idx), nil)
	for i, rowIdx := range idx {
		for j := 0; j < cols; j++ {
			outX.Set(i, j, X.At(rowIdx, j))
		}
		outY.SetVec(i, y.AtVec(rowIdx))
	}
	return outX, outY
}
