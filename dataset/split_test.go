package dataset

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func assertPartition(t *testing.T, s SplitIndices, n int) {
	t.Helper()

	seen := make(map[int]int, n)
	for _, idx := range s.Train {
		seen[idx]++
	}
	for _, idx := range s.Test {
		seen[idx]++
	}
	if len(seen) != n {
		t.Errorf("partition covers %d distinct rows, want %d", len(seen), n)
	}
	for idx, count := range seen {
		if count != 1 {
			t.Errorf("row %d appears %d times across the partition", idx, count)
		}
		if idx < 0 || idx >= n {
			t.Errorf("row index %d out of range [0,%d)", idx, n)
		}
	}
}

func TestTrainTestSplit_Partition(t *testing.T) {
	const n = 103
	s, err := TrainTestSplit(n, 0.8, 19)
	if err != nil {
		t.Fatalf("TrainTestSplit() error = %v", err)
	}

	assertPartition(t, s, n)

	if len(s.Train) != 82 { // floor(0.8 * 103)
		t.Errorf("train size = %d, want 82", len(s.Train))
	}
	if len(s.Test) != 21 {
		t.Errorf("test size = %d, want 21", len(s.Test))
	}
}

func TestTrainTestSplit_Deterministic(t *testing.T) {
	a, err := TrainTestSplit(500, 0.8, 19)
	if err != nil {
		t.Fatalf("TrainTestSplit() error = %v", err)
	}
	b, err := TrainTestSplit(500, 0.8, 19)
	if err != nil {
		t.Fatalf("TrainTestSplit() error = %v", err)
	}

	for i := range a.Train {
		if a.Train[i] != b.Train[i] {
			t.Fatalf("train indices differ at %d under the same seed", i)
		}
	}
	for i := range a.Test {
		if a.Test[i] != b.Test[i] {
			t.Fatalf("test indices differ at %d under the same seed", i)
		}
	}

	c, err := TrainTestSplit(500, 0.8, 20)
	if err != nil {
		t.Fatalf("TrainTestSplit() error = %v", err)
	}
	same := true
	for i := range a.Train {
		if a.Train[i] != c.Train[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical train partitions")
	}
}

func TestTrainTestSplit_InvalidArgs(t *testing.T) {
	if _, err := TrainTestSplit(1, 0.8, 1); err == nil {
		t.Error("expected error for n=1")
	}
	if _, err := TrainTestSplit(10, 0, 1); err == nil {
		t.Error("expected error for trainFrac=0")
	}
	if _, err := TrainTestSplit(10, 1, 1); err == nil {
		t.Error("expected error for trainFrac=1")
	}
}

func TestStratifiedTrainTestSplit(t *testing.T) {
	// 300 of class 0, 100 of class 1.
	labels := make([]int, 400)
	for i := 300; i < 400; i++ {
		labels[i] = 1
	}

	s, err := StratifiedTrainTestSplit(labels, 0.75, 19)
	if err != nil {
		t.Fatalf("StratifiedTrainTestSplit() error = %v", err)
	}

	assertPartition(t, s, len(labels))

	// Per-class test allocation is floor((1-frac)*nClass): 75 and 25.
	testByClass := map[int]int{}
	for _, idx := range s.Test {
		testByClass[labels[idx]]++
	}
	if testByClass[0] != 75 {
		t.Errorf("class 0 test count = %d, want 75", testByClass[0])
	}
	if testByClass[1] != 25 {
		t.Errorf("class 1 test count = %d, want 25", testByClass[1])
	}
}

func TestStratifiedTrainTestSplit_Deterministic(t *testing.T) {
	labels := make([]int, 200)
	for i := range labels {
		labels[i] = i % 2
	}

	a, err := StratifiedTrainTestSplit(labels, 0.75, 7)
	if err != nil {
		t.Fatalf("StratifiedTrainTestSplit() error = %v", err)
	}
	b, err := StratifiedTrainTestSplit(labels, 0.75, 7)
	if err != nil {
		t.Fatalf("StratifiedTrainTestSplit() error = %v", err)
	}

	for i := range a.Test {
		if a.Test[i] != b.Test[i] {
			t.Fatalf("test indices differ at %d under the same seed", i)
		}
	}
}

func TestTake(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 2,
		3, 4,
		5, 6,
		7, 8,
	})
	y := mat.NewVecDense(4, []float64{0, 1, 0, 1})

	subX, subY := Take(X, y, []int{1, 3})

	rows, cols := subX.Dims()
	if rows != 2 || cols != 2 {
		t.Fatalf("dims = (%d,%d), want (2,2)", rows, cols)
	}
	if subX.At(0, 0) != 3 || subX.At(1, 1) != 8 {
		t.Errorf("unexpected subset values: %v", mat.Formatted(subX))
	}
	if subY.AtVec(0) != 1 || subY.AtVec(1) != 1 {
		t.Errorf("unexpected label subset: %v", subY.RawVector().Data)
	}
}
