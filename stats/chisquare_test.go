package stats

import (
	"math"
	"math/rand"
	"testing"
)

func TestChiSquareTest_KnownTable(t *testing.T) {
	// 2x2 table:
	//            No  Yes
	//   Female   20   30
	//   Male     30   20
	a := make([]string, 0, 100)
	b := make([]string, 0, 100)
	add := func(gender, renewed string, count int) {
		for i := 0; i < count; i++ {
			a = append(a, gender)
			b = append(b, renewed)
		}
	}
	add("Female", "No", 20)
	add("Female", "Yes", 30)
	add("Male", "No", 30)
	add("Male", "Yes", 20)

	res, err := ChiSquareTest(a, b)
	if err != nil {
		t.Fatalf("ChiSquareTest() error = %v", err)
	}

	if res.DF != 1 {
		t.Errorf("DF = %d, want 1", res.DF)
	}
	// All marginals are 50, so every expected cell is 25 and
	// statistic = 4 * (5^2 / 25) = 4.
	if math.Abs(res.Statistic-4.0) > 1e-9 {
		t.Errorf("Statistic = %v, want 4", res.Statistic)
	}
	// P(chi2_1 > 4) ~ 0.0455
	if math.Abs(res.PValue-0.0455) > 0.001 {
		t.Errorf("PValue = %v, want ~0.0455", res.PValue)
	}

	for i := range res.Expected {
		for j := range res.Expected[i] {
			if math.Abs(res.Expected[i][j]-25) > 1e-9 {
				t.Errorf("Expected[%d][%d] = %v, want 25", i, j, res.Expected[i][j])
			}
		}
	}
}

// Independent uniform columns should not trigger dependency detection
// beyond the nominal significance rate.
func TestChiSquareTest_IndependentColumns(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	levelsA := []string{"a", "b", "c"}
	levelsB := []string{"x", "y"}

	const trials = 40
	const n = 500
	pSum := 0.0
	for trial := 0; trial < trials; trial++ {
		a := make([]string, n)
		b := make([]string, n)
		for i := 0; i < n; i++ {
			a[i] = levelsA[rng.Intn(len(levelsA))]
			b[i] = levelsB[rng.Intn(len(levelsB))]
		}
		res, err := ChiSquareTest(a, b)
		if err != nil {
			t.Fatalf("ChiSquareTest() error = %v", err)
		}
		pSum += res.PValue
	}

	if mean := pSum / trials; mean <= 0.05 {
		t.Errorf("mean p-value = %v, want > 0.05 for independent columns", mean)
	}
}

func TestChiSquareTest_LowExpectedCountWarns(t *testing.T) {
	var warned bool
	swapWarningHandler(t, func(error) { warned = true })

	a := []string{"a", "a", "b", "b", "a", "b"}
	b := []string{"x", "y", "x", "y", "x", "y"}

	if _, err := ChiSquareTest(a, b); err != nil {
		t.Fatalf("ChiSquareTest() error = %v", err)
	}
	if !warned {
		t.Error("expected UnreliableTestWarning for expected counts below 5")
	}
}

func TestChiSquareTest_Errors(t *testing.T) {
	if _, err := ChiSquareTest(nil, nil); err == nil {
		t.Error("expected error for empty input")
	}
	if _, err := ChiSquareTest([]string{"a"}, []string{"x", "y"}); err == nil {
		t.Error("expected error for length mismatch")
	}
	if _, err := ChiSquareTest([]string{"a", "a"}, []string{"x", "y"}); err == nil {
		t.Error("expected error for single-level variable")
	}
}
