// Package stats implements the bivariate hypothesis tests and descriptive
// summaries used by the renewal report: Pearson's chi-squared test of
// independence, Welch's two-sample t-test, Pearson correlation matrices and
// group-wise summary statistics.
//
// Results are read-only analytical outputs; nothing here feeds back into
// cleaning or modelling decisions.
package stats

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/bngocle/motor-insurance-renewal/pkg/errors"
)

// minExpectedCount is the classic rule of thumb below which the chi-squared
// approximation becomes unreliable.
const minExpectedCount = 5.0

// ChiSquareResult holds the outcome of a chi-squared test of independence,
// including the contingency table it was computed from.
type ChiSquareResult struct {
	Statistic float64
	DF        int
	PValue    float64

	RowLabels []string
	ColLabels []string
	Observed  [][]float64
	Expected  [][]float64
}

// ChiSquareTest runs Pearson's chi-squared test of independence between two
// categorical columns given as parallel value slices. When any expected cell
// count falls below 5 an UnreliableTestWarning is raised; the p-value is
// still returned. No multiple-comparison correction is applied.
func ChiSquareTest(a, b []string) (*ChiSquareResult, error) {
	if len(a) == 0 {
		return nil, errors.NewValueError("ChiSquareTest", "empty input")
	}
	if len(a) != len(b) {
		return nil, errors.NewDimensionError("ChiSquareTest", len(a), len(b), 0)
	}

	rowLabels := uniqueSorted(a)
	colLabels := uniqueSorted(b)
	if len(rowLabels) < 2 || len(colLabels) < 2 {
		return nil, errors.NewValueError("ChiSquareTest", "both variables need at least two levels")
	}

	rowIdx := indexOf(rowLabels)
	colIdx := indexOf(colLabels)

	observed := make([][]float64, len(rowLabels))
	for i := range observed {
		observed[i] = make([]float64, len(colLabels))
	}
	for k := range a {
		observed[rowIdx[a[k]]][colIdx[b[k]]]++
	}

	n := float64(len(a))
	rowTotals := make([]float64, len(rowLabels))
	colTotals := make([]float64, len(colLabels))
	for i := range observed {
		for j := range observed[i] {
			rowTotals[i] += observed[i][j]
			colTotals[j] += observed[i][j]
		}
	}

	expected := make([][]float64, len(rowLabels))
	statistic := 0.0
	lowCells := 0
	for i := range observed {
		expected[i] = make([]float64, len(colLabels))
		for j := range observed[i] {
			e := rowTotals[i] * colTotals[j] / n
			expected[i][j] = e
			if e < minExpectedCount {
				lowCells++
			}
			if e > 0 {
				d := observed[i][j] - e
				statistic += d * d / e
			}
		}
	}

	if lowCells > 0 {
		errors.Warn(errors.NewUnreliableTestWarning(
			"chi-squared test",
			"expected cell count below 5",
			fmt.Sprintf("%d of %d cells", lowCells, len(rowLabels)*len(colLabels)),
		))
	}

	df := (len(rowLabels) - 1) * (len(colLabels) - 1)
	dist := distuv.ChiSquared{K: float64(df)}

	return &ChiSquareResult{
		Statistic: statistic,
		DF:        df,
		PValue:    dist.Survival(statistic),
		RowLabels: rowLabels,
		ColLabels: colLabels,
		Observed:  observed,
		Expected:  expected,
	}, nil
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, 8)
	for _, v := range values {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func indexOf(labels []string) map[string]int {
	m := make(map[string]int, len(labels))
	for i, l := range labels {
		m[l] = i
	}
	return m
}
