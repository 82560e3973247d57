package stats

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/bngocle/motor-insurance-renewal/pkg/errors"
	"github.com/bngocle/motor-insurance-renewal/preprocessing"
)

// CorrelationMatrix computes the Pearson correlation matrix across the named
// columns of the frame. String columns (ordinal buckets such as the grouped
// price change) are label-encoded to integer codes first.
func CorrelationMatrix(df dataframe.DataFrame, cols []string) (*mat.SymDense, error) {
	if len(cols) < 2 {
		return nil, errors.NewValueError("CorrelationMatrix", "need at least two columns")
	}
	n := df.Nrow()
	if n < 2 {
		return nil, errors.NewValueError("CorrelationMatrix", "need at least two rows")
	}

	data := mat.NewDense(n, len(cols), nil)
	for j, name := range cols {
		found := false
		for _, have := range df.Names() {
			if have == name {
				found = true
				break
			}
		}
		if !found {
			return nil, errors.Wrapf(errors.ErrMissingColumn, "column %q", name)
		}

		col := df.Col(name)
		var values []float64
		if col.Type() == series.String {
			enc := preprocessing.NewLabelEncoder()
			codes, err := enc.FitTransform(col.Records())
			if err != nil {
				return nil, errors.Wrapf(err, "encoding column %q", name)
			}
			values = codes
		} else {
			values = col.Float()
		}
		data.SetCol(j, values)
	}

	corr := mat.NewSymDense(len(cols), nil)
	stat.CorrelationMatrix(corr, data, nil)
	return corr, nil
}

// GroupStat summarises one group of a continuous column.
type GroupStat struct {
	Group string
	N     int
	Mean  float64
	Std   float64
	Min   float64
	Max   float64
}

// GroupSummary computes per-group summary statistics of the column `col`
// grouped by the categorical column `by`, ordered by group label.
func GroupSummary(df dataframe.DataFrame, by, col string) ([]GroupStat, error) {
	groups := df.Col(by).Records()
	values := df.Col(col).Float()
	if len(groups) != len(values) {
		return nil, errors.NewDimensionError("GroupSummary", len(groups), len(values), 0)
	}
	if len(groups) == 0 {
		return nil, errors.NewValueError("GroupSummary", "empty frame")
	}

	byGroup := make(map[string][]float64)
	for i, g := range groups {
		byGroup[g] = append(byGroup[g], values[i])
	}

	labels := uniqueSorted(groups)
	out := make([]GroupStat, 0, len(labels))
	for _, label := range labels {
		vs := byGroup[label]
		gs := GroupStat{
			Group: label,
			N:     len(vs),
			Mean:  stat.Mean(vs, nil),
			Min:   vs[0],
			Max:   vs[0],
		}
		if len(vs) > 1 {
			gs.Std = stat.StdDev(vs, nil)
		}
		for _, v := range vs {
			if v < gs.Min {
				gs.Min = v
			}
			if v > gs.Max {
				gs.Max = v
			}
		}
		out = append(out, gs)
	}
	return out, nil
}
