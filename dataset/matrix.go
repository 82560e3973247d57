package dataset

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"

	"github.com/bngocle/motor-insurance-renewal/pkg/errors"
	"github.com/bngocle/motor-insurance-renewal/preprocessing"
)

// FeatureColumns are the seven explanatory variables every renewal model
// consumes.
var FeatureColumns = []string{
	ColAge,
	ColCarValue,
	ColAnnualMileage,
	ColYearsNoClaims,
	ColPaymentMethod,
	ColPrice,
	ColPercentPriceChange,
}

// DesignMatrix builds the model inputs from a cleaned frame: X holds the
// feature columns in order (string columns label-encoded to integer codes),
// y holds the renewed label as 0 (No) / 1 (Yes).
func DesignMatrix(df dataframe.DataFrame, features []string) (*mat.Dense, *mat.VecDense, error) {
	n := df.Nrow()
	if n == 0 {
		return nil, nil, errors.NewModelError("DesignMatrix", "empty frame", errors.ErrEmptyData)
	}
	if len(features) == 0 {
		return nil, nil, errors.NewValueError("DesignMatrix", "no feature columns given")
	}

	X := mat.NewDense(n, len(features), nil)
	for j, name := range features {
		if !HasColumn(df, name) {
			return nil, nil, errors.Wrapf(errors.ErrMissingColumn, "feature column %q", name)
		}
		values, err := columnAsFloats(df, name)
		if err != nil {
			return nil, nil, err
		}
		X.SetCol(j, values)
	}

	y, err := LabelVector(df)
	if err != nil {
		return nil, nil, err
	}
	return X, y, nil
}

// LabelVector extracts the renewed column as a 0/1 vector.
func LabelVector(df dataframe.DataFrame) (*mat.VecDense, error) {
	if !HasColumn(df, ColRenewed) {
		return nil, errors.Wrapf(errors.ErrMissingColumn, "label column %q", ColRenewed)
	}
	records := df.Col(ColRenewed).Records()
	y := mat.NewVecDense(len(records), nil)
	for i, v := range records {
		switch v {
		case LabelYes:
			y.SetVec(i, 1)
		case LabelNo:
			y.SetVec(i, 0)
		default:
			return nil, errors.NewValidationError(ColRenewed, "label not recoded to Yes/No; run Clean first", v)
		}
	}
	return y, nil
}

func columnAsFloats(df dataframe.DataFrame, name string) ([]float64, error) {
	col := df.Col(name)
	if col.Type() == series.String {
		enc := preprocessing.NewLabelEncoder()
		codes, err := enc.FitTransform(col.Records())
		if err != nil {
			return nil, errors.Wrapf(err, "encoding column %q", name)
		}
		return codes, nil
	}
	return col.Float(), nil
}
