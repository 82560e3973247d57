package dataset

import (
	"log/slog"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/bngocle/motor-insurance-renewal/pkg/errors"
	pkglog "github.com/bngocle/motor-insurance-renewal/pkg/log"
)

// InvalidGenderSentinel is the bad category value observed in the raw data.
const InvalidGenderSentinel = "C"

// Canonical category labels after recoding.
const (
	LabelYes        = "Yes"
	LabelNo         = "No"
	LabelMale       = "Male"
	LabelFemale     = "Female"
	LabelMarried    = "Married"
	LabelNotMarried = "Not Married"
)

// Clean returns a new frame with data-quality rows removed and categorical
// columns recoded into fixed label sets:
//
//   - rows with a missing price or the sentinel gender value are dropped
//   - renewed        -> {No, Yes}
//   - gender         -> {Male, Female}
//   - marital_status -> {Not Married, Married} (raw code "M" means married)
//
// payment_method and acquisition_channel keep their raw encodings, and no
// numeric column is scaled or otherwise transformed. The input frame is not
// mutated.
func Clean(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	var empty dataframe.DataFrame

	for _, required := range []string{ColPrice, ColGender, ColRenewed, ColMaritalStatus} {
		if !HasColumn(df, required) {
			return empty, errors.Wrapf(errors.ErrMissingColumn, "column %q", required)
		}
	}

	n := df.Nrow()
	priceNaN := df.Col(ColPrice).IsNaN()
	genders := df.Col(ColGender).Records()

	keep := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if priceNaN[i] || genders[i] == InvalidGenderSentinel {
			continue
		}
		keep = append(keep, i)
	}
	if len(keep) == 0 {
		return empty, errors.NewModelError("Clean", "all rows dropped", errors.ErrEmptyData)
	}

	cleaned := df.Subset(keep)
	if cleaned.Err != nil {
		return empty, errors.Wrap(cleaned.Err, "subsetting clean rows")
	}

	dropped := n - len(keep)
	pkglog.GetLoggerWithName("dataset").Info("cleaned table",
		slog.Int(pkglog.RowsKey, len(keep)),
		slog.Int(pkglog.DroppedRowsKey, dropped),
	)

	cleaned, err := recodeColumn(cleaned, ColRenewed, recodeRenewed)
	if err != nil {
		return empty, err
	}
	cleaned, err = recodeColumn(cleaned, ColGender, recodeGender)
	if err != nil {
		return empty, err
	}
	cleaned, err = recodeColumn(cleaned, ColMaritalStatus, recodeMaritalStatus)
	if err != nil {
		return empty, err
	}
	return cleaned, nil
}

func recodeColumn(df dataframe.DataFrame, col string, recode func(string) (string, error)) (dataframe.DataFrame, error) {
	raw := df.Col(col).Records()
	out := make([]string, len(raw))
	for i, v := range raw {
		label, err := recode(v)
		if err != nil {
			return df, errors.Wrapf(err, "row %d of column %q", i, col)
		}
		out[i] = label
	}
	mutated := df.Mutate(series.New(out, series.String, col))
	if mutated.Err != nil {
		return df, errors.Wrap(mutated.Err, "recoding column")
	}
	return mutated, nil
}

func recodeRenewed(v string) (string, error) {
	switch v {
	case "0", "no", "No", "N", "false":
		return LabelNo, nil
	case "1", "yes", "Yes", "Y", "true":
		return LabelYes, nil
	}
	return "", errors.NewValidationError(ColRenewed, "unrecognised renewal flag", v)
}

func recodeGender(v string) (string, error) {
	switch v {
	case "M", "m", "male", "Male":
		return LabelMale, nil
	case "F", "f", "female", "Female":
		return LabelFemale, nil
	}
	return "", errors.NewValidationError(ColGender, "unrecognised gender code", v)
}

// The raw marital code has several levels; only "M" maps to married, every
// other level collapses to not married.
func recodeMaritalStatus(v string) (string, error) {
	if v == "M" || v == LabelMarried {
		return LabelMarried, nil
	}
	return LabelNotMarried, nil
}
