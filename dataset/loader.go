// Package dataset loads the policy spreadsheet into a dataframe, cleans and
// recodes its columns, and turns the cleaned table into model inputs.
package dataset

import (
	"io"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/xuri/excelize/v2"

	"github.com/bngocle/motor-insurance-renewal/pkg/errors"
)

// Column names after normalization. One row per policy record.
const (
	ColRenewed            = "renewed"
	ColGender             = "gender"
	ColMaritalStatus      = "marital_status"
	ColPaymentMethod      = "payment_method"
	ColAcquisitionChannel = "acquisition_channel"
	ColAge                = "age"
	ColCarValue           = "car_value"
	ColAnnualMileage      = "annual_mileage"
	ColYearsNoClaims      = "years_of_no_claims_bonus"
	ColPrice              = "price"
	ColActualPriceChange  = "actual_change_in_price_vs_last_year"
	ColPercentPriceChange = "percent_change_in_price_vs_last_year"
	ColGroupedPriceChange = "grouped_change_in_price"
)

// LoadXLSX reads the first sheet of an xlsx workbook into a dataframe with
// normalized column names. A missing or unparsable file is a fatal input
// error for the whole run.
func LoadXLSX(path string) (dataframe.DataFrame, error) {
	var empty dataframe.DataFrame

	f, err := excelize.OpenFile(path)
	if err != nil {
		return empty, errors.Wrapf(err, "opening spreadsheet %q", path)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return empty, errors.NewModelError("LoadXLSX", "workbook has no sheets", errors.ErrEmptyData)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return empty, errors.Wrapf(err, "reading sheet %q", sheet)
	}
	if len(rows) < 2 {
		return empty, errors.NewModelError("LoadXLSX", "sheet has no data rows", errors.ErrEmptyData)
	}

	// Pad ragged rows: excelize trims trailing empty cells.
	width := len(rows[0])
	records := make([][]string, len(rows))
	for i, row := range rows {
		rec := make([]string, width)
		copy(rec, row)
		records[i] = rec
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
	)
	if df.Err != nil {
		return empty, errors.Wrap(df.Err, "parsing spreadsheet records")
	}
	return normalizeColumnNames(df), nil
}

// LoadCSV reads CSV data into a dataframe with normalized column names.
func LoadCSV(r io.Reader) (dataframe.DataFrame, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
	)
	if df.Err != nil {
		return df, errors.Wrap(df.Err, "parsing CSV")
	}
	if df.Nrow() == 0 {
		return df, errors.NewModelError("LoadCSV", "no data rows", errors.ErrEmptyData)
	}
	return normalizeColumnNames(df), nil
}

// normalizeColumnNames lowercases headers and replaces separator runs with
// single underscores, so "Car Value" and "car_value" address the same column.
func normalizeColumnNames(df dataframe.DataFrame) dataframe.DataFrame {
	for _, name := range df.Names() {
		normalized := NormalizeColumnName(name)
		if normalized != name {
			df = df.Rename(normalized, name)
		}
	}
	return df
}

// NormalizeColumnName converts a raw header to lowercase underscore form.
func NormalizeColumnName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	for _, sep := range []string{" ", "-", ".", "/"} {
		s = strings.ReplaceAll(s, sep, "_")
	}
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return s
}

// HasColumn reports whether the frame contains the named column.
func HasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}
