package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"

	"github.com/bngocle/motor-insurance-renewal/dataset"
	"github.com/bngocle/motor-insurance-renewal/pkg/errors"
)

// cleanedFrame builds a small already-recoded policy table carrying every
// column the descriptive stage reports on.
func cleanedFrame(t *testing.T) dataframe.DataFrame {
	t.Helper()

	var sb strings.Builder
	sb.WriteString("age,car_value,annual_mileage,years_of_no_claims_bonus,payment_method," +
		"price,actual_change_in_price_vs_last_year,percent_change_in_price_vs_last_year," +
		"grouped_change_in_price,gender,marital_status,acquisition_channel,renewed\n")

	genders := []string{"Male", "Female"}
	marital := []string{"Married", "Not Married"}
	payment := []string{"Annual", "Monthly"}
	channel := []string{"Direct", "Aggregator"}
	grouped := []string{"low", "mid", "high"}
	renewed := []string{"Yes", "No"}
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&sb, "%d,%d,%d,%d,%s,%d,%d,%.1f,%s,%s,%s,%s,%s\n",
			25+2*i,        // age
			8000+500*i,    // car_value
			6000+300*i,    // annual_mileage
			i%6,           // years_of_no_claims_bonus
			payment[i%2],  // payment_method
			480+10*i,      // price
			-20+3*i,       // actual change
			-3.0+0.5*float64(i), // percent change
			grouped[i%3],
			genders[i%2],
			marital[(i/2)%2],
			channel[(i/3)%2],
			renewed[i%2],
		)
	}

	df, err := dataset.LoadCSV(strings.NewReader(sb.String()))
	if err != nil {
		t.Fatalf("LoadCSV() error = %v", err)
	}
	return df
}

func TestLoadConfig_RejectsBadLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")

	_, err := loadConfig()
	if err == nil {
		t.Fatal("loadConfig() with LOG_LEVEL=verbose should error")
	}
	var ve *errors.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("error = %v, want ValidationError", err)
	}
}

func TestLoadConfig_AcceptsKnownLogLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		t.Setenv("LOG_LEVEL", level)
		cfg, err := loadConfig()
		if err != nil {
			t.Fatalf("loadConfig() with LOG_LEVEL=%s error = %v", level, err)
		}
		if cfg.logLevel != level {
			t.Errorf("logLevel = %q, want %q", cfg.logLevel, level)
		}
	}
}

func TestDescribe_CoversEveryVariable(t *testing.T) {
	errors.SetWarningHandler(func(error) {})
	t.Cleanup(func() { errors.SetWarningHandler(func(error) {}) })

	df := cleanedFrame(t)
	outDir := t.TempDir()

	var buf bytes.Buffer
	if err := describe(df, outDir, &buf); err != nil {
		t.Fatalf("describe() error = %v", err)
	}
	got := buf.String()

	// Chi-squared tests for all four categorical variables.
	for _, col := range []string{
		dataset.ColGender,
		dataset.ColMaritalStatus,
		dataset.ColPaymentMethod,
		dataset.ColAcquisitionChannel,
	} {
		if want := col + " vs " + dataset.ColRenewed; !strings.Contains(got, want) {
			t.Errorf("output missing chi-squared block %q", want)
		}
	}

	// Welch t-tests for every continuous variable grouped by renewal.
	for _, col := range []string{
		dataset.ColAge,
		dataset.ColCarValue,
		dataset.ColAnnualMileage,
		dataset.ColYearsNoClaims,
		dataset.ColPrice,
		dataset.ColActualPriceChange,
		dataset.ColPercentPriceChange,
	} {
		if want := col + ": renewed vs lapsed"; !strings.Contains(got, want) {
			t.Errorf("output missing t-test block %q", want)
		}
	}

	// The figures, including the eight-column correlation heat map.
	for _, name := range []string{
		"price_hist.png",
		"price_hist_yes.png",
		"price_hist_no.png",
		"renewal_counts.png",
		"price_by_renewal.png",
		"renewal_rate_by_payment.png",
		"correlation_heatmap.png",
	} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("figure %s not written: %v", name, err)
		}
	}
}
