package errors

import (
	"strings"
	"testing"
)

func TestNotFittedError(t *testing.T) {
	err := NewNotFittedError("LogisticRegression", "Predict")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var nfe *NotFittedError
	if !As(err, &nfe) {
		t.Fatalf("expected NotFittedError, got %T", err)
	}
	if nfe.ModelName != "LogisticRegression" {
		t.Errorf("ModelName = %q, want %q", nfe.ModelName, "LogisticRegression")
	}
	if !strings.Contains(err.Error(), "not fitted yet") {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestDimensionError(t *testing.T) {
	tests := []struct {
		name     string
		axis     int
		wantWord string
	}{
		{"row axis", 0, "rows"},
		{"feature axis", 1, "features"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewDimensionError("Fit", 10, 7, tt.axis)
			if !strings.Contains(err.Error(), tt.wantWord) {
				t.Errorf("message %q does not mention %q", err.Error(), tt.wantWord)
			}
			var de *DimensionError
			if !As(err, &de) {
				t.Fatalf("expected DimensionError, got %T", err)
			}
			if de.Expected != 10 || de.Got != 7 {
				t.Errorf("Expected/Got = %d/%d, want 10/7", de.Expected, de.Got)
			}
		})
	}
}

func TestDegenerateDataError(t *testing.T) {
	err := NewDegenerateDataError("RandomForest.Fit", "zero_variance", "car_value")
	var de *DegenerateDataError
	if !As(err, &de) {
		t.Fatalf("expected DegenerateDataError, got %T", err)
	}
	if de.Kind != "zero_variance" {
		t.Errorf("Kind = %q, want zero_variance", de.Kind)
	}
	if !strings.Contains(err.Error(), "car_value") {
		t.Errorf("message should name the column: %s", err.Error())
	}

	err = NewDegenerateDataError("GBT.Fit", "single_class", "")
	if strings.Contains(err.Error(), `""`) {
		t.Errorf("empty column should be omitted from message: %s", err.Error())
	}
}

func TestWarnUsesHandler(t *testing.T) {
	var captured []error
	SetWarningHandler(func(w error) {
		captured = append(captured, w)
	})
	defer SetWarningHandler(nil)

	w := NewUnreliableTestWarning("chi-squared", "expected cell count < 5", "cell (1,2) expected 3.1")
	Warn(w)

	if len(captured) != 1 {
		t.Fatalf("expected 1 captured warning, got %d", len(captured))
	}
	if !strings.Contains(captured[0].Error(), "unreliable") {
		t.Errorf("unexpected warning message: %s", captured[0].Error())
	}
}

func TestUndefinedMetricWarningMessage(t *testing.T) {
	w := NewUndefinedMetricWarning("auc", "only one class present", 0.5)
	if !strings.Contains(w.Error(), "auc") || !strings.Contains(w.Error(), "0.5") {
		t.Errorf("unexpected message: %s", w.Error())
	}
}

func TestWrapPreservesType(t *testing.T) {
	base := NewValueError("WelchTTest", "empty sample")
	wrapped := Wrap(base, "descriptive stage")

	var ve *ValueError
	if !As(wrapped, &ve) {
		t.Fatalf("wrapping should preserve ValueError, got %T", wrapped)
	}
	if ve.Op != "WelchTTest" {
		t.Errorf("Op = %q, want WelchTTest", ve.Op)
	}
}
