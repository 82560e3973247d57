package stats

import (
	"math"
	"strings"
	"testing"

	"github.com/bngocle/motor-insurance-renewal/dataset"
)

const corrCSV = `price,car_value,annual_mileage,grouped_change_in_price
100,1000,9000,low
200,2000,8500,low
300,3000,8000,mid
400,4000,7500,high
500,5000,7000,high
`

func TestCorrelationMatrix(t *testing.T) {
	df, err := dataset.LoadCSV(strings.NewReader(corrCSV))
	if err != nil {
		t.Fatalf("LoadCSV() error = %v", err)
	}

	cols := []string{"price", "car_value", "annual_mileage"}
	corr, err := CorrelationMatrix(df, cols)
	if err != nil {
		t.Fatalf("CorrelationMatrix() error = %v", err)
	}

	k := len(cols)
	for i := 0; i < k; i++ {
		if math.Abs(corr.At(i, i)-1) > 1e-9 {
			t.Errorf("diagonal [%d][%d] = %v, want 1", i, i, corr.At(i, i))
		}
		for j := 0; j < k; j++ {
			if math.Abs(corr.At(i, j)-corr.At(j, i)) > 1e-12 {
				t.Errorf("matrix not symmetric at (%d,%d)", i, j)
			}
		}
	}

	// price and car_value are perfectly linearly related.
	if math.Abs(corr.At(0, 1)-1) > 1e-9 {
		t.Errorf("corr(price, car_value) = %v, want 1", corr.At(0, 1))
	}
	// price and annual_mileage are perfectly anti-correlated.
	if math.Abs(corr.At(0, 2)-(-1)) > 1e-9 {
		t.Errorf("corr(price, annual_mileage) = %v, want -1", corr.At(0, 2))
	}
}

func TestCorrelationMatrix_EncodesStringColumn(t *testing.T) {
	df, err := dataset.LoadCSV(strings.NewReader(corrCSV))
	if err != nil {
		t.Fatalf("LoadCSV() error = %v", err)
	}

	corr, err := CorrelationMatrix(df, []string{"price", "grouped_change_in_price"})
	if err != nil {
		t.Fatalf("CorrelationMatrix() error = %v", err)
	}
	if math.IsNaN(corr.At(0, 1)) {
		t.Error("correlation with encoded string column should be defined")
	}
}

func TestCorrelationMatrix_MissingColumn(t *testing.T) {
	df, err := dataset.LoadCSV(strings.NewReader(corrCSV))
	if err != nil {
		t.Fatalf("LoadCSV() error = %v", err)
	}
	if _, err := CorrelationMatrix(df, []string{"price", "absent"}); err == nil {
		t.Error("expected error for missing column")
	}
}

func TestGroupSummary(t *testing.T) {
	csv := `renewed,price
Yes,100
Yes,200
No,300
No,500
`
	df, err := dataset.LoadCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("LoadCSV() error = %v", err)
	}

	summary, err := GroupSummary(df, "renewed", "price")
	if err != nil {
		t.Fatalf("GroupSummary() error = %v", err)
	}

	if len(summary) != 2 {
		t.Fatalf("got %d groups, want 2", len(summary))
	}
	// Groups are ordered by label: No before Yes.
	no, yes := summary[0], summary[1]
	if no.Group != "No" || yes.Group != "Yes" {
		t.Fatalf("group order = [%s %s], want [No Yes]", no.Group, yes.Group)
	}
	if no.N != 2 || no.Mean != 400 || no.Min != 300 || no.Max != 500 {
		t.Errorf("No stats = %+v", no)
	}
	if yes.N != 2 || yes.Mean != 150 {
		t.Errorf("Yes stats = %+v", yes)
	}
}
