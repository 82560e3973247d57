package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/bngocle/motor-insurance-renewal/linear"
	"github.com/bngocle/motor-insurance-renewal/metrics"
	"github.com/bngocle/motor-insurance-renewal/stats"
)

// ModelEvaluation holds the held-out performance of one classifier.
type ModelEvaluation struct {
	Name      string
	Confusion metrics.Confusion
	Accuracy  float64
	AUC       float64
}

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// WriteGroupSummary prints per-group summary statistics of a continuous
// variable.
func WriteGroupSummary(w io.Writer, title string, groups []stats.GroupStat) error {
	fmt.Fprintf(w, "%s\n", title)
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "group\tn\tmean\tstd\tmin\tmax")
	for _, g := range groups {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\n", g.Group, g.N, g.Mean, g.Std, g.Min, g.Max)
	}
	return tw.Flush()
}

// WriteChiSquare prints a contingency table with its chi-squared test
// result.
func WriteChiSquare(w io.Writer, title string, res *stats.ChiSquareResult) error {
	fmt.Fprintf(w, "%s\n", title)
	tw := newTabWriter(w)

	header := ""
	for _, col := range res.ColLabels {
		header += "\t" + col
	}
	fmt.Fprintln(tw, header)
	for i, row := range res.RowLabels {
		line := row
		for j := range res.ColLabels {
			line += fmt.Sprintf("\t%.0f", res.Observed[i][j])
		}
		fmt.Fprintln(tw, line)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "chi-squared = %.4f, df = %d, p = %.4g\n", res.Statistic, res.DF, res.PValue)
	return err
}

// WriteTTest prints a Welch two-sample t-test result.
func WriteTTest(w io.Writer, title string, res *stats.TTestResult) error {
	fmt.Fprintf(w, "%s\n", title)
	_, err := fmt.Fprintf(w,
		"mean(x) = %.2f (n=%d), mean(y) = %.2f (n=%d)\nt = %.4f, df = %.1f, p = %.4g\n",
		res.MeanX, res.NX, res.MeanY, res.NY, res.Statistic, res.DF, res.PValue)
	return err
}

// WriteCoefficientTable prints the logistic regression coefficients with
// their Wald statistics.
func WriteCoefficientTable(w io.Writer, table []linear.Coefficient) error {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "term\testimate\tstd err\tz\tp")
	for _, row := range table {
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.3f\t%.4g\n", row.Name, row.Estimate, row.StdErr, row.Z, row.PValue)
	}
	return tw.Flush()
}

// WriteModelComparison prints the held-out confusion matrix, accuracy and
// AUC of each evaluated classifier.
func WriteModelComparison(w io.Writer, evals []ModelEvaluation) error {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "model\tTP\tFP\tTN\tFN\taccuracy\tAUC")
	for _, e := range evals {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%.4f\t%.4f\n",
			e.Name, e.Confusion.TP, e.Confusion.FP, e.Confusion.TN, e.Confusion.FN, e.Accuracy, e.AUC)
	}
	return tw.Flush()
}
