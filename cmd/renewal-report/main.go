// Command renewal-report runs the motor insurance renewal analysis end to
// end: it loads the policy book, cleans and recodes it, prints descriptive
// statistics with their test results, renders the exploratory figures, then
// trains and compares three classifiers on held-out data.
//
// Configuration comes from the environment (optionally via a .env file):
//
//	RENEWAL_DATA_PATH  input spreadsheet (default data/renewals.xlsx)
//	RENEWAL_OUT_DIR    directory for figures (default out)
//	RENEWAL_SEED       seed for every random split (default 19)
//	LOG_LEVEL          debug, info, warn or error (default info)
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/bngocle/motor-insurance-renewal/dataset"
	"github.com/bngocle/motor-insurance-renewal/ensemble"
	"github.com/bngocle/motor-insurance-renewal/linear"
	"github.com/bngocle/motor-insurance-renewal/metrics"
	"github.com/bngocle/motor-insurance-renewal/pkg/errors"
	"github.com/bngocle/motor-insurance-renewal/pkg/log"
	"github.com/bngocle/motor-insurance-renewal/report"
	"github.com/bngocle/motor-insurance-renewal/stats"
)

type config struct {
	dataPath string
	outDir   string
	seed     int64
	logLevel string
}

func loadConfig() (config, error) {
	// A missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg := config{
		dataPath: envOr("RENEWAL_DATA_PATH", filepath.Join("data", "renewals.xlsx")),
		outDir:   envOr("RENEWAL_OUT_DIR", "out"),
		logLevel: envOr("LOG_LEVEL", "info"),
		seed:     19,
	}
	if raw := os.Getenv("RENEWAL_SEED"); raw != "" {
		seed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return config{}, errors.NewValidationError("RENEWAL_SEED", "not an integer", raw)
		}
		cfg.seed = seed
	}
	if !log.ValidLevel(cfg.logLevel) {
		return config{}, errors.NewValidationError("LOG_LEVEL", "must be debug, info, warn or error", cfg.logLevel)
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "renewal-report: %v\n", err)
		os.Exit(1)
	}

	log.SetupLogger(cfg.logLevel)
	bridgeWarnings()

	if err := run(cfg); err != nil {
		logger := log.GetLoggerWithName("main")
		logger.Error("analysis failed", log.ErrAttr(err))
		os.Exit(1)
	}
}

// bridgeWarnings routes statistical warnings (unreliable tests, undefined
// metrics, convergence problems) into structured zerolog output instead of
// the default handler.
func bridgeWarnings() {
	zl := zerolog.New(os.Stderr).With().Timestamp().Logger()
	errors.SetZerologWarnFunc(func(w error) {
		if obj, ok := w.(zerolog.LogObjectMarshaler); ok {
			zl.Warn().Object("warning", obj).Msg(w.Error())
			return
		}
		zl.Warn().Msg(w.Error())
	})
}

func run(cfg config) error {
	logger := log.GetLoggerWithName("pipeline")

	if err := os.MkdirAll(cfg.outDir, 0o755); err != nil {
		return errors.Wrapf(err, "creating output directory %s", cfg.outDir)
	}

	df, err := loadFrame(cfg.dataPath)
	if err != nil {
		return err
	}
	logger.Info("data loaded",
		slog.String(log.OperationKey, "load"),
		slog.Int(log.RowsKey, df.Nrow()))

	clean, err := dataset.Clean(df)
	if err != nil {
		return err
	}

	if err := describe(clean, cfg.outDir, os.Stdout); err != nil {
		return err
	}

	X, y, err := dataset.DesignMatrix(clean, dataset.FeatureColumns)
	if err != nil {
		return err
	}
	nSamples, nFeatures := X.Dims()
	logger.Info("design matrix built",
		slog.Int(log.RowsKey, nSamples),
		slog.Int(log.FeaturesKey, nFeatures),
		slog.Int64(log.SeedKey, cfg.seed))

	evals, curves := trainModels(X, y, cfg.seed)
	if len(evals) == 0 {
		return errors.New("all model branches failed")
	}

	fmt.Println("\nModel comparison on held-out data")
	if err := report.WriteModelComparison(os.Stdout, evals); err != nil {
		return err
	}
	rocPath := filepath.Join(cfg.outDir, "roc_comparison.png")
	if err := report.SaveROCCurves(curves, "ROC comparison", rocPath); err != nil {
		return err
	}
	logger.Info("report complete", slog.String("out_dir", cfg.outDir))
	return nil
}

// loadFrame reads the policy book, choosing the parser by file extension.
func loadFrame(path string) (dataframe.DataFrame, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		f, err := os.Open(path)
		if err != nil {
			return dataframe.DataFrame{}, errors.Wrapf(err, "opening %s", path)
		}
		defer f.Close()
		return dataset.LoadCSV(f)
	}
	return dataset.LoadXLSX(path)
}

// describe prints the exploratory statistics and saves the exploratory
// figures: distributions, group comparisons, association tests and the
// correlation structure of the features.
func describe(df dataframe.DataFrame, outDir string, out io.Writer) error {
	logger := log.GetLoggerWithName("describe")

	price := df.Col(dataset.ColPrice).Float()
	renewed := df.Col(dataset.ColRenewed).Records()

	// Premium distribution, overall and per renewal status.
	histPath := filepath.Join(outDir, "price_hist.png")
	if err := report.SaveHistogram(price, 30, "Premium distribution", "price", histPath); err != nil {
		return err
	}
	for _, status := range []string{dataset.LabelYes, dataset.LabelNo} {
		var group []float64
		for i, r := range renewed {
			if r == status {
				group = append(group, price[i])
			}
		}
		if len(group) == 0 {
			continue
		}
		name := fmt.Sprintf("price_hist_%s.png", strings.ToLower(status))
		title := fmt.Sprintf("Premium distribution, renewed = %s", status)
		if err := report.SaveHistogram(group, 30, title, "price", filepath.Join(outDir, name)); err != nil {
			return err
		}
	}

	// Renewal counts.
	summary, err := stats.GroupSummary(df, dataset.ColRenewed, dataset.ColPrice)
	if err != nil {
		return err
	}
	if err := report.WriteGroupSummary(out, "Price by renewal status", summary); err != nil {
		return err
	}
	labels := make([]string, len(summary))
	counts := make([]float64, len(summary))
	boxGroups := make([][]float64, len(summary))
	for i, g := range summary {
		labels[i] = g.Group
		counts[i] = float64(g.N)
		for j, r := range renewed {
			if r == g.Group {
				boxGroups[i] = append(boxGroups[i], price[j])
			}
		}
	}
	if err := report.SaveBarChart(labels, counts, "Policies by renewal status", "policies",
		filepath.Join(outDir, "renewal_counts.png")); err != nil {
		return err
	}
	if err := report.SaveBoxPlot(labels, boxGroups, "Price by renewal status", "price",
		filepath.Join(outDir, "price_by_renewal.png")); err != nil {
		return err
	}

	// Renewal rate by payment method.
	if dataset.HasColumn(df, dataset.ColPaymentMethod) {
		methods := df.Col(dataset.ColPaymentMethod).Records()
		total := make(map[string]int)
		kept := make(map[string]int)
		var order []string
		for i, m := range methods {
			if total[m] == 0 {
				order = append(order, m)
			}
			total[m]++
			if renewed[i] == dataset.LabelYes {
				kept[m]++
			}
		}
		sort.Strings(order)
		rates := make([]float64, len(order))
		for i, m := range order {
			rates[i] = float64(kept[m]) / float64(total[m])
		}
		if err := report.SaveBarChart(order, rates, "Renewal rate by payment method", "renewal rate",
			filepath.Join(outDir, "renewal_rate_by_payment.png")); err != nil {
			return err
		}
	}

	// Association between each categorical variable and renewal.
	categorical := []string{
		dataset.ColGender,
		dataset.ColMaritalStatus,
		dataset.ColPaymentMethod,
		dataset.ColAcquisitionChannel,
	}
	for _, col := range categorical {
		if !dataset.HasColumn(df, col) {
			continue
		}
		res, err := stats.ChiSquareTest(df.Col(col).Records(), renewed)
		if err != nil {
			logger.Warn("chi-squared test skipped", slog.String("column", col), log.ErrAttr(err))
			continue
		}
		title := fmt.Sprintf("\n%s vs %s", col, dataset.ColRenewed)
		if err := report.WriteChiSquare(out, title, res); err != nil {
			return err
		}
	}

	// Does each continuous variable differ between renewing and lapsing
	// customers?
	continuous := []string{
		dataset.ColAge,
		dataset.ColCarValue,
		dataset.ColAnnualMileage,
		dataset.ColYearsNoClaims,
		dataset.ColPrice,
		dataset.ColActualPriceChange,
		dataset.ColPercentPriceChange,
	}
	for _, col := range continuous {
		if !dataset.HasColumn(df, col) {
			continue
		}
		values := df.Col(col).Float()
		var kept, lapsed []float64
		for i, r := range renewed {
			if r == dataset.LabelYes {
				kept = append(kept, values[i])
			} else {
				lapsed = append(lapsed, values[i])
			}
		}
		res, err := stats.WelchTTest(kept, lapsed)
		if err != nil {
			logger.Warn("t-test skipped", slog.String("column", col), log.ErrAttr(err))
			continue
		}
		title := fmt.Sprintf("\n%s: renewed vs lapsed", col)
		if err := report.WriteTTest(out, title, res); err != nil {
			return err
		}
	}

	// Correlation structure: price against the other continuous variables,
	// with the ordinal grouped price change label-encoded.
	corrCols := make([]string, 0, 8)
	for _, col := range []string{
		dataset.ColPrice,
		dataset.ColActualPriceChange,
		dataset.ColPercentPriceChange,
		dataset.ColGroupedPriceChange,
		dataset.ColAge,
		dataset.ColCarValue,
		dataset.ColAnnualMileage,
		dataset.ColYearsNoClaims,
	} {
		if dataset.HasColumn(df, col) {
			corrCols = append(corrCols, col)
		}
	}
	corr, err := stats.CorrelationMatrix(df, corrCols)
	if err != nil {
		return err
	}
	return report.SaveCorrelationHeatmap(corr, corrCols, "Feature correlations",
		filepath.Join(outDir, "correlation_heatmap.png"))
}

// trainModels runs the three classifier branches. A failing branch is
// logged and skipped so the surviving models are still compared.
func trainModels(X *mat.Dense, y *mat.VecDense, seed int64) ([]report.ModelEvaluation, []report.ROCSeries) {
	logger := log.GetLoggerWithName("models")

	var evals []report.ModelEvaluation
	var curves []report.ROCSeries

	branches := []struct {
		name string
		fn   func(X *mat.Dense, y *mat.VecDense, seed int64) (report.ModelEvaluation, report.ROCSeries, error)
	}{
		{"logistic", trainLogistic},
		{"random forest", trainForest},
		{"boosted trees", trainBoosted},
	}
	for _, branch := range branches {
		eval, roc, err := branch.fn(X, y, seed)
		if err != nil {
			logger.Error("model branch failed",
				slog.String(log.ModelNameKey, branch.name), log.ErrAttr(err))
			continue
		}
		logger.Info("model evaluated",
			slog.String(log.ModelNameKey, branch.name),
			slog.Float64(log.AccuracyKey, eval.Accuracy),
			slog.Float64(log.AUCKey, eval.AUC))
		evals = append(evals, eval)
		curves = append(curves, roc)
	}
	return evals, curves
}

// trainLogistic fits the logistic regression on a plain 80/20 split and
// prints its coefficient table.
func trainLogistic(X *mat.Dense, y *mat.VecDense, seed int64) (report.ModelEvaluation, report.ROCSeries, error) {
	n, _ := X.Dims()
	split, err := dataset.TrainTestSplit(n, 0.8, seed)
	if err != nil {
		return report.ModelEvaluation{}, report.ROCSeries{}, err
	}
	XTrain, yTrain := dataset.Take(X, y, split.Train)
	XTest, yTest := dataset.Take(X, y, split.Test)

	clf := linear.NewLogisticRegression(linear.WithFeatureNames(dataset.FeatureColumns))
	if err := clf.Fit(XTrain, asColumn(yTrain)); err != nil {
		return report.ModelEvaluation{}, report.ROCSeries{}, err
	}

	table, err := clf.CoefficientTable()
	if err != nil {
		return report.ModelEvaluation{}, report.ROCSeries{}, err
	}
	fmt.Println("\nLogistic regression coefficients")
	if err := report.WriteCoefficientTable(os.Stdout, table); err != nil {
		return report.ModelEvaluation{}, report.ROCSeries{}, err
	}

	probas, err := clf.PredictProba(XTest)
	if err != nil {
		return report.ModelEvaluation{}, report.ROCSeries{}, err
	}
	return evaluate("logistic", yTest, probas)
}

// trainForest fits the random forest on a plain 80/20 split.
func trainForest(X *mat.Dense, y *mat.VecDense, seed int64) (report.ModelEvaluation, report.ROCSeries, error) {
	n, _ := X.Dims()
	split, err := dataset.TrainTestSplit(n, 0.8, seed)
	if err != nil {
		return report.ModelEvaluation{}, report.ROCSeries{}, err
	}
	XTrain, yTrain := dataset.Take(X, y, split.Train)
	XTest, yTest := dataset.Take(X, y, split.Test)

	clf := ensemble.NewRandomForestClassifier(
		ensemble.WithNTrees(1000),
		ensemble.WithMaxFeatures(2),
		ensemble.WithMinSamplesLeaf(1),
		ensemble.WithRandomState(seed),
	)
	if err := clf.Fit(XTrain, asColumn(yTrain)); err != nil {
		return report.ModelEvaluation{}, report.ROCSeries{}, err
	}
	probas, err := clf.PredictProba(XTest)
	if err != nil {
		return report.ModelEvaluation{}, report.ROCSeries{}, err
	}
	return evaluate("random forest", yTest, probas)
}

// trainBoosted tunes the gradient boosted trees by 10-fold stratified
// cross-validation maximising AUC, then evaluates the refitted winner on a
// stratified 75/25 split.
func trainBoosted(X *mat.Dense, y *mat.VecDense, seed int64) (report.ModelEvaluation, report.ROCSeries, error) {
	XTrain, yTrain, XTest, yTest, err := stratifiedSplit(X, y, 0.75, seed)
	if err != nil {
		return report.ModelEvaluation{}, report.ROCSeries{}, err
	}

	base := ensemble.DefaultGBTParams()
	base.NTrees = 200
	base.MinSamplesLeaf = 10
	base.RandomState = seed

	grid := ensemble.ParamGrid{
		"learning_rate": {0.05, 0.1},
		"max_depth":     {2, 3},
		"subsample":     {0.8, 1.0},
	}

	search := ensemble.NewGridSearchCV(base, grid, ensemble.NewStratifiedKFold(10, true, seed))
	if err := search.Fit(XTrain, asColumn(yTrain)); err != nil {
		return report.ModelEvaluation{}, report.ROCSeries{}, err
	}
	fmt.Printf("\nBoosted trees: best CV AUC %.4f with learning_rate=%.2f max_depth=%d subsample=%.1f\n",
		search.BestScore, search.BestParams.LearningRate, search.BestParams.MaxDepth, search.BestParams.Subsample)

	probas, err := search.PredictProba(XTest)
	if err != nil {
		return report.ModelEvaluation{}, report.ROCSeries{}, err
	}
	return evaluate("boosted trees", yTest, probas)
}

// stratifiedSplit partitions X and y preserving the class balance.
func stratifiedSplit(X *mat.Dense, y *mat.VecDense, frac float64, seed int64) (XTrain *mat.Dense, yTrain *mat.VecDense, XTest *mat.Dense, yTest *mat.VecDense, err error) {
	labels := make([]int, y.Len())
	for i := range labels {
		labels[i] = int(y.AtVec(i))
	}
	split, err := dataset.StratifiedTrainTestSplit(labels, frac, seed)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	XTrain, yTrain = dataset.Take(X, y, split.Train)
	XTest, yTest = dataset.Take(X, y, split.Test)
	return XTrain, yTrain, XTest, yTest, nil
}

// evaluate scores class-1 probabilities against the held-out labels.
func evaluate(name string, yTest *mat.VecDense, probas mat.Matrix) (report.ModelEvaluation, report.ROCSeries, error) {
	n := yTest.Len()
	score := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		score.SetVec(i, probas.At(i, 1))
	}

	cm, err := metrics.ConfusionMatrix(yTest, score, 0.5)
	if err != nil {
		return report.ModelEvaluation{}, report.ROCSeries{}, err
	}
	auc, err := metrics.AUC(yTest, score)
	if err != nil {
		return report.ModelEvaluation{}, report.ROCSeries{}, err
	}
	roc, err := metrics.ROCCurve(yTest, score)
	if err != nil {
		return report.ModelEvaluation{}, report.ROCSeries{}, err
	}

	eval := report.ModelEvaluation{
		Name:      name,
		Confusion: cm,
		Accuracy:  cm.Accuracy(),
		AUC:       auc,
	}
	return eval, report.ROCSeries{Name: name, Points: roc, AUC: auc}, nil
}

// asColumn views a vector as an n x 1 matrix for the Fit interfaces.
func asColumn(v *mat.VecDense) *mat.Dense {
	n := v.Len()
	m := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		m.Set(i, 0, v.AtVec(i))
	}
	return m
}
