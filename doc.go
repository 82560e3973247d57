// Package renewal analyses a book of 20,000 motor insurance policies to
// understand and predict contract renewal.
//
// The repository is both a library and a report generator. The packages can
// be used on their own; the cmd/renewal-report command chains them into the
// full analysis: load the policy spreadsheet, clean and recode it, print
// descriptive statistics with their test results, render the exploratory
// figures, then train and compare three classifiers on held-out data.
//
// # Quick Start
//
// Run the full report against a policy spreadsheet:
//
//	RENEWAL_DATA_PATH=data/renewals.xlsx go run ./cmd/renewal-report
//
// Or fit a single model directly:
//
//	X, y, err := dataset.DesignMatrix(frame, dataset.FeatureColumns)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	clf := linear.NewLogisticRegression(
//	    linear.WithFeatureNames(dataset.FeatureColumns),
//	)
//	if err := clf.Fit(X, asColumn(y)); err != nil {
//	    log.Fatal(err)
//	}
//
// # Packages
//
//   - dataset: spreadsheet loading, cleaning, recoding and deterministic
//     train/test splits
//   - preprocessing: label encoding for categorical columns
//   - stats: chi-squared tests, Welch's t-test, correlation matrices and
//     group summaries
//   - linear: logistic regression fitted by iteratively reweighted least
//     squares, with Wald coefficient statistics
//   - ensemble: random forest and gradient boosted trees, k-fold
//     cross-validation and grid search
//   - metrics: confusion matrices, accuracy, ROC curves and AUC
//   - report: figures (gonum/plot) and text tables
//   - core/model: shared model interfaces and fit-state management
//   - core/parallel: CPU-parallel work splitting
//
// # Determinism
//
// Every stochastic stage (splits, bootstrap sampling, fold shuffling) is
// seeded from a single RENEWAL_SEED value, so repeated runs on the same
// data produce the same partitions, the same models and the same report.
package renewal
