// Package log defines standard attribute keys for the analysis pipeline.
//
// Using these keys consistently keeps the report's structured logs filterable:
// every stage logs the same names for the same concepts (model, operation,
// data shape, metric values).
package log

// Model and operation context.
const (
	// ModelNameKey identifies the model type being trained or scored.
	// Examples: "LogisticRegression", "RandomForestClassifier", "GradientBoostingClassifier"
	ModelNameKey = "model.name"

	// OperationKey specifies the pipeline operation being performed.
	// Standard values: "load", "clean", "split", "fit", "predict", "score"
	OperationKey = "pipeline.operation"

	// ComponentKey identifies which package is performing the operation.
	// Examples: "dataset", "stats", "linear", "ensemble", "metrics"
	ComponentKey = "pipeline.component"
)

// Data shape.
const (
	// RowsKey is the number of rows in the table or matrix being processed.
	RowsKey = "data.rows"

	// FeaturesKey is the number of feature columns.
	FeaturesKey = "data.features"

	// DroppedRowsKey is the number of rows removed by a cleaning step.
	DroppedRowsKey = "data.dropped_rows"
)

// Evaluation results.
const (
	// AccuracyKey is the holdout accuracy of a fitted model.
	AccuracyKey = "eval.accuracy"

	// AUCKey is the holdout area under the ROC curve.
	AUCKey = "eval.auc"

	// SeedKey is the random seed controlling a stochastic stage.
	SeedKey = "pipeline.seed"
)
