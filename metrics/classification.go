// Package metrics implements classification evaluation metrics for the
// renewal models: confusion matrix, accuracy, ROC/AUC and log-loss.
package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/bngocle/motor-insurance-renewal/pkg/errors"
)

// Confusion holds the four cells of a binary confusion matrix.
// The positive class is label 1.
type Confusion struct {
	TP int // true label 1, predicted 1
	FP int // true label 0, predicted 1
	TN int // true label 0, predicted 0
	FN int // true label 1, predicted 0
}

// Total returns the number of observations counted in the matrix.
func (c Confusion) Total() int {
	return c.TP + c.FP + c.TN + c.FN
}

// Accuracy returns (TP+TN)/total.
func (c Confusion) Accuracy() float64 {
	total := c.Total()
	if total == 0 {
		return 0
	}
	return float64(c.TP+c.TN) / float64(total)
}

// ConfusionMatrix thresholds scores at the given probability threshold and
// counts agreement with the true binary labels.
func ConfusionMatrix(yTrue, score *mat.VecDense, threshold float64) (Confusion, error) {
	var cm Confusion
	if yTrue == nil || score == nil {
		return cm, errors.NewValueError("ConfusionMatrix", "nil input vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return cm, errors.NewValueError("ConfusionMatrix", "empty vector")
	}
	if score.Len() != n {
		return cm, errors.NewDimensionError("ConfusionMatrix", n, score.Len(), 0)
	}

	for i := 0; i < n; i++ {
		label := yTrue.AtVec(i)
		if label != 0 && label != 1 {
			return cm, errors.NewValueError("ConfusionMatrix", "labels must be binary (0 or 1)")
		}
		predicted := score.AtVec(i) >= threshold
		switch {
		case label == 1 && predicted:
			cm.TP++
		case label == 1 && !predicted:
			cm.FN++
		case label == 0 && predicted:
			cm.FP++
		default:
			cm.TN++
		}
	}
	return cm, nil
}

// Accuracy returns the fraction of predictions matching the true labels
// under a 0.5 threshold.
func Accuracy(yTrue, score *mat.VecDense) (float64, error) {
	cm, err := ConfusionMatrix(yTrue, score, 0.5)
	if err != nil {
		return 0, err
	}
	return cm.Accuracy(), nil
}

// AUC computes the area under the ROC curve as the Mann-Whitney rank
// statistic, with ties in the scores handled by midranks.
//
// When only one class is present the metric is undefined; following the
// usual convention an UndefinedMetricWarning is raised and 0.5 returned.
func AUC(yTrue, yPred *mat.VecDense) (float64, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError("AUC", "nil input vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("AUC", "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("AUC", n, yPred.Len(), 0)
	}

	nPos, nNeg := 0, 0
	for i := 0; i < n; i++ {
		switch yTrue.AtVec(i) {
		case 1:
			nPos++
		case 0:
			nNeg++
		default:
			return 0, errors.NewValueError("AUC", "labels must be binary (0 or 1)")
		}
	}
	if nPos == 0 || nNeg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("auc", "only one class present in yTrue", 0.5))
		return 0.5, nil
	}

	type scored struct {
		score float64
		pos   bool
	}
	items := make([]scored, n)
	for i := 0; i < n; i++ {
		items[i] = scored{score: yPred.AtVec(i), pos: yTrue.AtVec(i) == 1}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].score < items[j].score })

	// Midrank sum over positives.
	rankSum := 0.0
	i := 0
	for i < n {
		j := i
		for j < n && items[j].score == items[i].score {
			j++
		}
		// ranks i+1 .. j share the midrank
		midrank := float64(i+j+1) / 2.0
		for k := i; k < j; k++ {
			if items[k].pos {
				rankSum += midrank
			}
		}
		i = j
	}

	u := rankSum - float64(nPos)*float64(nPos+1)/2.0
	return u / (float64(nPos) * float64(nNeg)), nil
}

// AUCMatrix computes AUC from n x 1 matrices, using the first column.
func AUCMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	tVec, err := firstColumn("AUCMatrix", yTrue)
	if err != nil {
		return 0, err
	}
	pVec, err := firstColumn("AUCMatrix", yPred)
	if err != nil {
		return 0, err
	}
	return AUC(tVec, pVec)
}

// ROCPoint is one (false-positive rate, true-positive rate) pair.
type ROCPoint struct {
	FPR float64
	TPR float64
}

// ROCCurve returns the ROC curve points ordered from (0,0) to (1,1),
// one step per distinct score threshold.
func ROCCurve(yTrue, score *mat.VecDense) ([]ROCPoint, error) {
	if yTrue == nil || score == nil {
		return nil, errors.NewValueError("ROCCurve", "nil input vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return nil, errors.NewValueError("ROCCurve", "empty vector")
	}
	if score.Len() != n {
		return nil, errors.NewDimensionError("ROCCurve", n, score.Len(), 0)
	}

	nPos, nNeg := 0, 0
	type scored struct {
		score float64
		pos   bool
	}
	items := make([]scored, n)
	for i := 0; i < n; i++ {
		label := yTrue.AtVec(i)
		if label != 0 && label != 1 {
			return nil, errors.NewValueError("ROCCurve", "labels must be binary (0 or 1)")
		}
		pos := label == 1
		if pos {
			nPos++
		} else {
			nNeg++
		}
		items[i] = scored{score: score.AtVec(i), pos: pos}
	}
	if nPos == 0 || nNeg == 0 {
		return nil, errors.NewValueError("ROCCurve", "need both classes to trace a curve")
	}

	sort.Slice(items, func(i, j int) bool { return items[i].score > items[j].score })

	points := []ROCPoint{{FPR: 0, TPR: 0}}
	tp, fp := 0, 0
	i := 0
	for i < n {
		j := i
		for j < n && items[j].score == items[i].score {
			if items[j].pos {
				tp++
			} else {
				fp++
			}
			j++
		}
		points = append(points, ROCPoint{
			FPR: float64(fp) / float64(nNeg),
			TPR: float64(tp) / float64(nPos),
		})
		i = j
	}
	return points, nil
}

// LogLoss computes the negative mean log-likelihood of binary labels under
// predicted probabilities, clipped to [eps, 1-eps] to avoid log(0).
func LogLoss(yTrue, prob *mat.VecDense) (float64, error) {
	if yTrue == nil || prob == nil {
		return 0, errors.NewValueError("LogLoss", "nil input vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("LogLoss", "empty vector")
	}
	if prob.Len() != n {
		return 0, errors.NewDimensionError("LogLoss", n, prob.Len(), 0)
	}

	const eps = 1e-15
	sum := 0.0
	for i := 0; i < n; i++ {
		p := math.Min(math.Max(prob.AtVec(i), eps), 1-eps)
		if yTrue.AtVec(i) == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(n), nil
}

func firstColumn(op string, m mat.Matrix) (*mat.VecDense, error) {
	if m == nil {
		return nil, errors.NewValueError(op, "nil matrix")
	}
	rows, cols := m.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.NewValueError(op, "empty matrix")
	}
	v := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v, nil
}
