// Package ensemble implements the tree-based classifiers used for renewal
// prediction: bagged decision trees (random forest) and gradient boosted
// trees, with k-fold cross-validation and grid search on top.
package ensemble

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// treeConfig holds the growth limits shared by classification and
// regression trees.
type treeConfig struct {
	maxDepth       int     // 0 means unlimited
	minSamplesLeaf int     // minimum samples on each side of a split
	maxFeatures    int     // candidate features per split; 0 means all
	minGain        float64 // minimum impurity decrease to accept a split
}

// treeNode is a node of a binary CART tree. Leaves carry a value: the
// positive-class fraction for classification trees, an additive score for
// regression trees.
type treeNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

// predict walks the tree for one sample. Values at the threshold go left.
func (n *treeNode) predict(row []float64) float64 {
	for !n.leaf {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// depthOf reports the tree height, counting the root as depth 1.
func depthOf(n *treeNode) int {
	if n == nil {
		return 0
	}
	if n.leaf {
		return 1
	}
	l, r := depthOf(n.left), depthOf(n.right)
	if l > r {
		return l + 1
	}
	return r + 1
}

// candidateFeatures picks the features to consider for one split. With
// maxFeatures set, a random subset is drawn without replacement, which is
// what decorrelates the trees of a forest.
func candidateFeatures(nFeatures int, cfg treeConfig, rng *rand.Rand) []int {
	if cfg.maxFeatures <= 0 || cfg.maxFeatures >= nFeatures {
		all := make([]int, nFeatures)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return rng.Perm(nFeatures)[:cfg.maxFeatures]
}

// giniImpurity computes the Gini impurity of a binary label subset.
func giniImpurity(nPos, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(nPos) / float64(n)
	return 2 * p * (1 - p)
}

// buildClassificationTree grows a CART tree on the rows named by idx using
// Gini impurity. Labels must be 0 or 1.
func buildClassificationTree(X *mat.Dense, y []float64, idx []int, depth int, cfg treeConfig, rng *rand.Rand) *treeNode {
	n := len(idx)
	nPos := 0
	for _, i := range idx {
		if y[i] == 1 {
			nPos++
		}
	}

	leaf := &treeNode{leaf: true, value: float64(nPos) / float64(n)}
	if nPos == 0 || nPos == n {
		return leaf
	}
	if cfg.maxDepth > 0 && depth >= cfg.maxDepth {
		return leaf
	}
	if n < 2*cfg.minSamplesLeaf {
		return leaf
	}

	parent := giniImpurity(nPos, n)
	_, nFeatures := X.Dims()

	bestGain := cfg.minGain
	bestFeature := -1
	bestThreshold := 0.0

	for _, f := range candidateFeatures(nFeatures, cfg, rng) {
		// Sort the subset by this feature so thresholds can be swept with
		// running class counts.
		order := make([]int, n)
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool {
			return X.At(order[a], f) < X.At(order[b], f)
		})

		leftN, leftPos := 0, 0
		for k := 0; k < n-1; k++ {
			leftN++
			if y[order[k]] == 1 {
				leftPos++
			}
			cur, next := X.At(order[k], f), X.At(order[k+1], f)
			if cur == next {
				continue
			}
			rightN := n - leftN
			if leftN < cfg.minSamplesLeaf || rightN < cfg.minSamplesLeaf {
				continue
			}

			rightPos := nPos - leftPos
			weighted := (float64(leftN)*giniImpurity(leftPos, leftN) +
				float64(rightN)*giniImpurity(rightPos, rightN)) / float64(n)
			if gain := parent - weighted; gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (cur + next) / 2
			}
		}
	}

	if bestFeature < 0 {
		return leaf
	}

	leftIdx := make([]int, 0, n)
	rightIdx := make([]int, 0, n)
	for _, i := range idx {
		if X.At(i, bestFeature) <= bestThreshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}

	return &treeNode{
		feature:   bestFeature,
		threshold: bestThreshold,
		left:      buildClassificationTree(X, y, leftIdx, depth+1, cfg, rng),
		right:     buildClassificationTree(X, y, rightIdx, depth+1, cfg, rng),
	}
}

// buildRegressionTree grows a tree on gradient/hessian statistics. The leaf
// value is the Newton step -G/H and the split gain is the usual second-order
// objective reduction 0.5*(GL^2/HL + GR^2/HR - G^2/H).
func buildRegressionTree(X *mat.Dense, grad, hess []float64, idx []int, depth int, cfg treeConfig, rng *rand.Rand) *treeNode {
	n := len(idx)
	var gSum, hSum float64
	for _, i := range idx {
		gSum += grad[i]
		hSum += hess[i]
	}

	leaf := &treeNode{leaf: true, value: newtonLeaf(gSum, hSum)}
	if cfg.maxDepth > 0 && depth >= cfg.maxDepth {
		return leaf
	}
	if n < 2*cfg.minSamplesLeaf {
		return leaf
	}

	_, nFeatures := X.Dims()
	bestGain := cfg.minGain
	bestFeature := -1
	bestThreshold := 0.0

	parentScore := objectiveScore(gSum, hSum)
	for _, f := range candidateFeatures(nFeatures, cfg, rng) {
		order := make([]int, n)
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool {
			return X.At(order[a], f) < X.At(order[b], f)
		})

		var gLeft, hLeft float64
		leftN := 0
		for k := 0; k < n-1; k++ {
			gLeft += grad[order[k]]
			hLeft += hess[order[k]]
			leftN++

			cur, next := X.At(order[k], f), X.At(order[k+1], f)
			if cur == next {
				continue
			}
			if leftN < cfg.minSamplesLeaf || n-leftN < cfg.minSamplesLeaf {
				continue
			}

			gain := objectiveScore(gLeft, hLeft) +
				objectiveScore(gSum-gLeft, hSum-hLeft) - parentScore
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (cur + next) / 2
			}
		}
	}

	if bestFeature < 0 {
		return leaf
	}

	leftIdx := make([]int, 0, n)
	rightIdx := make([]int, 0, n)
	for _, i := range idx {
		if X.At(i, bestFeature) <= bestThreshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}

	return &treeNode{
		feature:   bestFeature,
		threshold: bestThreshold,
		left:      buildRegressionTree(X, grad, hess, leftIdx, depth+1, cfg, rng),
		right:     buildRegressionTree(X, grad, hess, rightIdx, depth+1, cfg, rng),
	}
}

const hessianEps = 1e-10

func newtonLeaf(gSum, hSum float64) float64 {
	return -gSum / (hSum + hessianEps)
}

func objectiveScore(gSum, hSum float64) float64 {
	return 0.5 * gSum * gSum / (hSum + hessianEps)
}

// rowOf copies one row of X into a reusable buffer.
func rowOf(X mat.Matrix, i int, buf []float64) []float64 {
	_, cols := X.Dims()
	if cap(buf) < cols {
		buf = make([]float64, cols)
	}
	buf = buf[:cols]
	for j := 0; j < cols; j++ {
		buf[j] = X.At(i, j)
	}
	return buf
}

// constantColumn reports the first feature column with zero variance, if
// any. Trees never split on a constant column, so one in the training data
// signals a broken upstream encoding rather than a usable feature.
func constantColumn(X mat.Matrix) (int, bool) {
	rows, cols := X.Dims()
	for j := 0; j < cols; j++ {
		first := X.At(0, j)
		constant := true
		for i := 1; i < rows; i++ {
			if X.At(i, j) != first {
				constant = false
				break
			}
		}
		if constant {
			return j, true
		}
	}
	return -1, false
}

// toDense returns m as a *mat.Dense, copying only when necessary.
func toDense(m mat.Matrix) *mat.Dense {
	if d, ok := m.(*mat.Dense); ok {
		return d
	}
	return mat.DenseCopyOf(m)
}
