// Package preprocessing はモデル入力前のカテゴリカル変数の変換を提供します。
package preprocessing

import (
	"sort"

	"github.com/bngocle/motor-insurance-renewal/core/model"
	"github.com/bngocle/motor-insurance-renewal/pkg/errors"
)

// LabelEncoder はカテゴリカルな文字列値を整数コードに変換する
// scikit-learn互換のエンコーダー。コードはラベルの辞書順で割り当てられる。
type LabelEncoder struct {
	state *model.StateManager

	// Classes は学習時に観測されたラベル（辞書順）
	Classes []string

	codes map[string]int
}

// NewLabelEncoder は新しいLabelEncoderを作成する
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{
		state: model.NewStateManager(),
	}
}

// Fit は与えられた値から一意なラベル集合を学習する
func (e *LabelEncoder) Fit(values []string) error {
	if len(values) == 0 {
		return errors.NewModelError("LabelEncoder.Fit", "empty data", errors.ErrEmptyData)
	}

	seen := make(map[string]struct{}, len(values))
	e.Classes = e.Classes[:0]
	for _, v := range values {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			e.Classes = append(e.Classes, v)
		}
	}
	sort.Strings(e.Classes)

	e.codes = make(map[string]int, len(e.Classes))
	for i, c := range e.Classes {
		e.codes[c] = i
	}

	e.state.SetFitted()
	return nil
}

// Transform はラベルを学習済みの整数コードに変換する。
// 未知のラベルはエラーになる。
func (e *LabelEncoder) Transform(values []string) ([]float64, error) {
	if err := e.state.RequireFitted("LabelEncoder", "Transform"); err != nil {
		return nil, err
	}

	out := make([]float64, len(values))
	for i, v := range values {
		code, ok := e.codes[v]
		if !ok {
			return nil, errors.NewValidationError("values", "unseen label", v)
		}
		out[i] = float64(code)
	}
	return out, nil
}

// FitTransform はFitとTransformを続けて実行する
func (e *LabelEncoder) FitTransform(values []string) ([]float64, error) {
	if err := e.Fit(values); err != nil {
		return nil, err
	}
	return e.Transform(values)
}

// InverseTransform は整数コードを元のラベルに戻す
func (e *LabelEncoder) InverseTransform(codes []float64) ([]string, error) {
	if err := e.state.RequireFitted("LabelEncoder", "InverseTransform"); err != nil {
		return nil, err
	}

	out := make([]string, len(codes))
	for i, c := range codes {
		idx := int(c)
		if idx < 0 || idx >= len(e.Classes) || float64(idx) != c {
			return nil, errors.NewValidationError("codes", "code out of range", c)
		}
		out[i] = e.Classes[idx]
	}
	return out, nil
}
