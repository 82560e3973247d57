// Package report renders the figures and text tables of the renewal
// analysis: distribution plots for the exploratory pass, a correlation heat
// map, ROC curves for the fitted classifiers and tabular model summaries.
package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/bngocle/motor-insurance-renewal/metrics"
	"github.com/bngocle/motor-insurance-renewal/pkg/errors"
)

const (
	plotWidth  = 6 * vg.Inch
	plotHeight = 4 * vg.Inch
)

// SaveHistogram writes a histogram of values to path. The file format
// follows the path extension (png, svg, pdf).
func SaveHistogram(values []float64, bins int, title, xLabel, path string) error {
	if len(values) == 0 {
		return errors.NewValueError("SaveHistogram", "no values to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = "Count"

	h, err := plotter.NewHist(plotter.Values(values), bins)
	if err != nil {
		return errors.Wrap(err, "report: building histogram")
	}
	h.FillColor = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	p.Add(h)

	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return errors.Wrapf(err, "report: saving %s", path)
	}
	return nil
}

// SaveBarChart writes a bar chart of one value per label to path.
func SaveBarChart(labels []string, values []float64, title, yLabel, path string) error {
	if len(labels) != len(values) {
		return errors.NewDimensionError("SaveBarChart", len(labels), len(values), 0)
	}
	if len(labels) == 0 {
		return errors.NewValueError("SaveBarChart", "no values to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = yLabel

	bars, err := plotter.NewBarChart(plotter.Values(values), vg.Points(30))
	if err != nil {
		return errors.Wrap(err, "report: building bar chart")
	}
	bars.Color = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	p.Add(bars)
	p.NominalX(labels...)

	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return errors.Wrapf(err, "report: saving %s", path)
	}
	return nil
}

// SaveBoxPlot writes side-by-side box plots, one per group, to path.
// Groups are drawn in slice order under the given labels.
func SaveBoxPlot(labels []string, groups [][]float64, title, yLabel, path string) error {
	if len(labels) != len(groups) {
		return errors.NewDimensionError("SaveBoxPlot", len(labels), len(groups), 0)
	}
	if len(groups) == 0 {
		return errors.NewValueError("SaveBoxPlot", "no groups to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = yLabel

	for i, group := range groups {
		if len(group) == 0 {
			return errors.NewValueError("SaveBoxPlot", fmt.Sprintf("group %q is empty", labels[i]))
		}
		box, err := plotter.NewBoxPlot(vg.Points(30), float64(i), plotter.Values(group))
		if err != nil {
			return errors.Wrapf(err, "report: building box plot for %q", labels[i])
		}
		p.Add(box)
	}
	p.NominalX(labels...)

	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return errors.Wrapf(err, "report: saving %s", path)
	}
	return nil
}

// corrGrid adapts a correlation matrix to the heat map grid interface.
// Rows are flipped so the first variable appears at the top.
type corrGrid struct {
	m *mat.SymDense
}

func (g corrGrid) Dims() (c, r int) {
	n := g.m.SymmetricDim()
	return n, n
}

func (g corrGrid) Z(c, r int) float64 {
	n := g.m.SymmetricDim()
	return g.m.At(n-1-r, c)
}

func (g corrGrid) X(c int) float64 { return float64(c) }
func (g corrGrid) Y(r int) float64 { return float64(r) }

// SaveCorrelationHeatmap writes the correlation matrix as a blue-red heat
// map with variable names on both axes.
func SaveCorrelationHeatmap(corr *mat.SymDense, labels []string, title, path string) error {
	n := corr.SymmetricDim()
	if n != len(labels) {
		return errors.NewDimensionError("SaveCorrelationHeatmap", n, len(labels), 0)
	}

	colors := moreland.SmoothBlueRed()
	colors.SetMin(-1)
	colors.SetMax(1)
	pal := colors.Palette(255)

	p := plot.New()
	p.Title.Text = title
	p.Add(plotter.NewHeatMap(corrGrid{m: corr}, pal))

	xTicks := make([]plot.Tick, n)
	yTicks := make([]plot.Tick, n)
	for i := 0; i < n; i++ {
		xTicks[i] = plot.Tick{Value: float64(i), Label: labels[i]}
		yTicks[i] = plot.Tick{Value: float64(i), Label: labels[n-1-i]}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xTicks)
	p.Y.Tick.Marker = plot.ConstantTicks(yTicks)
	p.X.Tick.Label.Rotation = 0.5
	p.X.Tick.Label.XAlign = -0.8

	if err := p.Save(plotHeight, plotHeight, path); err != nil {
		return errors.Wrapf(err, "report: saving %s", path)
	}
	return nil
}

// ROCSeries is one classifier's ROC curve with its area under the curve,
// drawn together with the others for comparison.
type ROCSeries struct {
	Name   string
	Points []metrics.ROCPoint
	AUC    float64
}

// SaveROCCurves overlays the given ROC curves on one plot with a diagonal
// chance line and writes it to path.
func SaveROCCurves(series []ROCSeries, title, path string) error {
	if len(series) == 0 {
		return errors.NewValueError("SaveROCCurves", "no curves to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "False positive rate"
	p.Y.Label.Text = "True positive rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	p.Legend.Top = false
	p.Legend.Left = false

	diag, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return errors.Wrap(err, "report: building chance line")
	}
	diag.LineStyle.Color = color.Gray{Y: 160}
	diag.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(diag)

	for i, s := range series {
		pts := make(plotter.XYs, len(s.Points))
		for j, pt := range s.Points {
			pts[j].X = pt.FPR
			pts[j].Y = pt.TPR
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return errors.Wrapf(err, "report: building ROC line for %q", s.Name)
		}
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("%s (AUC %.3f)", s.Name, s.AUC), line)
	}

	if err := p.Save(plotHeight, plotHeight, path); err != nil {
		return errors.Wrapf(err, "report: saving %s", path)
	}
	return nil
}
