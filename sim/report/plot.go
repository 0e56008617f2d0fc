package report

import (
	"fmt"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/smartcache-sim/smartcache-sim/sim"
	"github.com/smartcache-sim/smartcache-sim/sim/optimize"
)

// SizeTicks labels a log-scaled size axis at the given byte counts.
type SizeTicks struct {
	Sizes []int64
}

func (t SizeTicks) Ticks(min, max float64) []plot.Tick {
	ticks := make([]plot.Tick, 0, len(t.Sizes))
	for _, size := range t.Sizes {
		ticks = append(ticks, plot.Tick{Value: float64(size), Label: sim.FormatBytes(size)})
	}
	return ticks
}

// PlotPareto draws every evaluation of h as a scatter and the Pareto
// frontier as a step line, with size on a log axis. Writes a PNG to path.
func PlotPareto(title string, h *optimize.History, path string) error {
	records := h.Records()
	if len(records) == 0 {
		return fmt.Errorf("plotting %s: empty history", title)
	}

	all := make(plotter.XYs, len(records))
	sizeSet := map[int64]bool{}
	for i, r := range records {
		all[i] = plotter.XY{X: float64(r.Config.SizeBytes()), Y: r.MissRate}
		sizeSet[r.Config.SizeBytes()] = true
	}
	frontier := ParetoFrontier(h)
	front := make(plotter.XYs, len(frontier))
	for i, p := range frontier {
		front[i] = plotter.XY{X: float64(p.SizeBytes), Y: p.MissRate}
	}
	sizes := make([]int64, 0, len(sizeSet))
	for s := range sizeSet {
		sizes = append(sizes, s)
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i] < sizes[j] })

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Cache Size"
	p.Y.Label.Text = "Miss Rate"
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = SizeTicks{Sizes: sizes}
	p.Y.Min = 0

	scatter, err := plotter.NewScatter(all)
	if err != nil {
		return fmt.Errorf("plotting %s: %w", title, err)
	}
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	scatter.GlyphStyle.Color = plotutil.Color(0)

	line, points, err := plotter.NewLinePoints(front)
	if err != nil {
		return fmt.Errorf("plotting %s: %w", title, err)
	}
	line.StepStyle = plotter.PostStep
	line.Color = plotutil.Color(1)
	points.Shape = draw.BoxGlyph{}
	points.Color = plotutil.Color(1)

	p.Add(scatter, line, points)
	p.Legend.Add("evaluated", scatter)
	p.Legend.Add("pareto frontier", line, points)
	p.Legend.Top = true

	if err := p.Save(20*vg.Centimeter, 14*vg.Centimeter, path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

// PlotConvergence draws the running-best miss rate per evaluation for each
// workload. Writes a PNG to path.
func PlotConvergence(curves map[string][]float64, path string) error {
	if len(curves) == 0 {
		return fmt.Errorf("plotting convergence: no curves")
	}
	names := make([]string, 0, len(curves))
	for name := range curves {
		names = append(names, name)
	}
	sort.Strings(names)

	p := plot.New()
	p.Title.Text = "Optimization Convergence"
	p.X.Label.Text = "Evaluation"
	p.Y.Label.Text = "Best Miss Rate"
	p.Y.Min = 0

	for i, name := range names {
		curve := curves[name]
		xys := make(plotter.XYs, len(curve))
		for j, v := range curve {
			xys[j] = plotter.XY{X: float64(j + 1), Y: v}
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("plotting convergence for %s: %w", name, err)
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i)
		p.Add(line)
		p.Legend.Add(name, line)
	}

	if err := p.Save(20*vg.Centimeter, 14*vg.Centimeter, path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}
