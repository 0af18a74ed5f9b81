// Package report renders an HTML overview of loaded datasets with
// go-echarts: a 3D scatter of sample positions, frame population over time
// and per-track length against mean radius.
package report

import (
	"bytes"
	"fmt"

	"github.com/banshee-data/ptview/internal/fsutil"
	"github.com/banshee-data/ptview/internal/monitoring"
	"github.com/banshee-data/ptview/internal/trajectory"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"
)

// MaxScatterPoints caps the 3D scatter; larger datasets are strided.
const MaxScatterPoints = 20000

// Name returns "<base>_report.html".
func Name(base string) string {
	return base + "_report.html"
}

// Build assembles the report page for the given datasets.
func Build(datasets ...*trajectory.Dataset) *components.Page {
	page := components.NewPage()
	page.SetPageTitle("Trajectory report")
	page.AddCharts(positions(datasets), population(datasets), tracks(datasets))
	return page
}

// Write renders the report to path on fsys.
func Write(fsys fsutil.FileSystem, path string, datasets ...*trajectory.Dataset) error {
	var buf bytes.Buffer
	if err := Build(datasets...).Render(&buf); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	monitoring.Logf("[report] wrote %s", path)
	return nil
}

func positions(datasets []*trajectory.Dataset) *charts.Scatter3D {
	total := 0
	for _, ds := range datasets {
		total += ds.Len()
	}
	stride := 1
	if total > MaxScatterPoints {
		stride = total/MaxScatterPoints + 1
	}

	c := charts.NewScatter3D()
	c.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: "Sample positions", Subtitle: fmt.Sprintf("samples=%d stride=%d", total, stride)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxis3DOpts(opts.XAxis3D{Name: "x", Show: opts.Bool(true)}),
		charts.WithYAxis3DOpts(opts.YAxis3D{Name: "y", Show: opts.Bool(true)}),
		charts.WithZAxis3DOpts(opts.ZAxis3D{Name: "z", Show: opts.Bool(true)}),
	)
	for _, ds := range datasets {
		samples := ds.Samples()
		data := make([]opts.Chart3DData, 0, len(samples)/stride+1)
		for i := 0; i < len(samples); i += stride {
			s := samples[i]
			data = append(data, opts.Chart3DData{Value: []interface{}{s.Position.X, s.Position.Y, s.Position.Z}})
		}
		c.AddSeries(ds.Name(), data)
	}
	return c
}

func population(datasets []*trajectory.Dataset) *charts.Line {
	c := charts.NewLine()
	c.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Samples per frame"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "t"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "samples"}),
	)
	for _, ds := range datasets {
		data := make([]opts.LineData, 0, ds.FrameCount())
		for _, t := range ds.Timeline() {
			data = append(data, opts.LineData{Value: []interface{}{t, len(ds.SelectFrame(t))}})
		}
		c.AddSeries(ds.Name(), data)
	}
	return c
}

func tracks(datasets []*trajectory.Dataset) *charts.Scatter {
	c := charts.NewScatter()
	c.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Tracks", Subtitle: "samples per track against mean radius"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "samples"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "mean radius"}),
	)
	for _, ds := range datasets {
		data := make([]opts.ScatterData, 0, ds.TrackCount())
		for _, id := range ds.TrackIDs() {
			track, err := ds.SelectTrack(id)
			if err != nil {
				continue
			}
			radii := make([]float64, len(track))
			for i, s := range track {
				radii[i] = s.Radius
			}
			data = append(data, opts.ScatterData{
				Name:  fmt.Sprintf("tid %d", id),
				Value: []interface{}{len(track), stat.Mean(radii, nil)},
			})
		}
		c.AddSeries(ds.Name(), data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	}
	return c
}
