// Package chart renders decoded archive datasets as self-contained HTML
// dashboards for quick visual inspection of a spot's wind history.
package chart

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kitewatch/wind-archive/internal/domain"
)

const timeLabelLayout = "02.01 15:04"

// Render writes an HTML dashboard for the dataset: a wind chart (speed and
// gusts) and, when temperature data exists, a temperature chart.
func Render(w io.Writer, record domain.FetchRecord, dataset domain.Dataset) error {
	if dataset.Len() == 0 {
		return fmt.Errorf("dataset %s has no points to chart", record.ID)
	}

	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("Spot %d archive", record.SpotID)
	page.AddCharts(windChart(record, dataset))

	if hasTemperature(dataset) {
		page.AddCharts(temperatureChart(dataset))
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render chart page: %w", err)
	}
	return nil
}

// WriteFile renders the dashboard into dir as <fetch-id>.html and returns the
// written path.
func WriteFile(dir string, record domain.FetchRecord, dataset domain.Dataset) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create chart directory: %w", err)
	}

	path := filepath.Join(dir, record.ID+".html")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create chart file: %w", err)
	}
	defer f.Close()

	if err := Render(f, record, dataset); err != nil {
		return "", err
	}
	return path, nil
}

func windChart(record domain.FetchRecord, dataset domain.Dataset) *charts.Line {
	// Subtitle shows the decoded range, which can be narrower than the
	// requested one when the archive had gaps at either end.
	from, to := dataset.Range()

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("Wind, spot %d model %d", record.SpotID, record.ModelID),
			Subtitle: fmt.Sprintf("%s to %s, %dh step",
				from.Format("02.01.2006 15:04"), to.Format("02.01.2006 15:04"), record.StepHours),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "knots"}),
	)

	line.SetXAxis(timeLabels(dataset))
	line.AddSeries("Wind speed", seriesData(dataset, func(p domain.DataPoint) *float64 {
		return p.WindSpeed
	}))

	if hasGusts(dataset) {
		line.AddSeries("Wind gusts", seriesData(dataset, func(p domain.DataPoint) *float64 {
			return p.WindGust
		}))
	}

	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	return line
}

func temperatureChart(dataset domain.Dataset) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Temperature"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "°C"}),
	)

	line.SetXAxis(timeLabels(dataset))
	line.AddSeries("Temperature", seriesData(dataset, func(p domain.DataPoint) *float64 {
		return p.Temperature
	}))
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	return line
}

func timeLabels(dataset domain.Dataset) []string {
	labels := make([]string, 0, dataset.Len())
	for _, p := range dataset.Points {
		labels = append(labels, p.Timestamp.Format(timeLabelLayout))
	}
	return labels
}

// seriesData maps one field across the points. Missing values become nil so
// the chart shows gaps instead of zeros.
func seriesData(dataset domain.Dataset, field func(domain.DataPoint) *float64) []opts.LineData {
	data := make([]opts.LineData, 0, dataset.Len())
	for _, p := range dataset.Points {
		if v := field(p); v != nil {
			data = append(data, opts.LineData{Value: *v})
		} else {
			data = append(data, opts.LineData{Value: nil})
		}
	}
	return data
}

func hasGusts(dataset domain.Dataset) bool {
	for _, p := range dataset.Points {
		if p.WindGust != nil {
			return true
		}
	}
	return false
}

func hasTemperature(dataset domain.Dataset) bool {
	for _, p := range dataset.Points {
		if p.Temperature != nil {
			return true
		}
	}
	return false
}
