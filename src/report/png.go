package report

import (
	"RideAnalytics/src/processor"
	"fmt"
	"path/filepath"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const (
	HourlyDemandPNG = "hourly_demand.png"
	DailyRevenuePNG = "daily_revenue.png"
)

// WritePNG 生成每小时需求柱状图和每日收入折线图，空表或被省略的表跳过
func WritePNG(rep *processor.Report, dir string) ([]string, error) {
	var files []string

	if len(rep.HourlyDemand) > 0 {
		file := filepath.Join(dir, HourlyDemandPNG)
		if err := plotHourlyDemand(rep.HourlyDemand, file); err != nil {
			return files, fmt.Errorf("hourly demand: %w", err)
		}
		files = append(files, file)
	}

	if len(rep.DailyRevenue) > 0 {
		file := filepath.Join(dir, DailyRevenuePNG)
		if err := plotDailyRevenue(rep.DailyRevenue, file); err != nil {
			return files, fmt.Errorf("daily revenue: %w", err)
		}
		files = append(files, file)
	}

	return files, nil
}

func plotHourlyDemand(hours []processor.HourCount, file string) error {
	p := plot.New()
	p.Title.Text = "Hourly Demand"
	p.X.Label.Text = "Hour"
	p.Y.Label.Text = "Bookings"

	values := make(plotter.Values, len(hours))
	labels := make([]string, len(hours))
	for i, h := range hours {
		values[i] = float64(h.Count)
		labels[i] = strconv.Itoa(h.Hour)
	}

	bars, err := plotter.NewBarChart(values, vg.Points(12))
	if err != nil {
		return err
	}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(labels...)

	return p.Save(10*vg.Inch, 4*vg.Inch, file)
}

func plotDailyRevenue(days []processor.DailyAmount, file string) error {
	p := plot.New()
	p.Title.Text = "Daily Revenue"
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Revenue"

	pts := make(plotter.XYs, len(days))
	labels := make([]string, len(days))
	for i, d := range days {
		pts[i] = plotter.XY{X: float64(i), Y: d.Amount.InexactFloat64()}
		labels[i] = d.Date
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Width = vg.Points(1)
	p.Add(line, plotter.NewGrid())
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = 0.8

	return p.Save(14*vg.Inch, 6*vg.Inch, file)
}
