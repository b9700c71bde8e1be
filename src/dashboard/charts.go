package dashboard

import (
	"RideAnalytics/src/processor"
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// noValue echarts 把 "-" 当作空数据点
const noValue = "-"

func initOpts(title string) charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "420px"})
}

// renderPage 把报表渲染成一个 go-echarts 页面
func renderPage(rep *processor.Report, w io.Writer) error {
	page := components.NewPage()
	page.PageTitle = "Ride Bookings"
	page.SetLayout(components.PageFlexLayout)

	page.AddCharts(
		statusChart(rep),
		revenueChart(rep),
		correlationChart(rep),
	)
	if !rep.IsOmitted(processor.AggHourlyDemand) {
		page.AddCharts(hourlyChart(rep))
	}
	page.AddCharts(cancellationChart(rep))
	if rep.Ratings != nil {
		page.AddCharts(ratingsChart(rep))
	}
	if !rep.IsOmitted(processor.AggDailyRevenue) {
		page.AddCharts(dailyRevenueChart(rep))
	}

	return page.Render(w)
}

func kpiSubtitle(k processor.KPI) string {
	return fmt.Sprintf("Total Bookings %d | Completed Rides %d | Total Revenue %s",
		k.TotalBookings, k.CompletedRides, k.TotalRevenue.StringFixed(2))
}

func countBar(title, subtitle string, counts []processor.CategoryCount) *charts.Bar {
	x := make([]string, len(counts))
	y := make([]opts.BarData, len(counts))
	for i, c := range counts {
		x[i] = c.Label
		y[i] = opts.BarData{Value: c.Count}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts(title),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("count", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

func statusChart(rep *processor.Report) *charts.Bar {
	return countBar("Booking Status", kpiSubtitle(rep.KPI), rep.Status)
}

func cancellationChart(rep *processor.Report) *charts.Bar {
	return countBar("Cancellations by Vehicle Type", "", rep.Cancellations)
}

func revenueChart(rep *processor.Report) *charts.Bar {
	x := make([]string, len(rep.Revenue))
	y := make([]opts.BarData, len(rep.Revenue))
	for i, r := range rep.Revenue {
		x[i] = r.Label
		y[i] = opts.BarData{Value: r.Amount.InexactFloat64()}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts("Revenue by Vehicle Type"),
		charts.WithTitleOpts(opts.Title{Title: "Revenue by Vehicle Type", Subtitle: "completed rides"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).AddSeries("revenue", y)
	return bar
}

// correlationData 热力图数据点，无值的系数用 "-"
func correlationData(m *processor.CorrelationMatrix) []opts.HeatMapData {
	data := make([]opts.HeatMapData, 0, len(m.Columns)*len(m.Columns))
	for i := range m.Columns {
		for j := range m.Columns {
			var v interface{} = noValue
			if r, ok := m.At(i, j); ok {
				v = strconv.FormatFloat(r, 'f', 2, 64)
			}
			data = append(data, opts.HeatMapData{Value: [3]interface{}{j, i, v}})
		}
	}
	return data
}

func correlationChart(rep *processor.Report) *charts.HeatMap {
	m := rep.Correlation
	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		initOpts("Correlation"),
		charts.WithTitleOpts(opts.Title{Title: "Correlation Matrix"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: m.Columns, SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: m.Columns, SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        -1,
			Max:        1,
			InRange:    &opts.VisualMapInRange{Color: []string{"#313695", "#f7f7f7", "#a50026"}},
		}),
	)
	hm.AddSeries("pearson", correlationData(m),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true)}),
	)
	return hm
}

func hourlyChart(rep *processor.Report) *charts.Line {
	x := make([]string, len(rep.HourlyDemand))
	y := make([]opts.LineData, len(rep.HourlyDemand))
	for i, h := range rep.HourlyDemand {
		x[i] = strconv.Itoa(h.Hour)
		y[i] = opts.LineData{Value: h.Count}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		initOpts("Hourly Demand"),
		charts.WithTitleOpts(opts.Title{Title: "Hourly Demand"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Hour"}),
	)
	line.SetXAxis(x).AddSeries("bookings", y)
	return line
}

func ratingsChart(rep *processor.Report) *charts.Bar {
	entries := rep.Ratings.Entries()
	x := make([]string, len(entries))
	y := make([]opts.BarData, len(entries))
	for i, e := range entries {
		x[i] = e.Label
		var v interface{} = noValue
		if e.Mean.Valid {
			v = strconv.FormatFloat(e.Mean.Float64, 'f', 2, 64)
		}
		y[i] = opts.BarData{Value: v}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts("Ratings"),
		charts.WithTitleOpts(opts.Title{Title: "Average Ratings"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 5}),
	)
	bar.SetXAxis(x).
		AddSeries("mean", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

func dailyRevenueChart(rep *processor.Report) *charts.Line {
	x := make([]string, len(rep.DailyRevenue))
	y := make([]opts.LineData, len(rep.DailyRevenue))
	for i, d := range rep.DailyRevenue {
		x[i] = d.Date
		y[i] = opts.LineData{Value: d.Amount.InexactFloat64()}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		initOpts("Daily Revenue"),
		charts.WithTitleOpts(opts.Title{Title: "Daily Revenue Trend"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)
	line.SetXAxis(x).AddSeries("revenue", y)
	return line
}
