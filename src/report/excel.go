package report

import (
	"RideAnalytics/src/processor"
	"RideAnalytics/src/utils"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// sheet 一张结果表对应的工作表
type sheet struct {
	name   string
	header []string
	rows   [][]interface{}
}

// WriteExcel 每个结果表写成一个工作表，被省略的表不生成工作表，无值的单元格留空
func WriteExcel(rep *processor.Report, path string) error {
	f, err := newWorkbook(rep)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("保存报表 %s 失败: %w", path, err)
	}
	return nil
}

// WriteExcelTo 与 WriteExcel 相同，写入 w
func WriteExcelTo(rep *processor.Report, w io.Writer) error {
	f, err := newWorkbook(rep)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("写出报表失败: %w", err)
	}
	return nil
}

func newWorkbook(rep *processor.Report) (*excelize.File, error) {
	f := excelize.NewFile()

	sheets := buildSheets(rep)
	for _, s := range sheets {
		if err := utils.WriteSheet(f, s.name, s.header, s.rows); err != nil {
			f.Close()
			return nil, err
		}
	}

	// KPIs 总是存在，替换默认的 Sheet1
	idx, err := f.GetSheetIndex(sheets[0].name)
	if err == nil {
		f.SetActiveSheet(idx)
		err = f.DeleteSheet("Sheet1")
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// buildSheets 按结果表顺序生成工作表内容
func buildSheets(rep *processor.Report) []sheet {
	var out []sheet

	out = append(out, sheet{
		name:   processor.AggKPIs,
		header: []string{"Metric", "Value"},
		rows: [][]interface{}{
			{"Total Bookings", rep.KPI.TotalBookings},
			{"Completed Rides", rep.KPI.CompletedRides},
			{"Total Revenue", rep.KPI.TotalRevenue.InexactFloat64()},
		},
	})

	out = append(out, countSheet(processor.AggStatus, "Booking Status", rep.Status))

	revenue := sheet{name: processor.AggRevenue, header: []string{"Vehicle Type", "Revenue"}}
	for _, r := range rep.Revenue {
		revenue.rows = append(revenue.rows, []interface{}{r.Label, r.Amount.InexactFloat64()})
	}
	out = append(out, revenue)

	if m := rep.Correlation; m != nil {
		corr := sheet{name: processor.AggCorrelation, header: append([]string{""}, m.Columns...)}
		for i, c := range m.Columns {
			row := []interface{}{c}
			for j := range m.Columns {
				if v, ok := m.At(i, j); ok {
					row = append(row, v)
				} else {
					row = append(row, nil)
				}
			}
			corr.rows = append(corr.rows, row)
		}
		out = append(out, corr)
	}

	if !rep.IsOmitted(processor.AggHourlyDemand) {
		hourly := sheet{name: processor.AggHourlyDemand, header: []string{"Hour", "Bookings"}}
		for _, h := range rep.HourlyDemand {
			hourly.rows = append(hourly.rows, []interface{}{h.Hour, h.Count})
		}
		out = append(out, hourly)
	}

	out = append(out, countSheet(processor.AggCancellations, "Vehicle Type", rep.Cancellations))

	if rep.Ratings != nil {
		ratings := sheet{name: processor.AggRatings, header: []string{"Rating", "Mean"}}
		for _, e := range rep.Ratings.Entries() {
			var mean interface{}
			if e.Mean.Valid {
				mean = e.Mean.Float64
			}
			ratings.rows = append(ratings.rows, []interface{}{e.Label, mean})
		}
		out = append(out, ratings)
	}

	if !rep.IsOmitted(processor.AggDailyRevenue) {
		daily := sheet{name: processor.AggDailyRevenue, header: []string{"Date", "Revenue"}}
		for _, d := range rep.DailyRevenue {
			daily.rows = append(daily.rows, []interface{}{d.Date, d.Amount.InexactFloat64()})
		}
		out = append(out, daily)
	}

	return out
}

func countSheet(name, label string, counts []processor.CategoryCount) sheet {
	s := sheet{name: name, header: []string{label, "Count"}}
	for _, c := range counts {
		s.rows = append(s.rows, []interface{}{c.Label, c.Count})
	}
	return s
}
