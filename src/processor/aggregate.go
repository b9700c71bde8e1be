package processor

import (
	"RideAnalytics/src/dataset"
	"encoding/json"
	"sort"
	"strings"

	"github.com/go-gota/gota/series"
	"github.com/shopspring/decimal"
)

const (
	StatusCompleted = "Completed"
	cancelledMarker = "Cancelled"

	// StatusMissing 状态为空的订单在分布中的标签，保证计数之和等于订单总数
	StatusMissing = "(missing)"
)

// IsCancelled 状态里包含 "Cancelled" 即为取消，区分大小写
func IsCancelled(status string) bool {
	return strings.Contains(status, cancelledMarker)
}

// KPI 概览指标
type KPI struct {
	TotalBookings  int             `json:"total_bookings"`
	CompletedRides int             `json:"completed_rides"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
}

// CategoryCount 分类计数
type CategoryCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// CategoryAmount 分类金额合计
type CategoryAmount struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// NullFloat 可能无值的浮点数，零行求均值等情况 Valid 为 false
type NullFloat struct {
	Float64 float64
	Valid   bool
}

func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float64)
}

// KPIs 订单总数、完成数、完成订单收入
func KPIs(v *View) KPI {
	status := v.df.Col(dataset.FieldBookingStatus)
	value := v.df.Col(dataset.FieldBookingValue)

	kpi := KPI{TotalBookings: v.Len(), TotalRevenue: decimal.Zero}
	for i := 0; i < status.Len(); i++ {
		el := status.Elem(i)
		if el.IsNA() || el.String() != StatusCompleted {
			continue
		}
		kpi.CompletedRides++
		if amount, ok := amountAt(value, i); ok {
			kpi.TotalRevenue = kpi.TotalRevenue.Add(amount)
		}
	}
	return kpi
}

// StatusDistribution 各订单状态出现次数，按次数降序
func StatusDistribution(v *View) []CategoryCount {
	out := countBy(v.df.Col(dataset.FieldBookingStatus), StatusMissing)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// RevenueByVehicle 完成订单按车型汇总收入，没有完成订单的车型不出现
func RevenueByVehicle(v *View) []CategoryAmount {
	done := v.completed()
	vehicle := done.df.Col(dataset.FieldVehicleType)
	value := done.df.Col(dataset.FieldBookingValue)

	sums := make(map[string]decimal.Decimal)
	for i := 0; i < vehicle.Len(); i++ {
		el := vehicle.Elem(i)
		if el.IsNA() {
			continue
		}
		key := el.String()
		sum, ok := sums[key]
		if !ok {
			sum = decimal.Zero
		}
		if amount, ok := amountAt(value, i); ok {
			sum = sum.Add(amount)
		}
		sums[key] = sum
	}

	out := make([]CategoryAmount, 0, len(sums))
	for label, amount := range sums {
		out = append(out, CategoryAmount{Label: label, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// CancellationsByVehicle 取消订单按车型计数
func CancellationsByVehicle(v *View) []CategoryCount {
	out := countBy(v.cancelled().df.Col(dataset.FieldVehicleType), "")
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// countBy 按取值计数，naLabel 为空时跳过缺失值
func countBy(col series.Series, naLabel string) []CategoryCount {
	counts := make(map[string]int)
	for i := 0; i < col.Len(); i++ {
		el := col.Elem(i)
		switch {
		case !el.IsNA():
			counts[el.String()]++
		case naLabel != "":
			counts[naLabel]++
		}
	}
	out := make([]CategoryCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, CategoryCount{Label: label, Count: n})
	}
	return out
}

func floatAt(col series.Series, i int) (float64, bool) {
	el := col.Elem(i)
	if el.IsNA() {
		return 0, false
	}
	return el.Float(), true
}

func amountAt(col series.Series, i int) (decimal.Decimal, bool) {
	f, ok := floatAt(col, i)
	if !ok {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}
