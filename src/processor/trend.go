package processor

import (
	"RideAnalytics/src/dataset"
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"
)

// HourCount 每小时订单数
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// RatingMean 评分均值
type RatingMean struct {
	Label string    `json:"label"`
	Mean  NullFloat `json:"mean"`
}

// Ratings 司机评分与乘客评分对比
type Ratings struct {
	Driver   NullFloat
	Customer NullFloat
}

// Entries 两行的对比表
func (r *Ratings) Entries() []RatingMean {
	return []RatingMean{
		{Label: dataset.FieldDriverRating, Mean: r.Driver},
		{Label: dataset.FieldCustomerRating, Mean: r.Customer},
	}
}

func (r *Ratings) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Entries())
}

// DailyAmount 某天的完成订单收入
type DailyAmount struct {
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// HourlyDemand 按派生小时计数，小时缺失的行不计入，按小时升序
func HourlyDemand(v *View) []HourCount {
	if !v.schema.Has(dataset.FieldHour) {
		return []HourCount{}
	}
	col := v.df.Col(dataset.FieldHour)

	var counts [24]int
	for i := 0; i < col.Len(); i++ {
		el := col.Elem(i)
		if el.IsNA() {
			continue
		}
		h, err := el.Int()
		if err != nil || h < 0 || h > 23 {
			continue
		}
		counts[h]++
	}

	out := []HourCount{}
	for h, n := range counts {
		if n > 0 {
			out = append(out, HourCount{Hour: h, Count: n})
		}
	}
	return out
}

// RatingsComparison 两个评分列都存在时返回各自均值，否则省略
func RatingsComparison(v *View) (*Ratings, bool) {
	if !v.schema.Has(dataset.FieldDriverRating, dataset.FieldCustomerRating) {
		return nil, false
	}
	return &Ratings{
		Driver:   mean(v, dataset.FieldDriverRating),
		Customer: mean(v, dataset.FieldCustomerRating),
	}, true
}

func mean(v *View, field string) NullFloat {
	col := v.df.Col(field)
	var (
		sum float64
		n   int
	)
	for i := 0; i < col.Len(); i++ {
		if f, ok := floatAt(col, i); ok {
			sum += f
			n++
		}
	}
	if n == 0 {
		return NullFloat{}
	}
	return NullFloat{Float64: sum / float64(n), Valid: true}
}

// DailyRevenueTrend 完成订单按日期汇总收入，按日期升序；没有日期列时省略
func DailyRevenueTrend(v *View) ([]DailyAmount, bool) {
	if !v.schema.Has(dataset.FieldDate) {
		return nil, false
	}
	done := v.completed()
	date := done.df.Col(dataset.FieldDate)
	value := done.df.Col(dataset.FieldBookingValue)

	sums := make(map[string]decimal.Decimal)
	for i := 0; i < date.Len(); i++ {
		el := date.Elem(i)
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

	out := make([]DailyAmount, 0, len(sums))
	for d, amount := range sums {
		out = append(out, DailyAmount{Date: d, Amount: amount})
	}
	// DateLayout 的字典序即日期顺序
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, true
}
