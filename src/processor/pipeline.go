package processor

import (
	"RideAnalytics/src/dataset"
	"RideAnalytics/src/utils"
)

// 结果表名称，也用作导出的 sheet 名
const (
	AggKPIs          = "KPIs"
	AggStatus        = "Status"
	AggRevenue       = "RevenueByVehicle"
	AggCorrelation   = "Correlation"
	AggHourlyDemand  = "HourlyDemand"
	AggCancellations = "Cancellations"
	AggRatings       = "Ratings"
	AggDailyRevenue  = "DailyRevenue"
)

// Report 一次筛选对应的全部结果表，被省略的表为 nil 并记录在 Omitted
type Report struct {
	Selection     Selection          `json:"selection"`
	KPI           KPI                `json:"kpi"`
	Status        []CategoryCount    `json:"status"`
	Revenue       []CategoryAmount   `json:"revenue_by_vehicle"`
	Correlation   *CorrelationMatrix `json:"correlation"`
	HourlyDemand  []HourCount        `json:"hourly_demand"`
	Cancellations []CategoryCount    `json:"cancellations"`
	Ratings       *Ratings           `json:"ratings"`
	DailyRevenue  []DailyAmount      `json:"daily_revenue"`
	Omitted       []string           `json:"omitted"`
}

// IsOmitted 该结果表是否因缺少列被跳过
func (r *Report) IsOmitted(name string) bool {
	return utils.Contains(r.Omitted, name)
}

// Aggregate 一个结果表及其依赖的列；依赖不满足时整个表被省略
type Aggregate struct {
	Name     string
	Requires []string
	run      func(v *View, rep *Report)
}

// Pipeline 按顺序计算全部结果表
type Pipeline struct {
	aggregates []Aggregate
}

func NewPipeline() *Pipeline {
	return &Pipeline{aggregates: []Aggregate{
		{Name: AggKPIs, run: func(v *View, rep *Report) { rep.KPI = KPIs(v) }},
		{Name: AggStatus, run: func(v *View, rep *Report) { rep.Status = StatusDistribution(v) }},
		{Name: AggRevenue, run: func(v *View, rep *Report) { rep.Revenue = RevenueByVehicle(v) }},
		{Name: AggCorrelation, run: func(v *View, rep *Report) { rep.Correlation = Correlation(v) }},
		{
			Name:     AggHourlyDemand,
			Requires: []string{dataset.FieldHour},
			run:      func(v *View, rep *Report) { rep.HourlyDemand = HourlyDemand(v) },
		},
		{Name: AggCancellations, run: func(v *View, rep *Report) { rep.Cancellations = CancellationsByVehicle(v) }},
		{
			Name:     AggRatings,
			Requires: []string{dataset.FieldDriverRating, dataset.FieldCustomerRating},
			run:      func(v *View, rep *Report) { rep.Ratings, _ = RatingsComparison(v) },
		},
		{
			Name:     AggDailyRevenue,
			Requires: []string{dataset.FieldDate},
			run:      func(v *View, rep *Report) { rep.DailyRevenue, _ = DailyRevenueTrend(v) },
		},
	}}
}

// Aggregates 返回声明的结果表（只读）
func (p *Pipeline) Aggregates() []Aggregate {
	out := make([]Aggregate, len(p.aggregates))
	copy(out, p.aggregates)
	return out
}

// Run 对视图计算全部结果表；空视图不报错，各表退化为空或零值
func (p *Pipeline) Run(v *View) *Report {
	rep := &Report{Omitted: []string{}}
	schema := v.Schema()
	for _, agg := range p.aggregates {
		if !schema.Has(agg.Requires...) {
			rep.Omitted = append(rep.Omitted, agg.Name)
			continue
		}
		agg.run(v, rep)
	}
	return rep
}
