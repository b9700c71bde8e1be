// data.go
package processor

import (
	"RideAnalytics/src/dataset"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// View 数据集按筛选条件得到的只读子集
type View struct {
	df     dataframe.DataFrame
	schema dataset.Schema
}

func (v *View) Len() int                   { return v.df.Nrow() }
func (v *View) Schema() dataset.Schema     { return v.schema }
func (v *View) Frame() dataframe.DataFrame { return v.df }

// Selection 当前的筛选参数
type Selection struct {
	VehicleTypes   []string `json:"vehicle_types"`
	PaymentMethods []string `json:"payment_methods"`
}

// AllOf 选中数据集里出现过的全部车型和支付方式
func AllOf(ds *dataset.Dataset) Selection {
	return Selection{
		VehicleTypes:   ds.Distinct(dataset.FieldVehicleType),
		PaymentMethods: ds.Distinct(dataset.FieldPaymentMethod),
	}
}

func (s Selection) Apply(ds *dataset.Dataset) *View {
	return Filter(ds, s.VehicleTypes, s.PaymentMethods)
}

// FilterSet 分类取值的包含集合，空集合不匹配任何行
type FilterSet map[string]struct{}

func NewFilterSet(values ...string) FilterSet {
	fs := make(FilterSet, len(values))
	for _, v := range values {
		fs[v] = struct{}{}
	}
	return fs
}

// Match 缺失值永不匹配
func (fs FilterSet) Match(el series.Element) bool {
	if el.IsNA() {
		return false
	}
	_, ok := fs[el.String()]
	return ok
}

// Filter 选出车型属于 vehicleTypes 且支付方式属于 paymentMethods 的行，保持原有顺序
func Filter(ds *dataset.Dataset, vehicleTypes, paymentMethods []string) *View {
	vehicles := NewFilterSet(vehicleTypes...)
	payments := NewFilterSet(paymentMethods...)

	df := ds.Frame().Filter(
		dataframe.F{
			Colname:    dataset.FieldVehicleType,
			Comparator: series.CompFunc,
			Comparando: func(el series.Element) bool {
				return vehicles.Match(el)
			},
		},
	).Filter(
		dataframe.F{
			Colname:    dataset.FieldPaymentMethod,
			Comparator: series.CompFunc,
			Comparando: func(el series.Element) bool {
				return payments.Match(el)
			},
		},
	)

	return &View{df: df, schema: ds.Schema()}
}

// restrict 在视图内再按条件筛选
func (v *View) restrict(field string, match func(el series.Element) bool) *View {
	return &View{
		df: v.df.Filter(dataframe.F{
			Colname:    field,
			Comparator: series.CompFunc,
			Comparando: match,
		}),
		schema: v.schema,
	}
}

func (v *View) completed() *View {
	return v.restrict(dataset.FieldBookingStatus, func(el series.Element) bool {
		return !el.IsNA() && el.String() == StatusCompleted
	})
}

func (v *View) cancelled() *View {
	return v.restrict(dataset.FieldBookingStatus, func(el series.Element) bool {
		return !el.IsNA() && IsCancelled(el.String())
	})
}
