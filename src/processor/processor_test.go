package processor

import (
	"RideAnalytics/src/dataset"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var header = []string{
	"Date", "Time", "Booking Status", "Vehicle Type", "Payment Method",
	"Booking Value", "Ride Distance", "Driver Ratings", "Customer Rating", "Avg VTAT", "Avg CTAT",
}

func bookings(t *testing.T, rows ...[]string) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.FromRecords(append([][]string{header}, rows...), nil)
	require.NoError(t, err)
	return ds
}

func sample(t *testing.T) *dataset.Dataset {
	return bookings(t,
		[]string{"2024-03-01", "08:10:00", "Completed", "Auto", "Cash", "100", "5", "4.0", "4.5", "6", "20"},
		[]string{"2024-03-01", "08:40:00", "Completed", "eBike", "UPI", "50.5", "2", "5.0", "", "4", "10"},
		[]string{"2024-03-02", "not-a-time", "Cancelled by Driver", "Auto", "UPI", "", "", "", "", "3", ""},
		[]string{"2024-02-28", "17:00:00", "Completed", "Go Sedan", "Cash", "300", "12", "3.0", "4.0", "8", "40"},
		[]string{"2024-03-02", "23:59:00", "Cancelled by Customer", "eBike", "Cash", "", "", "", "", "", ""},
		[]string{"garbage", "09:00:00", "No Driver Found", "Auto", "Cash", "", "", "", "", "", ""},
		[]string{"2024-03-02", "17:30:00", "Completed", "Auto", "Card", "", "7", "4.5", "5.0", "5", "25"},
	)
}

func all(ds *dataset.Dataset) *View {
	return AllOf(ds).Apply(ds)
}

func TestScenarioKPIs(t *testing.T) {
	ds := bookings(t,
		[]string{"2024-03-01", "10:00:00", "Completed", "Auto", "Cash", "100", "", "", "", "", ""},
		[]string{"2024-03-01", "11:00:00", "Completed", "Auto", "Cash", "200", "", "", "", "", ""},
		[]string{"2024-03-01", "12:00:00", "Cancelled by Driver", "Auto", "Cash", "", "", "", "", "", ""},
	)

	kpi := KPIs(all(ds))
	assert.Equal(t, 3, kpi.TotalBookings)
	assert.Equal(t, 2, kpi.CompletedRides)
	assert.True(t, decimal.NewFromInt(300).Equal(kpi.TotalRevenue), kpi.TotalRevenue.String())
}

func TestScenarioEmptySelection(t *testing.T) {
	ds := sample(t)
	v := Filter(ds, []string{"Bike"}, AllOf(ds).PaymentMethods)
	require.Equal(t, 0, v.Len())

	rep := NewPipeline().Run(v)
	assert.Equal(t, 0, rep.KPI.TotalBookings)
	assert.Equal(t, 0, rep.KPI.CompletedRides)
	assert.True(t, rep.KPI.TotalRevenue.IsZero())
	assert.Empty(t, rep.Status)
	assert.Empty(t, rep.Revenue)
	assert.Empty(t, rep.HourlyDemand)
	assert.Empty(t, rep.Cancellations)
	assert.Empty(t, rep.DailyRevenue)
	assert.Empty(t, rep.Omitted)

	require.NotNil(t, rep.Ratings)
	assert.False(t, rep.Ratings.Driver.Valid, "mean over zero rows has no value")
	assert.False(t, rep.Ratings.Customer.Valid)

	require.NotNil(t, rep.Correlation)
	for i := range rep.Correlation.Columns {
		for j := range rep.Correlation.Columns {
			_, ok := rep.Correlation.At(i, j)
			assert.False(t, ok)
		}
	}
}

func TestScenarioUnparsableTime(t *testing.T) {
	v := all(sample(t))
	rep := NewPipeline().Run(v)

	assert.Equal(t, 7, rep.KPI.TotalBookings, "row with bad time still counted")
	total := 0
	for _, h := range rep.HourlyDemand {
		total += h.Count
	}
	assert.Equal(t, 6, total)
}

func TestScenarioMissingRatings(t *testing.T) {
	ds, err := dataset.FromRecords([][]string{
		{"Date", "Time", "Booking Status", "Vehicle Type", "Payment Method", "Booking Value", "Customer Rating"},
		{"2024-03-01", "10:00:00", "Completed", "Auto", "Cash", "100", "4.5"},
		{"2024-03-02", "11:00:00", "Completed", "Auto", "UPI", "80", "4.0"},
	}, nil)
	require.NoError(t, err)

	v := all(ds)
	_, ok := RatingsComparison(v)
	assert.False(t, ok)

	rep := NewPipeline().Run(v)
	assert.Nil(t, rep.Ratings)
	assert.Equal(t, []string{AggRatings}, rep.Omitted)
	assert.True(t, rep.IsOmitted(AggRatings))
	assert.False(t, rep.IsOmitted(AggDailyRevenue))

	assert.Equal(t, 2, rep.KPI.CompletedRides)
	assert.Len(t, rep.DailyRevenue, 2)
	assert.Equal(t, []string{dataset.FieldBookingValue, dataset.FieldCustomerRating}, rep.Correlation.Columns)
}

func TestPipelineOmitsWithoutDateAndTime(t *testing.T) {
	ds, err := dataset.FromRecords([][]string{
		{"Booking Status", "Vehicle Type", "Payment Method", "Booking Value"},
		{"Completed", "Auto", "Cash", "100"},
	}, nil)
	require.NoError(t, err)

	rep := NewPipeline().Run(all(ds))
	assert.Equal(t, []string{AggHourlyDemand, AggRatings, AggDailyRevenue}, rep.Omitted)
	assert.Nil(t, rep.DailyRevenue)
	assert.Equal(t, 1, rep.KPI.TotalBookings)
}

func TestPipelineDeclaresRequirements(t *testing.T) {
	var names []string
	required := map[string][]string{}
	for _, agg := range NewPipeline().Aggregates() {
		names = append(names, agg.Name)
		if len(agg.Requires) > 0 {
			required[agg.Name] = agg.Requires
		}
	}
	assert.Equal(t, []string{
		AggKPIs, AggStatus, AggRevenue, AggCorrelation,
		AggHourlyDemand, AggCancellations, AggRatings, AggDailyRevenue,
	}, names)
	assert.Equal(t, map[string][]string{
		AggHourlyDemand: {dataset.FieldHour},
		AggRatings:      {dataset.FieldDriverRating, dataset.FieldCustomerRating},
		AggDailyRevenue: {dataset.FieldDate},
	}, required)
}

func TestFilter(t *testing.T) {
	ds := sample(t)

	t.Run("and across both sets", func(t *testing.T) {
		v := Filter(ds, []string{"Auto"}, []string{"Cash", "Card"})
		assert.Equal(t, 3, v.Len())
		for i := 0; i < v.Len(); i++ {
			assert.Equal(t, "Auto", v.Frame().Col(dataset.FieldVehicleType).Elem(i).String())
		}
	})

	t.Run("empty set selects nothing", func(t *testing.T) {
		assert.Equal(t, 0, Filter(ds, nil, []string{"Cash"}).Len())
		assert.Equal(t, 0, Filter(ds, []string{"Auto"}, []string{}).Len())
	})

	t.Run("order preserved", func(t *testing.T) {
		v := Filter(ds, []string{"Auto", "eBike"}, []string{"UPI", "Cash"})
		got := v.Frame().Col(dataset.FieldDate).Records()
		assert.Equal(t, []string{"2024-03-01", "2024-03-01", "2024-03-02", "2024-03-02", "NaN"}, got)
	})

	t.Run("dataset untouched", func(t *testing.T) {
		Filter(ds, []string{"Auto"}, []string{"Cash"})
		assert.Equal(t, 7, ds.Len())
	})

	t.Run("counts match membership", func(t *testing.T) {
		sel := AllOf(ds)
		for _, vt := range sel.VehicleTypes {
			for _, pm := range sel.PaymentMethods {
				want := 0
				vehicles := ds.Frame().Col(dataset.FieldVehicleType).Records()
				payments := ds.Frame().Col(dataset.FieldPaymentMethod).Records()
				for i := range vehicles {
					if vehicles[i] == vt && payments[i] == pm {
						want++
					}
				}
				assert.Equal(t, want, Filter(ds, []string{vt}, []string{pm}).Len(), vt+"/"+pm)
			}
		}
	})
}

func TestFilterSetMissingNeverMatches(t *testing.T) {
	ds := bookings(t,
		[]string{"2024-03-01", "10:00:00", "Completed", "", "Cash", "10", "", "", "", "", ""},
		[]string{"2024-03-01", "10:00:00", "Completed", "Auto", "Cash", "10", "", "", "", "", ""},
	)
	assert.Equal(t, 1, Filter(ds, []string{"Auto", ""}, []string{"Cash"}).Len())
}

func TestStatusDistribution(t *testing.T) {
	v := all(sample(t))
	got := StatusDistribution(v)
	want := []CategoryCount{
		{Label: "Completed", Count: 4},
		{Label: "Cancelled by Customer", Count: 1},
		{Label: "Cancelled by Driver", Count: 1},
		{Label: "No Driver Found", Count: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("StatusDistribution mismatch (-want +got):\n%s", diff)
	}

	sum := 0
	for _, c := range got {
		sum += c.Count
	}
	assert.Equal(t, KPIs(v).TotalBookings, sum)
}

func TestStatusDistributionMissingStatus(t *testing.T) {
	ds := bookings(t,
		[]string{"2024-03-01", "10:00:00", "", "Auto", "Cash", "10", "", "", "", "", ""},
		[]string{"2024-03-01", "10:00:00", "Completed", "Auto", "Cash", "10", "", "", "", "", ""},
	)
	got := StatusDistribution(all(ds))
	assert.Equal(t, []CategoryCount{{Label: StatusMissing, Count: 1}, {Label: "Completed", Count: 1}}, got)
}

func TestRevenueByVehicle(t *testing.T) {
	v := all(sample(t))
	got := RevenueByVehicle(v)

	require.Len(t, got, 3)
	assert.Equal(t, "Auto", got[0].Label)
	assert.Equal(t, "100", got[0].Amount.String(), "null values excluded, group kept")
	assert.Equal(t, "Go Sedan", got[1].Label)
	assert.Equal(t, "300", got[1].Amount.String())
	assert.Equal(t, "eBike", got[2].Label)
	assert.Equal(t, "50.5", got[2].Amount.String())

	total := decimal.Zero
	for _, g := range got {
		total = total.Add(g.Amount)
	}
	assert.True(t, total.Equal(KPIs(v).TotalRevenue))
}

func TestRevenueByVehicleSkipsVehiclesWithoutCompletedRides(t *testing.T) {
	ds := bookings(t,
		[]string{"2024-03-01", "10:00:00", "Cancelled by Driver", "Bike", "Cash", "10", "", "", "", "", ""},
		[]string{"2024-03-01", "10:00:00", "Completed", "Auto", "Cash", "10", "", "", "", "", ""},
	)
	got := RevenueByVehicle(all(ds))
	require.Len(t, got, 1)
	assert.Equal(t, "Auto", got[0].Label)
}

func TestCancellationsByVehicle(t *testing.T) {
	ds := bookings(t,
		[]string{"2024-03-01", "10:00:00", "Cancelled by Driver", "Auto", "Cash", "", "", "", "", "", ""},
		[]string{"2024-03-01", "10:00:00", "Cancelled by Customer", "Auto", "Cash", "", "", "", "", "", ""},
		[]string{"2024-03-01", "10:00:00", "cancelled", "eBike", "Cash", "", "", "", "", "", ""},
		[]string{"2024-03-01", "10:00:00", "Cancelled by Driver", "Bike", "Cash", "", "", "", "", "", ""},
		[]string{"2024-03-01", "10:00:00", "Completed", "eBike", "Cash", "5", "", "", "", "", ""},
	)
	got := CancellationsByVehicle(all(ds))
	assert.Equal(t, []CategoryCount{{Label: "Auto", Count: 2}, {Label: "Bike", Count: 1}}, got)
}

func TestIsCancelled(t *testing.T) {
	assert.True(t, IsCancelled("Cancelled by Driver"))
	assert.True(t, IsCancelled("Cancelled"))
	assert.False(t, IsCancelled("cancelled by driver"))
	assert.False(t, IsCancelled("Completed"))
}

func TestHourlyDemand(t *testing.T) {
	got := HourlyDemand(all(sample(t)))
	want := []HourCount{
		{Hour: 8, Count: 2},
		{Hour: 9, Count: 1},
		{Hour: 17, Count: 2},
		{Hour: 23, Count: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("HourlyDemand mismatch (-want +got):\n%s", diff)
	}
	for _, h := range got {
		assert.GreaterOrEqual(t, h.Hour, 0)
		assert.LessOrEqual(t, h.Hour, 23)
	}
}

func TestRatingsComparison(t *testing.T) {
	r, ok := RatingsComparison(all(sample(t)))
	require.True(t, ok)
	require.True(t, r.Driver.Valid)
	assert.InDelta(t, (4.0+5.0+3.0+4.5)/4, r.Driver.Float64, 1e-9)
	require.True(t, r.Customer.Valid)
	assert.InDelta(t, (4.5+4.0+5.0)/3, r.Customer.Float64, 1e-9)

	entries := r.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, dataset.FieldDriverRating, entries[0].Label)
	assert.Equal(t, dataset.FieldCustomerRating, entries[1].Label)
}

func TestDailyRevenueTrend(t *testing.T) {
	got, ok := DailyRevenueTrend(all(sample(t)))
	require.True(t, ok)

	var dates, amounts []string
	for _, d := range got {
		dates = append(dates, d.Date)
		amounts = append(amounts, d.Amount.String())
	}
	assert.Equal(t, []string{"2024-02-28", "2024-03-01", "2024-03-02"}, dates)
	assert.Equal(t, []string{"300", "150.5", "0"}, amounts)
}

func TestCorrelation(t *testing.T) {
	m := Correlation(all(sample(t)))
	require.Equal(t, dataset.NumericFields, m.Columns)

	n := len(m.Columns)
	for i := 0; i < n; i++ {
		d, ok := m.At(i, i)
		require.True(t, ok, m.Columns[i])
		assert.Equal(t, 1.0, d)
		for j := 0; j < n; j++ {
			a, aok := m.At(i, j)
			b, bok := m.At(j, i)
			assert.Equal(t, aok, bok)
			assert.Equal(t, a, b, "matrix is symmetric")
			if aok {
				assert.LessOrEqual(t, math.Abs(a), 1.0)
			}
		}
	}

	// Booking Value 与 Ride Distance 在完整行上同增
	r, ok := m.At(0, 1)
	require.True(t, ok)
	assert.Greater(t, r, 0.9)
}

func TestCorrelationZeroVariance(t *testing.T) {
	ds, err := dataset.FromRecords([][]string{
		{"Booking Status", "Vehicle Type", "Payment Method", "Booking Value", "Ride Distance"},
		{"Completed", "Auto", "Cash", "100", "5"},
		{"Completed", "Auto", "Cash", "200", "5"},
		{"Completed", "Auto", "Cash", "300", "5"},
	}, nil)
	require.NoError(t, err)

	m := Correlation(all(ds))
	require.Equal(t, []string{dataset.FieldBookingValue, dataset.FieldRideDistance}, m.Columns)

	d, ok := m.At(0, 0)
	assert.True(t, ok)
	assert.Equal(t, 1.0, d)

	_, ok = m.At(1, 1)
	assert.False(t, ok, "zero variance column has no self correlation")
	_, ok = m.At(0, 1)
	assert.False(t, ok)

	b, err := m.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"columns":["Booking Value","Ride Distance"],"values":[[1,null],[null,null]]}`, string(b))
}
