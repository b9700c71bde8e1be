package report

import (
	"RideAnalytics/src/dataset"
	"RideAnalytics/src/processor"
	"RideAnalytics/src/storage"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robfig/cron"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func fullDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.FromRecords([][]string{
		{"Date", "Time", "Booking Status", "Vehicle Type", "Payment Method", "Booking Value", "Ride Distance", "Driver Ratings", "Customer Rating"},
		{"2024-03-01", "08:10:00", "Completed", "Auto", "Cash", "100", "5", "4.0", "4.5"},
		{"2024-03-01", "09:40:00", "Completed", "eBike", "UPI", "200", "5", "", "4.0"},
		{"2024-03-02", "09:05:00", "Cancelled by Driver", "Auto", "UPI", "", "", "", ""},
	}, nil)
	require.NoError(t, err)
	return ds
}

func minimalDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.FromRecords([][]string{
		{"Booking Status", "Vehicle Type", "Payment Method", "Booking Value"},
		{"Completed", "Auto", "Cash", "100"},
	}, nil)
	require.NoError(t, err)
	return ds
}

func run(ds *dataset.Dataset) *processor.Report {
	return processor.NewPipeline().Run(processor.AllOf(ds).Apply(ds))
}

func TestWriteExcel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, WriteExcel(run(fullDataset(t)), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{
		processor.AggKPIs, processor.AggStatus, processor.AggRevenue, processor.AggCorrelation,
		processor.AggHourlyDemand, processor.AggCancellations, processor.AggRatings, processor.AggDailyRevenue,
	}, f.GetSheetList())

	cell := func(sheet, axis string) string {
		v, err := f.GetCellValue(sheet, axis)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "3", cell(processor.AggKPIs, "B2"))
	assert.Equal(t, "2", cell(processor.AggKPIs, "B3"))
	assert.Equal(t, "300", cell(processor.AggKPIs, "B4"))

	assert.Equal(t, "Completed", cell(processor.AggStatus, "A2"))
	assert.Equal(t, "2", cell(processor.AggStatus, "B2"))

	// Ride Distance 方差为零，相关系数留空
	assert.Equal(t, dataset.FieldRideDistance, cell(processor.AggCorrelation, "C1"))
	assert.Equal(t, "1", cell(processor.AggCorrelation, "B2"))
	assert.Equal(t, "", cell(processor.AggCorrelation, "C2"))
	assert.Equal(t, "", cell(processor.AggCorrelation, "C3"))

	assert.Equal(t, "9", cell(processor.AggHourlyDemand, "A3"))
	assert.Equal(t, "2", cell(processor.AggHourlyDemand, "B3"))

	assert.Equal(t, dataset.FieldDriverRating, cell(processor.AggRatings, "A2"))
	assert.Equal(t, "4", cell(processor.AggRatings, "B2"))

	assert.Equal(t, "2024-03-01", cell(processor.AggDailyRevenue, "A2"))
	assert.Equal(t, "300", cell(processor.AggDailyRevenue, "B2"))
}

func TestWriteExcelSkipsOmittedTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, WriteExcel(run(minimalDataset(t)), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.NotContains(t, sheets, processor.AggHourlyDemand)
	assert.NotContains(t, sheets, processor.AggRatings)
	assert.NotContains(t, sheets, processor.AggDailyRevenue)
	assert.Contains(t, sheets, processor.AggKPIs)
	assert.NotContains(t, sheets, "Sheet1")
}

func TestWritePNG(t *testing.T) {
	dir := t.TempDir()

	files, err := WritePNG(run(fullDataset(t)), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, HourlyDemandPNG), filepath.Join(dir, DailyRevenuePNG)}, files)
	for _, f := range files {
		info, err := os.Stat(f)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}

	files, err = WritePNG(run(minimalDataset(t)), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func newExporter(t *testing.T) *Exporter {
	t.Helper()
	logger, err := storage.NewLogger(filepath.Join(t.TempDir(), "app.log"))
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })

	e := NewExporter(fullDataset(t), t.TempDir(), logger)
	e.now = func() time.Time { return time.Date(2024, 3, 5, 14, 30, 0, 0, time.Local) }
	return e
}

func TestExporterExport(t *testing.T) {
	e := newExporter(t)

	out, err := e.Export()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(e.dir, "20240305143000"), out)

	for _, name := range []string{WorkbookName, HourlyDemandPNG, DailyRevenuePNG} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}
}

func TestExporterSchedule(t *testing.T) {
	e := newExporter(t)
	c := cron.New()

	require.NoError(t, e.Schedule(c, EverySpec(time.Hour)))
	assert.Len(t, c.Entries(), 1)

	assert.Error(t, e.Schedule(c, "not a cron spec"))
}

func TestEverySpec(t *testing.T) {
	assert.Equal(t, "@every 1h0m0s", EverySpec(time.Hour))
	assert.Equal(t, "@every 5m0s", EverySpec(5*time.Minute))
}
