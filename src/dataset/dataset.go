// Package dataset 加载订单数据并规范化为 gota DataFrame。
//
// 加载结果在进程内只计算一次，之后所有调用方读取同一份 Dataset。
package dataset

import (
	"RideAnalytics/src/config"
	"RideAnalytics/src/datasource/file"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// 规范字段名
const (
	FieldDate           = "Date"
	FieldTime           = "Time"
	FieldHour           = "Hour" // 由 Time 派生
	FieldVehicleType    = "Vehicle Type"
	FieldPaymentMethod  = "Payment Method"
	FieldBookingStatus  = "Booking Status"
	FieldBookingValue   = "Booking Value"
	FieldRideDistance   = "Ride Distance"
	FieldDriverRating   = "Driver Ratings"
	FieldCustomerRating = "Customer Rating"
	FieldAvgVTAT        = "Avg VTAT"
	FieldAvgCTAT        = "Avg CTAT"
)

const DateLayout = "2006-01-02"

// ErrDataUnavailable 数据源缺失、不可读或缺少必需列，启动时致命
var ErrDataUnavailable = errors.New("booking data unavailable")

var (
	requiredFields = []string{FieldVehicleType, FieldPaymentMethod, FieldBookingStatus, FieldBookingValue}
	categoryFields = []string{FieldVehicleType, FieldPaymentMethod, FieldBookingStatus}

	// NumericFields 参与相关性分析的数值列，顺序即矩阵顺序
	NumericFields = []string{FieldBookingValue, FieldRideDistance, FieldDriverRating, FieldCustomerRating, FieldAvgVTAT, FieldAvgCTAT}

	fieldOrder = []string{
		FieldDate, FieldTime, FieldHour,
		FieldVehicleType, FieldPaymentMethod, FieldBookingStatus,
		FieldBookingValue, FieldRideDistance, FieldDriverRating, FieldCustomerRating, FieldAvgVTAT, FieldAvgCTAT,
	}

	dateLayouts = []string{
		DateLayout,
		"2006/01/02",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"01/02/2006",
		"1/2/2006",
	}

	timeLayouts = []string{
		"15:04:05",
		"15:04",
		"15:04:05.000",
		"3:04:05 PM",
		"3:04 PM",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		time.RFC3339,
	}
)

// Schema 加载时确定的可用字段集合
type Schema struct {
	fields map[string]struct{}
}

func newSchema(fields ...string) Schema {
	s := Schema{fields: make(map[string]struct{}, len(fields))}
	for _, f := range fields {
		s.fields[f] = struct{}{}
	}
	return s
}

// Has 所有字段都存在时返回 true
func (s Schema) Has(fields ...string) bool {
	for _, f := range fields {
		if _, ok := s.fields[f]; !ok {
			return false
		}
	}
	return true
}

// Fields 按规范顺序返回可用字段
func (s Schema) Fields() []string {
	out := make([]string, 0, len(s.fields))
	for _, f := range fieldOrder {
		if _, ok := s.fields[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// ParseStats 逐行解析失败的计数，失败的单元格已置为缺失值
type ParseStats struct {
	BadDates  int
	BadTimes  int
	BadValues int
}

// Dataset 只读的订单数据集
type Dataset struct {
	source string
	df     dataframe.DataFrame
	schema Schema
	stats  ParseStats
}

func (d *Dataset) Source() string    { return d.source }
func (d *Dataset) Len() int          { return d.df.Nrow() }
func (d *Dataset) Schema() Schema    { return d.schema }
func (d *Dataset) Stats() ParseStats { return d.stats }

// Frame 返回底层 DataFrame，gota 的操作均返回新值，不会修改数据集
func (d *Dataset) Frame() dataframe.DataFrame { return d.df }

// Distinct 返回某列去重后的取值，保持首次出现顺序，缺失值不计入
func (d *Dataset) Distinct(field string) []string {
	if !d.schema.Has(field) {
		return nil
	}
	col := d.df.Col(field)
	seen := make(map[string]struct{})
	var out []string
	for i := 0; i < col.Len(); i++ {
		el := col.Elem(i)
		if el.IsNA() {
			continue
		}
		v := el.String()
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Option 加载选项
type Option func(*options)

type options struct {
	sheet    string
	encoding string
	columns  config.ColumnMap
}

// WithSheet 指定xlsx工作表
func WithSheet(name string) Option { return func(o *options) { o.sheet = name } }

// WithEncoding 指定csv编码
func WithEncoding(enc string) Option { return func(o *options) { o.encoding = enc } }

// WithColumns 指定列名映射
func WithColumns(cm config.ColumnMap) Option { return func(o *options) { o.columns = cm } }

// Loader 对一个数据源只读取一次
type Loader struct {
	path string
	opts []Option

	once sync.Once
	ds   *Dataset
	err  error
}

func NewLoader(path string, opts ...Option) *Loader {
	return &Loader{path: path, opts: opts}
}

// Load 第一次调用读取并解析数据源，之后返回同一个结果
func (l *Loader) Load() (*Dataset, error) {
	l.once.Do(func() {
		l.ds, l.err = read(l.path, l.opts...)
	})
	return l.ds, l.err
}

var (
	defaultOnce   sync.Once
	defaultLoader *Loader
)

// Load 进程级的数据集，参数只在第一次调用时生效
func Load(path string, opts ...Option) (*Dataset, error) {
	defaultOnce.Do(func() {
		defaultLoader = NewLoader(path, opts...)
	})
	return defaultLoader.Load()
}

func read(path string, opts ...Option) (*Dataset, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	raw, err := file.ReadTable(path, o.sheet, o.encoding)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	ds, err := Parse(raw, o.columns)
	if err != nil {
		return nil, err
	}
	ds.source = path
	return ds, nil
}

// Parse 将原始字符串表规范化为 Dataset
func Parse(raw dataframe.DataFrame, columns config.ColumnMap) (*Dataset, error) {
	if raw.Err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, raw.Err)
	}

	names := make(map[string]struct{}, raw.Ncol())
	for _, n := range raw.Names() {
		names[n] = struct{}{}
	}
	source := func(field string) (string, bool) {
		col := columns.GetColumn(field)
		_, ok := names[col]
		return col, ok
	}

	var missing []string
	for _, f := range requiredFields {
		if _, ok := source(f); !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %s", ErrDataUnavailable, strings.Join(missing, ", "))
	}

	var (
		cols    []series.Series
		present []string
		stats   ParseStats
	)

	if col, ok := source(FieldDate); ok {
		records, bad := normalizeDates(raw.Col(col).Records())
		stats.BadDates = bad
		cols = append(cols, series.New(records, series.String, FieldDate))
		present = append(present, FieldDate)
	}

	if col, ok := source(FieldTime); ok {
		records := raw.Col(col).Records()
		hours, bad := deriveHours(records)
		stats.BadTimes = bad
		cols = append(cols,
			series.New(records, series.String, FieldTime),
			series.New(hours, series.Int, FieldHour),
		)
		present = append(present, FieldTime, FieldHour)
	}

	for _, f := range categoryFields {
		col, _ := source(f)
		cols = append(cols, series.New(raw.Col(col).Records(), series.String, f))
		present = append(present, f)
	}

	for _, f := range NumericFields {
		col, ok := source(f)
		if !ok {
			continue
		}
		records, bad := normalizeNumbers(raw.Col(col).Records())
		stats.BadValues += bad
		cols = append(cols, series.New(records, series.Float, f))
		present = append(present, f)
	}

	df := dataframe.New(cols...)
	if df.Err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, df.Err)
	}

	return &Dataset{
		df:     df,
		schema: newSchema(present...),
		stats:  stats,
	}, nil
}

func isNA(s string) bool {
	s = strings.TrimSpace(s)
	for _, na := range file.NaNValues {
		if s == na {
			return true
		}
	}
	return false
}

// ParseDate 解析日期，失败返回 false
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if isNA(s) {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseHour 解析时刻并取小时，失败返回 false，不会默认为 0
func ParseHour(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if isNA(s) {
		return 0, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour(), true
		}
	}
	return 0, false
}

func normalizeDates(records []string) ([]string, int) {
	out := make([]string, len(records))
	bad := 0
	for i, r := range records {
		t, ok := ParseDate(r)
		if !ok {
			out[i] = "NaN"
			if !isNA(r) {
				bad++
			}
			continue
		}
		out[i] = t.Format(DateLayout)
	}
	return out, bad
}

func deriveHours(records []string) ([]string, int) {
	out := make([]string, len(records))
	bad := 0
	for i, r := range records {
		h, ok := ParseHour(r)
		if !ok {
			out[i] = "NaN"
			if !isNA(r) {
				bad++
			}
			continue
		}
		out[i] = strconv.Itoa(h)
	}
	return out, bad
}

func normalizeNumbers(records []string) ([]string, int) {
	out := make([]string, len(records))
	bad := 0
	for i, r := range records {
		if isNA(r) {
			out[i] = "NaN"
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(r), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			out[i] = "NaN"
			bad++
			continue
		}
		out[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return out, bad
}

// FromRecords 由首行为表头的字符串记录构造 Dataset，不经过文件读取
func FromRecords(records [][]string, columns config.ColumnMap) (*Dataset, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no header", ErrDataUnavailable)
	}
	headers := records[0]
	cols := make([]series.Series, len(headers))
	for j, h := range headers {
		values := make([]string, 0, len(records)-1)
		for _, row := range records[1:] {
			v := "NaN"
			if j < len(row) && !isNA(row[j]) {
				v = row[j]
			}
			values = append(values, v)
		}
		cols[j] = series.New(values, series.String, h)
	}
	return Parse(dataframe.New(cols...), columns)
}
