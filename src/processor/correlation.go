package processor

import (
	"RideAnalytics/src/dataset"
	"encoding/json"
	"math"

	"gonum.org/v1/gonum/stat"
)

// CorrelationMatrix 数值列两两 Pearson 相关系数，NaN 表示无值
type CorrelationMatrix struct {
	Columns []string
	Values  [][]float64
}

// At 返回 (i, j) 处的系数，无值时 ok 为 false
func (m *CorrelationMatrix) At(i, j int) (float64, bool) {
	v := m.Values[i][j]
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func (m *CorrelationMatrix) MarshalJSON() ([]byte, error) {
	values := make([][]*float64, len(m.Values))
	for i, row := range m.Values {
		values[i] = make([]*float64, len(row))
		for j := range row {
			if v, ok := m.At(i, j); ok {
				values[i][j] = &v
			}
		}
	}
	return json.Marshal(struct {
		Columns []string     `json:"columns"`
		Values  [][]*float64 `json:"values"`
	}{m.Columns, values})
}

// Correlation 对存在的数值列计算相关矩阵，每一对只使用两列都有值的行
func Correlation(v *View) *CorrelationMatrix {
	var (
		columns []string
		data    [][]float64
		present [][]bool
	)
	for _, f := range dataset.NumericFields {
		if !v.schema.Has(f) {
			continue
		}
		col := v.df.Col(f)
		xs := make([]float64, col.Len())
		ok := make([]bool, col.Len())
		for i := range xs {
			xs[i], ok[i] = floatAt(col, i)
		}
		columns = append(columns, f)
		data = append(data, xs)
		present = append(present, ok)
	}

	n := len(columns)
	m := &CorrelationMatrix{Columns: columns, Values: make([][]float64, n)}
	for i := range m.Values {
		m.Values[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		m.Values[i][i] = selfCorrelation(data[i], present[i])
		for j := i + 1; j < n; j++ {
			r := pairwise(data[i], present[i], data[j], present[j])
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m
}

func selfCorrelation(xs []float64, ok []bool) float64 {
	var vals []float64
	for i, x := range xs {
		if ok[i] {
			vals = append(vals, x)
		}
	}
	if len(vals) < 2 || stat.Variance(vals, nil) == 0 {
		return math.NaN()
	}
	return 1
}

func pairwise(xs []float64, xok []bool, ys []float64, yok []bool) float64 {
	var x, y []float64
	for i := range xs {
		if xok[i] && yok[i] {
			x = append(x, xs[i])
			y = append(y, ys[i])
		}
	}
	if len(x) < 2 {
		return math.NaN()
	}
	if stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		return math.NaN()
	}
	r := stat.Correlation(x, y, nil)
	// 浮点误差可能略超出 [-1, 1]
	return math.Max(-1, math.Min(1, r))
}
