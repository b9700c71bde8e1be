// reader.go
package file

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// NaNValues 视为缺失值的单元格内容
var NaNValues = []string{"", "NA", "N/A", "NaN", "nan", "null", "NULL", "None", "<nil>"}

var ErrUnsupportedFormat = errors.New("unsupported file format")

// ReadTable 按扩展名读取 csv 或 xlsx，所有列均为字符串列，缺失值为 NA
func ReadTable(filePath, sheetName, encoding string) (dataframe.DataFrame, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".csv", ".txt":
		return ReadCSV(filePath, encoding)
	case ".xlsx":
		return ReadXLSX(filePath, sheetName)
	default:
		return dataframe.New(), fmt.Errorf("%s: %w", filePath, ErrUnsupportedFormat)
	}
}

// ReadCSV 读取csv文件到DataFrame
func ReadCSV(filePath, encoding string) (dataframe.DataFrame, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return dataframe.New(), fmt.Errorf("failed to open csv file: %w", err)
	}
	defer f.Close()

	r, err := charsetReader(encoding, f)
	if err != nil {
		return dataframe.New(), err
	}

	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(NaNValues),
	)
	if df.Err != nil {
		return dataframe.New(), fmt.Errorf("failed to parse csv file %s: %w", filePath, df.Err)
	}
	return df, nil
}

// charsetReader 字符集转换器
// 支持GBK/GB2312/GB18030转UTF-8，UTF-8 去掉 BOM
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
		return transform.NewReader(input, unicode.BOMOverride(unicode.UTF8.NewDecoder())), nil
	case "gbk", "gb2312":
		return transform.NewReader(input, simplifiedchinese.GBK.NewDecoder()), nil
	case "gb18030":
		return transform.NewReader(input, simplifiedchinese.GB18030.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", charset)
	}
}

// ReadXLSX 读取xlsx工作表，sheetName 为空时取第一个工作表
func ReadXLSX(filePath, sheetName string) (dataframe.DataFrame, error) {

	// 1. 使用tealeg/xlsx打开Excel文件
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return dataframe.New(), fmt.Errorf("xlsx open file false: %w", err)
	}

	// 2. 获取工作表
	if len(xlFile.Sheets) == 0 {
		return dataframe.New(), fmt.Errorf("excel文件中没有工作表: %s", filePath)
	}
	sheet := xlFile.Sheets[0]
	if sheetName != "" {
		s, ok := xlFile.Sheet[sheetName]
		if !ok {
			return dataframe.New(), fmt.Errorf("excel文件中没有工作表 %s", sheetName)
		}
		sheet = s
	}

	// 3. 转换为Gota DataFrame
	return convertSheetToDataFrame(sheet)
}

// convertSheetToDataFrame 将xlsx.Sheet转换为dataframe.DataFrame
func convertSheetToDataFrame(sheet *xlsx.Sheet) (dataframe.DataFrame, error) {
	if len(sheet.Rows) == 0 {
		return dataframe.New(), fmt.Errorf("sheet %s has no rows", sheet.Name)
	}

	// 第一行是标题行
	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, strings.TrimSpace(cell.String()))
	}
	if len(headers) == 0 {
		return dataframe.New(), fmt.Errorf("sheet %s has no header", sheet.Name)
	}

	columns := make([][]string, len(headers))
	for i := range columns {
		columns[i] = make([]string, 0, len(sheet.Rows)-1)
	}

	// 填充数据(从第二行开始)，短行补缺失值
	for _, row := range sheet.Rows[1:] {
		if row == nil {
			continue
		}
		for i := range headers {
			value := ""
			if i < len(row.Cells) && row.Cells[i] != nil {
				value = row.Cells[i].String()
			}
			columns[i] = append(columns[i], normalizeCell(value))
		}
	}

	seriesList := make([]series.Series, len(headers))
	for i, colName := range headers {
		seriesList[i] = series.New(columns[i], series.String, colName)
	}

	df := dataframe.New(seriesList...)
	if df.Err != nil {
		return dataframe.New(), fmt.Errorf("sheet %s: %w", sheet.Name, df.Err)
	}
	return df, nil
}

func normalizeCell(value string) string {
	value = strings.TrimSpace(value)
	for _, na := range NaNValues {
		if value == na {
			return "NaN"
		}
	}
	return value
}
