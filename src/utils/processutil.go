package utils

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/xuri/excelize/v2"
)

func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// WriteSheet 写入表头和数据行，nil 单元格留空
func WriteSheet(f *excelize.File, sheetName string, header []string, rows [][]interface{}) error {
	if _, err := f.NewSheet(sheetName); err != nil {
		return fmt.Errorf("创建工作表 %s 失败: %w", sheetName, err)
	}

	for i, name := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, name); err != nil {
			return err
		}
	}

	for rowIdx, row := range rows {
		for colIdx, val := range row {
			if val == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellValue(sheetName, cell, val); err != nil {
				return err
			}
		}
	}
	return nil
}

// SaveToExcel 把 DataFrame 原样写入 Sheet1，缺失值留空
func SaveToExcel(df dataframe.DataFrame, filePath string) error {
	f := excelize.NewFile()
	defer f.Close()

	colNames := df.Names()
	rows := make([][]interface{}, df.Nrow())
	for rowIdx := range rows {
		row := make([]interface{}, len(colNames))
		for colIdx, colName := range colNames {
			el := df.Col(colName).Elem(rowIdx)
			if el.IsNA() {
				continue
			}
			row[colIdx] = el.Val()
		}
		rows[rowIdx] = row
	}

	if err := WriteSheet(f, "Sheet1", colNames, rows); err != nil {
		return err
	}

	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return nil
}
