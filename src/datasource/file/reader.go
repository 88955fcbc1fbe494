// reader.go
package file

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"CustomerProfiling/src/config"
)

// 快照中的逻辑表名
const (
	TableOrders      = "orders"
	TableOrderItems  = "order_items"
	TableProducts    = "products"
	TableCustomers   = "customers"
	TableReviews     = "reviews"
	TablePayments    = "payments"
	TableTranslation = "category_translation"
)

// Snapshot 一次运行所需的全部源表, 均为只读的字符串DataFrame
type Snapshot struct {
	Orders      dataframe.DataFrame
	OrderItems  dataframe.DataFrame
	Products    dataframe.DataFrame
	Customers   dataframe.DataFrame
	Reviews     dataframe.DataFrame
	Payments    dataframe.DataFrame
	Translation dataframe.DataFrame
}

// LoadSnapshot 按DataConfig中的文件名映射加载全部源表
// 文件扩展名决定读取方式(.csv或.xlsx)
func LoadSnapshot(dataDir string, dcfg *config.DataConfig, latin1 bool) (*Snapshot, error) {
	tables := make(map[string]dataframe.DataFrame)

	for _, table := range []string{
		TableOrders, TableOrderItems, TableProducts,
		TableCustomers, TableReviews, TablePayments, TableTranslation,
	} {
		filename := dcfg.TableFile(table)
		if filename == "" {
			return nil, fmt.Errorf("表 %s 未配置快照文件", table)
		}

		df, err := ReadTable(filepath.Join(dataDir, filename), latin1)
		if err != nil {
			return nil, fmt.Errorf("加载表 %s 失败: %w", table, err)
		}
		tables[table] = df
	}

	return &Snapshot{
		Orders:      tables[TableOrders],
		OrderItems:  tables[TableOrderItems],
		Products:    tables[TableProducts],
		Customers:   tables[TableCustomers],
		Reviews:     tables[TableReviews],
		Payments:    tables[TablePayments],
		Translation: tables[TableTranslation],
	}, nil
}

// ReadTable 按扩展名读取单个快照文件
func ReadTable(filePath string, latin1 bool) (dataframe.DataFrame, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".csv":
		return ReadCSVToDataFrame(filePath, latin1)
	case ".xlsx":
		return ReadXLSXToDataFrame(filePath, "")
	default:
		return dataframe.DataFrame{}, fmt.Errorf("不支持的快照格式: %s", filePath)
	}
}

// ReadCSVToDataFrame 读取CSV为字符串DataFrame
// latin1为真时先转换Latin-1编码(葡萄牙语类别标签的旧导出)
func ReadCSVToDataFrame(filePath string, latin1 bool) (dataframe.DataFrame, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("打开CSV文件失败: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if latin1 {
		r = transform.NewReader(f, charmap.ISO8859_1.NewDecoder())
	}

	// 所有列保持字符串类型, 时间和数值由dataset层解析
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Error() != nil {
		return dataframe.DataFrame{}, fmt.Errorf("解析CSV失败: %w", df.Error())
	}

	return df, nil
}

func ReadXLSXToDataFrame(filePath, sheetName string) (dataframe.DataFrame, error) {
	// 1. 使用tealeg/xlsx打开Excel文件
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("xlsx open file false: %w", err)
	}

	// 2. 获取目标工作表, 未指定时取第一个
	if len(xlFile.Sheets) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("excel文件中没有工作表")
	}
	sheet := xlFile.Sheets[0]
	if sheetName != "" {
		s, ok := xlFile.Sheet[sheetName]
		if !ok {
			return dataframe.DataFrame{}, fmt.Errorf("工作表 %s 不存在", sheetName)
		}
		sheet = s
	}

	// 3. 转换为Gota DataFrame
	return convertSheetToDataFrame(sheet)
}

// convertSheetToDataFrame 将xlsx.Sheet转换为dataframe.DataFrame
func convertSheetToDataFrame(sheet *xlsx.Sheet) (dataframe.DataFrame, error) {
	if len(sheet.Rows) < 2 {
		return dataframe.DataFrame{}, fmt.Errorf("工作表行数不足")
	}

	// 获取列名(第一行是标题行)
	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, cell.String())
	}

	// 准备数据列
	columns := make([][]string, len(headers))
	for i := range columns {
		columns[i] = make([]string, 0, len(sheet.Rows)-1)
	}

	// 填充数据(从第二行开始)
	for _, row := range sheet.Rows[1:] {
		for i := range headers {
			if i < len(row.Cells) {
				columns[i] = append(columns[i], row.Cells[i].String())
			} else {
				columns[i] = append(columns[i], "")
			}
		}
	}

	// 创建Series切片
	seriesList := make([]series.Series, len(headers))
	for i, colName := range headers {
		seriesList[i] = series.New(columns[i], series.String, colName)
	}

	return dataframe.New(seriesList...), nil
}
