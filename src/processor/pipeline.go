// pipeline.go
package processor

import (
	"fmt"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"CustomerProfiling/src/config"
	"CustomerProfiling/src/dataset"
	"CustomerProfiling/src/storage"
)

// 入选特征表的最低订单数
// 只有一单的客户频率和首末单间隔无意义, 整行剔除
const MinOrders = 2

// Pipeline 特征表流水线
// 持有一次运行的只读源表、虚拟日期和数据配置;
// Run是(源表, 虚拟日期, 降维映射) -> 特征表的纯函数, 运行间无共享状态
type Pipeline struct {
	tables      *dataset.Tables
	virtualDate time.Time // 零值时回退到订单表最大下单时间
	dcfg        *config.DataConfig
	logger      *storage.Logger
}

func NewPipeline(tables *dataset.Tables, virtualDate time.Time, dcfg *config.DataConfig, logger *storage.Logger) *Pipeline {
	return &Pipeline{
		tables:      tables,
		virtualDate: virtualDate,
		dcfg:        dcfg,
		logger:      logger,
	}
}

func (p *Pipeline) logf(format string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Info(fmt.Sprintf(format, args...))
	}
}

// Run 依次执行各阶段并组装最终特征表
// 行序按唯一客户id升序, 相同输入重复运行结果完全一致
func (p *Pipeline) Run() (dataframe.DataFrame, error) {
	t1 := time.Now()

	// 1. 确定虚拟日期并截断排序
	virtualDate := ResolveVirtualDate(p.tables.Orders, p.virtualDate)
	if virtualDate.IsZero() {
		return dataframe.DataFrame{}, fmt.Errorf("订单表为空, 无法确定虚拟日期")
	}
	filtered := FilterAndSort(p.tables.Orders, virtualDate)
	p.logf("虚拟日期 %s, 截断后订单 %d 条", virtualDate.Format("2006-01-02"), len(filtered))

	// 2. 构建客户到订单的链接索引
	index := BuildOrderIndex(filtered, p.tables.Customers)
	customerIDs := index.CustomersWithMinOrders(MinOrders)
	p.logf("订单数不少于 %d 的客户 %d 个", MinOrders, len(customerIDs))

	// 3. 逐客户聚合
	agg := NewAggregator(p.tables, filtered, virtualDate)
	rows := make([]CustomerFeatures, 0, len(customerIDs))
	for _, uniqueID := range customerIDs {
		rows = append(rows, agg.Aggregate(uniqueID, index.OrdersOf(uniqueID)))
	}

	// 4. 类别翻译、降维与支付方式重命名
	for i := range rows {
		english := TranslateCategory(rows[i].FavouriteCategory, p.tables.Translation)
		rows[i].FavouriteCategoryOut = ReduceCategory(english, p.dcfg.ReduceCategories)
		if rows[i].FavouritePaymentType != "" {
			rows[i].FavouritePaymentType = p.dcfg.RenamePayment(rows[i].FavouritePaymentType)
		}
	}

	// 5. 缺失值策略
	FillRates(rows)
	FillAverageDeliveryTime(rows)

	// 6. 组装特征表, 中间列不进入输出
	df := assemble(rows)
	p.logf("特征表 %d 行 %d 列, 耗时 %v", df.Nrow(), df.Ncol(), time.Since(t1))

	return df, nil
}

// assemble 将聚合行组装为DataFrame
// 指示列集合由本次观察到的取值决定, 列名即取值本身
func assemble(rows []CustomerFeatures) dataframe.DataFrame {
	n := len(rows)
	ids := make([]string, n)
	nbOrders := make([]int, n)
	sinceFirst := make([]int, n)
	sinceLast := make([]int, n)
	freq := make([]float64, n)
	sumOrders := make([]float64, n)
	nbReviews := make([]int, n)
	avgReview := make([]float64, n)
	avgDelivery := make([]float64, n)
	delayRate := make([]float64, n)
	advanceRate := make([]float64, n)
	cancelRate := make([]float64, n)
	categories := make([]string, n)
	payments := make([]string, n)

	for i, row := range rows {
		ids[i] = row.UniqueID
		nbOrders[i] = row.NbOrders
		sinceFirst[i] = row.DaysSinceFirstOrder
		sinceLast[i] = row.DaysSinceLastOrder
		freq[i] = row.Frequency
		sumOrders[i] = row.SumOrders
		nbReviews[i] = row.NbReviews
		avgReview[i] = row.AverageReviewScore
		avgDelivery[i] = row.AverageDeliveryTime
		delayRate[i] = row.DelayRate
		advanceRate[i] = row.AdvanceRate
		cancelRate[i] = row.CancelationRate
		categories[i] = row.FavouriteCategoryOut
		payments[i] = row.FavouritePaymentType
	}

	columns := []series.Series{
		series.New(ids, series.String, "customer_unique_id"),
		series.New(nbOrders, series.Int, "nb_orders"),
		series.New(sinceFirst, series.Int, "days_since_first_order"),
		series.New(sinceLast, series.Int, "days_since_last_order"),
		series.New(freq, series.Float, "frequency"),
		series.New(sumOrders, series.Float, "sum_orders"),
		series.New(nbReviews, series.Int, "nb_reviews"),
		series.New(avgReview, series.Float, "average_review_score"),
		series.New(avgDelivery, series.Float, "average_delivery_time"),
		series.New(delayRate, series.Float, "delay_rate"),
		series.New(advanceRate, series.Float, "advance_rate"),
		series.New(cancelRate, series.Float, "cancelation_rate"),
	}

	// 类别与支付方式的one-hot指示列
	for _, values := range [][]string{categories, payments} {
		vocab := Vocabulary(values)
		indicators := OneHot(values, vocab)
		for _, label := range vocab {
			columns = append(columns, series.New(indicators[label], series.Int, label))
		}
	}

	return dataframe.New(columns...)
}
