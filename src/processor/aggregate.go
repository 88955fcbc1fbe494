// aggregate.go
package processor

import (
	"math"
	"time"

	"CustomerProfiling/src/dataset"
)

// 每月平均天数, 用于订单频率折算
const daysPerMonth = 365.25 / 12

const canceledStatus = "canceled"
const deliveredStatus = "delivered"

// CustomerFeatures 单个客户的聚合结果
// 数值字段以NaN表示未定义, 由缺失值策略或下游处理
type CustomerFeatures struct {
	UniqueID             string
	NbOrders             int
	DaysSinceFirstOrder  int
	DaysSinceLastOrder   int
	Frequency            float64 // 月均订单数, 同日重复下单时未定义
	SumOrders            float64
	FavouriteCategory    string // 源语言类别, 空串表示无已知类别
	FavouriteCategoryOut string // 翻译降维后的类别, 编码阶段填写
	NbReviews            int
	AverageReviewScore   float64 // 无评价时未定义
	FavouritePaymentType string  // 重命名后的支付方式, 空串表示无支付记录
	AverageDeliveryTime  float64 // 单位天, 无已签收订单时未定义
	DelayRate            float64 // 无已签收订单时未定义
	AdvanceRate          float64 // 无已签收订单时未定义
	CancelationRate      float64
}

// Aggregator 持有聚合所需的查找表, 对每个客户行独立执行
type Aggregator struct {
	orders          map[string]*dataset.Order
	itemsByOrder    map[string][]dataset.OrderItem
	productCategory map[string]string
	reviewsByOrder  map[string][]dataset.Review
	paymentsByOrder map[string][]string
	virtualDate     time.Time
}

// NewAggregator 从过滤排序后的订单表和其余源表构建查找索引
func NewAggregator(tables *dataset.Tables, filtered []dataset.Order, virtualDate time.Time) *Aggregator {
	orders := make(map[string]*dataset.Order, len(filtered))
	for i := range filtered {
		orders[filtered[i].ID] = &filtered[i]
	}

	itemsByOrder := make(map[string][]dataset.OrderItem, len(tables.Items))
	for _, item := range tables.Items {
		itemsByOrder[item.OrderID] = append(itemsByOrder[item.OrderID], item)
	}

	productCategory := make(map[string]string, len(tables.Products))
	for _, product := range tables.Products {
		productCategory[product.ID] = product.Category
	}

	reviewsByOrder := make(map[string][]dataset.Review, len(tables.Reviews))
	for _, review := range tables.Reviews {
		reviewsByOrder[review.OrderID] = append(reviewsByOrder[review.OrderID], review)
	}

	paymentsByOrder := make(map[string][]string, len(tables.Payments))
	for _, payment := range tables.Payments {
		paymentsByOrder[payment.OrderID] = append(paymentsByOrder[payment.OrderID], payment.Type)
	}

	return &Aggregator{
		orders:          orders,
		itemsByOrder:    itemsByOrder,
		productCategory: productCategory,
		reviewsByOrder:  reviewsByOrder,
		paymentsByOrder: paymentsByOrder,
		virtualDate:     virtualDate,
	}
}

// Aggregate 计算单个客户的全部特征
// orderIDs为链接阶段产出, 已按下单时间升序
func (a *Aggregator) Aggregate(uniqueID string, orderIDs []string) CustomerFeatures {
	row := CustomerFeatures{
		UniqueID: uniqueID,
		NbOrders: len(orderIDs),
	}

	row.DaysSinceFirstOrder, row.DaysSinceLastOrder = a.daysSinceOrders(orderIDs)
	row.Frequency = frequency(row.NbOrders, row.DaysSinceFirstOrder)
	row.SumOrders = a.sumOrders(orderIDs)
	row.FavouriteCategory = a.favouriteCategory(orderIDs)
	row.NbReviews, row.AverageReviewScore = a.reviewStats(orderIDs)
	row.FavouritePaymentType = a.favouritePayment(orderIDs)
	row.AverageDeliveryTime, row.DelayRate, row.AdvanceRate = a.deliveryStats(orderIDs)
	row.CancelationRate = a.cancelationRate(orderIDs)

	return row
}

// daysSinceOrders 距首单和末单的天数, 过滤阶段保证两者均非负
func (a *Aggregator) daysSinceOrders(orderIDs []string) (sinceFirst, sinceLast int) {
	first := a.orders[orderIDs[0]]
	last := a.orders[orderIDs[len(orderIDs)-1]]

	sinceFirst = int(a.virtualDate.Sub(first.PurchaseTS).Hours() / 24)
	sinceLast = int(a.virtualDate.Sub(last.PurchaseTS).Hours() / 24)
	return sinceFirst, sinceLast
}

// frequency 首单至虚拟日期之间的月均订单数
// 首单在虚拟日期当天时分母为0, 返回未定义而不是除零
func frequency(nbOrders, daysSinceFirst int) float64 {
	if daysSinceFirst == 0 {
		return math.NaN()
	}
	return float64(nbOrders) / float64(daysSinceFirst) * daysPerMonth
}

// sumOrders 客户全部订单明细金额之和
// 不按订单状态过滤: 该指标反映消费意愿而非履约结果
func (a *Aggregator) sumOrders(orderIDs []string) float64 {
	var sum float64
	for _, orderID := range orderIDs {
		for _, item := range a.itemsByOrder[orderID] {
			if !math.IsNaN(item.Price) {
				sum += item.Price
			}
		}
	}
	return sum
}

// favouriteCategory 购买次数最多的商品类别(源语言)
// 无已知类别的商品不计数, 全部未知时返回空串
func (a *Aggregator) favouriteCategory(orderIDs []string) string {
	counts := make(map[string]int)
	for _, orderID := range orderIDs {
		for _, item := range a.itemsByOrder[orderID] {
			category := a.productCategory[item.ProductID]
			if category == "" {
				continue
			}
			counts[category]++
		}
	}
	return mostFrequent(counts)
}

// reviewStats 评价数量和平均分, 无评价时平均分未定义
func (a *Aggregator) reviewStats(orderIDs []string) (int, float64) {
	var count int
	var sum float64
	for _, orderID := range orderIDs {
		for _, review := range a.reviewsByOrder[orderID] {
			count++
			sum += review.Score
		}
	}

	if count == 0 {
		return 0, math.NaN()
	}
	return count, sum / float64(count)
}

// favouritePayment 最常用的支付方式, 无支付记录时返回空串
func (a *Aggregator) favouritePayment(orderIDs []string) string {
	counts := make(map[string]int)
	for _, orderID := range orderIDs {
		for _, paymentType := range a.paymentsByOrder[orderID] {
			if paymentType == "" {
				continue
			}
			counts[paymentType]++
		}
	}
	return mostFrequent(counts)
}

// deliveryStats 平均配送时长(天)、延误率、提前率
// 仅统计状态为delivered的订单; 一个已签收订单都没有时三项均未定义
// 时效字段未定义的订单在各自比率的分母中剔除, 不按0处理
func (a *Aggregator) deliveryStats(orderIDs []string) (avgDays, delayRate, advanceRate float64) {
	var delivered, delayed, inAdvance int
	var timed, withDelay int
	var totalDelivery time.Duration

	for _, orderID := range orderIDs {
		order := a.orders[orderID]
		if order.Status != deliveredStatus {
			continue
		}
		delivered++

		if order.HasDeliveryTime {
			timed++
			totalDelivery += order.DeliveryTime
		}
		if order.HasDelay {
			withDelay++
			if order.WasDelayed {
				delayed++
			}
			if order.WasInAdvance {
				inAdvance++
			}
		}
	}

	if delivered == 0 {
		return math.NaN(), math.NaN(), math.NaN()
	}

	avgDays, delayRate, advanceRate = math.NaN(), math.NaN(), math.NaN()
	if timed > 0 {
		avgDays = totalDelivery.Hours() / 24 / float64(timed)
	}
	if withDelay > 0 {
		delayRate = float64(delayed) / float64(withDelay)
		advanceRate = float64(inAdvance) / float64(withDelay)
	}
	return avgDays, delayRate, advanceRate
}

// cancelationRate 取消订单占比, 分母为客户全部订单
func (a *Aggregator) cancelationRate(orderIDs []string) float64 {
	var canceled int
	for _, orderID := range orderIDs {
		if a.orders[orderID].Status == canceledStatus {
			canceled++
		}
	}
	return float64(canceled) / float64(len(orderIDs))
}

// mostFrequent 众数计算: 次数最高者胜出, 平票取字典序最小的标签
// 计数为空时返回空串, 不允许任何异常路径逃逸
func mostFrequent(counts map[string]int) string {
	var best string
	var bestCount int
	for label, count := range counts {
		if count > bestCount || (count == bestCount && (best == "" || label < best)) {
			best = label
			bestCount = count
		}
	}
	return best
}
