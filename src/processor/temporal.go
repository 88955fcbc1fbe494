// temporal.go
package processor

import (
	"sort"
	"time"

	"CustomerProfiling/src/dataset"
)

// 延误判定阈值: 超过预计送达24小时算延误, 提前超过24小时算提前
const delayThreshold = 24 * time.Hour

// ResolveVirtualDate 确定本次运行的虚拟日期
// override非零时直接使用, 否则取订单表中最大的下单时间
func ResolveVirtualDate(orders []dataset.Order, override time.Time) time.Time {
	if !override.IsZero() {
		return override
	}

	var maxTS time.Time
	for _, order := range orders {
		if order.PurchaseTS.After(maxTS) {
			maxTS = order.PurchaseTS
		}
	}
	return maxTS
}

// FilterAndSort 截断到虚拟日期并按下单时间升序排序
// 截断必须发生在任何按客户聚合之前, 这是整条流水线可复现性的前提;
// 排序保证每个客户的订单id集合首尾即时间上的首末订单
// 同时为每个订单补充派生的时效字段
func FilterAndSort(orders []dataset.Order, virtualDate time.Time) []dataset.Order {
	filtered := make([]dataset.Order, 0, len(orders))
	for _, order := range orders {
		if order.PurchaseTS.After(virtualDate) {
			continue
		}
		computeTiming(&order)
		filtered = append(filtered, order)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].PurchaseTS.Before(filtered[j].PurchaseTS)
	})

	return filtered
}

// computeTiming 计算单个订单的派生时效字段
// 缺少签收时间的订单派生字段保持未定义, 由聚合阶段过滤
func computeTiming(order *dataset.Order) {
	if order.DeliveredTS.IsZero() {
		return
	}

	if !order.ApprovedTS.IsZero() {
		order.DeliveryTime = order.DeliveredTS.Sub(order.ApprovedTS)
		order.HasDeliveryTime = true
	}

	if !order.EstimatedTS.IsZero() {
		order.Delay = order.DeliveredTS.Sub(order.EstimatedTS)
		order.HasDelay = true
		order.WasDelayed = order.Delay > delayThreshold
		order.WasInAdvance = order.Delay < -delayThreshold
	}
}
