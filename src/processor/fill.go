// fill.go
package processor

import (
	"math"
)

// FillRates 补齐延误率与提前率: 无已签收订单意味着没观察到延误或提前, 按0处理
func FillRates(rows []CustomerFeatures) {
	for i := range rows {
		if math.IsNaN(rows[i].DelayRate) {
			rows[i].DelayRate = 0
		}
		if math.IsNaN(rows[i].AdvanceRate) {
			rows[i].AdvanceRate = 0
		}
	}
}

// FillAverageDeliveryTime 用全体客户的均值补齐平均配送时长, 再取整到天
// 均值在所有客户的值都已知之后计算, 未定义的值不参与;
// 频率和平均评分保持未定义, 由下游显式处理
func FillAverageDeliveryTime(rows []CustomerFeatures) {
	var sum float64
	var count int
	for i := range rows {
		if !math.IsNaN(rows[i].AverageDeliveryTime) {
			sum += rows[i].AverageDeliveryTime
			count++
		}
	}

	// 没有任何客户有已签收订单时均值不存在, 各行保持未定义
	if count == 0 {
		return
	}

	mean := sum / float64(count)
	for i := range rows {
		if math.IsNaN(rows[i].AverageDeliveryTime) {
			rows[i].AverageDeliveryTime = mean
		}
		rows[i].AverageDeliveryTime = math.Round(rows[i].AverageDeliveryTime)
	}
}
