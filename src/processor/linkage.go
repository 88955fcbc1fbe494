// linkage.go
package processor

import (
	"sort"

	"CustomerProfiling/src/dataset"
)

// OrderIndex 唯一客户id到订单id集合的索引
// 订单侧的customer_id每次下单都不同, 需要经客户表折算到唯一客户id;
// 每个客户的订单id保持过滤排序后订单表中的行序, 聚合阶段依赖
// 首尾位置即时间上的首末订单
type OrderIndex struct {
	byCustomer map[string][]string
}

// BuildOrderIndex 扫描一遍排序后的订单表构建索引, 每次运行只构建一次
func BuildOrderIndex(orders []dataset.Order, customers []dataset.CustomerLink) *OrderIndex {
	accountToUnique := make(map[string]string, len(customers))
	for _, link := range customers {
		accountToUnique[link.CustomerID] = link.UniqueID
	}

	byCustomer := make(map[string][]string)
	for _, order := range orders {
		uniqueID, ok := accountToUnique[order.CustomerID]
		if !ok {
			// 订单引用了客户表中不存在的id, 属于上游契约问题, 跳过
			continue
		}
		byCustomer[uniqueID] = append(byCustomer[uniqueID], order.ID)
	}

	return &OrderIndex{byCustomer: byCustomer}
}

// OrdersOf 返回某客户的订单id集合, 无订单时返回空集而非错误
func (ix *OrderIndex) OrdersOf(uniqueID string) []string {
	return ix.byCustomer[uniqueID]
}

// CustomersWithMinOrders 返回订单数达到下限的客户id, 升序排列保证输出可复现
func (ix *OrderIndex) CustomersWithMinOrders(min int) []string {
	ids := make([]string, 0, len(ix.byCustomer))
	for uniqueID, orderIDs := range ix.byCustomer {
		if len(orderIDs) >= min {
			ids = append(ids, uniqueID)
		}
	}
	sort.Strings(ids)
	return ids
}
