// tables.go
package dataset

import (
	"fmt"
	"time"

	"github.com/go-gota/gota/dataframe"

	"CustomerProfiling/src/datasource/file"
	"CustomerProfiling/src/utils"
)

// Order 订单行, 时间字段零值表示快照中未填写
type Order struct {
	ID          string
	CustomerID  string
	Status      string
	PurchaseTS  time.Time
	ApprovedTS  time.Time
	CarrierTS   time.Time
	DeliveredTS time.Time
	EstimatedTS time.Time

	// 以下为时间过滤阶段补充的派生字段
	DeliveryTime    time.Duration // 签收时间 - 审核时间
	HasDeliveryTime bool          // 为假时DeliveryTime未定义
	Delay           time.Duration // 签收时间 - 预计送达时间
	HasDelay        bool          // 为假时Delay及延误标记未定义
	WasDelayed      bool
	WasInAdvance    bool
}

// OrderItem 订单明细行, 一个订单可有多行
type OrderItem struct {
	OrderID   string
	ProductID string
	Price     float64
}

type Product struct {
	ID       string
	Category string // 源语言类别标签, 可能为空
}

// CustomerLink 订单侧客户id到唯一客户id的多对一关系
type CustomerLink struct {
	CustomerID string
	UniqueID   string
}

type Review struct {
	OrderID string
	Score   float64
}

type Payment struct {
	OrderID string
	Type    string
}

// Tables 一次运行的全部类型化源表
type Tables struct {
	Orders      []Order
	Items       []OrderItem
	Products    []Product
	Customers   []CustomerLink
	Reviews     []Review
	Payments    []Payment
	Translation map[string]string // 源语言类别 -> 英文类别
}

// FromSnapshot 将字符串DataFrame快照解析为类型化表
func FromSnapshot(s *file.Snapshot) (*Tables, error) {
	orders, err := parseOrders(s.Orders)
	if err != nil {
		return nil, fmt.Errorf("解析订单表失败: %w", err)
	}

	items, err := parseOrderItems(s.OrderItems)
	if err != nil {
		return nil, fmt.Errorf("解析订单明细表失败: %w", err)
	}

	products, err := parseProducts(s.Products)
	if err != nil {
		return nil, fmt.Errorf("解析商品表失败: %w", err)
	}

	customers, err := parseCustomers(s.Customers)
	if err != nil {
		return nil, fmt.Errorf("解析客户表失败: %w", err)
	}

	reviews, err := parseReviews(s.Reviews)
	if err != nil {
		return nil, fmt.Errorf("解析评价表失败: %w", err)
	}

	payments, err := parsePayments(s.Payments)
	if err != nil {
		return nil, fmt.Errorf("解析支付表失败: %w", err)
	}

	translation, err := parseTranslation(s.Translation)
	if err != nil {
		return nil, fmt.Errorf("解析类别翻译表失败: %w", err)
	}

	return &Tables{
		Orders:      orders,
		Items:       items,
		Products:    products,
		Customers:   customers,
		Reviews:     reviews,
		Payments:    payments,
		Translation: translation,
	}, nil
}

func requireColumns(df dataframe.DataFrame, cols ...string) error {
	for _, col := range cols {
		if !utils.HasColumn(df, col) {
			return fmt.Errorf("缺少列: %s", col)
		}
	}
	return nil
}

func parseOrders(df dataframe.DataFrame) ([]Order, error) {
	if err := requireColumns(df,
		"order_id", "customer_id", "order_status",
		"order_purchase_timestamp", "order_approved_at",
		"order_delivered_carrier_date", "order_delivered_customer_date",
		"order_estimated_delivery_date",
	); err != nil {
		return nil, err
	}

	orders := make([]Order, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		order := Order{
			ID:         df.Col("order_id").Elem(i).String(),
			CustomerID: df.Col("customer_id").Elem(i).String(),
			Status:     df.Col("order_status").Elem(i).String(),
		}

		timeFields := []struct {
			col  string
			dest *time.Time
		}{
			{"order_purchase_timestamp", &order.PurchaseTS},
			{"order_approved_at", &order.ApprovedTS},
			{"order_delivered_carrier_date", &order.CarrierTS},
			{"order_delivered_customer_date", &order.DeliveredTS},
			{"order_estimated_delivery_date", &order.EstimatedTS},
		}
		for _, field := range timeFields {
			t, err := utils.ParseTime(df.Col(field.col).Elem(i))
			if err != nil {
				return nil, fmt.Errorf("订单 %s 列 %s: %w", order.ID, field.col, err)
			}
			*field.dest = t
		}

		// 无下单时间的行无法参与时间过滤, 视为坏行跳过
		if order.PurchaseTS.IsZero() {
			continue
		}

		orders = append(orders, order)
	}

	return orders, nil
}

func parseOrderItems(df dataframe.DataFrame) ([]OrderItem, error) {
	if err := requireColumns(df, "order_id", "product_id", "price"); err != nil {
		return nil, err
	}

	items := make([]OrderItem, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		items = append(items, OrderItem{
			OrderID:   df.Col("order_id").Elem(i).String(),
			ProductID: df.Col("product_id").Elem(i).String(),
			Price:     utils.ParseFloat(df.Col("price").Elem(i)),
		})
	}
	return items, nil
}

func parseProducts(df dataframe.DataFrame) ([]Product, error) {
	if err := requireColumns(df, "product_id", "product_category_name"); err != nil {
		return nil, err
	}

	products := make([]Product, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		category := df.Col("product_category_name").Elem(i)
		p := Product{ID: df.Col("product_id").Elem(i).String()}
		if !category.IsNA() {
			p.Category = category.String()
		}
		products = append(products, p)
	}
	return products, nil
}

func parseCustomers(df dataframe.DataFrame) ([]CustomerLink, error) {
	if err := requireColumns(df, "customer_id", "customer_unique_id"); err != nil {
		return nil, err
	}

	customers := make([]CustomerLink, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		customers = append(customers, CustomerLink{
			CustomerID: df.Col("customer_id").Elem(i).String(),
			UniqueID:   df.Col("customer_unique_id").Elem(i).String(),
		})
	}
	return customers, nil
}

func parseReviews(df dataframe.DataFrame) ([]Review, error) {
	if err := requireColumns(df, "order_id", "review_score"); err != nil {
		return nil, err
	}

	reviews := make([]Review, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		reviews = append(reviews, Review{
			OrderID: df.Col("order_id").Elem(i).String(),
			Score:   utils.ParseFloat(df.Col("review_score").Elem(i)),
		})
	}
	return reviews, nil
}

func parsePayments(df dataframe.DataFrame) ([]Payment, error) {
	if err := requireColumns(df, "order_id", "payment_type"); err != nil {
		return nil, err
	}

	payments := make([]Payment, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		payments = append(payments, Payment{
			OrderID: df.Col("order_id").Elem(i).String(),
			Type:    df.Col("payment_type").Elem(i).String(),
		})
	}
	return payments, nil
}

func parseTranslation(df dataframe.DataFrame) (map[string]string, error) {
	if err := requireColumns(df, "product_category_name", "product_category_name_english"); err != nil {
		return nil, err
	}

	translation := make(map[string]string, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		source := df.Col("product_category_name").Elem(i).String()
		english := df.Col("product_category_name_english").Elem(i).String()
		if source != "" {
			translation[source] = english
		}
	}
	return translation, nil
}
