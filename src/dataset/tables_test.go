package dataset

import (
	"math"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"CustomerProfiling/src/datasource/file"
)

func stringDF(cols map[string][]string, order []string) dataframe.DataFrame {
	ss := make([]series.Series, 0, len(order))
	for _, name := range order {
		ss = append(ss, series.New(cols[name], series.String, name))
	}
	return dataframe.New(ss...)
}

func testSnapshot() *file.Snapshot {
	return &file.Snapshot{
		Orders: stringDF(map[string][]string{
			"order_id":                      {"o1", "o2", "o3"},
			"customer_id":                   {"a1", "a2", "a3"},
			"order_status":                  {"delivered", "canceled", "delivered"},
			"order_purchase_timestamp":      {"2018-01-01 10:00:00", "2018-01-05 00:00:00", ""},
			"order_approved_at":             {"2018-01-01 12:00:00", "", ""},
			"order_delivered_carrier_date":  {"2018-01-02 00:00:00", "", ""},
			"order_delivered_customer_date": {"2018-01-06 00:00:00", "", ""},
			"order_estimated_delivery_date": {"2018-01-10 00:00:00", "2018-01-12 00:00:00", ""},
		}, []string{
			"order_id", "customer_id", "order_status",
			"order_purchase_timestamp", "order_approved_at",
			"order_delivered_carrier_date", "order_delivered_customer_date",
			"order_estimated_delivery_date",
		}),
		OrderItems: stringDF(map[string][]string{
			"order_id":   {"o1", "o1"},
			"product_id": {"p1", "p2"},
			"price":      {"99.9", ""},
		}, []string{"order_id", "product_id", "price"}),
		Products: stringDF(map[string][]string{
			"product_id":            {"p1", "p2"},
			"product_category_name": {"cat_a", ""},
		}, []string{"product_id", "product_category_name"}),
		Customers: stringDF(map[string][]string{
			"customer_id":        {"a1", "a2"},
			"customer_unique_id": {"ua", "ua"},
		}, []string{"customer_id", "customer_unique_id"}),
		Reviews: stringDF(map[string][]string{
			"order_id":     {"o1"},
			"review_score": {"5"},
		}, []string{"order_id", "review_score"}),
		Payments: stringDF(map[string][]string{
			"order_id":     {"o1"},
			"payment_type": {"boleto"},
		}, []string{"order_id", "payment_type"}),
		Translation: stringDF(map[string][]string{
			"product_category_name":         {"cat_a"},
			"product_category_name_english": {"catA"},
		}, []string{"product_category_name", "product_category_name_english"}),
	}
}

func TestFromSnapshot(t *testing.T) {
	tables, err := FromSnapshot(testSnapshot())
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}

	// 无下单时间的o3视为坏行跳过
	if len(tables.Orders) != 2 {
		t.Fatalf("订单数 = %d, 期望 2", len(tables.Orders))
	}

	o1 := tables.Orders[0]
	if o1.ID != "o1" || o1.Status != "delivered" {
		t.Errorf("o1 基础字段错误: %+v", o1)
	}
	if o1.PurchaseTS.Hour() != 10 {
		t.Errorf("o1 下单时间 = %v", o1.PurchaseTS)
	}
	if o1.DeliveredTS.IsZero() || o1.EstimatedTS.IsZero() {
		t.Errorf("o1 时间字段缺失: %+v", o1)
	}

	// o2未签收, 对应时间字段为零值
	o2 := tables.Orders[1]
	if !o2.ApprovedTS.IsZero() || !o2.DeliveredTS.IsZero() {
		t.Errorf("o2 缺失时间应为零值: %+v", o2)
	}

	// 金额缺失解析为NaN
	if len(tables.Items) != 2 {
		t.Fatalf("明细数 = %d", len(tables.Items))
	}
	if tables.Items[0].Price != 99.9 {
		t.Errorf("明细金额 = %v", tables.Items[0].Price)
	}
	if !math.IsNaN(tables.Items[1].Price) {
		t.Errorf("缺失金额应为NaN: %v", tables.Items[1].Price)
	}

	// 无类别商品类别为空串
	if tables.Products[0].Category != "cat_a" || tables.Products[1].Category != "" {
		t.Errorf("商品类别 = %+v", tables.Products)
	}

	if tables.Translation["cat_a"] != "catA" {
		t.Errorf("翻译表 = %v", tables.Translation)
	}
}

func TestFromSnapshotMissingColumn(t *testing.T) {
	snap := testSnapshot()
	snap.Orders = stringDF(map[string][]string{
		"order_id": {"o1"},
	}, []string{"order_id"})

	if _, err := FromSnapshot(snap); err == nil {
		t.Error("缺列快照应报错")
	}
}

func TestFromSnapshotBadTimestamp(t *testing.T) {
	snap := testSnapshot()
	snap.Orders = stringDF(map[string][]string{
		"order_id":                      {"o1"},
		"customer_id":                   {"a1"},
		"order_status":                  {"delivered"},
		"order_purchase_timestamp":      {"not-a-date"},
		"order_approved_at":             {""},
		"order_delivered_carrier_date":  {""},
		"order_delivered_customer_date": {""},
		"order_estimated_delivery_date": {""},
	}, []string{
		"order_id", "customer_id", "order_status",
		"order_purchase_timestamp", "order_approved_at",
		"order_delivered_carrier_date", "order_delivered_customer_date",
		"order_estimated_delivery_date",
	})

	if _, err := FromSnapshot(snap); err == nil {
		t.Error("非法时间串应报错")
	}
}
