package processor

import (
	"testing"
	"time"

	"CustomerProfiling/src/dataset"
)

func ts(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestResolveVirtualDate(t *testing.T) {
	orders := []dataset.Order{
		{ID: "o1", PurchaseTS: ts("2018-01-10 08:00:00")},
		{ID: "o2", PurchaseTS: ts("2018-02-05 12:30:00")},
		{ID: "o3", PurchaseTS: ts("2018-01-20 00:00:00")},
	}

	// 未指定时取最大下单时间
	got := ResolveVirtualDate(orders, time.Time{})
	if !got.Equal(ts("2018-02-05 12:30:00")) {
		t.Errorf("默认虚拟日期错误: %v", got)
	}

	// 指定时直接使用
	override := ts("2018-01-15 00:00:00")
	if got := ResolveVirtualDate(orders, override); !got.Equal(override) {
		t.Errorf("指定虚拟日期未生效: %v", got)
	}
}

func TestFilterAndSort(t *testing.T) {
	orders := []dataset.Order{
		{ID: "late", PurchaseTS: ts("2018-02-05 00:00:00")},
		{ID: "second", PurchaseTS: ts("2018-01-20 00:00:00")},
		{ID: "first", PurchaseTS: ts("2018-01-01 00:00:00")},
		{ID: "boundary", PurchaseTS: ts("2018-01-31 00:00:00")},
	}

	filtered := FilterAndSort(orders, ts("2018-01-31 00:00:00"))

	// 虚拟日期之后的订单剔除, 等于虚拟日期的保留
	if len(filtered) != 3 {
		t.Fatalf("截断后订单数 = %d, 期望 3", len(filtered))
	}

	want := []string{"first", "second", "boundary"}
	for i, id := range want {
		if filtered[i].ID != id {
			t.Errorf("位置 %d 订单 = %s, 期望 %s", i, filtered[i].ID, id)
		}
	}
}

func TestFilterAndSortTiming(t *testing.T) {
	orders := []dataset.Order{
		{
			ID:          "delayed",
			PurchaseTS:  ts("2018-01-01 00:00:00"),
			ApprovedTS:  ts("2018-01-01 12:00:00"),
			DeliveredTS: ts("2018-01-10 12:00:00"),
			EstimatedTS: ts("2018-01-08 00:00:00"),
		},
		{
			ID:          "advance",
			PurchaseTS:  ts("2018-01-02 00:00:00"),
			ApprovedTS:  ts("2018-01-02 00:00:00"),
			DeliveredTS: ts("2018-01-05 00:00:00"),
			EstimatedTS: ts("2018-01-10 00:00:00"),
		},
		{
			// 延误不足24小时, 不算延误也不算提前
			ID:          "ontime",
			PurchaseTS:  ts("2018-01-03 00:00:00"),
			ApprovedTS:  ts("2018-01-03 00:00:00"),
			DeliveredTS: ts("2018-01-08 12:00:00"),
			EstimatedTS: ts("2018-01-08 00:00:00"),
		},
		{
			// 未签收, 派生字段保持未定义
			ID:         "pending",
			PurchaseTS: ts("2018-01-04 00:00:00"),
			ApprovedTS: ts("2018-01-04 00:00:00"),
		},
	}

	filtered := FilterAndSort(orders, ts("2018-01-31 00:00:00"))
	byID := make(map[string]dataset.Order)
	for _, o := range filtered {
		byID[o.ID] = o
	}

	delayed := byID["delayed"]
	if !delayed.HasDeliveryTime || delayed.DeliveryTime != 9*24*time.Hour {
		t.Errorf("delayed 配送时长 = %v", delayed.DeliveryTime)
	}
	if !delayed.HasDelay || !delayed.WasDelayed || delayed.WasInAdvance {
		t.Errorf("delayed 延误标记错误: %+v", delayed)
	}

	advance := byID["advance"]
	if !advance.HasDelay || advance.WasDelayed || !advance.WasInAdvance {
		t.Errorf("advance 提前标记错误: %+v", advance)
	}

	ontime := byID["ontime"]
	if !ontime.HasDelay || ontime.WasDelayed || ontime.WasInAdvance {
		t.Errorf("ontime 不应标记延误或提前: %+v", ontime)
	}

	pending := byID["pending"]
	if pending.HasDeliveryTime || pending.HasDelay {
		t.Errorf("pending 派生字段应保持未定义: %+v", pending)
	}
}
