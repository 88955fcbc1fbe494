package email

import (
	"os"
	"path/filepath"
	"testing"

	"CustomerProfiling/src/storage"
)

func testLogger(t *testing.T) *storage.Logger {
	t.Helper()
	logger, err := storage.NewLogger(filepath.Join(t.TempDir(), "test.log"))
	if err != nil {
		t.Fatalf("创建日志失败: %v", err)
	}
	t.Cleanup(func() { logger.Close() })
	return logger
}

func TestHandleEmail(t *testing.T) {
	dataDir := t.TempDir()
	h := NewSnapshotAttachmentHandler(dataDir, testLogger(t))

	e := &Email{
		UID:     42,
		Subject: "客户数据快照",
		Attachments: []*Attachment{
			{Filename: "olist_orders_dataset.csv", Content: []byte("order_id\no1\n")},
			{Filename: "readme.txt", Content: []byte("skip")}, // 非快照格式跳过
		},
	}

	saved, err := h.HandleEmail(e)
	if err != nil {
		t.Fatalf("HandleEmail: %v", err)
	}
	if saved != 1 {
		t.Errorf("落盘附件数 = %d, 期望 1", saved)
	}

	if _, err := os.Stat(filepath.Join(dataDir, "olist_orders_dataset.csv")); err != nil {
		t.Errorf("快照附件未落盘: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dataDir, "readme.txt")); err == nil {
		t.Error("非快照附件不应落盘")
	}

	// 同一封邮件重复处理不再落盘
	if !h.Processed(42) {
		t.Error("邮件应标记为已处理")
	}
	saved, err = h.HandleEmail(e)
	if err != nil || saved != 0 {
		t.Errorf("重复处理 = %d, %v", saved, err)
	}
}

func TestHandleEmailNil(t *testing.T) {
	h := NewSnapshotAttachmentHandler(t.TempDir(), testLogger(t))
	if saved, err := h.HandleEmail(nil); err != nil || saved != 0 {
		t.Errorf("空邮件 = %d, %v", saved, err)
	}
}

func TestIsSnapshotFile(t *testing.T) {
	cases := map[string]bool{
		"orders.csv":  true,
		"orders.CSV":  true,
		"orders.xlsx": true,
		"orders.txt":  false,
		"orders":      false,
	}
	for name, want := range cases {
		if got := isSnapshotFile(name); got != want {
			t.Errorf("isSnapshotFile(%q) = %v", name, got)
		}
	}
}
