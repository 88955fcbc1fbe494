package email

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"CustomerProfiling/src/storage"
)

// SnapshotAttachmentHandler 快照附件处理器
// 负责把邮件附件中的快照数据表落盘到数据目录
type SnapshotAttachmentHandler struct {
	dataDir       string
	logger        *storage.Logger
	mu            sync.Mutex
	processedUIDs map[uint32]bool // 已处理邮件UID, 防止重复落盘
}

// NewSnapshotAttachmentHandler 创建快照附件处理器
func NewSnapshotAttachmentHandler(dataDir string, logger *storage.Logger) *SnapshotAttachmentHandler {
	return &SnapshotAttachmentHandler{
		dataDir:       dataDir,
		logger:        logger,
		processedUIDs: make(map[uint32]bool),
	}
}

// Processed 判断邮件是否已处理过
func (h *SnapshotAttachmentHandler) Processed(uid uint32) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.processedUIDs[uid]
}

// HandleEmail 处理单封快照邮件, 返回成功落盘的附件数量
func (h *SnapshotAttachmentHandler) HandleEmail(e *Email) (int, error) {
	if e == nil {
		return 0, nil
	}

	h.mu.Lock()
	if h.processedUIDs[e.UID] {
		h.mu.Unlock()
		return 0, nil
	}
	h.mu.Unlock()

	if err := os.MkdirAll(h.dataDir, 0755); err != nil {
		return 0, fmt.Errorf("创建数据目录失败: %w", err)
	}

	saved := 0
	for _, att := range e.Attachments {
		if !isSnapshotFile(att.Filename) {
			h.logger.Debug(fmt.Sprintf("跳过非快照附件: %s", att.Filename))
			continue
		}

		// 只取文件名, 丢弃路径前缀
		target := filepath.Join(h.dataDir, filepath.Base(att.Filename))
		if err := os.WriteFile(target, att.Content, 0644); err != nil {
			h.logger.Error(fmt.Sprintf("保存附件失败 %s: %v", att.Filename, err))
			continue
		}
		h.logger.Info(fmt.Sprintf("保存快照附件: %s (%d 字节)", target, len(att.Content)))
		saved++
	}

	if saved > 0 {
		h.mu.Lock()
		h.processedUIDs[e.UID] = true
		h.mu.Unlock()
	}
	return saved, nil
}

// isSnapshotFile 判断附件是否为快照数据表
func isSnapshotFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".csv" || ext == ".xlsx"
}
