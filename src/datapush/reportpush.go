package datapush

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// 常量定义
const (
	RETRY_TIMES    = 5
	RETRY_INTERVAL = 2 * time.Second
	PUSH_TIMEOUT   = 10 * time.Second
)

// 钉钉机器人响应结构体
type DingTalkResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// RunSummary 单次特征表构建的摘要
type RunSummary struct {
	VirtualDate string
	Rows        int
	Cols        int
	Duration    time.Duration
	OutputPath  string
}

func (s RunSummary) text() string {
	return fmt.Sprintf("客户特征表构建完成\n虚拟日期: %s\n客户数: %d\n特征列数: %d\n耗时: %v\n输出: %s",
		s.VirtualDate, s.Rows, s.Cols, s.Duration.Round(time.Millisecond), s.OutputPath)
}

// PushSummary 将运行摘要推送到机器人webhook, 失败时有限重试
func PushSummary(webhookURL string, summary RunSummary) error {
	if webhookURL == "" {
		return nil
	}

	return retry(func() error {
		return sendTextMessage(webhookURL, summary.text())
	}, RETRY_TIMES, RETRY_INTERVAL)
}

// 发送文本消息
func sendTextMessage(webhookURL, content string) error {
	payload := map[string]interface{}{
		"msgtype": "text",
		"text": map[string]string{
			"content": content,
		},
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化请求体失败: %v", err)
	}

	req, err := http.NewRequest("POST", webhookURL, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return fmt.Errorf("创建请求失败: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: PUSH_TIMEOUT}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %v", err)
	}

	var result DingTalkResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("解析响应失败: %v", err)
	}

	if result.ErrCode != 0 {
		return fmt.Errorf("推送摘要失败: %s", result.ErrMsg)
	}

	return nil
}

// 重试函数
func retry(fn func() error, times int, interval time.Duration) error {
	var err error
	for i := 0; i < times; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < times-1 {
			time.Sleep(interval)
		}
	}
	return fmt.Errorf("重试 %d 次后失败: %v", times, err)
}
