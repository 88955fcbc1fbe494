package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerWriteAndLevels(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")

	logger, err := NewLogger(logPath)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer logger.Close()

	logger.Info("特征表构建开始")
	logger.Error("快照缺失")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("读取日志文件失败: %v", err)
	}

	content := string(data)
	if !strings.Contains(content, "INFO: 特征表构建开始") {
		t.Errorf("缺少INFO日志: %q", content)
	}
	if !strings.Contains(content, "ERROR: 快照缺失") {
		t.Errorf("缺少ERROR日志: %q", content)
	}
}

func TestLoggerSubscribe(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(filepath.Join(dir, "app.log"))
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer logger.Close()

	ch := logger.Subscribe()
	logger.Warning("消息订阅测试")

	select {
	case msg := <-ch:
		if !strings.Contains(msg, "WARNING: 消息订阅测试") {
			t.Errorf("订阅消息内容有误: %q", msg)
		}
	default:
		t.Error("订阅通道未收到日志消息")
	}
}

func TestLogLevelString(t *testing.T) {
	cases := map[LogLevel]string{
		DEBUG:         "DEBUG",
		INFO:          "INFO",
		WARNING:       "WARNING",
		ERROR:         "ERROR",
		FATAL:         "FATAL",
		LogLevel(100): "UNKNOWN",
	}
	for level, want := range cases {
		if got := level.String(); got != want {
			t.Errorf("LogLevel(%d).String() = %q, want %q", level, got, want)
		}
	}
}

func TestEval(t *testing.T) {
	if got := eval("10 * 1024 * 1024"); got != 10*1024*1024 {
		t.Errorf("eval = %d", got)
	}
	if got := eval("2048"); got != 2048 {
		t.Errorf("eval = %d", got)
	}
}
