package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron"

	"CustomerProfiling/src/config"
	"CustomerProfiling/src/datapush"
	"CustomerProfiling/src/dataset"
	"CustomerProfiling/src/datasource/email"
	"CustomerProfiling/src/datasource/file"
	"CustomerProfiling/src/processor"
	"CustomerProfiling/src/storage"
	"CustomerProfiling/src/utils"
)

func main() {
	jsonFolder := "./config"
	jsonFile := "config.json"
	dataJsonFile := "dataconfig.json"
	cfg, dcfg, err := config.LoadConfig(jsonFolder, jsonFile, dataJsonFile)
	if err != nil {
		log.Fatal("加载配置失败:", err)
	}

	// 初始化日志系统
	logName := cfg.LogName
	if logName == "" {
		logName = "app.log"
	}
	logger, err := storage.NewLogger(logName)
	if err != nil {
		log.Fatal("初始化日志失败:", err)
	}

	// 邮箱客户端: 从邮件附件获取最新的数据快照
	emailClient := email.NewEmailClient(
		cfg.Email.Server,
		cfg.Email.Username,
		cfg.Email.Password)
	handler := email.NewSnapshotAttachmentHandler(cfg.DataDir, logger)

	go startWebUI(logger)
	go monitorFiles(logger, cfg, dcfg)

	// 设置定时任务
	c := cron.New()
	interval := time.Duration(cfg.Email.CheckInterval).String()
	cronSpec := fmt.Sprintf("@every %s", interval)

	err = c.AddFunc(cronSpec, func() {
		logger.Info(fmt.Sprintf("开始定时检查(间隔: %v)...", cronSpec))

		if err := logger.CheckRotate(cfg); err != nil {
			logger.Warning("日志轮转失败: " + err.Error())
		}

		newEmail, err := email.CheckAndProcessEmails(emailClient, cfg.Email.TargetSubject, logger)
		if err != nil {
			logger.Error("检查处理邮件失败: " + err.Error())
			return
		}
		if newEmail == nil {
			return
		}

		// 将快照附件落盘后重建特征表
		saved, err := handler.HandleEmail(newEmail)
		if err != nil {
			logger.Error(fmt.Sprintf("处理邮件失败(UID:%d): %v", newEmail.UID, err))
			return
		}
		if saved == 0 {
			return
		}

		if err := runPipeline(cfg, dcfg, logger); err != nil {
			logger.Error("特征表构建失败: " + err.Error())
		}
	})
	if err != nil {
		logger.Error("创建定时任务失败: " + err.Error())
		return
	}

	c.Start()
	defer c.Stop()

	logger.Info(fmt.Sprintf("客户特征服务已启动(检查间隔: %v)，按Ctrl+C退出", interval))

	// 启动时若数据目录已有快照, 先跑一轮
	if _, err := os.Stat(cfg.DataDir); err == nil {
		if err := runPipeline(cfg, dcfg, logger); err != nil {
			logger.Warning("启动时构建特征表失败: " + err.Error())
		}
	}

	waitForShutdown(logger)
}

// runPipeline 从数据目录的快照构建客户特征表并导出
func runPipeline(cfg *config.Config, dcfg *config.DataConfig, logger *storage.Logger) error {
	t1 := time.Now()

	snap, err := file.LoadSnapshot(cfg.DataDir, dcfg, cfg.Latin1CSV)
	if err != nil {
		return fmt.Errorf("加载快照失败: %w", err)
	}

	tables, err := dataset.FromSnapshot(snap)
	if err != nil {
		return fmt.Errorf("解析快照失败: %w", err)
	}

	override, err := cfg.VirtualDateTime()
	if err != nil {
		return fmt.Errorf("虚拟日期配置无效: %w", err)
	}

	p := processor.NewPipeline(tables, override, dcfg, logger)
	df, err := p.Run()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}

	stamp := time.Now().Format("20060102_150405")
	outPath := filepath.Join(cfg.OutputDir, fmt.Sprintf("customer_features_%s.xlsx", stamp))
	if err := utils.SaveToExcel(df, outPath); err != nil {
		return fmt.Errorf("导出Excel失败: %w", err)
	}

	// 同时输出CSV, 便于下游直接读取
	csvPath := filepath.Join(cfg.OutputDir, fmt.Sprintf("customer_features_%s.csv", stamp))
	f, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("创建CSV文件失败: %w", err)
	}
	if err := df.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("导出CSV失败: %w", err)
	}
	f.Close()

	summary := datapush.RunSummary{
		VirtualDate: processor.ResolveVirtualDate(tables.Orders, override).Format("2006-01-02 15:04:05"),
		Rows:        df.Nrow(),
		Cols:        df.Ncol(),
		Duration:    time.Since(t1),
		OutputPath:  outPath,
	}
	if err := datapush.PushSummary(cfg.WebhookURL, summary); err != nil {
		logger.Warning("推送运行摘要失败: " + err.Error())
	}

	if cfg.SendEmail.Receiver != "" {
		if err := email.SendReport(cfg, outPath); err != nil {
			logger.Warning("发送报告邮件失败: " + err.Error())
		} else {
			logger.Info("报告邮件已发送: " + cfg.SendEmail.Receiver)
		}
	}

	logger.Info(fmt.Sprintf("特征表构建完成: %d 行 %d 列, 耗时 %v", df.Nrow(), df.Ncol(), time.Since(t1)))
	return nil
}

// monitorFiles 监控数据目录, 快照文件更新时重建特征表
func monitorFiles(logger *storage.Logger, cfg *config.Config, dcfg *config.DataConfig) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		logger.Error("创建数据目录失败: " + err.Error())
		return
	}

	monitor, err := file.NewFileMonitor(cfg.DataDir)
	if err != nil {
		logger.Error("创建文件监控失败: " + err.Error())
		return
	}
	defer monitor.Close()

	// 重建互斥, 同一批快照落盘只触发一轮
	var rebuildMu sync.Mutex
	err = monitor.Watch(func(filePath string) {
		logger.Info("快照文件更新: " + filePath)
		if !rebuildMu.TryLock() {
			return
		}
		defer rebuildMu.Unlock()

		// 等同批其余文件写完
		time.Sleep(2 * time.Second)
		if err := runPipeline(cfg, dcfg, logger); err != nil {
			logger.Error("特征表构建失败: " + err.Error())
		}
	})
	if err != nil {
		logger.Error("文件监控异常: " + err.Error())
	}
}

// startWebUI 启动一个简单的Web界面来显示实时日志
func startWebUI(logger *storage.Logger) {
	http.HandleFunc("/logs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Transfer-Encoding", "chunked")

		logChan := logger.Subscribe()
		for {
			select {
			case msg := <-logChan:
				if _, err := fmt.Fprintln(w, msg); err != nil {
					return
				}
				if f, ok := w.(http.Flusher); ok {
					f.Flush()
				}
			case <-r.Context().Done():
				return
			}
		}
	})

	http.ListenAndServe(":8080", nil)
}

func waitForShutdown(logger *storage.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("收到信号: " + sig.String() + ", 退出服务")
	logger.Close()
	os.Exit(0)
}
