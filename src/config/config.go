package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Config 结构体定义了应用程序的配置结构
type Config struct {
	Email struct {
		Server        string   `json:"server"`         // 邮件服务器地址
		Username      string   `json:"username"`       // 邮箱用户名
		Password      string   `json:"password"`       // 邮箱密码
		TargetSubject string   `json:"target_subject"` // 需要匹配的邮件主题
		CheckInterval Duration `json:"check_interval"` // 检查新邮件的间隔时间
	} `json:"email"`

	DataDir     string `json:"data_dir"`     // 数据快照存储目录
	OutputDir   string `json:"output_dir"`   // 特征表输出目录
	VirtualDate string `json:"virtual_date"` // 研究的虚拟日期, 为空时取订单表中最大下单时间
	Latin1CSV   bool   `json:"latin1_csv"`   // CSV快照是否为Latin-1编码
	WebhookURL  string `json:"webhook_url"`  // 运行摘要推送地址
	LogName     string `json:"log_name"`
	LogMaxSize  string `json:"log_max_size"`
	SendEmail   struct {
		Server        string `json:"server"`         // 邮件服务器地址
		Username      string `json:"username"`       // 邮箱用户名
		Password      string `json:"password"`       // 邮箱密码
		TargetSubject string `json:"target_subject"` // 报告邮件主题
		Receiver      string `json:"receiver"`       // 报告接收地址
	} `json:"send_email"`
}

// DataConfig 数据层面的配置: 表文件名、类别降维映射、支付方式重命名
type DataConfig struct {
	TableFiles       map[string]string `json:"table_files"`       // 逻辑表名 -> 快照文件名
	ReduceCategories map[string]string `json:"reduce_categories"` // 类别标签降维映射(可能多级)
	RenamePayments   map[string]string `json:"rename_payments"`   // 支付方式输出重命名, 如 boleto -> cash
}

var (
	once               sync.Once
	instance           *Config
	dataConfigInstance *DataConfig
	mu                 sync.RWMutex
)

func LoadConfig(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	var err error
	once.Do(func() {
		instance, dataConfigInstance, err = loadConfigs(jsonFolder, jsonFile, dataJsonFile)
	})
	return instance, dataConfigInstance, err
}

func loadConfigs(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	configFile := filepath.Join(jsonFolder, jsonFile)
	dataConfigFile := filepath.Join(jsonFolder, dataJsonFile)

	configData, err := readFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	dataConfigData, err := readFile(dataConfigFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取数据配置文件失败: %w", err)
	}

	cfgChan := make(chan *Config, 1)
	dcfgChan := make(chan *DataConfig, 1)
	errChan := make(chan error, 2)

	go parseConfig(configData, cfgChan, errChan)
	go parseDataConfig(dataConfigData, dcfgChan, errChan)

	cfg, dcfg, err := waitForResults(cfgChan, dcfgChan, errChan)
	if err != nil {
		return nil, nil, err
	}

	return cfg, dcfg, nil
}

func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	return data, nil
}

func parseConfig(data []byte, resultChan chan<- *Config, errChan chan<- error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		errChan <- fmt.Errorf("解析Config失败: %w", err)
		return
	}
	resultChan <- &cfg
}

func parseDataConfig(data []byte, resultChan chan<- *DataConfig, errChan chan<- error) {
	var dcfg DataConfig
	if err := json.Unmarshal(data, &dcfg); err != nil {
		errChan <- fmt.Errorf("解析DataConfig失败: %w", err)
		return
	}
	resultChan <- &dcfg
}

func waitForResults(
	cfgChan <-chan *Config,
	dcfgChan <-chan *DataConfig,
	errChan <-chan error,
) (*Config, *DataConfig, error) {
	var (
		cfg    *Config
		dcfg   *DataConfig
		errors []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
		case d := <-dcfgChan:
			dcfg = d
		case err := <-errChan:
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return nil, nil, combineErrors(errors)
	}

	if cfg == nil || dcfg == nil {
		return nil, nil, fmt.Errorf("部分配置未加载成功")
	}

	return cfg, dcfg, nil
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	msg := "配置加载遇到多个错误:"
	for _, err := range errs {
		msg = fmt.Sprintf("%s\n- %v", msg, err)
	}
	return fmt.Errorf("%s", msg)
}

// VirtualDateTime 解析配置中的虚拟日期
// 为空时返回零值time.Time, 由调用方回退到订单表最大下单时间
func (c *Config) VirtualDateTime() (time.Time, error) {
	if c.VirtualDate == "" {
		return time.Time{}, nil
	}
	formats := []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}
	for _, format := range formats {
		if t, err := time.Parse(format, c.VirtualDate); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("无法解析虚拟日期: %s", c.VirtualDate)
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON序列化和反序列化
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
// 用于从JSON字符串解析Duration
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON 实现json.Marshaler接口
// 用于将Duration序列化为JSON字符串
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// TableFile 返回逻辑表对应的快照文件名(线程安全)
func (dc *DataConfig) TableFile(table string) string {
	mu.RLock()
	defer mu.RUnlock()
	return dc.TableFiles[table]
}

// SetTableFile 覆盖逻辑表对应的快照文件名(线程安全)
func (dc *DataConfig) SetTableFile(table, filename string) {
	mu.Lock()
	defer mu.Unlock()
	dc.TableFiles[table] = filename
}

// RenamePayment 返回支付方式的输出名称, 未配置时原样返回
func (dc *DataConfig) RenamePayment(paymentType string) string {
	mu.RLock()
	defer mu.RUnlock()
	if renamed, ok := dc.RenamePayments[paymentType]; ok {
		return renamed
	}
	return paymentType
}
