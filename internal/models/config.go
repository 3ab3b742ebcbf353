package models

import (
	"fmt"
	"time"
)

// 配置取值范围
const (
	MinTimeoutSeconds = 5
	MaxTimeoutSeconds = 30
	MinWaitSeconds    = 1
	MaxWaitSeconds    = 5
	MinThreads        = 1
	MaxThreads        = 16
)

// CheckConfig 检查配置
type CheckConfig struct {
	Strategy           string   `mapstructure:"strategy" json:"strategy"`                         // 抓取策略 http|browser (默认:http)
	RedirectSignature  string   `mapstructure:"redirect_signature" json:"redirect_signature"`     // 跳转签名
	ContentMarkers     []string `mapstructure:"content_markers" json:"content_markers"`           // 内容指纹
	TimeoutSeconds     int      `mapstructure:"timeout_seconds" json:"timeout_seconds"`           // HTTP超时(秒) (默认:10)
	WaitSeconds        int      `mapstructure:"wait_seconds" json:"wait_seconds"`                 // 浏览器等待时间(秒) (默认:3)
	Threads            int      `mapstructure:"threads" json:"threads"`                           // 并发数 (默认:1)
	Headless           bool     `mapstructure:"headless" json:"headless"`                         // 无头模式 (默认:true)
	BrowserBin         string   `mapstructure:"browser_bin" json:"browser_bin,omitempty"`         // 浏览器可执行文件路径(空则自动下载/查找)
	InsecureSkipVerify bool     `mapstructure:"insecure_skip_verify" json:"insecure_skip_verify"` // 跳过TLS证书验证
}

// DefaultCheckConfig 默认检查配置
func DefaultCheckConfig() CheckConfig {
	return CheckConfig{
		Strategy:          string(StrategyHTTP),
		RedirectSignature: DefaultRedirectSignature,
		ContentMarkers:    append([]string(nil), DefaultContentMarkers...),
		TimeoutSeconds:    10,
		WaitSeconds:       3,
		Threads:           1,
		Headless:          true,
	}
}

// Validate 验证配置
func (c *CheckConfig) Validate() error {
	if _, err := ParseStrategy(c.Strategy); err != nil {
		return err
	}
	if c.TimeoutSeconds < MinTimeoutSeconds || c.TimeoutSeconds > MaxTimeoutSeconds {
		return fmt.Errorf("超时时间必须在%d-%d秒之间,当前值: %d", MinTimeoutSeconds, MaxTimeoutSeconds, c.TimeoutSeconds)
	}
	if c.WaitSeconds < MinWaitSeconds || c.WaitSeconds > MaxWaitSeconds {
		return fmt.Errorf("等待时间必须在%d-%d秒之间,当前值: %d", MinWaitSeconds, MaxWaitSeconds, c.WaitSeconds)
	}
	if c.Threads < MinThreads || c.Threads > MaxThreads {
		return fmt.Errorf("并发数必须在%d-%d之间,当前值: %d", MinThreads, MaxThreads, c.Threads)
	}
	return nil
}

// StrategyValue 返回解析后的策略,无效值回退为HTTP
func (c *CheckConfig) StrategyValue() Strategy {
	s, err := ParseStrategy(c.Strategy)
	if err != nil {
		return StrategyHTTP
	}
	return s
}

// Timeout HTTP超时
func (c *CheckConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Wait 浏览器导航后等待时间
func (c *CheckConfig) Wait() time.Duration {
	return time.Duration(c.WaitSeconds) * time.Second
}

// NewRequest 为单个URL构造检查请求
func (c *CheckConfig) NewRequest(rawURL string) CheckRequest {
	return CheckRequest{
		URL:               rawURL,
		Timeout:           c.Timeout(),
		Wait:              c.Wait(),
		RedirectSignature: c.RedirectSignature,
		ContentMarkers:    append([]string(nil), c.ContentMarkers...),
		Strategy:          c.StrategyValue(),
	}
}
