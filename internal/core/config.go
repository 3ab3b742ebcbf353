package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/RecoveryAshes/DeadLinkCheck/internal/config"
	"github.com/RecoveryAshes/DeadLinkCheck/internal/models"
	"github.com/RecoveryAshes/DeadLinkCheck/internal/utils"
	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// AppName 应用名,用于配置目录
const AppName = "deadlinkcheck"

// Config 应用程序配置
type Config struct {
	Check   models.CheckConfig `mapstructure:"check"`
	Logging LoggingConfig      `mapstructure:"logging"`
	Output  OutputConfig       `mapstructure:"output"`
	Server  ServerConfig       `mapstructure:"server"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	File        string `mapstructure:"file"`         // 报告文件路径,空则按格式取默认文件名
	Format      string `mapstructure:"format"`       // csv|json|markdown|xlsx
	MetricsFile string `mapstructure:"metrics_file"` // Prometheus文本格式指标文件,空则不写
	NoTable     bool   `mapstructure:"no_table"`     // 不在终端打印结果表
}

// ServerConfig Web界面配置
type ServerConfig struct {
	Addr        string `mapstructure:"addr"`
	MaxUploadMB int    `mapstructure:"max_upload_mb"`
	KeepRuns    int    `mapstructure:"keep_runs"` // 内存中保留的最近运行数
}

// HeadersFile 请求头配置文件路径
// 与主配置文件放在同一目录
func (c *Config) HeadersFile(configPath string) string {
	if configPath == "" {
		return config.DefaultConfigFile
	}
	return filepath.Join(filepath.Dir(configPath), "headers.yaml")
}

// LogConfig 转换为日志系统配置
func (c *Config) LogConfig() utils.LogConfig {
	return utils.LogConfig{
		Level:      c.Logging.Level,
		LogDir:     c.Logging.LogDir,
		MaxSize:    c.Logging.Rotation.MaxSize,
		MaxBackups: c.Logging.Rotation.MaxBackups,
		MaxAge:     c.Logging.Rotation.MaxAge,
		Compress:   c.Logging.Rotation.Compress,
	}
}

// ConfigSearchPaths 未指定--config时的搜索目录(按优先级)
func ConfigSearchPaths() []string {
	paths := []string{
		"./configs",
		".",
		filepath.Join(xdg.ConfigHome, AppName),
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, "."+AppName))
	}
	return paths
}

// LoadConfig 加载配置文件
// configPath为空时按ConfigSearchPaths查找config.yaml,找不到则全部使用默认值
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, p := range ConfigSearchPaths() {
			v.AddConfigPath(p)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	} else {
		utils.Debugf("使用配置文件: %s", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	return &cfg, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	check := models.DefaultCheckConfig()
	v.SetDefault("check.strategy", check.Strategy)
	v.SetDefault("check.redirect_signature", check.RedirectSignature)
	v.SetDefault("check.content_markers", check.ContentMarkers)
	v.SetDefault("check.timeout_seconds", check.TimeoutSeconds)
	v.SetDefault("check.wait_seconds", check.WaitSeconds)
	v.SetDefault("check.threads", check.Threads)
	v.SetDefault("check.headless", check.Headless)
	v.SetDefault("check.browser_bin", "")
	v.SetDefault("check.insecure_skip_verify", false)

	logCfg := utils.DefaultLogConfig()
	v.SetDefault("logging.level", logCfg.Level)
	v.SetDefault("logging.log_dir", logCfg.LogDir)
	v.SetDefault("logging.rotation.max_size", logCfg.MaxSize)
	v.SetDefault("logging.rotation.max_backups", logCfg.MaxBackups)
	v.SetDefault("logging.rotation.max_age", logCfg.MaxAge)
	v.SetDefault("logging.rotation.compress", logCfg.Compress)

	v.SetDefault("output.file", "")
	v.SetDefault("output.format", "csv")
	v.SetDefault("output.metrics_file", "")
	v.SetDefault("output.no_table", false)

	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.max_upload_mb", 5)
	v.SetDefault("server.keep_runs", 20)
}

// CLIOverrides 命令行传入的覆盖值
// 指针为nil表示未在命令行设置,保留配置文件中的值
type CLIOverrides struct {
	Strategy          *string
	RedirectSignature *string
	TimeoutSeconds    *int
	WaitSeconds       *int
	Threads           *int
	Headless          *bool
	LogLevel          *string
	OutputFile        *string
	Format            *string
	MetricsFile       *string
	NoTable           *bool
}

// MergeCLIFlags 合并命令行参数到配置,命令行优先
func (c *Config) MergeCLIFlags(o CLIOverrides) {
	if o.Strategy != nil {
		c.Check.Strategy = *o.Strategy
	}
	if o.RedirectSignature != nil {
		c.Check.RedirectSignature = *o.RedirectSignature
	}
	if o.TimeoutSeconds != nil {
		c.Check.TimeoutSeconds = *o.TimeoutSeconds
	}
	if o.WaitSeconds != nil {
		c.Check.WaitSeconds = *o.WaitSeconds
	}
	if o.Threads != nil {
		c.Check.Threads = *o.Threads
	}
	if o.Headless != nil {
		c.Check.Headless = *o.Headless
	}
	if o.LogLevel != nil {
		c.Logging.Level = *o.LogLevel
	}
	if o.OutputFile != nil {
		c.Output.File = *o.OutputFile
	}
	if o.Format != nil {
		c.Output.Format = *o.Format
	}
	if o.MetricsFile != nil {
		c.Output.MetricsFile = *o.MetricsFile
	}
	if o.NoTable != nil {
		c.Output.NoTable = *o.NoTable
	}
}
