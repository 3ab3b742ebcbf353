package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RecoveryAshes/DeadLinkCheck/internal/core"
	"github.com/RecoveryAshes/DeadLinkCheck/internal/fetchers"
	"github.com/RecoveryAshes/DeadLinkCheck/internal/metrics"
	"github.com/RecoveryAshes/DeadLinkCheck/internal/models"
	"github.com/RecoveryAshes/DeadLinkCheck/internal/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string

	// HTTP头部参数
	headers        []string
	validateConfig bool

	// 检查参数
	urlFile           string
	urls              []string
	strategy          string
	timeoutSeconds    int
	waitSeconds       int
	redirectSignature string
	threads           int
	headless          bool

	// 输出参数
	outputFile  string
	format      string
	metricsFile string
	noTable     bool
)

// appConfig 在PersistentPreRunE中加载并合并命令行参数
var appConfig *core.Config

var rootCmd = &cobra.Command{
	Use:   "deadlinkcheck",
	Short: "批量检查URL是否为死链",
	Long: `DeadLinkCheck - 批量死链检查工具

读取URL列表,逐个抓取并判定:
  • Live Page                 页面正常
  • Dead Page (Redirected)    跳转到带签名的落地页
  • Dead Page (Error Message) 页面内容命中错误指纹
  • Error: HTTP <code>        HTTP状态码 >= 400
  • Error: <message>          网络/超时/浏览器故障

结果按输入顺序写入 page_check_results.csv (URL,Status,Final URL)。

示例:
  # 普通HTTP检查
  deadlinkcheck -f urls.txt

  # 浏览器检查(执行客户端跳转), 4个并发
  deadlinkcheck -f urls.txt -s browser --threads 4

  # 自定义请求头
  deadlinkcheck -u https://example.com/item/1 -H "Cookie: session=abc"

  # 启动Web界面
  deadlinkcheck serve --addr 127.0.0.1:8080

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}
		config.MergeCLIFlags(cliOverrides(cmd))
		appConfig = config

		if err := utils.InitLogger(config.LogConfig()); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}
		if verbose {
			utils.Info("详细模式已启用")
		}
		return nil
	},
	RunE: runCheck,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("DeadLinkCheck %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

// cliOverrides 只收集用户显式设置的参数
func cliOverrides(cmd *cobra.Command) core.CLIOverrides {
	var o core.CLIOverrides
	flags := cmd.Flags()
	if flags.Changed("strategy") {
		o.Strategy = &strategy
	}
	if flags.Changed("redirect-signature") {
		o.RedirectSignature = &redirectSignature
	}
	if flags.Changed("timeout") {
		o.TimeoutSeconds = &timeoutSeconds
	}
	if flags.Changed("wait") {
		o.WaitSeconds = &waitSeconds
	}
	if flags.Changed("threads") {
		o.Threads = &threads
	}
	if flags.Changed("headless") {
		o.Headless = &headless
	}
	if flags.Changed("log-level") {
		o.LogLevel = &logLevel
	} else if verbose {
		debug := "debug"
		o.LogLevel = &debug
	}
	if flags.Changed("output") {
		o.OutputFile = &outputFile
	}
	if flags.Changed("format") {
		o.Format = &format
	}
	if flags.Changed("metrics-file") {
		o.MetricsFile = &metricsFile
	}
	if flags.Changed("no-table") {
		o.NoTable = &noTable
	}
	return o
}

// newHeaderManager 请求头配置与主配置文件同目录
func newHeaderManager() (*core.HeaderManager, error) {
	hm, err := core.NewHeaderManager(appConfig.HeadersFile(configFile), headers)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP头部管理器失败: %w", err)
	}
	return hm, nil
}

func runValidateConfig(hm *core.HeaderManager) error {
	utils.Info("🔍 验证配置...")
	if err := appConfig.Check.Validate(); err != nil {
		return fmt.Errorf("检查配置验证失败: %w", err)
	}
	if _, err := hm.GetHeaders(); err != nil {
		return fmt.Errorf("HTTP头部配置验证失败: %w", err)
	}

	safeHeaders := hm.GetSafeHeaders()
	utils.Info("✅ 配置验证通过!")
	utils.Infof("当前有效的HTTP头部 (%d个):", len(safeHeaders))
	for name, value := range safeHeaders {
		utils.Infof("  %s: %s", name, value)
	}
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	headerManager, err := newHeaderManager()
	if err != nil {
		return err
	}
	if validateConfig {
		return runValidateConfig(headerManager)
	}

	if urlFile == "" && len(urls) == 0 {
		return cmd.Help()
	}
	if cmd.Flags().Changed("url-file") {
		if err := ValidateURLFile(urlFile); err != nil {
			return err
		}
	}

	cfg := appConfig.Check
	if err := ValidateFlags(cfg, appConfig.Output.Format); err != nil {
		return err
	}
	outPath, outFormat, err := ResolveOutput(appConfig.Output.File, appConfig.Output.Format, cmd.Flags().Changed("format"))
	if err != nil {
		return err
	}

	// 请求头错误在开始前报告,而不是让每个URL都失败
	if _, err := headerManager.GetHeaders(); err != nil {
		return fmt.Errorf("HTTP头部配置无效: %w", err)
	}
	utils.Debugf("请求头: %v", headerManager.GetSafeHeaders())

	targets, err := CollectURLs(urlFile, urls)
	if err != nil {
		return fmt.Errorf("读取URL失败: %w", err)
	}
	if len(targets) == 0 {
		return errors.New("没有需要检查的URL")
	}

	fetcher := fetchers.New(cfg, headerManager)
	defer func() {
		if err := fetcher.Close(); err != nil {
			utils.Warnf("释放抓取器失败: %v", err)
		}
	}()

	recorder := metrics.NewRecorder()
	bar := utils.NewProgressBar(len(targets), "🔗 检查中")
	runner := core.NewRunner(core.NewChecker(fetcher, recorder), cfg).
		OnProgress(func(done, total int, item models.IndexedResult) {
			_ = bar.Add(1)
		})

	start := time.Now()
	table, runErr := runner.Run(ctx, targets)
	_ = bar.Finish()
	recorder.ObserveRun(runErr)

	report := models.NewRunReport(models.NewRunID(), cfg, table, start, time.Now())

	// 被中断时也写出完整报告,未检查的行已填充为错误
	if err := utils.NewReporter(outFormat).WriteFile(outPath, report); err != nil {
		return fmt.Errorf("写入报告失败: %w", err)
	}

	if !appConfig.Output.NoTable {
		fmt.Fprintln(os.Stdout)
		utils.PrintResultTable(os.Stdout, table.Rows)
	}
	utils.PrintSummary(os.Stdout, report.Summary)

	if appConfig.Output.MetricsFile != "" {
		if err := recorder.WriteTextfile(appConfig.Output.MetricsFile); err != nil {
			utils.Error(err, "写入指标文件失败")
		}
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return fmt.Errorf("检查被中断: %w", runErr)
		}
		return runErr
	}
	utils.Info("✨ 检查完成!")
	return nil
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径 (默认查找 ./configs/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	// HTTP头部参数
	rootCmd.PersistentFlags().StringArrayVarP(&headers, "header", "H", []string{}, "自定义HTTP头部,格式: 'Name: Value',可多次指定")
	rootCmd.PersistentFlags().BoolVar(&validateConfig, "validate-config", false, "验证配置文件正确性")

	// 检查参数
	rootCmd.PersistentFlags().StringVarP(&strategy, "strategy", "s", "http", "抓取策略 (http|browser)")
	rootCmd.PersistentFlags().IntVarP(&timeoutSeconds, "timeout", "t", 10, "HTTP请求超时(秒, 5-30)")
	rootCmd.PersistentFlags().IntVarP(&waitSeconds, "wait", "w", 3, "浏览器导航后等待时间(秒, 1-5)")
	rootCmd.PersistentFlags().StringVarP(&redirectSignature, "redirect-signature", "r", models.DefaultRedirectSignature, "跳转签名,最终URL包含它即判定为死链 (空字符串关闭)")
	rootCmd.PersistentFlags().IntVar(&threads, "threads", 1, "并发数 (1-16)")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", true, "无头浏览器模式")

	rootCmd.Flags().StringVarP(&urlFile, "url-file", "f", "", "URL列表文件,每行一个URL")
	rootCmd.Flags().StringArrayVarP(&urls, "url", "u", []string{}, "待检查的URL,可多次指定")

	// 输出参数
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "报告文件路径 (默认 page_check_results.<格式扩展名>)")
	rootCmd.Flags().StringVar(&format, "format", "csv", "报告格式 (csv|json|markdown|xlsx)")
	rootCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "写入Prometheus文本格式指标的文件")
	rootCmd.Flags().BoolVar(&noTable, "no-table", false, "不在终端打印结果表")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
