package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/RecoveryAshes/DeadLinkCheck/internal/metrics"
	"github.com/RecoveryAshes/DeadLinkCheck/internal/server"
	"github.com/RecoveryAshes/DeadLinkCheck/internal/utils"
	"github.com/spf13/cobra"
)

var (
	serveAddr   string
	maxUploadMB int
	keepRuns    int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动Web界面",
	Long: `启动Web界面: 上传URL列表(.txt), 选择检查参数, 查看结果表并下载 page_check_results.csv。

同时提供:
  POST /api/check   JSON接口
  GET  /healthz     健康检查
  GET  /metrics     Prometheus指标

最近的运行结果只保存在内存中, 进程退出即丢弃。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg := appConfig.Server
		if cmd.Flags().Changed("addr") {
			cfg.Addr = serveAddr
		}
		if cmd.Flags().Changed("max-upload-mb") {
			cfg.MaxUploadMB = maxUploadMB
		}
		if cmd.Flags().Changed("keep-runs") {
			cfg.KeepRuns = keepRuns
		}

		if err := appConfig.Check.Validate(); err != nil {
			return fmt.Errorf("检查配置无效: %w", err)
		}

		headerManager, err := newHeaderManager()
		if err != nil {
			return err
		}
		if _, err := headerManager.GetHeaders(); err != nil {
			return fmt.Errorf("HTTP头部配置无效: %w", err)
		}

		srv, err := server.New(server.Options{
			Config:   cfg,
			Check:    appConfig.Check,
			Headers:  headerManager,
			Recorder: metrics.NewRecorder().WithProcessCollectors(),
		})
		if err != nil {
			return fmt.Errorf("创建Web服务失败: %w", err)
		}

		if err := srv.Listen(ctx, cfg.Addr); err != nil {
			return fmt.Errorf("Web服务异常退出: %w", err)
		}
		utils.Info("Web服务已关闭")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8080", "监听地址")
	serveCmd.Flags().IntVar(&maxUploadMB, "max-upload-mb", 5, "上传文件大小上限(MB)")
	serveCmd.Flags().IntVar(&keepRuns, "keep-runs", 20, "内存中保留的最近运行数")
}
