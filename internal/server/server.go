// Package server 提供上传URL列表、查看结果、下载CSV的Web界面
package server

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/RecoveryAshes/DeadLinkCheck/internal/core"
	"github.com/RecoveryAshes/DeadLinkCheck/internal/fetchers"
	"github.com/RecoveryAshes/DeadLinkCheck/internal/metrics"
	"github.com/RecoveryAshes/DeadLinkCheck/internal/models"
	"github.com/RecoveryAshes/DeadLinkCheck/internal/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/template/html/v3"
)

//go:embed views
var viewsFS embed.FS

// FetcherFactory 按检查配置创建抓取器,每次运行一个
type FetcherFactory func(cfg models.CheckConfig, headers models.HeaderProvider) models.Fetcher

// Options 服务配置
type Options struct {
	Config     core.ServerConfig
	Check      models.CheckConfig // 表单默认值
	Headers    models.HeaderProvider
	Recorder   *metrics.Recorder
	NewFetcher FetcherFactory // 为空时使用fetchers.New
}

// Server 封装Fiber应用
type Server struct {
	App  *fiber.App
	opts Options
	runs *RunStore

	// 所有检查运行都派生自baseCtx,关闭服务时取消
	baseCtx    context.Context
	cancelRuns context.CancelFunc
}

// New 创建服务并注册路由
func New(opts Options) (*Server, error) {
	if opts.NewFetcher == nil {
		opts.NewFetcher = func(cfg models.CheckConfig, headers models.HeaderProvider) models.Fetcher {
			return fetchers.New(cfg, headers)
		}
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NewRecorder()
	}
	if opts.Config.MaxUploadMB <= 0 {
		opts.Config.MaxUploadMB = 5
	}

	views, err := fs.Sub(viewsFS, "views")
	if err != nil {
		return nil, err
	}
	engine := html.NewFileSystem(http.FS(views), ".html")

	s := &Server{
		opts: opts,
		runs: NewRunStore(opts.Config.KeepRuns),
	}
	s.baseCtx, s.cancelRuns = context.WithCancel(context.Background())

	s.App = fiber.New(fiber.Config{
		Views:        engine,
		ViewsLayout:  "layouts/main",
		BodyLimit:    opts.Config.MaxUploadMB * 1024 * 1024,
		ErrorHandler: s.errorHandler,
	})

	if err := opts.Recorder.Register(&storeCollector{store: s.runs}); err != nil {
		return nil, err
	}

	s.App.Use(recover.New())
	s.App.Use(requestLogger())
	s.App.Use(s.runContext)
	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	s.App.Get("/", s.index)
	s.App.Post("/check", s.check)
	s.App.Get("/runs/:id", s.showRun)
	s.App.Get("/runs/:id/results.csv", s.downloadCSV)
	s.App.Get("/runs/:id/download", s.download)

	s.App.Post("/api/check", s.apiCheck)
	s.App.Get("/api/runs/:id", s.apiRun)

	s.App.Get("/healthz", s.healthz)
	s.App.Get("/metrics", adaptor.HTTPHandler(s.opts.Recorder.Handler()))
}

// Runs 运行结果存储
func (s *Server) Runs() *RunStore {
	return s.runs
}

// CancelRuns 取消所有进行中的检查,未检查的行记为抓取错误
func (s *Server) CancelRuns() {
	s.cancelRuns()
}

// runContext 请求上下文派生自服务的baseCtx
func (s *Server) runContext(c fiber.Ctx) error {
	c.SetContext(s.baseCtx)
	return c.Next()
}

// Listen 启动服务,ctx结束时取消进行中的检查并优雅关闭
func (s *Server) Listen(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.App.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()
	utils.Infof("🌐 Web界面已启动: http://%s", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		utils.Info("正在关闭Web服务...")
		s.CancelRuns()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.App.ShutdownWithContext(shutdownCtx)
	}
}

// errorHandler API路径返回JSON,其余渲染错误页
func (s *Server) errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "服务器内部错误"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	if code >= fiber.StatusInternalServerError {
		utils.Logger.Error().Err(err).Str("path", c.Path()).Msg("请求处理失败")
	}

	if strings.HasPrefix(c.Path(), "/api/") {
		return c.Status(code).JSON(fiber.Map{"error": message})
	}
	return c.Status(code).Render("error", fiber.Map{
		"Title":   "Error",
		"Code":    code,
		"Message": message,
	})
}

// requestLogger 使用全局zerolog记录请求
func requestLogger() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		utils.Logger.Info().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.IP()).
			Msg("HTTP请求")
		return err
	}
}
