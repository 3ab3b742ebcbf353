package server

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/RecoveryAshes/DeadLinkCheck/internal/core"
	"github.com/RecoveryAshes/DeadLinkCheck/internal/models"
	"github.com/RecoveryAshes/DeadLinkCheck/internal/utils"
	"github.com/gofiber/fiber/v3"
)

// index 上传表单
func (s *Server) index(c fiber.Ctx) error {
	return c.Render("index", fiber.Map{
		"Title":      "Dead Link Check",
		"Config":     s.opts.Check,
		"Strategies": []models.Strategy{models.StrategyHTTP, models.StrategyBrowser},
		"Limits":     limits(),
		"Recent":     s.runs.Recent(),
	})
}

// check 表单提交: 上传.txt文件,运行检查并显示结果
func (s *Server) check(c fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "请上传URL列表文件")
	}

	cfg, err := s.configFromForm(form)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	files := form.File["file"]
	if len(files) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "请上传URL列表文件")
	}
	urls, err := readUploadedURLs(files[0])
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	report, err := s.runCheck(c.Context(), cfg, urls)
	if err != nil {
		utils.Warnf("Web检查未完成: %v", err)
	}
	return c.Redirect().Status(fiber.StatusSeeOther).To("/runs/" + report.RunID)
}

// showRun 结果表
func (s *Server) showRun(c fiber.Ctx) error {
	report, ok := s.runs.Get(c.Params("id"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "运行结果不存在或已过期")
	}
	return c.Render("results", fiber.Map{
		"Title":  "Results",
		"Report": report,
		"Kinds":  summaryRows(report.Summary),
	})
}

// downloadCSV 下载 page_check_results.csv
func (s *Server) downloadCSV(c fiber.Ctx) error {
	return s.sendReport(c, utils.FormatCSV)
}

// download 按?format=下载任意格式的报告
func (s *Server) download(c fiber.Ctx) error {
	format, err := utils.ParseFormat(c.Query("format"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return s.sendReport(c, format)
}

func (s *Server) sendReport(c fiber.Ctx, format utils.Format) error {
	report, ok := s.runs.Get(c.Params("id"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "运行结果不存在或已过期")
	}

	c.Attachment(format.DefaultFileName())
	c.Set(fiber.HeaderContentType, format.ContentType())
	return utils.NewReporter(format).Write(c, report)
}

// apiCheckRequest POST /api/check 请求体
// 未设置的字段使用服务端默认值
type apiCheckRequest struct {
	URLs              []string `json:"urls"`
	Strategy          *string  `json:"strategy"`
	RedirectSignature *string  `json:"redirect_signature"`
	ContentMarkers    []string `json:"content_markers"`
	TimeoutSeconds    *int     `json:"timeout_seconds"`
	WaitSeconds       *int     `json:"wait_seconds"`
	Threads           *int     `json:"threads"`
}

// apiCheck JSON接口,返回完整报告
func (s *Server) apiCheck(c fiber.Ctx) error {
	var req apiCheckRequest
	if err := c.Bind().JSON(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "请求体不是合法的JSON")
	}

	cfg := s.defaultCheckConfig()
	if req.Strategy != nil {
		cfg.Strategy = *req.Strategy
	}
	if req.RedirectSignature != nil {
		cfg.RedirectSignature = *req.RedirectSignature
	}
	if req.ContentMarkers != nil {
		cfg.ContentMarkers = req.ContentMarkers
	}
	if req.TimeoutSeconds != nil {
		cfg.TimeoutSeconds = *req.TimeoutSeconds
	}
	if req.WaitSeconds != nil {
		cfg.WaitSeconds = *req.WaitSeconds
	}
	if req.Threads != nil {
		cfg.Threads = *req.Threads
	}
	if err := cfg.Validate(); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	urls := make([]string, 0, len(req.URLs))
	for _, u := range req.URLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "urls不能为空")
	}

	report, err := s.runCheck(c.Context(), cfg, urls)
	if err != nil {
		utils.Warnf("API检查未完成: %v", err)
	}
	return c.JSON(report)
}

// apiRun 按ID返回已保存的报告
func (s *Server) apiRun(c fiber.Ctx) error {
	report, ok := s.runs.Get(c.Params("id"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "运行结果不存在或已过期")
	}
	return c.JSON(report)
}

func (s *Server) healthz(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"runs":   s.runs.Len(),
	})
}

// runCheck 为本次运行创建抓取器,运行结束后释放
// 被取消时仍保存已得到的结果
func (s *Server) runCheck(ctx context.Context, cfg models.CheckConfig, urls []string) (*models.RunReport, error) {
	fetcher := s.opts.NewFetcher(cfg, s.opts.Headers)
	defer func() {
		if err := fetcher.Close(); err != nil {
			utils.Warnf("释放抓取器失败: %v", err)
		}
	}()

	start := time.Now()
	table, err := core.NewRunner(core.NewChecker(fetcher, s.opts.Recorder), cfg).Run(ctx, urls)
	s.opts.Recorder.ObserveRun(err)

	report := models.NewRunReport(models.NewRunID(), cfg, table, start, time.Now())
	s.runs.Add(report)
	return report, err
}

func (s *Server) defaultCheckConfig() models.CheckConfig {
	cfg := s.opts.Check
	cfg.ContentMarkers = append([]string(nil), s.opts.Check.ContentMarkers...)
	return cfg
}

// configFromForm 表单值覆盖默认配置
// redirect_signature字段存在但为空时表示关闭跳转检查
func (s *Server) configFromForm(form *multipart.Form) (models.CheckConfig, error) {
	cfg := s.defaultCheckConfig()

	if v := formValue(form, "strategy"); v != "" {
		cfg.Strategy = v
	}
	if values, ok := form.Value["redirect_signature"]; ok && len(values) > 0 {
		cfg.RedirectSignature = strings.TrimSpace(values[0])
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"timeout_seconds", &cfg.TimeoutSeconds},
		{"wait_seconds", &cfg.WaitSeconds},
		{"threads", &cfg.Threads},
	}
	for _, f := range ints {
		v := formValue(form, f.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("参数 %s 必须是整数: %q", f.name, v)
		}
		*f.dst = n
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func formValue(form *multipart.Form, name string) string {
	if values := form.Value[name]; len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}

// readUploadedURLs 只接受.txt文件
func readUploadedURLs(fh *multipart.FileHeader) ([]string, error) {
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".txt") {
		return nil, fmt.Errorf("只支持.txt文件: %s", fh.Filename)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("读取上传文件失败: %w", err)
	}
	defer f.Close()

	urls, err := utils.ParseURLList(f)
	if err != nil {
		return nil, fmt.Errorf("解析URL列表失败: %w", err)
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("文件中没有URL")
	}
	return urls, nil
}

type limitsView struct {
	MinTimeout, MaxTimeout int
	MinWait, MaxWait       int
	MinThreads, MaxThreads int
}

func limits() limitsView {
	return limitsView{
		MinTimeout: models.MinTimeoutSeconds, MaxTimeout: models.MaxTimeoutSeconds,
		MinWait: models.MinWaitSeconds, MaxWait: models.MaxWaitSeconds,
		MinThreads: models.MinThreads, MaxThreads: models.MaxThreads,
	}
}

type kindCount struct {
	Kind  string
	Count int
}

// summaryRows 按固定顺序列出各类别数量
func summaryRows(summary models.Summary) []kindCount {
	rows := make([]kindCount, 0, len(models.AllStatusKinds))
	for _, kind := range models.AllStatusKinds {
		rows = append(rows, kindCount{Kind: kind.String(), Count: summary.ByKind[kind.String()]})
	}
	return rows
}
