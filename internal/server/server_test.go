package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/RecoveryAshes/DeadLinkCheck/internal/core"
	"github.com/RecoveryAshes/DeadLinkCheck/internal/models"
	"github.com/gofiber/fiber/v3"
)

// stubFetcher 根据URL返回固定页面
type stubFetcher struct {
	closed bool
}

func (f *stubFetcher) Fetch(_ context.Context, req models.CheckRequest) (*models.Page, error) {
	switch {
	case strings.HasSuffix(req.URL, "/moved"):
		return &models.Page{FinalURL: "https://site.example/catalog?redirectFromMissingVDP=true&x=1", StatusCode: 200}, nil
	case strings.HasSuffix(req.URL, "/missing"):
		return &models.Page{FinalURL: req.URL, StatusCode: 404, Body: "not found"}, nil
	case strings.HasSuffix(req.URL, "/down"):
		return nil, errors.New("connection refused")
	default:
		return &models.Page{FinalURL: req.URL, StatusCode: 200, Body: "ok", Title: "OK"}, nil
	}
}

func (f *stubFetcher) Close() error {
	f.closed = true
	return nil
}

type testEnv struct {
	server   *Server
	fetchers []*stubFetcher
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{}

	s, err := New(Options{
		Config: core.ServerConfig{KeepRuns: 2, MaxUploadMB: 1},
		Check:  models.DefaultCheckConfig(),
		NewFetcher: func(cfg models.CheckConfig, _ models.HeaderProvider) models.Fetcher {
			f := &stubFetcher{}
			env.fetchers = append(env.fetchers, f)
			return f
		},
	})
	if err != nil {
		t.Fatalf("创建服务失败: %v", err)
	}
	env.server = s
	return env
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := e.server.App.Test(req, fiber.TestConfig{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("请求失败: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp, string(body)
}

func uploadRequest(t *testing.T, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		part.Write([]byte(content))
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/check", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

const uploadList = "http://example.com/ok\n\nhttp://example.com/moved\nhttp://example.com/missing\n  \nhttp://example.com/down\n"

func TestIndex(t *testing.T) {
	env := newTestServer(t)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("状态码 = %d", resp.StatusCode)
	}
	for _, want := range []string{`name="file"`, `redirectFromMissingVDP=true`, `value="browser"`} {
		if !strings.Contains(body, want) {
			t.Errorf("首页缺少 %q", want)
		}
	}
}

func TestCheckUploadAndDownload(t *testing.T) {
	env := newTestServer(t)

	resp, _ := env.do(t, uploadRequest(t, "urls.txt", uploadList, map[string]string{"threads": "2"}))
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("上传后应跳转到结果页, 状态码 = %d", resp.StatusCode)
	}
	location := resp.Header.Get("Location")
	if !strings.HasPrefix(location, "/runs/") {
		t.Fatalf("跳转地址错误: %q", location)
	}
	if len(env.fetchers) != 1 || !env.fetchers[0].closed {
		t.Error("每次运行应创建并关闭一个抓取器")
	}

	t.Run("结果页", func(t *testing.T) {
		resp, body := env.do(t, httptest.NewRequest(http.MethodGet, location, nil))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("状态码 = %d", resp.StatusCode)
		}
		for _, want := range []string{"Live Page", "Dead Page (Redirected)", "Error: HTTP 404", "Error: connection refused", "results.csv"} {
			if !strings.Contains(body, want) {
				t.Errorf("结果页缺少 %q", want)
			}
		}
	})

	t.Run("下载CSV", func(t *testing.T) {
		resp, body := env.do(t, httptest.NewRequest(http.MethodGet, location+"/results.csv", nil))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("状态码 = %d", resp.StatusCode)
		}
		if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "page_check_results.csv") {
			t.Errorf("Content-Disposition = %q", cd)
		}

		want := "URL,Status,Final URL\n" +
			"http://example.com/ok,Live Page,http://example.com/ok\n" +
			"http://example.com/moved,Dead Page (Redirected),https://site.example/catalog?redirectFromMissingVDP=true&x=1\n" +
			"http://example.com/missing,Error: HTTP 404,http://example.com/missing\n" +
			"http://example.com/down,Error: connection refused,http://example.com/down\n"
		if body != want {
			t.Errorf("CSV内容错误:\n%s\n期望:\n%s", body, want)
		}
	})

	t.Run("下载JSON", func(t *testing.T) {
		resp, body := env.do(t, httptest.NewRequest(http.MethodGet, location+"/download?format=json", nil))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("状态码 = %d", resp.StatusCode)
		}
		var report models.RunReport
		if err := json.Unmarshal([]byte(body), &report); err != nil {
			t.Fatalf("JSON解析失败: %v", err)
		}
		if len(report.Rows) != 4 || report.Config.Threads != 2 {
			t.Errorf("报告内容错误: rows=%d threads=%d", len(report.Rows), report.Config.Threads)
		}
	})

	t.Run("不支持的格式", func(t *testing.T) {
		resp, _ := env.do(t, httptest.NewRequest(http.MethodGet, location+"/download?format=pdf", nil))
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("状态码 = %d, 期望400", resp.StatusCode)
		}
	})
}

func TestCheckUploadErrors(t *testing.T) {
	env := newTestServer(t)

	tests := []struct {
		name     string
		filename string
		content  string
		fields   map[string]string
	}{
		{"缺少文件", "", "", nil},
		{"非txt文件", "urls.csv", uploadList, nil},
		{"空文件", "urls.txt", "\n  \n", nil},
		{"超时超出范围", "urls.txt", uploadList, map[string]string{"timeout_seconds": "60"}},
		{"并发不是整数", "urls.txt", uploadList, map[string]string{"threads": "many"}},
		{"无效策略", "urls.txt", uploadList, map[string]string{"strategy": "curl"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, uploadRequest(t, tt.filename, tt.content, tt.fields))
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("状态码 = %d, 期望400: %s", resp.StatusCode, body)
			}
		})
	}
	if len(env.fetchers) != 0 {
		t.Error("参数错误时不应运行检查")
	}
}

func TestCheckUpload_EmptySignatureDisablesCheck(t *testing.T) {
	env := newTestServer(t)

	resp, _ := env.do(t, uploadRequest(t, "urls.txt", "http://example.com/moved\n", map[string]string{"redirect_signature": ""}))
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("状态码 = %d", resp.StatusCode)
	}

	id := strings.TrimPrefix(resp.Header.Get("Location"), "/runs/")
	report, ok := env.server.Runs().Get(id)
	if !ok {
		t.Fatal("运行结果未保存")
	}
	if report.Rows[0].Kind != models.StatusLive.String() {
		t.Errorf("空签名时应为live, 得到 %s", report.Rows[0].Kind)
	}
}

func TestAPICheck(t *testing.T) {
	env := newTestServer(t)

	body := `{"urls": ["http://example.com/ok", " ", "http://example.com/missing"], "threads": 2}`
	req := httptest.NewRequest(http.MethodPost, "/api/check", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, respBody := env.do(t, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("状态码 = %d: %s", resp.StatusCode, respBody)
	}

	var report models.RunReport
	if err := json.Unmarshal([]byte(respBody), &report); err != nil {
		t.Fatalf("JSON解析失败: %v", err)
	}
	if len(report.Rows) != 2 {
		t.Fatalf("行数 = %d, 期望 2", len(report.Rows))
	}
	if report.Rows[1].Status != "Error: HTTP 404" {
		t.Errorf("第二行状态 = %q", report.Rows[1].Status)
	}

	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/runs/"+report.RunID, nil))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("按ID查询状态码 = %d", resp.StatusCode)
	}
}

func TestAPICheck_Errors(t *testing.T) {
	env := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"非法JSON", `{"urls": [`},
		{"空列表", `{"urls": []}`},
		{"并发超出范围", `{"urls": ["http://example.com"], "threads": 64}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/check", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			resp, body := env.do(t, req)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("状态码 = %d, 期望400", resp.StatusCode)
			}
			if !strings.Contains(body, `"error"`) {
				t.Errorf("API错误应返回JSON: %s", body)
			}
		})
	}
}

func TestRunNotFound(t *testing.T) {
	env := newTestServer(t)

	for _, path := range []string{"/runs/nope", "/runs/nope/results.csv", "/api/runs/nope"} {
		resp, _ := env.do(t, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s 状态码 = %d, 期望404", path, resp.StatusCode)
		}
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	env := newTestServer(t)
	env.do(t, uploadRequest(t, "urls.txt", uploadList, nil))

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"status":"ok"`) {
		t.Errorf("healthz = %d %s", resp.StatusCode, body)
	}

	resp, body = env.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics状态码 = %d", resp.StatusCode)
	}
	for _, want := range []string{
		`deadlinkcheck_checks_total{status="live",strategy="http"} 1`,
		`deadlinkcheck_runs_total{outcome="completed"} 1`,
		`deadlinkcheck_stored_runs 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("指标缺少 %q", want)
		}
	}
}

// blockingFetcher 阻塞到context结束
type blockingFetcher struct {
	started chan struct{}
	once    sync.Once
}

func (f *blockingFetcher) Fetch(ctx context.Context, _ models.CheckRequest) (*models.Page, error) {
	f.once.Do(func() { close(f.started) })
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *blockingFetcher) Close() error { return nil }

func TestCancelRuns_StopsRunningCheck(t *testing.T) {
	fetcher := &blockingFetcher{started: make(chan struct{})}
	s, err := New(Options{
		Config: core.ServerConfig{KeepRuns: 2, MaxUploadMB: 1},
		Check:  models.DefaultCheckConfig(),
		NewFetcher: func(models.CheckConfig, models.HeaderProvider) models.Fetcher {
			return fetcher
		},
	})
	if err != nil {
		t.Fatalf("创建服务失败: %v", err)
	}

	type result struct {
		resp *http.Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/api/check",
			strings.NewReader(`{"urls": ["http://example.com/a", "http://example.com/b"]}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := s.App.Test(req, fiber.TestConfig{Timeout: 10 * time.Second})
		done <- result{resp, err}
	}()

	select {
	case <-fetcher.started:
	case <-time.After(5 * time.Second):
		t.Fatal("检查未开始")
	}
	s.CancelRuns()

	var r result
	select {
	case r = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("取消后检查未结束")
	}
	if r.err != nil {
		t.Fatalf("请求失败: %v", r.err)
	}
	defer r.resp.Body.Close()

	var report models.RunReport
	if err := json.NewDecoder(r.resp.Body).Decode(&report); err != nil {
		t.Fatalf("JSON解析失败: %v", err)
	}
	if len(report.Rows) != 2 {
		t.Fatalf("行数 = %d, 期望 2", len(report.Rows))
	}
	for _, row := range report.Rows {
		if row.Kind != models.StatusFetchError.String() {
			t.Errorf("%s: 期望抓取错误, 得到 %s (%s)", row.URL, row.Kind, row.Status)
		}
	}
	if _, ok := s.Runs().Get(report.RunID); !ok {
		t.Error("被取消的运行也应保存")
	}
}
