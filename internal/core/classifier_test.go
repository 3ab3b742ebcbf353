package core

import (
	"errors"
	"testing"

	"github.com/RecoveryAshes/DeadLinkCheck/internal/models"
)

func newTestRequest(rawURL string, strategy models.Strategy) models.CheckRequest {
	cfg := models.DefaultCheckConfig()
	cfg.Strategy = string(strategy)
	return cfg.NewRequest(rawURL)
}

const oopsBody = "<html><body><h1>Oops!</h1><p>This page is in the shop</p></body></html>"

func TestClassify(t *testing.T) {
	const original = "http://example.com/vdp/123"
	const signatureURL = "https://site.example/catalog?redirectFromMissingVDP=true&x=1"

	tests := []struct {
		name         string
		strategy     models.Strategy
		page         *models.Page
		fetchErr     error
		wantKind     models.StatusKind
		wantCode     int
		wantFinalURL string
		wantLabel    string
	}{
		{
			name:         "跳转到带签名的URL",
			strategy:     models.StrategyHTTP,
			page:         &models.Page{FinalURL: signatureURL, StatusCode: 200, Body: "<html>ok</html>"},
			wantKind:     models.StatusDeadRedirect,
			wantFinalURL: signatureURL,
			wantLabel:    "Dead Page (Redirected)",
		},
		{
			name:         "签名优先于内容指纹和状态码",
			strategy:     models.StrategyHTTP,
			page:         &models.Page{FinalURL: signatureURL, StatusCode: 404, Body: oopsBody},
			wantKind:     models.StatusDeadRedirect,
			wantFinalURL: signatureURL,
			wantLabel:    "Dead Page (Redirected)",
		},
		{
			name:         "内容同时包含两个指纹",
			strategy:     models.StrategyHTTP,
			page:         &models.Page{FinalURL: "http://example.com/other", StatusCode: 200, Body: oopsBody},
			wantKind:     models.StatusDeadContent,
			wantFinalURL: original,
			wantLabel:    "Dead Page (Error Message)",
		},
		{
			name:         "内容指纹优先于状态码",
			strategy:     models.StrategyHTTP,
			page:         &models.Page{FinalURL: original, StatusCode: 500, Body: oopsBody},
			wantKind:     models.StatusDeadContent,
			wantFinalURL: original,
			wantLabel:    "Dead Page (Error Message)",
		},
		{
			name:         "只包含一个指纹不算死链",
			strategy:     models.StrategyHTTP,
			page:         &models.Page{FinalURL: original, StatusCode: 200, Body: "Oops! something"},
			wantKind:     models.StatusLive,
			wantFinalURL: original,
			wantLabel:    "Live Page",
		},
		{
			name:         "404普通页面",
			strategy:     models.StrategyHTTP,
			page:         &models.Page{FinalURL: original, StatusCode: 404, Body: "not found"},
			wantKind:     models.StatusHTTPError,
			wantCode:     404,
			wantFinalURL: original,
			wantLabel:    "Error: HTTP 404",
		},
		{
			name:         "浏览器策略忽略状态码",
			strategy:     models.StrategyBrowser,
			page:         &models.Page{FinalURL: original, StatusCode: 404, Body: "not found"},
			wantKind:     models.StatusLive,
			wantFinalURL: original,
			wantLabel:    "Live Page",
		},
		{
			name:         "正常页面返回跳转后的URL",
			strategy:     models.StrategyHTTP,
			page:         &models.Page{FinalURL: "https://example.com/vdp/123/", StatusCode: 200, Body: "hello"},
			wantKind:     models.StatusLive,
			wantFinalURL: "https://example.com/vdp/123/",
			wantLabel:    "Live Page",
		},
		{
			name:         "3xx以下状态码视为正常",
			strategy:     models.StrategyHTTP,
			page:         &models.Page{FinalURL: original, StatusCode: 399},
			wantKind:     models.StatusLive,
			wantFinalURL: original,
			wantLabel:    "Live Page",
		},
		{
			name:         "抓取失败",
			strategy:     models.StrategyHTTP,
			fetchErr:     errors.New("dial tcp: connection refused"),
			wantKind:     models.StatusFetchError,
			wantFinalURL: original,
			wantLabel:    "Error: dial tcp: connection refused",
		},
		{
			name:         "抓取失败时忽略页面",
			strategy:     models.StrategyBrowser,
			page:         &models.Page{FinalURL: signatureURL},
			fetchErr:     errors.New("navigation failed"),
			wantKind:     models.StatusFetchError,
			wantFinalURL: original,
			wantLabel:    "Error: navigation failed",
		},
		{
			name:         "FinalURL为空时回退到原始URL",
			strategy:     models.StrategyBrowser,
			page:         &models.Page{Body: "hello"},
			wantKind:     models.StatusLive,
			wantFinalURL: original,
			wantLabel:    "Live Page",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newTestRequest(original, tt.strategy)
			got := Classify(req, tt.page, tt.fetchErr)

			if got.Kind != tt.wantKind {
				t.Errorf("Kind = %s, 期望 %s", got.Kind, tt.wantKind)
			}
			if got.Code != tt.wantCode {
				t.Errorf("Code = %d, 期望 %d", got.Code, tt.wantCode)
			}
			if got.FinalURL != tt.wantFinalURL {
				t.Errorf("FinalURL = %q, 期望 %q", got.FinalURL, tt.wantFinalURL)
			}
			if got.Label() != tt.wantLabel {
				t.Errorf("Label = %q, 期望 %q", got.Label(), tt.wantLabel)
			}
		})
	}
}

func TestClassify_DisabledChecks(t *testing.T) {
	t.Run("空签名不检查跳转", func(t *testing.T) {
		req := newTestRequest("http://example.com/a", models.StrategyHTTP)
		req.RedirectSignature = ""
		page := &models.Page{FinalURL: "http://example.com/b?redirectFromMissingVDP=true", StatusCode: 200}

		if got := Classify(req, page, nil); got.Kind != models.StatusLive {
			t.Errorf("空签名时应为Live, 得到 %s", got.Kind)
		}
	})

	t.Run("空指纹列表不检查内容", func(t *testing.T) {
		req := newTestRequest("http://example.com/a", models.StrategyHTTP)
		req.ContentMarkers = nil
		page := &models.Page{FinalURL: "http://example.com/a", StatusCode: 200, Body: oopsBody}

		if got := Classify(req, page, nil); got.Kind != models.StatusLive {
			t.Errorf("空指纹时应为Live, 得到 %s", got.Kind)
		}
	})

	t.Run("自定义签名", func(t *testing.T) {
		req := newTestRequest("http://example.com/a", models.StrategyHTTP)
		req.RedirectSignature = "/gone"
		page := &models.Page{FinalURL: "http://example.com/gone", StatusCode: 200}

		if got := Classify(req, page, nil); got.Kind != models.StatusDeadRedirect {
			t.Errorf("自定义签名应命中, 得到 %s", got.Kind)
		}
	})
}

func TestClassify_Evidence(t *testing.T) {
	req := newTestRequest("http://example.com/a", models.StrategyHTTP)
	page := &models.Page{FinalURL: "http://example.com/a", StatusCode: 200, Title: "Hello"}

	got := Classify(req, page, nil)
	if got.StatusCode != 200 || got.Title != "Hello" {
		t.Errorf("应保留状态码和标题作为证据: %+v", got)
	}
}
