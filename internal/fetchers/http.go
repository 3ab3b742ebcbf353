package fetchers

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/RecoveryAshes/DeadLinkCheck/internal/models"
	"github.com/RecoveryAshes/DeadLinkCheck/internal/utils"
	"github.com/gocolly/colly/v2"
	"golang.org/x/net/publicsuffix"
)

// HTTPFetcherConfig HTTP抓取器配置
type HTTPFetcherConfig struct {
	Timeout            time.Duration // 默认请求超时,CheckRequest.Timeout优先
	InsecureSkipVerify bool          // 跳过TLS证书验证
}

// HTTPFetcher 基于Colly的HTTP抓取器
// 不执行JavaScript,跟随服务端跳转,记录最终URL、状态码和响应体
type HTTPFetcher struct {
	collector      *colly.Collector
	config         HTTPFetcherConfig
	headerProvider models.HeaderProvider
}

// NewHTTPFetcher 创建HTTP抓取器
func NewHTTPFetcher(config HTTPFetcherConfig, headerProvider models.HeaderProvider) *HTTPFetcher {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	// 同一URL可能在列表中出现多次,每次都要真实请求
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
	)

	// 4xx/5xx也交给OnResponse,状态码由分类器判断
	c.ParseHTTPErrorResponse = true
	// 内容指纹可能出现在页面任意位置,不截断响应体
	c.MaxBodySize = 0
	c.SetRequestTimeout(config.Timeout)
	c.WithTransport(&decodingTransport{
		base: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: config.InsecureSkipVerify,
			},
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     30 * time.Second,
		},
	})

	// 跳转链上设置的会话Cookie按公共后缀划分作用域
	if jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List}); err == nil {
		c.SetCookieJar(jar)
	}

	if config.InsecureSkipVerify {
		utils.Warnf("HTTP抓取器已配置为跳过HTTPS证书验证")
	}
	utils.Debugf("HTTP抓取器: 超时 %v", config.Timeout)

	return &HTTPFetcher{
		collector:      c,
		config:         config,
		headerProvider: headerProvider,
	}
}

// Fetch 抓取URL并跟随跳转
// 每次调用克隆一个collector,回调只作用于本次请求,多个worker可以并发调用
func (hf *HTTPFetcher) Fetch(ctx context.Context, req models.CheckRequest) (*models.Page, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = hf.config.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := hf.collector.Clone()
	c.Context = ctx
	c.ParseHTTPErrorResponse = true

	var (
		mu       sync.Mutex
		page     *models.Page
		fetchErr error
	)

	c.OnRequest(func(r *colly.Request) {
		hf.applyHeaders(r)
		utils.Debugf("请求: %s", r.URL.String())
	})

	c.OnResponse(func(r *colly.Response) {
		mu.Lock()
		page = &models.Page{
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       string(r.Body),
		}
		mu.Unlock()
	})

	c.OnHTML("title", func(e *colly.HTMLElement) {
		mu.Lock()
		defer mu.Unlock()
		if page != nil && page.Title == "" {
			page.Title = strings.TrimSpace(e.Text)
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		mu.Lock()
		defer mu.Unlock()
		if fetchErr == nil {
			fetchErr = err
		}
	})

	visitErr := c.Visit(req.URL)

	mu.Lock()
	defer mu.Unlock()

	if fetchErr == nil {
		fetchErr = visitErr
	}
	if fetchErr != nil {
		// 超时时优先报告context错误,信息更明确
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(fetchErr, ctxErr) {
			return nil, ctxErr
		}
		return nil, fetchErr
	}
	if page == nil {
		return nil, errors.New("未收到响应")
	}
	if page.FinalURL == "" {
		page.FinalURL = req.URL
	}
	return page, nil
}

// applyHeaders 应用合并后的请求头
func (hf *HTTPFetcher) applyHeaders(r *colly.Request) {
	if hf.headerProvider == nil {
		return
	}
	headers, err := hf.headerProvider.GetHeaders()
	if err != nil {
		utils.Warnf("获取HTTP头部失败: %v", err)
		return
	}
	for name, values := range headers {
		if len(values) > 0 {
			r.Headers.Set(name, values[0])
		}
	}
}

// Close HTTP抓取器没有需要释放的资源
func (hf *HTTPFetcher) Close() error {
	return nil
}
