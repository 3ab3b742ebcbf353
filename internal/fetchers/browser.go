package fetchers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/RecoveryAshes/DeadLinkCheck/internal/models"
	"github.com/RecoveryAshes/DeadLinkCheck/internal/utils"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// ErrBrowserClosed 浏览器已关闭
var ErrBrowserClosed = errors.New("浏览器已关闭")

// BrowserFetcherConfig 浏览器抓取器配置
type BrowserFetcherConfig struct {
	Headless           bool
	BrowserBin         string // 为空时由rod自动查找或下载
	InsecureSkipVerify bool
	MaxTabs            int // 标签页上限,通常等于并发数
}

// BrowserFetcher 基于go-rod的浏览器抓取器
//
// 浏览器在第一次Fetch时启动,之后整个运行期间复用;标签页来自PagePool。
// 启动失败不重试,之后的每次Fetch都返回同一个错误。
type BrowserFetcher struct {
	config         BrowserFetcherConfig
	headerProvider models.HeaderProvider

	mu         sync.Mutex
	launcher   *launcher.Launcher
	browser    *rod.Browser
	pagePool   *PagePool
	monitor    *ResourceMonitor
	launchErr  error
	launched   bool // 已尝试启动
	launchedOK bool // Launch成功返回
	closed     bool
}

// NewBrowserFetcher 创建浏览器抓取器(不会立即启动浏览器)
func NewBrowserFetcher(config BrowserFetcherConfig, headerProvider models.HeaderProvider) *BrowserFetcher {
	if config.MaxTabs < 1 {
		config.MaxTabs = 1
	}
	return &BrowserFetcher{
		config:         config,
		headerProvider: headerProvider,
	}
}

// ensureBrowser 按需启动浏览器
func (bf *BrowserFetcher) ensureBrowser() (*PagePool, error) {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	if bf.closed {
		return nil, ErrBrowserClosed
	}
	if bf.launched {
		return bf.pagePool, bf.launchErr
	}
	bf.launched = true

	if err := bf.launchBrowser(); err != nil {
		bf.launchErr = err
		utils.Errorf("浏览器启动失败: %v", err)
		bf.teardown()
		return nil, err
	}

	bf.monitor = NewResourceMonitor(DefaultResourceMonitorConfig(bf.config.MaxTabs))
	bf.monitor.StartMonitoring(time.Second)
	bf.pagePool = NewPagePool(bf.browser, bf.monitor, bf.config.MaxTabs)

	utils.Infof("🌐 浏览器已启动 (headless=%v, 标签页上限=%d)", bf.config.Headless, bf.pagePool.MaxSize())
	return bf.pagePool, nil
}

// launchBrowser 启动并连接浏览器
func (bf *BrowserFetcher) launchBrowser() error {
	l := launcher.New().Headless(bf.config.Headless)
	if bf.config.BrowserBin != "" {
		l = l.Bin(bf.config.BrowserBin)
	}
	if bf.config.InsecureSkipVerify {
		l = l.Set("ignore-certificate-errors")
		utils.Warnf("浏览器已配置为跳过HTTPS证书验证")
	}
	bf.launcher = l

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("启动浏览器失败: %w", err)
	}
	bf.launchedOK = true

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("连接浏览器失败: %w", err)
	}
	bf.browser = browser

	utils.Debugf("浏览器控制地址: %s", controlURL)
	return nil
}

// Fetch 在标签页中打开URL,等待加载和固定延迟后读取当前URL与页面HTML
// 浏览器策略不设请求超时,只受ctx控制
func (bf *BrowserFetcher) Fetch(ctx context.Context, req models.CheckRequest) (result *models.Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			utils.Errorf("捕获panic: URL=%s, 错误=%v", req.URL, r)
			result = nil
			err = fmt.Errorf("浏览器操作panic: %v", r)
		}
	}()

	pool, err := bf.ensureBrowser()
	if err != nil {
		return nil, err
	}

	tab, err := pool.AcquirePage(ctx)
	if err != nil {
		return nil, err
	}
	defer pool.ReleasePage(tab)

	page := tab.Context(ctx)

	if err := bf.applyHeaders(page); err != nil {
		utils.Warnf("设置请求头失败 [%s]: %v", req.URL, err)
	}

	if err := page.Navigate(req.URL); err != nil {
		return nil, fmt.Errorf("导航失败: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("等待页面加载失败: %w", err)
	}

	// 留出时间给客户端跳转
	if err := sleepContext(ctx, req.Wait); err != nil {
		return nil, err
	}

	info, err := page.Info()
	if err != nil {
		return nil, fmt.Errorf("读取页面信息失败: %w", err)
	}
	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("读取页面内容失败: %w", err)
	}

	utils.Debugf("页面加载完成: %s -> %s", req.URL, info.URL)
	return &models.Page{
		FinalURL: info.URL,
		Body:     html,
		Title:    info.Title,
	}, nil
}

// applyHeaders User-Agent走UA覆盖,其余作为额外请求头
// Accept-Encoding交给浏览器自己协商
func (bf *BrowserFetcher) applyHeaders(page *rod.Page) error {
	if bf.headerProvider == nil {
		return nil
	}
	headers, err := bf.headerProvider.GetHeaders()
	if err != nil {
		return err
	}

	if ua := headers.Get("User-Agent"); ua != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      ua,
			AcceptLanguage: headers.Get("Accept-Language"),
		}); err != nil {
			return err
		}
	}

	dict := make([]string, 0, len(headers)*2)
	for name, values := range headers {
		if len(values) == 0 || skipBrowserHeader(name) {
			continue
		}
		dict = append(dict, name, values[0])
	}
	if len(dict) == 0 {
		return nil
	}
	_, err = page.SetExtraHeaders(dict)
	return err
}

func skipBrowserHeader(name string) bool {
	switch http.CanonicalHeaderKey(name) {
	case "Accept-Encoding", "User-Agent":
		return true
	}
	return false
}

// Close 依次释放标签页池、浏览器和launcher进程,可重复调用
func (bf *BrowserFetcher) Close() error {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	if bf.closed {
		return nil
	}
	bf.closed = true
	return bf.teardown()
}

// teardown 调用方需持有mu
func (bf *BrowserFetcher) teardown() error {
	var errs []error

	if bf.pagePool != nil {
		if err := bf.pagePool.Close(); err != nil {
			errs = append(errs, err)
		}
		bf.pagePool = nil
	}
	if bf.browser != nil {
		if err := bf.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("关闭浏览器失败: %w", err))
		}
		bf.browser = nil
	}
	if bf.launcher != nil {
		bf.launcher.Kill()
		// Launch失败时进程退出信号可能永远不会到达,Cleanup会一直阻塞
		if bf.launchedOK {
			bf.launcher.Cleanup()
		}
		bf.launcher = nil
	}
	if bf.monitor != nil {
		bf.monitor.StopMonitoring()
		bf.monitor = nil
	}

	utils.Debugf("浏览器资源已释放")
	return errors.Join(errs...)
}

// sleepContext 等待d,ctx结束时提前返回
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
