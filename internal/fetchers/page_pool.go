package fetchers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/RecoveryAshes/DeadLinkCheck/internal/utils"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// ErrPoolClosed 标签页池已关闭
var ErrPoolClosed = errors.New("标签页池已关闭")

const acquireRetryInterval = 500 * time.Millisecond

// 归还前清理页面存储,避免上一个URL的cookie影响下一个
const cleanPageJS = `() => {
	try { if (window.localStorage) localStorage.clear(); } catch (e) {}
	try { if (window.sessionStorage) sessionStorage.clear(); } catch (e) {}
	try {
		if (document && document.cookie) {
			document.cookie.split(";").forEach(function (c) {
				var name = c.split("=")[0].trim();
				document.cookie = name + "=;expires=Thu, 01 Jan 1970 00:00:00 UTC;path=/";
			});
		}
	} catch (e) {}
	return true;
}`

// PagePool 浏览器标签页池
// 标签页按需创建,总数不超过 min(配置上限, 资源监控器上限)
type PagePool struct {
	browser  *rod.Browser
	monitor  *ResourceMonitor
	maxPages int

	mu        sync.Mutex
	pages     []*rod.Page
	available chan *rod.Page
	closed    bool
}

// NewPagePool 创建标签页池
func NewPagePool(browser *rod.Browser, monitor *ResourceMonitor, maxPages int) *PagePool {
	if maxPages < 1 {
		maxPages = 1
	}
	return &PagePool{
		browser:   browser,
		monitor:   monitor,
		maxPages:  maxPages,
		available: make(chan *rod.Page, maxPages),
	}
}

// MaxSize 当前允许的最大标签页数
func (pp *PagePool) MaxSize() int {
	if pp.monitor == nil {
		return pp.maxPages
	}
	return min(pp.maxPages, pp.monitor.CalculateMaxTabs())
}

// CurrentSize 当前标签页数
func (pp *PagePool) CurrentSize() int {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	return len(pp.pages)
}

// AcquirePage 获取一个标签页,已达上限时阻塞到有标签页归还或ctx结束
func (pp *PagePool) AcquirePage(ctx context.Context) (*rod.Page, error) {
	select {
	case page := <-pp.available:
		return page, nil
	default:
	}

	ticker := time.NewTicker(acquireRetryInterval)
	defer ticker.Stop()

	for {
		page, err := pp.tryCreate()
		if err != nil {
			return nil, err
		}
		if page != nil {
			return page, nil
		}

		// 被销毁的标签页不会归还,定期重试创建
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case page := <-pp.available:
			return page, nil
		case <-ticker.C:
		}
	}
}

// tryCreate 未达上限且资源允许时新建标签页,否则返回nil
func (pp *PagePool) tryCreate() (*rod.Page, error) {
	pp.mu.Lock()
	defer pp.mu.Unlock()

	if pp.closed {
		return nil, ErrPoolClosed
	}

	maxSize := pp.MaxSize()
	if len(pp.pages) >= maxSize {
		return nil, nil
	}

	// 至少保证一个标签页,否则任务永远无法执行
	if len(pp.pages) > 0 && pp.monitor != nil {
		if ok, reason := pp.monitor.CheckResourceAvailability(); !ok {
			utils.Warnf("资源不足,暂不创建新标签页: %s", reason)
			return nil, nil
		}
	}

	page, err := pp.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("创建标签页失败(浏览器可能已崩溃): %w", err)
	}
	pp.pages = append(pp.pages, page)
	utils.Debugf("创建新标签页,当前标签页数: %d, 最大限制: %d", len(pp.pages), maxSize)
	return page, nil
}

// ReleasePage 归还标签页,清理失败或内存吃紧时直接销毁
func (pp *PagePool) ReleasePage(page *rod.Page) {
	if page == nil {
		return
	}

	pp.mu.Lock()
	closed := pp.closed
	size := len(pp.pages)
	pp.mu.Unlock()

	if closed {
		pp.destroyPage(page)
		return
	}

	if _, err := page.Evaluate(&rod.EvalOptions{JS: cleanPageJS}); err != nil {
		utils.Warnf("清理标签页状态失败,销毁该标签页: %v", err)
		pp.destroyPage(page)
		return
	}

	if pp.monitor != nil {
		if shrink, target := pp.monitor.ShouldScaleDown(size); shrink && size > target {
			pp.destroyPage(page)
			return
		}
	}

	select {
	case pp.available <- page:
	default:
		pp.destroyPage(page)
	}
}

// destroyPage 关闭并移除标签页
func (pp *PagePool) destroyPage(page *rod.Page) {
	pp.mu.Lock()
	for i, p := range pp.pages {
		if p == page {
			pp.pages = append(pp.pages[:i], pp.pages[i+1:]...)
			break
		}
	}
	remaining := len(pp.pages)
	pp.mu.Unlock()

	if err := page.Close(); err != nil {
		utils.Debugf("关闭标签页失败: %v", err)
	}
	utils.Debugf("销毁标签页,当前标签页数: %d", remaining)
}

// Close 关闭所有标签页,可重复调用
func (pp *PagePool) Close() error {
	pp.mu.Lock()
	if pp.closed {
		pp.mu.Unlock()
		return nil
	}
	pp.closed = true
	pages := pp.pages
	pp.pages = nil
	pp.mu.Unlock()

	for len(pp.available) > 0 {
		<-pp.available
	}

	var errs []error
	for _, page := range pages {
		if err := page.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	utils.Debugf("标签页池已关闭")
	return errors.Join(errs...)
}
