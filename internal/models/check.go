package models

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Strategy 抓取策略
type Strategy string

const (
	StrategyHTTP    Strategy = "http"    // 普通HTTP请求(不执行JS)
	StrategyBrowser Strategy = "browser" // 浏览器自动化(执行客户端跳转)
)

// ParseStrategy 解析抓取策略字符串(不区分大小写)
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyHTTP:
		return StrategyHTTP, nil
	case StrategyBrowser:
		return StrategyBrowser, nil
	default:
		return "", fmt.Errorf("无效的抓取策略: %q (有效值: http, browser)", s)
	}
}

// 默认内容指纹: 页面同时包含这两段文字时视为通用错误页
var DefaultContentMarkers = []string{"Oops!", "This page is in the shop"}

// DefaultRedirectSignature 默认跳转签名
const DefaultRedirectSignature = "redirectFromMissingVDP=true"

// CheckRequest 单个URL的检查请求,每个URL构造一次,构造后不再修改
type CheckRequest struct {
	URL               string        // 原始URL
	Timeout           time.Duration // HTTP请求超时(仅HTTP策略)
	Wait              time.Duration // 导航后等待时间(仅浏览器策略)
	RedirectSignature string        // 跳转签名(字面子串,空字符串表示不检查)
	ContentMarkers    []string      // 内容指纹(全部出现才算命中,空表示不检查)
	Strategy          Strategy      // 抓取策略
}

// StatusKind 检查结果类别
type StatusKind int

const (
	StatusLive         StatusKind = iota // 页面正常
	StatusDeadRedirect                   // 跳转到带签名的落地页
	StatusDeadContent                    // 页面内容命中错误指纹
	StatusHTTPError                      // HTTP状态码 >= 400
	StatusFetchError                     // 网络/超时/浏览器故障
)

// String 返回机器可读的类别名
func (k StatusKind) String() string {
	switch k {
	case StatusLive:
		return "live"
	case StatusDeadRedirect:
		return "dead_redirect"
	case StatusDeadContent:
		return "dead_content"
	case StatusHTTPError:
		return "http_error"
	case StatusFetchError:
		return "fetch_error"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// AllStatusKinds 按固定顺序列出所有类别(用于汇总输出)
var AllStatusKinds = []StatusKind{
	StatusLive,
	StatusDeadRedirect,
	StatusDeadContent,
	StatusHTTPError,
	StatusFetchError,
}

// CheckResult 检查结果
//
// Kind/Code/Message/FinalURL 构成分类结果,其余字段只是附带证据,不参与分类。
type CheckResult struct {
	Kind     StatusKind `json:"-"`
	Code     int        `json:"code,omitempty"`    // HTTPError时的状态码
	Message  string     `json:"message,omitempty"` // FetchError时的错误信息
	FinalURL string     `json:"final_url"`

	StatusCode int           `json:"status_code,omitempty"` // 观察到的HTTP状态码(浏览器策略为0)
	Title      string        `json:"title,omitempty"`
	Duration   time.Duration `json:"-"`
}

// Label 返回人类可读的状态标签(写入CSV的Status列)
func (r CheckResult) Label() string {
	switch r.Kind {
	case StatusLive:
		return "Live Page"
	case StatusDeadRedirect:
		return "Dead Page (Redirected)"
	case StatusDeadContent:
		return "Dead Page (Error Message)"
	case StatusHTTPError:
		return fmt.Sprintf("Error: HTTP %d", r.Code)
	case StatusFetchError:
		return "Error: " + r.Message
	default:
		return r.Kind.String()
	}
}

// IsDead 是否判定为死链(跳转签名或内容指纹)
func (r CheckResult) IsDead() bool {
	return r.Kind == StatusDeadRedirect || r.Kind == StatusDeadContent
}

// IsError 是否为错误结果
func (r CheckResult) IsError() bool {
	return r.Kind == StatusHTTPError || r.Kind == StatusFetchError
}

// Page 一次抓取得到的页面快照
type Page struct {
	FinalURL   string // 跟随全部跳转后的URL
	StatusCode int    // HTTP状态码(浏览器策略为0)
	Body       string // 页面正文(HTTP响应体或浏览器渲染后的HTML)
	Title      string
}

// Fetcher 抓取器接口
// HTTP和浏览器两种策略各有一个实现
type Fetcher interface {
	// Fetch 抓取URL并跟随跳转,任何网络/超时/浏览器故障都以error返回
	Fetch(ctx context.Context, req CheckRequest) (*Page, error)

	// Close 释放抓取器持有的资源(浏览器进程、标签页等),可重复调用
	Close() error
}

// ValidateURL 检查前的URL校验,失败的URL不会发出请求,直接记为抓取错误
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("无效的URL: %w", err)
	}
	switch {
	case parsed.Scheme != "http" && parsed.Scheme != "https":
		return fmt.Errorf("不支持的URL协议 %q (仅支持http/https)", parsed.Scheme)
	case parsed.Host == "":
		return fmt.Errorf("URL缺少主机名: %s", rawURL)
	}
	return nil
}
