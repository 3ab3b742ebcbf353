package core

import (
	"strings"

	"github.com/RecoveryAshes/DeadLinkCheck/internal/models"
)

// Classify 根据抓取结果判定链接状态
//
// 判定顺序固定: 跳转签名 > 内容指纹 > HTTP状态码(仅HTTP策略)。
// fetchErr非空时一律为FetchError,final_url为原始URL。
func Classify(req models.CheckRequest, page *models.Page, fetchErr error) models.CheckResult {
	if fetchErr != nil || page == nil {
		msg := "未获取到页面"
		if fetchErr != nil {
			msg = fetchErr.Error()
		}
		return models.CheckResult{
			Kind:     models.StatusFetchError,
			Message:  msg,
			FinalURL: req.URL,
		}
	}

	finalURL := page.FinalURL
	if finalURL == "" {
		finalURL = req.URL
	}

	result := models.CheckResult{
		StatusCode: page.StatusCode,
		Title:      page.Title,
	}

	switch {
	case matchesSignature(finalURL, req.RedirectSignature):
		result.Kind = models.StatusDeadRedirect
		result.FinalURL = finalURL
	case containsAllMarkers(page.Body, req.ContentMarkers):
		result.Kind = models.StatusDeadContent
		result.FinalURL = req.URL
	case req.Strategy == models.StrategyHTTP && page.StatusCode >= 400:
		result.Kind = models.StatusHTTPError
		result.Code = page.StatusCode
		result.FinalURL = req.URL
	default:
		result.Kind = models.StatusLive
		result.FinalURL = finalURL
	}
	return result
}

// 空签名表示不检查
func matchesSignature(finalURL, signature string) bool {
	return signature != "" && strings.Contains(finalURL, signature)
}

// 空指纹列表表示不检查,所有指纹都出现才算命中
func containsAllMarkers(body string, markers []string) bool {
	if len(markers) == 0 {
		return false
	}
	for _, marker := range markers {
		if !strings.Contains(body, marker) {
			return false
		}
	}
	return true
}
