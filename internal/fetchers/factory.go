package fetchers

import "github.com/RecoveryAshes/DeadLinkCheck/internal/models"

// New 按配置中的策略创建抓取器
func New(cfg models.CheckConfig, headerProvider models.HeaderProvider) models.Fetcher {
	switch cfg.StrategyValue() {
	case models.StrategyBrowser:
		return NewBrowserFetcher(BrowserFetcherConfig{
			Headless:           cfg.Headless,
			BrowserBin:         cfg.BrowserBin,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
			MaxTabs:            cfg.Threads,
		}, headerProvider)
	default:
		return NewHTTPFetcher(HTTPFetcherConfig{
			Timeout:            cfg.Timeout(),
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		}, headerProvider)
	}
}
