// Package fetchers 提供两种页面抓取策略
//
// # HTTPFetcher
//
// 基于Colly的普通HTTP抓取,跟随服务端跳转,不执行JavaScript。
// 4xx/5xx响应同样返回页面(状态码交给分类器判断),网络错误、DNS失败和超时以error返回。
// br/deflate压缩在传输层由decodingTransport解压,gzip由Colly处理,字符集转换交给Colly。
//
//	fetcher := NewHTTPFetcher(HTTPFetcherConfig{Timeout: 10 * time.Second}, headerProvider)
//	page, err := fetcher.Fetch(ctx, req)
//
// # BrowserFetcher
//
// 基于go-rod的浏览器抓取,能看到客户端(JS/meta refresh)跳转后的地址。
// 浏览器在第一次Fetch时启动并在整个运行期间复用,标签页由PagePool管理,
// 数量不超过 min(MaxTabs, ResourceMonitor.CalculateMaxTabs())。
// 调用方必须在结束时调用Close,释放标签页、浏览器和launcher进程。
//
//	fetcher := NewBrowserFetcher(BrowserFetcherConfig{Headless: true, MaxTabs: 4}, headerProvider)
//	defer fetcher.Close()
//
// # ResourceMonitor
//
// 用gopsutil采样系统可用内存和CPU负载:
//   - 可用内存 < 500MB: 暂停创建新标签页
//   - 可用内存 < 300MB: 归还时缩减到当前的一半
//   - 可用内存 < 200MB: 缩减到1个标签页
package fetchers
