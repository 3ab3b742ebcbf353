package core

import (
	"context"
	"time"

	"github.com/RecoveryAshes/DeadLinkCheck/internal/models"
	"github.com/RecoveryAshes/DeadLinkCheck/internal/utils"
	"golang.org/x/sync/errgroup"
)

// ProgressFunc 每完成一个URL回调一次,done从1开始
// 在结果收集协程中串行调用
type ProgressFunc func(done, total int, item models.IndexedResult)

// Runner 批量检查运行器
//
// threads个worker从队列取(index, url),结果经channel汇总后按index重组,
// 因此输出顺序与输入一致,与并发数无关。
type Runner struct {
	checker  *Checker
	config   models.CheckConfig
	progress ProgressFunc
}

// NewRunner 创建运行器
func NewRunner(checker *Checker, config models.CheckConfig) *Runner {
	return &Runner{
		checker: checker,
		config:  config,
	}
}

// OnProgress 设置进度回调
func (r *Runner) OnProgress(fn ProgressFunc) *Runner {
	r.progress = fn
	return r
}

// Run 检查全部URL,返回与输入一一对应的结果表
//
// ctx取消后不再取新任务,未检查的URL填充为FetchError(ctx错误),
// 此时仍返回完整结果表以及ctx错误。
func (r *Runner) Run(ctx context.Context, urls []string) (*models.ResultTable, error) {
	total := len(urls)
	threads := r.config.Threads
	if threads < models.MinThreads {
		threads = models.MinThreads
	}
	if threads > total && total > 0 {
		threads = total
	}

	utils.Infof("开始检查 %d 个URL (策略: %s, 并发: %d)", total, r.config.StrategyValue(), threads)
	start := time.Now()

	queue := NewURLQueueFrom(urls)
	out := make(chan models.IndexedResult, threads)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)
	for w := 0; w < threads; w++ {
		g.Go(func() error {
			for {
				item, ok := queue.Pop(gctx)
				if !ok {
					return nil
				}
				req := r.config.NewRequest(item.URL)
				result := r.checker.Check(gctx, req)
				// 收集端持续读取直到out关闭,这里不会阻塞
				out <- models.IndexedResult{Index: item.Index, URL: item.URL, Result: result}
			}
		})
	}

	go func() {
		_ = g.Wait()
		close(out)
	}()

	results := make([]*models.CheckResult, total)
	done := 0
	for item := range out {
		res := item.Result
		results[item.Index] = &res
		done++
		if r.progress != nil {
			r.progress(done, total, item)
		}
	}

	table := models.NewResultTable(total)
	cancelled := 0
	for i, u := range urls {
		if results[i] == nil {
			cancelled++
			table.Append(u, cancelledResult(ctx, u))
			continue
		}
		table.Append(u, *results[i])
	}

	summary := table.Summary()
	utils.Logger.Info().
		Int("total", summary.Total).
		Int("live", summary.Live).
		Int("dead", summary.Dead).
		Int("errors", summary.Errors).
		Str("elapsed", utils.FormatDuration(time.Since(start))).
		Msg("检查完成")

	if cancelled > 0 {
		utils.Warnf("运行被取消, %d 个URL未检查", cancelled)
		return table, ctx.Err()
	}
	return table, nil
}

func cancelledResult(ctx context.Context, rawURL string) models.CheckResult {
	msg := context.Canceled.Error()
	if err := ctx.Err(); err != nil {
		msg = err.Error()
	}
	return models.CheckResult{
		Kind:     models.StatusFetchError,
		Message:  msg,
		FinalURL: rawURL,
	}
}
