package core

import (
	"context"
	"time"

	"github.com/RecoveryAshes/DeadLinkCheck/internal/models"
	"github.com/RecoveryAshes/DeadLinkCheck/internal/utils"
)

// ResultRecorder 记录每次检查的结果(指标等)
type ResultRecorder interface {
	Observe(strategy models.Strategy, result models.CheckResult)
}

// Checker 抓取+判定,对单个URL产出一个CheckResult
type Checker struct {
	fetcher  models.Fetcher
	recorder ResultRecorder
}

// NewChecker 创建检查器,recorder可为nil
func NewChecker(fetcher models.Fetcher, recorder ResultRecorder) *Checker {
	return &Checker{
		fetcher:  fetcher,
		recorder: recorder,
	}
}

// Check 检查单个URL,从不返回错误: 所有故障都转为FetchError结果
func (c *Checker) Check(ctx context.Context, req models.CheckRequest) models.CheckResult {
	start := time.Now()

	var (
		page *models.Page
		err  error
	)
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	} else if vErr := models.ValidateURL(req.URL); vErr != nil {
		err = vErr
	} else {
		page, err = c.fetcher.Fetch(ctx, req)
	}

	result := Classify(req, page, err)
	result.Duration = time.Since(start)

	if err != nil {
		utils.Logger.Warn().
			Str("url", req.URL).
			Str("strategy", string(req.Strategy)).
			Err(err).
			Msg("抓取失败")
	} else {
		utils.Logger.Debug().
			Str("url", req.URL).
			Str("status", result.Label()).
			Str("final_url", result.FinalURL).
			Dur("duration", result.Duration).
			Msg("检查完成")
	}

	if c.recorder != nil {
		c.recorder.Observe(req.Strategy, result)
	}
	return result
}
