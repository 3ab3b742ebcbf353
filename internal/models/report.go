package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// NewRunID 运行ID,Web界面按它查找和下载报告
func NewRunID() string {
	return uuid.New().String()
}

// RunReport 一次检查运行的完整报告
type RunReport struct {
	// 运行信息
	RunID    string   `json:"run_id"`
	Strategy Strategy `json:"strategy"`

	// 时间信息
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Duration  float64   `json:"duration"` // 秒

	// 统计信息
	Summary Summary `json:"summary"`

	// 结果行
	Rows []RowReport `json:"rows"`

	// 配置快照
	Config CheckConfig `json:"config"`
}

// RowReport 报告中的一行
type RowReport struct {
	URL        string  `json:"url"`
	Status     string  `json:"status"` // 人类可读标签
	Kind       string  `json:"kind"`   // 机器可读类别
	FinalURL   string  `json:"final_url"`
	HTTPStatus int     `json:"http_status,omitempty"`
	Title      string  `json:"title,omitempty"`
	Error      string  `json:"error,omitempty"`
	DurationMS float64 `json:"duration_ms"`
}

// NewRunReport 从结果表构建报告
func NewRunReport(runID string, cfg CheckConfig, table *ResultTable, start, end time.Time) *RunReport {
	rows := make([]RowReport, 0, table.Len())
	for _, row := range table.Rows {
		rows = append(rows, RowReport{
			URL:        row.URL,
			Status:     row.Result.Label(),
			Kind:       row.Result.Kind.String(),
			FinalURL:   row.Result.FinalURL,
			HTTPStatus: row.Result.StatusCode,
			Title:      row.Result.Title,
			Error:      row.Result.Message,
			DurationMS: float64(row.Result.Duration.Microseconds()) / 1000,
		})
	}

	return &RunReport{
		RunID:     runID,
		Strategy:  cfg.StrategyValue(),
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start).Seconds(),
		Summary:   table.Summary(),
		Rows:      rows,
		Config:    cfg,
	}
}

// ToJSON 序列化为JSON
func (r *RunReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FromJSON 从JSON反序列化
func (r *RunReport) FromJSON(data []byte) error {
	return json.Unmarshal(data, r)
}
