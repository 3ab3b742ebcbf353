package utils

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/RecoveryAshes/DeadLinkCheck/internal/models"
	"github.com/schollz/progressbar/v3"
)

// Format 报告格式
type Format string

const (
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatXLSX     Format = "xlsx"
)

// DefaultOutputBase 默认输出文件名(不含扩展名)
const DefaultOutputBase = "page_check_results"

// CSVHeader CSV表头
var CSVHeader = []string{"URL", "Status", "Final URL"}

// ParseFormat 解析报告格式(不区分大小写,md为markdown别名)
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("不支持的报告格式: %q (有效值: csv, json, markdown, xlsx)", s)
	}
}

// Extension 该格式的文件扩展名
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatMarkdown:
		return ".md"
	case FormatXLSX:
		return ".xlsx"
	default:
		return ".csv"
	}
}

// ContentType 该格式的MIME类型(Web下载使用)
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv; charset=utf-8"
	}
}

// DefaultFileName 默认输出文件名,如 page_check_results.csv
func (f Format) DefaultFileName() string {
	return DefaultOutputBase + f.Extension()
}

// Reporter 报告生成器
type Reporter struct {
	format Format
}

// NewReporter 创建报告生成器
func NewReporter(format Format) *Reporter {
	return &Reporter{format: format}
}

// Format 返回报告格式
func (r *Reporter) Format() Format {
	return r.format
}

// Write 按格式写出报告
func (r *Reporter) Write(w io.Writer, report *models.RunReport) error {
	switch r.format {
	case FormatJSON:
		return WriteJSON(w, report)
	case FormatMarkdown:
		return WriteMarkdown(w, report)
	case FormatXLSX:
		return WriteXLSX(w, report)
	default:
		return WriteCSV(w, report)
	}
}

// WriteFile 写出报告到文件,父目录不存在时自动创建
func (r *Reporter) WriteFile(path string, report *models.RunReport) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建报告目录失败: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建报告文件失败: %w", err)
	}

	if err := r.Write(file, report); err != nil {
		file.Close()
		return fmt.Errorf("写入报告失败: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("关闭报告文件失败: %w", err)
	}

	Infof("✅ 报告已生成: %s", path)
	return nil
}

// WriteCSV 写出 URL,Status,Final URL 三列,每个输入URL一行
func WriteCSV(w io.Writer, report *models.RunReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, row := range report.Rows {
		if err := cw.Write([]string{row.URL, row.Status, row.FinalURL}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON 写出完整报告(含汇总和配置快照)
func WriteJSON(w io.Writer, report *models.RunReport) error {
	data, err := report.ToJSON()
	if err != nil {
		return fmt.Errorf("序列化JSON失败: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}

// NewProgressBar 创建进度条(输出到stderr,不干扰stdout上的报告)
func NewProgressBar(max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
