package utils

import (
	"fmt"
	"io"

	"github.com/RecoveryAshes/DeadLinkCheck/internal/models"
	"github.com/charmbracelet/lipgloss"
	"github.com/rodaine/table"
)

// 控制台配色
var (
	LiveStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))            // 绿
	DeadStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true) // 红
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))            // 黄
	HeaderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	NeutralStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
)

// StyleForKind 根据结果类别选择颜色
func StyleForKind(kind models.StatusKind) lipgloss.Style {
	switch kind {
	case models.StatusLive:
		return LiveStyle
	case models.StatusDeadRedirect, models.StatusDeadContent:
		return DeadStyle
	case models.StatusHTTPError, models.StatusFetchError:
		return ErrorStyle
	default:
		return NeutralStyle
	}
}

// PrintResultTable 在控制台打印结果表
func PrintResultTable(w io.Writer, rows []models.ResultRow) {
	headerFmt := func(format string, a ...interface{}) string {
		return HeaderStyle.Render(fmt.Sprintf(format, a...))
	}

	tbl := table.New("#", "URL", "Status", "Final URL").
		WithWriter(w).
		WithHeaderFormatter(headerFmt).
		WithWidthFunc(lipgloss.Width)

	for _, row := range rows {
		status := StyleForKind(row.Result.Kind).Render(row.Status())
		tbl.AddRow(row.Index+1, row.URL, status, row.Result.FinalURL)
	}
	tbl.Print()
}

// PrintSummary 打印按类别汇总的统计
func PrintSummary(w io.Writer, summary models.Summary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, HeaderStyle.Render("检查汇总"))

	tbl := table.New("Status", "Count").
		WithWriter(w).
		WithWidthFunc(lipgloss.Width)
	for _, kind := range models.AllStatusKinds {
		label := StyleForKind(kind).Render(kind.String())
		tbl.AddRow(label, summary.ByKind[kind.String()])
	}
	tbl.AddRow("total", summary.Total)
	tbl.Print()

	fmt.Fprintf(w, "存活: %s  死链: %s  错误: %s\n",
		LiveStyle.Render(fmt.Sprint(summary.Live)),
		DeadStyle.Render(fmt.Sprint(summary.Dead)),
		ErrorStyle.Render(fmt.Sprint(summary.Errors)),
	)
}
