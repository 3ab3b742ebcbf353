package utils

import (
	"fmt"
	"io"
	"strconv"

	"github.com/RecoveryAshes/DeadLinkCheck/internal/models"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/xuri/excelize/v2"
)

const (
	xlsxResultsSheet = "Results"
	xlsxSummarySheet = "Summary"
)

// WriteMarkdown 以Markdown格式输出报告: 运行信息、状态汇总、饼图和结果表
func WriteMarkdown(w io.Writer, report *models.RunReport) error {
	md := markdown.NewMarkdown(w)

	md.H1("Dead Link Check Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + report.RunID + "`"},
			{"Strategy", string(report.Strategy)},
			{"Started", report.StartTime.Format("2006-01-02 15:04:05 MST")},
			{"Duration", strconv.FormatFloat(report.Duration, 'f', 2, 64) + "s"},
			{"Redirect Signature", "`" + report.Config.RedirectSignature + "`"},
		},
	})
	md.PlainText("")

	writeMarkdownSummary(md, report)

	md.H2("Results")
	md.PlainText("")
	if len(report.Rows) == 0 {
		md.PlainText("No URLs checked.")
		md.PlainText("")
		return md.Build()
	}

	rows := make([][]string, 0, len(report.Rows))
	for _, row := range report.Rows {
		rows = append(rows, []string{row.URL, row.Status, row.FinalURL})
	}
	md.Table(markdown.TableSet{
		Header: CSVHeader,
		Rows:   rows,
	})
	md.PlainText("")

	return md.Build()
}

func writeMarkdownSummary(md *markdown.Markdown, report *models.RunReport) {
	s := report.Summary

	md.H2("Summary")
	md.PlainText("")

	rows := make([][]string, 0, len(models.AllStatusKinds)+1)
	for _, kind := range models.AllStatusKinds {
		rows = append(rows, []string{kind.String(), strconv.Itoa(s.ByKind[kind.String()])})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(s.Total) + "**"})
	md.Table(markdown.TableSet{
		Header: []string{"Status", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if s.Total > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Status Distribution"),
			piechart.WithShowData(true),
		)
		for _, kind := range models.AllStatusKinds {
			if n := s.ByKind[kind.String()]; n > 0 {
				chart.LabelAndIntValue(kind.String(), uint64(n))
			}
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	switch {
	case s.Dead > 0:
		md.Warningf("%d of %d URL(s) are dead.", s.Dead, s.Total)
	case s.Errors > 0:
		md.Importantf("%d URL(s) could not be checked cleanly.", s.Errors)
	case s.Total > 0:
		md.Tip("All URLs are live.")
	}
	md.PlainText("")
}

// WriteXLSX 以Excel格式输出报告
// Results表前三列与CSV一致,后面附带证据列;Summary表为状态汇总
func WriteXLSX(w io.Writer, report *models.RunReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxResultsSheet); err != nil {
		return fmt.Errorf("重命名工作表失败: %w", err)
	}

	header := []interface{}{"URL", "Status", "Final URL", "Kind", "HTTP Status", "Title", "Duration (ms)"}
	if err := f.SetSheetRow(xlsxResultsSheet, "A1", &header); err != nil {
		return err
	}

	for i, row := range report.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{row.URL, row.Status, row.FinalURL, row.Kind, row.HTTPStatus, row.Title, row.DurationMS}
		if err := f.SetSheetRow(xlsxResultsSheet, cell, &values); err != nil {
			return err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(xlsxResultsSheet, 1, 1, bold); err != nil {
		return err
	}
	if err := f.SetColWidth(xlsxResultsSheet, "A", "C", 60); err != nil {
		return err
	}

	if _, err := f.NewSheet(xlsxSummarySheet); err != nil {
		return fmt.Errorf("创建汇总表失败: %w", err)
	}
	summaryHeader := []interface{}{"Status", "Count"}
	if err := f.SetSheetRow(xlsxSummarySheet, "A1", &summaryHeader); err != nil {
		return err
	}
	for i, kind := range models.AllStatusKinds {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{kind.String(), report.Summary.ByKind[kind.String()]}
		if err := f.SetSheetRow(xlsxSummarySheet, cell, &values); err != nil {
			return err
		}
	}
	if err := f.SetRowStyle(xlsxSummarySheet, 1, 1, bold); err != nil {
		return err
	}

	return f.Write(w)
}
