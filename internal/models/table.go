package models

// ResultRow 结果表中的一行
type ResultRow struct {
	Index  int         `json:"index"` // 在输入列表中的位置(从0开始)
	URL    string      `json:"url"`
	Result CheckResult `json:"result"`
}

// Status 状态标签
func (r ResultRow) Status() string {
	return r.Result.Label()
}

// ResultTable 按输入顺序排列的结果表
// 不去重、不建索引,运行结束后丢弃或导出
type ResultTable struct {
	Rows []ResultRow `json:"rows"`
}

// NewResultTable 创建结果表
func NewResultTable(capacity int) *ResultTable {
	return &ResultTable{Rows: make([]ResultRow, 0, capacity)}
}

// Append 追加一行
func (t *ResultTable) Append(url string, result CheckResult) {
	t.Rows = append(t.Rows, ResultRow{
		Index:  len(t.Rows),
		URL:    url,
		Result: result,
	})
}

// Len 行数
func (t *ResultTable) Len() int {
	return len(t.Rows)
}

// Summary 按类别统计
func (t *ResultTable) Summary() Summary {
	s := Summary{Total: len(t.Rows), ByKind: make(map[string]int, len(AllStatusKinds))}
	for _, kind := range AllStatusKinds {
		s.ByKind[kind.String()] = 0
	}
	for _, row := range t.Rows {
		s.ByKind[row.Result.Kind.String()]++
		switch {
		case row.Result.Kind == StatusLive:
			s.Live++
		case row.Result.IsDead():
			s.Dead++
		case row.Result.IsError():
			s.Errors++
		}
	}
	return s
}

// Summary 结果汇总
type Summary struct {
	Total  int            `json:"total"`
	Live   int            `json:"live"`
	Dead   int            `json:"dead"`
	Errors int            `json:"errors"`
	ByKind map[string]int `json:"by_kind"`
}
