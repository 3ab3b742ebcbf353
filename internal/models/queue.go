package models

// URLItem 表示任务队列中的一个URL项
type URLItem struct {
	// Index URL在输入列表中的位置,用于按原顺序重组结果
	Index int

	// URL 原始URL字符串(未做任何规范化)
	URL string
}

// IndexedResult worker产出的带序号结果
type IndexedResult struct {
	Index  int
	URL    string
	Result CheckResult
}
