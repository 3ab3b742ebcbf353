package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// maxLineSize 单行最大长度,超长URL也能完整读出
const maxLineSize = 1024 * 1024

// ParseURLList 从reader中逐行读取URL列表
// 只丢弃去除首尾空白后为空的行,其余内容原样保留(无效URL交给检查阶段报错)
func ParseURLList(r io.Reader) ([]string, error) {
	urls := make([]string, 0)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		urls = append(urls, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取URL列表失败: %w", err)
	}

	return urls, nil
}

// ReadURLsFromFile 从文件中读取URL列表
func ReadURLsFromFile(filepath string) ([]string, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("打开URL文件失败: %w", err)
	}
	defer file.Close()

	urls, err := ParseURLList(file)
	if err != nil {
		return nil, err
	}

	Infof("从文件加载了 %d 个URL", len(urls))
	return urls, nil
}

// FormatDuration 格式化耗时,保留到毫秒
func FormatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
