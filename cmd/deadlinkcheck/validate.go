package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/RecoveryAshes/DeadLinkCheck/internal/models"
	"github.com/RecoveryAshes/DeadLinkCheck/internal/utils"
)

// ValidateFlags 验证合并后的检查配置和报告格式
func ValidateFlags(cfg models.CheckConfig, format string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := utils.ParseFormat(format); err != nil {
		return err
	}
	return nil
}

// CollectURLs 合并 --url-file 和 --url 中的URL
// 文件中的URL在前,空白行丢弃,其余原样保留(不去重、不规范化)
func CollectURLs(urlFile string, urls []string) ([]string, error) {
	var result []string
	if urlFile != "" {
		fromFile, err := utils.ReadURLsFromFile(urlFile)
		if err != nil {
			return nil, err
		}
		result = append(result, fromFile...)
	}
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			result = append(result, u)
		}
	}
	return result, nil
}

// ResolveOutput 确定报告路径和格式
//
// 未显式指定--format时按输出文件扩展名推断;未指定输出文件时使用
// 格式对应的默认文件名(如 page_check_results.csv)。
func ResolveOutput(output, format string, formatSet bool) (string, utils.Format, error) {
	if ext := strings.TrimPrefix(filepath.Ext(output), "."); !formatSet && ext != "" {
		if inferred, err := utils.ParseFormat(ext); err == nil {
			format = string(inferred)
		}
	}

	f, err := utils.ParseFormat(format)
	if err != nil {
		return "", "", err
	}
	if output == "" {
		output = f.DefaultFileName()
	}
	return output, f, nil
}

// ValidateURLFile 验证URL文件路径
func ValidateURLFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("URL文件路径不能为空")
	}
	return nil
}
