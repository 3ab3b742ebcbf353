package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHeaderManager_GetMergedHeaders(t *testing.T) {
	t.Run("默认头部存在", func(t *testing.T) {
		hm, err := NewHeaderManager("", nil)
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}

		headers := hm.GetMergedHeaders()
		if ua := headers.Get("User-Agent"); ua != DefaultUserAgent {
			t.Errorf("期望默认User-Agent, 实际='%s'", ua)
		}
		if !strings.Contains(headers.Get("User-Agent"), "Chrome/91") {
			t.Error("默认User-Agent应为桌面Chrome")
		}
		if headers.Get("Accept") != "*/*" {
			t.Error("默认Accept应为*/*")
		}
	})

	t.Run("命令行头部覆盖默认", func(t *testing.T) {
		hm, err := NewHeaderManager("", []string{"User-Agent: CustomBot/1.0"})
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}

		if ua := hm.GetMergedHeaders().Get("User-Agent"); ua != "CustomBot/1.0" {
			t.Errorf("期望User-Agent='CustomBot/1.0', 实际='%s'", ua)
		}
	})

	t.Run("多个命令行头部", func(t *testing.T) {
		hm, err := NewHeaderManager("", []string{
			"User-Agent: CustomBot/1.0",
			"X-Custom: value1",
			"Authorization: Bearer token123",
		})
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}

		headers := hm.GetMergedHeaders()
		if headers.Get("X-Custom") != "value1" {
			t.Error("X-Custom未正确设置")
		}
		if headers.Get("Authorization") != "Bearer token123" {
			t.Error("Authorization未正确设置")
		}
	})

	t.Run("返回副本不影响内部状态", func(t *testing.T) {
		hm, _ := NewHeaderManager("", nil)
		headers := hm.GetMergedHeaders()
		headers.Set("User-Agent", "changed")

		if hm.GetMergedHeaders().Get("User-Agent") != DefaultUserAgent {
			t.Error("修改返回值不应影响HeaderManager")
		}
	})
}

func TestHeaderManager_GetSafeHeaders(t *testing.T) {
	hm, err := NewHeaderManager("", []string{
		"User-Agent: CustomBot/1.0",
		"Authorization: Bearer secret-token-12345",
		"X-API-Key: api-key-67890",
	})
	if err != nil {
		t.Fatalf("创建HeaderManager失败: %v", err)
	}

	safe := hm.GetSafeHeaders()
	if safe["User-Agent"] != "CustomBot/1.0" {
		t.Error("普通头部不应该被脱敏")
	}
	if safe["Authorization"] != "Bearer ***" {
		t.Errorf("期望Authorization='Bearer ***', 实际='%s'", safe["Authorization"])
	}
	if safe["X-Api-Key"] == "api-key-67890" {
		t.Error("X-API-Key应该被脱敏")
	}
}

func TestHeaderManager_GetHeaders(t *testing.T) {
	t.Run("非法命令行参数返回错误", func(t *testing.T) {
		if _, err := NewHeaderManager("", []string{"InvalidFormat"}); err == nil {
			t.Error("期望返回错误, 但成功了")
		}
	})

	t.Run("禁止头部返回验证错误", func(t *testing.T) {
		hm, err := NewHeaderManager("", []string{"Host: example.com"})
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}
		if _, err := hm.GetHeaders(); err == nil {
			t.Error("期望返回验证错误, 但成功了")
		}
	})

	t.Run("成功场景", func(t *testing.T) {
		hm, err := NewHeaderManager("", []string{"User-Agent: TestBot/1.0", "X-Custom: test-value"})
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}

		headers, err := hm.GetHeaders()
		if err != nil {
			t.Fatalf("GetHeaders失败: %v", err)
		}
		if headers.Get("User-Agent") != "TestBot/1.0" {
			t.Error("User-Agent未正确设置")
		}
		if headers.Get("X-Custom") != "test-value" {
			t.Error("X-Custom未正确设置")
		}
	})

	t.Run("多次调用返回独立副本", func(t *testing.T) {
		hm, _ := NewHeaderManager("", nil)
		first, _ := hm.GetHeaders()
		first.Set("X-Mutated", "1")

		second, err := hm.GetHeaders()
		if err != nil {
			t.Fatalf("GetHeaders失败: %v", err)
		}
		if second.Get("X-Mutated") != "" {
			t.Error("缓存结果不应被调用方修改")
		}
	})
}

func TestHeaderManager_ConfigFile(t *testing.T) {
	t.Run("配置文件不存在时自动生成", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nonexist", "headers.yaml")

		hm, err := NewHeaderManager(path, nil)
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}
		if err := hm.LoadConfig(); err != nil {
			t.Fatalf("加载配置失败: %v", err)
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			t.Error("配置文件未创建")
		}
	})

	t.Run("同时提供CLI和配置文件头部", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "headers.yaml")
		content := "headers:\n  X-Config: from-config\n  User-Agent: config-agent\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		hm, err := NewHeaderManager(path, []string{"X-CLI: from-cli", "User-Agent: cli-agent"})
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}

		merged, err := hm.GetHeaders()
		if err != nil {
			t.Fatalf("GetHeaders失败: %v", err)
		}
		if val := merged.Get("User-Agent"); val != "cli-agent" {
			t.Errorf("CLI头部应该覆盖配置文件, 得到: %s", val)
		}
		if merged.Get("X-Config") != "from-config" {
			t.Error("应该包含配置文件中的头部")
		}
		if merged.Get("X-Cli") != "from-cli" {
			t.Error("应该包含CLI中的头部")
		}
	})

	t.Run("配置文件中的禁止头部被拒绝", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "headers.yaml")
		if err := os.WriteFile(path, []byte("headers:\n  Host: evil.example\n"), 0644); err != nil {
			t.Fatal(err)
		}

		hm, _ := NewHeaderManager(path, nil)
		if _, err := hm.GetHeaders(); err == nil {
			t.Error("配置文件中的Host头部应该验证失败")
		}
	})
}
