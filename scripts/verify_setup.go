package main

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/RecoveryAshes/DeadLinkCheck/internal/config"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/shirou/gopsutil/v3/mem"
)

// 浏览器策略建议的最小可用内存(MB)
const minBrowserMemoryMB = 1024

func main() {
	fmt.Println("==============================================")
	fmt.Println("  DeadLinkCheck 环境验证")
	fmt.Println("==============================================")
	fmt.Println()

	allOK := true

	fmt.Printf("✅ Go版本: %s\n", runtime.Version())
	fmt.Printf("✅ 操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)

	// 浏览器策略需要Chrome/Chromium,找不到时rod会在首次运行时自动下载
	if path, has := launcher.LookPath(); has {
		fmt.Printf("✅ 浏览器: %s\n", path)
	} else {
		fmt.Println("⚠️  未找到Chrome/Chromium - 浏览器策略首次运行时将自动下载")
		fmt.Println("   也可以在 configs/config.yaml 中设置 check.browser_bin")
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		availableMB := vm.Available / 1024 / 1024
		if availableMB < minBrowserMemoryMB {
			fmt.Printf("⚠️  可用内存 %d MB, 浏览器策略建议至少 %d MB\n", availableMB, minBrowserMemoryMB)
		} else {
			fmt.Printf("✅ 可用内存: %d MB\n", availableMB)
		}
	} else {
		fmt.Printf("⚠️  无法读取内存信息: %v\n", err)
	}

	fmt.Println()
	fmt.Println("检查请求头配置...")
	loader := config.NewHeaderConfigLoader(config.DefaultConfigFile)
	if headers, err := loader.LoadHeaders(); err != nil {
		fmt.Printf("❌ %v\n", err)
		allOK = false
	} else {
		fmt.Printf("✅ %s (%d个自定义头部)\n", loader.Path(), len(headers))
	}

	fmt.Println()
	fmt.Println("检查Go模块依赖...")
	if _, err := os.Stat("go.mod"); err == nil {
		fmt.Println("✅ go.mod文件存在")
		if out, err := exec.Command("go", "mod", "download").CombinedOutput(); err != nil {
			fmt.Printf("❌ go mod download失败: %v\n%s", err, strings.TrimSpace(string(out)))
			allOK = false
		} else {
			fmt.Println("✅ 依赖下载完成")
		}
	} else {
		fmt.Println("❌ go.mod文件不存在 (请在项目根目录运行)")
		allOK = false
	}

	fmt.Println()
	fmt.Println("==============================================")
	if allOK {
		fmt.Println("✅ 环境验证通过!")
		fmt.Println()
		fmt.Println("下一步:")
		fmt.Println("  1. 运行 'go build ./cmd/deadlinkcheck' 构建项目")
		fmt.Println("  2. 运行 './deadlinkcheck -f urls.txt' 开始检查")
		os.Exit(0)
	}
	fmt.Println("❌ 环境验证失败,请解决上述问题。")
	os.Exit(1)
}
