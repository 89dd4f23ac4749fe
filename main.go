package main

import (
	"fmt"

	"github.com/ninja0404/whale-trader/internal/app"
	"github.com/ninja0404/whale-trader/pkg/utils"
)

func main() {
	// 配置路径优先从环境变量读取
	configPath := utils.GetConfigFilePath()
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	// 创建应用实例
	application := app.New()

	// 启动应用
	if err := application.Start(configPath); err != nil {
		fmt.Printf("应用启动失败: %v\n", err)
		return
	}
}
