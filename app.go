// Package mint 应用程序入口：组合依赖注入、事件分发、配置与托管服务
package mint

import "github.com/gocrud/mint/core"

// NewApplicationBuilder 创建应用程序构建器
// 这是创建应用程序的入口点
func NewApplicationBuilder() *core.ApplicationBuilder {
	return core.NewApplicationBuilder()
}
