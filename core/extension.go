package core

import (
	"fmt"

	"github.com/gocrud/mint/event"
	"github.com/gocrud/mint/inject"
)

// Extension 定义应用程序扩展的基础接口
// 扩展应该实现 ModuleProvider、AppConfigurator 或 event.Listener 中的至少一个
type Extension interface {
	// Name 返回扩展的名称，用于日志记录和调试
	Name() string
}

// ModuleProvider 负责贡献注入模块
type ModuleProvider interface {
	Modules() []inject.Module
}

// AppConfigurator 负责配置应用程序构建上下文
// 用于设置 Options、HostedService、清理函数等
type AppConfigurator interface {
	ConfigureBuilder(ctx *BuildContext)
}

// validateExtension 验证扩展是否实现了支持的接口，未实现任何接口时 panic
func validateExtension(ext Extension) {
	_, isModuleProvider := ext.(ModuleProvider)
	_, isAppConfigurator := ext.(AppConfigurator)
	_, isListener := ext.(event.Listener)

	if !isModuleProvider && !isAppConfigurator && !isListener {
		panic(fmt.Sprintf("core: Extension '%s' does not implement any supported interfaces (ModuleProvider, AppConfigurator, event.Listener). \n"+
			"Check if your method signatures exactly match the interface definitions.", ext.Name()))
	}
}
