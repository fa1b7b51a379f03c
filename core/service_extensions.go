package core

import (
	"github.com/gocrud/mint/inject"
)

// AddSingleton 将接口 D 绑定到实现 I，并注册为单例
// I 的构造函数需要在目录中登记，结构体类型可以使用零值构造
//
// 示例:
//
//	core.AddSingleton[Repository, *sqlRepository](builder)
func AddSingleton[D, I any](b *ApplicationBuilder) *ApplicationBuilder {
	return b.AddModule(inject.ModuleFunc(func(binder inject.Binder) error {
		return inject.BindTo[D, I](binder, inject.ScopeSingleton)
	}))
}

// AddTransient 将接口 D 绑定到实现 I，每次解析都重新构造
//
// 示例:
//
//	core.AddTransient[Worker, *emailWorker](builder)
func AddTransient[D, I any](b *ApplicationBuilder) *ApplicationBuilder {
	return b.AddModule(inject.ModuleFunc(func(binder inject.Binder) error {
		return inject.BindTo[D, I](binder, inject.ScopeDefault)
	}))
}
