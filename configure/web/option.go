package web

import "github.com/gocrud/mint/core"

// BuilderOption 用于配置 Web Builder
type BuilderOption func(*Builder)

// WithPort 设置端口
func WithPort(port int) BuilderOption {
	return func(b *Builder) {
		b.UsePort(port)
	}
}

// WithControllers 添加控制器
func WithControllers(controllers ...any) BuilderOption {
	return func(b *Builder) {
		b.AddControllers(controllers...)
	}
}

// WithDiagnostics 挂载诊断路由
func WithDiagnostics(prefix string) BuilderOption {
	return func(b *Builder) {
		b.EnableDiagnostics(prefix)
	}
}

// New 以应用选项的形式启用 Web 主机
func New(opts ...BuilderOption) core.Option {
	return core.WithConfigurator(Configure(func(b *Builder) {
		for _, opt := range opts {
			opt(b)
		}
	}))
}
