package mint

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gocrud/mint/core"
)

// Run 以声明式选项构建并运行应用程序，阻塞直到收到退出信号或托管服务失败
//
//	err := mint.Run(
//		core.WithConfiguration(func(cb *config.ConfigurationBuilder) { cb.AddYamlFile("app.yaml") }),
//		core.WithConfigurator(web.Configure(func(b *web.Builder) { b.UsePort(8080) })),
//	)
func Run(opts ...core.Option) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return RunContext(ctx, opts...)
}

// RunContext 与 Run 相同，ctx 结束时开始优雅关闭
func RunContext(ctx context.Context, opts ...core.Option) error {
	builder := core.NewApplicationBuilder()
	if err := builder.Apply(opts...); err != nil {
		return err
	}

	app, err := builder.Build()
	if err != nil {
		return err
	}
	return app.RunAsync(ctx)
}
