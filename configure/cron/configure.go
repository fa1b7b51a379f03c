package cron

import (
	"fmt"

	"github.com/gocrud/mint/core"
	"github.com/gocrud/mint/inject"
	"github.com/gocrud/mint/logging"
)

// Configure 返回 Cron 配置器
// 调度器作为托管服务运行，同时以 *cron.Scheduler 单例绑定
// 使用示例: builder.Configure(cron.Configure(func(b *cron.Builder) { ... }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder(ctx)
		if options != nil {
			options(builder)
		}

		logger := ctx.LoggerFactory().CreateLogger("cron")
		scheduler, err := builder.Build(logger, ctx.Events())
		if err != nil {
			ctx.Fail(fmt.Errorf("cron: %w", err))
			return
		}

		ctx.AddModule(inject.ModuleFunc(func(b inject.Binder) error {
			b.BindSingleton(inject.TypeOf[*Scheduler](), scheduler)
			return nil
		}))
		ctx.OnInjectorBuilt(func(injector *inject.Injector) error {
			scheduler.setInjector(injector)
			return nil
		})
		ctx.AddHostedService(scheduler)

		ctx.GetLogger().Info("Cron service configured",
			logging.Field{Key: "jobs", Value: len(builder.jobs)})
	}
}
