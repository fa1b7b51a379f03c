package web

import (
	"fmt"

	"github.com/gocrud/mint/core"
	"github.com/gocrud/mint/inject"
	"github.com/gocrud/mint/logging"
)

// Configure 返回 Web 配置器
// 使用示例: builder.Configure(web.Configure(func(b *web.Builder) { ... }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder(ctx)
		if options != nil {
			options(builder)
		}

		sources, err := builder.prepareControllers(ctx.Catalog())
		if err != nil {
			ctx.Fail(fmt.Errorf("web: %w", err))
			return
		}

		host := builder.Build(ctx.LoggerFactory().CreateLogger("web"))

		ctx.AddModule(inject.ModuleFunc(func(b inject.Binder) error {
			b.BindSingleton(inject.TypeOf[*Host](), host)
			return nil
		}))
		ctx.OnInjectorBuilt(func(injector *inject.Injector) error {
			if builder.diagnostics != "" {
				mountDiagnostics(host.engine.Group(builder.diagnostics), injector, ctx.Events())
			}
			if err := host.mapControllers(injector, sources); err != nil {
				return fmt.Errorf("web: %w", err)
			}
			return nil
		})
		ctx.AddHostedService(host)

		ctx.GetLogger().Info("Web host configured",
			logging.Field{Key: "address", Value: host.addr},
			logging.Field{Key: "controllers", Value: len(sources)})
	}
}
