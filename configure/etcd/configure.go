package etcd

import (
	"fmt"

	"github.com/gocrud/mint/core"
	"github.com/gocrud/mint/logging"
)

// Configure 返回 Etcd 配置器
// 使用示例: builder.Configure(etcd.Configure(func(b *etcd.Builder) { ... }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder(ctx)
		if options != nil {
			options(builder)
		}

		factory, err := builder.Build(ctx.GetLogger())
		if err != nil {
			ctx.Fail(fmt.Errorf("etcd: %w", err))
			return
		}
		if factory == nil {
			return
		}

		ctx.AddModule(factory.Module())

		for _, w := range builder.watches {
			ctx.AddHostedService(&watcher{
				client:  w.client,
				prefix:  w.prefix,
				factory: factory,
				events:  ctx.Events(),
				logger:  ctx.GetLogger(),
			})
		}

		ctx.SetCleanup("etcd", func() {
			ctx.GetLogger().Info("Closing etcd clients")
			if err := factory.Close(); err != nil {
				ctx.GetLogger().Error("Failed to close etcd clients",
					logging.Field{Key: "error", Value: err.Error()})
			}
		})
	}
}
