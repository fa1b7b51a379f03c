package mongodb

import (
	"fmt"

	"github.com/gocrud/mint/core"
	"github.com/gocrud/mint/logging"
)

// Configure 返回 MongoDB 配置器
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder(ctx)
		if options != nil {
			options(builder)
		}

		factory, err := builder.Build(ctx.GetLogger())
		if err != nil {
			ctx.Fail(fmt.Errorf("mongodb: %w", err))
			return
		}
		if factory == nil {
			return
		}

		ctx.AddModule(factory.Module())

		ctx.SetCleanup("mongodb", func() {
			ctx.GetLogger().Info("Closing mongo clients")
			if err := factory.Close(); err != nil {
				ctx.GetLogger().Error("Failed to close mongo clients",
					logging.Field{Key: "error", Value: err.Error()})
			}
		})
	}
}
