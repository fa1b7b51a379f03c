package database

import (
	"fmt"

	"github.com/gocrud/mint/core"
	"github.com/gocrud/mint/logging"
)

// Configure 返回数据库配置器
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder(ctx)
		if options != nil {
			options(builder)
		}

		factory, err := builder.Build(ctx.GetLogger())
		if err != nil {
			ctx.Fail(fmt.Errorf("database: %w", err))
			return
		}
		if factory == nil {
			return
		}

		ctx.AddModule(factory.Module())

		ctx.SetCleanup("database", func() {
			ctx.GetLogger().Info("Closing database connections")
			if err := factory.Close(); err != nil {
				ctx.GetLogger().Error("Failed to close databases",
					logging.Field{Key: "error", Value: err.Error()})
			}
		})
	}
}
