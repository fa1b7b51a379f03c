package database

import (
	"gorm.io/gorm"

	"github.com/gocrud/mint/core"
)

// BuilderOption 用于配置 Database Builder
type BuilderOption func(*Builder)

// WithDatabase 添加数据库配置
func WithDatabase(name string, dialector gorm.Dialector, opts ...func(*DatabaseOptions)) BuilderOption {
	return func(b *Builder) {
		b.Add(name, dialector, func(o *DatabaseOptions) {
			for _, opt := range opts {
				opt(o)
			}
		})
	}
}

// New 以应用选项的形式启用数据库
func New(opts ...BuilderOption) core.Option {
	return core.WithConfigurator(Configure(func(b *Builder) {
		for _, opt := range opts {
			opt(b)
		}
	}))
}
