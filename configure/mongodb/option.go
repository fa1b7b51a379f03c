package mongodb

import "github.com/gocrud/mint/core"

// BuilderOption 用于配置 MongoDB Builder
type BuilderOption func(*Builder)

// WithClient 添加 MongoDB 客户端配置
func WithClient(name string, uri string, opts ...func(*MongoOptions)) BuilderOption {
	return func(b *Builder) {
		b.Add(name, uri, func(o *MongoOptions) {
			for _, opt := range opts {
				opt(o)
			}
		})
	}
}

// New 以应用选项的形式启用 MongoDB
func New(opts ...BuilderOption) core.Option {
	return core.WithConfigurator(Configure(func(b *Builder) {
		for _, opt := range opts {
			opt(b)
		}
	}))
}
