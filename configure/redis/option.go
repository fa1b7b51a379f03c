package redis

import "github.com/gocrud/mint/core"

// BuilderOption 用于配置 Redis Builder
type BuilderOption func(*Builder)

// WithClient 添加 Redis 客户端配置
func WithClient(name string, opts ...func(*RedisClientOptions)) BuilderOption {
	return func(b *Builder) {
		b.AddClient(name, func(o *RedisClientOptions) {
			for _, opt := range opts {
				opt(o)
			}
		})
	}
}

// New 以应用选项的形式启用 Redis
//
//	mint.Run(redis.New(redis.WithClient("cache", func(o *redis.RedisClientOptions) { o.Addr = "cache:6379" })))
func New(opts ...BuilderOption) core.Option {
	return core.WithConfigurator(Configure(func(b *Builder) {
		for _, opt := range opts {
			opt(b)
		}
	}))
}
