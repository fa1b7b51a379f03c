package etcd

import "github.com/gocrud/mint/core"

// BuilderOption 用于配置 Etcd Builder
type BuilderOption func(*Builder)

// WithClient 添加 Etcd 客户端配置
func WithClient(name string, opts ...func(*EtcdClientOptions)) BuilderOption {
	return func(b *Builder) {
		b.AddClient(name, func(o *EtcdClientOptions) {
			for _, opt := range opts {
				opt(o)
			}
		})
	}
}

// WithWatch 监听 client 上 prefix 下的键变化并分发 KeyChangedEvent
func WithWatch(client, prefix string) BuilderOption {
	return func(b *Builder) {
		b.WatchPrefix(client, prefix)
	}
}

// New 以应用选项的形式启用 Etcd
func New(opts ...BuilderOption) core.Option {
	return core.WithConfigurator(Configure(func(b *Builder) {
		for _, opt := range opts {
			opt(b)
		}
	}))
}
