// Package configure 汇总各基础设施模块的配置器
package configure

import (
	"github.com/gocrud/mint/configure/cron"
	"github.com/gocrud/mint/configure/database"
	"github.com/gocrud/mint/configure/etcd"
	"github.com/gocrud/mint/configure/mongodb"
	"github.com/gocrud/mint/configure/redis"
	"github.com/gocrud/mint/configure/web"
	"github.com/gocrud/mint/core"
)

// Etcd 便捷导出 etcd 配置器
// 使用示例: builder.Configure(configure.Etcd(func(b *etcd.Builder) { ... }))
func Etcd(options func(*etcd.Builder)) core.Configurator {
	return etcd.Configure(options)
}

// Cron 便捷导出 cron 配置器
func Cron(options func(*cron.Builder)) core.Configurator {
	return cron.Configure(options)
}

// Web 便捷导出 web 配置器
func Web(options func(*web.Builder)) core.Configurator {
	return web.Configure(options)
}

// Redis 便捷导出 redis 配置器
func Redis(options func(*redis.Builder)) core.Configurator {
	return redis.Configure(options)
}

// Database 便捷导出数据库配置器
func Database(options func(*database.Builder)) core.Configurator {
	return database.Configure(options)
}

// Mongo 便捷导出 MongoDB 配置器
func Mongo(options func(*mongodb.Builder)) core.Configurator {
	return mongodb.Configure(options)
}
