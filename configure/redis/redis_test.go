package redis_test

import (
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/mint/configure/redis"
	"github.com/gocrud/mint/core"
	"github.com/gocrud/mint/inject"
	"github.com/gocrud/mint/logging"
)

// CacheService 依赖具名 Redis 客户端的服务
type CacheService struct {
	Cache   *goredis.Client
	Default *goredis.Client
}

func TestRedisConfiguration(t *testing.T) {
	catalog := inject.NewCatalog()
	catalog.MustProvide(func(cache, def *goredis.Client) *CacheService {
		return &CacheService{Cache: cache, Default: def}
	}, inject.Annotate(0, inject.Named("cache")))

	app, err := core.NewApplicationBuilder().
		UseCatalog(catalog).
		Configure(redis.Configure(func(b *redis.Builder) {
			b.AddClient("cache", func(o *redis.RedisClientOptions) {
				o.Addr = "localhost:6380"
				o.Ping = false
			})
			b.AddClient(redis.DefaultClient, func(o *redis.RedisClientOptions) {
				o.Ping = false
			})
		})).
		Build()
	require.NoError(t, err)

	svc := inject.MustGet[*CacheService](app.Injector())
	assert.Equal(t, "localhost:6380", svc.Cache.Options().Addr)
	assert.Equal(t, "localhost:6379", svc.Default.Options().Addr)

	factory := inject.MustGet[*redis.RedisClientFactory](app.Injector())
	assert.Equal(t, []string{"cache", "default"}, factory.Names())

	cache, err := factory.Get("cache")
	require.NoError(t, err)
	assert.Same(t, svc.Cache, cache)

	assert.NoError(t, factory.Close())
	_, err = factory.Get("cache")
	assert.Error(t, err)
}

func TestRedisConfiguration_NoClients(t *testing.T) {
	app, err := core.NewApplicationBuilder().
		UseCatalog(inject.NewCatalog()).
		Configure(redis.Configure(nil)).
		Build()
	require.NoError(t, err)

	binder := app.Injector().Binder()
	assert.False(t, binder.SingletonExists(inject.TypeOf[*redis.RedisClientFactory]()))
	assert.False(t, binder.SingletonExists(inject.TypeOf[*goredis.Client]()))
}

func TestRedisBuilder_Errors(t *testing.T) {
	builder := redis.NewBuilder(nil)

	builder.AddClient("invalid", func(o *redis.RedisClientOptions) {
		o.Addr = ""
	})
	builder.AddClient("duplicate", func(o *redis.RedisClientOptions) { o.Ping = false })
	builder.AddClient("duplicate", nil)

	_, err := builder.Build(logging.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already configured")
	assert.Contains(t, err.Error(), "redis address is required")
}

func TestRedisConfigure_ReportsBuildError(t *testing.T) {
	_, err := core.NewApplicationBuilder().
		UseCatalog(inject.NewCatalog()).
		Configure(redis.Configure(func(b *redis.Builder) {
			b.AddClient("", nil)
		})).
		Build()
	assert.ErrorContains(t, err, "redis client name is required")
}
