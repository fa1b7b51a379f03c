package etcd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/gocrud/mint/core"
	"github.com/gocrud/mint/event"
	"github.com/gocrud/mint/inject"
	"github.com/gocrud/mint/logging"
)

type registryService struct {
	Master *clientv3.Client
}

func TestEtcdConfiguration(t *testing.T) {
	catalog := inject.NewCatalog()
	catalog.MustProvide(func(master *clientv3.Client) *registryService {
		return &registryService{Master: master}
	}, inject.Annotate(0, inject.Named("master")))

	app, err := core.NewApplicationBuilder().
		UseCatalog(catalog).
		Configure(Configure(func(b *Builder) {
			b.AddClient("master", func(o *EtcdClientOptions) {
				o.Endpoints = []string{"localhost:2379"}
			})
			b.WatchPrefix("master", "/services/")
		})).
		Build()
	require.NoError(t, err)

	factory := inject.MustGet[*EtcdClientFactory](app.Injector())
	defer factory.Close()

	master, err := factory.Get("master")
	require.NoError(t, err)

	svc := inject.MustGet[*registryService](app.Injector())
	assert.Same(t, master, svc.Master)
	assert.Equal(t, []string{"localhost:2379"}, master.Endpoints())

	// 没有 default 客户端时不绑定无标记的客户端单例
	assert.False(t, app.Injector().Binder().SingletonExists(inject.TypeOf[*clientv3.Client]()))
}

func TestEtcdBuilder_Errors(t *testing.T) {
	builder := NewBuilder(nil)

	builder.AddClient("invalid", func(o *EtcdClientOptions) {
		o.Endpoints = nil
	})
	builder.AddClient("duplicate", nil)
	builder.AddClient("duplicate", nil)

	_, err := builder.Build(logging.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "etcd endpoints are required")
	assert.Contains(t, err.Error(), "already configured")
}

func TestEtcdBuilder_WatchUnknownClient(t *testing.T) {
	_, err := NewBuilder(nil).WatchPrefix("nope", "/").Build(logging.Nop())
	assert.ErrorContains(t, err, "unknown client 'nope'")
}

func TestNewKeyChangedEvent(t *testing.T) {
	put := newKeyChangedEvent("master", &clientv3.Event{
		Type: clientv3.EventTypePut,
		Kv:   &mvccpb.KeyValue{Key: []byte("/services/a"), Value: []byte("10.0.0.1"), ModRevision: 7},
	})
	assert.Equal(t, "/services/a", put.Key)
	assert.Equal(t, []byte("10.0.0.1"), put.Value)
	assert.Equal(t, int64(7), put.Revision)
	assert.False(t, put.Deleted)

	del := newKeyChangedEvent("master", &clientv3.Event{
		Type: clientv3.EventTypeDelete,
		Kv:   &mvccpb.KeyValue{Key: []byte("/services/a"), ModRevision: 8},
	})
	assert.True(t, del.Deleted)
	assert.Nil(t, del.Value)

	// 事件可以通过事件管理器分发并被取消
	m := event.NewManager()
	var seen []string
	_, err := event.Subscribe(m, func(e *KeyChangedEvent) error {
		seen = append(seen, "first")
		e.SetCancelled(true)
		return nil
	}, event.WithPriority(event.PriorityHigh))
	require.NoError(t, err)
	_, err = event.Subscribe(m, func(e *KeyChangedEvent) error {
		seen = append(seen, "second")
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, m.DispatchEvent(put))
	assert.Equal(t, []string{"first"}, seen)
	assert.True(t, put.IsCancelled())
}
