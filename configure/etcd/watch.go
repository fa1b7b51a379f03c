package etcd

import (
	"context"
	"fmt"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/gocrud/mint/event"
	"github.com/gocrud/mint/logging"
)

// KeyChangedEvent 被监听前缀下的键发生变化时分发
//
// 事件可以被取消，取消后普通优先级更低的处理器不再收到通知。
type KeyChangedEvent struct {
	event.CancellableEvent
	// Client 产生变化的客户端名称
	Client   string
	Key      string
	Value    []byte
	Deleted  bool
	Revision int64
}

// watcher 监听键前缀并把变化分发为 KeyChangedEvent 的托管服务
type watcher struct {
	client  string
	prefix  string
	factory *EtcdClientFactory
	events  *event.Manager
	logger  logging.Logger
}

func (w *watcher) Name() string {
	return fmt.Sprintf("etcd-watch(%s:%s)", w.client, w.prefix)
}

// Start 阻塞监听直到 ctx 结束
func (w *watcher) Start(ctx context.Context) error {
	client, err := w.factory.Get(w.client)
	if err != nil {
		return err
	}

	for resp := range client.Watch(clientv3.WithRequireLeader(ctx), w.prefix, clientv3.WithPrefix()) {
		if err := resp.Err(); err != nil {
			w.logger.Warn("Etcd watch error",
				logging.Field{Key: "prefix", Value: w.prefix},
				logging.Field{Key: "error", Value: err.Error()})
			continue
		}
		for _, ev := range resp.Events {
			if err := w.events.DispatchEvent(newKeyChangedEvent(w.client, ev)); err != nil {
				w.logger.Warn("Key change handler failed",
					logging.Field{Key: "key", Value: string(ev.Kv.Key)},
					logging.Field{Key: "error", Value: err.Error()})
			}
		}
	}
	return ctx.Err()
}

func (w *watcher) Stop(context.Context) error {
	return nil
}

func newKeyChangedEvent(client string, ev *clientv3.Event) *KeyChangedEvent {
	e := &KeyChangedEvent{
		Client:  client,
		Key:     string(ev.Kv.Key),
		Deleted: ev.Type == clientv3.EventTypeDelete,
	}
	e.Revision = ev.Kv.ModRevision
	if !e.Deleted {
		e.Value = ev.Kv.Value
	}
	return e
}
