// Package cloudevent 把进程内分发的事件转换为 CloudEvents 并转发给观察者
package cloudevent

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"

	"github.com/gocrud/mint/event"
	"github.com/gocrud/mint/logging"
)

// Sink CloudEvents 的接收方
type Sink interface {
	Send(ctx context.Context, ce cloudevents.Event) error
}

// SinkFunc 函数式 Sink
type SinkFunc func(ctx context.Context, ce cloudevents.Event) error

// Send 实现 Sink
func (f SinkFunc) Send(ctx context.Context, ce cloudevents.Event) error {
	return f(ctx, ce)
}

// Bridge 事件桥接器
type Bridge struct {
	source  string
	prefix  string
	sink    Sink
	logger  logging.Logger
	timeout time.Duration
}

// Option 桥接器选项
type Option func(*Bridge)

// WithTypePrefix 设置 CloudEvent type 前缀，默认 "mint.event."
func WithTypePrefix(prefix string) Option {
	return func(b *Bridge) {
		b.prefix = prefix
	}
}

// WithLogger 设置日志
func WithLogger(logger logging.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithTimeout 设置单次发送超时
func WithTimeout(timeout time.Duration) Option {
	return func(b *Bridge) {
		b.timeout = timeout
	}
}

// NewBridge 创建桥接器，source 为 CloudEvent source 属性
func NewBridge(source string, sink Sink, opts ...Option) *Bridge {
	b := &Bridge{
		source:  source,
		prefix:  "mint.event.",
		sink:    sink,
		logger:  logging.Nop(),
		timeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Convert 把事件转换为 CloudEvent，事件本身作为 JSON 数据
func (b *Bridge) Convert(ev event.Event) (cloudevents.Event, error) {
	ce := cloudevents.NewEvent()
	ce.SetID(newEventID())
	ce.SetSource(b.source)
	ce.SetType(b.prefix + TypeName(ev))
	ce.SetTime(time.Now())
	ce.SetSpecVersion(cloudevents.VersionV1)

	// cancelled 为转换时的状态
	if c, ok := ev.(event.Cancellable); ok {
		ce.SetExtension("cancelled", c.IsCancelled())
	}
	if err := ce.SetData(cloudevents.ApplicationJSON, ev); err != nil {
		return ce, fmt.Errorf("cloudevent: encode %T: %w", ev, err)
	}
	if err := ce.Validate(); err != nil {
		return ce, fmt.Errorf("cloudevent: invalid event: %w", err)
	}
	return ce, nil
}

// Forward 转换并发送事件
func (b *Bridge) Forward(ev event.Event) error {
	ce, err := b.Convert(ev)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	if err := b.sink.Send(ctx, ce); err != nil {
		b.logger.Warn("CloudEvent forwarding failed",
			logging.Field{Key: "type", Value: ce.Type()},
			logging.Field{Key: "id", Value: ce.ID()},
			logging.Field{Key: "error", Value: err})
		return fmt.Errorf("cloudevent: send %s: %w", ce.Type(), err)
	}
	return nil
}

// Watch 以 Monitor 优先级订阅类型 E，把分发结束时仍未取消的事件转发给 Sink
// 被更早的处理器取消的事件不会转发
//
//	cloudevent.Watch[*OrderPlaced](manager, bridge)
func Watch[E any](m *event.Manager, b *Bridge) (*event.Subscription, error) {
	return event.Subscribe(m, func(ev E) error {
		return b.Forward(ev)
	}, event.WithPriority(event.PriorityMonitor))
}

// TypeName 返回事件的类型名，例如 *orders.OrderPlaced -> orders.OrderPlaced
func TypeName(ev event.Event) string {
	t := reflect.TypeOf(ev)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "nil"
	}
	return strings.TrimPrefix(t.String(), "*")
}

// newEventID 优先使用带时间序的 UUIDv7
func newEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}
