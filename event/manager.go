package event

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/gocrud/mint/logging"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Manager 事件管理器
type Manager struct {
	registry *Registry
	logger   logging.Logger
}

// Option 管理器选项
type Option func(*Manager)

// WithRegistry 使用已有的处理器索引
func WithRegistry(registry *Registry) Option {
	return func(m *Manager) {
		m.registry = registry
	}
}

// WithLogger 设置日志
func WithLogger(logger logging.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager 创建事件管理器
func NewManager(opts ...Option) *Manager {
	m := &Manager{}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = NewRegistry()
	}
	if m.logger == nil {
		m.logger = logging.Nop()
	}
	return m
}

// Registry 返回处理器索引
func (m *Manager) Registry() *Registry {
	return m.registry
}

// RegisterListener 扫描监听器的导出方法，登记 EventHandlers 中标记的处理器
// 返回登记的处理器数量；签名不符的方法记录警告后跳过
func (m *Manager) RegisterListener(listener Listener) (int, error) {
	if listener == nil {
		return 0, fmt.Errorf("%w: nil listener", ErrInvalidListener)
	}
	if !comparableOwner(listener) {
		return 0, fmt.Errorf("%w: %T is not comparable, register a pointer", ErrInvalidListener, listener)
	}

	tags := listener.EventHandlers()
	if len(tags) == 0 {
		return 0, nil
	}

	value := reflect.ValueOf(listener)
	typ := value.Type()
	seen := make(map[string]bool, len(tags))
	registered := 0

	// reflect 按方法名排序，登记顺序因此是确定的
	for i := 0; i < typ.NumMethod(); i++ {
		method := typ.Method(i)
		tag, ok := tags[method.Name]
		if !ok {
			continue
		}
		seen[method.Name] = true

		fn := value.Method(i)
		eventType, err := handlerEventType(fn.Type())
		if err != nil {
			m.logger.Warn("Event handler skipped",
				logging.Field{Key: "listener", Value: typ.String()},
				logging.Field{Key: "method", Value: method.Name},
				logging.Field{Key: "error", Value: err})
			continue
		}
		if !tag.Priority.Valid() {
			m.logger.Warn("Event handler skipped",
				logging.Field{Key: "listener", Value: typ.String()},
				logging.Field{Key: "method", Value: method.Name},
				logging.Field{Key: "priority", Value: tag.Priority.String()})
			continue
		}

		m.registry.Register(&Handler{
			EventType:       eventType,
			Priority:        tag.Priority,
			IgnoreCancelled: tag.IgnoreCancelled,
			Owner:           listener,
			Name:            method.Name,
			fn:              fn,
		})
		registered++
	}

	for name := range tags {
		if !seen[name] {
			m.logger.Warn("Event handler method not found",
				logging.Field{Key: "listener", Value: typ.String()},
				logging.Field{Key: "method", Value: name})
		}
	}

	m.logger.Debug("Listener registered",
		logging.Field{Key: "listener", Value: typ.String()},
		logging.Field{Key: "handlers", Value: registered})
	return registered, nil
}

// UnregisterListener 移除监听器的全部处理器
func (m *Manager) UnregisterListener(listener Listener) int {
	return m.registry.Unregister(listener)
}

// handlerEventType 校验处理器签名 func(E) 或 func(E) error，返回事件类型
func handlerEventType(fnType reflect.Type) (reflect.Type, error) {
	if fnType.NumIn() != 1 || fnType.IsVariadic() {
		return nil, fmt.Errorf("handler must take exactly one event parameter")
	}
	switch {
	case fnType.NumOut() == 0:
	case fnType.NumOut() == 1 && fnType.Out(0) == errorType:
	default:
		return nil, fmt.Errorf("handler must return nothing or error")
	}
	eventType := fnType.In(0)
	if eventType.Kind() == reflect.Interface {
		return nil, fmt.Errorf("event parameter %v must be a concrete type", eventType)
	}
	return eventType, nil
}

// DispatchEvent 分发事件
//
// 第一阶段按优先级依次执行所有忽略取消的处理器，始终全部执行；
// 其中任一处理器失败时返回合并后的错误，不再进入第二阶段。
// 第二阶段按优先级执行其余处理器，每次调用后若事件已被取消则立即停止，
// 处理器返回错误时中止分发。
func (m *Manager) DispatchEvent(event Event) error {
	if event == nil {
		return ErrNilEvent
	}

	eventType := reflect.TypeOf(event)
	eventValue := reflect.ValueOf(event)
	cancellable, isCancellable := event.(Cancellable)

	var errs []error
	for _, priority := range priorities {
		for _, h := range m.registry.Handlers(eventType, priority, true) {
			if err := m.invoke(h, eventValue); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	for _, priority := range priorities {
		for _, h := range m.registry.Handlers(eventType, priority, false) {
			if err := m.invoke(h, eventValue); err != nil {
				return err
			}
			if isCancellable && cancellable.IsCancelled() {
				m.logger.Trace("Event cancelled",
					logging.Field{Key: "event", Value: eventType.String()},
					logging.Field{Key: "handler", Value: h.String()})
				return nil
			}
		}
	}

	return nil
}

// invoke 调用处理器；无法调用时记录日志并返回 nil
func (m *Manager) invoke(h *Handler, event reflect.Value) (err error) {
	if !h.fn.IsValid() || h.fn.Type().NumIn() != 1 || !event.Type().AssignableTo(h.fn.Type().In(0)) {
		m.logger.Error("Event handler skipped",
			logging.Field{Key: "handler", Value: h.String()},
			logging.Field{Key: "error", Value: ErrHandlerAccess})
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: panic: %v", ErrHandlerInvocation, h, r)
		}
	}()

	results := h.fn.Call([]reflect.Value{event})
	if len(results) == 1 && !results[0].IsNil() {
		return fmt.Errorf("%w: %s: %w", ErrHandlerInvocation, h, results[0].Interface().(error))
	}
	return nil
}

// Subscription 函数订阅，作为处理器的 Owner
type Subscription struct {
	manager *Manager
	name    string
}

// Unsubscribe 取消订阅
func (s *Subscription) Unsubscribe() {
	s.manager.registry.Unregister(s)
}

func (s *Subscription) String() string {
	return s.name
}

// SubscribeOption 订阅选项
type SubscribeOption func(*HandlerTag)

// WithPriority 设置订阅的优先级
func WithPriority(priority Priority) SubscribeOption {
	return func(t *HandlerTag) {
		t.Priority = priority
	}
}

// IgnoreCancelled 订阅在第一阶段执行，不受取消影响
func IgnoreCancelled() SubscribeOption {
	return func(t *HandlerTag) {
		t.IgnoreCancelled = true
	}
}

// Subscribe 直接登记类型为 E 的函数处理器
//
// 示例：
//
//	event.Subscribe(manager, func(e *UserDeleting) error {
//		return audit.Record(e.UserID)
//	}, event.WithPriority(event.PriorityMonitor), event.IgnoreCancelled())
func Subscribe[E any](m *Manager, fn func(E) error, opts ...SubscribeOption) (*Subscription, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: nil handler function", ErrInvalidListener)
	}
	fnValue := reflect.ValueOf(fn)
	eventType, err := handlerEventType(fnValue.Type())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidListener, err)
	}

	var tag HandlerTag
	for _, opt := range opts {
		opt(&tag)
	}
	if !tag.Priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %s", ErrInvalidListener, tag.Priority)
	}

	sub := &Subscription{manager: m, name: "func(" + eventType.String() + ")"}
	m.registry.Register(&Handler{
		EventType:       eventType,
		Priority:        tag.Priority,
		IgnoreCancelled: tag.IgnoreCancelled,
		Owner:           sub,
		Name:            "Func",
		fn:              fnValue,
	})
	return sub, nil
}
