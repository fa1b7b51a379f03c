package inject

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

// Module 配置单元：接收 Binder 并向其贡献绑定，本身不持有状态
type Module interface {
	Configure(binder Binder) error
}

// ModuleFunc 函数式模块
type ModuleFunc func(binder Binder) error

// Configure 实现 Module 接口
func (f ModuleFunc) Configure(binder Binder) error {
	return f(binder)
}

// AbstractModule 带重入保护的模块
//
// 同一个模块实例同一时刻只允许一次 Configure：
// 在 Configure 过程中（无论是递归还是并发）再次调用会返回 ErrReentrantConfiguration。
// Configure 结束后模块可以再次安装到其他 Binder。
//
// 示例：
//
//	var StorageModule = inject.NewModule("storage", func(m *inject.AbstractModule) error {
//		inject.Bind[Store](m.MustBinder()).To(inject.TypeOf[*sqlStore]()).In(inject.ScopeSingleton)
//		return nil
//	})
type AbstractModule struct {
	name      string
	configure func(m *AbstractModule) error

	configuring atomic.Bool
	mu          sync.RWMutex
	binder      Binder
}

// NewModule 创建带重入保护的模块
func NewModule(name string, configure func(m *AbstractModule) error) *AbstractModule {
	return &AbstractModule{name: name, configure: configure}
}

// Name 返回模块名称
func (m *AbstractModule) Name() string {
	return m.name
}

// String 返回模块名称
func (m *AbstractModule) String() string {
	return "module(" + m.name + ")"
}

// Configure 实现 Module 接口
func (m *AbstractModule) Configure(binder Binder) error {
	if binder == nil {
		return fmt.Errorf("inject: %s configured with nil binder", m)
	}
	if !m.configuring.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: %s", ErrReentrantConfiguration, m)
	}
	defer m.configuring.Store(false)

	m.mu.Lock()
	m.binder = binder
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.binder = nil
		m.mu.Unlock()
	}()

	if m.configure == nil {
		return nil
	}
	return m.configure(m)
}

// Binder 返回当前正在配置的 Binder，只能在 Configure 期间调用
func (m *AbstractModule) Binder() (Binder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.binder == nil {
		return nil, fmt.Errorf("%w: %s", ErrBinderUnavailable, m)
	}
	return m.binder, nil
}

// MustBinder 与 Binder 相同，失败时 panic
func (m *AbstractModule) MustBinder() Binder {
	b, err := m.Binder()
	if err != nil {
		panic(err)
	}
	return b
}

// Install 在当前 Binder 上安装另一个模块
func (m *AbstractModule) Install(module Module) error {
	b, err := m.Binder()
	if err != nil {
		return err
	}
	return b.Install(module)
}

// LinkedBindingBuilder 绑定构建器的入口
type LinkedBindingBuilder struct {
	binder     Binder
	definition reflect.Type
}

// Bind 为类型 T 开始一个绑定
//
// 示例：
//
//	inject.Bind[UserService](b).To(inject.TypeOf[*userService]()).In(inject.ScopeSingleton)
//	inject.Bind[string](b).AnnotatedWith(DSN).ToValue("file::memory:")
func Bind[T any](binder Binder) *LinkedBindingBuilder {
	return BindType(binder, TypeOf[T]())
}

// BindType 为 definition 开始一个绑定
func BindType(binder Binder, definition reflect.Type) *LinkedBindingBuilder {
	return &LinkedBindingBuilder{binder: binder, definition: definition}
}

// To 绑定到实现类型，实现类型不满足定义时 panic
func (l *LinkedBindingBuilder) To(implementation reflect.Type) *ScopedBindingBuilder {
	binding := ImplementationBinding{
		Definition:     l.definition,
		Implementation: implementation,
		Scope:          ScopeDefault,
	}
	if err := l.binder.BindImplementation(binding); err != nil {
		panic(fmt.Sprintf("inject: failed to bind %v: %v", l.definition, err))
	}
	return &ScopedBindingBuilder{binder: l.binder, binding: binding}
}

// ToSelf 绑定到自身
func (l *LinkedBindingBuilder) ToSelf() *ScopedBindingBuilder {
	return l.To(l.definition)
}

// AnnotatedWith 为常量绑定指定标记
func (l *LinkedBindingBuilder) AnnotatedWith(marker *Marker) *ConstantBindingBuilder {
	return &ConstantBindingBuilder{binder: l.binder, typ: l.definition, marker: marker}
}

// ScopedBindingBuilder 设置绑定的作用域
type ScopedBindingBuilder struct {
	binder  Binder
	binding ImplementationBinding
}

// In 设置作用域
func (s *ScopedBindingBuilder) In(scope Scope) {
	s.binding.Scope = scope
	if err := s.binder.BindImplementation(s.binding); err != nil {
		panic(fmt.Sprintf("inject: failed to bind %v: %v", s.binding.Definition, err))
	}
}

// AsSingleton 等价于 In(ScopeSingleton)
func (s *ScopedBindingBuilder) AsSingleton() {
	s.In(ScopeSingleton)
}

// ConstantBindingBuilder 常量绑定构建器
type ConstantBindingBuilder struct {
	binder Binder
	typ    reflect.Type
	marker *Marker
}

// ToValue 绑定常量值，值类型不匹配时 panic
func (c *ConstantBindingBuilder) ToValue(value any) {
	if err := c.binder.BindConstant(ConstantBinding{Type: c.typ, Marker: c.marker, Value: value}); err != nil {
		panic(fmt.Sprintf("inject: failed to bind constant %v %v: %v", c.typ, c.marker, err))
	}
}

// BindTo 绑定 D -> I 的泛型语法糖
func BindTo[D, I any](binder Binder, scope Scope) error {
	return binder.BindImplementation(ImplementationBinding{
		Definition:     TypeOf[D](),
		Implementation: TypeOf[I](),
		Scope:          scope,
	})
}

// BindConstant 绑定 (T, marker) -> value 的泛型语法糖
func BindConstant[T any](binder Binder, marker *Marker, value T) error {
	return binder.BindConstant(ConstantBinding{Type: TypeOf[T](), Marker: marker, Value: value})
}
