// Package inject 提供基于绑定表的依赖注入容器
//
// 模块（Module）向 Binder 贡献实现绑定与常量绑定，Injector 按需递归解析
// 构造函数参数构建对象图。构造函数通过 Catalog 显式登记。
package inject

import (
	"fmt"
	"reflect"
	"sync"
)

// TypeOf 获取类型 T 的 reflect.Type，对接口类型同样适用
//
// 示例：
//
//	serviceType := inject.TypeOf[UserService]()
//	instance, _ := injector.GetInstance(serviceType)
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Scope 定义绑定的实例缓存策略
type Scope int

const (
	// ScopeDefault 每次解析都创建新实例，创建后立即遗忘
	ScopeDefault Scope = iota
	// ScopeSingleton 首次解析的实例缓存在 Binder 中，注入器生命周期内一直复用
	ScopeSingleton
)

// String 返回作用域名称
func (s Scope) String() string {
	switch s {
	case ScopeDefault:
		return "default"
	case ScopeSingleton:
		return "singleton"
	default:
		return fmt.Sprintf("Scope(%d)", int(s))
	}
}

// Marker 标记，用于区分同一类型的不同常量绑定
//
// 每次调用 NewMarker 都会得到一个新的标识，即使名称相同也互不相等。
//
// 示例：
//
//	var ListenAddr = inject.NewMarker("listen-addr")
//
//	inject.Bind[string](b).AnnotatedWith(ListenAddr).ToValue(":8080")
type Marker struct {
	name string
}

// NewMarker 创建一个新的标记
func NewMarker(name string) *Marker {
	return &Marker{name: name}
}

var namedMarkers sync.Map

// Named 返回进程内与 name 对应的唯一标记，同名调用得到同一个标记
// 用于按名称区分的多实例客户端，例如 Named("cache") 标注 *redis.Client 参数
func Named(name string) *Marker {
	if m, ok := namedMarkers.Load(name); ok {
		return m.(*Marker)
	}
	m, _ := namedMarkers.LoadOrStore(name, NewMarker(name))
	return m.(*Marker)
}

// Name 返回标记名称
func (m *Marker) Name() string {
	return m.name
}

// String 返回标记的字符串表示
func (m *Marker) String() string {
	return "@" + m.name
}

// ImplementationBinding 实现绑定：definition -> implementation
type ImplementationBinding struct {
	Definition     reflect.Type
	Implementation reflect.Type
	Scope          Scope
}

// String 返回绑定的字符串表示
func (b ImplementationBinding) String() string {
	return fmt.Sprintf("%v -> %v (%s)", b.Definition, b.Implementation, b.Scope)
}

// Validate 检查实现类型是否满足定义类型
func (b ImplementationBinding) Validate() error {
	if b.Definition == nil {
		return fmt.Errorf("inject: binding definition is nil")
	}
	if b.Implementation == nil {
		return fmt.Errorf("inject: binding for %v has nil implementation", b.Definition)
	}
	if !b.Implementation.AssignableTo(b.Definition) {
		return fmt.Errorf("%w: %v does not satisfy %v", ErrNotAssignable, b.Implementation, b.Definition)
	}
	return nil
}

// ConstantBinding 常量绑定：(type, marker) -> value
type ConstantBinding struct {
	Type   reflect.Type
	Marker *Marker
	Value  any
}

// Validate 检查常量值是否可以赋给声明类型
func (b ConstantBinding) Validate() error {
	if b.Type == nil {
		return fmt.Errorf("inject: constant binding type is nil")
	}
	if b.Marker == nil {
		return fmt.Errorf("inject: constant binding for %v has nil marker", b.Type)
	}
	if b.Value == nil {
		switch b.Type.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return nil
		}
		return fmt.Errorf("%w: nil constant for %v %v", ErrNotAssignable, b.Type, b.Marker)
	}
	if vt := reflect.TypeOf(b.Value); !vt.AssignableTo(b.Type) {
		return fmt.Errorf("%w: constant %v %v has type %v", ErrNotAssignable, b.Type, b.Marker, vt)
	}
	return nil
}

type constantKey struct {
	typ    reflect.Type
	marker *Marker
}
