package inject

import (
	"fmt"
	"reflect"
	"sync"
)

// TypeTags 类型上的约定标签，决定注入器是否为其自动合成绑定
type TypeTags struct {
	// Singleton 为 true 时自动绑定 type -> type (ScopeSingleton)
	Singleton bool
	// ImplementedBy 非 nil 时自动绑定 type -> ImplementedBy (ScopeDefault)
	ImplementedBy reflect.Type
}

// TypeRegistry 类型注册表提供者，供注入器枚举约定绑定
type TypeRegistry interface {
	// ListAllTypes 按注册顺序返回所有已知类型
	ListAllTypes() []reflect.Type
	// Tags 返回类型上的约定标签
	Tags(typ reflect.Type) TypeTags
}

// ConstructorSource 构造函数来源：给定实现类型，按声明顺序返回其构造函数
type ConstructorSource interface {
	Constructors(typ reflect.Type) []*Constructor
}

// Param 构造函数参数描述
type Param struct {
	Type    reflect.Type
	Markers []*Marker
}

// Constructor 构造函数描述
type Constructor struct {
	fn      reflect.Value
	result  reflect.Type
	params  []Param
	inject  bool
	invoker Invoker
}

// ConstructorOption 构造函数注册选项
type ConstructorOption func(*Constructor)

// Injectable 为构造函数加上注入标记
func Injectable() ConstructorOption {
	return func(c *Constructor) {
		c.inject = true
	}
}

// Annotate 为第 index 个参数添加标记；多个标记时只有第一个参与常量匹配
func Annotate(index int, markers ...*Marker) ConstructorOption {
	return func(c *Constructor) {
		if index < 0 || index >= len(c.params) {
			panic(fmt.Sprintf("inject: parameter index %d out of range for %v", index, c.fn.Type()))
		}
		c.params[index].Markers = append(c.params[index].Markers, markers...)
	}
}

// NewConstructor 从函数创建构造函数描述
// fn 的第一个返回值是构造出的实例，可选的第二个返回值为 error
func NewConstructor(fn any, opts ...ConstructorOption) (*Constructor, error) {
	fnVal := reflect.ValueOf(fn)
	if fnVal.Kind() != reflect.Func {
		return nil, fmt.Errorf("inject: constructor must be a function, got %T", fn)
	}
	fnType := fnVal.Type()
	if fnType.IsVariadic() {
		return nil, fmt.Errorf("inject: variadic constructor %v is not supported", fnType)
	}

	switch fnType.NumOut() {
	case 1:
	case 2:
		if !fnType.Out(1).Implements(errorType) {
			return nil, fmt.Errorf("inject: second result of constructor %v must be error", fnType)
		}
	default:
		return nil, fmt.Errorf("inject: constructor %v must return (T) or (T, error)", fnType)
	}

	c := &Constructor{
		fn:     fnVal,
		result: fnType.Out(0),
		params: make([]Param, fnType.NumIn()),
	}
	for i := 0; i < fnType.NumIn(); i++ {
		c.params[i] = Param{Type: fnType.In(i)}
	}
	for _, opt := range opts {
		opt(c)
	}
	c.invoker = createConstructorInvoker(c.fn)
	return c, nil
}

// Result 返回构造出的类型
func (c *Constructor) Result() reflect.Type {
	return c.result
}

// Params 返回参数描述
func (c *Constructor) Params() []Param {
	return c.params
}

// Injectable 判断构造函数是否可用于注入：带注入标记，或没有参数
func (c *Constructor) Injectable() bool {
	return c.inject || len(c.params) == 0
}

func (c *Constructor) String() string {
	if !c.fn.IsValid() {
		return "new(" + c.result.String() + ")"
	}
	return c.fn.Type().String()
}

// zeroConstructor 为结构体或结构体指针合成零参数构造函数
func zeroConstructor(typ reflect.Type) *Constructor {
	var fn func([]reflect.Value) (any, error)
	switch {
	case typ.Kind() == reflect.Struct:
		fn = func([]reflect.Value) (any, error) {
			return reflect.New(typ).Elem().Interface(), nil
		}
	case typ.Kind() == reflect.Pointer && typ.Elem().Kind() == reflect.Struct:
		fn = func([]reflect.Value) (any, error) {
			return reflect.New(typ.Elem()).Interface(), nil
		}
	default:
		return nil
	}
	return &Constructor{result: typ, invoker: fn}
}

// Catalog 显式的类型目录：在启动时登记类型的构造函数与约定标签
//
// Catalog 同时实现 TypeRegistry 与 ConstructorSource。
//
// 示例：
//
//	catalog := inject.NewCatalog()
//	catalog.MustProvide(NewUserService, inject.Annotate(1, Region))
//	catalog.Tag(inject.TypeOf[*Metrics](), inject.AsSingleton())
//	catalog.Tag(inject.TypeOf[Clock](), inject.ImplementedBy[*systemClock]())
type Catalog struct {
	mu      sync.RWMutex
	order   []reflect.Type
	entries map[reflect.Type]*catalogEntry
}

type catalogEntry struct {
	constructors []*Constructor
	tags         TypeTags
}

// TagOption 类型标签选项
type TagOption func(*TypeTags)

// AsSingleton 约定该类型为单例
func AsSingleton() TagOption {
	return func(t *TypeTags) {
		t.Singleton = true
	}
}

// ImplementedBy 约定该类型的默认实现
func ImplementedBy[I any]() TagOption {
	return ImplementedByType(TypeOf[I]())
}

// ImplementedByType 约定该类型的默认实现
func ImplementedByType(impl reflect.Type) TagOption {
	return func(t *TypeTags) {
		t.ImplementedBy = impl
	}
}

// NewCatalog 创建空目录
func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[reflect.Type]*catalogEntry)}
}

func (c *Catalog) entry(typ reflect.Type) *catalogEntry {
	e, ok := c.entries[typ]
	if !ok {
		e = &catalogEntry{}
		c.entries[typ] = e
		c.order = append(c.order, typ)
	}
	return e
}

// Provide 登记一个带注入标记的构造函数
func (c *Catalog) Provide(fn any, opts ...ConstructorOption) error {
	return c.Declare(fn, append([]ConstructorOption{Injectable()}, opts...)...)
}

// MustProvide 与 Provide 相同，失败时 panic
func (c *Catalog) MustProvide(fn any, opts ...ConstructorOption) {
	if err := c.Provide(fn, opts...); err != nil {
		panic(err)
	}
}

// Declare 登记构造函数但不加注入标记：只有无参数时才会被注入器使用
func (c *Catalog) Declare(fn any, opts ...ConstructorOption) error {
	ctor, err := NewConstructor(fn, opts...)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(ctor.result)
	e.constructors = append(e.constructors, ctor)
	return nil
}

// Tag 为类型添加约定标签
func (c *Catalog) Tag(typ reflect.Type, opts ...TagOption) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(typ)
	for _, opt := range opts {
		opt(&e.tags)
	}
}

// ListAllTypes 实现 TypeRegistry
func (c *Catalog) ListAllTypes() []reflect.Type {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]reflect.Type, len(c.order))
	copy(out, c.order)
	return out
}

// Tags 实现 TypeRegistry
func (c *Catalog) Tags(typ reflect.Type) TypeTags {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.entries[typ]; ok {
		return e.tags
	}
	return TypeTags{}
}

// Constructors 实现 ConstructorSource
// 没有登记构造函数的结构体（或结构体指针）类型返回合成的零参数构造函数
func (c *Catalog) Constructors(typ reflect.Type) []*Constructor {
	c.mu.RLock()
	e, ok := c.entries[typ]
	var ctors []*Constructor
	if ok {
		ctors = make([]*Constructor, len(e.constructors))
		copy(ctors, e.constructors)
	}
	c.mu.RUnlock()

	if len(ctors) > 0 {
		return ctors
	}
	if zc := zeroConstructor(typ); zc != nil {
		return []*Constructor{zc}
	}
	return nil
}

// DefaultCatalog 进程级默认目录
var DefaultCatalog = NewCatalog()

// Provide 在 DefaultCatalog 中登记带注入标记的构造函数
func Provide(fn any, opts ...ConstructorOption) error {
	return DefaultCatalog.Provide(fn, opts...)
}

// Tag 在 DefaultCatalog 中为类型添加约定标签
func Tag(typ reflect.Type, opts ...TagOption) {
	DefaultCatalog.Tag(typ, opts...)
}
