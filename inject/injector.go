package inject

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/gocrud/mint/logging"
)

// Injector 按需构建对象图
//
// Injector 持有一个 Binder，安装模块后根据绑定递归解析构造函数参数。
// 解析在调用者的 goroutine 中同步执行。
type Injector struct {
	binder       Binder
	constructors ConstructorSource
	logger       logging.Logger

	// guards 单例构造锁：reflect.Type -> *sync.Mutex
	guards sync.Map
}

// InjectorBuilder 注入器构建器
type InjectorBuilder struct {
	binder       Binder
	registry     TypeRegistry
	constructors ConstructorSource
	logger       logging.Logger
	modules      []Module
}

// NewInjectorBuilder 创建注入器构建器，默认使用 DefaultCatalog
func NewInjectorBuilder() *InjectorBuilder {
	return &InjectorBuilder{
		registry:     DefaultCatalog,
		constructors: DefaultCatalog,
	}
}

// WithCatalog 同时作为类型注册表与构造函数来源
func (b *InjectorBuilder) WithCatalog(catalog *Catalog) *InjectorBuilder {
	b.registry = catalog
	b.constructors = catalog
	return b
}

// WithTypeRegistry 设置约定绑定的类型注册表，nil 表示不做约定绑定
func (b *InjectorBuilder) WithTypeRegistry(registry TypeRegistry) *InjectorBuilder {
	b.registry = registry
	return b
}

// WithConstructors 设置构造函数来源
func (b *InjectorBuilder) WithConstructors(source ConstructorSource) *InjectorBuilder {
	b.constructors = source
	return b
}

// WithLogger 设置日志
func (b *InjectorBuilder) WithLogger(logger logging.Logger) *InjectorBuilder {
	b.logger = logger
	return b
}

// WithBinder 使用已有的 Binder
func (b *InjectorBuilder) WithBinder(binder Binder) *InjectorBuilder {
	b.binder = binder
	return b
}

// AddModule 添加显式模块，先添加的模块优先级更高
func (b *InjectorBuilder) AddModule(modules ...Module) *InjectorBuilder {
	b.modules = append(b.modules, modules...)
	return b
}

// Build 安装所有模块并创建注入器
//
// 安装顺序为 reverse(显式模块 ++ 单例约定模块 ++ 默认实现约定模块)：
// 约定模块最先安装，显式模块最后安装，因此显式绑定总能覆盖约定绑定；
// 显式模块之间，第一个传入的模块最后安装，优先级最高。
func (b *InjectorBuilder) Build() (*Injector, error) {
	logger := b.logger
	if logger == nil {
		logger = logging.Nop()
	}
	binder := b.binder
	if binder == nil {
		binder = NewBinder(logger)
	}
	constructors := b.constructors
	if constructors == nil {
		constructors = NewCatalog()
	}

	all := make([]Module, 0, len(b.modules))
	all = append(all, b.modules...)
	all = append(all, conventionModules(b.registry)...)

	for i := len(all) - 1; i >= 0; i-- {
		if all[i] == nil {
			continue
		}
		if err := binder.Install(all[i]); err != nil {
			return nil, fmt.Errorf("inject: install module %v: %w", all[i], err)
		}
	}

	logger.Debug("Injector created",
		logging.Field{Key: "modules", Value: len(all)})

	return &Injector{
		binder:       binder,
		constructors: constructors,
		logger:       logger,
	}, nil
}

// conventionModules 为带约定标签的类型合成模块：先全部单例模块，再全部默认实现模块
func conventionModules(registry TypeRegistry) []Module {
	if registry == nil {
		return nil
	}

	var singletons, implementedBy []Module
	for _, typ := range registry.ListAllTypes() {
		tags := registry.Tags(typ)
		if tags.Singleton {
			singletons = append(singletons, singletonModule(typ))
		}
		if tags.ImplementedBy != nil {
			implementedBy = append(implementedBy, implementedByModule(typ, tags.ImplementedBy))
		}
	}
	return append(singletons, implementedBy...)
}

type conventionModule struct {
	binding ImplementationBinding
}

func (m conventionModule) Configure(binder Binder) error {
	return binder.BindImplementation(m.binding)
}

func (m conventionModule) String() string {
	return "convention(" + m.binding.String() + ")"
}

func singletonModule(typ reflect.Type) Module {
	return conventionModule{binding: ImplementationBinding{
		Definition:     typ,
		Implementation: typ,
		Scope:          ScopeSingleton,
	}}
}

func implementedByModule(typ, impl reflect.Type) Module {
	return conventionModule{binding: ImplementationBinding{
		Definition:     typ,
		Implementation: impl,
		Scope:          ScopeDefault,
	}}
}

var (
	defaultInjector     *Injector
	defaultInjectorErr  error
	defaultInjectorOnce sync.Once
)

// CreateInjector 使用 DefaultCatalog 创建注入器
// 不传模块时返回进程级缓存的默认注入器
func CreateInjector(modules ...Module) (*Injector, error) {
	if len(modules) == 0 {
		defaultInjectorOnce.Do(func() {
			defaultInjector, defaultInjectorErr = NewInjectorBuilder().Build()
		})
		return defaultInjector, defaultInjectorErr
	}
	return NewInjectorBuilder().AddModule(modules...).Build()
}

// CreateInjectorWith 使用指定目录创建注入器
func CreateInjectorWith(catalog *Catalog, modules ...Module) (*Injector, error) {
	return NewInjectorBuilder().WithCatalog(catalog).AddModule(modules...).Build()
}

// Binder 返回注入器的 Binder
func (i *Injector) Binder() Binder {
	return i.binder
}

// resolution 单次顶层 GetInstance 调用的解析状态
type resolution struct {
	path     []reflect.Type
	visiting map[reflect.Type]bool
}

func (r *resolution) push(typ reflect.Type) {
	r.path = append(r.path, typ)
	r.visiting[typ] = true
}

func (r *resolution) pop() {
	last := r.path[len(r.path)-1]
	r.path = r.path[:len(r.path)-1]
	delete(r.visiting, last)
}

func (r *resolution) trace(extra ...reflect.Type) []reflect.Type {
	out := make([]reflect.Type, 0, len(r.path)+len(extra))
	out = append(out, r.path...)
	return append(out, extra...)
}

// GetInstance 解析 definition 的实例
//
// 已缓存的单例直接返回；否则使用显式绑定或 definition -> definition 自绑定，
// 按登记顺序尝试可注入的构造函数。
func (i *Injector) GetInstance(definition reflect.Type) (any, error) {
	if definition == nil {
		return nil, fmt.Errorf("inject: definition is nil")
	}
	return i.resolve(definition, &resolution{visiting: make(map[reflect.Type]bool)})
}

func (i *Injector) resolve(definition reflect.Type, r *resolution) (any, error) {
	if inst, ok := i.binder.Singleton(definition); ok {
		return inst, nil
	}

	if r.visiting[definition] {
		return nil, &ResolutionError{
			Definition: definition,
			Path:       r.trace(definition),
			Err:        ErrCyclicDependency,
		}
	}
	r.push(definition)
	defer r.pop()

	binding, ok := i.binder.Binding(definition)
	if !ok {
		binding = ImplementationBinding{
			Definition:     definition,
			Implementation: definition,
			Scope:          ScopeDefault,
		}
	}

	if binding.Scope == ScopeSingleton {
		guard := i.guard(definition)
		guard.Lock()
		defer guard.Unlock()

		// 等锁期间可能已被其他 goroutine 构造
		if inst, ok := i.binder.Singleton(definition); ok {
			return inst, nil
		}
	}

	inst, err := i.construct(binding, r)
	if err != nil {
		return nil, err
	}

	if binding.Scope == ScopeSingleton {
		i.binder.BindSingleton(definition, inst)
	}
	return inst, nil
}

func (i *Injector) guard(definition reflect.Type) *sync.Mutex {
	v, _ := i.guards.LoadOrStore(definition, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// construct 依次尝试实现类型的可注入构造函数
// 没有任何可注入构造函数时返回直接的 not-found，上层据此放弃当前候选；
// 候选全部因参数无法解析而放弃时返回非直接的 not-found，上层不再重试兄弟候选
func (i *Injector) construct(binding ImplementationBinding, r *resolution) (any, error) {
	candidates := 0
	for _, ctor := range i.constructors.Constructors(binding.Implementation) {
		if !ctor.Injectable() {
			continue
		}
		candidates++

		args, err := i.resolveParams(ctor, r)
		if err != nil {
			return nil, err
		}
		if args == nil && len(ctor.params) > 0 {
			continue
		}

		inst, err := ctor.invoker(args)
		if err != nil {
			return nil, &ResolutionError{
				Definition: binding.Definition,
				Path:       r.trace(),
				Err:        fmt.Errorf("%w: %s: %w", ErrConstructionFailed, ctor, err),
			}
		}
		if inst == nil {
			return nil, &ResolutionError{
				Definition: binding.Definition,
				Path:       r.trace(),
				Err:        fmt.Errorf("%w: %s returned nil", ErrConstructionFailed, ctor),
			}
		}
		if it := reflect.TypeOf(inst); !it.AssignableTo(binding.Definition) {
			return nil, &ResolutionError{
				Definition: binding.Definition,
				Path:       r.trace(),
				Err:        fmt.Errorf("%w: %s produced %v", ErrNotAssignable, ctor, it),
			}
		}
		return inst, nil
	}

	return nil, &ResolutionError{
		Definition: binding.Definition,
		Path:       r.trace(),
		Err:        ErrBindingNotFound,
		direct:     candidates == 0,
	}
}

// resolveParams 从左到右解析构造函数参数
// 返回 (nil, nil) 表示参数类型本身无法解析，应放弃该构造函数
func (i *Injector) resolveParams(ctor *Constructor, r *resolution) ([]reflect.Value, error) {
	args := make([]reflect.Value, len(ctor.params))
	for idx, param := range ctor.params {
		// 只有第一个标记参与常量匹配，未命中时按普通参数解析
		if len(param.Markers) > 0 {
			if v, ok := i.binder.Constant(param.Type, param.Markers[0]); ok {
				args[idx] = argValue(v, param.Type)
				continue
			}
		}

		v, err := i.resolve(param.Type, r)
		if err != nil {
			if isDirectNotFound(err, param.Type) {
				i.logger.Debug("Constructor abandoned",
					logging.Field{Key: "constructor", Value: ctor.String()},
					logging.Field{Key: "parameter", Value: idx},
					logging.Field{Key: "type", Value: param.Type.String()})
				return nil, nil
			}
			return nil, err
		}
		args[idx] = argValue(v, param.Type)
	}
	return args, nil
}
