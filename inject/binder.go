package inject

import (
	"reflect"
	"sort"
	"sync"

	"github.com/gocrud/mint/logging"
)

// Binder 绑定注册表
//
// 维护三张相互独立的表：实现绑定、常量绑定和单例缓存。
// 所有写操作都会静默覆盖同一 key 的旧值（后写者胜）。
type Binder interface {
	// BindImplementation 注册实现绑定
	BindImplementation(binding ImplementationBinding) error
	// Binding 返回 definition 的实现绑定
	Binding(definition reflect.Type) (ImplementationBinding, bool)
	// BindingExists 判断 definition 是否存在实现绑定
	BindingExists(definition reflect.Type) bool

	// BindConstant 注册常量绑定
	BindConstant(binding ConstantBinding) error
	// Constant 返回 (typ, marker) 对应的常量
	Constant(typ reflect.Type, marker *Marker) (any, bool)
	// ConstantExists 判断 (typ, marker) 是否存在常量
	ConstantExists(typ reflect.Type, marker *Marker) bool

	// BindSingleton 缓存 definition 的单例实例
	BindSingleton(definition reflect.Type, instance any)
	// Singleton 返回 definition 已缓存的单例
	Singleton(definition reflect.Type) (any, bool)
	// SingletonExists 判断 definition 是否已缓存非 nil 单例
	SingletonExists(definition reflect.Type) bool

	// Install 同步执行模块的 Configure
	Install(module Module) error
}

// BinderSnapshot 绑定表快照，用于诊断输出
type BinderSnapshot struct {
	Implementations []BindingInfo  `json:"implementations"`
	Constants       []ConstantInfo `json:"constants"`
	Singletons      []string       `json:"singletons"`
}

// BindingInfo 实现绑定的诊断信息
type BindingInfo struct {
	Definition     string `json:"definition"`
	Implementation string `json:"implementation"`
	Scope          string `json:"scope"`
}

// ConstantInfo 常量绑定的诊断信息（不包含值本身）
type ConstantInfo struct {
	Type   string `json:"type"`
	Marker string `json:"marker"`
}

// binder 是 Binder 的默认实现，每张表各自使用一把读写锁
type binder struct {
	implMu          sync.RWMutex
	implementations map[reflect.Type]ImplementationBinding

	constMu   sync.RWMutex
	constants map[constantKey]any

	singletonMu sync.RWMutex
	singletons  map[reflect.Type]any

	logger logging.Logger
}

// NewBinder 创建一个空的绑定注册表
func NewBinder(logger logging.Logger) Binder {
	if logger == nil {
		logger = logging.Nop()
	}
	return &binder{
		implementations: make(map[reflect.Type]ImplementationBinding),
		constants:       make(map[constantKey]any),
		singletons:      make(map[reflect.Type]any),
		logger:          logger,
	}
}

func (b *binder) BindImplementation(binding ImplementationBinding) error {
	if err := binding.Validate(); err != nil {
		return err
	}

	b.implMu.Lock()
	prev, exists := b.implementations[binding.Definition]
	b.implementations[binding.Definition] = binding
	b.implMu.Unlock()

	if exists && prev != binding {
		b.logger.Debug("Implementation binding overwritten",
			logging.Field{Key: "definition", Value: binding.Definition.String()},
			logging.Field{Key: "previous", Value: prev.Implementation.String()},
			logging.Field{Key: "implementation", Value: binding.Implementation.String()})
	}
	return nil
}

func (b *binder) Binding(definition reflect.Type) (ImplementationBinding, bool) {
	b.implMu.RLock()
	defer b.implMu.RUnlock()
	binding, ok := b.implementations[definition]
	return binding, ok
}

func (b *binder) BindingExists(definition reflect.Type) bool {
	_, ok := b.Binding(definition)
	return ok
}

func (b *binder) BindConstant(binding ConstantBinding) error {
	if err := binding.Validate(); err != nil {
		return err
	}

	key := constantKey{typ: binding.Type, marker: binding.Marker}
	b.constMu.Lock()
	_, exists := b.constants[key]
	b.constants[key] = binding.Value
	b.constMu.Unlock()

	if exists {
		b.logger.Debug("Constant binding overwritten",
			logging.Field{Key: "type", Value: binding.Type.String()},
			logging.Field{Key: "marker", Value: binding.Marker.String()})
	}
	return nil
}

func (b *binder) Constant(typ reflect.Type, marker *Marker) (any, bool) {
	b.constMu.RLock()
	defer b.constMu.RUnlock()
	v, ok := b.constants[constantKey{typ: typ, marker: marker}]
	return v, ok
}

func (b *binder) ConstantExists(typ reflect.Type, marker *Marker) bool {
	_, ok := b.Constant(typ, marker)
	return ok
}

func (b *binder) BindSingleton(definition reflect.Type, instance any) {
	b.singletonMu.Lock()
	defer b.singletonMu.Unlock()
	b.singletons[definition] = instance
}

func (b *binder) Singleton(definition reflect.Type) (any, bool) {
	b.singletonMu.RLock()
	defer b.singletonMu.RUnlock()
	v, ok := b.singletons[definition]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (b *binder) SingletonExists(definition reflect.Type) bool {
	_, ok := b.Singleton(definition)
	return ok
}

func (b *binder) Install(module Module) error {
	return module.Configure(b)
}

// Snapshot 返回绑定表的有序快照
func (b *binder) Snapshot() BinderSnapshot {
	var snap BinderSnapshot

	b.implMu.RLock()
	for _, binding := range b.implementations {
		snap.Implementations = append(snap.Implementations, BindingInfo{
			Definition:     binding.Definition.String(),
			Implementation: binding.Implementation.String(),
			Scope:          binding.Scope.String(),
		})
	}
	b.implMu.RUnlock()
	sort.Slice(snap.Implementations, func(i, j int) bool {
		return snap.Implementations[i].Definition < snap.Implementations[j].Definition
	})

	b.constMu.RLock()
	for key := range b.constants {
		snap.Constants = append(snap.Constants, ConstantInfo{Type: key.typ.String(), Marker: key.marker.String()})
	}
	b.constMu.RUnlock()
	sort.Slice(snap.Constants, func(i, j int) bool {
		if snap.Constants[i].Type != snap.Constants[j].Type {
			return snap.Constants[i].Type < snap.Constants[j].Type
		}
		return snap.Constants[i].Marker < snap.Constants[j].Marker
	})

	b.singletonMu.RLock()
	for typ, inst := range b.singletons {
		if inst != nil {
			snap.Singletons = append(snap.Singletons, typ.String())
		}
	}
	b.singletonMu.RUnlock()
	sort.Strings(snap.Singletons)

	return snap
}

// Snapshot 返回任意 Binder 的快照；非默认实现返回空快照
func Snapshot(b Binder) BinderSnapshot {
	if s, ok := b.(interface{ Snapshot() BinderSnapshot }); ok {
		return s.Snapshot()
	}
	return BinderSnapshot{}
}
