package event

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Handler 处理器描述
type Handler struct {
	EventType       reflect.Type
	Priority        Priority
	IgnoreCancelled bool
	// Owner 处理器所属的监听器或订阅，仅用于调用与标识，不持有其生命周期
	Owner any
	// Name 方法名或函数描述
	Name string

	fn reflect.Value
}

func (h *Handler) String() string {
	return fmt.Sprintf("%T.%s(%v)", h.Owner, h.Name, h.EventType)
}

func (h *Handler) sameAs(other *Handler) bool {
	return h.Name == other.Name && comparableOwner(h.Owner) && h.Owner == other.Owner
}

func comparableOwner(owner any) bool {
	return owner != nil && reflect.TypeOf(owner).Comparable()
}

type registryKey struct {
	eventType reflect.Type
	priority  Priority
	ignore    bool
}

// Registry 处理器索引：(事件类型, 优先级, 是否忽略取消) -> 按登记顺序排列的处理器
type Registry struct {
	mu      sync.RWMutex
	buckets map[registryKey][]*Handler
}

// NewRegistry 创建空索引
func NewRegistry() *Registry {
	return &Registry{buckets: make(map[registryKey][]*Handler)}
}

// Register 登记处理器；同一 Owner 的同名处理器重复登记时原位替换
func (r *Registry) Register(h *Handler) {
	key := registryKey{eventType: h.EventType, priority: h.Priority, ignore: h.IgnoreCancelled}

	r.mu.Lock()
	defer r.mu.Unlock()
	bucket := r.buckets[key]
	for i, existing := range bucket {
		if existing.sameAs(h) {
			bucket[i] = h
			return
		}
	}
	r.buckets[key] = append(bucket, h)
}

// Handlers 返回指定桶的处理器快照
func (r *Registry) Handlers(eventType reflect.Type, priority Priority, ignoreCancelled bool) []*Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bucket := r.buckets[registryKey{eventType: eventType, priority: priority, ignore: ignoreCancelled}]
	if len(bucket) == 0 {
		return nil
	}
	out := make([]*Handler, len(bucket))
	copy(out, bucket)
	return out
}

// Unregister 移除 owner 的全部处理器，返回移除数量
func (r *Registry) Unregister(owner any) int {
	if !comparableOwner(owner) {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for key, bucket := range r.buckets {
		kept := bucket[:0:0]
		for _, h := range bucket {
			if h.Owner == owner {
				removed++
				continue
			}
			kept = append(kept, h)
		}
		if len(kept) == 0 {
			delete(r.buckets, key)
		} else {
			r.buckets[key] = kept
		}
	}
	return removed
}

// Len 返回处理器总数
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, bucket := range r.buckets {
		n += len(bucket)
	}
	return n
}

// HandlerInfo 处理器的诊断信息
type HandlerInfo struct {
	Event           string `json:"event"`
	Priority        string `json:"priority"`
	IgnoreCancelled bool   `json:"ignoreCancelled"`
	Handler         string `json:"handler"`
}

// Snapshot 按事件类型与分发顺序返回全部处理器
func (r *Registry) Snapshot() []HandlerInfo {
	type entry struct {
		key   registryKey
		index int
		h     *Handler
	}

	r.mu.RLock()
	var entries []entry
	for key, bucket := range r.buckets {
		for i, h := range bucket {
			entries = append(entries, entry{key: key, index: i, h: h})
		}
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.key.eventType != b.key.eventType {
			return a.key.eventType.String() < b.key.eventType.String()
		}
		// 第一阶段在前
		if a.key.ignore != b.key.ignore {
			return a.key.ignore
		}
		if a.key.priority != b.key.priority {
			return a.key.priority < b.key.priority
		}
		return a.index < b.index
	})

	out := make([]HandlerInfo, len(entries))
	for i, e := range entries {
		out[i] = HandlerInfo{
			Event:           e.key.eventType.String(),
			Priority:        e.key.priority.String(),
			IgnoreCancelled: e.key.ignore,
			Handler:         e.h.String(),
		}
	}
	return out
}
