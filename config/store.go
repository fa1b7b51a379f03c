package config

import (
	"strings"
	"sync"
	"sync/atomic"
)

// store 保存配置树快照；读取无锁，Reload 整体替换
type store struct {
	data atomic.Pointer[map[string]any]
}

func newStore(data map[string]any) *store {
	s := &store{}
	s.replace(data)
	return s
}

func (s *store) snapshot() map[string]any {
	if p := s.data.Load(); p != nil {
		return *p
	}
	return nil
}

func (s *store) replace(data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	s.data.Store(&data)
}

// segments 缓存键的拆分结果，":" 与 "." 都作为层级分隔符
var segments sync.Map

func splitKey(key string) []string {
	if v, ok := segments.Load(key); ok {
		return v.([]string)
	}
	parts := strings.FieldsFunc(key, func(r rune) bool { return r == ':' || r == '.' })
	segments.Store(key, parts)
	return parts
}

// lookupPath 沿着 parts 逐级查找嵌套 map
func lookupPath(root map[string]any, parts []string) any {
	var current any = root
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[part]
	}
	return current
}
