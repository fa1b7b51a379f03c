// Package event 实现带优先级与取消语义的同步事件分发
//
// 监听器通过 EventHandlers 声明哪些方法是事件处理器，Manager 使用反射扫描这些方法
// 并按 (事件类型, 优先级, 是否忽略取消) 登记到 Registry。分发分两个阶段：
// 先执行所有忽略取消的处理器，再执行关注取消的处理器，后者在事件被取消后立即停止。
package event

import (
	"fmt"
	"sync/atomic"
)

// Event 事件可以是任意值，按运行时的确切类型匹配处理器
type Event = any

// Cancellable 可取消的事件
type Cancellable interface {
	IsCancelled() bool
	SetCancelled(cancelled bool)
}

// CancellableEvent 可嵌入的 Cancellable 实现，并发安全
//
// 示例：
//
//	type UserDeleting struct {
//		event.CancellableEvent
//		UserID int64
//	}
//
//	manager.DispatchEvent(&UserDeleting{UserID: 42})
type CancellableEvent struct {
	cancelled atomic.Bool
}

// IsCancelled 实现 Cancellable
func (e *CancellableEvent) IsCancelled() bool {
	return e.cancelled.Load()
}

// SetCancelled 实现 Cancellable
func (e *CancellableEvent) SetCancelled(cancelled bool) {
	e.cancelled.Store(cancelled)
}

// Priority 处理器优先级，按分发顺序排列；零值为 PriorityNormal
type Priority int

const (
	PriorityHighest Priority = iota - 2
	PriorityHigh
	PriorityNormal
	PriorityLow
	PriorityLowest
	// PriorityMonitor 只用于观察最终结果，处理器不应修改事件
	PriorityMonitor
)

// priorities 分发顺序
var priorities = []Priority{
	PriorityHighest,
	PriorityHigh,
	PriorityNormal,
	PriorityLow,
	PriorityLowest,
	PriorityMonitor,
}

// Priorities 按分发顺序返回全部优先级
func Priorities() []Priority {
	out := make([]Priority, len(priorities))
	copy(out, priorities)
	return out
}

func (p Priority) String() string {
	switch p {
	case PriorityHighest:
		return "highest"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	case PriorityLowest:
		return "lowest"
	case PriorityMonitor:
		return "monitor"
	default:
		return fmt.Sprintf("Priority(%d)", int(p))
	}
}

// Valid 判断是否为已定义的优先级
func (p Priority) Valid() bool {
	return p >= PriorityHighest && p <= PriorityMonitor
}

// HandlerTag 处理器标签
type HandlerTag struct {
	Priority Priority
	// IgnoreCancelled 为 true 时处理器在第一阶段执行，不受事件取消影响
	IgnoreCancelled bool
}

// Listener 监听器：返回方法名到处理器标签的映射
//
// 被标记的方法必须是导出方法，恰好接收一个具体类型的事件参数，不返回值或只返回 error。
//
//	func (l *AuditListener) EventHandlers() map[string]event.HandlerTag {
//		return map[string]event.HandlerTag{
//			"OnUserDeleting": {Priority: event.PriorityMonitor, IgnoreCancelled: true},
//		}
//	}
type Listener interface {
	EventHandlers() map[string]HandlerTag
}
