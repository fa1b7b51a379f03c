package core

import "github.com/gocrud/mint/event"

// ApplicationStartedEvent 所有托管服务启动后分发
type ApplicationStartedEvent struct {
	Environment string
	// Services 托管服务数量
	Services int
}

// ApplicationStoppingEvent 应用开始关闭时分发
//
// 事件可以被取消：取消只会让后续未忽略取消的处理器不再收到通知，
// 关闭流程本身不受影响。
type ApplicationStoppingEvent struct {
	event.CancellableEvent
	// Reason 触发关闭的原因：signal、stop、context 或 failure
	Reason string
	// Err 托管服务失败时的错误
	Err error
}

// 关闭原因
const (
	StopReasonSignal  = "signal"
	StopReasonStop    = "stop"
	StopReasonContext = "context"
	StopReasonFailure = "failure"
)
