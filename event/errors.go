package event

import "errors"

var (
	// ErrHandlerInvocation 处理器自身返回错误或 panic
	ErrHandlerInvocation = errors.New("event: handler invocation failed")
	// ErrHandlerAccess 无法调用处理器（签名或参数不匹配），处理器被跳过
	ErrHandlerAccess = errors.New("event: handler cannot be invoked")
	// ErrNilEvent 分发 nil 事件
	ErrNilEvent = errors.New("event: nil event")
	// ErrInvalidListener 监听器无法登记
	ErrInvalidListener = errors.New("event: invalid listener")
)
