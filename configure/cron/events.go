package cron

import (
	"time"

	"github.com/gocrud/mint/event"
)

// JobEvent 任务即将执行时分发；监听器取消事件即可跳过本次执行
type JobEvent struct {
	event.CancellableEvent
	Job  string
	Spec string
	Time time.Time
}

// JobCompletedEvent 任务执行结束后分发，Err 为任务返回的错误
type JobCompletedEvent struct {
	Job      string
	Err      error
	Duration time.Duration
}
