package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/mint/core"
	"github.com/gocrud/mint/event"
	"github.com/gocrud/mint/inject"
	"github.com/gocrud/mint/logging"
)

type reportService struct {
	runs int
}

func TestConfigure_RunsJobsThroughEvents(t *testing.T) {
	var simpleRuns int
	boom := errors.New("boom")

	app, err := core.NewApplicationBuilder().
		UseCatalog(inject.NewCatalog()).
		AddModule(inject.ModuleFunc(func(b inject.Binder) error {
			return inject.BindTo[*reportService, *reportService](b, inject.ScopeSingleton)
		})).
		Configure(Configure(func(b *Builder) {
			b.WithSeconds().WithLocation("Asia/Shanghai")
			b.AddJob("@every 1h", "simple", func() { simpleRuns++ })
			b.AddJobE("@every 1h", "failing", func() error { return boom })
			b.AddJobWithDI("0 0 * * * *", "report", func(svc *reportService, _ logging.Logger) {
				svc.runs++
			})
		})).
		Build()
	require.NoError(t, err)

	scheduler := inject.MustGet[*Scheduler](app.Injector())

	var completed []*JobCompletedEvent
	_, err = event.Subscribe(app.Events(), func(e *JobCompletedEvent) error {
		completed = append(completed, e)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, scheduler.Trigger("simple"))
	assert.Equal(t, 1, simpleRuns)

	require.NoError(t, scheduler.Trigger("report"))
	assert.Equal(t, 1, inject.MustGet[*reportService](app.Injector()).runs)

	require.NoError(t, scheduler.Trigger("failing"))
	require.Len(t, completed, 3)
	assert.ErrorIs(t, completed[2].Err, boom)

	// 取消 JobEvent 跳过本次执行
	sub, err := event.Subscribe(app.Events(), func(e *JobEvent) error {
		if e.Job == "simple" {
			e.SetCancelled(true)
		}
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, scheduler.Trigger("simple"))
	assert.Equal(t, 1, simpleRuns)
	sub.Unsubscribe()

	assert.Error(t, scheduler.Trigger("missing"))

	names := make([]string, 0)
	for _, e := range scheduler.Entries() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"failing", "report", "simple"}, names)

	assert.True(t, scheduler.Remove("simple"))
	assert.False(t, scheduler.Remove("simple"))
}

func TestScheduler_StartStop(t *testing.T) {
	s, err := NewBuilder(nil).Build(logging.Nop(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	cancel()
	require.NoError(t, <-done)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	assert.NoError(t, s.Stop(stopCtx))
	assert.Equal(t, "cron", s.Name())
}

func TestScheduler_InjectedJobBeforeInjector(t *testing.T) {
	s, err := NewBuilder(nil).
		AddJobWithDI("@every 1m", "early", func(*reportService) {}).
		Build(logging.Nop(), nil)
	require.NoError(t, err)

	// 注入器尚未就绪时任务失败但不会 panic
	assert.NoError(t, s.Trigger("early"))
}

func TestBuilder_Errors(t *testing.T) {
	_, err := NewBuilder(nil).AddJob("not a spec", "bad", func() {}).Build(logging.Nop(), nil)
	assert.ErrorContains(t, err, "failed to add cron job 'bad'")

	_, err = NewBuilder(nil).WithLocation("Mars/Olympus").Build(logging.Nop(), nil)
	assert.ErrorContains(t, err, "invalid cron location")

	_, err = NewBuilder(nil).AddJobWithDI("@every 1m", "typed", func() int { return 0 }).Build(logging.Nop(), nil)
	assert.ErrorContains(t, err, "must return nothing or error")

	_, err = NewBuilder(nil).
		AddJob("@every 1m", "dup", func() {}).
		AddJob("@every 1m", "dup", func() {}).
		Build(logging.Nop(), nil)
	assert.ErrorContains(t, err, "already registered")

	_, err = core.NewApplicationBuilder().
		UseCatalog(inject.NewCatalog()).
		Configure(Configure(func(b *Builder) { b.AddJob("bogus", "x", func() {}) })).
		Build()
	assert.ErrorContains(t, err, "cron:")
}

func TestConvertToFields(t *testing.T) {
	fields := convertToFields([]any{"a", 1, "b", "two", "dangling"})
	assert.Equal(t, []logging.Field{{Key: "a", Value: 1}, {Key: "b", Value: "two"}}, fields)
}
