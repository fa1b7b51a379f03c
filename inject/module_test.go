package inject_test

import (
	"sync"
	"testing"

	"github.com/gocrud/mint/inject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAbstractModule_RecursiveConfigureFails(t *testing.T) {
	var module *inject.AbstractModule
	module = inject.NewModule("recursive", func(m *inject.AbstractModule) error {
		return m.Install(module)
	})

	err := inject.NewBinder(nil).Install(module)
	assert.ErrorIs(t, err, inject.ErrReentrantConfiguration)
}

func TestAbstractModule_ConcurrentConfigureFails(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	module := inject.NewModule("slow", func(m *inject.AbstractModule) error {
		close(entered)
		<-release
		return nil
	})

	var wg sync.WaitGroup
	wg.Add(1)
	var first error
	go func() {
		defer wg.Done()
		first = inject.NewBinder(nil).Install(module)
	}()

	<-entered
	err := inject.NewBinder(nil).Install(module)
	close(release)
	wg.Wait()

	require.NoError(t, first)
	assert.ErrorIs(t, err, inject.ErrReentrantConfiguration)
}

func TestAbstractModule_SequentialReuse(t *testing.T) {
	calls := 0
	module := inject.NewModule("reuse", func(m *inject.AbstractModule) error {
		calls++
		return inject.BindTo[Greeter, *englishGreeter](m.MustBinder(), inject.ScopeDefault)
	})

	b1 := inject.NewBinder(nil)
	b2 := inject.NewBinder(nil)
	require.NoError(t, b1.Install(module))
	require.NoError(t, b2.Install(module))
	assert.Equal(t, 2, calls)
	assert.True(t, b2.BindingExists(inject.TypeOf[Greeter]()))
}

func TestAbstractModule_BinderOutsideConfigure(t *testing.T) {
	module := inject.NewModule("idle", nil)
	_, err := module.Binder()
	assert.ErrorIs(t, err, inject.ErrBinderUnavailable)
	assert.Panics(t, func() { module.MustBinder() })
}

func TestAbstractModule_NestedInstall(t *testing.T) {
	inner := inject.NewModule("inner", func(m *inject.AbstractModule) error {
		return inject.BindTo[Greeter, *frenchGreeter](m.MustBinder(), inject.ScopeSingleton)
	})
	outer := inject.NewModule("outer", func(m *inject.AbstractModule) error {
		return m.Install(inner)
	})

	injector, err := inject.CreateInjectorWith(inject.NewCatalog(), outer)
	require.NoError(t, err)
	assert.Equal(t, "bonjour", inject.MustGet[Greeter](injector).Greet())
}

func TestBindingBuilders(t *testing.T) {
	b := inject.NewBinder(nil)

	assert.Panics(t, func() {
		inject.Bind[Greeter](b).To(inject.TypeOf[*Counter]())
	})
	assert.Panics(t, func() {
		inject.Bind[int](b).AnnotatedWith(inject.NewMarker("port")).ToValue("8080")
	})

	err := inject.BindTo[Greeter, *Counter](b, inject.ScopeDefault)
	assert.ErrorIs(t, err, inject.ErrNotAssignable)
}
