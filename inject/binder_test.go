package inject_test

import (
	"encoding/json"
	"testing"

	"github.com/gocrud/mint/inject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinder_LastWriteWins(t *testing.T) {
	b := inject.NewBinder(nil)
	require.NoError(t, inject.BindTo[Greeter, *englishGreeter](b, inject.ScopeDefault))
	require.NoError(t, inject.BindTo[Greeter, *frenchGreeter](b, inject.ScopeSingleton))

	binding, ok := b.Binding(inject.TypeOf[Greeter]())
	require.True(t, ok)
	assert.Equal(t, inject.TypeOf[*frenchGreeter](), binding.Implementation)
	assert.Equal(t, inject.ScopeSingleton, binding.Scope)
}

func TestBinder_Constants(t *testing.T) {
	port := inject.NewMarker("port")
	other := inject.NewMarker("port")

	b := inject.NewBinder(nil)
	require.NoError(t, inject.BindConstant(b, port, 8080))

	v, ok := b.Constant(inject.TypeOf[int](), port)
	require.True(t, ok)
	assert.Equal(t, 8080, v)

	// 同名标记是不同的标识
	assert.False(t, b.ConstantExists(inject.TypeOf[int](), other))
	assert.False(t, b.ConstantExists(inject.TypeOf[int64](), port))

	require.NoError(t, inject.BindConstant(b, port, 9090))
	v, _ = b.Constant(inject.TypeOf[int](), port)
	assert.Equal(t, 9090, v)
}

func TestBinder_NilSingletonIsAbsent(t *testing.T) {
	b := inject.NewBinder(nil)
	b.BindSingleton(inject.TypeOf[*Counter](), nil)
	assert.False(t, b.SingletonExists(inject.TypeOf[*Counter]()))

	c := &Counter{}
	b.BindSingleton(inject.TypeOf[*Counter](), c)
	got, ok := b.Singleton(inject.TypeOf[*Counter]())
	require.True(t, ok)
	assert.Same(t, c, got)
}

func TestSnapshot(t *testing.T) {
	b := inject.NewBinder(nil)
	require.NoError(t, inject.BindTo[Greeter, *englishGreeter](b, inject.ScopeSingleton))
	require.NoError(t, inject.BindConstant(b, inject.NewMarker("dsn"), "file::memory:"))
	b.BindSingleton(inject.TypeOf[Greeter](), &englishGreeter{})

	snap := inject.Snapshot(b)
	require.Len(t, snap.Implementations, 1)
	assert.Equal(t, "inject_test.Greeter", snap.Implementations[0].Definition)
	assert.Equal(t, "*inject_test.englishGreeter", snap.Implementations[0].Implementation)
	assert.Equal(t, "singleton", snap.Implementations[0].Scope)
	require.Len(t, snap.Constants, 1)
	assert.Equal(t, "@dsn", snap.Constants[0].Marker)
	assert.Equal(t, []string{"inject_test.Greeter"}, snap.Singletons)

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scope":"singleton"`)
}

func TestNamedMarker(t *testing.T) {
	assert.Same(t, inject.Named("cache"), inject.Named("cache"))
	assert.NotSame(t, inject.Named("cache"), inject.Named("queue"))
	assert.NotSame(t, inject.Named("cache"), inject.NewMarker("cache"))
	assert.Equal(t, "@cache", inject.Named("cache").String())
}
