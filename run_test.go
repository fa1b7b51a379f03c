package mint

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gocrud/mint/core"
	"github.com/gocrud/mint/inject"
)

func TestRunContext_StopsWhenWorkerCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ran := make(chan struct{})

	err := RunContext(ctx,
		core.WithEnvironment("test"),
		core.WithWorker(func(context.Context) error {
			close(ran)
			cancel()
			return nil
		}),
	)
	assert.NoError(t, err)
	<-ran
}

func TestRunContext_OptionError(t *testing.T) {
	boom := errors.New("boom")
	err := RunContext(context.Background(), func(*core.ApplicationBuilder) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestRunContext_BuildError(t *testing.T) {
	err := RunContext(context.Background(),
		core.WithModule(inject.ModuleFunc(func(inject.Binder) error { return errors.New("bad module") })),
	)
	assert.ErrorContains(t, err, "bad module")
}
