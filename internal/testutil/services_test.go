package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datamod/internal/datamodule"
	"github.com/roach88/datamod/internal/ir"
)

func TestScriptedServices_FIFO(t *testing.T) {
	script := NewScriptedServices().
		Respond(datamodule.VerbRead, ir.Arr(ir.IRInt(1))).
		Respond(datamodule.VerbRead, ir.Arr(ir.IRInt(2)))
	svc := script.Services()
	ctx := context.Background()

	first, err := svc.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, ir.Arr(ir.IRInt(1)), first)

	second, err := svc.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, ir.Arr(ir.IRInt(2)), second)

	_, err = svc.Read(ctx)
	assert.ErrorIs(t, err, ErrNoResponse)
	assert.Len(t, script.Calls(), 3, "exhausted calls are still recorded")
}

func TestScriptedServices_Fail(t *testing.T) {
	boom := errors.New("boom")
	script := NewScriptedServices().Fail(datamodule.VerbDelete, boom)
	svc := script.Services()

	_, err := svc.Delete(context.Background(), ir.IRString("a"))

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []Call{{Verb: datamodule.VerbDelete, Arg: ir.IRString("a")}}, script.Calls())
	assert.Equal(t, 0, script.Pending(datamodule.VerbDelete))
}

func TestScriptedServices_BindsOnlyRequestedVerbs(t *testing.T) {
	svc := NewScriptedServices().Services(datamodule.VerbRead, datamodule.VerbCreate)

	assert.NotNil(t, svc.Read)
	assert.NotNil(t, svc.Create)
	assert.Nil(t, svc.Update)
	assert.Nil(t, svc.Delete)
}

func TestScriptedServices_CanceledContext(t *testing.T) {
	script := NewScriptedServices().Respond(datamodule.VerbCreate, ir.IRNull{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := script.Services().Create(ctx, ir.Obj())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, script.Pending(datamodule.VerbCreate), "canceled call consumes nothing")
}
