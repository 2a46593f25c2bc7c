package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentnexus/copilot/pkg/engine/api"
)

func echoSpec(name string) ToolSpec {
	return ToolSpec{
		Name:        name,
		Description: "echoes its input",
		Params: []ParameterDef{
			{Name: "text", Type: "string", Description: "text to echo", Required: true},
		},
		Handler: func(_ context.Context, args api.Args) (string, error) {
			return GetStringArg(args, "text", ""), nil
		},
	}
}

func TestRegister_RejectsDuplicates(t *testing.T) {
	reg := NewRegistry(nil, nil)
	require.NoError(t, reg.Register(echoSpec("echo")))

	err := reg.Register(echoSpec("echo"))
	require.ErrorIs(t, err, ErrDuplicateTool)

	// The catalog must be unchanged by the failed registration.
	assert.Equal(t, 1, reg.Count())
	got, ok := reg.Get("echo")
	require.True(t, ok)
	assert.Equal(t, "echoes its input", got.Description)
}

func TestRegister_AfterSealFails(t *testing.T) {
	reg := NewRegistry(nil, nil)
	require.NoError(t, reg.Register(echoSpec("echo")))

	reg.Seal()

	err := reg.Register(echoSpec("late"))
	require.ErrorIs(t, err, ErrRegistrySealed)
	assert.Equal(t, 1, reg.Count())
}

func TestExecute_UnknownTool(t *testing.T) {
	reg := NewRegistry(nil, nil)
	_, err := reg.Execute(context.Background(), "missing", api.Args{})
	require.ErrorIs(t, err, ErrToolNotFound)
}

func TestExecute_ValidationBlocksHandler(t *testing.T) {
	reg := NewRegistry(nil, nil)
	called := false
	require.NoError(t, reg.Register(ToolSpec{
		Name:        "calc_tool",
		Description: "evaluates an expression",
		Params: []ParameterDef{
			{Name: "expression", Type: "string", Description: "expression", Required: true},
		},
		Handler: func(_ context.Context, _ api.Args) (string, error) {
			called = true
			return "ok", nil
		},
	}))

	// Wrong type for a declared parameter: the handler must never run.
	_, err := reg.Execute(context.Background(), "calc_tool", api.Args{"expression": 123})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "calc_tool", verr.Tool)
	assert.False(t, called)

	// Missing required parameter.
	_, err = reg.Execute(context.Background(), "calc_tool", api.Args{})
	require.ErrorAs(t, err, &verr)
	assert.False(t, called)
}

func TestExecute_IgnoresUnknownExtraArgs(t *testing.T) {
	reg := NewRegistry(nil, nil)
	require.NoError(t, reg.Register(echoSpec("echo")))

	out, err := reg.Execute(context.Background(), "echo", api.Args{
		"text":  "hello",
		"extra": 42,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestExecute_IntegerAcceptsIntegralFloat(t *testing.T) {
	reg := NewRegistry(nil, nil)
	require.NoError(t, reg.Register(ToolSpec{
		Name:        "take",
		Description: "takes a count",
		Params: []ParameterDef{
			{Name: "count", Type: "integer", Description: "count", Required: true},
		},
		Handler: func(_ context.Context, args api.Args) (string, error) {
			return "ok", nil
		},
	}))

	// JSON decoding yields float64; integral values must pass.
	_, err := reg.Execute(context.Background(), "take", api.Args{"count": float64(3)})
	require.NoError(t, err)

	_, err = reg.Execute(context.Background(), "take", api.Args{"count": 3.5})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestExecute_WrapsHandlerError(t *testing.T) {
	reg := NewRegistry(nil, nil)
	boom := errors.New("boom")
	require.NoError(t, reg.Register(ToolSpec{
		Name:        "fail",
		Description: "always fails",
		Handler: func(_ context.Context, _ api.Args) (string, error) {
			return "", boom
		},
	}))

	_, err := reg.Execute(context.Background(), "fail", api.Args{})
	var xerr *ExecutionError
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, "fail", xerr.Tool)
	assert.ErrorIs(t, err, boom)
}

func TestExecute_RecoversHandlerPanic(t *testing.T) {
	reg := NewRegistry(nil, nil)
	require.NoError(t, reg.Register(ToolSpec{
		Name:        "panic",
		Description: "always panics",
		Handler: func(_ context.Context, _ api.Args) (string, error) {
			panic("kaboom")
		},
	}))

	_, err := reg.Execute(context.Background(), "panic", api.Args{})
	var xerr *ExecutionError
	require.ErrorAs(t, err, &xerr)
	assert.Contains(t, xerr.Error(), "kaboom")
}

func TestList_SortedSchemas(t *testing.T) {
	reg := NewRegistry(nil, nil)
	require.NoError(t, reg.Register(echoSpec("zeta")))
	require.NoError(t, reg.Register(echoSpec("alpha")))

	schemas := reg.List()
	require.Len(t, schemas, 2)
	assert.Equal(t, "alpha", schemas[0].Name)
	assert.Equal(t, "zeta", schemas[1].Name)

	params, ok := schemas[0].Parameters.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "object", params["type"])
	assert.Equal(t, []string{"text"}, params["required"])
}
