package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helical-labs/medwatch/internal/records"
)

func echoTool(name string) *Tool {
	return &Tool{
		Name:        name,
		Description: "echoes its input",
		Schema: Schema{
			Properties: map[string]map[string]any{
				"text": {"type": "string"},
			},
			Required: []string{"text"},
		},
		Execute: func(_ context.Context, args map[string]any) (*Result, error) {
			return &Result{Output: args["text"].(string)}, nil
		},
	}
}

func TestRegistry_Register(t *testing.T) {
	t.Run("registers and retrieves a tool", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(echoTool("echo")))

		assert.NotNil(t, r.Get("echo"))
		assert.Equal(t, []string{"echo"}, r.Names())
	})

	t.Run("rejects duplicate names", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(echoTool("echo")))

		err := r.Register(echoTool("echo"))
		assert.ErrorIs(t, err, ErrToolAlreadyRegistered)
	})

	t.Run("rejects tool without execute function", func(t *testing.T) {
		r := NewRegistry()
		err := r.Register(&Tool{Name: "broken"})
		assert.Error(t, err)
	})
}

func TestRegistry_Execute(t *testing.T) {
	t.Run("dispatches by name", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(echoTool("echo")))

		result, err := r.Execute(context.Background(), "echo", map[string]any{"text": "hello"})

		require.NoError(t, err)
		assert.Equal(t, "hello", result.Output)
	})

	t.Run("unknown tool returns ErrToolNotFound", func(t *testing.T) {
		r := NewRegistry()
		_, err := r.Execute(context.Background(), "nope", nil)
		assert.ErrorIs(t, err, ErrToolNotFound)
	})

	t.Run("missing required argument is rejected before dispatch", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(echoTool("echo")))

		_, err := r.Execute(context.Background(), "echo", map[string]any{})
		assert.ErrorIs(t, err, ErrMissingRequiredArg)
	})
}

func TestRegistry_Signatures(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoTool("b-tool")))
	require.NoError(t, r.Register(echoTool("a-tool")))

	sigs := r.Signatures()

	require.Len(t, sigs, 2)
	assert.Equal(t, "a-tool", sigs[0].Name)
	assert.Equal(t, "object", sigs[0].InputSchema["type"])
}

const builtinRecords = `{
  "patients": [
    {"id": "P-001", "name": "A. Larsen", "age": 64,
     "medications": ["Drug-X"], "conditions": ["diabetes"]}
  ],
  "interactions": [
    {"drugs": ["Drug-X", "Warfarin"], "severity": "high",
     "effect": "increased bleeding risk"}
  ]
}`

func TestBuiltinTools(t *testing.T) {
	store := records.NewStore()
	require.NoError(t, store.Load([]byte(builtinRecords)))

	t.Run("check_interactions reports interactions and patients", func(t *testing.T) {
		tool := NewCheckInteractions(store)

		result, err := tool.Execute(context.Background(), map[string]any{"drug": "Drug-X"})

		require.NoError(t, err)
		assert.Contains(t, result.Output, "increased bleeding risk")
		assert.Contains(t, result.Output, "P-001")
		assert.Contains(t, result.Entities, "P-001")
		assert.Contains(t, result.Entities, "Drug-X")
	})

	t.Run("check_interactions requires a drug argument", func(t *testing.T) {
		tool := NewCheckInteractions(store)

		_, err := tool.Execute(context.Background(), map[string]any{"drug": "  "})
		assert.ErrorIs(t, err, ErrMissingRequiredArg)
	})

	t.Run("list_entity_references cross-references records", func(t *testing.T) {
		tool := NewListEntityReferences(store)

		result, err := tool.Execute(context.Background(), map[string]any{"entity": "Drug-X"})

		require.NoError(t, err)
		assert.Contains(t, result.Entities, "P-001")
		assert.Contains(t, result.Entities, "Warfarin")
	})

	t.Run("builtin tools register cleanly", func(t *testing.T) {
		r := NewRegistry()
		r.MustRegister(NewCheckInteractions(store))
		r.MustRegister(NewListEntityReferences(store))

		assert.Equal(t, []string{"check_interactions", "list_entity_references"}, r.Names())
	})
}
