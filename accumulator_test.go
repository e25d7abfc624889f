package openrouter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolCallAccumulatorMergesFragmentsByIndex(t *testing.T) {
	acc := NewToolCallAccumulator()
	acc.Add(fragment(0, "call_1", "get_weather", ""))
	acc.Add(fragment(0, "", "", `{"loc`))
	acc.Add(fragment(0, "", "", `ation":"NYC"}`))

	calls := acc.Finalize()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].ID)
	assert.Equal(t, "function", calls[0].Type)
	assert.Equal(t, "get_weather", calls[0].Function.Name)
	assert.Equal(t, `{"location":"NYC"}`, calls[0].Function.Arguments)
}

func TestToolCallAccumulatorArgumentsConcatenateInSubmissionOrder(t *testing.T) {
	acc := NewToolCallAccumulator()
	acc.Add(fragment(0, "call_1", "f", "a"))
	acc.Add(fragment(0, "", "", "b"))
	acc.Add(fragment(0, "", "", "c"))

	calls := acc.Finalize()
	require.Len(t, calls, 1)
	assert.Equal(t, "abc", calls[0].Function.Arguments)
}

func TestToolCallAccumulatorMissingIndexDefaultsToZero(t *testing.T) {
	acc := NewToolCallAccumulator()

	first := fragment(0, "call_1", "f", "")
	first.Index = nil
	acc.Add(first)

	second := fragment(0, "", "", `{}`)
	second.Index = nil
	acc.Add(second)

	assert.Equal(t, 1, acc.Len())

	calls := acc.Finalize()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].ID)
	assert.Equal(t, `{}`, calls[0].Function.Arguments)
}

func TestToolCallAccumulatorOrdersByIndexNotArrival(t *testing.T) {
	acc := NewToolCallAccumulator()
	acc.Add(fragment(2, "call_c", "third", ""))
	acc.Add(fragment(0, "call_a", "first", ""))
	acc.Add(fragment(1, "call_b", "second", ""))

	calls := acc.Finalize()
	require.Len(t, calls, 3)
	assert.Equal(t, "call_a", calls[0].ID)
	assert.Equal(t, "call_b", calls[1].ID)
	assert.Equal(t, "call_c", calls[2].ID)
}

func TestToolCallAccumulatorDropsIncompleteEntries(t *testing.T) {
	acc := NewToolCallAccumulator()
	acc.Add(fragment(0, "call_1", "complete", `{}`))

	// Index 1 never receives a name, index 2 never receives an id.
	acc.Add(fragment(1, "call_2", "", `{"x":1}`))
	acc.Add(fragment(2, "", "nameless_id", `{}`))

	assert.Equal(t, 3, acc.Len())

	calls := acc.Finalize()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].ID)
}

func TestToolCallAccumulatorLaterMetadataOverwrites(t *testing.T) {
	acc := NewToolCallAccumulator()
	acc.Add(fragment(0, "call_old", "old_name", ""))
	acc.Add(fragment(0, "call_new", "new_name", ""))

	calls := acc.Finalize()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_new", calls[0].ID)
	assert.Equal(t, "new_name", calls[0].Function.Name)
}

func TestToolCallAccumulatorTypeDefaultsToFunction(t *testing.T) {
	acc := NewToolCallAccumulator()

	explicit := fragment(0, "call_1", "f", "")
	explicit.Type = strPtr("custom")
	acc.Add(explicit)
	acc.Add(fragment(1, "call_2", "g", ""))

	calls := acc.Finalize()
	require.Len(t, calls, 2)
	assert.Equal(t, "custom", calls[0].Type)
	assert.Equal(t, "function", calls[1].Type)
}

func TestToolCallAccumulatorEmptyFinalizeReturnsNil(t *testing.T) {
	acc := NewToolCallAccumulator()
	assert.Nil(t, acc.Finalize())
	assert.Equal(t, 0, acc.Len())
}
