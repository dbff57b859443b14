package message

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawMessageRoles(t *testing.T) {
	assert.True(t, RawMessage{}.IsAssistant())
	assert.True(t, NewAssistantMessage("hi").IsAssistant())
	assert.False(t, RawMessage{Role: RoleUser}.IsAssistant())
	assert.True(t, NewStreamingMessage("hi").IsStreaming)
}

func TestToolStatus(t *testing.T) {
	assert.True(t, ToolExecuting.Known())
	assert.False(t, ToolStatus("paused").Known())
	assert.True(t, ToolError.Terminal())
	assert.False(t, ToolPending.Terminal())
}

func TestToolCallRecordParams(t *testing.T) {
	t.Run("prefers decoded parameters", func(t *testing.T) {
		r := ToolCallRecord{Parameters: map[string]any{"q": "go"}, RawParameters: json.RawMessage(`{"q":"rust"}`)}
		params, err := r.Params()
		require.NoError(t, err)
		assert.Equal(t, "go", params["q"])
	})

	t.Run("decodes raw parameters", func(t *testing.T) {
		r := ToolCallRecord{Name: "search", RawParameters: json.RawMessage(`{"q":"rust","n":3}`)}
		params, err := r.Params()
		require.NoError(t, err)
		assert.Equal(t, "rust", params["q"])
		assert.Equal(t, float64(3), params["n"])
	})

	t.Run("reports malformed raw parameters", func(t *testing.T) {
		r := ToolCallRecord{Name: "search", RawParameters: json.RawMessage(`{"q":`)}
		_, err := r.Params()
		assert.ErrorContains(t, err, `tool call "search"`)
	})

	t.Run("null is empty", func(t *testing.T) {
		params, err := ToolCallRecord{RawParameters: json.RawMessage(`null`)}.Params()
		require.NoError(t, err)
		assert.Nil(t, params)
	})
}

func TestDecode(t *testing.T) {
	t.Run("plain text", func(t *testing.T) {
		msg, err := Decode([]byte("# Title\nbody"))
		require.NoError(t, err)
		assert.Equal(t, "# Title\nbody", msg.Text)
		assert.Equal(t, RoleAssistant, msg.Role)
	})

	t.Run("json message", func(t *testing.T) {
		msg, err := Decode([]byte(`{"text":"hi","is_streaming":true,"tool_calls":[{"id":"1","name":"calc","status":"executing"}]}`))
		require.NoError(t, err)
		assert.Equal(t, "hi", msg.Text)
		assert.True(t, msg.IsStreaming)
		require.Len(t, msg.ToolCalls, 1)
		assert.Equal(t, ToolExecuting, msg.ToolCalls[0].Status)
	})

	t.Run("broken json", func(t *testing.T) {
		_, err := Decode([]byte(`{"text":`))
		assert.ErrorContains(t, err, "decode message")
	})
}
