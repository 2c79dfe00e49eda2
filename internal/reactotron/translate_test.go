package reactotron

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTranslate(t *testing.T, cmd Command) []struct {
	Method string
	Params map[string]any
} {
	t.Helper()
	envs, err := Translate(cmd)
	require.NoError(t, err)
	out := make([]struct {
		Method string
		Params map[string]any
	}, len(envs))
	for i, e := range envs {
		var params map[string]any
		if len(e.Params) > 0 {
			require.NoError(t, json.Unmarshal(e.Params, &params))
		}
		out[i] = struct {
			Method string
			Params map[string]any
		}{Method: e.Method, Params: params}
	}
	return out
}

func TestTranslateUnrecognizedTypeYieldsNoEnvelopes(t *testing.T) {
	t.Parallel()
	envs, err := Translate(Command{Type: "something.unknown"})
	require.NoError(t, err)
	assert.Empty(t, envs)
}

func TestTranslateConsoleWarn(t *testing.T) {
	t.Parallel()
	// Design §8 scenario S4.
	cmd := Command{
		Type:    "console.warn",
		Date:    "1735689600000",
		Payload: json.RawMessage(`{"message":"oops"}`),
	}
	out := mustTranslate(t, cmd)
	require.Len(t, out, 1)
	assert.Equal(t, "Runtime.consoleAPICalled", out[0].Method)
	assert.Equal(t, "warning", out[0].Params["type"])
	assert.Equal(t, float64(1735689600000), out[0].Params["timestamp"])
	args, ok := out[0].Params["args"].([]any)
	require.True(t, ok)
	require.Len(t, args, 1)
	arg := args[0].(map[string]any)
	assert.Equal(t, "string", arg["type"])
}

func TestTranslateConsoleNaNArgEmitsBareLiteral(t *testing.T) {
	t.Parallel()
	// Full translateConsole -> ToRemoteObject path for design §4.B's
	// sentinel normalization; json.Unmarshal can't round-trip a bare NaN
	// token, so this asserts on the raw marshaled bytes instead.
	cmd := Command{
		Type:    "console.log",
		Payload: json.RawMessage(`{"args":["~~~ NaN ~~~","~~~ Infinity ~~~","~~~ -Infinity ~~~"]}`),
	}
	envs, err := Translate(cmd)
	require.NoError(t, err)
	require.Len(t, envs, 1)

	raw, err := json.Marshal(envs[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `{"type":"number","value":NaN}`)
	assert.Contains(t, string(raw), `{"type":"number","value":Infinity}`)
	assert.Contains(t, string(raw), `{"type":"number","value":-Infinity}`)
}

func TestTranslateConsoleWithLevelField(t *testing.T) {
	t.Parallel()
	cmd := Command{
		Type:    "console",
		Payload: json.RawMessage(`{"level":"error","message":"bang"}`),
	}
	out := mustTranslate(t, cmd)
	require.Len(t, out, 1)
	assert.Equal(t, "error", out[0].Params["type"])
}

func TestTranslateAPIResponseEmitsThreeEventsInOrder(t *testing.T) {
	t.Parallel()
	// Design §8 scenario S5.
	cmd := Command{
		Type: "api.response",
		Date: "1735689600000",
		Payload: json.RawMessage(`{
			"request": {"url":"https://e.x/v","method":"GET"},
			"response": {"status":200,"statusText":"OK","headers":{"Content-Type":"application/json"},"body":"{\"ok\":true}"}
		}`),
	}
	out := mustTranslate(t, cmd)
	require.Len(t, out, 3)

	assert.Equal(t, "Network.requestWillBeSent", out[0].Method)
	assert.Equal(t, float64(1735689600.0), out[0].Params["timestamp"])

	assert.Equal(t, "Network.responseReceived", out[1].Method)
	assert.Equal(t, float64(1735689600.0), out[1].Params["timestamp"])
	resp := out[1].Params["response"].(map[string]any)
	assert.Equal(t, float64(11), resp["encodedDataLength"])

	assert.Equal(t, "Network.loadingFinished", out[2].Method)
	assert.InDelta(t, 1735689600.001, out[2].Params["timestamp"].(float64), 1e-9)
	assert.Equal(t, float64(11), out[2].Params["encodedDataLength"])
}

func TestTranslateNetworkError(t *testing.T) {
	t.Parallel()
	cmd := Command{
		Type:    "network.error",
		Payload: json.RawMessage(`{"requestId":"R9","error":"timeout"}`),
	}
	out := mustTranslate(t, cmd)
	require.Len(t, out, 1)
	assert.Equal(t, "Network.loadingFailed", out[0].Method)
	assert.Equal(t, "R9", out[0].Params["requestId"])
	assert.Equal(t, "timeout", out[0].Params["errorText"])
}

func TestTranslateRequestSynthesizesRequestIDWhenAbsent(t *testing.T) {
	t.Parallel()
	cmd := Command{
		Type:    "network.request",
		Payload: json.RawMessage(`{"url":"https://x.test","method":"GET"}`),
	}
	out := mustTranslate(t, cmd)
	require.Len(t, out, 1)
	id, _ := out[0].Params["requestId"].(string)
	assert.NotEmpty(t, id)
}

func TestReactotronTimestampHeuristic(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		date string
		want float64
	}{
		{"seconds", "1735689600", 1735689600000},
		{"milliseconds", "1735689600000", 1735689600000},
		{"microseconds", "1735689600000000000", 1735689600000000},
	}
	for _, c := range cases {
		got := reactotronTimestampMs(c.date)
		assert.InDelta(t, c.want, got, 1, c.name)
	}
}
