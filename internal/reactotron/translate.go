// Package reactotron translates Reactotron instrumentation commands into CDP
// event envelopes (design §4.B). The connection handler that reads those
// commands off the wire (§4.E.4) is relay.HandleReactotron.
package reactotron

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dev-console/dev-console/internal/cdp"
)

// Command is a single Reactotron protocol message: {type, payload, date?, clientId?}.
type Command struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Date     string          `json:"date,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
}

// consoleTypeByReactotronType maps a Reactotron command type directly to a
// Runtime.consoleAPICalled "type" field.
var consoleTypeByReactotronType = map[string]string{
	"console.log":   "log",
	"console.debug": "log",
	"console.info":  "log",
	"console.warn":  "warning",
	"console.error": "error",
	"console.trace": "trace",
	"console.clear": "clear",
}

// consoleTypeByLevel maps the `level` field of a generic "console"/"log"
// command to a Runtime.consoleAPICalled "type" field.
var consoleTypeByLevel = map[string]string{
	"log": "log", "debug": "log", "info": "log",
	"warn": "warning", "warning": "warning",
	"error": "error", "trace": "trace", "clear": "clear",
}

// Translate maps a Reactotron Command to zero or more CDP event envelopes.
// It returns a nil slice (not an error) for unrecognized command types —
// design §8 invariant 4 treats "no translation" as the expected outcome for
// anything not in the dispatch table.
func Translate(cmd Command) ([]cdp.Envelope, error) {
	var payload map[string]any
	if len(cmd.Payload) > 0 {
		if err := json.Unmarshal(cmd.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
	}

	switch {
	case consoleTypeByReactotronType[cmd.Type] != "":
		return translateConsole(consoleTypeByReactotronType[cmd.Type], payload, cmd.Date)
	case cmd.Type == "console" || cmd.Type == "log":
		level, _ := payload["level"].(string)
		consoleType, ok := consoleTypeByLevel[level]
		if !ok {
			consoleType = "log"
		}
		return translateConsole(consoleType, payload, cmd.Date)
	case cmd.Type == "network.request" || cmd.Type == "api.request":
		return translateRequest(payload, cmd.Date)
	case cmd.Type == "network.response" || cmd.Type == "api.response":
		return translateResponse(payload, cmd.Date)
	case cmd.Type == "network.error" || cmd.Type == "api.error":
		return translateNetworkError(payload, cmd.Date)
	default:
		return nil, nil
	}
}

// reactotronTimestampMs applies the heuristic in design §4.B to a
// Reactotron numeric-string `date` field and returns milliseconds since the
// epoch. An empty or unparseable date yields the current time.
func reactotronTimestampMs(date string) float64 {
	if date == "" {
		return float64(time.Now().UnixMilli())
	}
	raw, err := strconv.ParseFloat(date, 64)
	if err != nil {
		return float64(time.Now().UnixMilli())
	}
	switch {
	case raw > 3.15e15:
		return raw / 1000 // microseconds
	case raw > 4.1e12:
		return raw // already milliseconds
	case raw > 4.1e9:
		return raw // already milliseconds (lower bound of the ms range)
	default:
		return raw * 1000 // seconds
	}
}

func translateConsole(consoleType string, payload map[string]any, date string) ([]cdp.Envelope, error) {
	args := consoleArgs(payload)
	ts := reactotronTimestampMs(date)

	params := map[string]any{
		"type":               consoleType,
		"args":               args,
		"executionContextId": 1,
		"timestamp":          ts,
		"stackTrace":         map[string]any{"callFrames": []any{}},
	}
	ev, err := cdp.Event("Runtime.consoleAPICalled", params)
	if err != nil {
		return nil, err
	}
	return []cdp.Envelope{ev}, nil
}

// consoleArgs builds CDP RemoteObject arguments from payload.args (array),
// else payload.message (array or string), else payload.value (design §4.B).
func consoleArgs(payload map[string]any) []cdp.RemoteObject {
	if args, ok := payload["args"].([]any); ok {
		return remoteObjectsFor(args)
	}
	if msg, ok := payload["message"]; ok {
		switch m := msg.(type) {
		case []any:
			return remoteObjectsFor(m)
		default:
			return remoteObjectsFor([]any{m})
		}
	}
	if val, ok := payload["value"]; ok {
		return remoteObjectsFor([]any{val})
	}
	return []cdp.RemoteObject{}
}

func remoteObjectsFor(values []any) []cdp.RemoteObject {
	out := make([]cdp.RemoteObject, len(values))
	for i, v := range values {
		out[i] = cdp.ToRemoteObject(Normalize(v))
	}
	return out
}

// requestID reuses payload.requestId or payload.request.id / payload.id if
// present; otherwise synthesizes one (design §4.B).
func requestID(payload map[string]any) string {
	if id, ok := payload["requestId"].(string); ok && id != "" {
		return id
	}
	if req, ok := payload["request"].(map[string]any); ok {
		if id, ok := req["id"].(string); ok && id != "" {
			return id
		}
	}
	if id, ok := payload["id"].(string); ok && id != "" {
		return id
	}
	return fmt.Sprintf("reactotron-%d", time.Now().UnixNano())
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// requestFields extracts {url, method, headers, data} either flat on the
// payload or nested under payload.request (design §4.B table, row
// network.request/api.request).
func requestFields(payload map[string]any) (url, method string, headers map[string]any, data any) {
	src := payload
	if req, ok := payload["request"].(map[string]any); ok {
		src = req
	}
	url = stringField(src, "url")
	method = stringField(src, "method")
	if h, ok := src["headers"].(map[string]any); ok {
		headers = h
	}
	data = src["data"]
	return url, method, headers, data
}

func translateRequest(payload map[string]any, date string) ([]cdp.Envelope, error) {
	id := requestID(payload)
	url, method, headers, data := requestFields(payload)
	ts := reactotronTimestampMs(date) / 1000

	req := map[string]any{"url": url, "method": method, "headers": headers}
	if data != nil {
		req["postData"] = data
	}
	ev, err := cdp.Event("Network.requestWillBeSent", map[string]any{
		"requestId": id,
		"timestamp": ts,
		"request":   req,
		"type":      "XHR",
		"initiator": map[string]any{"type": "script"},
	})
	if err != nil {
		return nil, err
	}
	return []cdp.Envelope{ev}, nil
}

// translateResponse emits the three-event sequence for network.response /
// api.response: requestWillBeSent, responseReceived, loadingFinished
// (design §4.B table and §8 scenario S5).
func translateResponse(payload map[string]any, date string) ([]cdp.Envelope, error) {
	id := requestID(payload)
	url, method, reqHeaders, data := requestFields(payload)
	ts := reactotronTimestampMs(date) / 1000

	req := map[string]any{"url": url, "method": method, "headers": reqHeaders}
	if data != nil {
		req["postData"] = data
	}
	reqEv, err := cdp.Event("Network.requestWillBeSent", map[string]any{
		"requestId": id,
		"timestamp": ts,
		"request":   req,
		"type":      "XHR",
		"initiator": map[string]any{"type": "script"},
	})
	if err != nil {
		return nil, err
	}

	resp, _ := payload["response"].(map[string]any)
	body, _ := resp["body"].(string)
	encodedLen := len(body)
	if body != "" && encodedLen < 1 {
		encodedLen = 1
	}

	respParams := map[string]any{
		"status":            numberOrZero(resp["status"]),
		"statusText":        stringField(resp, "statusText"),
		"headers":           resp["headers"],
		"url":               url,
		"encodedDataLength": encodedLen,
	}
	if body != "" {
		respParams["body"] = body
	}
	respEv, err := cdp.Event("Network.responseReceived", map[string]any{
		"requestId": id,
		"timestamp": ts,
		"type":      "XHR",
		"response":  respParams,
	})
	if err != nil {
		return nil, err
	}

	finishedEncodedLen := encodedLen
	if body != "" && finishedEncodedLen < 1 {
		finishedEncodedLen = 1
	}
	finishedEv, err := cdp.Event("Network.loadingFinished", map[string]any{
		"requestId":         id,
		"timestamp":         ts + 0.001,
		"encodedDataLength": finishedEncodedLen,
	})
	if err != nil {
		return nil, err
	}

	return []cdp.Envelope{reqEv, respEv, finishedEv}, nil
}

func translateNetworkError(payload map[string]any, date string) ([]cdp.Envelope, error) {
	id := requestID(payload)
	ts := reactotronTimestampMs(date) / 1000
	errText := stringField(payload, "error")
	if errText == "" {
		errText = stringField(payload, "message")
	}
	if errText == "" {
		errText = "net::ERR_FAILED"
	}
	ev, err := cdp.Event("Network.loadingFailed", map[string]any{
		"requestId": id,
		"timestamp": ts,
		"type":      "XHR",
		"errorText": errText,
	})
	if err != nil {
		return nil, err
	}
	return []cdp.Envelope{ev}, nil
}

func numberOrZero(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}
