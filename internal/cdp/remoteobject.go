package cdp

import (
	"encoding/json"
	"strconv"
)

// RemoteObject is a (simplified) CDP Runtime.RemoteObject, used to describe
// console.log-style arguments (design §4.B).
type RemoteObject struct {
	Type        string          `json:"type"`
	Subtype     string          `json:"subtype,omitempty"`
	Value       json.RawMessage `json:"value,omitempty"`
	Description string          `json:"description,omitempty"`
}

// RawLiteral marshals to its own bytes unchanged, letting a RemoteObject's
// Value carry a non-RFC8259 token (NaN, Infinity, -Infinity) instead of a
// quoted string (design §4.B sentinel normalization).
type RawLiteral string

func (r RawLiteral) MarshalJSON() ([]byte, error) { return []byte(r), nil }

// ToRemoteObject encodes an arbitrary decoded JSON value (string, float64,
// bool, nil, []any, map[string]any) as a CDP RemoteObject, following the
// mapping table in design §4.B:
//
//	number      -> {type:"number", value}
//	boolean     -> {type:"boolean", value}
//	null        -> {type:"object", subtype:"null"}
//	array       -> {type:"object", subtype:"array", description:"Array(N)"}
//	object      -> {type:"object", description:<json>}
//	string      -> {type:"string", value}
//	RawLiteral  -> {type:"number", value:<bare NaN/Infinity/-Infinity token>}
func ToRemoteObject(v any) RemoteObject {
	switch val := v.(type) {
	case nil:
		return RemoteObject{Type: "object", Subtype: "null"}
	case bool:
		return RemoteObject{Type: "boolean", Value: mustMarshal(val)}
	case float64:
		return RemoteObject{Type: "number", Value: mustMarshal(val)}
	case string:
		return RemoteObject{Type: "string", Value: mustMarshal(val)}
	case RawLiteral:
		return RemoteObject{Type: "number", Value: mustMarshal(val)}
	case []any:
		return RemoteObject{
			Type:        "object",
			Subtype:     "array",
			Description: descriptionArray(len(val)),
		}
	case map[string]any:
		return RemoteObject{Type: "object", Description: string(mustMarshal(val))}
	default:
		return RemoteObject{Type: "object", Description: string(mustMarshal(val))}
	}
}

func descriptionArray(n int) string {
	return "Array(" + strconv.Itoa(n) + ")"
}

func mustMarshal(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return raw
}
