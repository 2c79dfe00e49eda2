// Package cdp holds the wire shapes shared by every protocol translator and
// connection handler: the Chrome DevTools Protocol envelope and the RemoteObject
// encoding used to describe console argument values (design §6, §4.B).
package cdp

import "encoding/json"

// Envelope is either a CDP request/response pair or an event.
//
//	request: {id, method, params?}       -> response: {id, result|error}
//	event:   {method, params}
//
// ID uses json.RawMessage because CDP ids are numbers on the wire but some
// relayed clients echo them back unchanged; preserving the raw bytes avoids
// a lossy round-trip through float64.
type Envelope struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  json.RawMessage `json:"error,omitempty"`
}

// IsEvent reports whether the envelope is a fire-and-forget CDP event
// (has a method, no id) as opposed to a request or a response.
func (e Envelope) IsEvent() bool {
	return e.Method != "" && len(e.ID) == 0
}

// Event builds an event envelope {method, params} from a typed params value.
func Event(method string, params any) (Envelope, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Method: method, Params: raw}, nil
}

// Response builds a response envelope {id, result} echoing a request id.
func Response(id json.RawMessage, result any) (Envelope, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{ID: id, Result: raw}, nil
}

// CompressedParams is the shape of params when a sender has gzipped the
// real envelope to save bandwidth (design §4.E.1 step 2, §6 wire formats).
type CompressedParams struct {
	Compressed bool   `json:"compressed"`
	Data       []byte `json:"data"`
}
