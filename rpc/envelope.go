package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Version is the envelope marker carried by every message.
const Version = "2.0"

type Kind int

const (
	KindInvalid Kind = iota
	KindRequest
	KindNotification
	KindResponse
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindNotification:
		return "notification"
	case KindResponse:
		return "response"
	default:
		return "invalid"
	}
}

// Envelope is a JSON-RPC 2.0 request, notification or response. Presence of
// id and method decides the kind.
type Envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

type ErrorObject struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    *ErrorData `json:"data,omitempty"`
}

type ErrorData struct {
	TextCode string         `json:"text_code,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (e Envelope) HasID() bool {
	id := bytes.TrimSpace(e.ID)
	return len(id) > 0 && !bytes.Equal(id, []byte("null"))
}

func (e Envelope) Kind() Kind {
	switch {
	case e.JSONRPC == "":
		return KindInvalid
	case e.HasID() && e.Method != "":
		return KindRequest
	case e.Method != "":
		return KindNotification
	case e.HasID():
		return KindResponse
	default:
		return KindInvalid
	}
}

// IDKey is the normalized id used to correlate responses.
func (e Envelope) IDKey() string {
	return string(bytes.TrimSpace(e.ID))
}

// Decode parses a transport payload. Payloads without the jsonrpc marker
// are reported with ok=false and no error.
func Decode(data []byte) (env Envelope, ok bool, err error) {
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, false, nil
	}
	if env.JSONRPC == "" {
		return Envelope{}, false, nil
	}
	if env.Kind() == KindInvalid {
		return env, true, fmt.Errorf("rpc: envelope has neither id nor method")
	}
	return env, true, nil
}

func Encode(env Envelope) ([]byte, error) {
	if env.JSONRPC == "" {
		env.JSONRPC = Version
	}
	return json.Marshal(env)
}

func NewRequest(id int64, method string, params json.RawMessage) Envelope {
	return Envelope{JSONRPC: Version, ID: json.RawMessage(strconv.FormatInt(id, 10)), Method: method, Params: params}
}

func NewNotification(method string, params json.RawMessage) Envelope {
	return Envelope{JSONRPC: Version, Method: method, Params: params}
}

// Params are the raw params of an inbound call.
type Params json.RawMessage

// Decode fills dst positionally from an array. An object fills dst[0].
// Missing positions leave their targets untouched.
func (p Params) Decode(dst ...any) error {
	raw := bytes.TrimSpace(p)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || len(dst) == 0 {
		return nil
	}
	if raw[0] != '[' {
		return json.Unmarshal(raw, dst[0])
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return err
	}
	for i, target := range dst {
		if i >= len(items) || target == nil {
			continue
		}
		if err := json.Unmarshal(items[i], target); err != nil {
			return fmt.Errorf("rpc: param %d: %w", i, err)
		}
	}
	return nil
}

// Len is the number of positional params.
func (p Params) Len() int {
	var items []json.RawMessage
	if err := json.Unmarshal(p, &items); err != nil {
		return 0
	}
	return len(items)
}

func marshalParams(params []any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}
	data, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	return data, nil
}
