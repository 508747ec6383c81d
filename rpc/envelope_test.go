package rpc

import (
	"encoding/json"
	"testing"
)

func TestDecode_Kinds(t *testing.T) {
	cases := map[string]Kind{
		`{"jsonrpc":"2.0","id":1,"method":"foo","params":[1]}`: KindRequest,
		`{"jsonrpc":"2.0","method":"foo"}`:                     KindNotification,
		`{"jsonrpc":"2.0","id":1,"result":null}`:               KindResponse,
		`{"jsonrpc":"2.0","id":null,"method":"foo"}`:           KindNotification,
	}
	for payload, want := range cases {
		env, ok, err := Decode([]byte(payload))
		if err != nil || !ok {
			t.Fatalf("decode %s: ok=%v err=%v", payload, ok, err)
		}
		if env.Kind() != want {
			t.Fatalf("decode %s: kind %s, want %s", payload, env.Kind(), want)
		}
	}
}

func TestDecode_IgnoresForeignPayloads(t *testing.T) {
	for _, payload := range []string{`bad data`, `{"data":"test"}`, `"2.0"`} {
		if _, ok, err := Decode([]byte(payload)); ok || err != nil {
			t.Fatalf("expected %s to be ignored, ok=%v err=%v", payload, ok, err)
		}
	}
	if _, ok, err := Decode([]byte(`{"jsonrpc":"2.0"}`)); !ok || err == nil {
		t.Fatalf("expected marked but empty envelope to be reported")
	}
}

func TestParamsDecode(t *testing.T) {
	var name string
	var detail map[string]any
	if err := Params(`["xfc.fullscreen",{"url":"http://a"}]`).Decode(&name, &detail); err != nil {
		t.Fatalf("decode params: %v", err)
	}
	if name != "xfc.fullscreen" || detail["url"] != "http://a" {
		t.Fatalf("unexpected params %q %#v", name, detail)
	}

	var first, second string
	if err := Params(`["only"]`).Decode(&first, &second); err != nil || first != "only" || second != "" {
		t.Fatalf("expected missing positions to stay zero, got %q %q %v", first, second, err)
	}

	var object struct {
		CustomCal bool `json:"customCal"`
	}
	if err := Params(`{"customCal":true}`).Decode(&object); err != nil || !object.CustomCal {
		t.Fatalf("expected object params to fill first target")
	}
	if Params(`[1,2,3]`).Len() != 3 || Params(nil).Len() != 0 {
		t.Fatalf("unexpected params length")
	}
}

func TestEncode_DefaultsMarker(t *testing.T) {
	data, err := Encode(Envelope{Method: "x"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil || decoded["jsonrpc"] != Version {
		t.Fatalf("expected jsonrpc marker, got %s", data)
	}
}
