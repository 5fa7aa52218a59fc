// Package codec encodes state feed frames as JSON text or as protobuf
// binary (google.protobuf.Struct) messages.
package codec

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

type Format string

const (
	FormatJSON  Format = "json"
	FormatProto Format = "proto"
)

const (
	TypeState   = "state"
	TypeError   = "error"
	TypeRefresh = "refresh"
)

// ParseFormat maps the ?format= query value; anything unknown is JSON.
func ParseFormat(raw string) Format {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "proto", "protobuf", "binary", "pb":
		return FormatProto
	default:
		return FormatJSON
	}
}

// Envelope is the server -> client frame.
type Envelope struct {
	Type       string         `json:"type"`
	ServerSeq  uint64         `json:"server_seq"`
	ServerTsMs int64          `json:"server_ts_ms"`
	Payload    any            `json:"payload,omitempty"`
	Error      *ErrorResponse `json:"error,omitempty"`
}

type ErrorResponse struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}

// ClientMessage is the only client -> server frame: a request type.
type ClientMessage struct {
	Type string `json:"type"`
}

// WrapServerEnvelope creates an Envelope with common fields.
func WrapServerEnvelope(kind string, serverSeq uint64, payload any) Envelope {
	return Envelope{
		Type:       kind,
		ServerSeq:  serverSeq,
		ServerTsMs: time.Now().UnixMilli(),
		Payload:    payload,
	}
}

func ErrorEnvelope(serverSeq uint64, code int32, msg string) Envelope {
	env := WrapServerEnvelope(TypeError, serverSeq, nil)
	env.Error = &ErrorResponse{Code: code, Message: msg}
	return env
}

// Marshal encodes env in the given format.
func Marshal(format Format, env Envelope) ([]byte, error) {
	if format != FormatProto {
		return json.Marshal(env)
	}
	st, err := ToStruct(env)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(st)
}

// ToStruct converts any JSON-encodable value into a protobuf Struct, keeping
// the JSON field names.
func ToStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	st := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, st); err != nil {
		return nil, fmt.Errorf("payload is not an object: %w", err)
	}
	return st, nil
}

// UnmarshalProto decodes a binary Struct frame back to its JSON form.
func UnmarshalProto(data []byte, v any) error {
	st := &structpb.Struct{}
	if err := proto.Unmarshal(data, st); err != nil {
		return err
	}
	raw, err := protojson.Marshal(st)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func UnmarshalClient(format Format, data []byte) (ClientMessage, error) {
	var msg ClientMessage
	var err error
	if format == FormatProto {
		err = UnmarshalProto(data, &msg)
	} else {
		err = json.Unmarshal(data, &msg)
	}
	if err != nil {
		return ClientMessage{}, err
	}
	msg.Type = strings.TrimSpace(msg.Type)
	return msg, nil
}
