// Package protocol implements the newline-delimited JSON wire protocol:
// one self-contained record per line, discriminated by the "message"
// field. Decoding validates the record into a typed command; encoding
// is the exact inverse.
package protocol

import (
	"bytes"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Delimiter terminates every encoded message on the wire. Multiple
// messages may share one transport write.
const Delimiter = '\n'

var (
	ErrDecode         = errors.New("message is not decodable")
	ErrEncode         = errors.New("message is not encodable")
	ErrUnknownMessage = errors.New("unknown message type")
)

// Split cuts a transport read into individual encoded messages,
// discarding empty fragments.
func Split(data []byte) [][]byte {
	var messages [][]byte
	for _, part := range bytes.Split(data, []byte{Delimiter}) {
		if len(bytes.TrimSpace(part)) > 0 {
			messages = append(messages, part)
		}
	}
	return messages
}

// Decode turns one raw record into a typed inbound message. It fails
// with ErrDecode when the input is not a JSON object and with
// ErrUnknownMessage when the discriminator is missing or unrecognized.
// Outbound kinds are inbound-invalid and rejected as unknown.
func Decode(raw []byte) (Message, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.Wrap(ErrDecode, "message must be an object")
	}

	var env struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, errors.Wrap(ErrDecode, err.Error())
	}

	switch env.Message {
	case KindCreateOrder:
		var m CreateOrder
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return nil, errors.Wrap(ErrDecode, err.Error())
		}
		return &m, nil
	case KindMarketOrder:
		var m MarketOrder
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return nil, errors.Wrap(ErrDecode, err.Error())
		}
		return &m, nil
	case KindCancelOrder:
		var m CancelOrder
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return nil, errors.Wrap(ErrDecode, err.Error())
		}
		return &m, nil
	}

	return nil, errors.Wrap(ErrUnknownMessage, env.Message)
}

// Encode serializes one outbound message, without the trailing
// delimiter. Transport adapters append Delimiter per write.
func Encode(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrap(ErrEncode, err.Error())
	}
	return data, nil
}

// DecodeValue decodes an arbitrary JSON value: booleans, null, numbers,
// strings, arrays and nested mappings all round-trip through
// EncodeValue. Used by tests and tooling that need to compare records
// structurally.
func DecodeValue(data []byte) (interface{}, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.Wrap(ErrDecode, "empty input")
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(ErrDecode, err.Error())
	}
	return v, nil
}

// EncodeValue is the inverse of DecodeValue. Unsupported value types
// (channels, functions and the like) fail with ErrEncode.
func EncodeValue(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(ErrEncode, err.Error())
	}
	return data, nil
}
