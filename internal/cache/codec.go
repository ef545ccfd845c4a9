package cache

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// codec serializes entries for one partition.
type codec interface {
	ext() string
	marshal(e Entry) ([]byte, error)
	unmarshal(data []byte, e *Entry) error
}

type jsonCodec struct{}

func (jsonCodec) ext() string { return ".json" }

func (jsonCodec) marshal(e Entry) ([]byte, error) {
	return json.MarshalIndent(e, "", "  ")
}

func (jsonCodec) unmarshal(data []byte, e *Entry) error {
	return json.Unmarshal(data, e)
}

type msgpackCodec struct{}

func (msgpackCodec) ext() string { return ".msgpack" }

func (msgpackCodec) marshal(e Entry) ([]byte, error) {
	return msgpack.Marshal(&e)
}

func (msgpackCodec) unmarshal(data []byte, e *Entry) error {
	return msgpack.Unmarshal(data, e)
}

func codecFor(p Partition) (codec, error) {
	switch p {
	case PartitionText:
		return jsonCodec{}, nil
	case PartitionImages:
		return msgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown cache partition: %q", p)
	}
}

// decodeNumbers unmarshals JSON keeping numbers as json.Number so the
// re-encoded form reproduces the original literal.
func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
