package osmixpb

import (
	"fmt"

	"google.golang.org/grpc/encoding"
)

// wireMessage is the contract every message in this package satisfies
// in place of google.golang.org/protobuf/proto.Message — there is no
// generated descriptor to reflect over, so gRPC is handed a Codec that
// calls these methods directly instead of the default descriptor-based
// proto codec.
type wireMessage interface {
	Marshal() ([]byte, error)
	Unmarshal([]byte) error
}

// codecName is registered in place of grpc's built-in "proto" codec
// (encoding.RegisterCodec resolves by name; the last registration for
// a given name wins), since every message exchanged by internal/rpc's
// services is a wireMessage, never a real proto.Message.
const codecName = "proto"

type codec struct{}

func (codec) Marshal(v any) ([]byte, error) {
	m, ok := v.(wireMessage)
	if !ok {
		return nil, fmt.Errorf("osmixpb: %T does not implement wireMessage", v)
	}
	return m.Marshal()
}

func (codec) Unmarshal(data []byte, v any) error {
	m, ok := v.(wireMessage)
	if !ok {
		return fmt.Errorf("osmixpb: %T does not implement wireMessage", v)
	}
	return m.Unmarshal(data)
}

func (codec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(codec{})
}
