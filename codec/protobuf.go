package codec

import (
	"errors"

	"google.golang.org/protobuf/proto"
)

// Protobuf encodes generated messages. Construct with NewProtobuf so Decode
// has a fresh message to fill:
//
//	codec.NewProtobuf(func() *pb.Pong { return &pb.Pong{} })
type Protobuf[T proto.Message] struct {
	newMsg func() T
}

// NewProtobuf returns a codec that decodes into messages made by ctor.
func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{newMsg: ctor}
}

// Encode marshals v deterministically so equal messages store equal bytes.
func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return proto.MarshalOptions{Deterministic: true}.Marshal(v)
}

// Decode unmarshals b into a fresh message from the constructor.
func (c Protobuf[T]) Decode(b []byte) (T, error) {
	if c.newMsg == nil {
		var zero T
		return zero, errors.New("protobuf codec: no message constructor")
	}
	m := c.newMsg()
	err := proto.Unmarshal(b, m)
	return m, err
}
