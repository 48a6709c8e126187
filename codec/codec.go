// Package codec turns cached values into bytes and back. The cache stores
// whatever a Codec produces inside its own entry frame; backends never see V.
package codec

// Codec encodes/decodes values V to []byte for storage.
// Implementations must be safe for concurrent use.
type Codec[V any] interface {
	// Encode returns the serialized form of v.
	Encode(V) ([]byte, error)
	// Decode parses bytes produced by Encode. A failure makes the cache drop
	// the entry and treat the lookup as a miss.
	Decode([]byte) (V, error)
}
