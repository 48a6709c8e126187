package throughcache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxKeyLength is the maximum length of a derived key (before namespacing).
const MaxKeyLength = 512

// KeySep separates the operation name from its parameters: "Ping::42".
const KeySep = "::"

// ValidateKey rejects empty, whitespace-only, multi-line and oversized keys.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" || strings.ContainsAny(key, "\r\n") {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	return nil
}

// Key builds "op::p1::p2..." from scalar parts. Strings containing KeySep
// are rejected so distinct part lists can never produce the same key.
//
//	Key("Ping", 42) // "Ping::42"
func Key(op string, parts ...any) (string, error) {
	if op == "" || strings.Contains(op, KeySep) {
		return "", fmt.Errorf("%w: operation %q", ErrInvalidKey, op)
	}
	var b strings.Builder
	b.WriteString(op)
	for i, p := range parts {
		s, err := keyPart(p)
		if err != nil {
			return "", fmt.Errorf("part %d: %w", i, err)
		}
		b.WriteString(KeySep)
		b.WriteString(s)
	}
	return b.String(), nil
}

func keyPart(p any) (string, error) {
	switch v := p.(type) {
	case string:
		if strings.Contains(v, KeySep) {
			return "", fmt.Errorf("%w: %q contains %q", ErrInvalidKey, v, KeySep)
		}
		return v, nil
	case fmt.Stringer:
		return keyPart(v.String())
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int8, int16, int32, int64:
		return fmt.Sprintf("%d", v), nil
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case nil:
		return "", fmt.Errorf("%w: nil part", ErrInvalidKey)
	default:
		return "", fmt.Errorf("%w: unsupported part type %T", ErrInvalidKey, p)
	}
}

// HashKey builds "op::<hash>" where hash is the first 16 hex chars of
// SHA-256 over the JSON encoding of input. encoding/json sorts map keys, so
// equal maps hash equally regardless of insertion order.
func HashKey(op string, input any) (string, error) {
	if op == "" || strings.Contains(op, KeySep) {
		return "", fmt.Errorf("%w: operation %q", ErrInvalidKey, op)
	}
	b, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("hash key input: %w", err)
	}
	sum := sha256.Sum256(b)
	return op + KeySep + hex.EncodeToString(sum[:8]), nil
}

func deriveKey(req Cacheable) (string, error) {
	if req == nil {
		return "", &KeyDerivationError{Err: errors.New("nil request")}
	}
	key, err := req.CacheKey()
	if err != nil {
		return "", &KeyDerivationError{Err: err}
	}
	if err := ValidateKey(key); err != nil {
		return "", &KeyDerivationError{Err: err}
	}
	return key, nil
}
