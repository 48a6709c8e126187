package throughcache

import (
	"errors"
	"strings"
	"testing"
)

type userID string

func (u userID) String() string { return "u" + string(u) }

func TestKey(t *testing.T) {
	cases := []struct {
		op    string
		parts []any
		want  string
	}{
		{"Ping", []any{42}, "Ping::42"},
		{"Ping", nil, "Ping"},
		{"Search", []any{"golang", 2, true, 1.5, uint8(3)}, "Search::golang::2::true::1.5::3"},
		{"User", []any{userID("7")}, "User::u7"},
		{"Neg", []any{int64(-1)}, "Neg::-1"},
	}
	for _, tc := range cases {
		got, err := Key(tc.op, tc.parts...)
		if err != nil || got != tc.want {
			t.Fatalf("Key(%q, %v) = %q, %v; want %q", tc.op, tc.parts, got, err, tc.want)
		}
	}
}

func TestKeyRejectsAmbiguousParts(t *testing.T) {
	bad := []struct {
		op    string
		parts []any
	}{
		{"", []any{1}},
		{"a::b", nil},
		{"Op", []any{"x::y"}},
		{"Op", []any{nil}},
		{"Op", []any{[]int{1}}},
		{"Op", []any{struct{}{}}},
	}
	for _, tc := range bad {
		if _, err := Key(tc.op, tc.parts...); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("Key(%q, %v): want ErrInvalidKey, got %v", tc.op, tc.parts, err)
		}
	}
}

func TestHashKeyIsOrderIndependentForMaps(t *testing.T) {
	a := map[string]int{"x": 1, "y": 2, "z": 3}
	b := map[string]int{"z": 3, "y": 2, "x": 1}
	ka, err := HashKey("Query", a)
	if err != nil {
		t.Fatalf("HashKey: %v", err)
	}
	kb, _ := HashKey("Query", b)
	if ka != kb {
		t.Fatalf("equal maps hashed differently: %q vs %q", ka, kb)
	}
	if !strings.HasPrefix(ka, "Query::") || len(ka) != len("Query::")+16 {
		t.Fatalf("unexpected shape %q", ka)
	}
	kc, _ := HashKey("Query", map[string]int{"x": 2})
	if kc == ka {
		t.Fatalf("different inputs share a key")
	}
	if _, err := HashKey("Query", func() {}); err == nil {
		t.Fatalf("expected error for unmarshalable input")
	}
}

func TestValidateKey(t *testing.T) {
	if err := ValidateKey("Ping::1"); err != nil {
		t.Fatalf("valid key: %v", err)
	}
	for _, k := range []string{"", "   ", "a\nb", "a\rb"} {
		if !errors.Is(ValidateKey(k), ErrInvalidKey) {
			t.Fatalf("ValidateKey(%q) should be invalid", k)
		}
	}
	if !errors.Is(ValidateKey(strings.Repeat("k", MaxKeyLength+1)), ErrKeyTooLong) {
		t.Fatalf("oversized key accepted")
	}
}

func TestDeriveKeyWrapsFailures(t *testing.T) {
	if _, err := deriveKey(badKey{}); !errors.Is(err, ErrKeyDerivation) {
		t.Fatalf("CacheKey error: %v", err)
	}
	var kde *KeyDerivationError
	_, err := deriveKey(rawKey(strings.Repeat("k", MaxKeyLength+1)))
	if !errors.As(err, &kde) || !errors.Is(err, ErrKeyTooLong) {
		t.Fatalf("oversized key: %v", err)
	}
	if _, err := deriveKey(nil); !errors.Is(err, ErrKeyDerivation) {
		t.Fatalf("nil request: %v", err)
	}
}

type rawKey string

func (k rawKey) CacheKey() (string, error) { return string(k), nil }
