package throughcache

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorTaxonomy(t *testing.T) {
	cause := errors.New("cause")
	cases := []struct {
		err      error
		sentinel error
	}{
		{&KeyDerivationError{Err: cause}, ErrKeyDerivation},
		{&BackendError{Op: "get", Key: "entry:ns:k", Err: cause}, ErrBackend},
		{&UpstreamError{Key: "k", Err: cause}, ErrUpstream},
		{&SerializationError{Key: "k", Err: cause}, ErrSerialization},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, tc.sentinel) || !errors.Is(tc.err, cause) {
			t.Fatalf("%T should match its sentinel and cause", tc.err)
		}
		for _, other := range []error{ErrKeyDerivation, ErrBackend, ErrUpstream, ErrSerialization} {
			if other != tc.sentinel && errors.Is(tc.err, other) {
				t.Fatalf("%T must not match %v", tc.err, other)
			}
		}
	}
	if err := busyError("k"); !errors.Is(err, ErrBusy) || !strings.Contains(err.Error(), `"k"`) {
		t.Fatalf("busyError: %v", err)
	}
}

func TestInvalidateErrorMessages(t *testing.T) {
	bump, del := errors.New("bump"), errors.New("del")
	both := &InvalidateError{Key: "k", BumpErr: bump, DelErr: del}
	if !errors.Is(both, bump) || !errors.Is(both, del) {
		t.Fatalf("InvalidateError should unwrap both causes")
	}
	if !strings.Contains(both.Error(), "bump") || !strings.Contains(both.Error(), "delete") {
		t.Fatalf("message: %s", both.Error())
	}
	if only := (&InvalidateError{Key: "k", DelErr: del}); errors.Is(only, bump) {
		t.Fatalf("unexpected bump cause")
	}
}
