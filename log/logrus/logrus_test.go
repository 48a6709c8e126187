package logrus

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/unkn0wn-root/throughcache"
)

func TestFieldsAndErrorKey(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	l := New(base)

	boom := errors.New("boom")
	l.Warn("lock release failed", throughcache.Fields{"key": "lock:ping:Ping::1", "err": boom})

	e := hook.LastEntry()
	if e == nil || e.Level != logrus.WarnLevel || e.Message != "lock release failed" {
		t.Fatalf("entry: %+v", e)
	}
	if e.Data[logrus.ErrorKey] != boom {
		t.Fatalf("err should use logrus.ErrorKey, data=%v", e.Data)
	}
	if e.Data["component"] != "throughcache" || e.Data["key"] != "lock:ping:Ping::1" {
		t.Fatalf("data=%v", e.Data)
	}

	l.Debug("d", nil)
	if len(hook.AllEntries()) != 2 {
		t.Fatalf("debug entry dropped")
	}
}
