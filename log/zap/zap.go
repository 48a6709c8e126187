// Package zap adapts a *zap.Logger to throughcache.Logger.
package zap

import (
	"sort"

	"go.uber.org/zap"

	"github.com/unkn0wn-root/throughcache"
)

var _ throughcache.Logger = Logger{}

// Logger writes cache events through L. Errors in fields are logged with
// zap.Error-style encoding, everything else with zap.Any.
type Logger struct{ L *zap.Logger }

// New names the logger "throughcache" so its lines can be filtered.
func New(l *zap.Logger) Logger { return Logger{L: l.Named("throughcache")} }

func (z Logger) Debug(msg string, f throughcache.Fields) { z.L.Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f throughcache.Fields)  { z.L.Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f throughcache.Fields)  { z.L.Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f throughcache.Fields) { z.L.Error(msg, fields(f)...) }

func fields(f throughcache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(f))
	for _, k := range keys {
		if err, ok := f[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, f[k]))
	}
	return out
}
