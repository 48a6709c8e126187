// Package logrus adapts a *logrus.Entry to throughcache.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/throughcache"
)

var _ throughcache.Logger = Logger{}

type Logger struct{ E *logrus.Entry }

// New tags every line with component=throughcache.
func New(l *logrus.Logger) Logger {
	return Logger{E: l.WithField("component", "throughcache")}
}

func (l Logger) with(f throughcache.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	e := l.E
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			e = e.WithError(err)
			continue
		}
		e = e.WithField(k, v)
	}
	return e
}

func (l Logger) Debug(msg string, f throughcache.Fields) { l.with(f).Debug(msg) }
func (l Logger) Info(msg string, f throughcache.Fields)  { l.with(f).Info(msg) }
func (l Logger) Warn(msg string, f throughcache.Fields)  { l.with(f).Warn(msg) }
func (l Logger) Error(msg string, f throughcache.Fields) { l.with(f).Error(msg) }
