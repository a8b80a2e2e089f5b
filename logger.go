/*
Copyright 2023 Alexander Bartolomey (github@alexanderbartolomey.de)

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package ipfix

import (
	"context"
	"sync/atomic"

	"github.com/go-logr/logr"
)

// Log is the root logger of the package. It discards everything until SetLogger is called.
// Loggers derived from it before that follow the logger set later.
var Log = logr.New(&delegatingLogSink{})

var rootSink atomic.Pointer[sinkHolder]

type sinkHolder struct {
	sink logr.LogSink
}

// SetLogger sets the sink of Log and of all loggers derived from it
func SetLogger(l logr.Logger) {
	sink := l.GetSink()
	if sink == nil {
		// logr.Discard()
		rootSink.Store(nil)
		return
	}
	rootSink.Store(&sinkHolder{sink: sink})
}

// FromContext returns the logger stored in ctx, or Log
func FromContext(ctx context.Context, keysAndValues ...interface{}) logr.Logger {
	log := Log
	if ctx != nil {
		if logger, err := logr.FromContext(ctx); err == nil {
			log = logger
		}
	}
	return log.WithValues(keysAndValues...)
}

func IntoContext(ctx context.Context, l logr.Logger) context.Context {
	return logr.NewContext(ctx, l)
}

// delegatingLogSink resolves the root sink on every call and replays the names and values it was
// derived with
type delegatingLogSink struct {
	derive []func(logr.LogSink) logr.LogSink
}

var _ logr.LogSink = &delegatingLogSink{}

func (l *delegatingLogSink) sink() logr.LogSink {
	h := rootSink.Load()
	if h == nil {
		return nil
	}
	s := h.sink
	for _, d := range l.derive {
		s = d(s)
	}
	return s
}

func (l *delegatingLogSink) Init(logr.RuntimeInfo) {}

func (l *delegatingLogSink) Enabled(level int) bool {
	s := l.sink()
	return s != nil && s.Enabled(level)
}

func (l *delegatingLogSink) Info(level int, msg string, keysAndValues ...interface{}) {
	if s := l.sink(); s != nil {
		s.Info(level, msg, keysAndValues...)
	}
}

func (l *delegatingLogSink) Error(err error, msg string, keysAndValues ...interface{}) {
	if s := l.sink(); s != nil {
		s.Error(err, msg, keysAndValues...)
	}
}

func (l *delegatingLogSink) WithName(name string) logr.LogSink {
	return l.with(func(s logr.LogSink) logr.LogSink {
		return s.WithName(name)
	})
}

func (l *delegatingLogSink) WithValues(keysAndValues ...interface{}) logr.LogSink {
	return l.with(func(s logr.LogSink) logr.LogSink {
		return s.WithValues(keysAndValues...)
	})
}

func (l *delegatingLogSink) with(d func(logr.LogSink) logr.LogSink) logr.LogSink {
	derive := make([]func(logr.LogSink) logr.LogSink, 0, len(l.derive)+1)
	derive = append(derive, l.derive...)
	return &delegatingLogSink{derive: append(derive, d)}
}
