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
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
)

func TestSetLogger(t *testing.T) {
	defer SetLogger(logr.Discard())

	var lines []string
	capture := funcr.New(func(prefix, args string) {
		lines = append(lines, prefix+" "+args)
	}, funcr.Options{Verbosity: 1})

	// derived before the sink is set
	derived := Log.WithName("session").WithValues("observationDomainId", 1)
	derived.Info("dropped")
	if len(lines) != 0 {
		t.Fatalf("expected nothing to be logged without a sink, found %v", lines)
	}

	SetLogger(capture)
	derived.Info("flushed", "sequenceNumber", 7)
	derived.V(1).Info("verbose")
	derived.V(2).Info("too verbose")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, found %v", lines)
	}
	if !strings.Contains(lines[0], "session") || !strings.Contains(lines[0], "\"observationDomainId\"=1") || !strings.Contains(lines[0], "\"sequenceNumber\"=7") {
		t.Errorf("unexpected line %q", lines[0])
	}

	ctx := IntoContext(context.Background(), derived.WithValues("collector", "tcp://a"))
	FromContext(ctx, "extra", true).Info("from context")
	if len(lines) != 3 || !strings.Contains(lines[2], "\"collector\"=\"tcp://a\"") || !strings.Contains(lines[2], "\"extra\"=true") {
		t.Errorf("unexpected lines %v", lines)
	}

	SetLogger(logr.Discard())
	derived.Info("discarded")
	if len(lines) != 3 {
		t.Errorf("expected discarded line, found %v", lines)
	}
}
