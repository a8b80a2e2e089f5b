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

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/bombsimon/logrusr/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogrus(t *testing.T) {
	assert.Equal(t, logrus.InfoLevel, newLogrus(LogConfig{}).GetLevel())
	assert.Equal(t, logrus.DebugLevel, newLogrus(LogConfig{Verbosity: 1}).GetLevel())
	assert.Equal(t, logrus.TraceLevel, newLogrus(LogConfig{Verbosity: 5}).GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, newLogrus(LogConfig{Format: "json"}).Formatter)
	assert.True(t, newLogger(LogConfig{Verbosity: 1}).V(1).Enabled())
	assert.False(t, newLogger(LogConfig{}).V(1).Enabled())
}

func TestNewLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	l := newLogrus(LogConfig{Verbosity: 1, Format: "json"})
	l.SetOutput(buf)

	log := logrusr.New(l).WithName("ipfix").WithValues("collector", "tcp://localhost:4739")
	log.V(1).Info("connected to collector", "generation", 1)
	log.V(2).Info("sent message")
	log.Error(errors.New("broken pipe"), "failed to write message")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, "connected to collector", first["msg"])
	assert.Equal(t, "debug", first["level"])
	assert.Equal(t, "tcp://localhost:4739", first["collector"])

	var second map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[1], &second))
	assert.Equal(t, "error", second["level"])
	assert.Equal(t, "broken pipe", second["error"])
}
