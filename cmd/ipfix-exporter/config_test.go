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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ipfix "github.com/zoomoid/go-ipfix-exporter"
)

func testFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	f := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addFlags(f)
	require.NoError(t, f.Parse(args))
	return f
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("", testFlags(t))
	require.NoError(t, err)

	assert.Equal(t, uint32(12345), cfg.ObservationDomainId)
	assert.Equal(t, "localhost", cfg.Collector.Host)
	assert.Equal(t, ipfix.DefaultPort, cfg.Collector.Port)
	assert.Equal(t, "tcp", cfg.Collector.Transport)
	assert.Equal(t, time.Second, cfg.Interval)
	assert.Equal(t, 10, cfg.Iterations)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, 0, cfg.Log.Verbosity)
}

func TestLoadConfigFlags(t *testing.T) {
	cfg, err := loadConfig("", testFlags(t, "-c", "10.0.0.1", "-p", "2055", "-u", "-vv", "--iterations", "3"))
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1", cfg.Collector.Host)
	assert.Equal(t, uint16(2055), cfg.Collector.Port)
	assert.Equal(t, "udp", cfg.Collector.Transport)
	assert.Equal(t, 2, cfg.Log.Verbosity)
	assert.Equal(t, 3, cfg.Iterations)

	_, err = loadConfig("", testFlags(t, "-t", "-u"))
	assert.Error(t, err)
	_, err = loadConfig("", testFlags(t, "-s", "-t"))
	assert.Error(t, err)
}

func TestLoadConfigSCTP(t *testing.T) {
	cfg, err := loadConfig("", testFlags(t, "-s", "--source-id", "42"))
	require.NoError(t, err)
	assert.Equal(t, "sctp", cfg.Collector.Transport)
	assert.Equal(t, uint32(42), cfg.ObservationDomainId)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exporter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
observationDomainId: 7
collector:
  host: collector.example
  transport: sctp
interval: 250ms
session:
  maxPendingMessages: 4
  backoff:
    initial: 10ms
  registry:
    templateRefreshInterval: 1m
log:
  format: json
`), 0o600))

	// flags only take precedence when set explicitly
	cfg, err := loadConfig(path, testFlags(t, "-p", "4740"))
	require.NoError(t, err)

	assert.Equal(t, uint32(7), cfg.ObservationDomainId)
	assert.Equal(t, "collector.example", cfg.Collector.Host)
	assert.Equal(t, uint16(4740), cfg.Collector.Port)
	assert.Equal(t, "sctp", cfg.Collector.Transport)
	assert.Equal(t, 250*time.Millisecond, cfg.Interval)
	assert.Equal(t, 4, cfg.Session.MaxPendingMessages)
	assert.Equal(t, 10*time.Millisecond, cfg.Session.Backoff.Initial)
	assert.Equal(t, time.Minute, cfg.Session.Registry.TemplateRefreshInterval)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("IPFIX_EXPORTER_COLLECTOR_HOST", "10.1.2.3")
	t.Setenv("IPFIX_EXPORTER_ITERATIONS", "0")

	cfg, err := loadConfig("", testFlags(t))
	require.NoError(t, err)
	assert.Equal(t, "10.1.2.3", cfg.Collector.Host)
	assert.Equal(t, 0, cfg.Iterations)
}

func TestLoadConfigInvalid(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"), testFlags(t))
	assert.Error(t, err)

	_, err = loadConfig("", testFlags(t, "-c", "", "--iterations", "-1"))
	assert.Error(t, err)

	_, err = loadConfig("", testFlags(t, "--interval", "0s"))
	assert.Error(t, err)
}
