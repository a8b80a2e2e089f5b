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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	ipfix "github.com/zoomoid/go-ipfix-exporter"
)

// envPrefix prefixes environment overrides, e.g. IPFIX_EXPORTER_COLLECTOR_HOST
const envPrefix = "IPFIX_EXPORTER"

type Config struct {
	ObservationDomainId uint32 `mapstructure:"observationDomainId"`

	Collector CollectorConfig `mapstructure:"collector"`
	// OutputFile additionally writes all messages to a file in the IPFIX File Format
	OutputFile string `mapstructure:"outputFile"`

	Interval   time.Duration `mapstructure:"interval"`
	Iterations int           `mapstructure:"iterations"`
	// AnnounceTypes exports the type information of the Antrea information elements before
	// the first record
	AnnounceTypes bool `mapstructure:"announceTypes"`

	Session ipfix.Options `mapstructure:"session"`

	Metrics MetricsConfig `mapstructure:"metrics"`
	Log     LogConfig     `mapstructure:"log"`
}

type CollectorConfig struct {
	Host      string `mapstructure:"host"`
	Port      uint16 `mapstructure:"port"`
	Transport string `mapstructure:"transport"`
}

type MetricsConfig struct {
	// Listen is the address of the prometheus endpoint, empty disables it
	Listen string `mapstructure:"listen"`
	Path   string `mapstructure:"path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("observationDomainId", 12345)
	v.SetDefault("collector.host", "localhost")
	v.SetDefault("collector.port", ipfix.DefaultPort)
	v.SetDefault("collector.transport", "tcp")
	v.SetDefault("interval", time.Second)
	v.SetDefault("iterations", 10)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.maxSizeMB", 100)
	v.SetDefault("log.maxBackups", 5)
	v.SetDefault("log.maxAgeDays", 30)
}

// flagKeys maps command line flags to configuration keys
var flagKeys = map[string]string{
	"collector":      "collector.host",
	"port":           "collector.port",
	"source-id":      "observationDomainId",
	"output-file":    "outputFile",
	"interval":       "interval",
	"iterations":     "iterations",
	"announce-types": "announceTypes",
	"metrics-listen": "metrics.listen",
	"verbosity":      "log.verbosity",
	"log-file":       "log.file",
}

// loadConfig reads the configuration file, if any, and applies environment variables and flags
// on top of it
func loadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for flag, key := range flagKeys {
		if f := flags.Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// -s, -t and -u override the configured transport
	selected := ""
	for _, kind := range []string{"sctp", "tcp", "udp"} {
		if set, _ := flags.GetBool(kind); !set {
			continue
		}
		if selected != "" {
			return nil, errors.New("-s, -t and -u are mutually exclusive")
		}
		selected = kind
	}
	if selected != "" {
		cfg.Collector.Transport = selected
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.Collector.Host == "" && c.OutputFile == "" {
		return errors.New("neither a collector nor an output file is configured")
	}
	if _, err := ipfix.ParseTransportKind(c.Collector.Transport); err != nil {
		return err
	}
	if c.Iterations < 0 {
		return fmt.Errorf("iterations must not be negative, found %d", c.Iterations)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, found %s", c.Interval)
	}
	return nil
}
