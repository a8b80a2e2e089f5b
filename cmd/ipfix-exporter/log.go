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
	"io"
	"os"

	"github.com/bombsimon/logrusr/v4"
	"github.com/go-logr/logr"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig configures the logrus backend of the exporter's logr logger
type LogConfig struct {
	// Verbosity enables logr V-levels up to and including this value. V(1) maps to logrus' debug
	// level, V(2) and above to trace.
	Verbosity int    `mapstructure:"verbosity"`
	Format    string `mapstructure:"format"`
	// File enables writing to a rotated log file instead of stderr
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"maxSizeMB"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAgeDays"`
}

func newLogger(cfg LogConfig) logr.Logger {
	return logrusr.New(newLogrus(cfg))
}

func newLogrus(cfg LogConfig) *logrus.Logger {
	l := logrus.New()
	var out io.Writer = os.Stderr
	if cfg.File != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
	}
	l.SetOutput(out)
	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	// logrusr logs V(n) at logrus.InfoLevel+n
	l.SetLevel(logrus.Level(int(logrus.InfoLevel) + min(max(cfg.Verbosity, 0), 2)))
	return l
}
