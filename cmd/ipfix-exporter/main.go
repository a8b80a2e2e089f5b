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

// Command ipfix-exporter exports a flow record of two Kubernetes pods to an IPFIX collector. The
// template carries IANA flow keys and 32 bit counters plus Antrea's pod name fields. One message is
// flushed per interval, the octet count growing by one with every message.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	ipfix "github.com/zoomoid/go-ipfix-exporter"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ipfix-exporter",
	Short: "Export flow records to an IPFIX collector",
	Long: `
Export synthetic flow records to an IPFIX collector over TCP, UDP or SCTP, or into a file.

Examples:
  ipfix-exporter -c 10.0.0.1                    # export to 10.0.0.1:4739 over TCP
  ipfix-exporter -c 10.0.0.1 -u -p 2055 -v      # export over UDP with lifecycle logs
  ipfix-exporter -s                             # export to localhost over SCTP
  ipfix-exporter --output-file flows.ipfix      # write messages to a file only
  ipfix-exporter --config exporter.yaml         # read the configuration from a file
`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath, cmd.Flags())
		if err != nil {
			return err
		}

		logger := newLogger(cfg.Log)
		ipfix.SetLogger(logger.WithName("ipfix"))

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(logr.NewContext(ctx, logger), cfg)
	},
}

func init() {
	addFlags(rootCmd.Flags())
}

func addFlags(f *pflag.FlagSet) {
	f.StringVar(&configPath, "config", "", "path to the configuration file")
	f.StringP("collector", "c", "localhost", "collector address, empty to only write to --output-file")
	f.Uint16P("port", "p", ipfix.DefaultPort, "collector port number")
	f.BoolP("sctp", "s", false, "send data via SCTP")
	f.BoolP("tcp", "t", false, "send data via TCP (default)")
	f.BoolP("udp", "u", false, "send data via UDP")
	f.Uint32("source-id", 12345, "observation domain id")
	f.CountP("verbosity", "v", "log verbosity, repeat for more")
	f.String("output-file", "", "additionally append messages to this file")
	f.String("log-file", "", "write logs to this rotated file instead of stderr")
	f.String("metrics-listen", "", "serve prometheus metrics on this address, e.g. :9090")
	f.Duration("interval", time.Second, "time between messages")
	f.Int("iterations", 10, "number of messages to export, 0 exports until interrupted")
	f.Bool("announce-types", false, "export type information of enterprise-specific fields first")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *Config) error {
	logger := logr.FromContextOrDiscard(ctx)

	if cfg.Metrics.Listen != "" {
		srv := serveMetrics(cfg.Metrics)
		defer srv.Close()
		logger.Info("serving metrics", "address", cfg.Metrics.Listen, "path", cfg.Metrics.Path)
	}

	s := ipfix.NewSession(cfg.ObservationDomainId, cfg.Session)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Close(closeCtx); err != nil {
			logger.Error(err, "failed to close session cleanly")
		}
	}()

	if cfg.OutputFile != "" {
		t, err := ipfix.NewFileTransport(cfg.OutputFile)
		if err != nil {
			return err
		}
		if _, err := s.AddTransport(ctx, cfg.OutputFile, ipfix.File, t); err != nil {
			return err
		}
	}
	if cfg.Collector.Host != "" {
		kind, _ := ipfix.ParseTransportKind(cfg.Collector.Transport)
		c, err := s.AddCollector(ctx, cfg.Collector.Host, cfg.Collector.Port, kind)
		if err != nil && !errors.Is(err, ipfix.ErrConnectionRefused) {
			return err
		}
		if err != nil {
			logger.Error(err, "collector is not reachable yet", "collector", c)
		}
	}

	tmpl, err := flowTemplate(s)
	if err != nil {
		return err
	}
	if cfg.AnnounceTypes {
		if _, err := s.ExportTypeInformation(ctx, ipfix.Antrea()...); err != nil {
			return err
		}
	}

	defer func() {
		if err := s.DeleteTemplate(context.WithoutCancel(ctx), tmpl.Id()); err != nil {
			logger.Error(err, "failed to withdraw template", "template", tmpl)
		}
	}()

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	octets := uint32(12340)
	for i := 0; cfg.Iterations == 0 || i < cfg.Iterations; i, octets = i+1, octets+1 {
		if err := s.Export(ctx, tmpl, flowRecord(100, octets)...); err != nil {
			if errors.Is(err, ipfix.ErrSchema) {
				return err
			}
			logger.Error(err, "failed to export record")
		}
		if err := s.Flush(ctx); err != nil {
			logger.Error(err, "failed to flush message")
		}
		logger.V(1).Info("exported record", "iteration", i, "octetDeltaCount", octets)

		select {
		case <-ctx.Done():
			logger.Info("stopping exporter", "reason", context.Cause(ctx))
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

func flowTemplate(s *ipfix.Session) (*ipfix.Template, error) {
	h, err := s.NewTemplate()
	if err != nil {
		return nil, err
	}
	fields := []struct {
		enterpriseId uint32
		id           uint16
		length       uint16
	}{
		{0, ipfix.FieldSourceIPv4Address, 4},
		{0, ipfix.FieldDestinationIPv4Address, 4},
		{0, ipfix.FieldSourceTransportPort, 2},
		{0, ipfix.FieldDestinationTransportPort, 2},
		{0, ipfix.FieldProtocolIdentifier, 1},
		{0, ipfix.FieldPacketDeltaCount, 4},
		{0, ipfix.FieldOctetDeltaCount, 4},
		{ipfix.AntreaPEN, ipfix.FieldSourcePodName, ipfix.VariableLength},
		{ipfix.AntreaPEN, ipfix.FieldDestinationPodName, ipfix.VariableLength},
	}
	for _, f := range fields {
		if err := s.AddField(h, f.enterpriseId, f.id, f.length); err != nil {
			return nil, fmt.Errorf("failed to add field %d/%d: %w", f.enterpriseId, f.id, err)
		}
	}
	return s.Seal(h)
}

func flowRecord(packets, octets uint32) [][]byte {
	return [][]byte{
		ipfix.IPv4Value(netip.AddrFrom4([4]byte{1, 2, 3, 4})),
		ipfix.IPv4Value(netip.AddrFrom4([4]byte{5, 6, 7, 8})),
		ipfix.Uint16Value(20000),
		ipfix.Uint16Value(30000),
		ipfix.Uint8Value(6),
		ipfix.Uint32Value(packets),
		ipfix.Uint32Value(octets),
		ipfix.StringValue("nsA/podA"),
		ipfix.StringValue("nsB/podB"),
	}
}

func serveMetrics(cfg MetricsConfig) *http.Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(ipfix.Collectors()...)
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ipfix.Log.Error(err, "metrics server failed")
		}
	}()
	return srv
}
