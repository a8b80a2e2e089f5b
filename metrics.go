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

import "github.com/prometheus/client_golang/prometheus"

var (
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "exporter",
		Name:      "messages_sent_total",
		Help:      "Total number of messages sent per transport",
	}, []string{"transport"})
	BytesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "exporter",
		Name:      "sent_bytes_total",
		Help:      "Total number of bytes sent per transport",
	}, []string{"transport"})
	RecordsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "exporter",
		Name:      "exported_records_total",
		Help:      "Total number of data records accepted for export",
	})
	TemplatesSentTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "exporter",
		Name:      "templates_sent_total",
		Help:      "Total number of template records sent to collectors",
	})
	FlushesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "exporter",
		Name:      "flushes_total",
		Help:      "Total number of flushes per reason",
	}, []string{"reason"})
	SendErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "exporter",
		Name:      "send_errors_total",
		Help:      "Total number of failed sends per transport",
	}, []string{"transport"})
	DroppedMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "exporter",
		Name:      "dropped_messages_total",
		Help:      "Total number of messages given up on per transport",
	}, []string{"transport"})
	ReconnectsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "exporter",
		Name:      "reconnects_total",
		Help:      "Total number of re-established connections per transport",
	}, []string{"transport"})
	RetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "exporter",
		Name:      "connect_retries_total",
		Help:      "Total number of connection attempts retried after backoff",
	})
	PendingMessages = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "exporter",
		Name:      "pending_messages",
		Help:      "Number of messages queued for retrying per collector",
	}, []string{"collector"})
	CollectorsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "exporter",
		Name:      "collectors",
		Help:      "Number of collectors registered with sessions",
	})
)

// Collectors returns all metrics of the package for registering them, e.g.
//
//	prometheus.MustRegister(ipfix.Collectors()...)
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		MessagesTotal,
		BytesTotal,
		RecordsTotal,
		TemplatesSentTotal,
		FlushesTotal,
		SendErrorsTotal,
		DroppedMessagesTotal,
		ReconnectsTotal,
		RetriesTotal,
		PendingMessages,
		CollectorsActive,
	}
}
