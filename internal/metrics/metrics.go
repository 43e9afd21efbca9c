// Package metrics holds the Prometheus collectors of the DU control plane.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricMeta struct {
	Name   string
	Help   string
	Labels []string
}

var (
	F1apRxMeta = MetricMeta{
		Name:   "du_f1ap_messages_received_total",
		Help:   "F1AP messages received from the CU.",
		Labels: []string{"message"},
	}
	F1apTxMeta = MetricMeta{
		Name:   "du_f1ap_messages_sent_total",
		Help:   "F1AP messages sent to the CU.",
		Labels: []string{"message"},
	}
	RoutingErrorsMeta = MetricMeta{
		Name:   "du_f1ap_routing_errors_total",
		Help:   "Inbound UE-associated messages that could not be routed.",
		Labels: []string{"kind"},
	}
	ReleaseTimeoutsMeta = MetricMeta{
		Name: "du_ue_release_timeouts_total",
		Help: "UE releases forced because the release timer expired.",
	}
	DeliveryReportsMeta = MetricMeta{
		Name: "du_rrc_delivery_reports_total",
		Help: "RRC delivery reports sent to the CU.",
	}
	ReestablishmentsMeta = MetricMeta{
		Name: "du_ue_reestablishments_total",
		Help: "Reestablishments reported to the DU manager.",
	}
	UeContextsMeta = MetricMeta{
		Name: "du_ue_contexts",
		Help: "Live UE contexts.",
	}
	ClockTicksMeta = MetricMeta{
		Name:   "du_clock_ticks_total",
		Help:   "Millisecond ticks delivered to the timer facility.",
		Labels: []string{"mode"},
	}
	ClockSlotDrivenMeta = MetricMeta{
		Name: "du_clock_slot_driven",
		Help: "1 while at least one cell drives the clock, 0 while free-running.",
	}
)

type Metrics struct {
	F1apRx           *prometheus.CounterVec
	F1apTx           *prometheus.CounterVec
	RoutingErrors    *prometheus.CounterVec
	ReleaseTimeouts  prometheus.Counter
	DeliveryReports  prometheus.Counter
	Reestablishments prometheus.Counter
	UeContexts       prometheus.Gauge
	ClockTicks       *prometheus.CounterVec
	ClockSlotDriven  prometheus.Gauge
}

// New registers every collector on reg. Tests pass a fresh
// prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		F1apRx:           F1apRxMeta.counterVec(f),
		F1apTx:           F1apTxMeta.counterVec(f),
		RoutingErrors:    RoutingErrorsMeta.counterVec(f),
		ReleaseTimeouts:  ReleaseTimeoutsMeta.counter(f),
		DeliveryReports:  DeliveryReportsMeta.counter(f),
		Reestablishments: ReestablishmentsMeta.counter(f),
		UeContexts:       UeContextsMeta.gauge(f),
		ClockTicks:       ClockTicksMeta.counterVec(f),
		ClockSlotDriven:  ClockSlotDrivenMeta.gauge(f),
	}
}

func (mm *MetricMeta) counterVec(f promauto.Factory) *prometheus.CounterVec {
	return f.NewCounterVec(prometheus.CounterOpts{Name: mm.Name, Help: mm.Help}, mm.Labels)
}

func (mm *MetricMeta) counter(f promauto.Factory) prometheus.Counter {
	return f.NewCounter(prometheus.CounterOpts{Name: mm.Name, Help: mm.Help})
}

func (mm *MetricMeta) gauge(f promauto.Factory) prometheus.Gauge {
	return f.NewGauge(prometheus.GaugeOpts{Name: mm.Name, Help: mm.Help})
}
