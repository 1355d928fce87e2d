package modules

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "tplink_mqtt"

var (
	payloadsReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "payloads_received_total",
		Help:      "Payloads received by module and source.",
	}, []string{"module", "source"})
	payloadsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "payloads_failed_total",
		Help:      "Payloads that could not be decoded or carried a device error.",
	}, []string{"module"})
	statesPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "states_published_total",
		Help:      "State messages published to MQTT.",
	}, []string{"module"})
)

func init() {
	prometheus.MustRegister(payloadsReceived, payloadsFailed, statesPublished)
}
