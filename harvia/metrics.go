package harvia

import "github.com/prometheus/client_golang/prometheus"

var (
	requestSuccess = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gosauna_api_request_success_total",
			Help: "Successful GraphQL operations",
		},
		[]string{"operation"},
	)
	requestFailure = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gosauna_api_request_failure_total",
			Help: "Failed GraphQL operations",
		},
		[]string{"operation"},
	)
	authSuccess = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gosauna_auth_exchange_success_total",
			Help: "Successful Cognito credential exchanges",
		},
		[]string{"flow"},
	)
	authFailure = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gosauna_auth_exchange_failure_total",
			Help: "Failed Cognito credential exchanges",
		},
		[]string{"flow"},
	)
	lookupSuccess = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gosauna_endpoint_lookup_success_total",
			Help: "Successful endpoint discovery lookups",
		},
		[]string{"kind"},
	)
	lookupFailure = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gosauna_endpoint_lookup_failure_total",
			Help: "Failed endpoint discovery lookups",
		},
		[]string{"kind"},
	)
	tokenValid = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gosauna_token_valid",
			Help: "Id token validity (1=valid, 0=invalid)",
		},
	)
)

// MetricsCollectors returns collectors for an opt-in metrics registry.
func MetricsCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		requestSuccess,
		requestFailure,
		authSuccess,
		authFailure,
		lookupSuccess,
		lookupFailure,
		tokenValid,
	}
}
