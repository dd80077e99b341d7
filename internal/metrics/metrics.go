package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all parkfinder metrics
const namespace = "parkfinder"

// Registry is the global Prometheus registry for all metrics
var Registry = prometheus.NewRegistry()

// AppInfo is a gauge that exposes application version information as labels
var AppInfo = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "app_info",
		Help:      "Application version information (always set to 1, version info in labels)",
	},
	[]string{"version", "commit", "build_date"},
)

// HealthCheckStatus tracks individual health check results
// Values: 0 = fail, 1 = warn, 2 = pass
var HealthCheckStatus = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "health_check_status",
		Help:      "Individual health check status (0=fail, 1=warn, 2=pass)",
	},
	[]string{"check"},
)

// Geocoding metrics

// GeocodingRequestsTotal tracks total geocoding requests by type and source
var GeocodingRequestsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "geocoding_requests_total",
		Help:      "Total number of geocoding requests",
	},
	[]string{"type", "source"}, // type: forward|reverse, source: cache|nominatim|mapbox
)

// GeocodingCacheHitsTotal tracks successful cache hits
var GeocodingCacheHitsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "geocoding_cache_hits_total",
		Help:      "Total number of geocoding cache hits",
	},
	[]string{"cache_type"}, // cache_type: forward|reverse
)

// GeocodingCacheMissesTotal tracks cache misses requiring API calls
var GeocodingCacheMissesTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "geocoding_cache_misses_total",
		Help:      "Total number of geocoding cache misses",
	},
	[]string{"cache_type"},
)

// GeocodingProviderRequestsTotal tracks upstream geocoder requests by provider, endpoint and status
var GeocodingProviderRequestsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "geocoding_provider_requests_total",
		Help:      "Total number of upstream geocoder API requests",
	},
	[]string{"provider", "endpoint", "status"}, // endpoint: search|reverse, status: success|error
)

// GeocodingProviderLatency tracks upstream geocoder request latency
var GeocodingProviderLatency = promauto.With(Registry).NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "geocoding_provider_latency_seconds",
		Help:      "Upstream geocoder request latency in seconds",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	},
	[]string{"provider", "endpoint"},
)

// GeocodingFailuresTotal tracks failed geocoding attempts by type and reason
var GeocodingFailuresTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "geocoding_failures_total",
		Help:      "Total number of failed geocoding attempts",
	},
	[]string{"type", "reason"}, // reason: timeout|not_found|error
)

// GeocodingCacheDeleted tracks expired cache rows removed by the cleanup job
var GeocodingCacheDeleted = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "geocoding_cache_deleted_total",
		Help:      "Total number of expired geocoding cache entries deleted by the cleanup job",
	},
	[]string{"cache_type"},
)

// Parking metrics

// ParkingUpstreamRequestsTotal tracks Melbourne open data requests by dataset and status
var ParkingUpstreamRequestsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "parking_upstream_requests_total",
		Help:      "Total number of parking open data API requests",
	},
	[]string{"dataset", "status"},
)

// ParkingUpstreamLatency tracks Melbourne open data request latency
var ParkingUpstreamLatency = promauto.With(Registry).NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "parking_upstream_latency_seconds",
		Help:      "Parking open data API request latency in seconds",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
	},
	[]string{"dataset"},
)

// ParkingSensorPages tracks how many sensor pages each nearby search fetched
var ParkingSensorPages = promauto.With(Registry).NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "parking_sensor_pages",
		Help:      "Number of sensor pages fetched per nearby search",
		Buckets:   []float64{1, 2, 3, 4, 5},
	},
)

// NormalizedBaysTotal tracks bays kept per band and items dropped by the normalizer
var NormalizedBaysTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "normalized_bays_total",
		Help:      "Total number of results placed in a distance band, or dropped",
	},
	[]string{"band"}, // band: within_100m|100_to_200m|200_to_500m|500_to_1000m|dropped
)

// SupersededRequestsTotal tracks interactive requests abandoned for a newer one
var SupersededRequestsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "superseded_requests_total",
		Help:      "Total number of requests abandoned because a newer request for the same client began",
	},
	[]string{"endpoint"},
)

// SignupsTotal tracks signup attempts by result
var SignupsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signups_total",
		Help:      "Total number of signup attempts",
	},
	[]string{"result"}, // result: created|duplicate|invalid|error
)

// Init registers runtime collectors and sets version information
func Init(version, commit, buildDate string) {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	AppInfo.WithLabelValues(version, commit, buildDate).Set(1)
}
