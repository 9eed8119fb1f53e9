package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	AssetsMinted    prometheus.Counter
	SalesCompleted  *prometheus.CounterVec
	SaleAmount      prometheus.Histogram
	WarrantyClaims  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		AssetsMinted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_assets_minted_total",
			Help: "Total number of assets minted into the registry",
		}),
		SalesCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_sales_completed_total",
			Help: "Completed marketplace purchases by history classification",
		}, []string{"classification"}),
		SaleAmount: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "custodia_sale_amount",
			Help:    "Distribution of completed sale prices",
			Buckets: prometheus.ExponentialBuckets(100, 10, 6),
		}),
		WarrantyClaims: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_warranty_claims_total",
			Help: "Warranty claim resolutions by outcome",
		}, []string{"outcome"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "custodia_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// MintedAsset records one minted asset.
func (m *Metrics) MintedAsset() {
	m.AssetsMinted.Inc()
}

// IncSale records a completed purchase with its classification.
func (m *Metrics) IncSale(classification string, amount float64) {
	m.SalesCompleted.WithLabelValues(classification).Inc()
	m.SaleAmount.Observe(amount)
}

// IncClaim records a warranty claim resolution.
func (m *Metrics) IncClaim(outcome string) {
	m.WarrantyClaims.WithLabelValues(outcome).Inc()
}
