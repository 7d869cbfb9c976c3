package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(dbPoolConns, dbPoolMaxConns, pricingCacheTotal) }

var (
	dbPoolConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "billing_db_pool_connections",
			Help: "Postgres pool connections by state.",
		},
		[]string{"state"}, // total|idle|acquired
	)

	dbPoolMaxConns = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "billing_db_pool_max_connections",
			Help: "Configured Postgres pool ceiling.",
		},
	)

	pricingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_cache_lookups_total",
			Help: "Pricing cache lookups by result.",
		},
		[]string{"result"}, // hit|miss|corrupt|error
	)
)

// PoolSnapshot is the subset of pgxpool.Stat exported as gauges.
type PoolSnapshot struct {
	Total, Idle, Acquired, Max int32
}

func SetDBPool(s PoolSnapshot) {
	dbPoolConns.WithLabelValues("total").Set(float64(s.Total))
	dbPoolConns.WithLabelValues("idle").Set(float64(s.Idle))
	dbPoolConns.WithLabelValues("acquired").Set(float64(s.Acquired))
	dbPoolMaxConns.Set(float64(s.Max))
}

func IncPricingCache(result string) {
	pricingCacheTotal.WithLabelValues(norm(result)).Inc()
}
