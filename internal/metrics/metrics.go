package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

var (
	// FetchTotal 按结果统计的开奖抓取次数（ok / unavailable / error）
	FetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "breakcode",
			Name:      "fetch_total",
			Help:      "Result fetch attempts by outcome",
		},
		[]string{"result"},
	)

	DrawsAppended = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "breakcode",
			Name:      "draws_appended_total",
			Help:      "Draw records appended to history",
		},
	)

	BaseGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "breakcode",
			Name:      "base_generated_total",
			Help:      "Base generations by strategy and outcome",
		},
		[]string{"strategy", "result"},
	)

	BacktestHitRate = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "breakcode",
			Name:      "backtest_hit_rate",
			Help:      "Position hit rate of the latest backtest per strategy",
		},
		[]string{"strategy"},
	)

	BacktestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "breakcode",
			Name:      "backtest_duration_seconds",
			Help:      "Backtest wall time",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)
)

func init() {
	registry.MustRegister(FetchTotal, DrawsAppended, BaseGenerated, BacktestHitRate, BacktestDuration)
}

// Handler /metrics 处理器
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
