package inventory

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors updated by the Manager
// マネージャーが更新するメトリクス
type Metrics struct {
	operations     *prometheus.CounterVec
	inventoryValue prometheus.Gauge
	lowStock       prometheus.Gauge
	stateVersion   prometheus.Gauge
}

// NewMetrics creates collectors and registers them on reg.
// A nil registerer leaves them unregistered.
// メトリクスを作成して登録（reg が nil の場合は登録しない）
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "costledger",
			Name:      "operations_total",
			Help:      "Number of ledger operations by operation and result.",
		}, []string{"operation", "result"}),
		inventoryValue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "costledger",
			Name:      "inventory_value",
			Help:      "Inventory valuation at weighted-average cost.",
		}),
		lowStock: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "costledger",
			Name:      "low_stock_products",
			Help:      "Number of active products at or below their low-stock alert.",
		}),
		stateVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "costledger",
			Name:      "state_version",
			Help:      "Version of the last persisted state.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.operations, m.inventoryValue, m.lowStock, m.stateVersion)
	}
	return m
}

func (m *Metrics) observe(operation string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.operations.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) refresh(state *State) {
	if m == nil || state == nil {
		return
	}
	if total, err := TotalValue(state.Products, ValuationMethodAverage); err == nil {
		m.inventoryValue.Set(total.InexactFloat64())
	}
	m.lowStock.Set(float64(len(LowStockProducts(state.Products))))
	m.stateVersion.Set(float64(state.Version))
}
