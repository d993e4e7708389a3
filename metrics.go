// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pagemm

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// allocatorMetrics mirrors PoolStat as Prometheus gauges, one set of
// series per size class (labeled by block size). It reports the same
// numbers PrintStatistics prints; it never drives allocator behavior.
type allocatorMetrics struct {
	used       *prometheus.GaugeVec
	locked     *prometheus.GaugeVec
	swapped    *prometheus.GaugeVec
	swapLevels *prometheus.GaugeVec
}

func newAllocatorMetrics(reg prometheus.Registerer) *allocatorMetrics {
	labels := []string{"block_size"}
	m := &allocatorMetrics{
		used: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "pagemm",
			Name:      "blocks_used",
			Help:      "Number of blocks currently allocated in this size class.",
		}, labels),
		locked: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "pagemm",
			Name:      "blocks_locked",
			Help:      "Number of blocks currently locked in this size class.",
		}, labels),
		swapped: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "pagemm",
			Name:      "blocks_swapped",
			Help:      "Number of blocks currently resident on disk in this size class.",
		}, labels),
		swapLevels: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "pagemm",
			Name:      "swap_levels",
			Help:      "Number of disk swap levels this size class has grown to.",
		}, labels),
	}
	reg.MustRegister(m.used, m.locked, m.swapped, m.swapLevels)
	return m
}

func (m *allocatorMetrics) observe(stats []PoolStat) {
	for _, s := range stats {
		label := strconv.Itoa(s.BlockSize)
		m.used.WithLabelValues(label).Set(float64(s.Used))
		m.locked.WithLabelValues(label).Set(float64(s.Locked))
		m.swapped.WithLabelValues(label).Set(float64(s.Swapped))
		m.swapLevels.WithLabelValues(label).Set(float64(s.SwapLevels))
	}
}
