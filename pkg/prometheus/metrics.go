package prometheus

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// register 按名称注册一次指标，同名的第二次注册返回 ErrMetricExists
func register[V prometheus.Collector](c *Client, store *sync.Map, name string, build func(prometheus.Opts) V) (V, error) {
	var zero V
	if c.IsClosed() {
		return zero, ErrClientClosed
	}
	// 先占位，防止并发注册同名指标
	if _, loaded := store.LoadOrStore(name, nil); loaded {
		return zero, ErrMetricExists
	}

	v := build(prometheus.Opts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      name,
	})
	if err := c.registry.Register(v); err != nil {
		store.Delete(name)
		return zero, err
	}
	store.Store(name, v)
	return v, nil
}

func lookup[V any](store *sync.Map, name string) (V, bool) {
	var zero V
	v, ok := store.Load(name)
	if !ok || v == nil {
		return zero, false
	}
	return v.(V), true
}

// NewCounter 创建并注册 Counter
func (c *Client) NewCounter(name, help string, labels []string) (*CounterVec, error) {
	return register(c, &c.counters, name, func(o prometheus.Opts) *CounterVec {
		o.Help = help
		return prometheus.NewCounterVec(prometheus.CounterOpts(o), labels)
	})
}

// MustNewCounter 创建 Counter，失败则 panic
func (c *Client) MustNewCounter(name, help string, labels []string) *CounterVec {
	counter, err := c.NewCounter(name, help, labels)
	if err != nil {
		panic(err)
	}
	return counter
}

func (c *Client) GetCounter(name string) (*CounterVec, bool) {
	return lookup[*CounterVec](&c.counters, name)
}

// NewGauge 创建并注册 Gauge
func (c *Client) NewGauge(name, help string, labels []string) (*GaugeVec, error) {
	return register(c, &c.gauges, name, func(o prometheus.Opts) *GaugeVec {
		o.Help = help
		return prometheus.NewGaugeVec(prometheus.GaugeOpts(o), labels)
	})
}

func (c *Client) GetGauge(name string) (*GaugeVec, bool) {
	return lookup[*GaugeVec](&c.gauges, name)
}

// NewHistogram 创建并注册 Histogram，buckets 为 nil 时使用默认分桶
func (c *Client) NewHistogram(name, help string, labels []string, buckets []float64) (*HistogramVec, error) {
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}
	return register(c, &c.histograms, name, func(o prometheus.Opts) *HistogramVec {
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: o.Namespace,
			Subsystem: o.Subsystem,
			Name:      o.Name,
			Help:      help,
			Buckets:   buckets,
		}, labels)
	})
}

func (c *Client) GetHistogram(name string) (*HistogramVec, bool) {
	return lookup[*HistogramVec](&c.histograms, name)
}

// RegisterCollector 注册自定义采集器
func (c *Client) RegisterCollector(collector Collector) error {
	if c.IsClosed() {
		return ErrClientClosed
	}
	return c.registry.Register(collector)
}
