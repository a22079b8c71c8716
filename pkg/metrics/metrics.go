package metrics

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type manager struct {
	namespace string
	system    string
	registry  *prometheus.Registry
}

var (
	mu             sync.RWMutex
	defaultManager = &manager{
		namespace: "default",
		system:    "default",
		registry:  prometheus.NewRegistry(), // ignore registry
	}
)

// LatencyBuckets 单位秒，覆盖从 embedding 到 llm 回答的耗时范围
var LatencyBuckets = []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}

func RegisterGoMetrics(r prometheus.Registerer) {
	r.Register(collectors.NewGoCollector())
	r.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// SetupMetricsManager registry 为空时新建一个独立的 registry
func SetupMetricsManager(ns, system string, registry *prometheus.Registry) {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	mu.Lock()
	defaultManager = &manager{
		namespace: ns,
		system:    system,
		registry:  registry,
	}
	mu.Unlock()
	RegisterGoMetrics(registry)
}

func MustGetDefaultManager() (string, string, prometheus.Registerer) {
	mu.RLock()
	defer mu.RUnlock()
	return defaultManager.namespace, defaultManager.system, defaultManager.registry
}

// register 重复注册时返回已存在的 collector
func register[T prometheus.Collector](r prometheus.Registerer, c T) T {
	if err := r.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}

func emptyLabels(labels []string) []string {
	return make([]string, len(labels))
}

func NewCounterVec(name string, labels []string) *prometheus.CounterVec {
	ns, system, registerer := MustGetDefaultManager()

	vec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: FmtFixer(ns),
			Subsystem: FmtFixer(system),
			Name:      FmtFixer(name),
			Help:      fmt.Sprintf("%s count of /%s/%s", name, ns, system),
		},
		labels,
	)
	vec = register(registerer, vec)
	vec.WithLabelValues(emptyLabels(labels)...).Add(0)
	return vec
}

func NewHistogramVec(name string, labels []string) *prometheus.HistogramVec {
	ns, system, registerer := MustGetDefaultManager()
	vec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: FmtFixer(ns),
			Subsystem: FmtFixer(system),
			Name:      FmtFixer(name),
			Help:      fmt.Sprintf("%s duration of /%s/%s", name, ns, system),
			Buckets:   LatencyBuckets,
		},
		labels,
	)
	return register(registerer, vec)
}

func NewGaugeVec(name string, labels []string) *prometheus.GaugeVec {
	ns, system, registerer := MustGetDefaultManager()

	vec := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: FmtFixer(ns),
			Subsystem: FmtFixer(system),
			Name:      FmtFixer(name),
			Help:      fmt.Sprintf("%s gauge of /%s/%s", name, ns, system),
		},
		labels,
	)
	vec = register(registerer, vec)
	vec.WithLabelValues(emptyLabels(labels)...).Add(0)
	return vec
}

func DefaultExportHandler() gin.HandlerFunc {
	mu.RLock()
	registry := defaultManager.registry
	mu.RUnlock()

	h := promhttp.InstrumentMetricHandler(
		registry, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	)
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func FmtFixer(in string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(in)
}
