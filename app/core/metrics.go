package core

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/quka-ai/airag/pkg/metrics"
)

// Metrics 实现 rag.Observer
type Metrics struct {
	apiResponseTime   *prometheus.HistogramVec
	apiErrorCounter   *prometheus.CounterVec
	llmRequestTime    *prometheus.HistogramVec
	retrieveTime      *prometheus.HistogramVec
	keywordRebuild    *prometheus.HistogramVec
	routerFallback    *prometheus.CounterVec
	rerankFallback    *prometheus.CounterVec
	summaryDegraded   *prometheus.CounterVec
	ingestChunks      *prometheus.CounterVec
	keywordDocs       *prometheus.GaugeVec
	indexInconsistent *prometheus.GaugeVec
}

func NewMetrics(ns, system string, registry *prometheus.Registry) *Metrics {
	// setup metric
	metrics.SetupMetricsManager(ns, system, registry)

	m := &Metrics{
		apiResponseTime:   metrics.NewHistogramVec("api_response_time", []string{"api"}),
		apiErrorCounter:   metrics.NewCounterVec("api_error", []string{"method", "api", "status"}),
		llmRequestTime:    metrics.NewHistogramVec("llm_request_time", []string{"target"}),
		retrieveTime:      metrics.NewHistogramVec("retrieve_time", []string{"intent"}),
		keywordRebuild:    metrics.NewHistogramVec("keyword_rebuild_time", nil),
		routerFallback:    metrics.NewCounterVec("router_fallback", []string{"reason"}),
		rerankFallback:    metrics.NewCounterVec("rerank_fallback", nil),
		summaryDegraded:   metrics.NewCounterVec("summary_degraded", nil),
		ingestChunks:      metrics.NewCounterVec("ingest_chunks", nil),
		keywordDocs:       metrics.NewGaugeVec("keyword_index_docs", nil),
		indexInconsistent: metrics.NewGaugeVec("index_inconsistent_knowledge", nil),
	}

	return m
}

func (m *Metrics) ApiErrorInc(method, api string, status int) {
	m.apiErrorCounter.WithLabelValues(method, api, strconv.Itoa(status)).Inc()
}

func (m *Metrics) ApiResponseTimer(api string) *prometheus.Timer {
	return prometheus.NewTimer(m.apiResponseTime.WithLabelValues(api))
}

// LLMRequestTimer target: answer | router | summary | embedding | rerank
func (m *Metrics) LLMRequestTimer(target string) *prometheus.Timer {
	return prometheus.NewTimer(m.llmRequestTime.WithLabelValues(target))
}

// SetInconsistent 巡检发现的 Detail/Summary 不一致的文档数
func (m *Metrics) SetInconsistent(n int) {
	m.indexInconsistent.WithLabelValues().Set(float64(n))
}

func (m *Metrics) RouterFallback(reason string) {
	m.routerFallback.WithLabelValues(reason).Inc()
}

func (m *Metrics) RerankFallback() {
	m.rerankFallback.WithLabelValues().Inc()
}

func (m *Metrics) SummaryDegraded() {
	m.summaryDegraded.WithLabelValues().Inc()
}

func (m *Metrics) RetrieveDuration(intent string, d time.Duration) {
	m.retrieveTime.WithLabelValues(intent).Observe(d.Seconds())
}

func (m *Metrics) KeywordRebuild(docs int, d time.Duration) {
	m.keywordRebuild.WithLabelValues().Observe(d.Seconds())
	m.keywordDocs.WithLabelValues().Set(float64(docs))
}

func (m *Metrics) IngestChunks(n int) {
	m.ingestChunks.WithLabelValues().Add(float64(n))
}
