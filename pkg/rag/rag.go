// Package rag holds the retrieval pipeline shared by the chunker, indexer,
// router, retriever and reranker subpackages.
package rag

import "time"

// Observer 接收检索链路中的降级和耗时事件，app/core.Metrics 实现为 prometheus 指标
type Observer interface {
	RouterFallback(reason string)
	RerankFallback()
	SummaryDegraded()
	RetrieveDuration(intent string, d time.Duration)
	KeywordRebuild(docs int, d time.Duration)
	IngestChunks(n int)
}

type NopObserver struct{}

func (NopObserver) RouterFallback(string)                  {}
func (NopObserver) RerankFallback()                        {}
func (NopObserver) SummaryDegraded()                       {}
func (NopObserver) RetrieveDuration(string, time.Duration) {}
func (NopObserver) KeywordRebuild(int, time.Duration)      {}
func (NopObserver) IngestChunks(int)                       {}

// OrNop 未设置时使用空实现
func OrNop(o Observer) Observer {
	if o == nil {
		return NopObserver{}
	}
	return o
}
