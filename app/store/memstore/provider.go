package memstore

import (
	"github.com/quka-ai/airag/app/store"
	"github.com/quka-ai/airag/pkg/rag/memindex"
)

// Provider 进程内存储，重启后数据丢失，用于本地调试和测试
type Provider struct {
	knowledge *KnowledgeStore
	detail    *memindex.DetailIndex
	summary   *memindex.SummaryIndex
}

func New() *Provider {
	return &Provider{
		knowledge: NewKnowledgeStore(),
		detail:    memindex.NewDetailIndex(),
		summary:   memindex.NewSummaryIndex(),
	}
}

func (p *Provider) KnowledgeStore() store.KnowledgeStore {
	return p.knowledge
}

func (p *Provider) DetailIndexStore() store.DetailIndexStore {
	return p.detail
}

func (p *Provider) SummaryIndexStore() store.SummaryIndexStore {
	return p.summary
}

// Summary 测试中用于注入写入失败
func (p *Provider) Summary() *memindex.SummaryIndex {
	return p.summary
}
