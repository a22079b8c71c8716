package process

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/quka-ai/airag/app/core"
	"github.com/quka-ai/airag/pkg/register"
	"github.com/quka-ai/airag/pkg/safe"
	"github.com/quka-ai/airag/pkg/types"
)

const INDEX_AUDIT_SPEC = "@every 10m"

func init() {
	register.RegisterFunc[*Process](ProcessKey{}, func(p *Process) {
		if _, err := p.Cron().AddFunc(INDEX_AUDIT_SPEC, func() {
			safe.RunWithLog(func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				defer cancel()
				if _, err := NewIndexAuditTask(p.Core()).Run(ctx); err != nil {
					slog.Error("index audit failed", slog.String("error", err.Error()))
				}
			}, "process.index_audit")
		}); err != nil {
			panic(err)
		}
		slog.Info("index audit scheduler registered", slog.String("spec", INDEX_AUDIT_SPEC))
	})
}

// Inconsistency 一份资料在两个索引中的条目数与元数据不一致
type Inconsistency struct {
	KnowledgeID  string
	Name         string
	ChunksCount  int
	DetailCount  int
	SummaryCount int
}

// IndexAuditTask 对比资料元数据与 Detail/Summary 索引中的条目数
type IndexAuditTask struct {
	core      *core.Core
	batchSize int
}

func NewIndexAuditTask(core *core.Core) *IndexAuditTask {
	return &IndexAuditTask{
		core:      core,
		batchSize: 500,
	}
}

func (t *IndexAuditTask) Run(ctx context.Context) ([]Inconsistency, error) {
	stores := t.core.Store()
	list, err := stores.KnowledgeStore().List(ctx, types.ListKnowledgeOptions{})
	if err != nil {
		return nil, err
	}

	var result []Inconsistency
	for _, batch := range lo.Chunk(list, t.batchSize) {
		ids := lo.Map(batch, func(k types.Knowledge, _ int) string { return k.ID })
		details, err := stores.DetailIndexStore().CountByKnowledge(ctx, ids)
		if err != nil {
			return nil, err
		}
		summaries, err := stores.SummaryIndexStore().CountByKnowledge(ctx, ids)
		if err != nil {
			return nil, err
		}

		for _, k := range batch {
			item := Inconsistency{
				KnowledgeID:  k.ID,
				Name:         k.Name,
				ChunksCount:  k.ChunksCount,
				DetailCount:  details[k.ID],
				SummaryCount: summaries[k.ID],
			}
			if !item.broken() {
				continue
			}
			slog.Error("index inconsistency detected",
				slog.String("knowledge_id", item.KnowledgeID),
				slog.String("name", item.Name),
				slog.Int("chunks_count", item.ChunksCount),
				slog.Int("detail_count", item.DetailCount),
				slog.Int("summary_count", item.SummaryCount))
			result = append(result, item)
		}
	}

	t.core.Metrics().SetInconsistent(len(result))
	slog.Info("index audit finished", slog.Int("knowledge", len(list)), slog.Int("inconsistent", len(result)))
	return result, nil
}

func (i Inconsistency) broken() bool {
	if (i.DetailCount > 0) != (i.SummaryCount > 0) {
		return true
	}
	return i.DetailCount != i.ChunksCount
}
