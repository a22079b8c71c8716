package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/quka-ai/airag/pkg/ai"
	"github.com/quka-ai/airag/pkg/rag"
	"github.com/quka-ai/airag/pkg/rag/chunker"
	"github.com/quka-ai/airag/pkg/types"
	"github.com/quka-ai/airag/pkg/utils"
)

const (
	DEFAULT_CHUNK_SIZE     = 2000
	DEFAULT_FALLBACK_CHARS = 500
	DEFAULT_TIMEOUT        = 60 * time.Second
)

type Options struct {
	ChunkSize     int
	FallbackChars int
	// Timeout 单个块摘要的超时时间
	Timeout time.Duration
}

func (o Options) withDefault() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DEFAULT_CHUNK_SIZE
	}
	if o.FallbackChars <= 0 {
		o.FallbackChars = DEFAULT_FALLBACK_CHARS
	}
	if o.Timeout <= 0 {
		o.Timeout = DEFAULT_TIMEOUT
	}
	return o
}

// Summarizer 块级摘要：按 ChunkSize 切分文档，每块生成 100-200 字摘要
type Summarizer struct {
	llm      ai.ChatModel
	opts     Options
	observer rag.Observer
}

func New(llm ai.ChatModel, opts Options, observer rag.Observer) *Summarizer {
	return &Summarizer{
		llm:      llm,
		opts:     opts.withDefault(),
		observer: rag.OrNop(observer),
	}
}

// Summarize 任意一块失败都整体降级为截断摘要，不阻塞入库
func (s *Summarizer) Summarize(ctx context.Context, text, filename string) []types.ChunkSummary {
	chunks := chunker.Split(text, s.opts.ChunkSize)
	if len(chunks) == 0 {
		return s.fallback(text)
	}

	english := utils.IsEnglish(text)
	system, userTpl := ai.PROMPT_CHUNK_SUMMARY_CN, ai.PROMPT_CHUNK_SUMMARY_USER_CN
	if english {
		system, userTpl = ai.PROMPT_CHUNK_SUMMARY_EN, ai.PROMPT_CHUNK_SUMMARY_USER_EN
	}

	summaries := make([]types.ChunkSummary, 0, len(chunks))
	for i, chunk := range chunks {
		summary, err := s.summarizeChunk(ctx, system, fmt.Sprintf(userTpl, i+1, len(chunks), chunk))
		if err != nil {
			slog.Warn("failed to summarize document, fallback to truncated summary",
				slog.String("file", filename),
				slog.Int("chunk", i),
				slog.Int("chunks", len(chunks)),
				slog.String("error", err.Error()))
			s.observer.SummaryDegraded()
			return s.fallback(text)
		}

		summaries = append(summaries, types.ChunkSummary{
			Summary:       summary,
			ChunkIndex:    i,
			OriginalChunk: chunk,
		})
	}

	slog.Debug("document summarized", slog.String("file", filename), slog.Int("chunks", len(summaries)))
	return summaries
}

func (s *Summarizer) summarizeChunk(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	resp, err := s.llm.Chat(ctx, ai.ChatRequest{
		System:      system,
		Messages:    []ai.Message{{Role: openai.ChatMessageRoleUser, Content: user}},
		Temperature: 0.3,
	})
	if err != nil {
		return "", err
	}

	summary := strings.TrimSpace(resp.Content)
	if summary == "" {
		return "", fmt.Errorf("empty summary")
	}
	return summary, nil
}

// fallback 原文前 FallbackChars 字作为唯一的摘要，标记为低保真
func (s *Summarizer) fallback(text string) []types.ChunkSummary {
	summary := strings.TrimSpace(utils.TruncateRunes(text, s.opts.FallbackChars))
	if len([]rune(text)) > s.opts.FallbackChars {
		summary += "..."
	}
	return []types.ChunkSummary{{
		Summary:       summary,
		ChunkIndex:    0,
		OriginalChunk: utils.TruncateRunes(text, s.opts.ChunkSize),
		LowFidelity:   true,
	}}
}
