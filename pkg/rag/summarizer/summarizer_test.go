package summarizer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/airag/pkg/ai"
	"github.com/quka-ai/airag/pkg/testutils"
)

func TestSummarize(t *testing.T) {
	llm := &testutils.FakeChat{
		Reply: func(req ai.ChatRequest) (string, error) {
			return "  摘要：" + req.Messages[0].Content[:len("这是文档的第 1/2 部分")] + "  ", nil
		},
	}
	s := New(llm, Options{ChunkSize: 30}, nil)

	text := strings.Repeat("甲", 20) + "\n\n" + strings.Repeat("乙", 20)
	summaries := s.Summarize(context.Background(), text, "doc.md")

	require.Len(t, summaries, 2)
	assert.Equal(t, 0, summaries[0].ChunkIndex)
	assert.Equal(t, 1, summaries[1].ChunkIndex)
	assert.Equal(t, strings.Repeat("甲", 20), summaries[0].OriginalChunk)
	assert.Equal(t, strings.Repeat("乙", 20), summaries[1].OriginalChunk)
	assert.False(t, summaries[0].LowFidelity)
	assert.True(t, strings.HasPrefix(summaries[0].Summary, "摘要：这是文档的第 1/2 部分"))

	require.Len(t, llm.Requests, 2)
	assert.Equal(t, ai.PROMPT_CHUNK_SUMMARY_CN, llm.Requests[0].System)
	assert.Equal(t, "这是文档的第 2/2 部分：\n\n"+strings.Repeat("乙", 20), llm.Requests[1].Messages[0].Content)
}

func TestSummarizeFallback(t *testing.T) {
	calls := 0
	llm := &testutils.FakeChat{
		Reply: func(req ai.ChatRequest) (string, error) {
			calls++
			if calls == 2 {
				return "", testutils.ErrFake
			}
			return "ok", nil
		},
	}
	s := New(llm, Options{ChunkSize: 600, FallbackChars: 500}, nil)

	text := strings.Repeat("字", 550) + "\n\n" + strings.Repeat("文", 550)
	summaries := s.Summarize(context.Background(), text, "doc.md")

	// 任意一块失败整体降级为一条截断摘要
	require.Len(t, summaries, 1)
	assert.True(t, summaries[0].LowFidelity)
	assert.Equal(t, strings.Repeat("字", 500)+"...", summaries[0].Summary)
	assert.Equal(t, 0, summaries[0].ChunkIndex)
	assert.Equal(t, 600, len([]rune(summaries[0].OriginalChunk)))
}

func TestSummarizeShortFallbackHasNoEllipsis(t *testing.T) {
	llm := &testutils.FakeChat{
		Reply: func(req ai.ChatRequest) (string, error) { return "   ", nil },
	}
	s := New(llm, Options{}, nil)

	summaries := s.Summarize(context.Background(), "短文档", "a.txt")
	require.Len(t, summaries, 1)
	assert.Equal(t, "短文档", summaries[0].Summary)
	assert.True(t, summaries[0].LowFidelity)
}

func TestSummarizeTimeout(t *testing.T) {
	llm := &testutils.FakeChat{
		Reply: func(req ai.ChatRequest) (string, error) {
			time.Sleep(50 * time.Millisecond)
			return "late", nil
		},
	}
	s := New(llm, Options{Timeout: time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summaries := s.Summarize(ctx, "内容", "a.txt")
	require.Len(t, summaries, 1)
	assert.True(t, summaries[0].LowFidelity)
}

func TestSummarizeEnglishPrompt(t *testing.T) {
	llm := &testutils.FakeChat{}
	s := New(llm, Options{}, nil)

	s.Summarize(context.Background(), "The operating system manages the hardware and software resources of a computer.", "os.md")
	require.Len(t, llm.Requests, 1)
	assert.Equal(t, ai.PROMPT_CHUNK_SUMMARY_EN, llm.Requests[0].System)
	assert.True(t, strings.HasPrefix(llm.Requests[0].Messages[0].Content, "This is part 1/1"))
}
