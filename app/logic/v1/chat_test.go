package v1_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/quka-ai/airag/app/logic/v1"
	"github.com/quka-ai/airag/pkg/ai"
	"github.com/quka-ai/airag/pkg/errors"
	"github.com/quka-ai/airag/pkg/testutils"
	"github.com/quka-ai/airag/pkg/types"
)

func TestAskEmptyQuery(t *testing.T) {
	c, fake := NewCore()
	_, err := v1.NewChatLogic(userCtx("u1"), c).Ask("   ", []string{"k1"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
	assert.Empty(t, fake.FakeChat.Requests)
}

func TestAskWithSources(t *testing.T) {
	c, fake := NewCore()
	_, err := v1.NewKnowledgeLogic(userCtx("u1"), c).Ingest("k1", redisDoc, v1.IngestMeta{Name: "redis.md"})
	require.NoError(t, err)

	fake.FakeChat.Reply = func(req ai.ChatRequest) (string, error) {
		return "Redis 是一个开源的内存数据库[1]，另见[9]。", nil
	}

	query := "Redis 是一个开源的内存数据库吗"
	res, err := v1.NewChatLogic(userCtx("u1"), c).Ask(query, []string{"k1"}, []types.HistoryMessage{
		{Role: types.HISTORY_ROLE_USER, Content: "你好"},
		{Role: types.HISTORY_ROLE_ASSISTANT, Content: "你好，有什么可以帮你？"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Redis 是一个开源的内存数据库[1]，另见[9]。", res.Answer)
	require.Len(t, res.Sources, 1)
	assert.Equal(t, "k1", res.Sources[0].KnowledgeID)
	assert.Equal(t, "redis.md", res.Sources[0].Name)

	info := res.RetrievalInfo
	assert.Equal(t, types.INTENT_DETAIL, info.QueryType)
	assert.Equal(t, "detail", info.IndexType)
	assert.False(t, info.RouterFallback)
	assert.Greater(t, info.ResultsCount, 0)
	// 未配置 rerank 时使用检索分数
	assert.True(t, info.RerankFallback)

	last := fake.FakeChat.Requests[len(fake.FakeChat.Requests)-1]
	assert.Equal(t, ai.PROMPT_ANSWER_WITH_SOURCES_CN, last.System)
	user := last.Messages[0].Content
	assert.True(t, strings.HasPrefix(user, "【知识库资料】\n[资料1] 来源：redis.md\n"))
	assert.Contains(t, user, "【对话历史】\n用户: 你好\n助手: 你好，有什么可以帮你？\n\n")
	assert.True(t, strings.HasSuffix(user, "【用户问题】\n"+query+"\n\n"+ai.PROMPT_ANSWER_TAIL_CN))
}

func TestAskScope(t *testing.T) {
	c, fake := NewCore()
	_, err := v1.NewKnowledgeLogic(userCtx("u1"), c).Ingest("k1", redisDoc, v1.IngestMeta{Name: "redis.md"})
	require.NoError(t, err)
	fake.FakeChat.Reply = func(req ai.ChatRequest) (string, error) {
		return "不知道", nil
	}

	t.Run("no knowledge ids", func(t *testing.T) {
		res, err := v1.NewChatLogic(userCtx("u1"), c).Ask("Redis 是什么", nil, nil)
		require.NoError(t, err)
		assert.Empty(t, res.Sources)
		assert.Zero(t, res.RetrievalInfo.ResultsCount)

		last := fake.FakeChat.Requests[len(fake.FakeChat.Requests)-1]
		assert.Equal(t, ai.PROMPT_ANSWER_NO_SOURCES_CN, last.System)
		assert.Equal(t, "【用户问题】\nRedis 是什么", last.Messages[0].Content)
	})

	t.Run("other knowledge ids", func(t *testing.T) {
		res, err := v1.NewChatLogic(userCtx("u1"), c).Ask("Redis 是什么", []string{"k2"}, nil)
		require.NoError(t, err)
		assert.Empty(t, res.Sources)
		assert.Zero(t, res.RetrievalInfo.ResultsCount)
	})
}

func TestAskAnswerUnavailable(t *testing.T) {
	c, fake := NewCore()
	fake.FakeChat.Reply = func(req ai.ChatRequest) (string, error) {
		return "", testutils.ErrFake
	}

	_, err := v1.NewChatLogic(userCtx("u1"), c).Ask("Redis 是什么", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCapability))
	var ce *errors.CustomizedError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, http.StatusServiceUnavailable, ce.GetCode())
}

func TestBuildPrompts(t *testing.T) {
	sources := []types.Source{
		{Name: "a.md", Content: "内容A"},
		{Name: "b.md", Content: "内容B"},
	}
	history := []types.HistoryMessage{{Role: types.HISTORY_ROLE_USER, Content: "上一个问题"}}

	t.Run("with sources", func(t *testing.T) {
		system, user := v1.BuildPrompts(ai.MODEL_BASE_LANGUAGE_CN, "问题", history, sources)
		assert.Equal(t, ai.PROMPT_ANSWER_WITH_SOURCES_CN, system)
		assert.Equal(t, "【知识库资料】\n[资料1] 来源：a.md\n内容A\n\n---\n\n[资料2] 来源：b.md\n内容B\n\n"+
			"【对话历史】\n用户: 上一个问题\n\n"+
			"【用户问题】\n问题\n\n请根据以上知识库资料回答用户的问题。", user)
	})

	t.Run("no sources", func(t *testing.T) {
		system, user := v1.BuildPrompts(ai.MODEL_BASE_LANGUAGE_CN, "问题", nil, nil)
		assert.Equal(t, ai.PROMPT_ANSWER_NO_SOURCES_CN, system)
		assert.Equal(t, "【用户问题】\n问题", user)
	})

	t.Run("english", func(t *testing.T) {
		system, user := v1.BuildPrompts(ai.MODEL_BASE_LANGUAGE_EN, "what is redis", nil, sources[:1])
		assert.Equal(t, ai.PROMPT_ANSWER_WITH_SOURCES_EN, system)
		assert.True(t, strings.HasPrefix(user, "[Knowledge base]\n[Source 1] from: a.md\n内容A"))
	})
}

func TestTrimHistory(t *testing.T) {
	var history []types.HistoryMessage
	for i := 0; i < 10; i++ {
		history = append(history, types.HistoryMessage{Role: types.HISTORY_ROLE_USER, Content: strings.Repeat("字", 100)})
	}

	assert.Len(t, v1.TrimHistory(history, 6, 0, ""), 6)
	assert.Len(t, v1.TrimHistory(history, 0, 0, ""), 10)

	trimmed := v1.TrimHistory(history, 6, 250, "")
	assert.NotEmpty(t, trimmed)
	assert.Less(t, len(trimmed), 6)

	assert.Empty(t, v1.TrimHistory([]types.HistoryMessage{{Role: "user", Content: " "}}, 6, 0, ""))
}
