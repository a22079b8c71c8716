package v1

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sashabaranov/go-openai"

	"github.com/quka-ai/airag/app/core"
	"github.com/quka-ai/airag/pkg/ai"
	"github.com/quka-ai/airag/pkg/errors"
	"github.com/quka-ai/airag/pkg/i18n"
	"github.com/quka-ai/airag/pkg/rag/citation"
	"github.com/quka-ai/airag/pkg/types"
	"github.com/quka-ai/airag/pkg/utils"
)

type ChatLogic struct {
	UserInfo
	ctx  context.Context
	core *core.Core
}

func NewChatLogic(ctx context.Context, core *core.Core) *ChatLogic {
	return &ChatLogic{
		ctx:      ctx,
		core:     core,
		UserInfo: SetupUserInfo(ctx, core),
	}
}

type AskRequest struct {
	Message      string                 `json:"message" binding:"required"`
	KnowledgeIDs []string               `json:"knowledge_ids"`
	History      []types.HistoryMessage `json:"history"`
}

// Search 路由 -> 检索 -> 相关性过滤 -> 重排，allowedIDs 为空时不检索
func (l *ChatLogic) Search(query string, allowedIDs []string) ([]types.Source, *types.RetrievalInfo, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil, errors.New("ChatLogic.Search.Query", i18n.ERROR_EMPTY_QUERY, errors.ErrValidation)
	}

	var (
		cfg = l.core.Cfg().RAG
		r   = l.core.RAG()
	)

	decision := r.Router.Route(l.ctx, query)
	info := &types.RetrievalInfo{
		QueryType:       decision.Intent,
		IndexType:       decision.Intent.IndexType(),
		RetrievalParams: decision.Params,
		Confidence:      decision.Confidence,
		Reasoning:       decision.Reasoning,
		RouterFallback:  decision.Fallback,
	}

	sources := []types.Source{}
	allowedIDs = lo.Uniq(lo.Compact(allowedIDs))
	if len(allowedIDs) == 0 {
		return sources, info, nil
	}

	candidates, err := r.Retriever.Retrieve(l.ctx, query, allowedIDs, decision.Intent, decision.Params)
	if err != nil {
		return nil, nil, errors.Trace("ChatLogic.Search", err)
	}
	info.ResultsCount = len(candidates)

	survivors := lo.Filter(candidates, func(c types.Candidate, _ int) bool {
		return c.Score >= cfg.RelevanceThreshold
	})
	info.FilteredCount = len(candidates) - len(survivors)
	if len(survivors) == 0 {
		return sources, info, nil
	}

	reranked, fallback := r.Reranker.Rerank(l.ctx, query, survivors, cfg.RerankThreshold)
	info.RerankedCount = len(reranked)
	info.RerankFallback = fallback
	sources = lo.Map(reranked, func(c types.RerankedCandidate, _ int) types.Source {
		return types.Source{
			KnowledgeID: c.KnowledgeID,
			Name:        c.Name,
			Content:     c.Passage,
			CourseName:  c.CourseName,
			Score:       math.Round(c.RerankScore*10000) / 10000,
		}
	})
	return sources, info, nil
}

// Ask 检索资料后生成回答，并只保留回答实际引用的资料
func (l *ChatLogic) Ask(query string, allowedIDs []string, history []types.HistoryMessage) (*types.AskResult, error) {
	sources, info, err := l.Search(query, allowedIDs)
	if err != nil {
		return nil, errors.Trace("ChatLogic.Ask", err)
	}
	query = strings.TrimSpace(query)
	cfg := l.core.Cfg().RAG

	lang := lo.If(utils.IsEnglish(query), ai.MODEL_BASE_LANGUAGE_EN).Else(ai.MODEL_BASE_LANGUAGE_CN)
	history = TrimHistory(history, cfg.HistoryTurns, cfg.HistoryMaxTokens, l.core.Cfg().AI.Agent.ChatModel)
	system, user := BuildPrompts(lang, query, history, sources)

	slog.Debug("ask prompt assembled",
		slog.String("intent", string(info.QueryType)),
		slog.Int("sources", len(sources)),
		slog.Int("history", len(history)),
		slog.Int("user_prompt_chars", len([]rune(user))))

	timer := l.core.Metrics().LLMRequestTimer("answer")
	resp, err := l.core.Srv().AI().Chat(l.ctx, ai.ChatRequest{
		System:   system,
		Messages: []ai.Message{{Role: types.HISTORY_ROLE_USER, Content: user}},
	})
	timer.ObserveDuration()
	if err != nil {
		return nil, errors.New("ChatLogic.Ask.AI.Chat", i18n.ERROR_ANSWER_UNAVAILABLE, fmt.Errorf("%w: %w", errors.ErrCapability, err))
	}

	answer, used := citation.Reconcile(resp.Content, sources)
	l.presignSources(used)

	return &types.AskResult{
		Answer:        answer,
		Sources:       used,
		RetrievalInfo: info,
	}, nil
}

// presignSources 只处理回答实际引用的资料
func (l *ChatLogic) presignSources(sources []types.Source) {
	fs := l.core.FileStorage()
	if fs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(l.ctx, 10*time.Second)
	defer cancel()
	for i := range sources {
		sources[i].Content = utils.ReplaceMinioURLs(sources[i].Content, func(object string) (string, error) {
			return fs.PresignGetObject(ctx, object)
		})
	}
}

// TrimHistory 保留最近 turns 条消息，再从最早的开始丢弃直到不超过 maxTokens
func TrimHistory(history []types.HistoryMessage, turns, maxTokens int, model string) []types.HistoryMessage {
	history = lo.Filter(history, func(m types.HistoryMessage, _ int) bool {
		return strings.TrimSpace(m.Content) != ""
	})
	if turns > 0 && len(history) > turns {
		history = history[len(history)-turns:]
	}
	if maxTokens <= 0 {
		return history
	}

	for len(history) > 0 {
		messages := lo.Map(history, func(m types.HistoryMessage, _ int) openai.ChatCompletionMessage {
			return openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
		})
		if ai.EstimateTokens(messages, model) <= maxTokens {
			break
		}
		history = history[1:]
	}
	return history
}

type promptSet struct {
	withSources string
	noSources   string
	sources     string
	history     string
	question    string
	sourceItem  string
	tail        string
	userLabel   string
	botLabel    string
}

var prompts = map[string]promptSet{
	ai.MODEL_BASE_LANGUAGE_CN: {
		withSources: ai.PROMPT_ANSWER_WITH_SOURCES_CN,
		noSources:   ai.PROMPT_ANSWER_NO_SOURCES_CN,
		sources:     ai.PROMPT_SECTION_SOURCES_CN,
		history:     ai.PROMPT_SECTION_HISTORY_CN,
		question:    ai.PROMPT_SECTION_QUESTION_CN,
		sourceItem:  ai.PROMPT_SOURCE_ITEM_CN,
		tail:        ai.PROMPT_ANSWER_TAIL_CN,
		userLabel:   ai.PROMPT_HISTORY_USER_CN,
		botLabel:    ai.PROMPT_HISTORY_ASSISTANT_CN,
	},
	ai.MODEL_BASE_LANGUAGE_EN: {
		withSources: ai.PROMPT_ANSWER_WITH_SOURCES_EN,
		noSources:   ai.PROMPT_ANSWER_NO_SOURCES_EN,
		sources:     ai.PROMPT_SECTION_SOURCES_EN,
		history:     ai.PROMPT_SECTION_HISTORY_EN,
		question:    ai.PROMPT_SECTION_QUESTION_EN,
		sourceItem:  ai.PROMPT_SOURCE_ITEM_EN,
		tail:        ai.PROMPT_ANSWER_TAIL_EN,
		userLabel:   ai.PROMPT_HISTORY_USER_EN,
		botLabel:    ai.PROMPT_HISTORY_ASSISTANT_EN,
	},
}

// BuildPrompts 返回 system 和 user 提示词，资料按 [资料i] 编号供模型引用
func BuildPrompts(lang, query string, history []types.HistoryMessage, sources []types.Source) (string, string) {
	p, ok := prompts[lang]
	if !ok {
		p = prompts[ai.MODEL_BASE_LANGUAGE_CN]
	}

	historyText := strings.Join(lo.Map(history, func(m types.HistoryMessage, _ int) string {
		role := lo.If(m.Role == types.HISTORY_ROLE_USER, p.userLabel).Else(p.botLabel)
		return role + ": " + m.Content
	}), "\n")

	var sb strings.Builder
	if len(sources) == 0 {
		if historyText != "" {
			sb.WriteString(p.history + "\n" + historyText + "\n\n")
		}
		sb.WriteString(p.question + "\n" + query)
		return p.noSources, sb.String()
	}

	blocks := lo.Map(sources, func(s types.Source, i int) string {
		return fmt.Sprintf(p.sourceItem, i+1, s.Name, s.Content)
	})
	sb.WriteString(p.sources + "\n" + strings.Join(blocks, ai.PROMPT_SOURCE_SEPARATOR) + "\n\n")
	if historyText != "" {
		sb.WriteString(p.history + "\n" + historyText + "\n\n")
	}
	sb.WriteString(p.question + "\n" + query + "\n\n" + p.tail)
	return p.withSources, sb.String()
}
