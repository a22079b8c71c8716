package types

// Intent 查询意图，决定使用哪个索引
type Intent string

const (
	INTENT_DETAIL Intent = "DETAIL"
	INTENT_GLOBAL Intent = "GLOBAL"
)

func (i Intent) Valid() bool {
	return i == INTENT_DETAIL || i == INTENT_GLOBAL
}

// IndexType 对外展示用的索引名
func (i Intent) IndexType() string {
	if i == INTENT_GLOBAL {
		return "summary"
	}
	return "detail"
}

type RetrievalParams struct {
	TopK          int     `json:"top_k"`
	VectorWeight  float64 `json:"vector_weight"`
	KeywordWeight float64 `json:"bm25_weight"`
	UseLargeChunk bool    `json:"use_large_chunk"`
}

// Candidate 单次查询的检索候选，不落库
type Candidate struct {
	ChunkID      string  `json:"chunk_id"`
	KnowledgeID  string  `json:"knowledge_id"`
	Name         string  `json:"name"`
	CourseName   string  `json:"course_name,omitempty"`
	Passage      string  `json:"passage"`
	SmallText    string  `json:"small_text,omitempty"`
	LargeText    string  `json:"-"`
	VectorScore  float64 `json:"vector_score"`
	KeywordScore float64 `json:"keyword_score"`
	Score        float64 `json:"score"`
	LowFidelity  bool    `json:"low_fidelity,omitempty"`
}

type RerankedCandidate struct {
	Candidate
	RerankScore float64 `json:"rerank_score"`
	IsRelevant  bool    `json:"is_relevant"`
}

// Source 返回给调用方的引用资料
type Source struct {
	KnowledgeID string  `json:"knowledge_id"`
	Name        string  `json:"name"`
	Content     string  `json:"content"`
	CourseName  string  `json:"course_name,omitempty"`
	Score       float64 `json:"score"`
}

// RetrievalInfo 检索过程的调试信息
type RetrievalInfo struct {
	QueryType       Intent          `json:"query_type"`
	IndexType       string          `json:"index_type"`
	RetrievalParams RetrievalParams `json:"retrieval_params"`
	Confidence      float64         `json:"confidence"`
	Reasoning       string          `json:"reasoning,omitempty"`
	RouterFallback  bool            `json:"router_fallback"`
	ResultsCount    int             `json:"results_count"`
	FilteredCount   int             `json:"filtered_count"`
	RerankedCount   int             `json:"reranked_count"`
	RerankFallback  bool            `json:"rerank_fallback"`
}

const (
	HISTORY_ROLE_USER      = "user"
	HISTORY_ROLE_ASSISTANT = "assistant"
)

type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type AskResult struct {
	Answer        string         `json:"message"`
	Sources       []Source       `json:"sources"`
	RetrievalInfo *RetrievalInfo `json:"retrieval_info"`
}
