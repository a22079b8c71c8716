package core

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/quka-ai/airag/app/core/srv"
	"github.com/quka-ai/airag/app/store"
	"github.com/quka-ai/airag/app/store/memstore"
	"github.com/quka-ai/airag/app/store/sqlstore"
	"github.com/quka-ai/airag/pkg/object-storage/s3"
	"github.com/quka-ai/airag/pkg/rag/chunker"
	"github.com/quka-ai/airag/pkg/rag/indexer"
	"github.com/quka-ai/airag/pkg/rag/keyword"
	"github.com/quka-ai/airag/pkg/rag/rerank"
	"github.com/quka-ai/airag/pkg/rag/retriever"
	"github.com/quka-ai/airag/pkg/rag/router"
	"github.com/quka-ai/airag/pkg/rag/summarizer"
	"github.com/quka-ai/airag/pkg/safe"
	"github.com/quka-ai/airag/pkg/utils"
)

const VERSION = "1.0.0"

type Core struct {
	cfg CoreConfig
	srv *srv.Srv

	stores      store.Provider
	redis       redis.UniversalClient
	fileStorage *s3.S3
	httpEngine  *gin.Engine

	metrics    *Metrics
	semaphores *SemaphoreManager
	limiters   *Limiters
	rag        *RAG
}

// RAG 检索链路的各个组件
type RAG struct {
	Keywords   *keyword.Holder
	Chunker    *chunker.Chunker
	Summarizer *summarizer.Summarizer
	Indexer    *indexer.Indexer
	Router     *router.Router
	Retriever  *retriever.Retriever
	Reranker   *rerank.Reranker
}

func setupLogger(cfg Log) {
	var writer io.Writer = os.Stdout
	if cfg.Path != "" {
		writer = &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    500, // megabytes
			MaxBackups: 3,
			MaxAge:     28,   //days
			Compress:   true, // disabled by default
		}
	}
	l := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(l)
}

func MustSetupCore(cfg CoreConfig) *Core {
	setupLogger(cfg.Log)
	utils.SetupIDWorker(1)

	aiCfg := cfg.AI
	aiCfg.ChatTimeout = cfg.RAG.LLMTimeout
	aiCfg.EmbeddingTimeout = cfg.RAG.EmbeddingTimeout
	if aiCfg.Jina.Timeout == 0 {
		aiCfg.Jina.Timeout = cfg.RAG.RerankTimeout
	}
	a, err := srv.SetupAI(context.Background(), aiCfg)
	if err != nil {
		panic(err)
	}

	var cli redis.UniversalClient
	if cfg.Redis.Enabled() {
		cli = setupRedis(cfg.Redis)
	}

	core := NewCore(cfg, mustSetupStore(cfg), a, cli)

	if cfg.ObjectStorage.Driver == "s3" && cfg.ObjectStorage.S3 != nil {
		s3cfg := cfg.ObjectStorage.S3
		core.fileStorage, err = s3.NewS3Client(s3cfg.Endpoint, s3cfg.Region, s3cfg.Bucket, s3cfg.AccessKey, s3cfg.SecretKey,
			s3.WithPathStyle(s3cfg.UsePathStyle),
			s3.WithPresignExpire(s3cfg.PresignExpire))
		if err != nil {
			panic(err)
		}
	}
	return core
}

// NewCore 使用已经初始化好的存储和模型能力组装 Core
func NewCore(cfg CoreConfig, stores store.Provider, a *srv.AI, cli redis.UniversalClient) *Core {
	cfg.RAG = cfg.RAG.WithDefault()
	core := &Core{
		cfg:        cfg,
		stores:     stores,
		redis:      cli,
		httpEngine: gin.New(),
		metrics:    NewMetrics("airag", "rag", prometheus.DefaultRegisterer.(*prometheus.Registry)),
		semaphores: NewSemaphoreManager(cli, cfg.Redis.KeyPrefix, cfg.Semaphore),
		limiters:   NewLimiters(),
	}

	core.srv = srv.SetupSrvs(
		srv.ApplyAI(a),      // ai provider select
		srv.ApplyTower(cli), // 实例间广播
	)
	core.rag = setupRAG(core)
	return core
}

func setupRAG(core *Core) *RAG {
	var (
		cfg      = core.cfg.RAG
		a        = core.srv.AI()
		observer = core.metrics
		detail   = core.stores.DetailIndexStore()
		summary  = core.stores.SummaryIndexStore()
	)

	r := &RAG{
		Keywords: keyword.NewHolder(),
		Chunker: chunker.New(chunker.Options{
			LargeChunkSize: cfg.LargeChunkSize,
			SmallChunkSize: cfg.SmallChunkSize,
			Overlap:        cfg.Overlap,
		}),
	}
	r.Summarizer = summarizer.New(a, summarizer.Options{
		ChunkSize:     cfg.SummaryChunkSize,
		FallbackChars: cfg.SummaryFallbackChars,
		Timeout:       cfg.LLMTimeout,
	}, observer)

	r.Indexer = indexer.New(r.Chunker, r.Summarizer, a, detail, summary, r.Keywords, observer)
	if core.redis != nil {
		// 多实例共用同一份索引时串行化写入
		r.Indexer.WithLocker(core.semaphores.IndexWrite())
	}

	tower := core.srv.Tower()
	r.Indexer.OnMutation(func(ctx context.Context, knowledgeID string) {
		if err := tower.Publish(ctx, srv.TOPIC_KEYWORD_REBUILD, knowledgeID, nil); err != nil {
			slog.Error("failed to publish keyword rebuild", slog.String("knowledge_id", knowledgeID), slog.String("error", err.Error()))
		}
	})
	tower.Register(srv.TOPIC_KEYWORD_REBUILD, func(ctx context.Context, data srv.PublishData) {
		if err := r.Indexer.Rebuild(ctx); err != nil {
			slog.Error("failed to rebuild keyword index on broadcast", slog.String("knowledge_id", data.Subject), slog.String("error", err.Error()))
		}
	})

	r.Router = router.New(a, cfg.RouterTimeout, observer)
	r.Retriever = retriever.New(a, detail, summary, r.Keywords, observer)
	r.Reranker = rerank.New(a.Reranker(), rerank.Options{
		MaxChars: cfg.RerankMaxChars,
		Timeout:  cfg.RerankTimeout,
	}, observer)
	return r
}

// Bootstrap 启动时从原文索引重建关键词索引并订阅其他实例的变更
func (s *Core) Bootstrap(ctx context.Context) error {
	if err := s.rag.Indexer.Rebuild(ctx); err != nil {
		return err
	}
	slog.Info("keyword index ready", slog.Bool("enabled", s.rag.Keywords.Enabled()))

	safe.Go("core.tower", func() {
		if err := s.srv.Tower().Serve(ctx); err != nil {
			slog.Error("broadcast subscriber stopped", slog.String("error", err.Error()))
		}
	})
	return nil
}

func mustSetupStore(cfg CoreConfig) store.Provider {
	if cfg.RAG.VectorStore == VECTOR_STORE_MEMORY {
		slog.Warn("using in-memory vector store, data will be lost on restart")
		return memstore.New()
	}

	provider := sqlstore.MustSetup(cfg.Postgres)()
	// 执行数据库表初始化
	if err := provider.Install(); err != nil {
		panic(err)
	}
	slog.Info("setupSqlStore done")
	return provider
}

func setupRedis(cfg RedisConfig) redis.UniversalClient {
	if cfg.Cluster {
		return redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    cfg.ClusterAddrs,
			Password: cfg.Password,
		})
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func (s *Core) Cfg() CoreConfig {
	return s.cfg
}

func (s *Core) HttpEngine() *gin.Engine {
	return s.httpEngine
}

func (s *Core) Metrics() *Metrics {
	return s.metrics
}

func (s *Core) Store() store.Provider {
	return s.stores
}

func (s *Core) Srv() *srv.Srv {
	return s.srv
}

func (s *Core) Redis() redis.UniversalClient {
	return s.redis
}

// FileStorage 未配置对象存储时为 nil
func (s *Core) FileStorage() *s3.S3 {
	return s.fileStorage
}

func (s *Core) Semaphore() *SemaphoreManager {
	return s.semaphores
}

func (s *Core) UseLimiter(key, method string, opts ...LimitOption) Limiter {
	return s.limiters.Use(key, method, opts...)
}

func (s *Core) RAG() *RAG {
	return s.rag
}

// GetAIStatus 获取AI系统状态
func (s *Core) GetAIStatus() map[string]interface{} {
	return s.srv.GetAIStatus()
}
