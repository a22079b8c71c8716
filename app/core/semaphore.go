package core

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	SEMAPHORE_KEY_INDEX_WRITE = "airag:semaphore:index_write"
	SEMAPHORE_KEY_INGEST      = "airag:semaphore:ingest"

	DEFAULT_INGEST_MAX_CONCURRENCY = 4

	semaphorePollInterval = 100 * time.Millisecond
)

// Semaphore 许可数有限的信号量，maxPermits 为 1 时即互斥锁
type Semaphore interface {
	TryAcquire(ctx context.Context) bool
	Acquire(ctx context.Context) error
	Release()
}

// DistributedSemaphore 分布式信号量，基于 Redis 实现
type DistributedSemaphore struct {
	redis      redis.UniversalClient
	key        string
	maxPermits int
	timeout    time.Duration
}

// NewDistributedSemaphore 创建分布式信号量，timeout 为持有者异常退出后许可自动回收的时间
func NewDistributedSemaphore(redis redis.UniversalClient, key string, maxPermits int, timeout time.Duration) *DistributedSemaphore {
	return &DistributedSemaphore{
		redis:      redis,
		key:        key,
		maxPermits: maxPermits,
		timeout:    timeout,
	}
}

var acquireScript = redis.NewScript(`
	local key = KEYS[1]
	local max_permits = tonumber(ARGV[1])
	local timeout = tonumber(ARGV[2])

	local current = tonumber(redis.call('GET', key) or '0')

	if current < max_permits then
		redis.call('INCR', key)
		redis.call('EXPIRE', key, timeout)
		return 1
	else
		return 0
	end
`)

// 避免减到负数
var releaseScript = redis.NewScript(`
	local key = KEYS[1]
	local current = tonumber(redis.call('GET', key) or '0')

	if current > 0 then
		redis.call('DECR', key)
		return 1
	else
		return 0
	end
`)

// TryAcquire 尝试获取信号量许可
func (s *DistributedSemaphore) TryAcquire(ctx context.Context) bool {
	result, err := acquireScript.Run(ctx, s.redis, []string{s.key}, s.maxPermits, int(s.timeout.Seconds())).Int()
	if err != nil {
		return false
	}
	return result == 1
}

// Acquire 轮询直到拿到许可或 ctx 结束
func (s *DistributedSemaphore) Acquire(ctx context.Context) error {
	ticker := time.NewTicker(semaphorePollInterval)
	defer ticker.Stop()
	for {
		if s.TryAcquire(ctx) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Release 释放信号量许可
func (s *DistributedSemaphore) Release() {
	releaseScript.Run(context.Background(), s.redis, []string{s.key})
}

// GetCurrent 获取当前已使用的许可数
func (s *DistributedSemaphore) GetCurrent(ctx context.Context) int {
	result, err := s.redis.Get(ctx, s.key).Int()
	if err != nil {
		return 0
	}
	return result
}

// LocalSemaphore 未配置 redis 时的进程内实现
type LocalSemaphore struct {
	ch chan struct{}
}

func NewLocalSemaphore(maxPermits int) *LocalSemaphore {
	if maxPermits <= 0 {
		maxPermits = 1
	}
	return &LocalSemaphore{ch: make(chan struct{}, maxPermits)}
}

func (s *LocalSemaphore) TryAcquire(ctx context.Context) bool {
	select {
	case s.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *LocalSemaphore) Acquire(ctx context.Context) error {
	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *LocalSemaphore) Release() {
	select {
	case <-s.ch:
	default:
	}
}

// SemaphoreManager 信号量管理器，统一管理所有信号量
type SemaphoreManager struct {
	redis  redis.UniversalClient
	prefix string
	cfg    SemaphoreConfig

	indexWrite     Semaphore
	indexWriteOnce sync.Once
	ingest         Semaphore
	ingestOnce     sync.Once
}

func NewSemaphoreManager(cli redis.UniversalClient, prefix string, cfg SemaphoreConfig) *SemaphoreManager {
	return &SemaphoreManager{
		redis:  cli,
		prefix: prefix,
		cfg:    cfg,
	}
}

func (m *SemaphoreManager) newSemaphore(key string, maxPermits int, timeout time.Duration) Semaphore {
	if m.redis == nil {
		return NewLocalSemaphore(maxPermits)
	}
	return NewDistributedSemaphore(m.redis, m.prefix+key, maxPermits, timeout)
}

// IndexWrite 索引写锁，多实例共享同一个 postgres 时串行化写入
func (m *SemaphoreManager) IndexWrite() Semaphore {
	m.indexWriteOnce.Do(func() {
		m.indexWrite = m.newSemaphore(SEMAPHORE_KEY_INDEX_WRITE, 1, time.Minute*5)
	})
	return m.indexWrite
}

// Ingest 同时进行的入库任务数，入库需要大量 embedding 和 llm 调用
func (m *SemaphoreManager) Ingest() Semaphore {
	m.ingestOnce.Do(func() {
		maxConcurrency := DEFAULT_INGEST_MAX_CONCURRENCY
		if m.cfg.Knowledge.IngestMaxConcurrency > 0 {
			maxConcurrency = m.cfg.Knowledge.IngestMaxConcurrency
		}
		m.ingest = m.newSemaphore(SEMAPHORE_KEY_INGEST, maxConcurrency, time.Minute*10)
	})
	return m.ingest
}
