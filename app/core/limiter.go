package core

import (
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"golang.org/x/time/rate"
)

const DEFAULT_LIMIT_PER_MINUTE = 60

type LimitConfig struct {
	Limit int
	Every time.Duration
}

type LimitOption func(l *LimitConfig)

func WithLimit(limit int) LimitOption {
	return func(l *LimitConfig) {
		l.Limit = limit
	}
}

func WithRange(r time.Duration) LimitOption {
	return func(l *LimitConfig) {
		l.Every = r
	}
}

type Limiter interface {
	Allow() bool
}

// Limiters 进程内按 key 限流，key 通常为 method + 用户
type Limiters struct {
	limiters cmap.ConcurrentMap[string, *rate.Limiter]
}

func NewLimiters() *Limiters {
	return &Limiters{
		limiters: cmap.New[*rate.Limiter](),
	}
}

// Use 默认每分钟 60 次，允许两倍突发
func (l *Limiters) Use(key, method string, opts ...LimitOption) Limiter {
	cfg := &LimitConfig{
		Limit: DEFAULT_LIMIT_PER_MINUTE,
		Every: time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DEFAULT_LIMIT_PER_MINUTE
	}

	return l.limiters.Upsert(method+":"+key, nil, func(exist bool, valueInMap, _ *rate.Limiter) *rate.Limiter {
		if exist {
			return valueInMap
		}
		return rate.NewLimiter(rate.Every(cfg.Every/time.Duration(cfg.Limit)), cfg.Limit*2)
	})
}
