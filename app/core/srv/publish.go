package srv

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/redis/go-redis/v9"

	"github.com/quka-ai/airag/pkg/safe"
)

const (
	// TOPIC_KEYWORD_REBUILD 任一实例写入或删除资料后广播，其他实例收到后重建关键词索引
	TOPIC_KEYWORD_REBUILD = "airag:keyword:rebuild"
)

type PublishData struct {
	Subject string `json:"subject"`
	Version string `json:"version"`
	Origin  string `json:"origin"`
	Data    any    `json:"data,omitempty"`
}

type EventHandler func(ctx context.Context, data PublishData)

// Tower 基于 redis pub/sub 的实例间广播，未配置 redis 时只有单实例，发布为空操作
type Tower struct {
	redis      redis.UniversalClient
	instanceID string
	handlers   cmap.ConcurrentMap[string, EventHandler]
}

func SetupTower(cli redis.UniversalClient) *Tower {
	return &Tower{
		redis:      cli,
		instanceID: uuid.NewString(),
		handlers:   cmap.New[EventHandler](),
	}
}

func ApplyTower(cli redis.UniversalClient) ApplyFunc {
	return func(s *Srv) {
		s.tower = SetupTower(cli)
	}
}

func (t *Tower) InstanceID() string {
	return t.instanceID
}

// Register 每个 topic 只保留一个 handler
func (t *Tower) Register(topic string, handler EventHandler) (removeFunc func()) {
	t.handlers.Set(topic, handler)
	return func() {
		t.handlers.Remove(topic)
	}
}

func (t *Tower) Publish(ctx context.Context, topic, subject string, data any) error {
	if t.redis == nil {
		return nil
	}
	raw, err := json.Marshal(PublishData{
		Subject: subject,
		Version: "v1",
		Origin:  t.instanceID,
		Data:    data,
	})
	if err != nil {
		return err
	}
	return t.redis.Publish(ctx, topic, raw).Err()
}

// Serve 订阅已注册的 topic，阻塞直到 ctx 结束
func (t *Tower) Serve(ctx context.Context) error {
	if t.redis == nil || t.handlers.Count() == 0 {
		<-ctx.Done()
		return nil
	}

	sub := t.redis.Subscribe(ctx, t.handlers.Keys()...)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			t.dispatch(ctx, msg.Channel, msg.Payload)
		}
	}
}

// dispatch 忽略本实例发出的消息
func (t *Tower) dispatch(ctx context.Context, topic, payload string) bool {
	var data PublishData
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		slog.Warn("failed to decode broadcast message", slog.String("topic", topic), slog.String("error", err.Error()))
		return false
	}
	if data.Origin == t.instanceID {
		return false
	}

	handler, exist := t.handlers.Get(topic)
	if !exist {
		slog.Warn("got unknown broadcast topic", slog.String("topic", topic))
		return false
	}

	slog.Debug("new signal", slog.String("topic", topic), slog.String("subject", data.Subject))
	safe.RunWithLog(func() {
		handler(ctx, data)
	}, "tower."+topic)
	return true
}
