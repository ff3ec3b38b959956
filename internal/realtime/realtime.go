// Package realtime 通过 redis pub/sub 与 websocket 向在线用户推送通知
package realtime

import (
	"context"
	"encoding/json"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/model"
	"github.com/redis/go-redis/v9"
)

const channelPrefix = "titaflow:notifications:"

// Channel 用户的推送频道
func Channel(userId string) string {
	return channelPrefix + userId
}

// Publisher 将通知发布到用户频道
type Publisher struct {
	rdb *redis.Client
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

func (p *Publisher) Publish(ctx context.Context, userId string, n model.NotificationModel) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, Channel(userId), payload).Err()
}

// Subscriber 订阅用户频道
type Subscriber struct {
	rdb *redis.Client
}

func NewSubscriber(rdb *redis.Client) *Subscriber {
	return &Subscriber{rdb: rdb}
}

// Subscribe 返回消息通道与关闭函数，ctx 结束时通道关闭
func (s *Subscriber) Subscribe(ctx context.Context, userId string) (<-chan []byte, func() error, error) {
	sub := s.rdb.Subscribe(ctx, Channel(userId))
	// 等待订阅确认
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, sub.Close, nil
}
