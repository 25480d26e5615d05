package util

import (
	"context"
	"time"
)

// ListCache - кеш готовых ответов "список всех X".
// Get возвращает nil, nil при промахе.
type ListCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// MessagePublisher интерфейс для отправки сообщений в Kafka
type MessagePublisher interface {
	PublishMessage(ctx context.Context, key string, value []byte) error
	Close() error
}
