package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/catalog-service/internal/app/catalog/entity"
	"storefront/catalog-service/internal/app/catalog/service"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const (
	serviceName = "catalog-service"

	// после стольких неудач подряд сообщение логируется как ошибка, но повторы продолжаются
	alertAfterAttempts = 3
	maxRetryDelay      = 30 * time.Second
)

var errMalformedEvent = errors.New("malformed review event")

// messageReader - часть kafka.Reader, нужная consumer'у
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Stats() kafka.ReaderStats
	Close() error
}

// KafkaConsumer читает review_events и пересчитывает рейтинг товара из события.
// Это повторный путь для пересчёта, который мог не пройти синхронно при записи отзыва.
type KafkaConsumer struct {
	reader     messageReader
	ratings    service.RatingServiceInterface
	topic      string
	groupID    string
	retryDelay time.Duration
	log        zerolog.Logger
	stopChan   chan struct{}
	doneChan   chan struct{}
}

func NewKafkaConsumer(
	brokers []string,
	topic string,
	groupID string,
	minBytes int,
	maxBytes int,
	ratings service.RatingServiceInterface,
) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       minBytes,
		MaxBytes:       maxBytes,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
		ReadBackoffMin: 100 * time.Millisecond,
		ReadBackoffMax: time.Second,
	})

	return newKafkaConsumer(reader, topic, groupID, ratings)
}

func newKafkaConsumer(reader messageReader, topic, groupID string, ratings service.RatingServiceInterface) *KafkaConsumer {
	return &KafkaConsumer{
		reader:     reader,
		ratings:    ratings,
		topic:      topic,
		groupID:    groupID,
		retryDelay: 200 * time.Millisecond,
		log:        logger.Component("review-events-consumer"),
		stopChan:   make(chan struct{}),
		doneChan:   make(chan struct{}),
	}
}

// Start запускает чтение в отдельной горутине
func (c *KafkaConsumer) Start(ctx context.Context) {
	c.log.Info().Str("topic", c.topic).Str("group", c.groupID).Msg("starting kafka consumer")
	go c.consume(ctx)
}

// Stop дожидается завершения текущего сообщения и закрывает reader
func (c *KafkaConsumer) Stop() {
	c.log.Info().Msg("stopping kafka consumer")
	close(c.stopChan)
	<-c.doneChan
	if err := c.reader.Close(); err != nil {
		c.log.Warn().Err(err).Msg("failed to close kafka reader")
	}
	c.log.Info().Msg("kafka consumer stopped")
}

func (c *KafkaConsumer) consume(ctx context.Context) {
	defer close(c.doneChan)

	for {
		select {
		case <-c.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		readCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		message, err := c.reader.FetchMessage(readCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			c.log.Error().Err(err).Msg("failed to fetch message")
			metrics.RecordKafkaError(serviceName, c.topic, "consume")
			if !c.sleep(ctx, time.Second) {
				return
			}
			continue
		}

		c.handle(ctx, message)
	}
}

// handle обрабатывает сообщение и коммитит его offset. Коммит более позднего
// offset'а в группе помечает прочитанными и все предыдущие, поэтому мимо
// необработанного сообщения consumer не проходит: повторяет его с растущей
// (до maxRetryDelay) паузой, пока не получится или consumer не остановят.
// Незакоммиченное сообщение после рестарта будет прочитано снова.
// Битое сообщение повторять бессмысленно, оно коммитится сразу.
func (c *KafkaConsumer) handle(ctx context.Context, message kafka.Message) {
	start := time.Now()

	for attempt := 1; ; attempt++ {
		err := c.processMessage(ctx, message)
		if err == nil {
			metrics.RecordKafkaMessageConsumed(serviceName, c.topic, c.groupID, time.Since(start))
			break
		}
		if errors.Is(err, errMalformedEvent) {
			c.log.Error().Err(err).Int64("offset", message.Offset).Int("partition", message.Partition).Msg("skipping malformed message")
			metrics.RecordKafkaError(serviceName, c.topic, "consume")
			break
		}

		metrics.RecordKafkaError(serviceName, c.topic, "consume")
		event := c.log.Warn()
		if attempt >= alertAfterAttempts {
			event = c.log.Error()
		}
		event.Err(err).Int("attempt", attempt).Int64("offset", message.Offset).Msg("review event processing failed, retrying")

		if !c.sleep(ctx, c.backoff(attempt)) {
			c.log.Warn().Int64("offset", message.Offset).Msg("consumer stopped, message left uncommitted")
			return
		}
	}

	if err := c.reader.CommitMessages(ctx, message); err != nil {
		c.log.Error().Err(err).Int64("offset", message.Offset).Msg("failed to commit message")
		metrics.RecordKafkaError(serviceName, c.topic, "commit")
	}
}

// backoff - линейный рост паузы с потолком maxRetryDelay
func (c *KafkaConsumer) backoff(attempt int) time.Duration {
	d := time.Duration(attempt) * c.retryDelay
	if d > maxRetryDelay || d <= 0 {
		return maxRetryDelay
	}
	return d
}

func (c *KafkaConsumer) processMessage(ctx context.Context, message kafka.Message) error {
	var event entity.ReviewEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return fmt.Errorf("%w: %v", errMalformedEvent, err)
	}

	c.log.Debug().
		Str("event_type", event.EventType).
		Str("review_id", event.ReviewID.String()).
		Str("product_id", event.ProductID.String()).
		Int64("offset", message.Offset).
		Int("partition", message.Partition).
		Msg("received review event")

	if err := c.ratings.RecomputeProductStats(ctx, event.ProductID); err != nil {
		// товар удалён вместе с отзывами, пересчитывать нечего
		if errors.Is(err, service.ErrProductNotFound) {
			return nil
		}
		return fmt.Errorf("failed to recompute product rating: %w", err)
	}

	return nil
}

// sleep возвращает false, если consumer останавливают во время ожидания
func (c *KafkaConsumer) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-c.stopChan:
		return false
	case <-ctx.Done():
		return false
	}
}

func (c *KafkaConsumer) GetStats() kafka.ReaderStats {
	return c.reader.Stats()
}
