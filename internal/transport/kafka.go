// Package transport delivers externally validated quotes into the pipeline.
package transport

import (
	"context"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"

	"github.com/amirphl/candle-writer/internal/logging"
	"github.com/amirphl/candle-writer/internal/quote"
)

// QuoteSink is the pipeline's single entry point for delivered quotes.
type QuoteSink interface {
	Submit(q *quote.Quote)
}

// KafkaConfig configures the quote subscriber.
type KafkaConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
}

// QuoteConsumer subscribes to the quote topic and submits every delivered
// message to the scheduler.
type QuoteConsumer struct {
	reader *kafka.Reader
	sink   QuoteSink
	log    *logging.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewQuoteConsumer(cfg KafkaConfig, sink QuoteSink, log *logging.Logger) *QuoteConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})
	return &QuoteConsumer{
		reader: reader,
		sink:   sink,
		log:    log,
	}
}

func (c *QuoteConsumer) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true
	c.log.Info("QuoteConsumer", "starting quote consumer")

	go c.run(ctx)
}

func (c *QuoteConsumer) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil
	}
	c.running = false
	c.cancel()
	<-c.done
	c.log.Info("QuoteConsumer", "quote consumer stopped")
	return c.reader.Close()
}

func (c *QuoteConsumer) run(ctx context.Context) {
	defer close(c.done)

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Error("QuoteConsumer", "failed to read message: %v", err)
			continue
		}

		c.handle(msg)
	}
}

func (c *QuoteConsumer) handle(msg kafka.Message) {
	if len(msg.Value) == 0 {
		c.log.Warning("QuoteConsumer", "received empty quote payload")
		return
	}

	var q quote.Quote
	if err := sonic.Unmarshal(msg.Value, &q); err != nil {
		c.log.Error("QuoteConsumer", "failed to decode quote payload: %v", err)
		return
	}

	// Timestamps arrive with an offset marker; the pipeline requires the
	// explicit UTC marker.
	q.Timestamp = q.Timestamp.UTC()
	c.sink.Submit(&q)
}
