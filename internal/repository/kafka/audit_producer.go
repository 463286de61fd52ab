package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/mkshuvo/e-commerce-store-sub001/internal/domain/audit"
)

type Config struct {
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AuditProducer appends audit records to a kafka topic, the append-only log
// collaborator of the session core. Records are keyed by actor so one
// principal's trail stays ordered within a partition.
type AuditProducer struct {
	w     *kafka.Writer
	topic string
	log   *zap.Logger
}

var _ audit.Sink = (*AuditProducer)(nil)

func NewAuditProducer(cfg Config, log *zap.Logger) *AuditProducer {
	if log == nil {
		log = zap.NewNop()
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 3 * time.Second
	}
	return &AuditProducer{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			WriteTimeout:           writeTimeout,
			AllowAutoTopicCreation: true,
		},
		topic: cfg.Topic,
		log:   log.With(zap.String("component", "kafka.audit"), zap.String("topic", cfg.Topic)),
	}
}

func (p *AuditProducer) Record(ctx context.Context, rec audit.Record) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	key := []byte(rec.ActorID)
	if len(key) == 0 {
		key = []byte(rec.Kind)
	}
	if err := p.w.WriteMessages(ctx, kafka.Message{Key: key, Value: value}); err != nil {
		p.log.Error("kafka write failed", zap.Error(err))
		return err
	}
	p.log.Debug("audit record appended",
		zap.String("kind", string(rec.Kind)),
		zap.String("outcome", string(rec.Outcome)),
	)
	return nil
}

func (p *AuditProducer) Close() error { return p.w.Close() }
