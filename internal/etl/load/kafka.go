package load

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/NHSDigital/connecting-party-manager-sub002/internal/domain"
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/platform/config"
)

// KafkaSource consumes event envelopes from a topic and replays them. Offsets
// are committed only after the events they cover are stored, so a crash
// replays from the last commit and the loader skips what already landed.
type KafkaSource struct {
	client *kgo.Client
	admin  *kadm.Client
	cfg    config.KafkaConfig
	logger *slog.Logger
}

type KafkaOption func(*KafkaSource)

func WithKafkaLogger(logger *slog.Logger) KafkaOption {
	return func(k *KafkaSource) {
		k.logger = logger
	}
}

func NewKafkaSource(cfg config.KafkaConfig, opts ...KafkaOption) (*KafkaSource, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if cfg.Topic == "" || cfg.Group == "" {
		return nil, fmt.Errorf("kafka topic and group are required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		kgo.DisableAutoCommit(),
		kgo.DefaultProduceTopic(cfg.Topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	k := &KafkaSource{
		client: client,
		admin:  kadm.NewClient(client),
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k, nil
}

// EnsureTopic creates the topic when it does not exist yet.
func (k *KafkaSource) EnsureTopic(ctx context.Context) error {
	partitions := k.cfg.Partitions
	if partitions <= 0 {
		partitions = 1
	}
	replication := k.cfg.ReplicationFactor
	if replication <= 0 {
		replication = 1
	}
	resp, err := k.admin.CreateTopic(ctx, partitions, replication, nil, k.cfg.Topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", k.cfg.Topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", k.cfg.Topic, resp.Err)
	}
	return nil
}

// Publish appends events under one partition key. Events of one aggregate must
// share a key so they stay in order.
func (k *KafkaSource) Publish(ctx context.Context, key string, events ...domain.Event) error {
	records := make([]*kgo.Record, 0, len(events))
	for _, e := range events {
		env, err := NewEnvelope(e)
		if err != nil {
			return err
		}
		value, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("encode envelope: %w", err)
		}
		records = append(records, &kgo.Record{Key: []byte(key), Value: value})
	}
	if err := k.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("publish events: %w", err)
	}
	return nil
}

// Consume polls until ctx is done, replaying every fetch through loader and
// committing its offsets afterwards. A record that cannot be decoded or
// replayed stops the consumer without committing.
func (k *KafkaSource) Consume(ctx context.Context, loader *Loader) error {
	for {
		fetches := k.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return ctx.Err()
		}
		for _, fe := range fetches.Errors() {
			if errors.Is(fe.Err, context.Canceled) {
				return ctx.Err()
			}
			return fmt.Errorf("fetch %s[%d]: %w", fe.Topic, fe.Partition, fe.Err)
		}

		var (
			events  []domain.Event
			records []*kgo.Record
			decErr  error
		)
		fetches.EachRecord(func(r *kgo.Record) {
			if decErr != nil {
				return
			}
			e, err := decodeRecord(r)
			if err != nil {
				decErr = err
				return
			}
			events = append(events, e)
			records = append(records, r)
		})
		if decErr != nil {
			return decErr
		}
		if len(records) == 0 {
			continue
		}

		result, err := loader.Replay(ctx, events)
		if err != nil {
			return err
		}
		if err := k.client.CommitRecords(ctx, records...); err != nil {
			return fmt.Errorf("commit offsets: %w", err)
		}
		k.logger.InfoContext(ctx, "events replayed",
			"topic", k.cfg.Topic,
			"records", len(records),
			"written", result.Written,
			"skipped", result.Skipped,
		)
	}
}

func (k *KafkaSource) Close() {
	k.client.Close()
}

func decodeRecord(r *kgo.Record) (domain.Event, error) {
	var env Envelope
	if err := json.Unmarshal(r.Value, &env); err != nil {
		return nil, fmt.Errorf("decode record %s[%d]@%d: %w", r.Topic, r.Partition, r.Offset, err)
	}
	e, err := env.Decode()
	if err != nil {
		return nil, fmt.Errorf("decode record %s[%d]@%d: %w", r.Topic, r.Partition, r.Offset, err)
	}
	return e, nil
}
