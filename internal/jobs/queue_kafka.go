package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Topic is the Kafka topic carrying enrollment notification jobs.
const Topic = "enrollment.jobs"

// KafkaQueue publishes jobs to Kafka for out-of-process consumers. Records are
// keyed by enrollment id so per-enrollment ordering holds within a partition.
type KafkaQueue struct {
	client *kgo.Client
}

// NewKafkaQueue connects to the brokers and makes sure the topic exists.
func NewKafkaQueue(ctx context.Context, brokers []string) (*KafkaQueue, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(Topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	topics, err := admin.ListTopics(ctx, Topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("list kafka topics: %w", err)
	}
	if !topics.Has(Topic) {
		if _, err := admin.CreateTopic(ctx, 3, 1, nil, Topic); err != nil {
			client.Close()
			return nil, fmt.Errorf("create kafka topic %s: %w", Topic, err)
		}
	}

	return &KafkaQueue{client: client}, nil
}

func (q *KafkaQueue) Enqueue(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	record := &kgo.Record{
		Key:   []byte(job.EnrollmentID.String()),
		Value: payload,
	}
	if err := q.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce job: %w", err)
	}
	return nil
}

func (q *KafkaQueue) Close() {
	q.client.Close()
}
