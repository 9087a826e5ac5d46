package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const topicReadyTimeout = 10 * time.Second

// Topic describes a topic the engine needs.
type Topic struct {
	Name              string
	Partitions        int
	ReplicationFactor int
}

// DefaultTopics returns the event and confirmation topics with the layout
// used when the engine creates them itself.
func DefaultTopics(events, confirmations string) []Topic {
	return []Topic{
		{Name: events, Partitions: 3, ReplicationFactor: 1},
		{Name: confirmations, Partitions: 3, ReplicationFactor: 1},
	}
}

func (s Topic) validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("empty topic")
	}
	if s.Partitions < 1 || s.ReplicationFactor < 1 {
		return fmt.Errorf("topic %s: partitions and replication must be positive", s.Name)
	}
	return nil
}

// EnsureTopics creates the missing topics in one request to the controller
// and waits until their partitions show up in the metadata.
func EnsureTopics(ctx context.Context, brokers []string, topics []Topic, log *zap.Logger) error {
	if len(brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}
	for _, s := range topics {
		if err := s.validate(); err != nil {
			return err
		}
	}

	dialer := &kafkago.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	var missing []kafkago.TopicConfig
	for _, s := range topics {
		if parts, err := conn.ReadPartitions(s.Name); err == nil && len(parts) > 0 {
			log.Debug("Kafka topic exists", zap.String("topic", s.Name), zap.Int("partitions", len(parts)))
			continue
		}
		missing = append(missing, kafkago.TopicConfig{
			Topic:             s.Name,
			NumPartitions:     s.Partitions,
			ReplicationFactor: s.ReplicationFactor,
		})
	}
	if len(missing) == 0 {
		return nil
	}

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("get controller: %w", err)
	}
	ctrlAddr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	ctrlConn, err := dialer.DialContext(ctx, "tcp", ctrlAddr)
	if err != nil {
		return fmt.Errorf("dial controller %s: %w", ctrlAddr, err)
	}
	defer ctrlConn.Close()

	log.Info("Creating kafka topics", zap.Int("count", len(missing)))
	if err := ctrlConn.CreateTopics(missing...); err != nil && !errors.Is(err, kafkago.TopicAlreadyExists) {
		return fmt.Errorf("create topics: %w", err)
	}

	for _, tc := range missing {
		if err := waitForTopic(ctx, conn, tc.Topic, tc.NumPartitions); err != nil {
			return err
		}
		log.Info("Kafka topic is ready", zap.String("topic", tc.Topic))
	}
	return nil
}

func waitForTopic(ctx context.Context, conn *kafkago.Conn, topic string, partitions int) error {
	deadline := time.Now().Add(topicReadyTimeout)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if parts, err := conn.ReadPartitions(topic); err == nil && len(parts) >= partitions {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("topic %s not visible after creation", topic)
		}
		sleepWithContext(ctx, 500*time.Millisecond)
	}
}
