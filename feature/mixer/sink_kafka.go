package mixer

import (
	"context"
	"encoding/json"

	"mixer-report/core/errors"
	"mixer-report/core/utils"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of kafka.Writer used by KafkaSink.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes one JSON message per delivered row, keyed by its timestamp.
type KafkaSink struct {
	writer MessageWriter
	topic  string
}

// NewKafkaWriter creates a writer for topic on brokers.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireAll,
		Balancer:     &kafka.LeastBytes{},
	}
}

// NewKafkaSink creates a sink over writer.
func NewKafkaSink(writer MessageWriter, topic string) *KafkaSink {
	return &KafkaSink{writer: writer, topic: topic}
}

func (s *KafkaSink) Name() string {
	return "kafka:" + s.topic
}

func (s *KafkaSink) Write(ctx context.Context, d Delivery) error {
	if len(d.Records) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(d.Records))
	for _, r := range d.Records {
		payload := make(map[string]string, len(d.Columns))
		for _, c := range d.Columns {
			if v := r.Values[c]; v != nil {
				payload[c] = utils.ToString(v)
			}
		}
		value, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "encode kafka message")
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(utils.FormatTimestamp(r.Timestamp)),
			Value: value,
			Time:  r.Timestamp,
		})
	}

	if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
		return errors.Mark(errors.Wrapf(err, "publish %d messages to %s", len(msgs), s.topic), errors.ErrSinkWrite)
	}
	return nil
}

// Close closes the underlying writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
