package kafkax

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// NewWriter builds a writer that routes by message key, so events for one booking stay ordered.
// Topic is set per message.
func NewWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
}
