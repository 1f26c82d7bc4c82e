package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spacebook_booking_mutations_total",
			Help: "Total number of committed booking mutations",
		},
		[]string{"op"},
	)

	BookingConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spacebook_booking_conflicts_total",
			Help: "Total number of writes rejected because the space was already booked",
		},
		[]string{"op"},
	)

	OutboxPublishedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spacebook_outbox_published_total",
			Help: "Total number of outbox events delivered to Kafka",
		},
	)
)

// Recorder feeds booking outcomes into the package counters.
type Recorder struct{}

func (Recorder) Mutation(op string) {
	BookingMutationsTotal.WithLabelValues(op).Inc()
}

func (Recorder) ConflictRejected(op string) {
	BookingConflictsTotal.WithLabelValues(op).Inc()
}
