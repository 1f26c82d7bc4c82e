package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/availability"
)

// Recorder receives business outcomes for metrics.
type Recorder interface {
	Mutation(op string)
	ConflictRejected(op string)
}

type nopRecorder struct{}

func (nopRecorder) Mutation(string)         {}
func (nopRecorder) ConflictRejected(string) {}

// Manager is the only mutation path for bookings. Every time-affecting write runs its conflict
// check and the write itself inside one store transaction holding the affected space locks.
type Manager struct {
	store         Store
	window        availability.Window
	defaultSpaces []string
	validate      *validator.Validate
	logger        *slog.Logger
	metrics       Recorder
	tracer        trace.Tracer
	now           func() time.Time
	newID         func() string
}

type Option func(*Manager)

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		if r != nil {
			m.metrics = r
		}
	}
}

// WithDefaultSpaces sets the resource names reported while no booking names any.
func WithDefaultSpaces(spaces []string) Option {
	return func(m *Manager) {
		m.defaultSpaces = append([]string(nil), spaces...)
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) {
		if newID != nil {
			m.newID = newID
		}
	}
}

func NewManager(store Store, window availability.Window, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		window:   window,
		validate: newValidator(),
		logger:   slog.New(slog.DiscardHandler),
		metrics:  nopRecorder{},
		tracer:   otel.Tracer("spacebook/booking"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Window() availability.Window {
	return m.window
}

func (m *Manager) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "booking."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		var ce *ConflictError
		if !errors.As(err, &ce) && !errors.Is(err, ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}

func (m *Manager) stamp() time.Time {
	return m.now().UTC().Truncate(time.Microsecond)
}
