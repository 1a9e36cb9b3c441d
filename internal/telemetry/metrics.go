package telemetry

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MarkoPoloResearchLab/voyages/pkg/booking"
)

const (
	metricsNamespace = "voyages"
	labelOperation   = "operation"
	labelStatus      = "status"
	labelKind        = "kind"
)

// Metrics counts booking operations and the seats they moved.
type Metrics struct {
	operations *prometheus.CounterVec
	seats      *prometheus.CounterVec
}

// NewMetrics registers the booking collectors on registerer. Collectors that
// are already registered are reused.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	operations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "operations_total",
			Help:      "Booking operations by outcome",
		},
		[]string{labelOperation, labelStatus, labelKind},
	)
	seats := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "seats_total",
			Help:      "Seats moved by successful booking operations",
		},
		[]string{labelOperation},
	)
	var err error
	if operations, err = register(registerer, operations); err != nil {
		return nil, err
	}
	if seats, err = register(registerer, seats); err != nil {
		return nil, err
	}
	return &Metrics{operations: operations, seats: seats}, nil
}

func register(registerer prometheus.Registerer, collector *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := registerer.Register(collector); err != nil {
		var alreadyRegistered prometheus.AlreadyRegisteredError
		if errors.As(err, &alreadyRegistered) {
			if existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return collector, nil
}

// LogOperation implements booking.OperationLogger.
func (metrics *Metrics) LogOperation(_ context.Context, entry booking.OperationLog) {
	kind := "none"
	if entry.Error != nil {
		kind = string(booking.KindOf(entry.Error))
	}
	metrics.operations.WithLabelValues(entry.Operation, entry.Status, kind).Inc()
	if entry.Error == nil && entry.Seats > 0 {
		metrics.seats.WithLabelValues(entry.Operation).Add(float64(entry.Seats))
	}
}
