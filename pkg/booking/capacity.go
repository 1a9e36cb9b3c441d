package booking

import (
	"context"
	"fmt"
)

// CapacityLedger owns the reserved-seat counter of every voyage. All changes
// to reservedCount and remaining go through it.
type CapacityLedger struct {
	store CapacityStore
}

// NewCapacityLedger wires a CapacityLedger.
func NewCapacityLedger(store CapacityStore) (*CapacityLedger, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: capacity store dependency is nil", ErrInvalidServiceConfig)
	}
	return &CapacityLedger{store: store}, nil
}

// Reserve claims seats on an active voyage with enough remaining capacity.
func (ledger *CapacityLedger) Reserve(ctx context.Context, voyageID VoyageID, seats PartySize) error {
	if seats < 1 {
		return fmt.Errorf("%w: must be at least one", ErrInvalidPartySize)
	}
	if err := ledger.store.IncrementReservedSeats(ctx, voyageID, seats); err != nil {
		return WrapError("capacity", "voyage", operationReserveSeats, err)
	}
	return nil
}

// Release returns seats to a voyage. The counter never drops below zero.
func (ledger *CapacityLedger) Release(ctx context.Context, voyageID VoyageID, seats PartySize) error {
	if seats < 1 {
		return fmt.Errorf("%w: must be at least one", ErrInvalidPartySize)
	}
	if err := ledger.store.DecrementReservedSeats(ctx, voyageID, seats); err != nil {
		return WrapError("capacity", "voyage", operationReleaseSeats, err)
	}
	return nil
}

// Resize changes total capacity. It fails with ErrCapacityExceeded when seats
// already reserved would no longer fit.
func (ledger *CapacityLedger) Resize(ctx context.Context, voyageID VoyageID, totalCapacity int) error {
	if totalCapacity < 1 {
		return fmt.Errorf("%w: total capacity must be at least one", ErrInvalidCapacity)
	}
	if err := ledger.store.ResizeCapacity(ctx, voyageID, totalCapacity); err != nil {
		return WrapError("capacity", "voyage", operationResizeCapacity, err)
	}
	return nil
}
