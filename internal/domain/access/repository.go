package access

import (
	"context"
	"time"
)

type VehicleRegistry interface {
	// Lookup returns nil, nil when the plate is not registered.
	Lookup(ctx context.Context, plate string) (*Vehicle, error)
	SanctionName(ctx context.Context, sanctionTypeID int64) (string, bool, error)
}

// VehicleDirectory is a registry that also enrolls vehicles.
type VehicleDirectory interface {
	VehicleRegistry
	// Register fails with ErrVehicleExists when the plate is taken.
	Register(ctx context.Context, plate string, owner *string, sanctionTypeID *int64) (*Vehicle, error)
	SanctionTypeID(ctx context.Context, name string) (int64, bool, error)
}

type ControlLedger interface {
	LastControl(ctx context.Context, vehicleID int64, date time.Time) (*Control, error)
	InsertIngress(ctx context.Context, vehicleID int64, at, date time.Time, ev Evidence) (int64, error)
	CloseEgress(ctx context.Context, controlID int64, at time.Time, ev Evidence) error
	ListControls(ctx context.Context, filter ControlFilter) ([]Control, error)
	// Atomic runs fn so that its reads and writes commit together.
	Atomic(ctx context.Context, fn func(ledger ControlLedger) error) error
}
