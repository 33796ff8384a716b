package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"gate-access-service/internal/domain/access"
)

type VehicleRepository struct {
	db *gorm.DB
}

func NewVehicleRepository(db *gorm.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

// Lookup returns nil, nil when the plate is not registered.
func (r *VehicleRepository) Lookup(ctx context.Context, plate string) (*access.Vehicle, error) {
	var v Vehicle
	err := r.db.WithContext(ctx).Where("plate = ?", plate).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toDomainVehicle(v), nil
}

// SanctionName returns false when the sanction type does not exist.
func (r *VehicleRepository) SanctionName(ctx context.Context, sanctionTypeID int64) (string, bool, error) {
	var st SanctionType
	err := r.db.WithContext(ctx).First(&st, sanctionTypeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return st.Name, true, nil
}

func (r *VehicleRepository) Register(ctx context.Context, plate string, owner *string, sanctionTypeID *int64) (*access.Vehicle, error) {
	v := Vehicle{
		Plate:          plate,
		Owner:          owner,
		Sanctioned:     sanctionTypeID != nil,
		SanctionTypeID: sanctionTypeID,
	}
	if err := r.db.WithContext(ctx).Create(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: %s", access.ErrVehicleExists, plate)
		}
		return nil, err
	}
	return toDomainVehicle(v), nil
}

// SanctionTypeID returns false when no sanction type has the name.
func (r *VehicleRepository) SanctionTypeID(ctx context.Context, name string) (int64, bool, error) {
	var st SanctionType
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return st.ID, true, nil
}

func toDomainVehicle(v Vehicle) *access.Vehicle {
	return &access.Vehicle{
		ID:             v.ID,
		Plate:          v.Plate,
		Owner:          v.Owner,
		Sanctioned:     v.Sanctioned,
		SanctionTypeID: v.SanctionTypeID,
	}
}
