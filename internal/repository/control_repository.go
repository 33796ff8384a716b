package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gate-access-service/internal/domain/access"
)

type ControlRepository struct {
	db  *gorm.DB
	loc *time.Location
	tx  bool
}

func NewControlRepository(db *gorm.DB, loc *time.Location) *ControlRepository {
	if loc == nil {
		loc = time.Local
	}
	return &ControlRepository{db: db, loc: loc}
}

// Atomic runs fn against a repository bound to a single transaction.
func (r *ControlRepository) Atomic(ctx context.Context, fn func(ledger access.ControlLedger) error) error {
	if r.tx {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ControlRepository{db: tx, loc: r.loc, tx: true})
	})
}

// LastControl returns the most recent control of the vehicle on the
// calendar day of date, or nil. Inside a postgres transaction the row is locked.
func (r *ControlRepository) LastControl(ctx context.Context, vehicleID int64, date time.Time) (*access.Control, error) {
	query := r.db.WithContext(ctx).
		Where("vehicle_id = ? AND control_date = ?", vehicleID, CalendarDate(date, r.loc)).
		Order("ingress_at DESC").
		Order("id DESC")
	if r.tx && r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var c Control
	err := query.First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toDomainControl(c, ""), nil
}

func (r *ControlRepository) InsertIngress(ctx context.Context, vehicleID int64, at, date time.Time, ev access.Evidence) (int64, error) {
	c := Control{
		VehicleID:        vehicleID,
		IngressAt:        at.UTC(),
		ControlDate:      CalendarDate(date, r.loc),
		IngressPrimary:   ev.Primary,
		IngressSecondary: ev.Secondary,
	}
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, fmt.Errorf("%w: vehicle %d already has an open episode", access.ErrEpisodeConflict, vehicleID)
		}
		return 0, err
	}
	return c.ID, nil
}

// CloseEgress sets the egress of an open control. A control that is
// already closed is never overwritten.
func (r *ControlRepository) CloseEgress(ctx context.Context, controlID int64, at time.Time, ev access.Evidence) error {
	res := r.db.WithContext(ctx).
		Model(&Control{}).
		Where("id = ? AND egress_at IS NULL", controlID).
		Updates(map[string]interface{}{
			"egress_at":        at.UTC(),
			"egress_primary":   ev.Primary,
			"egress_secondary": ev.Secondary,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: control %d is closed or missing", access.ErrEpisodeConflict, controlID)
	}
	return nil
}

type controlRow struct {
	Control
	Plate string
}

func (r *ControlRepository) ListControls(ctx context.Context, filter access.ControlFilter) ([]access.Control, error) {
	query := r.db.WithContext(ctx).
		Table("controls").
		Select("controls.*, vehicles.plate AS plate").
		Joins("JOIN vehicles ON vehicles.id = controls.vehicle_id")

	if filter.Plate != nil {
		query = query.Where("vehicles.plate = ?", *filter.Plate)
	}
	if filter.Date != nil {
		query = query.Where("controls.control_date = ?", CalendarDate(*filter.Date, r.loc))
	}

	query = query.Order("controls.ingress_at DESC").Order("controls.id DESC")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var rows []controlRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]access.Control, 0, len(rows))
	for _, row := range rows {
		result = append(result, *toDomainControl(row.Control, row.Plate))
	}
	return result, nil
}

func toDomainControl(c Control, plate string) *access.Control {
	return &access.Control{
		ID:        c.ID,
		VehicleID: c.VehicleID,
		Plate:     plate,
		IngressAt: c.IngressAt,
		EgressAt:  c.EgressAt,
		Date:      dateTime(c.ControlDate),
		IngressEvidence: access.Evidence{
			Primary:   c.IngressPrimary,
			Secondary: c.IngressSecondary,
		},
		EgressEvidence: access.Evidence{
			Primary:   c.EgressPrimary,
			Secondary: c.EgressSecondary,
		},
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func dateTime(d datatypes.Date) time.Time {
	y, m, day := time.Time(d).Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}
