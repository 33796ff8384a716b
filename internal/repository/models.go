package repository

import (
	"time"

	"gorm.io/datatypes"
)

type SanctionType struct {
	ID          int64   `gorm:"primaryKey"`
	Name        string  `gorm:"not null;uniqueIndex"`
	Description *string
	CreatedAt   time.Time
}

type Vehicle struct {
	ID             int64  `gorm:"primaryKey"`
	Plate          string `gorm:"not null;uniqueIndex"`
	Owner          *string
	Sanctioned     bool `gorm:"not null;default:false"`
	SanctionTypeID *int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Control struct {
	ID               int64          `gorm:"primaryKey"`
	VehicleID        int64          `gorm:"not null;index:idx_controls_vehicle_date"`
	IngressAt        time.Time      `gorm:"not null"`
	EgressAt         *time.Time
	ControlDate      datatypes.Date `gorm:"not null;index:idx_controls_vehicle_date"`
	IngressPrimary   *string
	IngressSecondary *string
	EgressPrimary    *string
	EgressSecondary  *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// OpenEpisodeIndex allows at most one control without egress per vehicle and day.
const OpenEpisodeIndex = `CREATE UNIQUE INDEX IF NOT EXISTS ux_controls_open_episode
	ON controls(vehicle_id, control_date) WHERE egress_at IS NULL`

// CalendarDate maps an instant to the calendar day it falls on in loc,
// stored as midnight UTC so every dialect compares it the same way.
func CalendarDate(t time.Time, loc *time.Location) datatypes.Date {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}
