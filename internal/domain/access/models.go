package access

import (
	"errors"
	"image"
	"time"

	"github.com/google/uuid"
)

// ErrEpisodeConflict is returned by a ledger when a write would break the
// one-open-episode-per-day rule or touch an already closed episode.
var ErrEpisodeConflict = errors.New("control episode conflict")

// ErrVehicleExists is returned by a registry when the plate is taken.
var ErrVehicleExists = errors.New("vehicle already registered")

type Outcome string

const (
	OutcomeIngress      Outcome = "INGRESS"
	OutcomeEgress       Outcome = "EGRESS"
	OutcomeSuppressed   Outcome = "SUPPRESSED"
	OutcomeUnregistered Outcome = "UNREGISTERED"
)

// Category is the evidence folder for the outcome; empty when the
// outcome is not archived.
func (o Outcome) Category() string {
	switch o {
	case OutcomeIngress:
		return "ingress"
	case OutcomeEgress:
		return "egress"
	case OutcomeUnregistered:
		return "unmatched"
	default:
		return ""
	}
}

type Vehicle struct {
	ID             int64   `json:"id"`
	Plate          string  `json:"plate"`
	Owner          *string `json:"owner,omitempty"`
	Sanctioned     bool    `json:"sanctioned"`
	SanctionTypeID *int64  `json:"sanction_type_id,omitempty"`
	SanctionName   string  `json:"sanction_name,omitempty"`
}

// Evidence holds archived image paths; a nil path means nothing was written.
type Evidence struct {
	Primary   *string `json:"primary,omitempty"`
	Secondary *string `json:"secondary,omitempty"`
}

type Control struct {
	ID              int64      `json:"id"`
	VehicleID       int64      `json:"vehicle_id"`
	Plate           string     `json:"plate,omitempty"`
	IngressAt       time.Time  `json:"ingress_at"`
	EgressAt        *time.Time `json:"egress_at,omitempty"`
	Date            time.Time  `json:"date"`
	IngressEvidence Evidence   `json:"ingress_evidence"`
	EgressEvidence  Evidence   `json:"egress_evidence"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Open reports whether the vehicle is still considered inside.
func (c Control) Open() bool {
	return c.EgressAt == nil
}

type Frame struct {
	Camera     string
	Image      image.Image
	CapturedAt time.Time
}

type DetectionEvent struct {
	ID         uuid.UUID
	Source     string
	Primary    *Frame
	Secondary  *Frame
	Region     image.Rectangle
	RawText    string
	Plate      string
	DetectedAt time.Time
}

type Decision struct {
	EventID      uuid.UUID `json:"event_id"`
	Outcome      Outcome   `json:"outcome"`
	Plate        string    `json:"plate"`
	VehicleID    *int64    `json:"vehicle_id,omitempty"`
	ControlID    *int64    `json:"control_id,omitempty"`
	Sanctioned   bool      `json:"sanctioned"`
	SanctionName string    `json:"sanction_name,omitempty"`
	Message      string    `json:"message"`
	DisplayUntil time.Time `json:"display_until"`
	Evidence     Evidence  `json:"evidence"`
}

type ControlFilter struct {
	Plate  *string
	Date   *time.Time
	Limit  int
	Offset int
}
