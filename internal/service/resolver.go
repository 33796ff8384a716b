package service

import (
	"fmt"
	"time"

	"gate-access-service/internal/domain/access"
)

const (
	DefaultDebounceWindow = 2 * time.Minute
	DefaultMessageTTL     = 5 * time.Second
)

// Resolver decides what a detection means. It never touches storage:
// the caller supplies the registry match and the latest control of the day.
type Resolver struct {
	debounce   time.Duration
	messageTTL time.Duration
}

func NewResolver(debounce, messageTTL time.Duration) *Resolver {
	if debounce <= 0 {
		debounce = DefaultDebounceWindow
	}
	if messageTTL <= 0 {
		messageTTL = DefaultMessageTTL
	}
	return &Resolver{debounce: debounce, messageTTL: messageTTL}
}

func (r *Resolver) DebounceWindow() time.Duration {
	return r.debounce
}

// Decide resolves a detection of plate at now. vehicle is nil when the
// plate is not registered; last is nil when the vehicle has no control today.
func (r *Resolver) Decide(plate string, now time.Time, vehicle *access.Vehicle, last *access.Control) access.Decision {
	d := access.Decision{
		Plate:        plate,
		DisplayUntil: now.Add(r.messageTTL),
	}

	if vehicle == nil {
		d.Outcome = access.OutcomeUnregistered
		d.Message = fmt.Sprintf("%s: plate not registered", plate)
		return d
	}

	vehicleID := vehicle.ID
	d.VehicleID = &vehicleID
	d.Sanctioned = vehicle.Sanctioned
	d.SanctionName = vehicle.SanctionName

	switch {
	case last == nil:
		d.Outcome = access.OutcomeIngress
	case last.Open():
		if now.Sub(last.IngressAt) < r.debounce {
			d.Outcome = access.OutcomeSuppressed
		} else {
			d.Outcome = access.OutcomeEgress
		}
		d.ControlID = controlID(last)
	default:
		if now.Sub(*last.EgressAt) < r.debounce {
			d.Outcome = access.OutcomeSuppressed
			d.ControlID = controlID(last)
		} else {
			d.Outcome = access.OutcomeIngress
		}
	}

	d.Message = r.message(d)
	return d
}

func (r *Resolver) message(d access.Decision) string {
	var msg string
	switch d.Outcome {
	case access.OutcomeIngress:
		msg = fmt.Sprintf("%s: ingress registered", d.Plate)
	case access.OutcomeEgress:
		msg = fmt.Sprintf("%s: egress registered", d.Plate)
	case access.OutcomeSuppressed:
		msg = fmt.Sprintf("%s: duplicate detection ignored", d.Plate)
	}
	if d.Sanctioned {
		if d.SanctionName != "" {
			msg += fmt.Sprintf(" [SANCTIONED: %s]", d.SanctionName)
		} else {
			msg += " [SANCTIONED]"
		}
	}
	return msg
}

func controlID(c *access.Control) *int64 {
	id := c.ID
	return &id
}
