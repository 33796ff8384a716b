package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gate-access-service/internal/domain/access"
)

type fakeRegistry struct {
	vehicles  map[string]access.Vehicle
	sanctions map[int64]string
	lookups   int
	nextID    int64
	err       error
}

func newFakeRegistry(vehicles ...access.Vehicle) *fakeRegistry {
	r := &fakeRegistry{vehicles: map[string]access.Vehicle{}, sanctions: map[int64]string{}}
	for _, v := range vehicles {
		r.vehicles[v.Plate] = v
	}
	return r
}

func (r *fakeRegistry) Lookup(_ context.Context, plate string) (*access.Vehicle, error) {
	r.lookups++
	if r.err != nil {
		return nil, r.err
	}
	v, ok := r.vehicles[plate]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (r *fakeRegistry) SanctionName(_ context.Context, id int64) (string, bool, error) {
	name, ok := r.sanctions[id]
	return name, ok, nil
}

func (r *fakeRegistry) SanctionTypeID(_ context.Context, name string) (int64, bool, error) {
	for id, n := range r.sanctions {
		if n == name {
			return id, true, nil
		}
	}
	return 0, false, nil
}

func (r *fakeRegistry) Register(_ context.Context, plate string, owner *string, sanctionTypeID *int64) (*access.Vehicle, error) {
	if r.err != nil {
		return nil, r.err
	}
	if _, ok := r.vehicles[plate]; ok {
		return nil, fmt.Errorf("%w: %s", access.ErrVehicleExists, plate)
	}
	r.nextID++
	v := access.Vehicle{
		ID:             1000 + r.nextID,
		Plate:          plate,
		Owner:          owner,
		Sanctioned:     sanctionTypeID != nil,
		SanctionTypeID: sanctionTypeID,
	}
	r.vehicles[plate] = v
	return &v, nil
}

type fakeLedger struct {
	mu        sync.Mutex
	controls  []access.Control
	nextID    int64
	mutations int

	// beforeInsert runs once before the next InsertIngress, emulating a
	// concurrent writer that commits first.
	beforeInsert func(l *fakeLedger)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func (l *fakeLedger) LastControl(_ context.Context, vehicleID int64, date time.Time) (*access.Control, error) {
	var last *access.Control
	for i := range l.controls {
		c := l.controls[i]
		if c.VehicleID != vehicleID || !sameDay(c.Date, date) {
			continue
		}
		if last == nil || !c.IngressAt.Before(last.IngressAt) {
			cp := c
			last = &cp
		}
	}
	return last, nil
}

func (l *fakeLedger) insert(vehicleID int64, at, date time.Time, ev access.Evidence) (int64, error) {
	for _, c := range l.controls {
		if c.VehicleID == vehicleID && sameDay(c.Date, date) && c.Open() {
			return 0, fmt.Errorf("%w: open episode %d", access.ErrEpisodeConflict, c.ID)
		}
	}
	l.nextID++
	l.controls = append(l.controls, access.Control{
		ID:              l.nextID,
		VehicleID:       vehicleID,
		IngressAt:       at,
		Date:            date,
		IngressEvidence: ev,
	})
	return l.nextID, nil
}

func (l *fakeLedger) InsertIngress(_ context.Context, vehicleID int64, at, date time.Time, ev access.Evidence) (int64, error) {
	if hook := l.beforeInsert; hook != nil {
		l.beforeInsert = nil
		hook(l)
	}
	id, err := l.insert(vehicleID, at, date, ev)
	if err == nil {
		l.mutations++
	}
	return id, err
}

func (l *fakeLedger) CloseEgress(_ context.Context, controlID int64, at time.Time, ev access.Evidence) error {
	for i := range l.controls {
		c := &l.controls[i]
		if c.ID != controlID {
			continue
		}
		if !c.Open() {
			return fmt.Errorf("%w: control %d closed", access.ErrEpisodeConflict, controlID)
		}
		c.EgressAt = &at
		c.EgressEvidence = ev
		l.mutations++
		return nil
	}
	return fmt.Errorf("%w: control %d missing", access.ErrEpisodeConflict, controlID)
}

func (l *fakeLedger) ListControls(_ context.Context, filter access.ControlFilter) ([]access.Control, error) {
	out := make([]access.Control, 0, len(l.controls))
	for _, c := range l.controls {
		if filter.Date != nil && !sameDay(c.Date, *filter.Date) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (l *fakeLedger) Atomic(_ context.Context, fn func(access.ControlLedger) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(l)
}

type archiveCall struct {
	plate   string
	outcome access.Outcome
	at      time.Time
}

type fakeArchiver struct {
	calls []archiveCall
	fail  bool
}

func (a *fakeArchiver) Archive(plate string, outcome access.Outcome, primary, secondary *access.Frame, now time.Time) (access.Evidence, error) {
	a.calls = append(a.calls, archiveCall{plate: plate, outcome: outcome, at: now})
	if a.fail {
		return access.Evidence{}, errors.New("disk full")
	}
	var ev access.Evidence
	if primary != nil {
		p := fmt.Sprintf("/evidence/%s/%s_%s.jpg", outcome.Category(), plate, now.Format("150405"))
		ev.Primary = &p
	}
	if secondary != nil {
		s := fmt.Sprintf("/evidence/%s_secondary/%s_%s.jpg", outcome.Category(), plate, now.Format("150405"))
		ev.Secondary = &s
	}
	return ev, nil
}
