package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gate-access-service/internal/domain/access"
)

var t0 = time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)

func openControl(id int64, ingress time.Time) *access.Control {
	return &access.Control{ID: id, VehicleID: 1, IngressAt: ingress}
}

func closedControl(id int64, ingress, egress time.Time) *access.Control {
	return &access.Control{ID: id, VehicleID: 1, IngressAt: ingress, EgressAt: &egress}
}

func TestDecideUnregistered(t *testing.T) {
	r := NewResolver(0, 0)

	d := r.Decide("ZZZ999", t0, nil, nil)

	assert.Equal(t, access.OutcomeUnregistered, d.Outcome)
	assert.Nil(t, d.VehicleID)
	assert.Nil(t, d.ControlID)
	assert.Contains(t, d.Message, "plate not registered")
	assert.Equal(t, t0.Add(5*time.Second), d.DisplayUntil)
}

func TestDecideFirstDetectionIsIngress(t *testing.T) {
	r := NewResolver(0, 0)
	v := &access.Vehicle{ID: 1, Plate: "ABC123"}

	d := r.Decide("ABC123", t0, v, nil)

	assert.Equal(t, access.OutcomeIngress, d.Outcome)
	require.NotNil(t, d.VehicleID)
	assert.Equal(t, int64(1), *d.VehicleID)
	assert.Nil(t, d.ControlID)
}

func TestDecideOpenEpisode(t *testing.T) {
	r := NewResolver(0, 0)
	v := &access.Vehicle{ID: 1, Plate: "ABC123"}
	last := openControl(7, t0)

	tests := []struct {
		name    string
		offset  time.Duration
		outcome access.Outcome
	}{
		{"immediately", 0, access.OutcomeSuppressed},
		{"within window", 119 * time.Second, access.OutcomeSuppressed},
		{"at window", 2 * time.Minute, access.OutcomeEgress},
		{"after window", 10 * time.Minute, access.OutcomeEgress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := r.Decide("ABC123", t0.Add(tt.offset), v, last)
			assert.Equal(t, tt.outcome, d.Outcome)
			require.NotNil(t, d.ControlID)
			assert.Equal(t, int64(7), *d.ControlID)
		})
	}
}

func TestDecideClosedEpisode(t *testing.T) {
	r := NewResolver(0, 0)
	v := &access.Vehicle{ID: 1, Plate: "ABC123"}
	egress := t0.Add(3 * time.Minute)
	last := closedControl(7, t0, egress)

	d := r.Decide("ABC123", egress.Add(30*time.Second), v, last)
	assert.Equal(t, access.OutcomeSuppressed, d.Outcome)
	require.NotNil(t, d.ControlID)
	assert.Equal(t, int64(7), *d.ControlID)

	d = r.Decide("ABC123", egress.Add(2*time.Minute), v, last)
	assert.Equal(t, access.OutcomeIngress, d.Outcome)
	assert.Nil(t, d.ControlID)
}

func TestDecideClosedEpisodeUsesEgressNotIngress(t *testing.T) {
	r := NewResolver(0, 0)
	v := &access.Vehicle{ID: 1, Plate: "ABC123"}
	egress := t0.Add(time.Hour)
	last := closedControl(7, t0, egress)

	d := r.Decide("ABC123", egress.Add(time.Minute), v, last)
	assert.Equal(t, access.OutcomeSuppressed, d.Outcome)
}

func TestDecideIsDeterministic(t *testing.T) {
	r := NewResolver(0, 0)
	v := &access.Vehicle{ID: 1, Plate: "ABC123"}
	last := openControl(7, t0)
	now := t0.Add(90 * time.Second)

	first := r.Decide("ABC123", now, v, last)
	second := r.Decide("ABC123", now, v, last)
	assert.Equal(t, first, second)
}

func TestDecideSanctionFlag(t *testing.T) {
	r := NewResolver(0, 0)
	typeID := int64(2)
	v := &access.Vehicle{ID: 1, Plate: "ABC123", Sanctioned: true, SanctionTypeID: &typeID, SanctionName: "BLOCKED"}

	d := r.Decide("ABC123", t0, v, nil)
	assert.Equal(t, access.OutcomeIngress, d.Outcome)
	assert.True(t, d.Sanctioned)
	assert.Equal(t, "BLOCKED", d.SanctionName)
	assert.Contains(t, d.Message, "SANCTIONED: BLOCKED")
}

func TestDecideCustomWindow(t *testing.T) {
	r := NewResolver(10*time.Second, time.Second)
	v := &access.Vehicle{ID: 1, Plate: "ABC123"}

	d := r.Decide("ABC123", t0.Add(10*time.Second), v, openControl(1, t0))
	assert.Equal(t, access.OutcomeEgress, d.Outcome)
	assert.Equal(t, t0.Add(11*time.Second), d.DisplayUntil)
	assert.Equal(t, 10*time.Second, r.DebounceWindow())
}
