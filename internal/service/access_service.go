package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"gate-access-service/internal/domain/access"
	"gate-access-service/internal/utils"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// maxConflictRetries bounds re-resolution after a concurrent writer won.
const maxConflictRetries = 1

type EvidenceArchiver interface {
	Archive(plate string, outcome access.Outcome, primary, secondary *access.Frame, now time.Time) (access.Evidence, error)
}

type Options struct {
	Location *time.Location
	Timeout  time.Duration
}

type AccessService struct {
	registry access.VehicleDirectory
	ledger   access.ControlLedger
	archiver EvidenceArchiver
	resolver *Resolver
	loc      *time.Location
	timeout  time.Duration
	log      zerolog.Logger
}

func NewAccessService(
	registry access.VehicleDirectory,
	ledger access.ControlLedger,
	archiver EvidenceArchiver,
	resolver *Resolver,
	opts Options,
	log zerolog.Logger,
) *AccessService {
	if resolver == nil {
		resolver = NewResolver(DefaultDebounceWindow, DefaultMessageTTL)
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &AccessService{
		registry: registry,
		ledger:   ledger,
		archiver: archiver,
		resolver: resolver,
		loc:      opts.Location,
		timeout:  opts.Timeout,
		log:      log.With().Str("component", "access").Logger(),
	}
}

// Process resolves a detection and applies its effects: a ledger mutation
// for ingress/egress and evidence for every outcome except SUPPRESSED.
func (s *AccessService) Process(ctx context.Context, ev access.DetectionEvent) (*access.Decision, error) {
	plate, ok := utils.AcceptPlate(ev.Plate)
	if !ok {
		return nil, fmt.Errorf("%w: plate %q is not a %d character code", ErrInvalidInput, ev.Plate, utils.PlateLength)
	}
	if ev.DetectedAt.IsZero() {
		return nil, fmt.Errorf("%w: detection time is required", ErrInvalidInput)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	vehicle, err := s.lookupVehicle(ctx, plate)
	if err != nil {
		s.log.Error().Err(err).Str("plate", plate).Msg("failed to look up vehicle")
		return nil, fmt.Errorf("failed to look up vehicle: %w", err)
	}

	if vehicle == nil {
		d := s.resolver.Decide(plate, ev.DetectedAt, nil, nil)
		d.EventID = ev.ID
		d.Evidence = s.archive(ev, plate, d.Outcome)
		s.logDecision(ev, d)
		return &d, nil
	}

	var d access.Decision
	for attempt := 0; ; attempt++ {
		d, err = s.resolveAndRecord(ctx, ev, plate, vehicle)
		if err == nil {
			break
		}
		if !errors.Is(err, access.ErrEpisodeConflict) || attempt >= maxConflictRetries {
			s.log.Error().
				Err(err).
				Str("plate", plate).
				Int64("vehicle_id", vehicle.ID).
				Msg("failed to record control")
			return nil, fmt.Errorf("failed to record control: %w", err)
		}
		s.log.Warn().
			Err(err).
			Str("plate", plate).
			Int64("vehicle_id", vehicle.ID).
			Msg("control changed concurrently, resolving again")
	}

	d.EventID = ev.ID
	s.logDecision(ev, d)
	return &d, nil
}

func (s *AccessService) resolveAndRecord(ctx context.Context, ev access.DetectionEvent, plate string, vehicle *access.Vehicle) (access.Decision, error) {
	var d access.Decision
	err := s.ledger.Atomic(ctx, func(ledger access.ControlLedger) error {
		last, err := ledger.LastControl(ctx, vehicle.ID, ev.DetectedAt)
		if err != nil {
			return fmt.Errorf("last control: %w", err)
		}

		d = s.resolver.Decide(plate, ev.DetectedAt, vehicle, last)

		switch d.Outcome {
		case access.OutcomeIngress:
			d.Evidence = s.archive(ev, plate, d.Outcome)
			id, err := ledger.InsertIngress(ctx, vehicle.ID, ev.DetectedAt, ev.DetectedAt, d.Evidence)
			if err != nil {
				return fmt.Errorf("insert ingress: %w", err)
			}
			d.ControlID = &id
		case access.OutcomeEgress:
			d.Evidence = s.archive(ev, plate, d.Outcome)
			if err := ledger.CloseEgress(ctx, *d.ControlID, ev.DetectedAt, d.Evidence); err != nil {
				return fmt.Errorf("close egress: %w", err)
			}
		}
		return nil
	})
	return d, err
}

func (s *AccessService) lookupVehicle(ctx context.Context, plate string) (*access.Vehicle, error) {
	vehicle, err := s.registry.Lookup(ctx, plate)
	if err != nil || vehicle == nil {
		return nil, err
	}

	if vehicle.Sanctioned && vehicle.SanctionTypeID != nil {
		name, ok, err := s.registry.SanctionName(ctx, *vehicle.SanctionTypeID)
		if err != nil {
			// The flag alone is enough to highlight the message.
			s.log.Warn().Err(err).Int64("sanction_type_id", *vehicle.SanctionTypeID).Msg("failed to resolve sanction name")
		} else if ok {
			vehicle.SanctionName = name
		}
	}
	return vehicle, nil
}

// archive never fails the caller; paths that could not be written stay nil.
func (s *AccessService) archive(ev access.DetectionEvent, plate string, outcome access.Outcome) access.Evidence {
	if s.archiver == nil {
		return access.Evidence{}
	}
	evidence, err := s.archiver.Archive(plate, outcome, ev.Primary, ev.Secondary, ev.DetectedAt)
	if err != nil {
		s.log.Error().
			Err(err).
			Str("event_id", ev.ID.String()).
			Str("plate", plate).
			Str("outcome", string(outcome)).
			Bool("primary_saved", evidence.Primary != nil).
			Bool("secondary_saved", evidence.Secondary != nil).
			Msg("failed to archive evidence")
	}
	return evidence
}

func (s *AccessService) logDecision(ev access.DetectionEvent, d access.Decision) {
	var e *zerolog.Event
	switch d.Outcome {
	case access.OutcomeSuppressed:
		e = s.log.Debug()
	case access.OutcomeUnregistered:
		e = s.log.Warn()
	default:
		e = s.log.Info()
	}
	if d.ControlID != nil {
		e = e.Int64("control_id", *d.ControlID)
	}
	e.Str("event_id", ev.ID.String()).
		Str("source", ev.Source).
		Str("plate", d.Plate).
		Str("raw_plate", ev.RawText).
		Str("outcome", string(d.Outcome)).
		Bool("sanctioned", d.Sanctioned).
		Time("detected_at", ev.DetectedAt).
		Msg(d.Message)
}

func (s *AccessService) FindVehicle(ctx context.Context, plateQuery string) (*access.Vehicle, error) {
	plate := utils.NormalizePlate(plateQuery)
	if plate == "" {
		return nil, fmt.Errorf("%w: plate query cannot be empty", ErrInvalidInput)
	}

	vehicle, err := s.lookupVehicle(ctx, plate)
	if err != nil {
		return nil, fmt.Errorf("failed to find vehicle: %w", err)
	}
	if vehicle == nil {
		return nil, fmt.Errorf("%w: plate %s is not registered", ErrNotFound, plate)
	}
	return vehicle, nil
}

// RegisterVehicle enrolls a plate. sanction names a sanction type such as
// BLOCKED; nil or blank registers the vehicle unsanctioned.
func (s *AccessService) RegisterVehicle(ctx context.Context, plateInput string, owner, sanction *string) (*access.Vehicle, error) {
	plate, ok := utils.AcceptPlate(plateInput)
	if !ok {
		return nil, fmt.Errorf("%w: plate %q is not a %d character code", ErrInvalidInput, plateInput, utils.PlateLength)
	}
	if owner != nil {
		trimmed := strings.TrimSpace(*owner)
		owner = &trimmed
		if trimmed == "" {
			owner = nil
		}
	}

	var (
		sanctionTypeID *int64
		sanctionName   string
	)
	if sanction != nil {
		if name := strings.ToUpper(strings.TrimSpace(*sanction)); name != "" {
			id, found, err := s.registry.SanctionTypeID(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve sanction type: %w", err)
			}
			if !found {
				return nil, fmt.Errorf("%w: unknown sanction type %s", ErrInvalidInput, name)
			}
			sanctionTypeID = &id
			sanctionName = name
		}
	}

	vehicle, err := s.registry.Register(ctx, plate, owner, sanctionTypeID)
	if errors.Is(err, access.ErrVehicleExists) {
		return nil, fmt.Errorf("%w: plate %s is already registered", ErrConflict, plate)
	}
	if err != nil {
		s.log.Error().Err(err).Str("plate", plate).Msg("failed to register vehicle")
		return nil, fmt.Errorf("failed to register vehicle: %w", err)
	}
	vehicle.SanctionName = sanctionName

	s.log.Info().
		Str("plate", plate).
		Int64("vehicle_id", vehicle.ID).
		Bool("sanctioned", vehicle.Sanctioned).
		Msg("vehicle registered")
	return vehicle, nil
}

func (s *AccessService) ListControls(ctx context.Context, plateQuery, date *string, limit, offset int) ([]access.Control, error) {
	var filter access.ControlFilter

	if plateQuery != nil {
		if plate := utils.NormalizePlate(*plateQuery); plate != "" {
			filter.Plate = &plate
		}
	}
	if date != nil && *date != "" {
		day, err := time.ParseInLocation("2006-01-02", *date, s.loc)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid date format, expected YYYY-MM-DD", ErrInvalidInput)
		}
		filter.Date = &day
	}

	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	filter.Limit = limit
	filter.Offset = offset

	controls, err := s.ledger.ListControls(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list controls: %w", err)
	}
	return controls, nil
}
