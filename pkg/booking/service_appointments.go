package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CreateAppointment books a service slot for customerID. The appointment starts in
// REQUESTED with a single DRAFT→REQUESTED history entry.
func (service *Service) CreateAppointment(ctx context.Context, customerID UserID, request AppointmentRequest) (Appointment, error) {
	var created Appointment
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		if customerID.IsZero() {
			return fmt.Errorf("%w: empty customer", ErrInvalidUserID)
		}
		draft, err := newAppointmentDraft(customerID, request, service.location())
		if err != nil {
			return err
		}
		openCount, err := txStore.CountOpenAppointments(ctx, customerID)
		if err != nil {
			return err
		}
		if openCount > 0 {
			return ErrActiveAppointmentExists
		}
		owned, err := txStore.BikeOwnedBy(ctx, draft.BikeID, customerID)
		if err != nil {
			return err
		}
		if !owned {
			return fmt.Errorf("%w: %s", ErrBikeNotFound, draft.BikeID)
		}
		accepting, err := txStore.GarageAcceptsBookings(ctx, draft.GarageID)
		if err != nil {
			return err
		}
		if !accepting {
			return fmt.Errorf("%w: %s", ErrGarageNotFound, draft.GarageID)
		}
		now := service.now()
		if err := CheckBookingTime(draft.PreferredDate, draft.TimeSlot, now, service.location()); err != nil {
			return err
		}
		garageID := draft.GarageID
		counts, err := txStore.CountActiveBySlot(ctx, &garageID, draft.PreferredDate)
		if err != nil {
			return err
		}
		if counts[draft.TimeSlot] >= service.config.MaxPerSlot {
			return fmt.Errorf("%w: %s %s at %s", ErrSlotFull, draft.PreferredDate, draft.TimeSlot, draft.GarageID)
		}
		if err := CanTransition(StatusDraft, StatusRequested, RoleCustomer); err != nil {
			return err
		}
		requested := ApplyTransition(draft, Transition{
			To:      StatusRequested,
			ActorID: actorRef(customerID),
			Role:    RoleCustomer,
			At:      now,
		}, service.location())
		requested.CreatedAt = now
		created, err = txStore.CreateAppointment(ctx, requested)
		return err
	})
	logEntry := OperationLog{
		Operation:  operationCreateAppointment,
		UserID:     customerID,
		FromStatus: StatusDraft.String(),
		ToStatus:   StatusRequested.String(),
		Error:      operationError,
	}
	if operationError == nil {
		appointmentID := created.ID
		logEntry.AppointmentID = &appointmentID
	}
	service.logOperation(ctx, logEntry)
	if operationError != nil {
		return Appointment{}, operationError
	}
	return created, nil
}

// TransitionAppointment moves an appointment to toStatus on behalf of caller.
// Callers that are neither admin nor owner get ErrNotAppointmentParty before the
// transition table is consulted.
func (service *Service) TransitionAppointment(ctx context.Context, appointmentID AppointmentID, toStatus AppointmentStatus, caller Caller, extras TransitionExtras) (Appointment, error) {
	var updated Appointment
	var fromStatus AppointmentStatus
	var awarded int64
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		appointment, err := txStore.GetAppointment(ctx, appointmentID)
		if err != nil {
			return err
		}
		fromStatus = appointment.Status
		role, ok := ResolveActorRole(caller, appointment)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotAppointmentParty, appointmentID)
		}
		updated, awarded, err = service.transition(ctx, txStore, appointment, toStatus, role, caller.UserID, extras)
		return err
	})
	service.logOperation(ctx, OperationLog{
		Operation:     operationTransitionAppointment,
		UserID:        caller.UserID,
		AppointmentID: &appointmentID,
		FromStatus:    fromStatus.String(),
		ToStatus:      toStatus.String(),
		Points:        awarded,
		Error:         operationError,
	})
	if operationError != nil {
		return Appointment{}, operationError
	}
	return updated, nil
}

// CancelAppointment lets the owning customer cancel their own appointment.
func (service *Service) CancelAppointment(ctx context.Context, appointmentID AppointmentID, customerID UserID, reason string) (Appointment, error) {
	var updated Appointment
	var fromStatus AppointmentStatus
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		appointment, err := txStore.GetAppointment(ctx, appointmentID)
		if err != nil {
			return err
		}
		fromStatus = appointment.Status
		if customerID.IsZero() || appointment.CustomerID != customerID {
			return fmt.Errorf("%w: %s", ErrNotAppointmentParty, appointmentID)
		}
		if appointment.Status == StatusCancelled {
			return ErrAlreadyCancelled
		}
		updated, _, err = service.transition(ctx, txStore, appointment, StatusCancelled, RoleCustomer, customerID, TransitionExtras{Reason: reason})
		return err
	})
	service.logOperation(ctx, OperationLog{
		Operation:     operationCancelAppointment,
		UserID:        customerID,
		AppointmentID: &appointmentID,
		FromStatus:    fromStatus.String(),
		ToStatus:      StatusCancelled.String(),
		Error:         operationError,
	})
	if operationError != nil {
		return Appointment{}, operationError
	}
	return updated, nil
}

// ExpireStaleAppointments moves every REQUESTED appointment created more than
// threshold before now to EXPIRED as SYSTEM. A non-positive threshold uses the
// configured request expiry. Appointments that leave REQUESTED while the sweep
// runs are skipped. It returns the number of appointments expired.
func (service *Service) ExpireStaleAppointments(ctx context.Context, now time.Time, threshold time.Duration) (int, error) {
	if threshold <= 0 {
		threshold = service.config.RequestExpiry
	}
	cutoff := now.Add(-threshold)
	candidates, err := service.store.ListStaleRequested(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, appointmentID := range candidates {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		changed, err := service.expireAppointment(ctx, appointmentID, now)
		if err != nil {
			return expired, err
		}
		if changed {
			expired++
		}
	}
	return expired, nil
}

func (service *Service) expireAppointment(ctx context.Context, appointmentID AppointmentID, now time.Time) (bool, error) {
	changed := false
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		appointment, err := txStore.GetAppointment(ctx, appointmentID)
		if err != nil {
			return err
		}
		if appointment.Status != StatusRequested {
			return nil
		}
		if err := CanTransition(StatusRequested, StatusExpired, RoleSystem); err != nil {
			return err
		}
		expired := ApplyTransition(appointment, Transition{
			To:   StatusExpired,
			Role: RoleSystem,
			At:   now.In(service.location()),
		}, service.location())
		if err := txStore.UpdateAppointment(ctx, expired, StatusRequested); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if errors.Is(operationError, ErrConcurrentUpdate) {
		return false, nil
	}
	if operationError != nil || changed {
		service.logOperation(ctx, OperationLog{
			Operation:     operationExpireAppointment,
			AppointmentID: &appointmentID,
			FromStatus:    StatusRequested.String(),
			ToStatus:      StatusExpired.String(),
			Error:         operationError,
		})
	}
	return changed, operationError
}

// SlotAvailability reports active appointments per slot on date, for one garage or
// for all garages when garageID is nil.
func (service *Service) SlotAvailability(ctx context.Context, garageID *GarageID, date string) (SlotAvailability, error) {
	trimmedDate := strings.TrimSpace(date)
	if _, err := ParseDate(trimmedDate, service.location()); err != nil {
		return SlotAvailability{}, err
	}
	counts, err := service.store.CountActiveBySlot(ctx, garageID, trimmedDate)
	if err != nil {
		return SlotAvailability{}, err
	}
	if counts == nil {
		counts = map[string]int{}
	}
	return SlotAvailability{
		GarageID:   garageID,
		Date:       trimmedDate,
		MaxPerSlot: service.config.MaxPerSlot,
		Counts:     counts,
	}, nil
}

// GetAppointment returns an appointment visible to caller.
func (service *Service) GetAppointment(ctx context.Context, appointmentID AppointmentID, caller Caller) (Appointment, error) {
	appointment, err := service.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return Appointment{}, err
	}
	if _, ok := ResolveActorRole(caller, appointment); !ok {
		return Appointment{}, fmt.Errorf("%w: %s", ErrNotAppointmentParty, appointmentID)
	}
	return appointment, nil
}

// transition checks and applies one interactive status change inside a transaction.
// It returns the updated appointment and any points earned by completing it.
func (service *Service) transition(ctx context.Context, txStore Store, appointment Appointment, toStatus AppointmentStatus, role ActorRole, actorID UserID, extras TransitionExtras) (Appointment, int64, error) {
	fromStatus := appointment.Status
	if err := CanTransition(fromStatus, toStatus, role); err != nil {
		return Appointment{}, 0, err
	}
	transition, err := service.buildTransition(toStatus, role, actorID, extras)
	if err != nil {
		return Appointment{}, 0, err
	}
	updated := ApplyTransition(appointment, transition, service.location())
	if err := txStore.UpdateAppointment(ctx, updated, fromStatus); err != nil {
		return Appointment{}, 0, err
	}
	if toStatus != StatusCompleted {
		return updated, 0, nil
	}
	awarded, err := service.awardIfSettled(ctx, txStore, updated, nil)
	if err != nil {
		return Appointment{}, 0, err
	}
	return updated, awarded, nil
}

func (service *Service) buildTransition(toStatus AppointmentStatus, role ActorRole, actorID UserID, extras TransitionExtras) (Transition, error) {
	transition := Transition{
		To:      toStatus,
		ActorID: actorRef(actorID),
		Role:    role,
		At:      service.now(),
		Reason:  strings.TrimSpace(extras.Reason),
		Note:    strings.TrimSpace(extras.Note),
	}
	switch toStatus {
	case StatusCancelled:
		if role == RoleAdmin && transition.Reason == "" {
			return Transition{}, ErrCancellationReason
		}
	case StatusRescheduled:
		rescheduleTo, ok := parseRescheduleTime(strings.TrimSpace(extras.RescheduleTo), service.location())
		if !ok {
			return Transition{}, fmt.Errorf("%w: %q", ErrRescheduleTarget, extras.RescheduleTo)
		}
		transition.RescheduleTo = &rescheduleTo
		if rescheduleFrom, ok := parseRescheduleTime(strings.TrimSpace(extras.RescheduleFrom), service.location()); ok {
			transition.RescheduleFrom = &rescheduleFrom
		}
	}
	return transition, nil
}
