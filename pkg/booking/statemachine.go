package booking

import (
	"fmt"
	"slices"
	"time"
)

type transitionKey struct {
	from AppointmentStatus
	to   AppointmentStatus
}

var transitionRoles = map[transitionKey][]ActorRole{
	{StatusDraft, StatusRequested}:       {RoleCustomer},
	{StatusRequested, StatusConfirmed}:   {RoleAdmin, RoleProvider},
	{StatusRequested, StatusRejected}:    {RoleAdmin, RoleProvider},
	{StatusRequested, StatusCancelled}:   {RoleAdmin, RoleCustomer},
	{StatusRequested, StatusExpired}:     {RoleSystem},
	{StatusConfirmed, StatusCancelled}:   {RoleAdmin, RoleCustomer, RoleProvider},
	{StatusConfirmed, StatusRescheduled}: {RoleAdmin, RoleProvider},
	{StatusConfirmed, StatusNoShow}:      {RoleAdmin, RoleProvider},
	{StatusConfirmed, StatusCompleted}:   {RoleAdmin, RoleProvider},
	{StatusRescheduled, StatusConfirmed}: {RoleProvider},
	{StatusRescheduled, StatusCancelled}: {RoleAdmin, RoleCustomer},
}

// CanTransition reports whether role may move an appointment from one status to another.
// Pairs missing from the table fail with ErrInvalidTransition; a listed pair the role
// may not take fails with ErrForbiddenTransition.
func CanTransition(from AppointmentStatus, to AppointmentStatus, role ActorRole) error {
	roles, ok := transitionRoles[transitionKey{from: from, to: to}]
	if !ok {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	}
	if !slices.Contains(roles, role) {
		return fmt.Errorf("%w: %s may not move %s to %s", ErrForbiddenTransition, role, from, to)
	}
	return nil
}

// ResolveActorRole returns the role caller holds on appointment, or false when the
// caller is neither an administrator nor the appointment's customer.
func ResolveActorRole(caller Caller, appointment Appointment) (ActorRole, bool) {
	if caller.Admin {
		return RoleAdmin, true
	}
	if !caller.UserID.IsZero() && caller.UserID == appointment.CustomerID {
		return RoleCustomer, true
	}
	return "", false
}

// Transition is a validated status change ready to be applied.
type Transition struct {
	To             AppointmentStatus
	ActorID        *UserID
	Role           ActorRole
	At             time.Time
	Reason         string
	Note           string
	RescheduleFrom *time.Time
	RescheduleTo   *time.Time
}

// ApplyTransition returns appointment moved to transition.To with exactly one
// history entry appended. It does not check the transition table.
func ApplyTransition(appointment Appointment, transition Transition, location *time.Location) Appointment {
	from := appointment.Status
	at := transition.At

	appointment.Status = transition.To
	appointment.UpdatedAt = at
	appointment.UpdatedBy = transition.ActorID

	switch transition.To {
	case StatusConfirmed, StatusRejected:
		appointment.DecidedBy = transition.ActorID
		appointment.DecidedAt = &at
	case StatusCancelled:
		appointment.CancellationReason = transition.Reason
	case StatusRescheduled:
		rescheduleFrom := transition.RescheduleFrom
		if rescheduleFrom == nil {
			if slotTime, err := SlotTime(appointment.PreferredDate, appointment.TimeSlot, location); err == nil {
				rescheduleFrom = &slotTime
			}
		}
		appointment.RescheduleFrom = rescheduleFrom
		appointment.RescheduleTo = transition.RescheduleTo
	}

	if transition.Role == RoleAdmin && transition.Note != "" {
		appointment.InternalNotes = transition.Note
	}

	history := make([]HistoryEntry, len(appointment.History), len(appointment.History)+1)
	copy(history, appointment.History)
	appointment.History = append(history, HistoryEntry{
		From:    from,
		To:      transition.To,
		ActorID: transition.ActorID,
		Role:    transition.Role,
		At:      at,
		Reason:  transition.Reason,
		Note:    transition.Note,
	})
	return appointment
}

var rescheduleLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// parseRescheduleTime accepts RFC 3339 or a local date-time in location.
func parseRescheduleTime(raw string, location *time.Location) (time.Time, bool) {
	for _, layout := range rescheduleLayouts {
		parsed, err := time.ParseInLocation(layout, raw, location)
		if err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
