package booking

import (
	"errors"
	"slices"
	"testing"
	"time"
)

var (
	allStatuses = []AppointmentStatus{
		StatusDraft, StatusRequested, StatusConfirmed, StatusRejected, StatusCancelled,
		StatusRescheduled, StatusCompleted, StatusNoShow, StatusExpired,
	}
	allRoles = []ActorRole{RoleCustomer, RoleProvider, RoleAdmin, RoleSystem}
)

func TestCanTransitionRejectsPairsOutsideTable(test *testing.T) {
	test.Parallel()
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			if _, listed := transitionRoles[transitionKey{from: from, to: to}]; listed {
				continue
			}
			for _, role := range allRoles {
				err := CanTransition(from, to, role)
				if !errors.Is(err, ErrInvalidTransition) {
					test.Fatalf("%s->%s as %s: expected invalid transition, got %v", from, to, role, err)
				}
			}
		}
	}
}

func TestCanTransitionGatesListedPairsByRole(test *testing.T) {
	test.Parallel()
	for key, roles := range transitionRoles {
		for _, role := range allRoles {
			err := CanTransition(key.from, key.to, role)
			if slices.Contains(roles, role) {
				if err != nil {
					test.Fatalf("%s->%s as %s: expected allowed, got %v", key.from, key.to, role, err)
				}
				continue
			}
			if !errors.Is(err, ErrForbiddenTransition) {
				test.Fatalf("%s->%s as %s: expected forbidden, got %v", key.from, key.to, role, err)
			}
		}
	}
}

func TestTerminalStatusesHaveNoOutgoingTransitions(test *testing.T) {
	test.Parallel()
	for key := range transitionRoles {
		if key.from.IsTerminal() {
			test.Fatalf("terminal status %s has outgoing transition to %s", key.from, key.to)
		}
	}
}

func TestResolveActorRole(test *testing.T) {
	test.Parallel()
	owner := mustUserID(test, "owner")
	appointment := Appointment{CustomerID: owner}

	testCases := []struct {
		name     string
		caller   Caller
		wantRole ActorRole
		wantOK   bool
	}{
		{name: "admin", caller: Caller{UserID: mustUserID(test, "staff"), Admin: true}, wantRole: RoleAdmin, wantOK: true},
		{name: "owner", caller: Caller{UserID: owner}, wantRole: RoleCustomer, wantOK: true},
		{name: "stranger", caller: Caller{UserID: mustUserID(test, "stranger")}, wantOK: false},
		{name: "anonymous", caller: Caller{}, wantOK: false},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			role, ok := ResolveActorRole(testCase.caller, appointment)
			if ok != testCase.wantOK || role != testCase.wantRole {
				test.Fatalf("expected (%q, %v), got (%q, %v)", testCase.wantRole, testCase.wantOK, role, ok)
			}
		})
	}
}

func TestApplyTransitionAppendsOneHistoryEntryPerCall(test *testing.T) {
	test.Parallel()
	customer := mustUserID(test, "customer")
	admin := mustUserID(test, "admin")
	draft := Appointment{CustomerID: customer, Status: StatusDraft, PreferredDate: "2026-03-12", TimeSlot: "10:00"}

	steps := []Transition{
		{To: StatusRequested, ActorID: &customer, Role: RoleCustomer, At: fixedNow},
		{To: StatusConfirmed, ActorID: &admin, Role: RoleAdmin, At: fixedNow.Add(time.Hour)},
		{To: StatusCompleted, ActorID: &admin, Role: RoleAdmin, At: fixedNow.Add(2 * time.Hour)},
	}
	current := draft
	var previous []HistoryEntry
	for index, step := range steps {
		next := ApplyTransition(current, step, time.UTC)
		if len(next.History) != index+1 {
			test.Fatalf("step %d: expected %d history entries, got %d", index, index+1, len(next.History))
		}
		for position, entry := range previous {
			if next.History[position] != entry {
				test.Fatalf("step %d: history entry %d changed from %+v to %+v", index, position, entry, next.History[position])
			}
		}
		last := next.History[index]
		if last.From != current.Status || last.To != step.To || last.Role != step.Role || !last.At.Equal(step.At) {
			test.Fatalf("step %d: unexpected history entry %+v", index, last)
		}
		if len(current.History) != index {
			test.Fatalf("step %d: input history mutated to %d entries", index, len(current.History))
		}
		previous = next.History
		current = next
	}
	if current.Status != StatusCompleted {
		test.Fatalf("expected COMPLETED, got %s", current.Status)
	}
}

func TestApplyTransitionRecordsStatusSpecificFields(test *testing.T) {
	test.Parallel()
	admin := mustUserID(test, "admin")
	customer := mustUserID(test, "customer")
	base := Appointment{CustomerID: customer, Status: StatusRequested, PreferredDate: "2026-03-12", TimeSlot: "10:30"}

	confirmed := ApplyTransition(base, Transition{To: StatusConfirmed, ActorID: &admin, Role: RoleAdmin, At: fixedNow, Note: "bring spare chain"}, time.UTC)
	if confirmed.DecidedBy == nil || *confirmed.DecidedBy != admin || confirmed.DecidedAt == nil || !confirmed.DecidedAt.Equal(fixedNow) {
		test.Fatalf("expected decision recorded, got %+v", confirmed)
	}
	if confirmed.InternalNotes != "bring spare chain" {
		test.Fatalf("expected admin note stored, got %q", confirmed.InternalNotes)
	}

	customerNote := ApplyTransition(base, Transition{To: StatusCancelled, ActorID: &customer, Role: RoleCustomer, At: fixedNow, Note: "visible", Reason: "travelling"}, time.UTC)
	if customerNote.InternalNotes != "" {
		test.Fatalf("customer note must not become internal notes, got %q", customerNote.InternalNotes)
	}
	if customerNote.CancellationReason != "travelling" {
		test.Fatalf("expected cancellation reason, got %q", customerNote.CancellationReason)
	}

	target := time.Date(2026, time.March, 14, 11, 0, 0, 0, time.UTC)
	rescheduled := ApplyTransition(confirmed, Transition{To: StatusRescheduled, ActorID: &admin, Role: RoleAdmin, At: fixedNow, RescheduleTo: &target}, time.UTC)
	wantFrom := time.Date(2026, time.March, 12, 10, 30, 0, 0, time.UTC)
	if rescheduled.RescheduleFrom == nil || !rescheduled.RescheduleFrom.Equal(wantFrom) {
		test.Fatalf("expected reschedule-from %s, got %v", wantFrom, rescheduled.RescheduleFrom)
	}
	if rescheduled.RescheduleTo == nil || !rescheduled.RescheduleTo.Equal(target) {
		test.Fatalf("expected reschedule-to %s, got %v", target, rescheduled.RescheduleTo)
	}
}

func TestParseAppointmentStatusNormalizesLegacyPending(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		raw     string
		want    AppointmentStatus
		wantErr bool
	}{
		{raw: "PENDING", want: StatusRequested},
		{raw: " pending ", want: StatusRequested},
		{raw: "REQUESTED", want: StatusRequested},
		{raw: "no_show", want: StatusNoShow},
		{raw: "ARCHIVED", wantErr: true},
		{raw: "", wantErr: true},
	}
	for _, testCase := range testCases {
		status, err := ParseAppointmentStatus(testCase.raw)
		if testCase.wantErr {
			if !errors.Is(err, ErrInvalidAppointmentStatus) {
				test.Fatalf("%q: expected invalid status error, got %v", testCase.raw, err)
			}
			continue
		}
		if err != nil || status != testCase.want {
			test.Fatalf("%q: expected %s, got %s (%v)", testCase.raw, testCase.want, status, err)
		}
	}
}

func TestStoredStatusValuesIncludeLegacyAlias(test *testing.T) {
	test.Parallel()
	values := StoredStatusValues(ActiveStatuses()...)
	for _, want := range []string{"REQUESTED", "PENDING", "CONFIRMED", "RESCHEDULED"} {
		if !slices.Contains(values, want) {
			test.Fatalf("expected %s in %v", want, values)
		}
	}
	if len(values) != 4 {
		test.Fatalf("expected 4 stored values, got %v", values)
	}
}
