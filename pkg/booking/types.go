package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// UserID identifies a customer, an administrator, or any other actor.
type UserID struct {
	value string
}

// AppointmentID identifies an appointment.
type AppointmentID struct {
	value string
}

// InvoiceID identifies an invoice.
type InvoiceID struct {
	value string
}

// BikeID identifies a registered bike.
type BikeID struct {
	value string
}

// GarageID identifies a garage.
type GarageID struct {
	value string
}

// NewUserID validates and normalizes a user id.
func NewUserID(raw string) (UserID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return UserID{}, fmt.Errorf("%w: empty value", ErrInvalidUserID)
	}
	return UserID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id UserID) String() string {
	return id.value
}

// IsZero reports whether the id is unset.
func (id UserID) IsZero() bool {
	return id.value == ""
}

// NewAppointmentID validates and normalizes an appointment id.
func NewAppointmentID(raw string) (AppointmentID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return AppointmentID{}, fmt.Errorf("%w: empty value", ErrInvalidAppointmentID)
	}
	return AppointmentID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id AppointmentID) String() string {
	return id.value
}

// NewInvoiceID validates and normalizes an invoice id.
func NewInvoiceID(raw string) (InvoiceID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return InvoiceID{}, fmt.Errorf("%w: empty value", ErrInvalidInvoiceID)
	}
	return InvoiceID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id InvoiceID) String() string {
	return id.value
}

// NewBikeID validates and normalizes a bike id.
func NewBikeID(raw string) (BikeID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return BikeID{}, fmt.Errorf("%w: empty value", ErrInvalidBikeID)
	}
	return BikeID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id BikeID) String() string {
	return id.value
}

// NewGarageID validates and normalizes a garage id.
func NewGarageID(raw string) (GarageID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return GarageID{}, fmt.Errorf("%w: empty value", ErrInvalidGarageID)
	}
	return GarageID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id GarageID) String() string {
	return id.value
}

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusDraft       AppointmentStatus = "DRAFT"
	StatusRequested   AppointmentStatus = "REQUESTED"
	StatusConfirmed   AppointmentStatus = "CONFIRMED"
	StatusRejected    AppointmentStatus = "REJECTED"
	StatusCancelled   AppointmentStatus = "CANCELLED"
	StatusRescheduled AppointmentStatus = "RESCHEDULED"
	StatusCompleted   AppointmentStatus = "COMPLETED"
	StatusNoShow      AppointmentStatus = "NO_SHOW"
	StatusExpired     AppointmentStatus = "EXPIRED"
)

// legacyStatusPending is the persisted spelling older rows use for REQUESTED.
const legacyStatusPending = "PENDING"

var appointmentStatuses = map[AppointmentStatus]struct{}{
	StatusDraft:       {},
	StatusRequested:   {},
	StatusConfirmed:   {},
	StatusRejected:    {},
	StatusCancelled:   {},
	StatusRescheduled: {},
	StatusCompleted:   {},
	StatusNoShow:      {},
	StatusExpired:     {},
}

// ParseAppointmentStatus parses a stored or requested status. PENDING reads as REQUESTED.
func ParseAppointmentStatus(raw string) (AppointmentStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	if normalized == legacyStatusPending {
		return StatusRequested, nil
	}
	status := AppointmentStatus(normalized)
	if _, ok := appointmentStatuses[status]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidAppointmentStatus, raw)
	}
	return status, nil
}

// String returns the status value.
func (status AppointmentStatus) String() string {
	return string(status)
}

// IsActive reports whether the status holds a slot.
func (status AppointmentStatus) IsActive() bool {
	switch status {
	case StatusRequested, StatusConfirmed, StatusRescheduled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are possible.
func (status AppointmentStatus) IsTerminal() bool {
	switch status {
	case StatusRejected, StatusCancelled, StatusCompleted, StatusNoShow, StatusExpired:
		return true
	default:
		return false
	}
}

// ActiveStatuses lists the statuses counted toward slot occupancy.
func ActiveStatuses() []AppointmentStatus {
	return []AppointmentStatus{StatusRequested, StatusConfirmed, StatusRescheduled}
}

// OpenStatuses lists the non-terminal statuses.
func OpenStatuses() []AppointmentStatus {
	return []AppointmentStatus{StatusDraft, StatusRequested, StatusConfirmed, StatusRescheduled}
}

// StoredStatusValues returns every persisted spelling of the given statuses,
// including the legacy alias of REQUESTED.
func StoredStatusValues(statuses ...AppointmentStatus) []string {
	values := make([]string, 0, len(statuses)+1)
	for _, status := range statuses {
		values = append(values, status.String())
		if status == StatusRequested {
			values = append(values, legacyStatusPending)
		}
	}
	return values
}

// ActorRole is the role a caller acts in for one appointment.
type ActorRole string

const (
	RoleCustomer ActorRole = "CUSTOMER"
	RoleProvider ActorRole = "PROVIDER"
	RoleAdmin    ActorRole = "ADMIN"
	RoleSystem   ActorRole = "SYSTEM"
)

// ParseActorRole parses a stored actor role.
func ParseActorRole(raw string) (ActorRole, error) {
	role := ActorRole(strings.ToUpper(strings.TrimSpace(raw)))
	switch role {
	case RoleCustomer, RoleProvider, RoleAdmin, RoleSystem:
		return role, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidActorRole, raw)
	}
}

// String returns the role value.
func (role ActorRole) String() string {
	return string(role)
}

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceDraft          InvoiceStatus = "DRAFT"
	InvoiceIssued         InvoiceStatus = "ISSUED"
	InvoicePaymentPending InvoiceStatus = "PAYMENT_PENDING"
	InvoicePaid           InvoiceStatus = "PAID"
	InvoiceCancelled      InvoiceStatus = "CANCELLED"
)

// ParseInvoiceStatus parses an invoice status.
func ParseInvoiceStatus(raw string) (InvoiceStatus, error) {
	status := InvoiceStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch status {
	case InvoiceDraft, InvoiceIssued, InvoicePaymentPending, InvoicePaid, InvoiceCancelled:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidInvoiceStatus, raw)
	}
}

// String returns the status value.
func (status InvoiceStatus) String() string {
	return string(status)
}

// RewardType classifies a reward ledger row.
type RewardType string

const (
	RewardEarn   RewardType = "EARN"
	RewardRedeem RewardType = "REDEEM"
	RewardAdjust RewardType = "ADJUST"
)

// ParseRewardType parses a reward type.
func ParseRewardType(raw string) (RewardType, error) {
	rewardType := RewardType(strings.ToUpper(strings.TrimSpace(raw)))
	switch rewardType {
	case RewardEarn, RewardRedeem, RewardAdjust:
		return rewardType, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRewardType, raw)
	}
}

// String returns the type value.
func (rewardType RewardType) String() string {
	return string(rewardType)
}

// HistoryEntry is one immutable record in an appointment's status history.
type HistoryEntry struct {
	From    AppointmentStatus
	To      AppointmentStatus
	ActorID *UserID
	Role    ActorRole
	At      time.Time
	Reason  string
	Note    string
}

// Appointment is a customer's service request at a garage.
type Appointment struct {
	ID                 AppointmentID
	CustomerID         UserID
	BikeID             BikeID
	GarageID           GarageID
	Odometer           int
	ServiceType        string
	PreferredDate      string
	TimeSlot           string
	Notes              string
	QuotedPrice        decimal.NullDecimal
	Status             AppointmentStatus
	History            []HistoryEntry
	DecidedBy          *UserID
	DecidedAt          *time.Time
	CancellationReason string
	RescheduleFrom     *time.Time
	RescheduleTo       *time.Time
	InternalNotes      string
	UpdatedBy          *UserID
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// InvoiceItem is one line of an invoice.
type InvoiceItem struct {
	Description string
	UnitPrice   decimal.Decimal
	Quantity    int
	LineTotal   decimal.Decimal
}

// Invoice is the bill for one appointment.
type Invoice struct {
	ID             InvoiceID
	AppointmentID  AppointmentID
	Status         InvoiceStatus
	Items          []InvoiceItem
	Subtotal       decimal.Decimal
	VATRate        decimal.Decimal
	VATAmount      decimal.Decimal
	Total          decimal.Decimal
	RedeemedPoints int64
	RedeemedAmount decimal.Decimal
	PaidAmount     decimal.NullDecimal
	IssuedAt       *time.Time
	PaidAt         *time.Time
	CancelledAt    *time.Time
	CreatedBy      *UserID
	UpdatedBy      *UserID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RewardTransaction is one append-only reward ledger row.
type RewardTransaction struct {
	ID            string
	UserID        UserID
	AppointmentID *AppointmentID
	Type          RewardType
	Points        int64
	Note          string
	CreatedAt     time.Time
}

// RewardBalance is derived from the ledger on demand.
type RewardBalance struct {
	Balance  int64
	Earned   int64
	Redeemed int64
}

// Caller is the authenticated party invoking an operation.
type Caller struct {
	UserID UserID
	Admin  bool
}

// TransitionExtras carries the optional inputs of an appointment transition.
// Reschedule timestamps are raw strings parsed in the service's location.
type TransitionExtras struct {
	Reason         string
	Note           string
	RescheduleFrom string
	RescheduleTo   string
}

// AppointmentRequest is a customer's booking input.
type AppointmentRequest struct {
	BikeID        string
	GarageID      string
	Odometer      int
	ServiceType   string
	PreferredDate string
	TimeSlot      string
	Notes         string
}

// InvoiceItemInput is an unvalidated invoice line. A missing unit price drops the line.
type InvoiceItemInput struct {
	Description string
	UnitPrice   decimal.NullDecimal
	Quantity    int
}

// SlotAvailability reports per-slot occupancy for one date.
type SlotAvailability struct {
	GarageID   *GarageID
	Date       string
	MaxPerSlot int
	Counts     map[string]int
}
