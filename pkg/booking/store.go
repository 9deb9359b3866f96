package booking

import (
	"context"
	"time"
)

// Store persists appointments, invoices and the reward ledger.
//
// Lookups return errors wrapping ErrAppointmentNotFound or ErrInvoiceNotFound
// when the row is absent. Status values read back are already normalized.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error

	BikeOwnedBy(ctx context.Context, bikeID BikeID, customerID UserID) (bool, error)
	GarageAcceptsBookings(ctx context.Context, garageID GarageID) (bool, error)

	// CountOpenAppointments counts the customer's non-terminal appointments.
	CountOpenAppointments(ctx context.Context, customerID UserID) (int, error)
	// CountActiveBySlot maps time slot to active appointments on date; a nil garage spans all garages.
	CountActiveBySlot(ctx context.Context, garageID *GarageID, date string) (map[string]int, error)
	CreateAppointment(ctx context.Context, appointment Appointment) (Appointment, error)
	GetAppointment(ctx context.Context, appointmentID AppointmentID) (Appointment, error)
	// UpdateAppointment writes appointment only while its stored status is still expected;
	// otherwise it returns an error wrapping ErrConcurrentUpdate.
	UpdateAppointment(ctx context.Context, appointment Appointment, expected AppointmentStatus) error
	// ListStaleRequested returns REQUESTED appointments created before cutoff.
	ListStaleRequested(ctx context.Context, cutoff time.Time) ([]AppointmentID, error)

	// CreateInvoice stores invoice and its items; a second invoice for the same
	// appointment returns an error wrapping ErrInvoiceExists.
	CreateInvoice(ctx context.Context, invoice Invoice) (Invoice, error)
	GetInvoice(ctx context.Context, invoiceID InvoiceID) (Invoice, error)
	FindInvoiceByAppointment(ctx context.Context, appointmentID AppointmentID) (Invoice, bool, error)
	// UpdateInvoice writes invoice fields while the stored status is still expected;
	// otherwise it returns an error wrapping ErrConcurrentUpdate. Items are not touched.
	UpdateInvoice(ctx context.Context, invoice Invoice, expected InvoiceStatus) error
	// ReplaceInvoiceItems deletes every item of the invoice and inserts items
	// stamped with createdAt.
	ReplaceInvoiceItems(ctx context.Context, invoiceID InvoiceID, items []InvoiceItem, createdAt time.Time) error
	ListInvoicesByStatus(ctx context.Context, status InvoiceStatus) ([]Invoice, error)

	// InsertRewardIfAbsent inserts transaction unless a row with the same user,
	// appointment and type exists. It reports whether a row was written.
	InsertRewardIfAbsent(ctx context.Context, transaction RewardTransaction) (bool, error)
	SumRewardPoints(ctx context.Context, userID UserID, rewardType RewardType) (int64, error)
	ListRewardTransactions(ctx context.Context, userID UserID, limit int) ([]RewardTransaction, error)
}
