package booking

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

func fixedNowFunc() time.Time {
	return fixedNow
}

type testClock struct {
	now time.Time
}

func (clock *testClock) Now() time.Time {
	return clock.now
}

// stubStore keeps everything in memory and rolls back on a failed transaction.
type stubStore struct {
	bikes        map[BikeID]UserID
	garages      map[GarageID]bool
	appointments map[AppointmentID]Appointment
	invoices     map[InvoiceID]Invoice
	rewards      []RewardTransaction
	sequence     int
}

func newStubStore(test *testing.T) *stubStore {
	test.Helper()
	return &stubStore{
		bikes:        map[BikeID]UserID{},
		garages:      map[GarageID]bool{},
		appointments: map[AppointmentID]Appointment{},
		invoices:     map[InvoiceID]Invoice{},
	}
}

func (store *stubStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error {
	appointments := maps.Clone(store.appointments)
	invoices := maps.Clone(store.invoices)
	rewards := slices.Clone(store.rewards)
	if err := fn(ctx, store); err != nil {
		store.appointments = appointments
		store.invoices = invoices
		store.rewards = rewards
		return err
	}
	return nil
}

func (store *stubStore) BikeOwnedBy(_ context.Context, bikeID BikeID, customerID UserID) (bool, error) {
	owner, ok := store.bikes[bikeID]
	return ok && owner == customerID, nil
}

func (store *stubStore) GarageAcceptsBookings(_ context.Context, garageID GarageID) (bool, error) {
	return store.garages[garageID], nil
}

func (store *stubStore) CountOpenAppointments(_ context.Context, customerID UserID) (int, error) {
	count := 0
	for _, appointment := range store.appointments {
		if appointment.CustomerID == customerID && !appointment.Status.IsTerminal() {
			count++
		}
	}
	return count, nil
}

func (store *stubStore) CountActiveBySlot(_ context.Context, garageID *GarageID, date string) (map[string]int, error) {
	counts := map[string]int{}
	for _, appointment := range store.appointments {
		if garageID != nil && appointment.GarageID != *garageID {
			continue
		}
		if appointment.PreferredDate != date || !appointment.Status.IsActive() {
			continue
		}
		counts[appointment.TimeSlot]++
	}
	return counts, nil
}

func (store *stubStore) CreateAppointment(_ context.Context, appointment Appointment) (Appointment, error) {
	store.sequence++
	appointment.ID = AppointmentID{value: fmt.Sprintf("appt-%d", store.sequence)}
	store.appointments[appointment.ID] = appointment
	return appointment, nil
}

func (store *stubStore) GetAppointment(_ context.Context, appointmentID AppointmentID) (Appointment, error) {
	appointment, ok := store.appointments[appointmentID]
	if !ok {
		return Appointment{}, fmt.Errorf("%w: %s", ErrAppointmentNotFound, appointmentID)
	}
	return appointment, nil
}

func (store *stubStore) UpdateAppointment(_ context.Context, appointment Appointment, expected AppointmentStatus) error {
	current, ok := store.appointments[appointment.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAppointmentNotFound, appointment.ID)
	}
	if current.Status != expected {
		return fmt.Errorf("%w: %s", ErrConcurrentUpdate, appointment.ID)
	}
	store.appointments[appointment.ID] = appointment
	return nil
}

func (store *stubStore) ListStaleRequested(_ context.Context, cutoff time.Time) ([]AppointmentID, error) {
	var stale []AppointmentID
	for _, appointment := range store.appointments {
		if appointment.Status == StatusRequested && appointment.CreatedAt.Before(cutoff) {
			stale = append(stale, appointment.ID)
		}
	}
	sort.Slice(stale, func(left, right int) bool { return stale[left].String() < stale[right].String() })
	return stale, nil
}

func (store *stubStore) CreateInvoice(_ context.Context, invoice Invoice) (Invoice, error) {
	for _, existing := range store.invoices {
		if existing.AppointmentID == invoice.AppointmentID {
			return Invoice{}, fmt.Errorf("%w: %s", ErrInvoiceExists, invoice.AppointmentID)
		}
	}
	store.sequence++
	invoice.ID = InvoiceID{value: fmt.Sprintf("inv-%d", store.sequence)}
	invoice.Items = slices.Clone(invoice.Items)
	store.invoices[invoice.ID] = invoice
	return invoice, nil
}

func (store *stubStore) GetInvoice(_ context.Context, invoiceID InvoiceID) (Invoice, error) {
	invoice, ok := store.invoices[invoiceID]
	if !ok {
		return Invoice{}, fmt.Errorf("%w: %s", ErrInvoiceNotFound, invoiceID)
	}
	return invoice, nil
}

func (store *stubStore) FindInvoiceByAppointment(_ context.Context, appointmentID AppointmentID) (Invoice, bool, error) {
	for _, invoice := range store.invoices {
		if invoice.AppointmentID == appointmentID {
			return invoice, true, nil
		}
	}
	return Invoice{}, false, nil
}

func (store *stubStore) UpdateInvoice(_ context.Context, invoice Invoice, expected InvoiceStatus) error {
	current, ok := store.invoices[invoice.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvoiceNotFound, invoice.ID)
	}
	if current.Status != expected {
		return fmt.Errorf("%w: %s", ErrConcurrentUpdate, invoice.ID)
	}
	invoice.Items = current.Items
	store.invoices[invoice.ID] = invoice
	return nil
}

func (store *stubStore) ReplaceInvoiceItems(_ context.Context, invoiceID InvoiceID, items []InvoiceItem, _ time.Time) error {
	current, ok := store.invoices[invoiceID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvoiceNotFound, invoiceID)
	}
	current.Items = slices.Clone(items)
	store.invoices[invoiceID] = current
	return nil
}

func (store *stubStore) ListInvoicesByStatus(_ context.Context, status InvoiceStatus) ([]Invoice, error) {
	var invoices []Invoice
	for _, invoice := range store.invoices {
		if invoice.Status == status {
			invoices = append(invoices, invoice)
		}
	}
	sort.Slice(invoices, func(left, right int) bool { return invoices[left].UpdatedAt.After(invoices[right].UpdatedAt) })
	return invoices, nil
}

func (store *stubStore) InsertRewardIfAbsent(_ context.Context, transaction RewardTransaction) (bool, error) {
	for _, existing := range store.rewards {
		if existing.UserID != transaction.UserID || existing.Type != transaction.Type {
			continue
		}
		if existing.AppointmentID != nil && transaction.AppointmentID != nil && *existing.AppointmentID == *transaction.AppointmentID {
			return false, nil
		}
	}
	store.sequence++
	transaction.ID = fmt.Sprintf("reward-%d", store.sequence)
	store.rewards = append(store.rewards, transaction)
	return true, nil
}

func (store *stubStore) SumRewardPoints(_ context.Context, userID UserID, rewardType RewardType) (int64, error) {
	var total int64
	for _, transaction := range store.rewards {
		if transaction.UserID == userID && transaction.Type == rewardType {
			total += transaction.Points
		}
	}
	return total, nil
}

func (store *stubStore) ListRewardTransactions(_ context.Context, userID UserID, limit int) ([]RewardTransaction, error) {
	var transactions []RewardTransaction
	for index := len(store.rewards) - 1; index >= 0 && len(transactions) < limit; index-- {
		if store.rewards[index].UserID == userID {
			transactions = append(transactions, store.rewards[index])
		}
	}
	return transactions, nil
}

func (store *stubStore) rewardRows(userID UserID, rewardType RewardType) []RewardTransaction {
	var rows []RewardTransaction
	for _, transaction := range store.rewards {
		if transaction.UserID == userID && transaction.Type == rewardType {
			rows = append(rows, transaction)
		}
	}
	return rows
}

// seedAppointment stores an appointment directly, bypassing admission.
func (store *stubStore) seedAppointment(test *testing.T, appointment Appointment) Appointment {
	test.Helper()
	if appointment.CreatedAt.IsZero() {
		appointment.CreatedAt = fixedNow
	}
	created, err := store.CreateAppointment(context.Background(), appointment)
	if err != nil {
		test.Fatalf("seed appointment: %v", err)
	}
	return created
}

func (store *stubStore) seedInvoice(test *testing.T, invoice Invoice) Invoice {
	test.Helper()
	created, err := store.CreateInvoice(context.Background(), invoice)
	if err != nil {
		test.Fatalf("seed invoice: %v", err)
	}
	return created
}

func (store *stubStore) seedReward(test *testing.T, userID UserID, appointmentID *AppointmentID, rewardType RewardType, points int64) {
	test.Helper()
	if _, err := store.InsertRewardIfAbsent(context.Background(), RewardTransaction{
		UserID:        userID,
		AppointmentID: appointmentID,
		Type:          rewardType,
		Points:        points,
		CreatedAt:     fixedNow,
	}); err != nil {
		test.Fatalf("seed reward: %v", err)
	}
}

func mustNewService(test *testing.T, store Store, options ...ServiceOption) *Service {
	test.Helper()
	clock := &testClock{now: fixedNow}
	allOptions := append([]ServiceOption{WithConfig(Config{Location: time.UTC})}, options...)
	service, err := NewService(store, clock.Now, allOptions...)
	if err != nil {
		test.Fatalf("new service: %v", err)
	}
	return service
}

func mustUserID(test *testing.T, raw string) UserID {
	test.Helper()
	userID, err := NewUserID(raw)
	if err != nil {
		test.Fatalf("user id: %v", err)
	}
	return userID
}

func mustBikeID(test *testing.T, raw string) BikeID {
	test.Helper()
	bikeID, err := NewBikeID(raw)
	if err != nil {
		test.Fatalf("bike id: %v", err)
	}
	return bikeID
}

func mustGarageID(test *testing.T, raw string) GarageID {
	test.Helper()
	garageID, err := NewGarageID(raw)
	if err != nil {
		test.Fatalf("garage id: %v", err)
	}
	return garageID
}

func mustDecimal(test *testing.T, raw string) decimal.Decimal {
	test.Helper()
	value, err := decimal.NewFromString(raw)
	if err != nil {
		test.Fatalf("decimal %q: %v", raw, err)
	}
	return value
}

func priceInput(test *testing.T, description string, unitPrice string, quantity int) InvoiceItemInput {
	test.Helper()
	return InvoiceItemInput{
		Description: description,
		UnitPrice:   decimal.NewNullDecimal(mustDecimal(test, unitPrice)),
		Quantity:    quantity,
	}
}

func assertDecimal(test *testing.T, label string, got decimal.Decimal, want string) {
	test.Helper()
	if !got.Equal(mustDecimal(test, want)) {
		test.Fatalf("expected %s %s, got %s", label, want, got)
	}
}
