package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/motocare/pkg/booking"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	constraintInvoiceAppointment = "idx_invoices_appointment"
	garageStatusApproved         = "APPROVED"
	pgUniqueViolationCode        = "23505"
	sqliteConstraintCode         = 19
	sqliteConstraintUniqueCode   = 2067
	sqliteUniqueMessage          = "UNIQUE constraint failed"
	errorOperationStore          = "store"
	errorSubjectAppointment      = "appointment"
	errorSubjectBike             = "bike"
	errorSubjectGarage           = "garage"
	errorSubjectInvoice          = "invoice"
	errorSubjectInvoiceItem      = "invoice_item"
	errorSubjectReward           = "reward"
	errorCodeCount               = "count"
	errorCodeCreate              = "create"
	errorCodeDuplicate           = "duplicate"
	errorCodeGet                 = "get"
	errorCodeInsert              = "insert"
	errorCodeInvalid             = "invalid"
	errorCodeList                = "list"
	errorCodeLookup              = "lookup"
	errorCodeReplace             = "replace"
	errorCodeSum                 = "sum"
	errorCodeUpdate              = "update"
)

// Store implements booking.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates every table the store uses.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore booking.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

func (store *Store) BikeOwnedBy(ctx context.Context, bikeID booking.BikeID, customerID booking.UserID) (bool, error) {
	if !isUUID(bikeID.String()) {
		return false, nil
	}
	var count int64
	err := store.db.WithContext(ctx).
		Model(&Bike{}).
		Where("id = ? AND user_id = ?", bikeID.String(), customerID.String()).
		Count(&count).Error
	if err != nil {
		return false, wrapStoreError(errorSubjectBike, errorCodeLookup, err)
	}
	return count > 0, nil
}

func (store *Store) GarageAcceptsBookings(ctx context.Context, garageID booking.GarageID) (bool, error) {
	var count int64
	err := store.db.WithContext(ctx).
		Model(&Garage{}).
		Where("id = ? AND status = ? AND is_deleted = ?", garageID.String(), garageStatusApproved, false).
		Count(&count).Error
	if err != nil {
		return false, wrapStoreError(errorSubjectGarage, errorCodeLookup, err)
	}
	return count > 0, nil
}

func (store *Store) CountOpenAppointments(ctx context.Context, customerID booking.UserID) (int, error) {
	var count int64
	err := store.db.WithContext(ctx).
		Model(&Appointment{}).
		Where("user_id = ? AND status IN ?", customerID.String(), booking.StoredStatusValues(booking.OpenStatuses()...)).
		Count(&count).Error
	if err != nil {
		return 0, wrapStoreError(errorSubjectAppointment, errorCodeCount, err)
	}
	return int(count), nil
}

func (store *Store) CountActiveBySlot(ctx context.Context, garageID *booking.GarageID, date string) (map[string]int, error) {
	query := store.db.WithContext(ctx).
		Model(&Appointment{}).
		Select("time_slot, count(*) as total").
		Where("preferred_date = ? AND status IN ?", date, booking.StoredStatusValues(booking.ActiveStatuses()...))
	if garageID != nil {
		query = query.Where("garage_id = ?", garageID.String())
	}
	var rows []slotCount
	if err := query.Group("time_slot").Scan(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectAppointment, errorCodeCount, err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.TimeSlot] = int(row.Total)
	}
	return counts, nil
}

func (store *Store) CreateAppointment(ctx context.Context, appointment booking.Appointment) (booking.Appointment, error) {
	model := appointmentModel(appointment)
	model.ID = ""
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return booking.Appointment{}, wrapStoreError(errorSubjectAppointment, errorCodeCreate, err)
	}
	created, err := mapAppointment(model)
	if err != nil {
		return booking.Appointment{}, wrapStoreError(errorSubjectAppointment, errorCodeInvalid, err)
	}
	return created, nil
}

func (store *Store) GetAppointment(ctx context.Context, appointmentID booking.AppointmentID) (booking.Appointment, error) {
	if !isUUID(appointmentID.String()) {
		return booking.Appointment{}, wrapStoreError(errorSubjectAppointment, errorCodeGet, fmt.Errorf("%w: %s", booking.ErrAppointmentNotFound, appointmentID))
	}
	var model Appointment
	err := store.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", appointmentID.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return booking.Appointment{}, wrapStoreError(errorSubjectAppointment, errorCodeGet, fmt.Errorf("%w: %s", booking.ErrAppointmentNotFound, appointmentID))
		}
		return booking.Appointment{}, wrapStoreError(errorSubjectAppointment, errorCodeGet, err)
	}
	appointment, err := mapAppointment(model)
	if err != nil {
		return booking.Appointment{}, wrapStoreError(errorSubjectAppointment, errorCodeInvalid, err)
	}
	return appointment, nil
}

func (store *Store) UpdateAppointment(ctx context.Context, appointment booking.Appointment, expected booking.AppointmentStatus) error {
	model := appointmentModel(appointment)
	result := store.db.WithContext(ctx).
		Model(&Appointment{}).
		Where("id = ? AND status IN ?", model.ID, booking.StoredStatusValues(expected)).
		Updates(map[string]interface{}{
			"status":              model.Status,
			"status_history":      model.StatusHistory,
			"quoted_price":        model.QuotedPrice,
			"decided_by":          model.DecidedBy,
			"decided_at":          model.DecidedAt,
			"cancellation_reason": model.CancellationReason,
			"reschedule_from":     model.RescheduleFrom,
			"reschedule_to":       model.RescheduleTo,
			"internal_notes":      model.InternalNotes,
			"updated_by":          model.UpdatedBy,
			"updated_at":          model.UpdatedAt,
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectAppointment, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectAppointment, errorCodeUpdate, fmt.Errorf("%w: %s", booking.ErrConcurrentUpdate, appointment.ID))
	}
	return nil
}

func (store *Store) ListStaleRequested(ctx context.Context, cutoff time.Time) ([]booking.AppointmentID, error) {
	var rawIDs []string
	err := store.db.WithContext(ctx).
		Model(&Appointment{}).
		Where("status IN ? AND created_at < ?", booking.StoredStatusValues(booking.StatusRequested), cutoff.UTC()).
		Order("created_at ASC").
		Pluck("id", &rawIDs).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectAppointment, errorCodeList, err)
	}
	appointmentIDs := make([]booking.AppointmentID, 0, len(rawIDs))
	for _, rawID := range rawIDs {
		appointmentID, err := booking.NewAppointmentID(rawID)
		if err != nil {
			return nil, wrapStoreError(errorSubjectAppointment, errorCodeInvalid, err)
		}
		appointmentIDs = append(appointmentIDs, appointmentID)
	}
	return appointmentIDs, nil
}

func (store *Store) CreateInvoice(ctx context.Context, invoice booking.Invoice) (booking.Invoice, error) {
	model := invoiceModel(invoice)
	model.ID = ""
	err := store.db.WithContext(ctx).Omit(clause.Associations).Create(&model).Error
	if isInvoiceConflict(err) {
		return booking.Invoice{}, wrapStoreError(errorSubjectInvoice, errorCodeDuplicate, fmt.Errorf("%w: %s", booking.ErrInvoiceExists, invoice.AppointmentID))
	}
	if err != nil {
		return booking.Invoice{}, wrapStoreError(errorSubjectInvoice, errorCodeCreate, err)
	}
	items, err := store.insertItems(ctx, model.ID, invoice.Items, model.CreatedAt)
	if err != nil {
		return booking.Invoice{}, err
	}
	model.Items = items
	created, err := mapInvoice(model)
	if err != nil {
		return booking.Invoice{}, wrapStoreError(errorSubjectInvoice, errorCodeInvalid, err)
	}
	return created, nil
}

func (store *Store) GetInvoice(ctx context.Context, invoiceID booking.InvoiceID) (booking.Invoice, error) {
	if !isUUID(invoiceID.String()) {
		return booking.Invoice{}, wrapStoreError(errorSubjectInvoice, errorCodeGet, fmt.Errorf("%w: %s", booking.ErrInvoiceNotFound, invoiceID))
	}
	var model Invoice
	err := store.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items", orderItems).
		Where("id = ?", invoiceID.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return booking.Invoice{}, wrapStoreError(errorSubjectInvoice, errorCodeGet, fmt.Errorf("%w: %s", booking.ErrInvoiceNotFound, invoiceID))
		}
		return booking.Invoice{}, wrapStoreError(errorSubjectInvoice, errorCodeGet, err)
	}
	invoice, err := mapInvoice(model)
	if err != nil {
		return booking.Invoice{}, wrapStoreError(errorSubjectInvoice, errorCodeInvalid, err)
	}
	return invoice, nil
}

func (store *Store) FindInvoiceByAppointment(ctx context.Context, appointmentID booking.AppointmentID) (booking.Invoice, bool, error) {
	if !isUUID(appointmentID.String()) {
		return booking.Invoice{}, false, nil
	}
	var models []Invoice
	err := store.db.WithContext(ctx).
		Preload("Items", orderItems).
		Where("appointment_id = ?", appointmentID.String()).
		Limit(1).
		Find(&models).Error
	if err != nil {
		return booking.Invoice{}, false, wrapStoreError(errorSubjectInvoice, errorCodeLookup, err)
	}
	if len(models) == 0 {
		return booking.Invoice{}, false, nil
	}
	invoice, err := mapInvoice(models[0])
	if err != nil {
		return booking.Invoice{}, false, wrapStoreError(errorSubjectInvoice, errorCodeInvalid, err)
	}
	return invoice, true, nil
}

func (store *Store) UpdateInvoice(ctx context.Context, invoice booking.Invoice, expected booking.InvoiceStatus) error {
	model := invoiceModel(invoice)
	result := store.db.WithContext(ctx).
		Model(&Invoice{}).
		Where("id = ? AND status = ?", model.ID, expected.String()).
		Updates(map[string]interface{}{
			"status":          model.Status,
			"subtotal_amount": model.SubtotalAmount,
			"vat_rate":        model.VatRate,
			"vat_amount":      model.VatAmount,
			"total_amount":    model.TotalAmount,
			"redeemed_points": model.RedeemedPoints,
			"redeemed_amount": model.RedeemedAmount,
			"paid_amount":     model.PaidAmount,
			"issued_at":       model.IssuedAt,
			"paid_at":         model.PaidAt,
			"cancelled_at":    model.CancelledAt,
			"updated_by":      model.UpdatedBy,
			"updated_at":      model.UpdatedAt,
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectInvoice, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectInvoice, errorCodeUpdate, fmt.Errorf("%w: %s", booking.ErrConcurrentUpdate, invoice.ID))
	}
	return nil
}

func (store *Store) ReplaceInvoiceItems(ctx context.Context, invoiceID booking.InvoiceID, items []booking.InvoiceItem, createdAt time.Time) error {
	err := store.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID.String()).
		Delete(&InvoiceItem{}).Error
	if err != nil {
		return wrapStoreError(errorSubjectInvoiceItem, errorCodeReplace, err)
	}
	_, err = store.insertItems(ctx, invoiceID.String(), items, createdAt.UTC())
	return err
}

func (store *Store) ListInvoicesByStatus(ctx context.Context, status booking.InvoiceStatus) ([]booking.Invoice, error) {
	var models []Invoice
	err := store.db.WithContext(ctx).
		Preload("Items", orderItems).
		Where("status = ?", status.String()).
		Order("updated_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectInvoice, errorCodeList, err)
	}
	invoices := make([]booking.Invoice, 0, len(models))
	for _, model := range models {
		invoice, err := mapInvoice(model)
		if err != nil {
			return nil, wrapStoreError(errorSubjectInvoice, errorCodeInvalid, err)
		}
		invoices = append(invoices, invoice)
	}
	return invoices, nil
}

func (store *Store) InsertRewardIfAbsent(ctx context.Context, transaction booking.RewardTransaction) (bool, error) {
	model := RewardTransaction{
		UserID:    transaction.UserID.String(),
		Type:      transaction.Type.String(),
		Points:    transaction.Points,
		Note:      stringRef(transaction.Note),
		CreatedAt: transaction.CreatedAt.UTC(),
	}
	if transaction.AppointmentID != nil {
		model.AppointmentID = stringRef(transaction.AppointmentID.String())
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	result := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "appointment_id"}, {Name: "type"}},
			DoNothing: true,
		}).
		Create(&model)
	if result.Error != nil {
		return false, wrapStoreError(errorSubjectReward, errorCodeInsert, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (store *Store) SumRewardPoints(ctx context.Context, userID booking.UserID, rewardType booking.RewardType) (int64, error) {
	var sum sqlSum
	err := store.db.WithContext(ctx).
		Model(&RewardTransaction{}).
		Select("coalesce(sum(points),0) as total").
		Where("user_id = ? AND type = ?", userID.String(), rewardType.String()).
		Scan(&sum).Error
	if err != nil {
		return 0, wrapStoreError(errorSubjectReward, errorCodeSum, err)
	}
	return sum.Total, nil
}

func (store *Store) ListRewardTransactions(ctx context.Context, userID booking.UserID, limit int) ([]booking.RewardTransaction, error) {
	var rows []RewardTransaction
	err := store.db.WithContext(ctx).
		Where("user_id = ?", userID.String()).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectReward, errorCodeList, err)
	}
	transactions := make([]booking.RewardTransaction, 0, len(rows))
	for _, row := range rows {
		transaction, err := mapRewardTransaction(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectReward, errorCodeInvalid, err)
		}
		transactions = append(transactions, transaction)
	}
	return transactions, nil
}

func (store *Store) insertItems(ctx context.Context, invoiceID string, items []booking.InvoiceItem, createdAt time.Time) ([]InvoiceItem, error) {
	if len(items) == 0 {
		return nil, nil
	}
	models := make([]InvoiceItem, 0, len(items))
	for position, item := range items {
		models = append(models, InvoiceItem{
			InvoiceID:   invoiceID,
			Position:    position,
			Description: item.Description,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			LineTotal:   item.LineTotal,
			CreatedAt:   createdAt,
		})
	}
	if err := store.db.WithContext(ctx).Create(&models).Error; err != nil {
		return nil, wrapStoreError(errorSubjectInvoiceItem, errorCodeInsert, err)
	}
	return models, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return booking.WrapError(errorOperationStore, subject, code, err)
}

type sqlSum struct {
	Total int64
}

type slotCount struct {
	TimeSlot string
	Total    int64
}

func orderItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func appointmentModel(appointment booking.Appointment) Appointment {
	history := make([]HistoryEntryRecord, 0, len(appointment.History))
	for _, entry := range appointment.History {
		history = append(history, HistoryEntryRecord{
			From:   entry.From.String(),
			To:     entry.To.String(),
			By:     userRef(entry.ActorID),
			Role:   entry.Role.String(),
			At:     entry.At.UTC(),
			Reason: entry.Reason,
			Note:   entry.Note,
		})
	}
	return Appointment{
		ID:                 appointment.ID.String(),
		UserID:             appointment.CustomerID.String(),
		BikeID:             appointment.BikeID.String(),
		GarageID:           appointment.GarageID.String(),
		KmRunning:          appointment.Odometer,
		ServiceType:        appointment.ServiceType,
		PreferredDate:      appointment.PreferredDate,
		TimeSlot:           appointment.TimeSlot,
		Notes:              appointment.Notes,
		QuotedPrice:        appointment.QuotedPrice,
		Status:             appointment.Status.String(),
		StatusHistory:      history,
		DecidedBy:          userRef(appointment.DecidedBy),
		DecidedAt:          utcRef(appointment.DecidedAt),
		CancellationReason: stringRef(appointment.CancellationReason),
		RescheduleFrom:     utcRef(appointment.RescheduleFrom),
		RescheduleTo:       utcRef(appointment.RescheduleTo),
		UpdatedBy:          userRef(appointment.UpdatedBy),
		InternalNotes:      stringRef(appointment.InternalNotes),
		CreatedAt:          appointment.CreatedAt.UTC(),
		UpdatedAt:          appointment.UpdatedAt.UTC(),
	}
}

func mapAppointment(model Appointment) (booking.Appointment, error) {
	appointmentID, err := booking.NewAppointmentID(model.ID)
	if err != nil {
		return booking.Appointment{}, err
	}
	customerID, err := booking.NewUserID(model.UserID)
	if err != nil {
		return booking.Appointment{}, err
	}
	bikeID, err := booking.NewBikeID(model.BikeID)
	if err != nil {
		return booking.Appointment{}, err
	}
	garageID, err := booking.NewGarageID(model.GarageID)
	if err != nil {
		return booking.Appointment{}, err
	}
	status, err := booking.ParseAppointmentStatus(model.Status)
	if err != nil {
		return booking.Appointment{}, err
	}
	history := make([]booking.HistoryEntry, 0, len(model.StatusHistory))
	for _, record := range model.StatusHistory {
		entry, err := mapHistoryEntry(record)
		if err != nil {
			return booking.Appointment{}, err
		}
		history = append(history, entry)
	}
	decidedBy, err := parseUserRef(model.DecidedBy)
	if err != nil {
		return booking.Appointment{}, err
	}
	updatedBy, err := parseUserRef(model.UpdatedBy)
	if err != nil {
		return booking.Appointment{}, err
	}
	return booking.Appointment{
		ID:                 appointmentID,
		CustomerID:         customerID,
		BikeID:             bikeID,
		GarageID:           garageID,
		Odometer:           model.KmRunning,
		ServiceType:        model.ServiceType,
		PreferredDate:      model.PreferredDate,
		TimeSlot:           model.TimeSlot,
		Notes:              model.Notes,
		QuotedPrice:        model.QuotedPrice,
		Status:             status,
		History:            history,
		DecidedBy:          decidedBy,
		DecidedAt:          model.DecidedAt,
		CancellationReason: stringValue(model.CancellationReason),
		RescheduleFrom:     model.RescheduleFrom,
		RescheduleTo:       model.RescheduleTo,
		InternalNotes:      stringValue(model.InternalNotes),
		UpdatedBy:          updatedBy,
		CreatedAt:          model.CreatedAt,
		UpdatedAt:          model.UpdatedAt,
	}, nil
}

func mapHistoryEntry(record HistoryEntryRecord) (booking.HistoryEntry, error) {
	from, err := booking.ParseAppointmentStatus(record.From)
	if err != nil {
		return booking.HistoryEntry{}, err
	}
	to, err := booking.ParseAppointmentStatus(record.To)
	if err != nil {
		return booking.HistoryEntry{}, err
	}
	role, err := booking.ParseActorRole(record.Role)
	if err != nil {
		return booking.HistoryEntry{}, err
	}
	actorID, err := parseUserRef(record.By)
	if err != nil {
		return booking.HistoryEntry{}, err
	}
	return booking.HistoryEntry{
		From:    from,
		To:      to,
		ActorID: actorID,
		Role:    role,
		At:      record.At,
		Reason:  record.Reason,
		Note:    record.Note,
	}, nil
}

func invoiceModel(invoice booking.Invoice) Invoice {
	return Invoice{
		ID:             invoice.ID.String(),
		AppointmentID:  invoice.AppointmentID.String(),
		Status:         invoice.Status.String(),
		SubtotalAmount: invoice.Subtotal,
		VatRate:        invoice.VATRate,
		VatAmount:      invoice.VATAmount,
		TotalAmount:    invoice.Total,
		RedeemedPoints: invoice.RedeemedPoints,
		RedeemedAmount: invoice.RedeemedAmount,
		PaidAmount:     invoice.PaidAmount,
		IssuedAt:       utcRef(invoice.IssuedAt),
		PaidAt:         utcRef(invoice.PaidAt),
		CancelledAt:    utcRef(invoice.CancelledAt),
		CreatedBy:      userRef(invoice.CreatedBy),
		UpdatedBy:      userRef(invoice.UpdatedBy),
		CreatedAt:      invoice.CreatedAt.UTC(),
		UpdatedAt:      invoice.UpdatedAt.UTC(),
	}
}

func mapInvoice(model Invoice) (booking.Invoice, error) {
	invoiceID, err := booking.NewInvoiceID(model.ID)
	if err != nil {
		return booking.Invoice{}, err
	}
	appointmentID, err := booking.NewAppointmentID(model.AppointmentID)
	if err != nil {
		return booking.Invoice{}, err
	}
	status, err := booking.ParseInvoiceStatus(model.Status)
	if err != nil {
		return booking.Invoice{}, err
	}
	createdBy, err := parseUserRef(model.CreatedBy)
	if err != nil {
		return booking.Invoice{}, err
	}
	updatedBy, err := parseUserRef(model.UpdatedBy)
	if err != nil {
		return booking.Invoice{}, err
	}
	items := make([]booking.InvoiceItem, 0, len(model.Items))
	for _, item := range model.Items {
		items = append(items, booking.InvoiceItem{
			Description: item.Description,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			LineTotal:   item.LineTotal,
		})
	}
	return booking.Invoice{
		ID:             invoiceID,
		AppointmentID:  appointmentID,
		Status:         status,
		Items:          items,
		Subtotal:       model.SubtotalAmount,
		VATRate:        model.VatRate,
		VATAmount:      model.VatAmount,
		Total:          model.TotalAmount,
		RedeemedPoints: model.RedeemedPoints,
		RedeemedAmount: model.RedeemedAmount,
		PaidAmount:     model.PaidAmount,
		IssuedAt:       model.IssuedAt,
		PaidAt:         model.PaidAt,
		CancelledAt:    model.CancelledAt,
		CreatedBy:      createdBy,
		UpdatedBy:      updatedBy,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}, nil
}

func mapRewardTransaction(row RewardTransaction) (booking.RewardTransaction, error) {
	userID, err := booking.NewUserID(row.UserID)
	if err != nil {
		return booking.RewardTransaction{}, err
	}
	rewardType, err := booking.ParseRewardType(row.Type)
	if err != nil {
		return booking.RewardTransaction{}, err
	}
	var appointmentID *booking.AppointmentID
	if row.AppointmentID != nil {
		parsed, err := booking.NewAppointmentID(*row.AppointmentID)
		if err != nil {
			return booking.RewardTransaction{}, err
		}
		appointmentID = &parsed
	}
	return booking.RewardTransaction{
		ID:            row.ID,
		UserID:        userID,
		AppointmentID: appointmentID,
		Type:          rewardType,
		Points:        row.Points,
		Note:          stringValue(row.Note),
		CreatedAt:     row.CreatedAt,
	}, nil
}

func parseUserRef(raw *string) (*booking.UserID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	userID, err := booking.NewUserID(*raw)
	if err != nil {
		return nil, err
	}
	return &userID, nil
}

func userRef(userID *booking.UserID) *string {
	if userID == nil || userID.IsZero() {
		return nil
	}
	value := userID.String()
	return &value
}

func stringRef(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func utcRef(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	utc := value.UTC()
	return &utc
}

func isInvoiceConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode && pgErr.ConstraintName == constraintInvoiceAppointment
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code() == sqliteConstraintUniqueCode {
			return true
		}
		return sqliteErr.Code() == sqliteConstraintCode && strings.Contains(sqliteErr.Error(), sqliteUniqueMessage)
	}
	return false
}

// isUUID reports whether raw can match a uuid key. PostgreSQL rejects other
// values outright instead of matching no row.
func isUUID(raw string) bool {
	_, err := uuid.Parse(raw)
	return err == nil
}
