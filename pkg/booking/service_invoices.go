package booking

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// SetQuotedPrice sets the appointment's quoted price. The price is locked once an
// invoice is past DRAFT or carries items; an empty DRAFT invoice follows the new price.
func (service *Service) SetQuotedPrice(ctx context.Context, appointmentID AppointmentID, price decimal.Decimal, actorID UserID) (Appointment, error) {
	var updated Appointment
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		if err := validatePrice(price); err != nil {
			return err
		}
		appointment, err := txStore.GetAppointment(ctx, appointmentID)
		if err != nil {
			return err
		}
		invoice, found, err := txStore.FindInvoiceByAppointment(ctx, appointmentID)
		if err != nil {
			return err
		}
		if found && (invoice.Status != InvoiceDraft || len(invoice.Items) > 0) {
			return fmt.Errorf("%w: invoice %s is %s with %d items", ErrPriceLocked, invoice.ID, invoice.Status, len(invoice.Items))
		}
		now := service.now()
		appointment.QuotedPrice = decimal.NewNullDecimal(price)
		appointment.UpdatedAt = now
		appointment.UpdatedBy = actorRef(actorID)
		if err := txStore.UpdateAppointment(ctx, appointment, appointment.Status); err != nil {
			return err
		}
		updated = appointment
		if !found {
			return nil
		}
		invoice = applyTotals(invoice, CalculateInvoiceTotals(nil, decimal.Zero, price))
		invoice.UpdatedAt = now
		invoice.UpdatedBy = actorRef(actorID)
		return txStore.UpdateInvoice(ctx, invoice, InvoiceDraft)
	})
	service.logOperation(ctx, OperationLog{
		Operation:     operationSetQuotedPrice,
		UserID:        actorID,
		AppointmentID: &appointmentID,
		Error:         operationError,
	})
	if operationError != nil {
		return Appointment{}, operationError
	}
	return updated, nil
}

// CreateInvoice creates the single invoice of an appointment in initialStatus
// (DRAFT when empty). Invalid items are dropped; with none left the total is the
// quoted price.
func (service *Service) CreateInvoice(ctx context.Context, appointmentID AppointmentID, items []InvoiceItemInput, vatRate decimal.Decimal, initialStatus InvoiceStatus, actorID UserID) (Invoice, error) {
	if initialStatus == "" {
		initialStatus = InvoiceDraft
	}
	var created Invoice
	var awarded int64
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		if !slices.Contains(initialInvoiceStatuses, initialStatus) {
			return fmt.Errorf("%w: %q", ErrInvalidInitialStatus, initialStatus)
		}
		if err := validateVATRate(vatRate); err != nil {
			return err
		}
		if err := validateItemPrices(items); err != nil {
			return err
		}
		appointment, err := txStore.GetAppointment(ctx, appointmentID)
		if err != nil {
			return err
		}
		if !appointment.QuotedPrice.Valid {
			return fmt.Errorf("%w: %s", ErrQuotedPriceMissing, appointmentID)
		}
		if _, found, err := txStore.FindInvoiceByAppointment(ctx, appointmentID); err != nil {
			return err
		} else if found {
			return fmt.Errorf("%w: %s", ErrInvoiceExists, appointmentID)
		}
		normalized := NormalizeInvoiceItems(items)
		totals := CalculateInvoiceTotals(normalized, vatRate, appointment.QuotedPrice.Decimal)
		if requiresPositiveTotal(initialStatus) && !totals.Total.IsPositive() {
			return fmt.Errorf("%w: %s", ErrNonPositiveTotal, totals.Total)
		}
		now := service.now()
		invoice := applyTotals(Invoice{
			AppointmentID:  appointmentID,
			Status:         initialStatus,
			Items:          normalized,
			RedeemedAmount: decimal.Zero,
			CreatedBy:      actorRef(actorID),
			UpdatedBy:      actorRef(actorID),
			CreatedAt:      now,
			UpdatedAt:      now,
		}, totals)
		if initialStatus != InvoiceDraft {
			invoice.IssuedAt = timeRef(now)
		}
		if initialStatus == InvoicePaid {
			invoice.PaidAt = timeRef(now)
			invoice.PaidAmount = decimal.NewNullDecimal(invoice.Total)
		}
		created, err = txStore.CreateInvoice(ctx, invoice)
		if err != nil {
			return err
		}
		if initialStatus != InvoicePaid {
			return nil
		}
		awarded, err = service.awardIfSettled(ctx, txStore, appointment, &created)
		return err
	})
	logEntry := OperationLog{
		Operation:     operationCreateInvoice,
		UserID:        actorID,
		AppointmentID: &appointmentID,
		ToStatus:      initialStatus.String(),
		Points:        awarded,
		Error:         operationError,
	}
	if operationError == nil {
		invoiceID := created.ID
		logEntry.InvoiceID = &invoiceID
	}
	service.logOperation(ctx, logEntry)
	if operationError != nil {
		return Invoice{}, operationError
	}
	return created, nil
}

// EditInvoiceDraft replaces every item of a DRAFT invoice and recomputes its totals.
func (service *Service) EditInvoiceDraft(ctx context.Context, invoiceID InvoiceID, items []InvoiceItemInput, vatRate decimal.Decimal, actorID UserID) (Invoice, error) {
	var updated Invoice
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		if err := validateVATRate(vatRate); err != nil {
			return err
		}
		if err := validateItemPrices(items); err != nil {
			return err
		}
		invoice, err := txStore.GetInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}
		if invoice.Status != InvoiceDraft {
			return fmt.Errorf("%w: invoice %s is %s", ErrInvoiceNotDraft, invoiceID, invoice.Status)
		}
		normalized := NormalizeInvoiceItems(items)
		if len(normalized) == 0 {
			return ErrNoInvoiceItems
		}
		now := service.now()
		invoice = applyTotals(invoice, CalculateInvoiceTotals(normalized, vatRate, decimal.Zero))
		invoice.Items = normalized
		invoice.UpdatedAt = now
		invoice.UpdatedBy = actorRef(actorID)
		if err := txStore.ReplaceInvoiceItems(ctx, invoiceID, normalized, now); err != nil {
			return err
		}
		if err := txStore.UpdateInvoice(ctx, invoice, InvoiceDraft); err != nil {
			return err
		}
		updated = invoice
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationEditInvoiceDraft,
		UserID:    actorID,
		InvoiceID: &invoiceID,
		Error:     operationError,
	})
	if operationError != nil {
		return Invoice{}, operationError
	}
	return updated, nil
}

// TransitionInvoice moves an invoice along its lifecycle. Entering PAID commits the
// redemption (redeemPoints when given, else the provisional points stored by
// RequestPayment), fixes the paid amount and awards service points when the
// appointment is already COMPLETED.
func (service *Service) TransitionInvoice(ctx context.Context, invoiceID InvoiceID, toStatus InvoiceStatus, redeemPoints *int64, actorID UserID) (Invoice, error) {
	var updated Invoice
	var fromStatus InvoiceStatus
	var awarded int64
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		invoice, err := txStore.GetInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}
		fromStatus = invoice.Status
		if err := CanTransitionInvoice(fromStatus, toStatus); err != nil {
			return err
		}
		if requiresPositiveTotal(toStatus) && !invoice.Total.IsPositive() {
			return fmt.Errorf("%w: %s", ErrNonPositiveTotal, invoice.Total)
		}
		now := service.now()
		var appointment Appointment
		switch toStatus {
		case InvoiceIssued, InvoicePaymentPending:
			if invoice.IssuedAt == nil {
				invoice.IssuedAt = timeRef(now)
			}
			if fromStatus == InvoicePaymentPending {
				invoice.RedeemedPoints = 0
				invoice.RedeemedAmount = decimal.Zero
				invoice.PaidAmount = decimal.NullDecimal{}
			}
		case InvoicePaid:
			appointment, err = txStore.GetAppointment(ctx, invoice.AppointmentID)
			if err != nil {
				return err
			}
			invoice, err = service.settle(ctx, txStore, invoice, appointment.CustomerID, redeemPoints, now)
			if err != nil {
				return err
			}
		case InvoiceCancelled:
			invoice.CancelledAt = timeRef(now)
		}
		invoice.Status = toStatus
		invoice.UpdatedAt = now
		invoice.UpdatedBy = actorRef(actorID)
		if err := txStore.UpdateInvoice(ctx, invoice, fromStatus); err != nil {
			return err
		}
		updated = invoice
		if toStatus != InvoicePaid {
			return nil
		}
		awarded, err = service.awardIfSettled(ctx, txStore, appointment, &invoice)
		return err
	})
	service.logOperation(ctx, OperationLog{
		Operation:  operationTransitionInvoice,
		UserID:     actorID,
		InvoiceID:  &invoiceID,
		FromStatus: fromStatus.String(),
		ToStatus:   toStatus.String(),
		Points:     awarded,
		Error:      operationError,
	})
	if operationError != nil {
		return Invoice{}, operationError
	}
	return updated, nil
}

// RequestPayment records the customer's intent to pay an ISSUED invoice with
// redeemPoints applied and parks it in PAYMENT_PENDING for admin approval.
func (service *Service) RequestPayment(ctx context.Context, invoiceID InvoiceID, customerID UserID, redeemPoints int64) (Invoice, error) {
	var updated Invoice
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		invoice, err := txStore.GetInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}
		appointment, err := txStore.GetAppointment(ctx, invoice.AppointmentID)
		if err != nil {
			return err
		}
		if customerID.IsZero() || appointment.CustomerID != customerID {
			return fmt.Errorf("%w: invoice %s", ErrNotAppointmentParty, invoiceID)
		}
		switch invoice.Status {
		case InvoiceIssued:
		case InvoicePaid:
			return ErrInvoiceAlreadyPaid
		default:
			return fmt.Errorf("%w: invoice %s is %s", ErrInvoiceNotIssued, invoiceID, invoice.Status)
		}
		balance, err := rewardBalance(ctx, txStore, customerID)
		if err != nil {
			return err
		}
		if err := ValidateRedeemPoints(redeemPoints, balance.Balance, invoice.Total); err != nil {
			return err
		}
		invoice.RedeemedPoints = redeemPoints
		invoice.RedeemedAmount = PointsValue(redeemPoints)
		invoice.PaidAmount = decimal.NullDecimal{}
		invoice.Status = InvoicePaymentPending
		invoice.UpdatedAt = service.now()
		invoice.UpdatedBy = actorRef(customerID)
		if err := txStore.UpdateInvoice(ctx, invoice, InvoiceIssued); err != nil {
			return err
		}
		updated = invoice
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation:  operationRequestPayment,
		UserID:     customerID,
		InvoiceID:  &invoiceID,
		FromStatus: InvoiceIssued.String(),
		ToStatus:   InvoicePaymentPending.String(),
		Points:     redeemPoints,
		Error:      operationError,
	})
	if operationError != nil {
		return Invoice{}, operationError
	}
	return updated, nil
}

// GetInvoice returns an invoice visible to caller.
func (service *Service) GetInvoice(ctx context.Context, invoiceID InvoiceID, caller Caller) (Invoice, error) {
	invoice, err := service.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return Invoice{}, err
	}
	if caller.Admin {
		return invoice, nil
	}
	appointment, err := service.store.GetAppointment(ctx, invoice.AppointmentID)
	if err != nil {
		return Invoice{}, err
	}
	if _, ok := ResolveActorRole(caller, appointment); !ok {
		return Invoice{}, fmt.Errorf("%w: invoice %s", ErrNotAppointmentParty, invoiceID)
	}
	return invoice, nil
}

// ListPendingPayments returns invoices awaiting payment approval, newest first.
func (service *Service) ListPendingPayments(ctx context.Context) ([]Invoice, error) {
	return service.store.ListInvoicesByStatus(ctx, InvoicePaymentPending)
}

// settle resolves the redemption of an invoice entering PAID and records the REDEEM row.
func (service *Service) settle(ctx context.Context, txStore Store, invoice Invoice, customerID UserID, redeemPoints *int64, now time.Time) (Invoice, error) {
	points := invoice.RedeemedPoints
	if redeemPoints != nil {
		points = *redeemPoints
	}
	if points != 0 {
		balance, err := rewardBalance(ctx, txStore, customerID)
		if err != nil {
			return Invoice{}, err
		}
		if err := ValidateRedeemPoints(points, balance.Balance, invoice.Total); err != nil {
			return Invoice{}, err
		}
		appointmentID := invoice.AppointmentID
		if _, err := txStore.InsertRewardIfAbsent(ctx, RewardTransaction{
			UserID:        customerID,
			AppointmentID: &appointmentID,
			Type:          RewardRedeem,
			Points:        points,
			Note:          fmt.Sprintf(rewardNoteRedeemForm, invoice.ID),
			CreatedAt:     now,
		}); err != nil {
			return Invoice{}, err
		}
	}
	invoice.RedeemedPoints = points
	invoice.RedeemedAmount = PointsValue(points)
	invoice.PaidAmount = decimal.NewNullDecimal(invoice.Total.Sub(invoice.RedeemedAmount))
	invoice.PaidAt = timeRef(now)
	return invoice, nil
}
