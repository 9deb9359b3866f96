package httpapi

import (
	"time"

	"github.com/MarkoPoloResearchLab/motocare/pkg/booking"
	"github.com/shopspring/decimal"
)

type createAppointmentRequest struct {
	BikeID        string `json:"bike_id"`
	GarageID      string `json:"garage_id"`
	KmRunning     int    `json:"km_running"`
	ServiceType   string `json:"service_type"`
	PreferredDate string `json:"preferred_date"`
	TimeSlot      string `json:"time_slot"`
	Notes         string `json:"notes"`
}

type transitionRequest struct {
	Status         string `json:"status" binding:"required"`
	Reason         string `json:"reason"`
	Note           string `json:"note"`
	RescheduleFrom string `json:"reschedule_from"`
	RescheduleTo   string `json:"reschedule_to"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type quotedPriceRequest struct {
	Price decimal.Decimal `json:"price"`
}

type invoiceItemRequest struct {
	Description string              `json:"description"`
	UnitPrice   decimal.NullDecimal `json:"unit_price"`
	Quantity    int                 `json:"quantity"`
}

type createInvoiceRequest struct {
	Items   []invoiceItemRequest `json:"items"`
	VATRate decimal.Decimal      `json:"vat_rate"`
	Status  string               `json:"status"`
}

type editInvoiceRequest struct {
	Items   []invoiceItemRequest `json:"items"`
	VATRate decimal.Decimal      `json:"vat_rate"`
}

type invoiceTransitionRequest struct {
	Status       string `json:"status" binding:"required"`
	RedeemPoints *int64 `json:"redeem_points"`
}

type paymentRequest struct {
	RedeemPoints int64 `json:"redeem_points"`
}

type historyPayload struct {
	From   string    `json:"from"`
	To     string    `json:"to"`
	By     string    `json:"by,omitempty"`
	Role   string    `json:"role"`
	At     time.Time `json:"at"`
	Reason string    `json:"reason,omitempty"`
	Note   string    `json:"note,omitempty"`
}

type appointmentPayload struct {
	ID                 string              `json:"id"`
	UserID             string              `json:"user_id"`
	BikeID             string              `json:"bike_id"`
	GarageID           string              `json:"garage_id"`
	KmRunning          int                 `json:"km_running"`
	ServiceType        string              `json:"service_type"`
	PreferredDate      string              `json:"preferred_date"`
	TimeSlot           string              `json:"time_slot"`
	Notes              string              `json:"notes,omitempty"`
	QuotedPrice        decimal.NullDecimal `json:"quoted_price"`
	Status             string              `json:"status"`
	StatusHistory      []historyPayload    `json:"status_history"`
	DecidedBy          string              `json:"decided_by,omitempty"`
	DecidedAt          *time.Time          `json:"decided_at,omitempty"`
	CancellationReason string              `json:"cancellation_reason,omitempty"`
	RescheduleFrom     *time.Time          `json:"reschedule_from,omitempty"`
	RescheduleTo       *time.Time          `json:"reschedule_to,omitempty"`
	InternalNotes      string              `json:"internal_notes,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

type invoiceItemPayload struct {
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type invoicePayload struct {
	ID             string               `json:"id"`
	AppointmentID  string               `json:"appointment_id"`
	Status         string               `json:"status"`
	Items          []invoiceItemPayload `json:"items"`
	SubtotalAmount decimal.Decimal      `json:"subtotal_amount"`
	VATRate        decimal.Decimal      `json:"vat_rate"`
	VATAmount      decimal.Decimal      `json:"vat_amount"`
	TotalAmount    decimal.Decimal      `json:"total_amount"`
	RedeemedPoints int64                `json:"redeemed_points"`
	RedeemedAmount decimal.Decimal      `json:"redeemed_amount"`
	PaidAmount     decimal.NullDecimal  `json:"paid_amount"`
	IssuedAt       *time.Time           `json:"issued_at,omitempty"`
	PaidAt         *time.Time           `json:"paid_at,omitempty"`
	CancelledAt    *time.Time           `json:"cancelled_at,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

type rewardTransactionPayload struct {
	ID            string    `json:"id"`
	AppointmentID string    `json:"appointment_id,omitempty"`
	Type          string    `json:"type"`
	Points        int64     `json:"points"`
	Note          string    `json:"note,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type rewardsPayload struct {
	Balance      int64                      `json:"balance"`
	Earned       int64                      `json:"earned"`
	Redeemed     int64                      `json:"redeemed"`
	Transactions []rewardTransactionPayload `json:"transactions"`
}

type availabilityPayload struct {
	Date       string         `json:"date"`
	GarageID   string         `json:"garage_id,omitempty"`
	MaxPerSlot int            `json:"max_per_slot"`
	Counts     map[string]int `json:"counts"`
}

func (request createAppointmentRequest) toDomain() booking.AppointmentRequest {
	return booking.AppointmentRequest{
		BikeID:        request.BikeID,
		GarageID:      request.GarageID,
		Odometer:      request.KmRunning,
		ServiceType:   request.ServiceType,
		PreferredDate: request.PreferredDate,
		TimeSlot:      request.TimeSlot,
		Notes:         request.Notes,
	}
}

func itemInputs(items []invoiceItemRequest) []booking.InvoiceItemInput {
	inputs := make([]booking.InvoiceItemInput, 0, len(items))
	for _, item := range items {
		inputs = append(inputs, booking.InvoiceItemInput{
			Description: item.Description,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
		})
	}
	return inputs
}

func newAppointmentPayload(appointment booking.Appointment) appointmentPayload {
	history := make([]historyPayload, 0, len(appointment.History))
	for _, entry := range appointment.History {
		history = append(history, historyPayload{
			From:   entry.From.String(),
			To:     entry.To.String(),
			By:     userString(entry.ActorID),
			Role:   entry.Role.String(),
			At:     entry.At,
			Reason: entry.Reason,
			Note:   entry.Note,
		})
	}
	return appointmentPayload{
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
		DecidedBy:          userString(appointment.DecidedBy),
		DecidedAt:          appointment.DecidedAt,
		CancellationReason: appointment.CancellationReason,
		RescheduleFrom:     appointment.RescheduleFrom,
		RescheduleTo:       appointment.RescheduleTo,
		InternalNotes:      appointment.InternalNotes,
		CreatedAt:          appointment.CreatedAt,
		UpdatedAt:          appointment.UpdatedAt,
	}
}

// newCustomerAppointmentPayload hides admin-only notes from the customer view.
func newCustomerAppointmentPayload(appointment booking.Appointment, caller booking.Caller) appointmentPayload {
	payload := newAppointmentPayload(appointment)
	if !caller.Admin {
		payload.InternalNotes = ""
	}
	return payload
}

func newInvoicePayload(invoice booking.Invoice) invoicePayload {
	items := make([]invoiceItemPayload, 0, len(invoice.Items))
	for _, item := range invoice.Items {
		items = append(items, invoiceItemPayload{
			Description: item.Description,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			LineTotal:   item.LineTotal,
		})
	}
	return invoicePayload{
		ID:             invoice.ID.String(),
		AppointmentID:  invoice.AppointmentID.String(),
		Status:         invoice.Status.String(),
		Items:          items,
		SubtotalAmount: invoice.Subtotal,
		VATRate:        invoice.VATRate,
		VATAmount:      invoice.VATAmount,
		TotalAmount:    invoice.Total,
		RedeemedPoints: invoice.RedeemedPoints,
		RedeemedAmount: invoice.RedeemedAmount,
		PaidAmount:     invoice.PaidAmount,
		IssuedAt:       invoice.IssuedAt,
		PaidAt:         invoice.PaidAt,
		CancelledAt:    invoice.CancelledAt,
		CreatedAt:      invoice.CreatedAt,
		UpdatedAt:      invoice.UpdatedAt,
	}
}

func newRewardsPayload(balance booking.RewardBalance, transactions []booking.RewardTransaction) rewardsPayload {
	payload := rewardsPayload{
		Balance:      balance.Balance,
		Earned:       balance.Earned,
		Redeemed:     balance.Redeemed,
		Transactions: make([]rewardTransactionPayload, 0, len(transactions)),
	}
	for _, transaction := range transactions {
		entry := rewardTransactionPayload{
			ID:        transaction.ID,
			Type:      transaction.Type.String(),
			Points:    transaction.Points,
			Note:      transaction.Note,
			CreatedAt: transaction.CreatedAt,
		}
		if transaction.AppointmentID != nil {
			entry.AppointmentID = transaction.AppointmentID.String()
		}
		payload.Transactions = append(payload.Transactions, entry)
	}
	return payload
}

func newAvailabilityPayload(availability booking.SlotAvailability) availabilityPayload {
	payload := availabilityPayload{
		Date:       availability.Date,
		MaxPerSlot: availability.MaxPerSlot,
		Counts:     availability.Counts,
	}
	if availability.GarageID != nil {
		payload.GarageID = availability.GarageID.String()
	}
	return payload
}

func userString(userID *booking.UserID) string {
	if userID == nil {
		return ""
	}
	return userID.String()
}
