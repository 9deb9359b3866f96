package gormstore

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Bike mirrors the bikes table. Bikes are registered by the hosting application;
// the booking core only checks ownership.
type Bike struct {
	ID             string    `gorm:"type:uuid;primaryKey"`
	UserID         string    `gorm:"not null;index"`
	Company        string    `gorm:"not null"`
	Model          string    `gorm:"not null"`
	RegistrationNo string    `gorm:"not null"`
	Color          string    `gorm:""`
	CreatedAt      time.Time `gorm:"not null"`
}

func (Bike) TableName() string { return "bikes" }

func (bike *Bike) BeforeCreate(tx *gorm.DB) error {
	if bike.ID == "" {
		bike.ID = uuid.NewString()
	}
	return nil
}

// Garage mirrors the garages table.
type Garage struct {
	ID        string    `gorm:"primaryKey"`
	Name      string    `gorm:"not null"`
	Address   string    `gorm:""`
	Phone     string    `gorm:""`
	OwnerID   *string   `gorm:"index"`
	Status    string    `gorm:"type:varchar(20);not null;default:PENDING"`
	IsDeleted bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"not null"`
}

func (Garage) TableName() string { return "garages" }

func (garage *Garage) BeforeCreate(tx *gorm.DB) error {
	if garage.ID == "" {
		garage.ID = uuid.NewString()
	}
	return nil
}

// HistoryEntryRecord is the JSON shape of one status_history element.
type HistoryEntryRecord struct {
	From   string    `json:"from"`
	To     string    `json:"to"`
	By     *string   `json:"by"`
	Role   string    `json:"role"`
	At     time.Time `json:"at"`
	Reason string    `json:"reason,omitempty"`
	Note   string    `json:"note,omitempty"`
}

// Appointment mirrors the appointments table.
type Appointment struct {
	ID                 string                                  `gorm:"type:uuid;primaryKey"`
	UserID             string                                  `gorm:"not null;index:idx_appointments_user_status,priority:1"`
	BikeID             string                                  `gorm:"not null"`
	GarageID           string                                  `gorm:"not null;index:idx_appointments_slot,priority:1"`
	KmRunning          int                                     `gorm:"not null"`
	ServiceType        string                                  `gorm:"not null"`
	PreferredDate      string                                  `gorm:"type:varchar(10);not null;index:idx_appointments_slot,priority:2"`
	TimeSlot           string                                  `gorm:"type:varchar(5);not null;index:idx_appointments_slot,priority:3"`
	Notes              string                                  `gorm:""`
	QuotedPrice        decimal.NullDecimal                     `gorm:"type:decimal(10,2)"`
	Status             string                                  `gorm:"type:varchar(20);not null;index:idx_appointments_user_status,priority:2;index:idx_appointments_status_created,priority:1"`
	StatusHistory      datatypes.JSONSlice[HistoryEntryRecord] `gorm:"not null"`
	DecidedBy          *string                                 `gorm:""`
	DecidedAt          *time.Time                              `gorm:""`
	CancellationReason *string                                 `gorm:""`
	RescheduleFrom     *time.Time                              `gorm:""`
	RescheduleTo       *time.Time                              `gorm:""`
	UpdatedBy          *string                                 `gorm:""`
	InternalNotes      *string                                 `gorm:""`
	CreatedAt          time.Time                               `gorm:"not null;index:idx_appointments_status_created,priority:2"`
	UpdatedAt          time.Time                               `gorm:"not null"`
}

func (Appointment) TableName() string { return "appointments" }

func (appointment *Appointment) BeforeCreate(tx *gorm.DB) error {
	if appointment.ID == "" {
		appointment.ID = uuid.NewString()
	}
	return nil
}

// Invoice mirrors the invoices table.
type Invoice struct {
	ID             string              `gorm:"type:uuid;primaryKey"`
	AppointmentID  string              `gorm:"type:uuid;not null;uniqueIndex:idx_invoices_appointment"`
	Status         string              `gorm:"type:varchar(20);not null;index:idx_invoices_status_updated,priority:1"`
	SubtotalAmount decimal.Decimal     `gorm:"type:decimal(10,2);not null"`
	VatRate        decimal.Decimal     `gorm:"type:decimal(5,2);not null"`
	VatAmount      decimal.Decimal     `gorm:"type:decimal(10,2);not null"`
	TotalAmount    decimal.Decimal     `gorm:"type:decimal(10,2);not null"`
	RedeemedPoints int64               `gorm:"not null;default:0"`
	RedeemedAmount decimal.Decimal     `gorm:"type:decimal(10,2);not null"`
	PaidAmount     decimal.NullDecimal `gorm:"type:decimal(10,2)"`
	IssuedAt       *time.Time          `gorm:""`
	PaidAt         *time.Time          `gorm:""`
	CancelledAt    *time.Time          `gorm:""`
	CreatedBy      *string             `gorm:""`
	UpdatedBy      *string             `gorm:""`
	CreatedAt      time.Time           `gorm:"not null"`
	UpdatedAt      time.Time           `gorm:"not null;index:idx_invoices_status_updated,priority:2"`
	Items          []InvoiceItem       `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
}

func (Invoice) TableName() string { return "invoices" }

func (invoice *Invoice) BeforeCreate(tx *gorm.DB) error {
	if invoice.ID == "" {
		invoice.ID = uuid.NewString()
	}
	return nil
}

// InvoiceItem mirrors the invoice_items table.
type InvoiceItem struct {
	ID          string          `gorm:"type:uuid;primaryKey"`
	InvoiceID   string          `gorm:"type:uuid;not null;index:idx_invoice_items_invoice_position,priority:1"`
	Position    int             `gorm:"not null;index:idx_invoice_items_invoice_position,priority:2"`
	Description string          `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Quantity    int             `gorm:"not null;default:1"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CreatedAt   time.Time       `gorm:"not null"`
}

func (InvoiceItem) TableName() string { return "invoice_items" }

func (item *InvoiceItem) BeforeCreate(tx *gorm.DB) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	return nil
}

// RewardTransaction mirrors the reward_transactions table.
type RewardTransaction struct {
	ID            string    `gorm:"type:uuid;primaryKey"`
	UserID        string    `gorm:"not null;uniqueIndex:uniq_reward_user_appointment_type,priority:1;index:idx_reward_user_created,priority:1"`
	AppointmentID *string   `gorm:"type:uuid;uniqueIndex:uniq_reward_user_appointment_type,priority:2"`
	Type          string    `gorm:"type:varchar(10);not null;uniqueIndex:uniq_reward_user_appointment_type,priority:3"`
	Points        int64     `gorm:"not null"`
	Note          *string   `gorm:""`
	CreatedAt     time.Time `gorm:"not null;index:idx_reward_user_created,priority:2"`
}

func (RewardTransaction) TableName() string { return "reward_transactions" }

func (transaction *RewardTransaction) BeforeCreate(tx *gorm.DB) error {
	if transaction.ID == "" {
		transaction.ID = uuid.NewString()
	}
	return nil
}

// Models lists every table for AutoMigrate.
func Models() []interface{} {
	return []interface{}{
		&Bike{},
		&Garage{},
		&Appointment{},
		&Invoice{},
		&InvoiceItem{},
		&RewardTransaction{},
	}
}
